package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/recordshop/storefront/internal/api"
	"github.com/recordshop/storefront/internal/auth"
	"github.com/recordshop/storefront/internal/cart"
	"github.com/recordshop/storefront/internal/groups"
	"github.com/recordshop/storefront/internal/orders"
	"github.com/recordshop/storefront/internal/records"
	"github.com/recordshop/storefront/internal/session"
	"github.com/recordshop/storefront/internal/stock"
	"github.com/recordshop/storefront/pkg/config"
	"github.com/recordshop/storefront/pkg/logger"
)

// The storefront binary wires the full client stack against a live API and
// runs a catalog/cart smoke pass: list records, and when credentials are
// configured, log in and refresh the cart through the reconciler.
func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := context.Background()

	sess := session.NewContext()
	apiClient, err := api.NewClient(cfg.API, api.TokenFunc(sess.Token), logg)
	if err != nil {
		logg.Error(ctx, "failed to create api client", err)
		os.Exit(1)
	}

	broadcast := stock.NewBroadcast()

	groupsClient, err := groups.NewClient(apiClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to create groups client", err)
		os.Exit(1)
	}
	recordsClient, err := records.NewClient(apiClient, groupsClient, broadcast, logg)
	if err != nil {
		logg.Error(ctx, "failed to create records client", err)
		os.Exit(1)
	}

	recs, err := recordsClient.ListAll(ctx)
	if err != nil {
		logg.Error(ctx, "failed to list records", err)
		os.Exit(1)
	}
	logg.Info(logg.WithField(ctx, "records", len(recs)), "catalog fetched")

	if cfg.Login.Email == "" || cfg.Login.Password == "" {
		logg.Info(ctx, "no login credentials configured, skipping cart flow")
		return
	}

	authClient, err := auth.NewClient(apiClient, sess, logg)
	if err != nil {
		logg.Error(ctx, "failed to create auth client", err)
		os.Exit(1)
	}
	creds := auth.Credentials{Email: cfg.Login.Email, Password: cfg.Login.Password}
	if err := authClient.Login(ctx, creds); err != nil {
		logg.Error(ctx, "login failed", err)
		os.Exit(1)
	}

	cartClient, err := cart.NewClient(apiClient, broadcast, logg)
	if err != nil {
		logg.Error(ctx, "failed to create cart client", err)
		os.Exit(1)
	}
	if !cartClient.GetStatus(ctx, cfg.Login.Email) {
		logg.Warn(logg.WithUserEmail(ctx, cfg.Login.Email), "cart is disabled for this user")
	}

	reconciler, err := cart.NewReconciler(
		cartClient,
		recordsClient,
		broadcast,
		cfg.Login.Email,
		logg,
		cart.WithAlertDuration(cfg.Alert.DisplayDuration),
	)
	if err != nil {
		logg.Error(ctx, "failed to create cart reconciler", err)
		os.Exit(1)
	}
	defer reconciler.Close()

	if err := reconciler.LoadRecords(ctx); err != nil {
		logg.Error(ctx, "failed to load records", err)
		os.Exit(1)
	}
	if err := reconciler.LoadCartDetails(ctx); err != nil {
		logg.Error(ctx, "failed to load cart details", err)
		os.Exit(1)
	}
	ctx = logg.WithFields(ctx, map[string]any{
		"lines": len(reconciler.Lines()),
		"total": reconciler.Total().String(),
	})
	logg.Info(ctx, "cart reconciled")

	ordersClient, err := orders.NewClient(apiClient, logg)
	if err != nil {
		logg.Error(ctx, "failed to create orders client", err)
		os.Exit(1)
	}
	history, err := ordersClient.ListByEmail(ctx, cfg.Login.Email)
	if err != nil {
		logg.Error(ctx, "failed to list orders", err)
		os.Exit(1)
	}
	logg.Info(logg.WithField(ctx, "orders", len(history)), "order history fetched")
}
