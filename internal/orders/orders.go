package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/recordshop/storefront/internal/api"
	"github.com/recordshop/storefront/internal/validate"
	pkgerrors "github.com/recordshop/storefront/pkg/errors"
	"github.com/recordshop/storefront/pkg/logger"
	"github.com/shopspring/decimal"
)

// Order is a placed order with its line snapshot. Totals and titles come
// from the server and may be padded with safe defaults when the upstream
// response leaves nested fields out.
type Order struct {
	ID            int
	Date          time.Time
	PaymentMethod string
	Total         decimal.Decimal
	UserEmail     string
	CartID        int
	Details       []Detail
}

// Detail is one ordered line: a record with quantity and price snapshots.
type Detail struct {
	RecordID int
	Title    string
	Amount   int
	Price    decimal.Decimal
	Total    decimal.Decimal
}

type detailWire struct {
	RecordId    *int             `json:"RecordId"`
	RecordLower *int             `json:"recordId"`
	TitleRecord string           `json:"TitleRecord"`
	TitleLower  string           `json:"titleRecord"`
	Amount      api.LooseInt     `json:"Amount"`
	AmountLower api.LooseInt     `json:"amount"`
	Price       api.LooseDecimal `json:"Price"`
	PriceLower  api.LooseDecimal `json:"price"`
	Total       api.LooseDecimal `json:"Total"`
	TotalLower  api.LooseDecimal `json:"total"`
}

func (w detailWire) toDetail() Detail {
	d := Detail{
		RecordID: intOr(w.RecordId, w.RecordLower),
		Title:    stringOr(w.TitleRecord, w.TitleLower),
	}
	if w.Amount.Value != nil {
		d.Amount = *w.Amount.Value
	} else if w.AmountLower.Value != nil {
		d.Amount = *w.AmountLower.Value
	}
	if w.Price.Set {
		d.Price = w.Price.Value
	} else if w.PriceLower.Set {
		d.Price = w.PriceLower.Value
	}
	if w.Total.Set {
		d.Total = w.Total.Value
	} else if w.TotalLower.Set {
		d.Total = w.TotalLower.Value
	} else {
		d.Total = d.Price.Mul(decimal.NewFromInt(int64(d.Amount)))
	}
	if d.Title == "" {
		if d.RecordID != 0 {
			d.Title = "Record " + strconv.Itoa(d.RecordID)
		} else {
			d.Title = "Unknown Record"
		}
	}
	return d
}

type orderWire struct {
	IdOrder       *int             `json:"IdOrder"`
	IdLower       *int             `json:"idOrder"`
	OrderDate     string           `json:"OrderDate"`
	DateLower     string           `json:"orderDate"`
	PaymentMethod string           `json:"PaymentMethod"`
	PaymentLower  string           `json:"paymentMethod"`
	Total         api.LooseDecimal `json:"Total"`
	TotalLower    api.LooseDecimal `json:"total"`
	UserEmail     string           `json:"UserEmail"`
	EmailLower    string           `json:"userEmail"`
	CartId        *int             `json:"CartId"`
	CartIdLower   *int             `json:"cartId"`

	OrderDetails json.RawMessage `json:"OrderDetails"`
	DetailsLower json.RawMessage `json:"orderDetails"`
}

func (w orderWire) toOrder() Order {
	o := Order{
		ID:            intOr(w.IdOrder, w.IdLower),
		PaymentMethod: stringOr(w.PaymentMethod, w.PaymentLower),
		UserEmail:     stringOr(w.UserEmail, w.EmailLower),
		CartID:        intOr(w.CartId, w.CartIdLower),
	}
	if w.Total.Set {
		o.Total = w.Total.Value
	} else if w.TotalLower.Set {
		o.Total = w.TotalLower.Value
	}

	if raw := stringOr(w.OrderDate, w.DateLower); raw != "" {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, raw); err == nil {
				o.Date = parsed
				break
			}
		}
	}

	detailsRaw := w.OrderDetails
	if detailsRaw == nil {
		detailsRaw = w.DetailsLower
	}
	var wires []detailWire
	if detailsRaw != nil {
		// Detail shape errors pad to an empty line list instead of
		// failing the order.
		wires, _ = api.DecodeCollectionInto[detailWire](detailsRaw)
	}
	o.Details = make([]Detail, 0, len(wires))
	for _, dw := range wires {
		o.Details = append(o.Details, dw.toDetail())
	}
	return o
}

// Client submits and reads orders.
type Client struct {
	api    *api.Client
	logger *logger.Logger
}

func NewClient(apiClient *api.Client, logg *logger.Logger) (*Client, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("api client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Client{api: apiClient, logger: logg}, nil
}

type createRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

// CreateFromCart turns the user's current cart into an order, atomically
// on the server side.
func (c *Client) CreateFromCart(ctx context.Context, email, paymentMethod string) (*Order, error) {
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user email is required")
	}
	req := createRequest{PaymentMethod: paymentMethod}
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	var wire orderWire
	if err := c.api.PostJSON(ctx, "orders/create/"+api.EscapeSegment(email), req, &wire); err != nil {
		return nil, err
	}
	order := wire.toOrder()
	return &order, nil
}

// ListAll fetches every order (admin operation). Read failures degrade to
// an empty list so back-office views keep rendering.
func (c *Client) ListAll(ctx context.Context) ([]Order, error) {
	return c.list(ctx, "orders")
}

// ListByEmail fetches one user's order history, degrading the same way.
func (c *Client) ListByEmail(ctx context.Context, email string) ([]Order, error) {
	return c.list(ctx, "orders/"+api.EscapeSegment(email))
}

func (c *Client) list(ctx context.Context, path string) ([]Order, error) {
	raw, err := c.api.Get(ctx, path)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeAuth) {
			return nil, err
		}
		c.logger.Warn(ctx, "order list unavailable, rendering empty history")
		return nil, nil
	}
	wires, err := api.DecodeCollectionInto[orderWire](raw)
	if err != nil {
		c.logger.Warn(ctx, "order list unreadable, rendering empty history")
		return nil, nil
	}
	orders := make([]Order, 0, len(wires))
	for _, w := range wires {
		orders = append(orders, w.toOrder())
	}
	return orders, nil
}

func intOr(canonical, variant *int) int {
	if canonical != nil {
		return *canonical
	}
	if variant != nil {
		return *variant
	}
	return 0
}

func stringOr(canonical, variant string) string {
	if canonical != "" {
		return canonical
	}
	return variant
}
