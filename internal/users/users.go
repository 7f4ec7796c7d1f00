package users

import (
	"context"
	"fmt"

	"github.com/recordshop/storefront/internal/api"
	pkgerrors "github.com/recordshop/storefront/pkg/errors"
	"github.com/recordshop/storefront/pkg/logger"
)

// User is a registered storefront account as the back office sees it.
type User struct {
	Email string
	Name  string
	Role  string
}

type userWire struct {
	Email      string `json:"Email"`
	EmailLower string `json:"email"`
	Name       string `json:"Name"`
	NameLower  string `json:"name"`
	Role       string `json:"Role"`
	RoleLower  string `json:"role"`
}

func (w userWire) toUser() User {
	return User{
		Email: stringOr(w.Email, w.EmailLower),
		Name:  stringOr(w.Name, w.NameLower),
		Role:  stringOr(w.Role, w.RoleLower),
	}
}

// Client administers user accounts (admin operations).
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

// List fetches every account. Shape problems degrade to an empty list so
// the back office keeps rendering; auth errors still propagate.
func (c *Client) List(ctx context.Context) ([]User, error) {
	raw, err := c.api.Get(ctx, "users")
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeAuth) {
			return nil, err
		}
		c.logger.Warn(ctx, "user list unavailable, rendering empty")
		return nil, nil
	}
	wires, err := api.DecodeCollectionInto[userWire](raw)
	if err != nil {
		c.logger.Warn(ctx, "user list unreadable, rendering empty")
		return nil, nil
	}
	users := make([]User, 0, len(wires))
	for _, w := range wires {
		users = append(users, w.toUser())
	}
	return users, nil
}

// Delete removes an account by email.
func (c *Client) Delete(ctx context.Context, email string) error {
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "user email is required")
	}
	_, err := c.api.Delete(ctx, "users/"+api.EscapeSegment(email))
	return err
}

func stringOr(canonical, variant string) string {
	if canonical != "" {
		return canonical
	}
	return variant
}
