package cart

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/recordshop/storefront/internal/api"
	"github.com/recordshop/storefront/internal/stock"
	pkgerrors "github.com/recordshop/storefront/pkg/errors"
	"github.com/recordshop/storefront/pkg/logger"
	"github.com/shopspring/decimal"
)

// Line is one record-quantity pairing in a user's cart.
type Line struct {
	ID       int
	CartID   int
	RecordID int
	Title    string
	Amount   int
	Price    decimal.Decimal
	ImageURL string
}

// Total is the line total at the displayed unit price.
func (l Line) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Amount)))
}

type lineWire struct {
	IdCartDetail *int             `json:"IdCartDetail"`
	IdLower      *int             `json:"idCartDetail"`
	CartId       *int             `json:"CartId"`
	CartIdLower  *int             `json:"cartId"`
	RecordId     *int             `json:"RecordId"`
	RecordLower  *int             `json:"recordId"`
	TitleRecord  string           `json:"TitleRecord"`
	TitleLower   string           `json:"titleRecord"`
	Amount       api.LooseInt     `json:"Amount"`
	AmountLower  api.LooseInt     `json:"amount"`
	Price        api.LooseDecimal `json:"Price"`
	PriceLower   api.LooseDecimal `json:"price"`
	ImageRecord  string           `json:"ImageRecord"`
	ImageLower   string           `json:"imageRecord"`
}

func (w lineWire) toLine() Line {
	line := Line{
		ID:       intOr(w.IdCartDetail, w.IdLower),
		CartID:   intOr(w.CartId, w.CartIdLower),
		RecordID: intOr(w.RecordId, w.RecordLower),
		Title:    stringOr(w.TitleRecord, w.TitleLower),
	}
	if w.Amount.Value != nil {
		line.Amount = *w.Amount.Value
	} else if w.AmountLower.Value != nil {
		line.Amount = *w.AmountLower.Value
	}
	if w.Price.Set {
		line.Price = w.Price.Value
	} else if w.PriceLower.Set {
		line.Price = w.PriceLower.Value
	}
	line.ImageURL = stringOr(w.ImageRecord, w.ImageLower)
	return line
}

// MutationResult is the server's answer to an add or remove.
type MutationResult struct {
	Success      bool
	UpdatedStock *int
	Message      string
	CartID       int
}

type mutationWire struct {
	Success      *bool  `json:"success"`
	SuccessUp    *bool  `json:"Success"`
	UpdatedStock any    `json:"updatedStock"`
	StockUp      any    `json:"UpdatedStock"`
	Message      string `json:"message"`
	MessageUp    string `json:"Message"`
	CartId       *int   `json:"cartId"`
	CartIdUp     *int   `json:"CartId"`
}

// stockValue yields the raw updated-stock value with PascalCase winning;
// validation is the broadcast channel's job.
func (w mutationWire) stockValue() any {
	if w.StockUp != nil {
		return w.StockUp
	}
	return w.UpdatedStock
}

func (w mutationWire) toResult() MutationResult {
	res := MutationResult{
		Message: stringOr(w.MessageUp, w.Message),
		CartID:  intOr(w.CartIdUp, w.CartId),
	}
	if w.SuccessUp != nil {
		res.Success = *w.SuccessUp
	} else if w.Success != nil {
		res.Success = *w.Success
	}
	if s, ok := stock.Coerce(w.stockValue()); ok && s >= 0 {
		res.UpdatedStock = &s
	}
	return res
}

type mutationRequest struct {
	RecordID int `json:"recordId"`
	Amount   int `json:"amount"`
}

// Client performs cart mutations and reads for one authenticated user.
// Every successful mutation pushes the server-reported stock into the
// broadcast channel exactly once.
type Client struct {
	api       *api.Client
	broadcast *stock.Broadcast
	logger    *logger.Logger
}

func NewClient(apiClient *api.Client, broadcast *stock.Broadcast, logg *logger.Logger) (*Client, error) {
	if apiClient == nil {
		return nil, fmt.Errorf("api client required")
	}
	if broadcast == nil {
		return nil, fmt.Errorf("stock broadcast required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Client{api: apiClient, broadcast: broadcast, logger: logg}, nil
}

// Add asks the server to put amount units of a record into the user's
// cart. The server enforces stock limits; a rejection comes back either as
// a validation error or as Success=false with a message.
func (c *Client) Add(ctx context.Context, email string, recordID, amount int) (MutationResult, error) {
	return c.mutate(ctx, "cart-details/add/"+api.EscapeSegment(email), email, recordID, amount)
}

// Remove asks the server to take amount units of a record out of the cart.
func (c *Client) Remove(ctx context.Context, email string, recordID, amount int) (MutationResult, error) {
	return c.mutate(ctx, "cart-details/remove/"+api.EscapeSegment(email), email, recordID, amount)
}

func (c *Client) mutate(ctx context.Context, path, email string, recordID, amount int) (MutationResult, error) {
	if email == "" {
		return MutationResult{}, pkgerrors.New(pkgerrors.CodeValidation, "user email is required")
	}
	if amount <= 0 {
		return MutationResult{}, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var wire mutationWire
	body := mutationRequest{RecordID: recordID, Amount: amount}
	if err := c.api.PostJSON(ctx, path, body, &wire); err != nil {
		return MutationResult{}, err
	}

	res := wire.toResult()
	if res.Success {
		c.broadcast.NotifyValue(recordID, wire.stockValue())
	}
	return res, nil
}

// GetItems fetches the user's current cart lines.
func (c *Client) GetItems(ctx context.Context, email string) ([]Line, error) {
	raw, err := c.api.Get(ctx, "cart-details/"+api.EscapeSegment(email))
	if err != nil {
		return nil, err
	}
	wires, err := api.DecodeCollectionInto[lineWire](raw)
	if err != nil {
		return nil, err
	}
	lines := make([]Line, 0, len(wires))
	for _, w := range wires {
		lines = append(lines, w.toLine())
	}
	return lines, nil
}

// Count fetches how many units sit in the user's cart. The endpoint
// answers with either a bare number or a small wrapper object.
func (c *Client) Count(ctx context.Context, email string) (int, error) {
	raw, err := c.api.Get(ctx, "cart-details/count/"+api.EscapeSegment(email))
	if err != nil {
		return 0, err
	}

	var bare api.LooseInt
	if err := json.Unmarshal(raw, &bare); err == nil && bare.Value != nil {
		return *bare.Value, nil
	}

	var wrapped struct {
		Count   api.LooseInt `json:"count"`
		CountUp api.LooseInt `json:"Count"`
		Data    api.LooseInt `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeMalformed, err, "decode cart count")
	}
	for _, v := range []*int{wrapped.CountUp.Value, wrapped.Count.Value, wrapped.Data.Value} {
		if v != nil {
			return *v, nil
		}
	}
	return 0, pkgerrors.New(pkgerrors.CodeMalformed, "cart count missing from response")
}

// GetStatus reports whether the user's cart is enabled. Any failure,
// transport or shape, defaults to enabled so a flaky status endpoint
// never locks the storefront.
func (c *Client) GetStatus(ctx context.Context, email string) bool {
	raw, err := c.api.Get(ctx, "carts/status/"+api.EscapeSegment(email))
	if err != nil {
		c.logger.Warn(c.logger.WithUserEmail(ctx, email), "cart status unavailable, assuming enabled")
		return true
	}

	var wire struct {
		Enabled   *bool `json:"enabled"`
		EnabledUp *bool `json:"Enabled"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		c.logger.Warn(c.logger.WithUserEmail(ctx, email), "cart status unreadable, assuming enabled")
		return true
	}
	if wire.EnabledUp != nil {
		return *wire.EnabledUp
	}
	if wire.Enabled != nil {
		return *wire.Enabled
	}
	return true
}

// UpdateLine rewrites a cart line's amount directly (admin operation).
func (c *Client) UpdateLine(ctx context.Context, lineID, amount int) error {
	if amount < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative")
	}
	body := struct {
		Amount int `json:"amount"`
	}{Amount: amount}
	return c.api.PutJSON(ctx, fmt.Sprintf("cart-details/%d", lineID), body, nil)
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
