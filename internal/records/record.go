package records

import (
	"strings"

	"github.com/recordshop/storefront/internal/api"
	"github.com/shopspring/decimal"
)

// Record is the canonical catalog item. InCart and Amount are transient
// per-view fields derived from the user's cart lines; everything else comes
// from the directory.
type Record struct {
	ID           int
	Title        string
	Year         *int
	Price        decimal.Decimal
	Stock        int
	Discontinued bool
	GroupID      int
	GroupName    string
	ImageURL     string

	InCart bool
	Amount int
}

// recordWire tolerates every observed spelling of the record fields. The
// PascalCase spelling is canonical and wins when a case-variant duplicate
// is present; the nested data.stock value, when sent, is the most
// authoritative stock figure.
type recordWire struct {
	IdRecord     *int             `json:"IdRecord"`
	IdLower      *int             `json:"idRecord"`
	TitleRecord  string           `json:"TitleRecord"`
	TitleLower   string           `json:"titleRecord"`
	Year         *int             `json:"YearOfPublication"`
	YearLower    *int             `json:"yearOfPublication"`
	Price        api.LooseDecimal `json:"Price"`
	PriceLower   api.LooseDecimal `json:"price"`
	Stock        api.LooseInt     `json:"Stock"`
	StockLower   api.LooseInt     `json:"stock"`
	Discontinued bool             `json:"Discontinued"`
	DiscLower    bool             `json:"discontinued"`
	GroupId      *int             `json:"GroupId"`
	GroupIdLower *int             `json:"groupId"`
	GroupName    string           `json:"GroupName"`
	GroupNameLo  string           `json:"groupName"`
	NameGroup    string           `json:"NameGroup"`
	ImageRecord  string           `json:"ImageRecord"`
	ImageLower   string           `json:"imageRecord"`
	PhotoName    string           `json:"PhotoName"`
	PhotoLower   string           `json:"photoName"`
	Data         *struct {
		Stock api.LooseInt `json:"stock"`
	} `json:"data"`
}

func (w recordWire) toRecord() Record {
	rec := Record{
		ID:           intOr(w.IdRecord, w.IdLower),
		Title:        stringOr(w.TitleRecord, w.TitleLower),
		Discontinued: w.Discontinued || w.DiscLower,
		GroupID:      intOr(w.GroupId, w.GroupIdLower),
		GroupName:    stringOr(w.GroupName, stringOr(w.NameGroup, w.GroupNameLo)),
	}

	if w.Year != nil {
		rec.Year = w.Year
	} else if w.YearLower != nil {
		rec.Year = w.YearLower
	}

	if w.Price.Set {
		rec.Price = w.Price.Value
	} else if w.PriceLower.Set {
		rec.Price = w.PriceLower.Value
	}

	switch {
	case w.Data != nil && w.Data.Stock.Value != nil:
		rec.Stock = *w.Data.Stock.Value
	case w.Stock.Value != nil:
		rec.Stock = *w.Stock.Value
	case w.StockLower.Value != nil:
		rec.Stock = *w.StockLower.Value
	}

	// Prefer the image reference over the bare photo name.
	image := strings.TrimSpace(stringOr(w.ImageRecord, w.ImageLower))
	if image == "" {
		image = strings.TrimSpace(stringOr(w.PhotoName, w.PhotoLower))
	}
	rec.ImageURL = image

	return rec
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
