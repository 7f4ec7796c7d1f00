package validate

import (
	"testing"

	pkgerrors "github.com/recordshop/storefront/pkg/errors"
)

type sample struct {
	Title  string `json:"title" validate:"required"`
	Email  string `json:"email" validate:"required,email"`
	Amount int    `json:"amount" validate:"gte=0"`
}

func TestStructPasses(t *testing.T) {
	err := Struct(sample{Title: "Kind of Blue", Email: "u@records.test", Amount: 1})
	if err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Email: "not-an-email", Amount: -1})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected detail map, got %T", typed.Details())
	}
	if details["title"] != "is required" {
		t.Fatalf("unexpected title message %q", details["title"])
	}
	if details["email"] != "must be a valid email" {
		t.Fatalf("unexpected email message %q", details["email"])
	}
	if details["amount"] != "must be at least 0" {
		t.Fatalf("unexpected amount message %q", details["amount"])
	}
}
