package api

import (
	"encoding/json"
	"testing"

	pkgerrors "github.com/recordshop/storefront/pkg/errors"
)

func TestDecodeCollectionShapes(t *testing.T) {
	item := `{"IdGroup":1,"NameGroup":"X"}`
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bare array", `[` + item + `]`, 1},
		{"values wrapper", `{"$values":[` + item + `]}`, 1},
		{"data wrapper", `{"data":[` + item + `]}`, 1},
		{"nested data values", `{"data":{"$values":[` + item + `]}}`, 1},
		{"data singleton", `{"data":` + item + `}`, 1},
		{"success data wrapper", `{"success":true,"data":[` + item + `,` + item + `]}`, 2},
		{"empty array", `[]`, 0},
		{"null body", `null`, 0},
		{"empty body", ``, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := DecodeCollection([]byte(tt.body))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(items) != tt.want {
				t.Fatalf("expected %d items, got %d", tt.want, len(items))
			}
		})
	}
}

func TestDecodeCollectionWrapperEquivalence(t *testing.T) {
	wrapped, err := DecodeCollection([]byte(`{"$values":[{"IdGroup":1,"NameGroup":"X"}]}`))
	if err != nil {
		t.Fatalf("decode wrapped: %v", err)
	}
	direct, err := DecodeCollection([]byte(`[{"IdGroup":1,"NameGroup":"X"}]`))
	if err != nil {
		t.Fatalf("decode direct: %v", err)
	}
	if len(wrapped) != 1 || len(direct) != 1 {
		t.Fatalf("expected single items, got %d and %d", len(wrapped), len(direct))
	}
	if string(wrapped[0]) != string(direct[0]) {
		t.Fatalf("wrapped item %s differs from direct item %s", wrapped[0], direct[0])
	}
}

func TestDecodeCollectionIdempotent(t *testing.T) {
	first, err := DecodeCollection([]byte(`{"data":{"$values":[{"IdRecord":7,"Stock":3},{"IdRecord":8,"Stock":0}]}}`))
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}

	// Re-encode the canonical output and feed it back through.
	canonical, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal canonical: %v", err)
	}
	second, err := DecodeCollection(canonical)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("item count changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if string(first[i]) != string(second[i]) {
			t.Fatalf("item %d changed: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestDecodeCollectionUnrecognizedShapes(t *testing.T) {
	for _, body := range []string{
		`{"records":[{"IdRecord":1}]}`,
		`"just a string"`,
		`42`,
	} {
		_, err := DecodeCollection([]byte(body))
		if !pkgerrors.IsCode(err, pkgerrors.CodeMalformed) {
			t.Fatalf("body %q: expected malformed error, got %v", body, err)
		}
	}
}

func TestDecodeCollectionInto(t *testing.T) {
	type group struct {
		IdGroup   int    `json:"IdGroup"`
		NameGroup string `json:"NameGroup"`
	}

	groups, err := DecodeCollectionInto[group]([]byte(`{"$values":[{"IdGroup":1,"NameGroup":"X"}]}`))
	if err != nil {
		t.Fatalf("decode into: %v", err)
	}
	if len(groups) != 1 || groups[0].IdGroup != 1 || groups[0].NameGroup != "X" {
		t.Fatalf("unexpected result %+v", groups)
	}

	if _, err := DecodeCollectionInto[group]([]byte(`[{"IdGroup":"not a number"}]`)); !pkgerrors.IsCode(err, pkgerrors.CodeMalformed) {
		t.Fatalf("expected malformed error for bad item, got %v", err)
	}
}
