package api

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// LooseInt decodes an integer that servers variously send as a number, a
// numeric string, or null. Unparseable values decode as absent.
type LooseInt struct {
	Value *int
}

func (l *LooseInt) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		if parsed, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			l.Value = &parsed
		}
		return nil
	}
	var f float64
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return nil
	}
	parsed := int(f)
	l.Value = &parsed
	return nil
}

// LooseDecimal decodes a decimal sent as a number or string; unparseable
// values decode as unset.
type LooseDecimal struct {
	Value decimal.Decimal
	Set   bool
}

func (l *LooseDecimal) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil
		}
		trimmed = []byte(strings.TrimSpace(s))
		if len(trimmed) == 0 {
			return nil
		}
	}
	parsed, err := decimal.NewFromString(string(trimmed))
	if err != nil {
		return nil
	}
	l.Value = parsed
	l.Set = true
	return nil
}
