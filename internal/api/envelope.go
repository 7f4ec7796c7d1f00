package api

import (
	"bytes"
	"encoding/json"

	pkgerrors "github.com/recordshop/storefront/pkg/errors"
)

// The remote API wraps collection payloads in several envelope shapes
// depending on the endpoint and serializer version: a bare array,
// {"$values":[...]}, {"data":[...]}, {"data":{"$values":[...]}}, or a
// singleton {"data":{...}}. DecodeCollection is the single place those
// shapes are recognized; every list-returning client goes through it.

type envelopeProbe struct {
	Values json.RawMessage `json:"$values"`
	Data   json.RawMessage `json:"data"`
}

// DecodeCollection resolves a response body to its item list. Decoding the
// canonical output of a previous pass yields the same items. An object with
// no recognized wrapper field fails with a malformed-response error, which
// read paths convert to an empty collection.
func DecodeCollection(raw []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if isEmptyBody(trimmed) {
		return nil, nil
	}

	switch trimmed[0] {
	case '[':
		return decodeArray(trimmed)
	case '{':
		var probe envelopeProbe
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeMalformed, err, "decode collection envelope")
		}
		if probe.Values != nil {
			return decodePayload(probe.Values)
		}
		if probe.Data != nil {
			return decodeData(probe.Data)
		}
		return nil, pkgerrors.New(pkgerrors.CodeMalformed, "no recognized collection wrapper")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeMalformed, "collection body is neither array nor object")
	}
}

// decodeData handles the value under a "data" key: an array, one more
// {"$values":[...]} wrapper level, or a singleton object.
func decodeData(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if isEmptyBody(trimmed) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		return decodeArray(trimmed)
	}
	if trimmed[0] == '{' {
		var probe envelopeProbe
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeMalformed, err, "decode nested collection envelope")
		}
		if probe.Values != nil {
			return decodePayload(probe.Values)
		}
		return []json.RawMessage{json.RawMessage(trimmed)}, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeMalformed, "unrecognized data payload")
}

// decodePayload handles the value under a "$values" key: an array or a
// lone object.
func decodePayload(raw json.RawMessage) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if isEmptyBody(trimmed) {
		return nil, nil
	}
	if trimmed[0] == '[' {
		return decodeArray(trimmed)
	}
	if trimmed[0] == '{' {
		return []json.RawMessage{json.RawMessage(trimmed)}, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeMalformed, "unrecognized $values payload")
}

func decodeArray(raw []byte) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeMalformed, err, "decode collection array")
	}
	return items, nil
}

func isEmptyBody(raw []byte) bool {
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// DecodeCollectionInto decodes every envelope item into a slice of T. A
// single undecodable item fails the whole call.
func DecodeCollectionInto[T any](raw []byte) ([]T, error) {
	items, err := DecodeCollection(raw)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		var value T
		if err := json.Unmarshal(item, &value); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeMalformed, err, "decode collection item")
		}
		out = append(out, value)
	}
	return out, nil
}
