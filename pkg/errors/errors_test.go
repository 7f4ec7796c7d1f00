package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeNetwork, publicMsg: "connection failed", retryable: true},
		{code: CodeValidation, publicMsg: "validation failed", detailsOK: true},
		{code: CodeMalformed, publicMsg: "unexpected response from server", detailsOK: true},
		{code: CodeAuth, publicMsg: "authentication required"},
		{code: CodeServer, publicMsg: "server error", retryable: true},
		{code: CodeInternal, publicMsg: "internal error"},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.PublicMessage != "internal error" {
		t.Fatalf("expected internal metadata, got %q", meta.PublicMessage)
	}
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		code   Code
	}{
		{http.StatusUnauthorized, CodeAuth},
		{http.StatusForbidden, CodeAuth},
		{http.StatusBadRequest, CodeValidation},
		{http.StatusConflict, CodeValidation},
		{http.StatusUnprocessableEntity, CodeValidation},
		{http.StatusNotFound, CodeValidation},
		{http.StatusInternalServerError, CodeServer},
		{http.StatusBadGateway, CodeServer},
		{http.StatusOK, CodeInternal},
	}
	for _, tt := range tests {
		if got := FromStatus(tt.status); got != tt.code {
			t.Fatalf("status %d expected %s got %s", tt.status, tt.code, got)
		}
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing amount")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing amount" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detailed := base.WithDetails(map[string]string{"amount": "is required"})
	if detailed.Details() == nil {
		t.Fatalf("expected details to be set")
	}

	cause := stdErrors.New("connection refused")
	wrapped := Wrap(CodeNetwork, cause, "cart add failed")
	if wrapped.Unwrap() != cause {
		t.Fatalf("expected wrapped cause")
	}
	if wrapped.Error() != "NETWORK_ERROR: cart add failed" {
		t.Fatalf("unexpected error string %q", wrapped.Error())
	}
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("errors.Is should find the cause")
	}
}

func TestWrapNilCause(t *testing.T) {
	wrapped := Wrap(CodeServer, nil, "order create failed")
	if wrapped.Unwrap() != nil {
		t.Fatalf("expected nil cause")
	}
	if wrapped.Code() != CodeServer {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsAndIsCode(t *testing.T) {
	if As(nil) != nil {
		t.Fatalf("As(nil) should be nil")
	}
	if As(stdErrors.New("plain")) != nil {
		t.Fatalf("plain error should not convert")
	}

	err := New(CodeAuth, "token expired")
	if As(err) == nil {
		t.Fatalf("typed error should convert")
	}
	if !IsCode(err, CodeAuth) {
		t.Fatalf("IsCode should match")
	}
	if IsCode(err, CodeNetwork) {
		t.Fatalf("IsCode should not match a different code")
	}
}
