package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	// CodeNetwork covers transport and connectivity failures. Never retried
	// automatically; the user re-triggers the action.
	CodeNetwork    Code = "NETWORK_ERROR"
	CodeValidation Code = "VALIDATION_ERROR"
	// CodeMalformed marks a response whose shape was not recognized. Read
	// paths log it and fall back to an empty collection.
	CodeMalformed Code = "MALFORMED_RESPONSE"
	CodeAuth      Code = "AUTH_ERROR"
	CodeServer    Code = "SERVER_ERROR"
	CodeInternal  Code = "INTERNAL_ERROR"
)

type Metadata struct {
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeNetwork: {
		Retryable:      true,
		PublicMessage:  "connection failed",
		DetailsAllowed: false,
	},
	CodeValidation: {
		Retryable:      false,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeMalformed: {
		Retryable:      false,
		PublicMessage:  "unexpected response from server",
		DetailsAllowed: true,
	},
	CodeAuth: {
		Retryable:      false,
		PublicMessage:  "authentication required",
		DetailsAllowed: false,
	},
	CodeServer: {
		Retryable:      true,
		PublicMessage:  "server error",
		DetailsAllowed: false,
	},
	CodeInternal: {
		Retryable:      false,
		PublicMessage:  "internal error",
		DetailsAllowed: false,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// FromStatus maps an HTTP response status to the client-side error taxonomy.
// The server message, when present, travels in the error details.
func FromStatus(status int) Code {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return CodeAuth
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return CodeValidation
	default:
		if status >= 500 {
			return CodeServer
		}
		if status >= 400 {
			return CodeValidation
		}
		return CodeInternal
	}
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
