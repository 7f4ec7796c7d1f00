package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	pkgerrors "github.com/recordshop/storefront/pkg/errors"
)

// Upload describes an attached file for a multipart request. The remote API
// expects photos under the "Photo" field with the original file name.
type Upload struct {
	Field    string
	FileName string
	Content  io.Reader
}

// PostMultipart submits form fields plus an optional file as multipart form
// data. The fields slice preserves submission order, which the upload
// endpoints care about for validation messages.
func (c *Client) PostMultipart(ctx context.Context, path string, fields []FormField, upload *Upload) ([]byte, error) {
	return c.sendMultipart(ctx, http.MethodPost, path, fields, upload)
}

// PutMultipart is the update-side twin of PostMultipart.
func (c *Client) PutMultipart(ctx context.Context, path string, fields []FormField, upload *Upload) ([]byte, error) {
	return c.sendMultipart(ctx, http.MethodPut, path, fields, upload)
}

// FormField is a single name/value pair in a multipart body.
type FormField struct {
	Name  string
	Value string
}

func (c *Client) sendMultipart(ctx context.Context, method, path string, fields []FormField, upload *Upload) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, field := range fields {
		if err := writer.WriteField(field.Name, field.Value); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("write form field %s", field.Name))
		}
	}

	if upload != nil && upload.Content != nil {
		field := upload.Field
		if field == "" {
			field = "Photo"
		}
		part, err := writer.CreateFormFile(field, upload.FileName)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create form file")
		}
		if _, err := io.Copy(part, upload.Content); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "copy upload content")
		}
	}

	if err := writer.Close(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "finalize multipart body")
	}

	return c.do(ctx, method, path, &buf, writer.FormDataContentType())
}
