package client

import (
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/noah-isme/ndvi-gateway/internal/validation"
	appErrors "github.com/noah-isme/ndvi-gateway/pkg/errors"
)

const maxJSONBody = 8 << 20

// decodeJSON reads a JSON body into T and closes it. Syntax errors, shape
// mismatches and trailing garbage are all reported as malformed responses.
func decodeJSON[T any](resp *http.Response, op string) (T, error) {
	var out T
	defer drain(resp.Body)
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxJSONBody))
	if err := dec.Decode(&out); err != nil {
		return out, malformed(op, err)
	}
	if dec.More() {
		return out, malformed(op, fmt.Errorf("trailing data after JSON document"))
	}
	return out, nil
}

// decodeValidated decodes and then runs struct validation on the result.
func decodeValidated[T any](resp *http.Response, op string) (*T, error) {
	out, err := decodeJSON[T](resp, op)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(&out); err != nil {
		return nil, malformed(op, err)
	}
	return &out, nil
}

func malformed(op string, err error) *appErrors.Error {
	return appErrors.Wrap(fmt.Errorf("%s: %w", op, err), appErrors.CodeMalformedResponse,
		appErrors.ErrMalformedResponse.Status, appErrors.ErrMalformedResponse.Message)
}

var errNullDocument = fmt.Errorf("null document")
