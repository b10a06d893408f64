package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// Envelope is the success body every operation returns.
type Envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// EnvelopeTransformer wraps successful response bodies in an Envelope.
// Errors already carry their own shape and pass through.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if _, ok := v.(*APIError); ok {
		return v, nil
	}
	if _, ok := v.(Envelope); ok {
		return v, nil
	}
	if !strings.HasPrefix(status, "2") {
		return v, nil
	}
	return Envelope{Success: true, Data: v}, nil
}
