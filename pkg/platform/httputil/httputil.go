// Package httputil holds the JSON response helpers shared by every handler.
package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	dErrors "recensement/pkg/domain-errors"
)

// MaxBodyBytes bounds request bodies read by DecodeJSON.
const MaxBodyBytes = 1 << 20

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to its status code and a stable envelope. Errors without
// a domain code are reported as internal, and internal errors never leak their
// description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}
	var de *dErrors.Error
	if code != dErrors.CodeInternal && errors.As(err, &de) {
		resp.ErrorDescription = de.Message
	}
	WriteJSON(w, dErrors.HTTPStatus(code), resp)
}

// DecodeJSON decodes the request body into dst. A missing, oversized or
// malformed body is a CodeBadRequest error.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dErrors.New(dErrors.CodeBadRequest, "request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return dErrors.New(dErrors.CodeBadRequest, "request body too large")
		}
		return dErrors.New(dErrors.CodeBadRequest, "invalid JSON body")
	}
	return nil
}
