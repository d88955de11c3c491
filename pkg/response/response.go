// Package response writes the JSON envelope every endpoint answers with:
//
//	{"status":"success"|"error","message":"...","data":...,"errors":...}
package response

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/mmsi/orderdesk/pkg/orm"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

func Write(w http.ResponseWriter, code int, body Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body) //nolint:errcheck
}

func Success(w http.ResponseWriter, data any) {
	Write(w, http.StatusOK, Envelope{Status: StatusSuccess, Data: data})
}

// Message sends 200 with a human message alongside optional data.
func Message(w http.ResponseWriter, msg string, data any) {
	Write(w, http.StatusOK, Envelope{Status: StatusSuccess, Message: msg, Data: data})
}

func Created(w http.ResponseWriter, msg string, data any) {
	Write(w, http.StatusCreated, Envelope{Status: StatusSuccess, Message: msg, Data: data})
}

func Error(w http.ResponseWriter, code int, message string) {
	Write(w, code, Envelope{Status: StatusError, Message: message})
}

// ValidationError sends 422 with per-field messages.
func ValidationError(w http.ResponseWriter, errs map[string]string) {
	Write(w, http.StatusUnprocessableEntity, Envelope{
		Status:  StatusError,
		Message: "Validation failed",
		Errors:  errs,
	})
}

func Paginated(w http.ResponseWriter, data any, p orm.Pagination) {
	Write(w, http.StatusOK, Envelope{Status: StatusSuccess, Data: map[string]any{
		"items":      data,
		"pagination": p,
	}})
}

func Unauthorized(w http.ResponseWriter) { Error(w, http.StatusUnauthorized, "Unauthorized") }
func Forbidden(w http.ResponseWriter)    { Error(w, http.StatusForbidden, "Forbidden") }
func NotFound(w http.ResponseWriter)     { Error(w, http.StatusNotFound, "Not found") }

// Attachment streams body as a file download.
func Attachment(w http.ResponseWriter, filename, contentType string, body io.WriterTo) error {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, err := body.WriteTo(w)
	return err
}
