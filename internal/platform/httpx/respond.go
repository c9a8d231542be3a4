// Package httpx provides HTTP response utilities built around a uniform
// JSON envelope.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"data"`
	StatusCode int    `json:"status_code"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Respond sends data wrapped in an Envelope.
func Respond(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Envelope{Message: message, Data: data, StatusCode: status})
}

// Fail sends an Envelope carrying an error description and no data.
func Fail(w http.ResponseWriter, status int, message, detail string) {
	JSON(w, status, Envelope{Error: detail, Message: message, StatusCode: status})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(target)
}
