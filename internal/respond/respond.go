// Package respond writes the JSON envelope shared by every endpoint.
package respond

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response shape. Success responses carry Data;
// failures carry Error. RequestID is echoed on both for correlation.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorBody  `json:"error,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
}

// ErrorBody is the machine-readable failure detail.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// JSON writes a success envelope.
func JSON(w http.ResponseWriter, status int, requestID string, data interface{}) {
	write(w, status, Envelope{Success: true, Data: data, RequestID: requestID})
}

// Error writes a failure envelope.
func Error(w http.ResponseWriter, status int, requestID, code, message string) {
	write(w, status, Envelope{
		Success:   false,
		Error:     &ErrorBody{Code: code, Message: message},
		RequestID: requestID,
	})
}

// ErrorDetails writes a failure envelope with structured details, used
// for validation failures.
func ErrorDetails(w http.ResponseWriter, status int, requestID, code, message string, details interface{}) {
	write(w, status, Envelope{
		Success:   false,
		Error:     &ErrorBody{Code: code, Message: message, Details: details},
		RequestID: requestID,
	})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
