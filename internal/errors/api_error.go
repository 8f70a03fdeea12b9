// Package errors defines the error shape the control API returns.
package errors

import "net/http"

const (
	CodeInternal          = "internal_error"
	CodeUnauthorized      = "unauthorized"
	CodeInvalidJSON       = "invalid_json"
	CodeInvalidTransition = "invalid_transition"
)

// APIError carries an HTTP status and a stable code from services to the
// HTTP layer. Cause is kept for logs and errors.Is, never sent to clients.
type APIError struct {
	Status  int         `json:"-"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Cause   error       `json:"-"`
}

func (e *APIError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Cause
}

// Envelope is the response body: {"error": {"code", "message", "details"?}}.
func (e *APIError) Envelope() map[string]interface{} {
	body := map[string]interface{}{
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Details != nil {
		body["details"] = e.Details
	}
	return map[string]interface{}{"error": body}
}

func New(status int, code, message string) *APIError {
	return &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// Internal hides cause from the client behind message.
func Internal(message string, cause error) *APIError {
	if message == "" {
		message = "internal server error"
	}
	err := New(http.StatusInternalServerError, CodeInternal, message)
	err.Cause = cause
	return err
}

func BadRequest(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

func InvalidJSON() *APIError {
	return BadRequest(CodeInvalidJSON, "invalid request body")
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "unauthorized"
	}
	return New(http.StatusUnauthorized, CodeUnauthorized, message)
}

// InvalidTransition reports a pomodoro action that the current phase does not
// allow. state is the engine state the client should resync to.
func InvalidTransition(cause error, state interface{}) *APIError {
	err := New(http.StatusConflict, CodeInvalidTransition, cause.Error())
	err.Cause = cause
	err.Details = map[string]interface{}{"state": state}
	return err
}
