package service

import (
	"fmt"
	"net/http"
)

// APIError is a failure that maps directly onto an HTTP response.
type APIError struct {
	Code        string
	Description string
	Status      int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func newAPIError(code, desc string, status int) *APIError {
	return &APIError{Code: code, Description: desc, Status: status}
}

func errValidation(desc string) *APIError {
	return newAPIError("validation_error", desc, http.StatusUnprocessableEntity)
}

func errBadRequest(desc string) *APIError {
	return newAPIError("invalid_request", desc, http.StatusBadRequest)
}

func errInternal(desc string) *APIError {
	return newAPIError("server_error", desc, http.StatusInternalServerError)
}
