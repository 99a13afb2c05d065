// Package api contains the HTTP handlers and route registration for the
// viewer-facing query endpoints.
package api

// ErrorResponse is the common error envelope for all endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
