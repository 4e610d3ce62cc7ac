package models

// APIResponse is the envelope every content API response uses. The boolean
// status is independent of the HTTP status code.
type APIResponse[T any] struct {
	Status  *bool  `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// OK reports application-level success. A response without a status flag is
// judged by its HTTP status alone.
func (r *APIResponse[T]) OK() bool {
	return r.Status == nil || *r.Status
}
