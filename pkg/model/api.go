package model

import "time"

// Response is the standard API response envelope.
type Response struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Error     *APIError `json:"error"`
}

// SubmitRequest is the body of POST /api/v1/jobs.
type SubmitRequest struct {
	Link string `json:"link"`
	Name string `json:"name,omitempty"`
}

// SubmitResponse acknowledges a submission. The outcome arrives later as a
// notification on the active window.
type SubmitResponse struct {
	Key string `json:"key"`
}
