package model

import "time"

// Link represents a registered short link
type Link struct {
	ID          int64      `json:"id"`
	Code        string     `json:"code"`
	URL         string     `json:"url"`
	Clicks      int64      `json:"clicks"`
	CreatedAt   time.Time  `json:"created_at"`
	LastClicked *time.Time `json:"last_clicked"`
}

// CreateLinkRequest represents the request body for registering a link.
// Code is optional; when empty the service generates one.
type CreateLinkRequest struct {
	URL  string `json:"url" binding:"required"`
	Code string `json:"code,omitempty"`
}

// DeleteLinkResponse acknowledges a successful deletion
type DeleteLinkResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
