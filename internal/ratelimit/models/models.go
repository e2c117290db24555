package models

import (
	"time"
)

// EndpointClass categorizes endpoints for differentiated rate limiting.
type EndpointClass string

const (
	// ClassGlobal applies to API, health and metrics requests (100 req / 15 min per IP).
	ClassGlobal EndpointClass = "global"
	// ClassContact applies to contact form submissions (5 req / hour per IP).
	ClassContact EndpointClass = "contact"
)

// IsValid checks if the endpoint class is one of the supported enum values.
func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassGlobal, ClassContact:
		return true
	}
	return false
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// RateLimitExceededResponse is the 429 body. The field name matches what the
// landing page script reads.
type RateLimitExceededResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retryAfter"`
}
