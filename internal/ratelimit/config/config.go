// Package config holds the per-class rate limit table.
package config

import (
	"time"

	"huanbo/internal/ratelimit/models"
)

// Limit is a sliding window allowance.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
	// Message is the localized body sent with a 429.
	Message string
}

// Config maps endpoint classes to per-IP limits.
type Config struct {
	IPLimits map[models.EndpointClass]Limit
}

// DefaultConfig returns the production limits.
func DefaultConfig() *Config {
	return &Config{
		IPLimits: map[models.EndpointClass]Limit{
			models.ClassGlobal: {
				RequestsPerWindow: 100,
				Window:            15 * time.Minute,
				Message:           "请求过于频繁，请稍后再试",
			},
			models.ClassContact: {
				RequestsPerWindow: 5,
				Window:            time.Hour,
				Message:           "表单提交过于频繁，请1小时后再试",
			},
		},
	}
}

// GetIPLimit returns the limit for class, if configured.
func (c *Config) GetIPLimit(class models.EndpointClass) (Limit, bool) {
	l, ok := c.IPLimits[class]
	return l, ok
}
