package models

import (
	"regexp"
	"strconv"
	"sync"
	"time"
)

// Submission is one accepted contact-form entry. Submissions are immutable
// once stored.
type Submission struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Name        string    `json:"name"`
	Contact     string    `json:"contact"`
	Company     string    `json:"company"`
	ServiceType string    `json:"serviceType"`
	CargoType   string    `json:"cargoType"`
	Destination string    `json:"destination"`
	Message     string    `json:"message"`
	IP          string    `json:"ip"`
	UserAgent   string    `json:"userAgent"`
}

// ContactForm holds the raw fields posted by the landing page.
type ContactForm struct {
	Name        string `json:"name"`
	Contact     string `json:"contact"`
	Company     string `json:"company"`
	ServiceType string `json:"service-type"`
	CargoType   string `json:"cargo-type"`
	Destination string `json:"destination"`
	Message     string `json:"message"`
}

// ServiceTypes are the accepted serviceType values, in display order.
var ServiceTypes = []string{"海运", "空运", "陆运", "清关", "仓储", "综合", "其他"}

// UnselectedServiceType labels submissions without a service type.
const UnselectedServiceType = "未选择"

// IsServiceType reports whether s is one of ServiceTypes.
func IsServiceType(s string) bool {
	for _, t := range ServiceTypes {
		if t == s {
			return true
		}
	}
	return false
}

var (
	// Any Unicode space, not only ASCII \s, disqualifies an address.
	emailPattern = regexp.MustCompile(`^[^@\s\x0B\p{Zs}\x{FEFF}\x{2028}\x{2029}]+@[^@\s\x0B\p{Zs}\x{FEFF}\x{2028}\x{2029}]+\.[^@\s\x0B\p{Zs}\x{FEFF}\x{2028}\x{2029}]+$`)
	phonePattern = regexp.MustCompile(`^1[3-9]\d{9}$`)
)

// IsEmail reports whether contact looks like an email address.
func IsEmail(contact string) bool {
	return emailPattern.MatchString(contact)
}

// IsMobile reports whether contact is a mainland China mobile number.
func IsMobile(contact string) bool {
	return phonePattern.MatchString(contact)
}

// Stats aggregates stored submissions for the admin view.
type Stats struct {
	Total        int            `json:"total"`
	Today        int            `json:"today"`
	ThisWeek     int            `json:"thisWeek"`
	ServiceTypes map[string]int `json:"serviceTypes"`
}

// IDGenerator issues time-derived ids: decimal Unix milliseconds, bumped by
// one when the clock has not advanced past the previous id.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
}

// Next returns the id for a submission created at t.
func (g *IDGenerator) Next(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	ms := t.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}
