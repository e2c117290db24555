package models

import "strings"

// KeyPrefix namespaces rate limit keys by identifier type.
type KeyPrefix string

const KeyPrefixIP KeyPrefix = "ip"

// RateLimitKey identifies one sliding window bucket.
type RateLimitKey struct {
	prefix     KeyPrefix
	identifier string
	class      EndpointClass
}

// NewRateLimitKey builds a key with a sanitized identifier.
func NewRateLimitKey(prefix KeyPrefix, identifier string, class EndpointClass) RateLimitKey {
	return RateLimitKey{prefix: prefix, identifier: SanitizeKeySegment(identifier), class: class}
}

// String renders the key as "ratelimit:<prefix>:<identifier>:<class>".
func (k RateLimitKey) String() string {
	return "ratelimit:" + string(k.prefix) + ":" + k.identifier + ":" + string(k.class)
}

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// so an identifier containing ':' (IPv6 addresses, forged headers) cannot
// spill into adjacent segments.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
