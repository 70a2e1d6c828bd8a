package middleware

import (
	"fmt"
	"net/netip"
	"net/url"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities. Queries arrive from the
// UI untrusted; each is normalized before it reaches a provider or a
// cache key.

var safeHostnameRe = regexp.MustCompile(
	`^([a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)*$`)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// SanitizeHostname normalizes a hostname: strips scheme, path and
// port, lowercases, and validates against the hostname grammar.
func SanitizeHostname(value string) (string, error) {
	candidate := strings.ToLower(strings.TrimSpace(value))
	candidate = strings.TrimPrefix(candidate, "https://")
	candidate = strings.TrimPrefix(candidate, "http://")
	if i := strings.IndexByte(candidate, '/'); i >= 0 {
		candidate = candidate[:i]
	}
	if i := strings.IndexByte(candidate, ':'); i >= 0 {
		candidate = candidate[:i]
	}
	if candidate == "" || len(candidate) > 253 || !safeHostnameRe.MatchString(candidate) {
		return "", fmt.Errorf("invalid hostname: %q", value)
	}
	return candidate, nil
}

// SanitizeIP validates and normalizes an IP address.
func SanitizeIP(value string) (string, error) {
	addr, err := netip.ParseAddr(strings.TrimSpace(value))
	if err != nil {
		return "", fmt.Errorf("invalid IP address: %q", value)
	}
	return addr.String(), nil
}

// SanitizeURL validates a URL, defaulting to https when the scheme is
// missing.
func SanitizeURL(value string) (string, error) {
	candidate := strings.TrimSpace(value)
	if candidate == "" {
		return "", fmt.Errorf("invalid URL: empty")
	}
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("invalid URL: %q", value)
	}
	return u.String(), nil
}

// SanitizeEmail validates and lowercases an email address.
func SanitizeEmail(value string) (string, error) {
	candidate := strings.ToLower(strings.TrimSpace(value))
	if !emailRe.MatchString(candidate) {
		return "", fmt.Errorf("invalid email: %q", value)
	}
	return candidate, nil
}

const maxQueryLength = 2048

// ValidateQuery applies the generic limits every tool query must meet.
func ValidateQuery(query string) (string, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return "", fmt.Errorf("query is required")
	}
	if len(q) > maxQueryLength {
		return "", fmt.Errorf("query exceeds %d characters", maxQueryLength)
	}
	return q, nil
}

// SanitizeInput applies the generic limits, then the sanitizer for the
// declared input kind: "hostname", "ip", "url", "email", or "text"
// (generic only). Unknown kinds are treated as text.
func SanitizeInput(kind, value string) (string, error) {
	q, err := ValidateQuery(value)
	if err != nil {
		return "", err
	}
	switch kind {
	case "hostname":
		return SanitizeHostname(q)
	case "ip":
		return SanitizeIP(q)
	case "url":
		return SanitizeURL(q)
	case "email":
		return SanitizeEmail(q)
	}
	return q, nil
}
