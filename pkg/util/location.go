package util

import (
	"net/url"
	"strings"
)

// BuildDisplayLocation joins non-empty, trimmed parts into a single display
// string, e.g. "12 Main St, Brownsburg, IN, 46112".
func BuildDisplayLocation(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return "Unknown location"
	}
	return strings.Join(cleaned, ", ")
}

// GoogleMapsURL builds a maps search link for the given address parts.
func GoogleMapsURL(address, city, state, zipCode string) string {
	full := BuildDisplayLocation(address, city, state, zipCode)
	return "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(full)
}

// EmailDomain extracts the lowercased domain of an email address, with any
// leading "www." stripped so it compares cleanly against website domains.
// Returns "" for anything that does not look like an address.
func EmailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(email[at+1:]), "www.")
}
