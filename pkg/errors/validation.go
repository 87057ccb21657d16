package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// ValidateFeedURL checks that s can be handed to the transport.
//
// Accepted forms are absolute http(s) URLs, file:// URLs and local paths.
// Control characters and empty input are rejected.
func ValidateFeedURL(s string) error {
	if strings.TrimSpace(s) == "" {
		return New(ErrCodeInvalidURL, "feed URL cannot be empty")
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidURL, "feed URL contains control characters")
		}
	}

	u, err := url.Parse(s)
	if err != nil {
		return Wrap(ErrCodeInvalidURL, err, "malformed feed URL %q", s)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return New(ErrCodeInvalidURL, "feed URL %q has no host", s)
		}
	case "file", "":
	default:
		return New(ErrCodeInvalidURL, "unsupported scheme %q", u.Scheme)
	}
	return nil
}

// ValidateFeedName validates the name of a feed declared in a config file.
// Names are used as command-line arguments, so they may not look like URLs
// or paths.
func ValidateFeedName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "feed name cannot be empty")
	}
	if len(name) > 64 {
		return New(ErrCodeInvalidConfig, "feed name too long (max 64 characters)")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' && r != '.' {
			return New(ErrCodeInvalidConfig, "feed name %q contains invalid character %q", name, r)
		}
	}
	return nil
}
