package scrape

import (
	"fmt"
	"net/url"
	"strings"
)

// CanonicalURL turns a tile href into the stable ad identifier used as the
// reconciliation join key. The href is resolved against the base URL and
// stripped of its query string and fragment; the same ad then maps to the
// same identifier regardless of listing-page tracking parameters.
func CanonicalURL(base, href string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	h, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", fmt.Errorf("parse href: %w", err)
	}

	u := b.ResolveReference(h)
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
