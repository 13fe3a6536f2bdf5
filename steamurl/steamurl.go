// Package steamurl validates and canonicalizes Steam storefront product URLs.
package steamurl

import (
	"regexp"
	"strings"
)

// Product pages look like https://store.steampowered.com/app/<id>/<slug>/
// where the slug and trailing slash are optional.
var productURLRegex = regexp.MustCompile(`^https?://store\.steampowered\.com/app/\d+(/[^/]*)?/?$`)

// Valid reports whether raw points at a Steam product page. Pure and
// total: any string input is accepted, surrounding whitespace is ignored.
func Valid(raw string) bool {
	return productURLRegex.MatchString(strings.TrimSpace(raw))
}

// Normalize returns the canonical form of a URL used for dedup
// comparison: trimmed, lower-cased, trailing slashes stripped. The result
// is never used for display or fetching. Idempotent over any string.
func Normalize(raw string) string {
	return strings.TrimRight(strings.ToLower(strings.TrimSpace(raw)), "/")
}
