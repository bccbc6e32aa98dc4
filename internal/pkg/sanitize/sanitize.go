// Package sanitize strips markup from user supplied text before it is stored.
// Page names, component descriptions and incident messages are echoed on the
// public page and in notification emails, so they are kept as plain text.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// maxPasses bounds the strip/decode loop for nested entity encodings.
const maxPasses = 8

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text removes all HTML elements from s and trims surrounding whitespace.
// Entities are decoded so that plain text like "R&D" survives unchanged, and
// the result is stripped again until decoding no longer reveals markup.
// Input that does not settle within maxPasses is returned entity-escaped.
func Text(s string) string {
	if s == "" {
		return ""
	}

	p := getPolicy()
	out := s
	for range maxPasses {
		next := html.UnescapeString(p.Sanitize(out))
		if next == out {
			return strings.TrimSpace(out)
		}
		out = next
	}
	return strings.TrimSpace(p.Sanitize(out))
}
