package util

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// Slugify lowercases s and joins its letter/digit runs with hyphens.
// "Air Jordan 1 (Retro)" becomes "air-jordan-1-retro".
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// UniqueSlug appends a short random suffix so titles that slugify to the
// same value still get distinct slugs.
func UniqueSlug(title string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	base := Slugify(title)
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}
