package fileutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SanitizeFileName returns the on-disk name a submitted file should carry.
// No rewriting rules are active yet, so names pass through unchanged.
func SanitizeFileName(name string) string {
	return name
}

// Slugify folds a human title into a lowercase ASCII slug safe for paths and
// URLs: accents are stripped, every other non-alphanumeric run becomes a
// single dash. Empty results become "untitled".
func Slugify(title string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}

// ObjectKey joins a storage prefix and a file name. An empty prefix yields
// the bare name.
func ObjectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
