package util

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// maxNameRunes bounds the sanitized part of a storage name.
const maxNameRunes = 120

// fallbackName replaces names that sanitize to nothing usable.
const fallbackName = "document"

// HashUserKey returns a filesystem-safe prefix for a user ID so raw ids never
// appear in storage paths.
func HashUserKey(userID string) string {
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])
}

// SanitizeFileName turns a client-supplied name into a single path segment.
// Separators become underscores, control characters are dropped and long
// names are shortened with the extension kept. Names that reduce to nothing,
// "." or ".." become fallbackName.
func SanitizeFileName(name string) string {
	name = strings.ToValidUTF8(name, "")
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('_')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	s := strings.TrimSpace(b.String())
	if s == "" || s == "." || s == ".." {
		return fallbackName
	}
	return shorten(s, maxNameRunes)
}

func shorten(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	ext := path.Ext(s)
	if utf8.RuneCountInString(ext) >= max {
		ext = ""
	}
	stem := []rune(strings.TrimSuffix(s, ext))
	return string(stem[:max-utf8.RuneCountInString(ext)]) + ext
}

// UniqueName prefixes a sanitized file name with a nanosecond timestamp and a
// random suffix so concurrent uploads never share a name.
func UniqueName(fileName string, now time.Time) string {
	return fmt.Sprintf("%d-%s-%s", now.UTC().UnixNano(), randomHex(6), SanitizeFileName(fileName))
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
