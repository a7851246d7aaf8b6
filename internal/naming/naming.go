// Package naming produces destination filenames for exported pages.
//
// A page maps to "<sanitized title>-<short id>.md". The short id is derived
// from the immutable remote page id, so two pages with the same title never
// collide and re-running an export yields identical names.
package naming

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxTitleLength = 80

// PageFilename returns the markdown filename for a page.
func PageFilename(title, pageID string) string {
	return fmt.Sprintf("%s-%s.md", SanitizeTitle(title), ShortID(pageID))
}

// PageStem returns the filename without the .md extension.
func PageStem(filename string) string {
	return strings.TrimSuffix(filename, ".md")
}

// AttachmentDir returns the attachment directory name for a page filename.
func AttachmentDir(pageFilename string) string {
	return PageStem(pageFilename) + "_attachments"
}

// ShortID derives a stable eight-character identifier from a remote page id.
func ShortID(pageID string) string {
	h := fnv.New32a()
	h.Write([]byte(pageID))
	return fmt.Sprintf("%08x", h.Sum32())
}

// SanitizeTitle converts a page title into a filesystem-safe stem:
// NFC-normalized, path separators and reserved characters replaced,
// whitespace runs collapsed to single hyphens, length-capped.
func SanitizeTitle(title string) string {
	title = norm.NFC.String(strings.TrimSpace(title))

	var b strings.Builder
	b.Grow(len(title))
	lastHyphen := false
	for _, r := range title {
		switch {
		case unicode.IsControl(r):
			continue
		case unicode.IsSpace(r) || strings.ContainsRune(`/\:*?"<>|`, r):
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		default:
			b.WriteRune(r)
			lastHyphen = false
		}
	}

	sanitized := strings.Trim(b.String(), "-.")
	if len(sanitized) > maxTitleLength {
		sanitized = strings.Trim(sanitized[:maxTitleLength], "-.")
	}
	if sanitized == "" {
		return "untitled"
	}
	return sanitized
}
