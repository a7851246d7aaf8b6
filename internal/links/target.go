package links

import (
	"regexp"
	"strings"
)

var (
	clientPageID = regexp.MustCompile(`page-id=(\{[0-9A-Fa-f-]+\}|[0-9A-Fa-f-]+)`)
	apiPagePath  = regexp.MustCompile(`/onenote/pages/([^/?#]+)|/notes/pages/([^/?#]+)`)
)

// PageID extracts a page identifier from a link target. It recognizes the
// onenote: client protocol (page-id fragment parameter) and API page URLs.
// The second return value is false for ordinary external links.
func PageID(href string) (string, bool) {
	if href == "" {
		return "", false
	}
	if strings.HasPrefix(href, "onenote:") {
		if m := clientPageID.FindStringSubmatch(href); m != nil {
			return CanonicalID(m[1]), true
		}
		return "", false
	}
	if m := apiPagePath.FindStringSubmatch(href); m != nil {
		for _, group := range m[1:] {
			if group != "" {
				return CanonicalID(group), true
			}
		}
	}
	return "", false
}
