// Package links maps remote page identifiers to destination filenames.
//
// The walker registers every discovered page before it is dispatched for
// conversion; converter workers only read. The map is still guarded because
// dispatch of an earlier section may overlap registration of a later one.
package links

import (
	"strings"
	"sync"
)

// Resolver is the shared page-id to filename table.
type Resolver struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewResolver returns an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{entries: make(map[string]string)}
}

// Register records the destination filename for a page id. Later
// registrations for the same id win; the walker never produces duplicates.
func (r *Resolver) Register(pageID, filename string) {
	pageID = CanonicalID(pageID)
	if pageID == "" {
		return
	}
	r.mu.Lock()
	r.entries[pageID] = filename
	r.mu.Unlock()
}

// Resolve returns the destination filename for a page id. The second return
// value is false when the page lies outside the exported scope.
func (r *Resolver) Resolve(pageID string) (string, bool) {
	r.mu.RLock()
	filename, ok := r.entries[CanonicalID(pageID)]
	r.mu.RUnlock()
	return filename, ok
}

// CanonicalID normalizes the page id forms seen across the API. Client
// URLs carry brace-wrapped GUIDs while API payloads use bare ids, and
// casing differs between the two.
func CanonicalID(pageID string) string {
	pageID = strings.TrimSpace(pageID)
	pageID = strings.Trim(pageID, "{}")
	return strings.ToLower(pageID)
}

// Len reports how many pages are registered.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
