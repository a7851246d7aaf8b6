// Package graph is the Microsoft Graph OneNote API client.
//
// The client follows pagination cursors, refreshes nothing itself (tokens
// come from an injected TokenProvider), and absorbs rate limiting and
// transient failures with bounded retries. Errors carry the markers from
// the services package so callers can classify them without inspecting
// HTTP status codes.
package graph
