// Package auth obtains and caches Microsoft identity platform tokens.
//
// The Manager satisfies the graph.TokenProvider contract: it serves cached
// access tokens, refreshes them silently when expired, and reports
// services.ErrAuthExpired when only a new interactive login can help. The
// interactive flow runs a loopback redirect listener and exchanges the
// authorization code at the token endpoint. Tokens persist across runs in
// a mode 0600 JSON file.
package auth
