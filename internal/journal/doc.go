// Package journal persists export run history in SQLite.
//
// Each run records its scope and aggregate counts, plus one row per page
// outcome so failures stay inspectable after the process exits. The runs
// command reads this history back.
package journal
