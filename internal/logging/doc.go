// Package logging builds the slog loggers used across notedump.
//
// It supports a human-oriented console format and a JSON format, multiple
// output destinations, typed attribute helpers, and context-derived fields
// so every log line produced by a pipeline worker carries the run, page,
// and stage identifiers it belongs to.
package logging
