// Package services provides shared error classification and context
// annotation helpers used across the export pipeline.
//
// Errors produced by the Graph client, converter, and attachment writer are
// tagged with one of the exported sentinel errors so the orchestrator can
// decide between retrying, failing a single page, or aborting the run.
// Context annotations carry run, page, and stage identifiers into
// structured logs.
package services
