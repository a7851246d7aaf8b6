// Package pipeline runs the export: a bounded worker pool consuming page
// items from the walker, fetching content, converting it, and writing
// markdown and attachments to the output directory.
//
// The walker is the sole producer and blocks once the task queue fills,
// so a fast enumeration cannot buffer unbounded work. Page failures are
// terminal for that page only; the run aborts early only when enumeration
// itself fails or the context is cancelled.
package pipeline
