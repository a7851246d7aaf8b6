package journal

import "time"

// PageStatus is the terminal state of one page within a run.
type PageStatus string

const (
	PageSucceeded PageStatus = "succeeded"
	PageFailed    PageStatus = "failed"
)

// Run is one export invocation.
type Run struct {
	ID         string
	Notebook   string
	Section    string
	OutputDir  string
	StartedAt  time.Time
	FinishedAt *time.Time
	Total      int
	Succeeded  int
	Failed     int
}

// PageRecord is the outcome of one page in a run.
type PageRecord struct {
	RunID       string
	PageID      string
	Title       string
	Filename    string
	Status      PageStatus
	Error       string
	CompletedAt time.Time
}
