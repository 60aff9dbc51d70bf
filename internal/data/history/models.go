package history

import "time"

// SchemaVersion is the newest migration this package applies.
const SchemaVersion = 2

// Run summarises one analysis run. Counts holds the reported issues per identifier.
type Run struct {
	ID         string
	ProjectKey string
	StartedAt  time.Time
	Duration   time.Duration
	Level      int
	Files      int
	Errors     int
	Warnings   int
	Ignored    int
	Baselined  int
	Counts     map[string]int
}

// Total is the number of issues the run reported.
func (r Run) Total() int { return r.Errors + r.Warnings }

// TrendPoint is the count of one identifier in one run.
type TrendPoint struct {
	RunID string
	At    time.Time
	Count int
}
