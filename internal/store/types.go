package store

import "time"

// Run is one recorded check run.
type Run struct {
	ID           int64
	Root         string
	RulesHash    string
	StartedAt    time.Time
	Duration     time.Duration
	FilesScanned int
	FilesParsed  int
	MaxProblems  string
	Problems     int
}
