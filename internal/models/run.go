package models

import "time"

// PipelineRun records one worker invocation and its totals
type PipelineRun struct {
	ID          string     `json:"id"`
	Mode        string     `json:"mode"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Discovered  int        `json:"discovered"`
	Processed   int        `json:"processed"`
	Loaded      int        `json:"loaded"`
	Failed      int        `json:"failed"`
	Reprocessed int        `json:"reprocessed"`
}
