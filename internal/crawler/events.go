package crawler

import "time"

// RunEvent summarizes a finished planner run for downstream consumers.
type RunEvent struct {
	RunID           string     `json:"run_id"`
	Source          DataSource `json:"source,omitempty"`
	Strategy        string     `json:"strategy,omitempty"`
	Address         string     `json:"address,omitempty"`
	Records         int        `json:"records"`
	Persisted       int        `json:"persisted"`
	StrategiesTried int        `json:"strategies_tried"`
	AddressesTried  int        `json:"addresses_tried"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      time.Time  `json:"finished_at"`
}
