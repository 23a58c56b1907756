package model

import "time"

// RunStatus represents the current state of an exposure run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusPartial  RunStatus = "partial"
	RunStatusFailed   RunStatus = "failed"
)

// RunKind identifies which entry point a run invoked.
type RunKind string

const (
	RunKindExposed    RunKind = "exposed"
	RunKindExposedGeo RunKind = "exposed_geo"
	RunKindResiding   RunKind = "residing"
)

// RunParams captures the inputs of one invocation for later inspection.
type RunParams struct {
	HazardPath     string `json:"hazard_path,omitempty"`
	UnitPath       string `json:"unit_path,omitempty"`
	RasterPath     string `json:"raster_path"`
	ByUniqueHazard bool   `json:"by_unique_hazard,omitempty"`
}

// Run is one recorded invocation of an exposure entry point.
type Run struct {
	ID         string    `json:"id"`
	Kind       RunKind   `json:"kind"`
	Status     RunStatus `json:"status"`
	Params     RunParams `json:"params"`
	RowCount   int       `json:"row_count"`
	ErrorCount int       `json:"error_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
