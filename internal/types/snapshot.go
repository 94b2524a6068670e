package types

// Snapshot is a point-in-time view of the sequencer for status surfaces.
type Snapshot struct {
	State    ShowState `json:"state"`
	Message  string    `json:"message"`
	Ready    bool      `json:"ready"`
	Enabled  bool      `json:"enabled"`
	Testing  bool      `json:"testing"`
	Airborne bool      `json:"airborne"`

	// StartTime is 0 when no show is scheduled
	StartTime uint64 `json:"start_time"`
	// SecondsSinceStart is omitted when no show is scheduled
	SecondsSinceStart *float64 `json:"seconds_since_start,omitempty"`
	TakeoffTime       float64  `json:"takeoff_time"`
	LandingHeight     float64  `json:"landing_height"`

	Preflight Verdict  `json:"preflight"`
	Color     LedColor `json:"color"`
	Timestamp uint64   `json:"timestamp"`
}
