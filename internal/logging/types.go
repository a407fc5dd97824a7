package logging

import "time"

// #region decision-entry

// DecisionEntry is a single row in the decision_log table. One row is
// written per gate run or policy evaluation.
type DecisionEntry struct {
	RunID      string
	Pipeline   string // "gate" | "sdd"
	Stage      string
	Outcome    string // gate: "PASS" | "WARN" | "BLOCK"; sdd: decision code
	Reason     string
	DetailJSON string
	CreatedAt  time.Time
}

// #endregion decision-entry

// #region run-record

// RunRecord captures the complete inputs and outputs of one gate run.
// Serialized as JSON into decision_log.detail_json for deterministic replay.
type RunRecord struct {
	RunID string `json:"run_id"`
	Stage string `json:"stage"`

	// Counts as tallied at run time
	FactCount    int `json:"fact_count"`
	FindingCount int `json:"finding_count"`
	Suppressed   int `json:"suppressed"`

	// Severity tallies after consolidation
	Critical int `json:"critical"`
	Error    int `json:"error"`
	Warn     int `json:"warn"`
	Info     int `json:"info"`

	// Run output
	Outcome   string `json:"outcome"`
	GateState string `json:"gate_state"`
}

// #endregion run-record
