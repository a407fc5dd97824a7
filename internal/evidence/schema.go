package evidence

import (
	"github.com/specgate/specgate/internal/consolidate"
	"github.com/specgate/specgate/internal/intent"
	"github.com/specgate/specgate/internal/rules"
)

// #region enums

// Version is the evidence schema version this package writes. Readers stay
// backward-compatible with documents that predate optional fields.
const Version = "2.1"

// Stage names the pipeline stage a snapshot was taken at.
type Stage string

const (
	StagePreWrite  Stage = "PRE_WRITE"
	StagePreCommit Stage = "PRE_COMMIT"
	StagePrePush   Stage = "PRE_PUSH"
	StageCI        Stage = "CI"
)

// Outcome is the gate verdict recorded in a snapshot.
type Outcome string

const (
	OutcomePass  Outcome = "PASS"
	OutcomeWarn  Outcome = "WARN"
	OutcomeBlock Outcome = "BLOCK"
)

// GateStatus is the two-valued status mirrored into ai_gate and
// severity_metrics.
type GateStatus string

const (
	StatusAllowed GateStatus = "ALLOWED"
	StatusBlocked GateStatus = "BLOCKED"
)

// #endregion enums

// #region document

// SnapshotFinding is a surviving finding as persisted in the snapshot.
type SnapshotFinding struct {
	RuleID   string         `json:"ruleId"`
	Severity rules.Severity `json:"severity"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	File     string         `json:"file"`
	Lines    []int          `json:"lines,omitempty"`
}

// Snapshot is the set of surviving findings for one stage at one instant.
type Snapshot struct {
	Stage    Stage             `json:"stage"`
	Outcome  Outcome           `json:"outcome"`
	Findings []SnapshotFinding `json:"findings"`
}

// LedgerEntry tracks when a finding was first and last seen across runs.
type LedgerEntry struct {
	RuleID    string `json:"ruleId"`
	File      string `json:"file"`
	Lines     []int  `json:"lines,omitempty"`
	FirstSeen string `json:"firstSeen"`
	LastSeen  string `json:"lastSeen"`
}

// PlatformState records platform detection output, passed through unchanged.
type PlatformState struct {
	Detected   bool   `json:"detected"`
	Confidence string `json:"confidence"`
}

// RulesetState identifies one loaded rule bundle.
type RulesetState struct {
	Platform string `json:"platform"`
	Bundle   string `json:"bundle"`
	Hash     string `json:"hash"`
}

// Violation is a surviving finding in ai_gate shape.
type Violation struct {
	RuleID  string         `json:"ruleId"`
	Level   rules.Severity `json:"level"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	File    string         `json:"file"`
	Lines   []int          `json:"lines,omitempty"`
}

// AiGate mirrors the gate verdict for downstream agents. HumanIntent is
// always identical to the document-level human_intent.
type AiGate struct {
	Status      GateStatus    `json:"status"`
	Violations  []Violation   `json:"violations"`
	HumanIntent *intent.State `json:"human_intent"`
}

// BySeverity counts surviving findings per severity level.
type BySeverity struct {
	Info     int `json:"INFO"`
	Warn     int `json:"WARN"`
	Error    int `json:"ERROR"`
	Critical int `json:"CRITICAL"`
}

// SeverityMetrics summarizes the snapshot for dashboards.
type SeverityMetrics struct {
	GateStatus      GateStatus `json:"gate_status"`
	TotalViolations int        `json:"total_violations"`
	BySeverity      BySeverity `json:"by_severity"`
}

// Consolidation is present only when consolidation suppressed something.
type Consolidation struct {
	Suppressed []consolidate.SuppressedEntry `json:"suppressed"`
}

// Document is one versioned evidence snapshot. It is rebuilt from scratch
// every run; the previous run's document is its only carried state.
type Document struct {
	Version         string                   `json:"version"`
	Timestamp       string                   `json:"timestamp"`
	Snapshot        Snapshot                 `json:"snapshot"`
	Ledger          []LedgerEntry            `json:"ledger"`
	Platforms       map[string]PlatformState `json:"platforms"`
	Rulesets        []RulesetState           `json:"rulesets"`
	HumanIntent     *intent.State            `json:"human_intent"`
	AiGate          AiGate                   `json:"ai_gate"`
	SeverityMetrics SeverityMetrics          `json:"severity_metrics"`
	Consolidation   *Consolidation           `json:"consolidation,omitempty"`
}

// #endregion document
