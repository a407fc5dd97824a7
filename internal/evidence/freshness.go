package evidence

import (
	"fmt"
	"time"
)

// #region config

// DefaultMaxAgeSeconds is how stale a prior evidence document may be per
// stage before a rerun is required. Early stages tolerate less drift.
var DefaultMaxAgeSeconds = map[Stage]int{
	StagePreWrite:  300,
	StagePreCommit: 900,
	StagePrePush:   1800,
	StageCI:        7200,
}

// FreshnessViolation is one reason the prior evidence cannot be trusted.
type FreshnessViolation struct {
	Code    string
	Message string
}

// FreshnessReport is the outcome of checking a prior document against a
// stage's staleness budget. AgeSeconds is nil when no timestamp could be
// read.
type FreshnessReport struct {
	Violations    []FreshnessViolation
	AgeSeconds    *int
	MaxAgeSeconds int
}

// #endregion config

// #region check

// CheckFreshness validates the prior evidence document for a stage: it must
// exist, parse, carry a readable timestamp, be within the stage's age
// budget, and not carry a BLOCKED verdict forward.
func CheckFreshness(now time.Time, stage Stage, result ReadResult, maxAgeSeconds map[Stage]int) FreshnessReport {
	if maxAgeSeconds == nil {
		maxAgeSeconds = DefaultMaxAgeSeconds
	}
	report := FreshnessReport{MaxAgeSeconds: maxAgeSeconds[stage]}

	switch result.Kind {
	case ReadMissing:
		report.Violations = append(report.Violations, FreshnessViolation{
			Code:    "EVIDENCE_MISSING",
			Message: FileName + " is missing.",
		})
		return report
	case ReadInvalid:
		message := FileName + " is invalid."
		if result.Version != "" {
			message = fmt.Sprintf("%s is invalid (version=%s).", FileName, result.Version)
		}
		report.Violations = append(report.Violations, FreshnessViolation{
			Code:    "EVIDENCE_INVALID",
			Message: message,
		})
		return report
	}

	parsed, err := time.Parse(time.RFC3339, result.Document.Timestamp)
	if err != nil {
		report.Violations = append(report.Violations, FreshnessViolation{
			Code:    "EVIDENCE_TIMESTAMP_INVALID",
			Message: "Evidence timestamp is invalid.",
		})
		return report
	}

	age := int(now.Sub(parsed).Seconds())
	if age < 0 {
		age = 0
	}
	report.AgeSeconds = &age

	if age > report.MaxAgeSeconds {
		report.Violations = append(report.Violations, FreshnessViolation{
			Code:    "EVIDENCE_STALE",
			Message: fmt.Sprintf("Evidence is stale (%ds > %ds for %s).", age, report.MaxAgeSeconds, stage),
		})
	}
	if result.Document.AiGate.Status == StatusBlocked {
		report.Violations = append(report.Violations, FreshnessViolation{
			Code:    "EVIDENCE_GATE_BLOCKED",
			Message: "Evidence AI gate status is BLOCKED.",
		})
	}
	return report
}

// #endregion check
