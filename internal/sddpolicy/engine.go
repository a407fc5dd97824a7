package sddpolicy

import (
	"fmt"
	"os"
	"time"

	"github.com/specgate/specgate/internal/session"
)

// #region stages-codes

// Stage is an independent policy entry point; every call re-evaluates from
// scratch, there are no transitions between stages.
type Stage string

const (
	StagePreWrite  Stage = "PRE_WRITE"
	StagePreCommit Stage = "PRE_COMMIT"
	StagePrePush   Stage = "PRE_PUSH"
	StageCI        Stage = "CI"
)

// Code is the machine-stable decision outcome.
type Code string

const (
	CodeAllowed            Code = "ALLOWED"
	CodeToolMissing        Code = "OPENSPEC_MISSING"
	CodeVersionUnsupported Code = "OPENSPEC_VERSION_UNSUPPORTED"
	CodeProjectMissing     Code = "OPENSPEC_PROJECT_MISSING"
	CodeSessionMissing     Code = "SDD_SESSION_MISSING"
	CodeSessionInvalid     Code = "SDD_SESSION_INVALID"
	CodeChangeArchived     Code = "SDD_CHANGE_ARCHIVED"
	CodeChangeMissing      Code = "SDD_CHANGE_MISSING"
	CodeValidationFailed   Code = "SDD_VALIDATION_FAILED"
	CodeValidationErrored  Code = "SDD_VALIDATION_ERROR"
)

// BypassEnv is the emergency override: when set to "1" every evaluation is
// allowed unconditionally.
const BypassEnv = "SPECGATE_SDD_BYPASS"

// #endregion stages-codes

// #region payloads

// Decision is the single verdict of one policy evaluation. It is always a
// value, never an error; callers script against Code.
type Decision struct {
	Allowed bool           `json:"allowed"`
	Code    Code           `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// OpenSpecStatus snapshots the tool probe for observability.
type OpenSpecStatus struct {
	Installed          bool   `json:"installed"`
	Version            string `json:"version,omitempty"`
	ProjectInitialized bool   `json:"projectInitialized"`
	MinimumVersion     string `json:"minimumVersion"`
	RecommendedVersion string `json:"recommendedVersion"`
	ParsedVersion      string `json:"parsedVersion,omitempty"`
	Compatible         bool   `json:"compatible"`
}

// Status is the read-only snapshot returned with every decision regardless
// of outcome.
type Status struct {
	RepoRoot string         `json:"repoRoot"`
	OpenSpec OpenSpecStatus `json:"openspec"`
	Session  session.State  `json:"session"`
}

// Result bundles one evaluation: the decision plus the status it was based
// on. Validation is present only when the validate subprocess ran.
type Result struct {
	Stage      Stage              `json:"stage"`
	Status     Status             `json:"status"`
	Validation *ValidationSummary `json:"validation,omitempty"`
	Decision   Decision           `json:"decision"`
}

// #endregion payloads

// #region engine

// Engine is the stage-aware SDD decision state machine. It composes the tool
// compatibility probe, the session store, and external validation into
// exactly one decision per evaluation.
type Engine struct {
	repoRoot string
	tool     Tool
	sessions *session.Store
	getenv   func(string) string
}

// NewEngine wires a policy engine for one repository.
func NewEngine(repoRoot string, tool Tool, sessions *session.Store) *Engine {
	return &Engine{repoRoot: repoRoot, tool: tool, sessions: sessions, getenv: os.Getenv}
}

// WithEnv overrides environment lookup. Test seam for the bypass switch.
func (e *Engine) WithEnv(getenv func(string) string) *Engine {
	e.getenv = getenv
	return e
}

// Status probes tool and session state without rendering a decision.
func (e *Engine) Status(now time.Time) Status {
	inst := e.tool.Detect(e.repoRoot)
	compat := EvaluateCompatibility(inst)
	sessionState, err := e.sessions.Read(now)
	if err != nil {
		// A broken store reads as an absent session; the decision layer
		// classifies it as SDD_SESSION_MISSING.
		sessionState = session.State{RepoRoot: e.repoRoot}
	}
	return Status{
		RepoRoot: e.repoRoot,
		OpenSpec: OpenSpecStatus{
			Installed:          inst.Installed,
			Version:            inst.Version,
			ProjectInitialized: session.ProjectInitialized(e.repoRoot),
			MinimumVersion:     compat.MinimumVersion,
			RecommendedVersion: compat.RecommendedVersion,
			ParsedVersion:      compat.ParsedVersion,
			Compatible:         compat.Compatible,
		},
		Session: sessionState,
	}
}

// Evaluate runs the decision ladder for one stage. First failing check wins;
// PRE_WRITE skips deep validation.
func (e *Engine) Evaluate(now time.Time, stage Stage) Result {
	status := e.Status(now)
	result := Result{Stage: stage, Status: status}

	if e.getenv(BypassEnv) == "1" {
		result.Decision = allowed(
			"SDD bypass is active via "+BypassEnv+"=1. Enforcement skipped by emergency override.",
			map[string]any{"bypass": true, "env": BypassEnv},
		)
		return result
	}

	if !status.OpenSpec.Installed {
		result.Decision = blocked(CodeToolMissing,
			"OpenSpec is required but was not detected. Install OpenSpec before continuing.", nil)
		return result
	}
	if !status.OpenSpec.Compatible {
		detected := status.OpenSpec.Version
		if detected == "" {
			detected = "unknown"
		}
		result.Decision = blocked(CodeVersionUnsupported,
			fmt.Sprintf("OpenSpec version is unsupported. Minimum required is %s (detected: %s).",
				status.OpenSpec.MinimumVersion, detected), nil)
		return result
	}
	if !status.OpenSpec.ProjectInitialized {
		result.Decision = blocked(CodeProjectMissing,
			"OpenSpec project is not initialized in this repository. Run OpenSpec init first.", nil)
		return result
	}

	if decision, failed := e.checkSession(status); failed {
		result.Decision = decision
		return result
	}

	if stage == StagePreWrite {
		result.Decision = allowed("SDD pre-write checks passed with active valid session.", nil)
		return result
	}

	validation := e.tool.Validate(e.repoRoot)
	result.Validation = &validation
	// Non-zero exit outranks unparseable output: a crashing validator is a
	// validation failure, not a tooling error.
	if validation.ExitCode != 0 || (validation.ParseOK && !validation.OK) {
		result.Decision = blocked(CodeValidationFailed,
			"OpenSpec validation failed for active changes. Resolve SDD issues before continuing.",
			map[string]any{
				"exitCode":    validation.ExitCode,
				"failedItems": validation.Totals.Failed,
				"errors":      validation.Issues.Errors,
			})
		return result
	}
	if !validation.ParseOK {
		result.Decision = blocked(CodeValidationErrored,
			"OpenSpec validation output could not be parsed. Rerun validation manually.",
			map[string]any{"exitCode": validation.ExitCode})
		return result
	}

	result.Decision = allowed("SDD validation passed for active changes.", map[string]any{
		"passedItems": validation.Totals.Passed,
		"warnings":    validation.Issues.Warnings,
	})
	return result
}

// checkSession walks the session ladder: missing, invalid/expired, archived
// change, vanished change.
func (e *Engine) checkSession(status Status) (Decision, bool) {
	s := status.Session
	if !s.Active {
		return blocked(CodeSessionMissing,
			"SDD session is not active. Run `sddctl open --change=<id>`.", nil), true
	}
	if !s.Valid || s.ChangeID == "" {
		return blocked(CodeSessionInvalid,
			"SDD session is invalid or expired. Run `sddctl refresh` or reopen it.", nil), true
	}
	if session.ChangeArchived(e.repoRoot, s.ChangeID) {
		return blocked(CodeChangeArchived,
			fmt.Sprintf("Active SDD change %q is archived. Open a new active change session.", s.ChangeID), nil), true
	}
	if !session.ChangeExists(e.repoRoot, s.ChangeID) {
		return blocked(CodeChangeMissing,
			fmt.Sprintf("Active SDD change %q was not found in openspec/changes.", s.ChangeID), nil), true
	}
	return Decision{}, false
}

func allowed(message string, details map[string]any) Decision {
	return Decision{Allowed: true, Code: CodeAllowed, Message: message, Details: details}
}

func blocked(code Code, message string, details map[string]any) Decision {
	return Decision{Allowed: false, Code: code, Message: message, Details: details}
}

// #endregion engine
