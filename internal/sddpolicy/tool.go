package sddpolicy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// #region contract

// Installation is the result of probing for the OpenSpec CLI.
type Installation struct {
	Installed bool
	Version   string
}

// ValidationTotals mirrors the tool's summary.totals JSON block.
type ValidationTotals struct {
	Items  int `json:"items"`
	Failed int `json:"failed"`
	Passed int `json:"passed"`
}

// ValidationIssues mirrors the tool's summary.byLevel JSON block.
type ValidationIssues struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Infos    int `json:"infos"`
}

// ValidationSummary is the degraded-to-data result of one validate run.
// Subprocess failures never propagate as errors; they surface as a non-zero
// exit code or ParseOK=false and the policy engine classifies them.
type ValidationSummary struct {
	OK       bool             `json:"ok"`
	ExitCode int              `json:"exitCode"`
	ParseOK  bool             `json:"parseOk"`
	Totals   ValidationTotals `json:"totals"`
	Issues   ValidationIssues `json:"issues"`
}

// Tool abstracts the external OpenSpec subprocess so the policy
// engine can be tested without spawning processes.
type Tool interface {
	Detect(repoRoot string) Installation
	Validate(repoRoot string) ValidationSummary
}

// #endregion contract

// #region cli-tool

// DefaultToolTimeout bounds each subprocess call; the caller-imposed timeout
// is the only backpressure on the tool boundary.
const DefaultToolTimeout = 30 * time.Second

const toolBinary = "openspec"

// CLITool shells out to the openspec binary found on PATH.
type CLITool struct {
	Binary  string
	Timeout time.Duration
}

// NewCLITool returns a tool adapter with default binary name and timeout.
func NewCLITool() *CLITool {
	return &CLITool{Binary: toolBinary, Timeout: DefaultToolTimeout}
}

// Detect probes `openspec --version`. Any spawn or exit failure reads as
// not installed.
func (t *CLITool) Detect(repoRoot string) Installation {
	exitCode, stdout := t.run(repoRoot, "--version")
	if exitCode != 0 {
		return Installation{}
	}
	return Installation{Installed: true, Version: strings.TrimSpace(stdout)}
}

// Validate runs `openspec validate --changes --json --no-interactive` and
// parses the summary JSON from stdout.
func (t *CLITool) Validate(repoRoot string) ValidationSummary {
	exitCode, stdout := t.run(repoRoot, "validate", "--changes", "--json", "--no-interactive")
	summary := parseValidationOutput(stdout)
	summary.ExitCode = exitCode
	summary.OK = exitCode == 0 && summary.ParseOK && summary.Totals.Failed == 0 && summary.Issues.Errors == 0
	return summary
}

func (t *CLITool) run(repoRoot string, args ...string) (int, string) {
	timeout := t.Timeout
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	binary := t.Binary
	if binary == "" {
		binary = toolBinary
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = repoRoot

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), stdout.String()
		}
		return -1, stdout.String()
	}
	return 0, stdout.String()
}

func parseValidationOutput(stdout string) ValidationSummary {
	var payload struct {
		Summary struct {
			Totals  ValidationTotals `json:"totals"`
			ByLevel struct {
				Error   int `json:"ERROR"`
				Warning int `json:"WARNING"`
				Info    int `json:"INFO"`
			} `json:"byLevel"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(stdout), &payload); err != nil {
		return ValidationSummary{}
	}
	return ValidationSummary{
		ParseOK: true,
		Totals:  payload.Summary.Totals,
		Issues: ValidationIssues{
			Errors:   payload.Summary.ByLevel.Error,
			Warnings: payload.Summary.ByLevel.Warning,
			Infos:    payload.Summary.ByLevel.Info,
		},
	}
}

// #endregion cli-tool

// #region compatibility

// MinimumVersion is the oldest tool release the gate knows how to talk to.
const (
	MinimumVersion     = "1.1.1"
	RecommendedVersion = "1.1.1"
)

// Compatibility is the outcome of matching a detected version against the
// supported range.
type Compatibility struct {
	MinimumVersion     string
	RecommendedVersion string
	DetectedVersion    string
	ParsedVersion      string
	Compatible         bool
}

var semverPattern = regexp.MustCompile(`(\d+)\.(\d+)\.(\d+)`)

// EvaluateCompatibility extracts an embedded 3-part semver from the detected
// version string and compares it numerically against the minimum. Missing or
// unparseable versions are incompatible.
func EvaluateCompatibility(inst Installation) Compatibility {
	compat := Compatibility{
		MinimumVersion:     MinimumVersion,
		RecommendedVersion: RecommendedVersion,
		DetectedVersion:    inst.Version,
	}
	if !inst.Installed {
		return compat
	}
	parsed := semverPattern.FindString(inst.Version)
	if parsed == "" {
		return compat
	}
	compat.ParsedVersion = parsed
	compat.Compatible = compareSemver(parsed, MinimumVersion) >= 0
	return compat
}

// compareSemver compares dotted versions numerically, treating missing
// components as zero. Never lexical: "1.10.0" > "1.9.9".
func compareSemver(left, right string) int {
	leftParts := strings.Split(left, ".")
	rightParts := strings.Split(right, ".")
	for i := 0; i < 3; i++ {
		l, r := 0, 0
		if i < len(leftParts) {
			l, _ = strconv.Atoi(leftParts[i])
		}
		if i < len(rightParts) {
			r, _ = strconv.Atoi(rightParts[i])
		}
		if l != r {
			if l > r {
				return 1
			}
			return -1
		}
	}
	return 0
}

// #endregion compatibility
