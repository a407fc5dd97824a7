package evidence

import (
	"sort"
	"strings"
	"time"

	"github.com/specgate/specgate/internal/consolidate"
	"github.com/specgate/specgate/internal/gate"
	"github.com/specgate/specgate/internal/intent"
	"github.com/specgate/specgate/internal/rules"
)

// #region params

// BuildParams bundles one gate pass worth of inputs. Previous may come from
// an older schema; missing optional fields read as absent. HumanIntentSet
// distinguishes explicit operator input (authoritative, count kept verbatim)
// from carry-forward of the previous document's intent.
type BuildParams struct {
	Stage             Stage
	Findings          []gate.Finding
	Previous          *Document
	HumanIntent       *intent.State
	HumanIntentSet    bool
	GateOutcome       Outcome // empty means derive from surviving findings
	DetectedPlatforms map[string]PlatformState
	LoadedRulesets    []RulesetState
}

// #endregion params

// #region build

// Build assembles one evidence document: resolve intent, consolidate
// findings, normalize platforms and rulesets, compute severity metrics, and
// carry the ledger forward. Pure function of its inputs and now.
func Build(now time.Time, p BuildParams) Document {
	timestamp := intent.FormatTime(now)

	var previousIntent *intent.State
	if p.Previous != nil {
		previousIntent = p.Previous.HumanIntent
	}
	humanIntent := intent.Resolve(now, previousIntent, p.HumanIntent, p.HumanIntentSet)

	consolidated := consolidate.Consolidate(p.Findings)
	findings := toSnapshotFindings(consolidated.Survivors)

	outcome := p.GateOutcome
	if outcome == "" {
		outcome = deriveOutcome(findings)
	}
	status := StatusAllowed
	if outcome == OutcomeBlock {
		status = StatusBlocked
	}

	doc := Document{
		Version:   Version,
		Timestamp: timestamp,
		Snapshot: Snapshot{
			Stage:    p.Stage,
			Outcome:  outcome,
			Findings: findings,
		},
		Ledger:      updateLedger(findings, p.Previous, timestamp),
		Platforms:   normalizePlatforms(p.DetectedPlatforms),
		Rulesets:    normalizeRulesets(p.LoadedRulesets),
		HumanIntent: humanIntent,
		AiGate: AiGate{
			Status:      status,
			Violations:  toViolations(findings),
			HumanIntent: humanIntent,
		},
		SeverityMetrics: SeverityMetrics{
			GateStatus:      status,
			TotalViolations: len(findings),
			BySeverity:      countBySeverity(findings),
		},
	}
	if len(consolidated.Suppressed) > 0 {
		doc.Consolidation = &Consolidation{Suppressed: consolidated.Suppressed}
	}
	return doc
}

// #endregion build

// #region findings

func toSnapshotFindings(survivors []gate.Finding) []SnapshotFinding {
	findings := make([]SnapshotFinding, 0, len(survivors))
	for _, f := range survivors {
		file := strings.ReplaceAll(f.FilePath, "\\", "/")
		if file == "" {
			file = "unknown"
		}
		findings = append(findings, SnapshotFinding{
			RuleID:   f.RuleID,
			Severity: f.Severity,
			Code:     f.Code,
			Message:  f.Message,
			File:     file,
			Lines:    normalizeLines(f.Lines),
		})
	}
	return findings
}

// normalizeLines dedupes and sorts line numbers ascending; empty input
// normalizes to absent.
func normalizeLines(lines []int) []int {
	if len(lines) == 0 {
		return nil
	}
	seen := map[int]bool{}
	out := make([]int, 0, len(lines))
	for _, line := range lines {
		if seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	sort.Ints(out)
	return out
}

func toViolations(findings []SnapshotFinding) []Violation {
	violations := make([]Violation, 0, len(findings))
	for _, f := range findings {
		violations = append(violations, Violation{
			RuleID:  f.RuleID,
			Level:   f.Severity,
			Code:    f.Code,
			Message: f.Message,
			File:    f.File,
			Lines:   f.Lines,
		})
	}
	return violations
}

// #endregion findings

// #region outcome

// deriveOutcome maps surviving findings to a verdict when the caller did not
// supply one: any CRITICAL blocks, anything else warns, nothing passes.
func deriveOutcome(findings []SnapshotFinding) Outcome {
	for _, f := range findings {
		if f.Severity == rules.SeverityCritical {
			return OutcomeBlock
		}
	}
	if len(findings) > 0 {
		return OutcomeWarn
	}
	return OutcomePass
}

func countBySeverity(findings []SnapshotFinding) BySeverity {
	var counts BySeverity
	for _, f := range findings {
		switch f.Severity {
		case rules.SeverityInfo:
			counts.Info++
		case rules.SeverityWarn:
			counts.Warn++
		case rules.SeverityError:
			counts.Error++
		case rules.SeverityCritical:
			counts.Critical++
		}
	}
	return counts
}

// #endregion outcome

// #region platforms-rulesets

// normalizePlatforms lower-cases keys and passes state through unchanged.
// Keys serialize in ascending order (JSON maps marshal sorted). Input keys
// that collide after lowercasing resolve to the ascending-first original,
// independent of map iteration order.
func normalizePlatforms(platforms map[string]PlatformState) map[string]PlatformState {
	names := make([]string, 0, len(platforms))
	for name := range platforms {
		names = append(names, name)
	}
	sort.Strings(names)
	normalized := make(map[string]PlatformState, len(platforms))
	for _, name := range names {
		lower := strings.ToLower(name)
		if _, ok := normalized[lower]; ok {
			continue
		}
		normalized[lower] = platforms[name]
	}
	return normalized
}

// normalizeRulesets dedupes by (platform, bundle) keeping the first
// occurrence, ordered by platform ascending and first-seen within a
// platform.
func normalizeRulesets(rulesets []RulesetState) []RulesetState {
	type key struct{ platform, bundle string }
	seen := map[key]bool{}
	unique := make([]RulesetState, 0, len(rulesets))
	for _, rs := range rulesets {
		k := key{platform: rs.Platform, bundle: rs.Bundle}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, rs)
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Platform < unique[j].Platform
	})
	return unique
}

// #endregion platforms-rulesets
