package evidence

import (
	"reflect"
	"testing"
	"time"

	"github.com/specgate/specgate/internal/gate"
	"github.com/specgate/specgate/internal/intent"
	"github.com/specgate/specgate/internal/rules"
)

// #region helpers

var buildTime = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

func finding(ruleID string, severity rules.Severity, file string, lines ...int) gate.Finding {
	return gate.Finding{
		RuleID:   ruleID,
		Severity: severity,
		Code:     "CODE",
		Message:  "message for " + ruleID,
		FilePath: file,
		Lines:    lines,
	}
}

// #endregion helpers

// #region outcome-tests

func TestBuild_OutcomePassWhenNoFindings(t *testing.T) {
	doc := Build(buildTime, BuildParams{Stage: StagePreCommit})

	if doc.Snapshot.Outcome != OutcomePass {
		t.Errorf("expected PASS, got %s", doc.Snapshot.Outcome)
	}
	if doc.AiGate.Status != StatusAllowed {
		t.Errorf("expected ALLOWED, got %s", doc.AiGate.Status)
	}
	if doc.Version != Version {
		t.Errorf("expected version %s, got %s", Version, doc.Version)
	}
	if doc.Timestamp != "2026-05-10T09:30:00.000Z" {
		t.Errorf("unexpected timestamp %s", doc.Timestamp)
	}
}

func TestBuild_OutcomeWarnWithoutCritical(t *testing.T) {
	doc := Build(buildTime, BuildParams{
		Stage: StagePreCommit,
		Findings: []gate.Finding{
			finding("a", rules.SeverityInfo, "a.ts"),
			finding("b", rules.SeverityError, "b.ts"),
		},
	})
	if doc.Snapshot.Outcome != OutcomeWarn {
		t.Errorf("expected WARN, got %s", doc.Snapshot.Outcome)
	}
	if doc.AiGate.Status != StatusAllowed {
		t.Errorf("expected ALLOWED for WARN, got %s", doc.AiGate.Status)
	}
}

func TestBuild_CriticalBlocks(t *testing.T) {
	doc := Build(buildTime, BuildParams{
		Stage:    StageCI,
		Findings: []gate.Finding{finding("a", rules.SeverityCritical, "a.ts")},
	})
	if doc.Snapshot.Outcome != OutcomeBlock {
		t.Errorf("expected BLOCK, got %s", doc.Snapshot.Outcome)
	}
	if doc.AiGate.Status != StatusBlocked {
		t.Errorf("expected BLOCKED, got %s", doc.AiGate.Status)
	}
	if doc.SeverityMetrics.GateStatus != StatusBlocked {
		t.Errorf("expected metrics BLOCKED, got %s", doc.SeverityMetrics.GateStatus)
	}
}

func TestBuild_ExplicitOutcomeWins(t *testing.T) {
	doc := Build(buildTime, BuildParams{
		Stage:       StagePrePush,
		Findings:    []gate.Finding{finding("a", rules.SeverityCritical, "a.ts")},
		GateOutcome: OutcomeWarn,
	})
	if doc.Snapshot.Outcome != OutcomeWarn {
		t.Errorf("expected supplied WARN to win, got %s", doc.Snapshot.Outcome)
	}
	if doc.AiGate.Status != StatusAllowed {
		t.Errorf("expected ALLOWED for supplied WARN, got %s", doc.AiGate.Status)
	}
}

func TestBuild_SeverityMetrics(t *testing.T) {
	doc := Build(buildTime, BuildParams{
		Stage: StageCI,
		Findings: []gate.Finding{
			finding("a", rules.SeverityInfo, "a.ts"),
			finding("b", rules.SeverityWarn, "b.ts"),
			finding("c", rules.SeverityWarn, "c.ts"),
			finding("d", rules.SeverityCritical, "d.ts"),
		},
	})
	if doc.SeverityMetrics.TotalViolations != 4 {
		t.Errorf("expected 4 violations, got %d", doc.SeverityMetrics.TotalViolations)
	}
	want := BySeverity{Info: 1, Warn: 2, Critical: 1}
	if doc.SeverityMetrics.BySeverity != want {
		t.Errorf("expected %+v, got %+v", want, doc.SeverityMetrics.BySeverity)
	}
}

// #endregion outcome-tests

// #region finding-tests

func TestBuild_NormalizesFindingFiles(t *testing.T) {
	doc := Build(buildTime, BuildParams{
		Stage: StagePreCommit,
		Findings: []gate.Finding{
			finding("a", rules.SeverityWarn, `apps\backend\index.ts`),
			finding("b", rules.SeverityWarn, ""),
		},
	})
	if got := doc.Snapshot.Findings[0].File; got != "apps/backend/index.ts" {
		t.Errorf("expected forward slashes, got %q", got)
	}
	if got := doc.Snapshot.Findings[1].File; got != "unknown" {
		t.Errorf("expected empty path to read unknown, got %q", got)
	}
}

func TestBuild_NormalizesLines(t *testing.T) {
	doc := Build(buildTime, BuildParams{
		Stage:    StagePreCommit,
		Findings: []gate.Finding{finding("a", rules.SeverityWarn, "a.ts", 9, 3, 9, 1)},
	})
	if got := doc.Snapshot.Findings[0].Lines; !reflect.DeepEqual(got, []int{1, 3, 9}) {
		t.Errorf("expected sorted deduped lines, got %v", got)
	}

	doc = Build(buildTime, BuildParams{
		Stage:    StagePreCommit,
		Findings: []gate.Finding{finding("a", rules.SeverityWarn, "a.ts")},
	})
	if got := doc.Snapshot.Findings[0].Lines; got != nil {
		t.Errorf("expected no lines to stay absent, got %v", got)
	}
}

func TestBuild_ViolationsMirrorFindings(t *testing.T) {
	doc := Build(buildTime, BuildParams{
		Stage:    StagePreCommit,
		Findings: []gate.Finding{finding("a", rules.SeverityError, "a.ts", 4)},
	})
	if len(doc.AiGate.Violations) != 1 {
		t.Fatalf("expected one violation, got %d", len(doc.AiGate.Violations))
	}
	v := doc.AiGate.Violations[0]
	f := doc.Snapshot.Findings[0]
	if v.RuleID != f.RuleID || v.Level != f.Severity || v.File != f.File || !reflect.DeepEqual(v.Lines, f.Lines) {
		t.Errorf("violation %+v does not mirror finding %+v", v, f)
	}
}

func TestBuild_ConsolidationSectionOnlyWhenSuppressed(t *testing.T) {
	doc := Build(buildTime, BuildParams{
		Stage:    StagePreCommit,
		Findings: []gate.Finding{finding("a", rules.SeverityWarn, "a.ts")},
	})
	if doc.Consolidation != nil {
		t.Errorf("expected no consolidation section, got %+v", doc.Consolidation)
	}

	doc = Build(buildTime, BuildParams{
		Stage: StagePreCommit,
		Findings: []gate.Finding{
			finding("backend.no-hardcoded-secret", rules.SeverityCritical, "a.ts", 10),
			finding("heuristics.ts.hardcoded-secret-token.ast", rules.SeverityWarn, "a.ts", 10),
		},
	})
	if doc.Consolidation == nil || len(doc.Consolidation.Suppressed) != 1 {
		t.Fatalf("expected one suppressed entry, got %+v", doc.Consolidation)
	}
	if doc.Consolidation.Suppressed[0].RuleID != "heuristics.ts.hardcoded-secret-token.ast" {
		t.Errorf("unexpected suppressed entry %+v", doc.Consolidation.Suppressed[0])
	}
	if len(doc.Snapshot.Findings) != 1 {
		t.Errorf("expected one surviving finding, got %d", len(doc.Snapshot.Findings))
	}
}

// #endregion finding-tests

// #region intent-tests

func TestBuild_IntentMirroredIntoAiGate(t *testing.T) {
	goal := "ship the payments migration"
	doc := Build(buildTime, BuildParams{
		Stage: StagePreCommit,
		HumanIntent: &intent.State{
			PrimaryGoal: &goal,
			PreservedAt: "2026-05-10T09:00:00Z",
		},
		HumanIntentSet: true,
	})
	if doc.HumanIntent == nil {
		t.Fatal("expected resolved intent")
	}
	if doc.AiGate.HumanIntent != doc.HumanIntent {
		t.Error("expected ai_gate intent and document intent to be the same record")
	}
	if doc.HumanIntent.PreservedAt != doc.Timestamp {
		t.Errorf("expected intent stamped with build time, got %s", doc.HumanIntent.PreservedAt)
	}
}

func TestBuild_IntentCarriedFromPrevious(t *testing.T) {
	goal := "keep going"
	previous := Build(buildTime, BuildParams{
		Stage:          StagePreWrite,
		HumanIntent:    &intent.State{PrimaryGoal: &goal, PreservedAt: "2026-05-10T09:00:00Z"},
		HumanIntentSet: true,
	})

	doc := Build(buildTime.Add(time.Minute), BuildParams{
		Stage:    StagePreCommit,
		Previous: &previous,
	})
	if doc.HumanIntent == nil {
		t.Fatal("expected carried intent")
	}
	if *doc.HumanIntent.PrimaryGoal != goal {
		t.Errorf("expected goal carried, got %q", *doc.HumanIntent.PrimaryGoal)
	}
	if doc.HumanIntent.PreservationCount != 1 {
		t.Errorf("expected carry to increment count, got %d", doc.HumanIntent.PreservationCount)
	}
}

// #endregion intent-tests

// #region platform-ruleset-tests

func TestBuild_PlatformKeysLowercased(t *testing.T) {
	doc := Build(buildTime, BuildParams{
		Stage: StagePreCommit,
		DetectedPlatforms: map[string]PlatformState{
			"Backend":  {Detected: true, Confidence: "high"},
			"FRONTEND": {Detected: false, Confidence: "low"},
		},
	})
	if _, ok := doc.Platforms["backend"]; !ok {
		t.Errorf("expected lowercase backend key, got %v", doc.Platforms)
	}
	if _, ok := doc.Platforms["frontend"]; !ok {
		t.Errorf("expected lowercase frontend key, got %v", doc.Platforms)
	}
	if len(doc.Platforms) != 2 {
		t.Errorf("expected 2 platforms, got %d", len(doc.Platforms))
	}
}

func TestBuild_PlatformKeyCollisionIsDeterministic(t *testing.T) {
	// "iOS" sorts before "ios", so its state survives the lowercasing merge
	// no matter how the input map iterates.
	doc := Build(buildTime, BuildParams{
		Stage: StagePreCommit,
		DetectedPlatforms: map[string]PlatformState{
			"ios": {Detected: false, Confidence: "low"},
			"iOS": {Detected: true, Confidence: "high"},
		},
	})
	if len(doc.Platforms) != 1 {
		t.Fatalf("expected 1 platform after merge, got %d", len(doc.Platforms))
	}
	state, ok := doc.Platforms["ios"]
	if !ok {
		t.Fatalf("expected lowercase ios key, got %v", doc.Platforms)
	}
	if !state.Detected || state.Confidence != "high" {
		t.Errorf("expected ascending-first entry to win, got %+v", state)
	}
}

func TestBuild_RulesetsDedupedAndSorted(t *testing.T) {
	doc := Build(buildTime, BuildParams{
		Stage: StagePreCommit,
		LoadedRulesets: []RulesetState{
			{Platform: "frontend", Bundle: "core", Hash: "f1"},
			{Platform: "backend", Bundle: "core", Hash: "b1"},
			{Platform: "frontend", Bundle: "core", Hash: "dupe"},
			{Platform: "backend", Bundle: "extra", Hash: "b2"},
		},
	})
	want := []RulesetState{
		{Platform: "backend", Bundle: "core", Hash: "b1"},
		{Platform: "backend", Bundle: "extra", Hash: "b2"},
		{Platform: "frontend", Bundle: "core", Hash: "f1"},
	}
	if !reflect.DeepEqual(doc.Rulesets, want) {
		t.Errorf("expected %v, got %v", want, doc.Rulesets)
	}
}

// #endregion platform-ruleset-tests

// #region ledger-tests

func TestBuild_LedgerStampsNewFindings(t *testing.T) {
	doc := Build(buildTime, BuildParams{
		Stage:    StagePreCommit,
		Findings: []gate.Finding{finding("a", rules.SeverityWarn, "a.ts", 3)},
	})
	if len(doc.Ledger) != 1 {
		t.Fatalf("expected one ledger entry, got %d", len(doc.Ledger))
	}
	entry := doc.Ledger[0]
	if entry.FirstSeen != doc.Timestamp || entry.LastSeen != doc.Timestamp {
		t.Errorf("expected both timestamps stamped with now, got %+v", entry)
	}
}

func TestBuild_LedgerCarriesFirstSeen(t *testing.T) {
	first := Build(buildTime, BuildParams{
		Stage:    StagePreCommit,
		Findings: []gate.Finding{finding("a", rules.SeverityWarn, "a.ts", 3)},
	})
	second := Build(buildTime.Add(2*time.Minute), BuildParams{
		Stage:    StagePrePush,
		Findings: []gate.Finding{finding("a", rules.SeverityWarn, "a.ts", 3)},
		Previous: &first,
	})

	if second.Ledger[0].FirstSeen != first.Timestamp {
		t.Errorf("expected firstSeen carried from first run, got %s", second.Ledger[0].FirstSeen)
	}
	if second.Ledger[0].LastSeen != second.Timestamp {
		t.Errorf("expected lastSeen advanced, got %s", second.Ledger[0].LastSeen)
	}
}

func TestBuild_LedgerDropsResolvedFindings(t *testing.T) {
	first := Build(buildTime, BuildParams{
		Stage: StagePreCommit,
		Findings: []gate.Finding{
			finding("a", rules.SeverityWarn, "a.ts", 3),
			finding("b", rules.SeverityWarn, "b.ts"),
		},
	})
	second := Build(buildTime.Add(time.Minute), BuildParams{
		Stage:    StagePrePush,
		Findings: []gate.Finding{finding("b", rules.SeverityWarn, "b.ts")},
		Previous: &first,
	})

	if len(second.Ledger) != 1 {
		t.Fatalf("expected resolved finding dropped from ledger, got %+v", second.Ledger)
	}
	if second.Ledger[0].RuleID != "b" {
		t.Errorf("expected surviving entry b, got %s", second.Ledger[0].RuleID)
	}
}

func TestBuild_LedgerSortedByKey(t *testing.T) {
	doc := Build(buildTime, BuildParams{
		Stage: StagePreCommit,
		Findings: []gate.Finding{
			finding("z-rule", rules.SeverityWarn, "a.ts"),
			finding("a-rule", rules.SeverityWarn, "z.ts"),
		},
	})
	if doc.Ledger[0].RuleID != "a-rule" || doc.Ledger[1].RuleID != "z-rule" {
		t.Errorf("expected ledger sorted by rule id first, got %+v", doc.Ledger)
	}
}

// #endregion ledger-tests
