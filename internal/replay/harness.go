package replay

import (
	"fmt"
	"time"

	"github.com/specgate/specgate/internal/evidence"
	"github.com/specgate/specgate/internal/facts"
	"github.com/specgate/specgate/internal/gate"
	"github.com/specgate/specgate/internal/rules"
)

// #region types

// Run represents a single recorded gate pass for replay.
type Run struct {
	RunID string
	Stage evidence.Stage
	Facts []facts.Fact
}

// Result captures the outcome of replaying one run through the full pipeline.
type Result struct {
	RunID   string
	Outcome evidence.Outcome
	Reason  string

	// Raw findings before consolidation
	Findings []gate.Finding

	// Document after this run, with the ledger carried forward
	Document evidence.Document
}

// Summary provides aggregate stats from a replay session.
type Summary struct {
	TotalRuns int
	Passes    int
	Warns     int
	Blocks    int

	// Final document after the last run (zero value when no runs)
	FinalDocument evidence.Document
}

// #endregion types

// #region replay

// Replay evaluates each run through the full pipeline in order: facts →
// rule evaluation → consolidation → evidence build. The document of each
// run feeds the next as the previous document, so ledger first-seen stamps
// and preserved intent carry across runs exactly as they would across real
// gate passes. Operates entirely in-memory; runs are stamped one minute
// apart starting at start.
func Replay(set rules.RuleSet, runs []Run, start time.Time) ([]Result, error) {
	results := make([]Result, 0, len(runs))
	var previous *evidence.Document

	for i, run := range runs {
		now := start.Add(time.Duration(i) * time.Minute)

		findings, err := gate.Evaluate(set, run.Facts)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", run.RunID, err)
		}

		doc := evidence.Build(now, evidence.BuildParams{
			Stage:    run.Stage,
			Findings: findings,
			Previous: previous,
		})

		results = append(results, Result{
			RunID:    run.RunID,
			Outcome:  doc.Snapshot.Outcome,
			Reason:   outcomeReason(doc),
			Findings: findings,
			Document: doc,
		})
		previous = &results[len(results)-1].Document
	}

	return results, nil
}

func outcomeReason(doc evidence.Document) string {
	switch doc.Snapshot.Outcome {
	case evidence.OutcomeBlock:
		return fmt.Sprintf("%d critical finding(s)", doc.SeverityMetrics.BySeverity.Critical)
	case evidence.OutcomeWarn:
		return fmt.Sprintf("%d finding(s)", doc.SeverityMetrics.TotalViolations)
	default:
		return "no findings"
	}
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result) Summary {
	s := Summary{TotalRuns: len(results)}
	for _, r := range results {
		switch r.Outcome {
		case evidence.OutcomePass:
			s.Passes++
		case evidence.OutcomeWarn:
			s.Warns++
		case evidence.OutcomeBlock:
			s.Blocks++
		}
	}
	if len(results) > 0 {
		s.FinalDocument = results[len(results)-1].Document
	}
	return s
}

// #endregion replay
