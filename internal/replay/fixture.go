package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/specgate/specgate/internal/evidence"
	"github.com/specgate/specgate/internal/facts"
	"github.com/specgate/specgate/internal/rules"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture. Rules carry
// the same document shape as a rule-set file; JSON is valid YAML, so the
// embedded rules decode through the regular rule-set parser.
type Fixture struct {
	Description     string                  `json:"description"`
	Rules           json.RawMessage         `json:"rules"`
	Runs            []FixtureRun            `json:"runs"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureRun mirrors replay.Run with the fact wire format embedded.
type FixtureRun struct {
	RunID string          `json:"run_id"`
	Stage string          `json:"stage"`
	Facts json.RawMessage `json:"facts"`
}

// FixtureExpectedResult captures the expected verdict per run.
type FixtureExpectedResult struct {
	RunID   string `json:"run_id"`
	Outcome string `json:"outcome"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// RuleSet decodes and validates the fixture's embedded rule set.
func (f *Fixture) RuleSet() (rules.RuleSet, error) {
	doc, err := json.Marshal(struct {
		Rules json.RawMessage `json:"rules"`
	}{Rules: f.Rules})
	if err != nil {
		return nil, fmt.Errorf("encode fixture rules: %w", err)
	}
	return rules.Parse(doc)
}

// ToRun converts a FixtureRun to a domain Run.
func (fr *FixtureRun) ToRun() (Run, error) {
	fs, err := facts.Unmarshal(fr.Facts)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: %w", fr.RunID, err)
	}
	return Run{
		RunID: fr.RunID,
		Stage: evidence.Stage(fr.Stage),
		Facts: fs,
	}, nil
}

// ToRuns converts every fixture run, preserving order.
func (f *Fixture) ToRuns() ([]Run, error) {
	runs := make([]Run, 0, len(f.Runs))
	for i := range f.Runs {
		run, err := f.Runs[i].ToRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// #endregion fixture-loader
