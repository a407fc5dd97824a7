package gate

import (
	"fmt"

	"github.com/specgate/specgate/internal/facts"
	"github.com/specgate/specgate/internal/rules"
)

// #region evaluate

// Evaluate runs every rule against the fact set and returns raw findings in
// emission order: rules in set order, and for per-fact conditions, facts in
// input order. No sorting or dedup happens here; that is the consolidator's
// job. A malformed rule aborts the whole evaluation.
func Evaluate(set rules.RuleSet, fs []facts.Fact) ([]Finding, error) {
	var findings []Finding
	for _, rule := range set {
		emitted, err := evaluateRule(rule, fs)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		findings = append(findings, emitted...)
	}
	return findings, nil
}

func evaluateRule(rule rules.Rule, fs []facts.Fact) ([]Finding, error) {
	switch cond := rule.When.(type) {
	case rules.FileContentCondition:
		return expandFileContent(rule, cond, fs)
	case rules.HeuristicCondition:
		return expandHeuristic(rule, cond, fs), nil
	default:
		return evaluateSingle(rule, fs)
	}
}

// #endregion evaluate

// #region per-fact-expansion

// expandFileContent emits one finding per content fact that independently
// satisfies the condition. A regex rule over two files yields two findings.
func expandFileContent(rule rules.Rule, cond rules.FileContentCondition, fs []facts.Fact) ([]Finding, error) {
	var findings []Finding
	for _, f := range fs {
		fc, ok := f.(facts.FileContent)
		if !ok {
			continue
		}
		if !ScopeAllows(rule.Scope, fc.Path) {
			continue
		}
		matched, err := fileContentMatches(cond, fc)
		if err != nil {
			return nil, err
		}
		if matched {
			findings = append(findings, newFinding(rule, fc.Path, string(rules.CondFileContent), fc.Source, nil))
		}
	}
	return findings, nil
}

// expandHeuristic emits one finding per matching detector hit, carrying the
// hit's file path, provenance, and line when reported.
func expandHeuristic(rule rules.Rule, cond rules.HeuristicCondition, fs []facts.Fact) []Finding {
	var findings []Finding
	for _, f := range fs {
		h, ok := f.(facts.Heuristic)
		if !ok {
			continue
		}
		if !ScopeAllows(rule.Scope, h.FilePath) {
			continue
		}
		if !heuristicMatches(cond, h) {
			continue
		}
		var lines []int
		if h.Line > 0 {
			lines = []int{h.Line}
		}
		findings = append(findings, newFinding(rule, h.FilePath, string(rules.CondHeuristic), h.Source, lines))
	}
	return findings
}

// #endregion per-fact-expansion

// #region single-match

// evaluateSingle runs the structural matcher once and emits at most one
// finding. File path and source come from the first fact that drove the
// match when one is identifiable; composite and dependency matches leave
// them unset.
func evaluateSingle(rule rules.Rule, fs []facts.Fact) ([]Finding, error) {
	matched, err := Matches(rule.When, fs, rule.Scope)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, nil
	}

	filePath, source := "", ""
	if cond, ok := rule.When.(rules.FileChangeCondition); ok {
		for _, f := range fs {
			fc, isChange := f.(facts.FileChange)
			if isChange && fileChangeMatches(cond, fc) {
				filePath, source = fc.Path, fc.Source
				break
			}
		}
	}
	return []Finding{newFinding(rule, filePath, string(rule.When.Kind()), source, nil)}, nil
}

// #endregion single-match

// #region finding-constructor

func newFinding(rule rules.Rule, filePath, matchedBy, source string, lines []int) Finding {
	code := rule.Then.Code
	if code == "" {
		code = rule.ID
	}
	return Finding{
		RuleID:    rule.ID,
		Severity:  rule.Severity,
		Code:      code,
		Message:   rule.Then.Message,
		FilePath:  filePath,
		MatchedBy: matchedBy,
		Source:    source,
		Lines:     lines,
	}
}

// #endregion finding-constructor
