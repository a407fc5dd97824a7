package gate

import "github.com/specgate/specgate/internal/rules"

// #region finding

// Finding is a materialized rule match: the unit consolidation and evidence
// building operate on. FilePath, MatchedBy, Source, and Lines are optional;
// composite and dependency matches leave the file fields unset.
type Finding struct {
	RuleID    string         `json:"ruleId"`
	Severity  rules.Severity `json:"severity"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	FilePath  string         `json:"filePath,omitempty"`
	MatchedBy string         `json:"matchedBy,omitempty"`
	Source    string         `json:"source,omitempty"`
	Lines     []int          `json:"lines,omitempty"`
}

// #endregion finding
