package rules

// #region rule

// Consequence describes the finding a rule emits when its condition matches.
// Code falls back to the rule id when empty.
type Consequence struct {
	Message string
	Code    string
}

// Rule pairs a condition with the finding it produces. Rules are immutable
// inputs; the engine never mutates them.
type Rule struct {
	ID          string
	Description string
	Severity    Severity
	When        Condition
	Then        Consequence
	Scope       *Scope
}

// RuleSet is an ordered collection of rules. Evaluation order follows the
// slice order.
type RuleSet []Rule

// #endregion rule
