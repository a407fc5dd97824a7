package rules

// #region condition-kinds

// ConditionKind discriminates condition variants. Leaf kinds mirror fact
// kinds; composite kinds combine sub-conditions.
type ConditionKind string

const (
	CondFileChange  ConditionKind = "FileChange"
	CondFileContent ConditionKind = "FileContent"
	CondDependency  ConditionKind = "Dependency"
	CondHeuristic   ConditionKind = "Heuristic"
	CondAll         ConditionKind = "All"
	CondAny         ConditionKind = "Any"
	CondNot         ConditionKind = "Not"
)

// #endregion condition-kinds

// #region condition-union

// Condition is a closed union: FileChangeCondition, FileContentCondition,
// DependencyCondition, HeuristicCondition, AllCondition, AnyCondition,
// NotCondition. Evaluators type-switch over it exhaustively; an unknown
// dynamic type is a configuration error, not a silent non-match.
type Condition interface {
	Kind() ConditionKind
}

// FileChangeCondition matches FileChange facts by path prefix and change type.
// Empty filter fields match anything.
type FileChangeCondition struct {
	PathPrefix string
	ChangeType string
}

func (FileChangeCondition) Kind() ConditionKind { return CondFileChange }

// FileContentCondition matches FileContent facts whose content contains every
// Contains string or matches every Regex pattern. Scope include/exclude lists
// apply to this kind only.
type FileContentCondition struct {
	Contains []string
	Regex    []string
}

func (FileContentCondition) Kind() ConditionKind { return CondFileContent }

// DependencyCondition matches Dependency facts by exact endpoint equality.
type DependencyCondition struct {
	From string
	To   string
}

func (DependencyCondition) Kind() ConditionKind { return CondDependency }

// HeuristicCondition matches Heuristic facts by rule id, code, and file path
// prefix. Empty filter fields match anything.
type HeuristicCondition struct {
	RuleID         string
	Code           string
	FilePathPrefix string
}

func (HeuristicCondition) Kind() ConditionKind { return CondHeuristic }

// AllCondition matches when every sub-condition matches the same fact set.
type AllCondition struct {
	Conditions []Condition
}

func (AllCondition) Kind() ConditionKind { return CondAll }

// AnyCondition matches when at least one sub-condition matches.
type AnyCondition struct {
	Conditions []Condition
}

func (AnyCondition) Kind() ConditionKind { return CondAny }

// NotCondition negates its sub-condition.
type NotCondition struct {
	Condition Condition
}

func (NotCondition) Kind() ConditionKind { return CondNot }

// #endregion condition-union

// #region scope

// Scope restricts content scanning to an allow/deny list of path patterns.
// It applies only where file content is inspected; structural conditions
// ignore it.
type Scope struct {
	Include []string `yaml:"include" json:"include,omitempty"`
	Exclude []string `yaml:"exclude" json:"exclude,omitempty"`
}

// #endregion scope
