package facts

import "github.com/specgate/specgate/internal/rules"

// #region fact-kinds

// Kind discriminates fact variants.
type Kind string

const (
	KindFileChange  Kind = "FileChange"
	KindFileContent Kind = "FileContent"
	KindDependency  Kind = "Dependency"
	KindHeuristic   Kind = "Heuristic"
)

// ChangeType enumerates how a file changed.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
	ChangeDeleted  ChangeType = "deleted"
)

// #endregion fact-kinds

// #region fact-union

// Fact is a closed union of atomic observations fed into rule evaluation:
// FileChange, FileContent, Dependency, Heuristic. Each carries a provenance
// tag naming the producer that observed it.
type Fact interface {
	Kind() Kind
	Provenance() string
}

// FileChange records that a tracked file was added, modified, or deleted.
type FileChange struct {
	Path       string
	ChangeType ChangeType
	Source     string
}

func (f FileChange) Kind() Kind         { return KindFileChange }
func (f FileChange) Provenance() string { return f.Source }

// FileContent carries the full content of one file for content scanning.
type FileContent struct {
	Path    string
	Content string
	Source  string
}

func (f FileContent) Kind() Kind         { return KindFileContent }
func (f FileContent) Provenance() string { return f.Source }

// Dependency records one edge of the module dependency graph.
type Dependency struct {
	From   string
	To     string
	Source string
}

func (f Dependency) Kind() Kind         { return KindDependency }
func (f Dependency) Provenance() string { return f.Source }

// Heuristic is a pre-materialized detector hit. Line is optional; zero means
// the detector reported no position.
type Heuristic struct {
	RuleID   string
	Severity rules.Severity
	Code     string
	Message  string
	FilePath string
	Line     int
	Source   string
}

func (f Heuristic) Kind() Kind         { return KindHeuristic }
func (f Heuristic) Provenance() string { return f.Source }

// #endregion fact-union
