package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// #region parse-tests

func TestParse_AllConditionKinds(t *testing.T) {
	doc := `
rules:
  - id: change-rule
    severity: INFO
    when:
      kind: FileChange
      where:
        pathPrefix: apps/backend/
        changeType: modified
    then:
      message: backend file touched
  - id: content-rule
    severity: WARN
    when:
      kind: FileContent
      contains: ["console.log"]
      regex: ["TODO\\b"]
    then:
      message: debug output left in source
      code: NO_CONSOLE
    scope:
      include: ["apps/backend/*"]
      exclude: ["apps/backend/vendor/"]
  - id: dep-rule
    severity: ERROR
    when:
      kind: Dependency
      where:
        from: apps/web
        to: apps/internal-core
    then:
      message: forbidden dependency edge
  - id: heuristics.ts.hardcoded-secret-token.ast
    severity: CRITICAL
    when:
      kind: Heuristic
      where:
        ruleId: heuristics.ts.hardcoded-secret-token.ast
    then:
      message: hardcoded secret detected
  - id: composite-rule
    severity: WARN
    when:
      kind: All
      conditions:
        - kind: FileChange
          where:
            pathPrefix: apps/
        - kind: Not
          condition:
            kind: Dependency
            where:
              from: apps/web
    then:
      message: composite matched
`
	set, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set) != 5 {
		t.Fatalf("expected 5 rules, got %d", len(set))
	}

	if _, ok := set[0].When.(FileChangeCondition); !ok {
		t.Errorf("rule 0: expected FileChangeCondition, got %T", set[0].When)
	}
	content, ok := set[1].When.(FileContentCondition)
	if !ok {
		t.Fatalf("rule 1: expected FileContentCondition, got %T", set[1].When)
	}
	if len(content.Contains) != 1 || content.Contains[0] != "console.log" {
		t.Errorf("rule 1: unexpected contains %v", content.Contains)
	}
	if set[1].Then.Code != "NO_CONSOLE" {
		t.Errorf("rule 1: expected code NO_CONSOLE, got %q", set[1].Then.Code)
	}
	if set[1].Scope == nil || len(set[1].Scope.Include) != 1 {
		t.Errorf("rule 1: expected scope with one include, got %+v", set[1].Scope)
	}
	if _, ok := set[2].When.(DependencyCondition); !ok {
		t.Errorf("rule 2: expected DependencyCondition, got %T", set[2].When)
	}
	if _, ok := set[3].When.(HeuristicCondition); !ok {
		t.Errorf("rule 3: expected HeuristicCondition, got %T", set[3].When)
	}

	all, ok := set[4].When.(AllCondition)
	if !ok {
		t.Fatalf("rule 4: expected AllCondition, got %T", set[4].When)
	}
	if len(all.Conditions) != 2 {
		t.Fatalf("rule 4: expected 2 sub-conditions, got %d", len(all.Conditions))
	}
	if _, ok := all.Conditions[1].(NotCondition); !ok {
		t.Errorf("rule 4: expected nested NotCondition, got %T", all.Conditions[1])
	}
}

func TestParse_MissingID(t *testing.T) {
	doc := `
rules:
  - severity: WARN
    when:
      kind: FileChange
    then:
      message: anonymous
`
	_, err := Parse([]byte(doc))
	if err == nil || !strings.Contains(err.Error(), "missing id") {
		t.Fatalf("expected missing id error, got %v", err)
	}
}

func TestParse_UnknownSeverity(t *testing.T) {
	doc := `
rules:
  - id: r1
    severity: FATAL
    when:
      kind: FileChange
    then:
      message: m
`
	_, err := Parse([]byte(doc))
	if err == nil || !strings.Contains(err.Error(), "unknown severity") {
		t.Fatalf("expected unknown severity error, got %v", err)
	}
}

func TestParse_UnknownConditionKind(t *testing.T) {
	doc := `
rules:
  - id: r1
    severity: WARN
    when:
      kind: GitBlame
    then:
      message: m
`
	_, err := Parse([]byte(doc))
	if err == nil || !strings.Contains(err.Error(), "unknown condition kind") {
		t.Fatalf("expected unknown condition kind error, got %v", err)
	}
	if !strings.Contains(err.Error(), "r1") {
		t.Errorf("expected error to name the rule, got %v", err)
	}
}

func TestParse_ContentNeedsMatcher(t *testing.T) {
	doc := `
rules:
  - id: r1
    severity: WARN
    when:
      kind: FileContent
    then:
      message: m
`
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("expected error for FileContent without contains or regex")
	}
}

func TestParse_NotNeedsSubCondition(t *testing.T) {
	doc := `
rules:
  - id: r1
    severity: WARN
    when:
      kind: Not
    then:
      message: m
`
	_, err := Parse([]byte(doc))
	if err == nil {
		t.Fatal("expected error for Not without a sub-condition")
	}
}

func TestParse_MissingMessage(t *testing.T) {
	doc := `
rules:
  - id: r1
    severity: WARN
    when:
      kind: FileChange
    then:
      code: CODE_ONLY
`
	_, err := Parse([]byte(doc))
	if err == nil || !strings.Contains(err.Error(), "then.message") {
		t.Fatalf("expected missing message error, got %v", err)
	}
}

// #endregion parse-tests

// #region load-tests

func TestLoad_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	doc := `
rules:
  - id: r1
    severity: INFO
    when:
      kind: FileChange
      where:
        changeType: deleted
    then:
      message: file removed
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	set, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(set) != 1 || set[0].ID != "r1" {
		t.Fatalf("unexpected rule set %+v", set)
	}
	fc := set[0].When.(FileChangeCondition)
	if fc.ChangeType != "deleted" {
		t.Errorf("expected changeType deleted, got %q", fc.ChangeType)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing rules file")
	}
}

// #endregion load-tests
