package gate

import (
	"errors"
	"fmt"
	pathpkg "path"
	"regexp"
	"strings"

	"github.com/specgate/specgate/internal/facts"
	"github.com/specgate/specgate/internal/rules"
)

// ErrUnknownCondition reports a condition whose dynamic type the evaluator
// does not handle. It is a configuration defect in the rule set.
var ErrUnknownCondition = errors.New("unknown condition kind")

// #region matches

// Matches reports whether a condition holds against a fact set. Evaluation is
// purely structural and side-effect free. The only error paths are
// configuration defects: an unknown condition type or an uncompilable regex
// pattern.
func Matches(cond rules.Condition, fs []facts.Fact, scope *rules.Scope) (bool, error) {
	switch c := cond.(type) {
	case rules.FileChangeCondition:
		for _, f := range fs {
			fc, ok := f.(facts.FileChange)
			if !ok {
				continue
			}
			if fileChangeMatches(c, fc) {
				return true, nil
			}
		}
		return false, nil
	case rules.FileContentCondition:
		for _, f := range fs {
			fc, ok := f.(facts.FileContent)
			if !ok {
				continue
			}
			if !ScopeAllows(scope, fc.Path) {
				continue
			}
			matched, err := fileContentMatches(c, fc)
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}
		return false, nil
	case rules.DependencyCondition:
		for _, f := range fs {
			dep, ok := f.(facts.Dependency)
			if !ok {
				continue
			}
			if dependencyMatches(c, dep) {
				return true, nil
			}
		}
		return false, nil
	case rules.HeuristicCondition:
		for _, f := range fs {
			h, ok := f.(facts.Heuristic)
			if !ok {
				continue
			}
			if heuristicMatches(c, h) {
				return true, nil
			}
		}
		return false, nil
	case rules.AllCondition:
		for _, sub := range c.Conditions {
			matched, err := Matches(sub, fs, scope)
			if err != nil {
				return false, err
			}
			if !matched {
				return false, nil
			}
		}
		return true, nil
	case rules.AnyCondition:
		for _, sub := range c.Conditions {
			matched, err := Matches(sub, fs, scope)
			if err != nil {
				return false, err
			}
			if matched {
				return true, nil
			}
		}
		return false, nil
	case rules.NotCondition:
		matched, err := Matches(c.Condition, fs, scope)
		if err != nil {
			return false, err
		}
		return !matched, nil
	default:
		return false, fmt.Errorf("%w %T", ErrUnknownCondition, cond)
	}
}

// #endregion matches

// #region leaf-matchers

func fileChangeMatches(c rules.FileChangeCondition, f facts.FileChange) bool {
	if c.PathPrefix != "" && !strings.HasPrefix(f.Path, c.PathPrefix) {
		return false
	}
	if c.ChangeType != "" && c.ChangeType != string(f.ChangeType) {
		return false
	}
	return true
}

func fileContentMatches(c rules.FileContentCondition, f facts.FileContent) (bool, error) {
	for _, needle := range c.Contains {
		if !strings.Contains(f.Content, needle) {
			return false, nil
		}
	}
	for _, pattern := range c.Regex {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("compile pattern %q: %w", pattern, err)
		}
		if !re.MatchString(f.Content) {
			return false, nil
		}
	}
	return true, nil
}

func dependencyMatches(c rules.DependencyCondition, f facts.Dependency) bool {
	if c.From != "" && c.From != f.From {
		return false
	}
	if c.To != "" && c.To != f.To {
		return false
	}
	return true
}

func heuristicMatches(c rules.HeuristicCondition, f facts.Heuristic) bool {
	if c.RuleID != "" && c.RuleID != f.RuleID {
		return false
	}
	if c.Code != "" && c.Code != f.Code {
		return false
	}
	if c.FilePathPrefix != "" && !strings.HasPrefix(f.FilePath, c.FilePathPrefix) {
		return false
	}
	return true
}

// #endregion leaf-matchers

// #region scope

// ScopeAllows reports whether a path passes the scope allow/deny lists.
// A nil scope allows everything; an include list requires at least one hit.
func ScopeAllows(scope *rules.Scope, path string) bool {
	if scope == nil {
		return true
	}
	for _, pattern := range scope.Exclude {
		if matchScopePattern(pattern, path) {
			return false
		}
	}
	if len(scope.Include) == 0 {
		return true
	}
	for _, pattern := range scope.Include {
		if matchScopePattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchScopePattern matches a path against one scope pattern. Plain patterns
// are directory prefixes; glob patterns go through path.Match, with a
// trailing wildcard widened to a prefix so "apps/backend/*" also covers
// nested files (glob stars never cross separators).
func matchScopePattern(pattern, path string) bool {
	if !strings.ContainsAny(pattern, "*?[") {
		return strings.HasPrefix(path, pattern)
	}
	if ok, err := pathpkg.Match(pattern, path); err == nil && ok {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(path, strings.TrimRight(pattern, "*"))
	}
	return false
}

// #endregion scope
