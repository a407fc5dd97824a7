package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// #region yaml-docs

// ruleFileDoc is the YAML shape of a rule-set file.
type ruleFileDoc struct {
	Rules []ruleDoc `yaml:"rules"`
}

type ruleDoc struct {
	ID          string         `yaml:"id"`
	Description string         `yaml:"description"`
	Severity    string         `yaml:"severity"`
	When        *conditionDoc  `yaml:"when"`
	Then        consequenceDoc `yaml:"then"`
	Scope       *Scope         `yaml:"scope"`
}

type consequenceDoc struct {
	Message string `yaml:"message"`
	Code    string `yaml:"code"`
}

// conditionDoc is the single YAML node shape for every condition kind; the
// kind field selects which of the remaining fields are meaningful.
type conditionDoc struct {
	Kind  string `yaml:"kind"`
	Where struct {
		PathPrefix     string `yaml:"pathPrefix"`
		ChangeType     string `yaml:"changeType"`
		From           string `yaml:"from"`
		To             string `yaml:"to"`
		RuleID         string `yaml:"ruleId"`
		Code           string `yaml:"code"`
		FilePathPrefix string `yaml:"filePathPrefix"`
	} `yaml:"where"`
	Contains   []string       `yaml:"contains"`
	Regex      []string       `yaml:"regex"`
	Conditions []conditionDoc `yaml:"conditions"`
	Condition  *conditionDoc  `yaml:"condition"`
}

// #endregion yaml-docs

// #region load

// Load reads and validates a YAML rule-set file.
func Load(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule set: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML rule-set document. Every rule must carry an id, a
// known severity, and a decodable condition.
func Parse(data []byte) (RuleSet, error) {
	var doc ruleFileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rule set: %w", err)
	}

	set := make(RuleSet, 0, len(doc.Rules))
	for i, rd := range doc.Rules {
		rule, err := rd.toRule()
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rd.ID, err)
		}
		set = append(set, rule)
	}
	return set, nil
}

func (rd ruleDoc) toRule() (Rule, error) {
	if rd.ID == "" {
		return Rule{}, fmt.Errorf("missing id")
	}
	sev := Severity(rd.Severity)
	if !sev.Valid() {
		return Rule{}, fmt.Errorf("unknown severity %q", rd.Severity)
	}
	if rd.When == nil {
		return Rule{}, fmt.Errorf("missing when condition")
	}
	cond, err := rd.When.toCondition()
	if err != nil {
		return Rule{}, err
	}
	if rd.Then.Message == "" {
		return Rule{}, fmt.Errorf("missing then.message")
	}
	return Rule{
		ID:          rd.ID,
		Description: rd.Description,
		Severity:    sev,
		When:        cond,
		Then:        Consequence{Message: rd.Then.Message, Code: rd.Then.Code},
		Scope:       rd.Scope,
	}, nil
}

func (cd conditionDoc) toCondition() (Condition, error) {
	switch ConditionKind(cd.Kind) {
	case CondFileChange:
		return FileChangeCondition{
			PathPrefix: cd.Where.PathPrefix,
			ChangeType: cd.Where.ChangeType,
		}, nil
	case CondFileContent:
		if len(cd.Contains) == 0 && len(cd.Regex) == 0 {
			return nil, fmt.Errorf("FileContent condition needs contains or regex")
		}
		return FileContentCondition{Contains: cd.Contains, Regex: cd.Regex}, nil
	case CondDependency:
		return DependencyCondition{From: cd.Where.From, To: cd.Where.To}, nil
	case CondHeuristic:
		return HeuristicCondition{
			RuleID:         cd.Where.RuleID,
			Code:           cd.Where.Code,
			FilePathPrefix: cd.Where.FilePathPrefix,
		}, nil
	case CondAll, CondAny:
		if len(cd.Conditions) == 0 {
			return nil, fmt.Errorf("%s condition needs sub-conditions", cd.Kind)
		}
		subs := make([]Condition, 0, len(cd.Conditions))
		for _, sub := range cd.Conditions {
			c, err := sub.toCondition()
			if err != nil {
				return nil, err
			}
			subs = append(subs, c)
		}
		if ConditionKind(cd.Kind) == CondAll {
			return AllCondition{Conditions: subs}, nil
		}
		return AnyCondition{Conditions: subs}, nil
	case CondNot:
		if cd.Condition == nil {
			return nil, fmt.Errorf("Not condition needs a sub-condition")
		}
		sub, err := cd.Condition.toCondition()
		if err != nil {
			return nil, err
		}
		return NotCondition{Condition: sub}, nil
	default:
		return nil, fmt.Errorf("unknown condition kind %q", cd.Kind)
	}
}

// #endregion load
