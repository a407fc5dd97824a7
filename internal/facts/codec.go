package facts

import (
	"encoding/json"
	"fmt"

	"github.com/specgate/specgate/internal/rules"
)

// #region wire-shape

// factDoc is the JSON wire shape shared by all fact kinds; kind selects
// which fields are read. Fact producers emit arrays of these.
type factDoc struct {
	Kind       string `json:"kind"`
	Source     string `json:"source"`
	Path       string `json:"path,omitempty"`
	ChangeType string `json:"changeType,omitempty"`
	Content    string `json:"content,omitempty"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
	RuleID     string `json:"ruleId,omitempty"`
	Severity   string `json:"severity,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
	FilePath   string `json:"filePath,omitempty"`
	Line       int    `json:"line,omitempty"`
}

// #endregion wire-shape

// #region unmarshal

// Unmarshal decodes a JSON array of facts as produced by the detector layer.
// Unknown kinds are an error; producers and the engine must agree on the
// fact vocabulary.
func Unmarshal(data []byte) ([]Fact, error) {
	var docs []factDoc
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("parse facts: %w", err)
	}

	out := make([]Fact, 0, len(docs))
	for i, d := range docs {
		f, err := d.toFact()
		if err != nil {
			return nil, fmt.Errorf("fact %d: %w", i, err)
		}
		out = append(out, f)
	}
	return out, nil
}

func (d factDoc) toFact() (Fact, error) {
	switch Kind(d.Kind) {
	case KindFileChange:
		ct := ChangeType(d.ChangeType)
		if ct != ChangeAdded && ct != ChangeModified && ct != ChangeDeleted {
			return nil, fmt.Errorf("unknown changeType %q", d.ChangeType)
		}
		return FileChange{Path: d.Path, ChangeType: ct, Source: d.Source}, nil
	case KindFileContent:
		return FileContent{Path: d.Path, Content: d.Content, Source: d.Source}, nil
	case KindDependency:
		return Dependency{From: d.From, To: d.To, Source: d.Source}, nil
	case KindHeuristic:
		return Heuristic{
			RuleID:   d.RuleID,
			Severity: rules.Severity(d.Severity),
			Code:     d.Code,
			Message:  d.Message,
			FilePath: d.FilePath,
			Line:     d.Line,
			Source:   d.Source,
		}, nil
	default:
		return nil, fmt.Errorf("unknown fact kind %q", d.Kind)
	}
}

// #endregion unmarshal

// #region marshal

// Marshal encodes facts back to the JSON wire shape. Used by the replay
// fixture exporter and tests.
func Marshal(fs []Fact) ([]byte, error) {
	docs := make([]factDoc, 0, len(fs))
	for _, f := range fs {
		switch v := f.(type) {
		case FileChange:
			docs = append(docs, factDoc{Kind: string(KindFileChange), Source: v.Source, Path: v.Path, ChangeType: string(v.ChangeType)})
		case FileContent:
			docs = append(docs, factDoc{Kind: string(KindFileContent), Source: v.Source, Path: v.Path, Content: v.Content})
		case Dependency:
			docs = append(docs, factDoc{Kind: string(KindDependency), Source: v.Source, From: v.From, To: v.To})
		case Heuristic:
			docs = append(docs, factDoc{
				Kind: string(KindHeuristic), Source: v.Source, RuleID: v.RuleID,
				Severity: string(v.Severity), Code: v.Code, Message: v.Message,
				FilePath: v.FilePath, Line: v.Line,
			})
		default:
			return nil, fmt.Errorf("unknown fact type %T", f)
		}
	}
	return json.MarshalIndent(docs, "", "  ")
}

// #endregion marshal
