package evidence

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// #region read-result

// ReadKind classifies what was found on disk.
type ReadKind string

const (
	ReadOK      ReadKind = "ok"
	ReadMissing ReadKind = "missing"
	ReadInvalid ReadKind = "invalid"
)

// ReadResult carries the prior document when one could be decoded. Version
// is set when a document parsed but declared an unreadable schema.
type ReadResult struct {
	Kind     ReadKind
	Version  string
	Document *Document
}

// #endregion read-result

// #region read

// Read loads the previous run's evidence document. Decoding is lenient:
// optional fields absent in older documents default to empty, which is all
// the backward compatibility the schema requires. Only an unparseable file
// or a foreign major version is invalid.
func Read(repoRoot string) ReadResult {
	data, err := os.ReadFile(filepath.Join(repoRoot, FileName))
	if err != nil {
		return ReadResult{Kind: ReadMissing}
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return ReadResult{Kind: ReadInvalid}
	}
	if doc.Version != Version {
		return ReadResult{Kind: ReadInvalid, Version: doc.Version}
	}
	return ReadResult{Kind: ReadOK, Version: doc.Version, Document: &doc}
}

// #endregion read
