package session

import (
	"os"
	"path/filepath"
)

// #region change-paths

// ChangeExists reports whether an active change directory is present under
// openspec/changes.
func ChangeExists(repoRoot, changeID string) bool {
	return dirExists(filepath.Join(repoRoot, "openspec", "changes", changeID))
}

// ChangeArchived reports whether the change sits under the archive path,
// which disqualifies it as an active session target.
func ChangeArchived(repoRoot, changeID string) bool {
	return dirExists(filepath.Join(repoRoot, "openspec", "changes", "archive", changeID))
}

// ProjectInitialized reports whether the repository carries an openspec
// directory at all.
func ProjectInitialized(repoRoot string) bool {
	return dirExists(filepath.Join(repoRoot, "openspec"))
}

func dirExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// #endregion change-paths
