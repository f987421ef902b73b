// Package pathutil provides cross-platform path helpers shared by the
// config, registry and watcher packages.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ExpandHome replaces a leading "~" with the user's home directory. Paths
// that do not start with "~" or "~/" are returned unchanged, as is the
// input when the home directory cannot be resolved.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// Absolute expands "~" and returns the cleaned absolute form of path.
func Absolute(path string) (string, error) {
	return filepath.Abs(ExpandHome(path))
}

// Within reports whether path is root or below it. Both are compared
// lexically, so callers should pass cleaned absolute paths.
func Within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
