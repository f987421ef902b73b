package watcher

import (
	"path/filepath"
	"strings"
)

// matcher reports whether a path should be ignored based on glob patterns
// matched against each path component.
type matcher struct {
	patterns []string
}

func (m matcher) match(path string) bool {
	if len(m.patterns) == 0 {
		return false
	}

	parts := splitPath(path)
	for _, pattern := range m.patterns {
		for _, part := range parts {
			if matched, _ := filepath.Match(pattern, part); matched {
				return true
			}
		}
	}

	return false
}

// matchUnder matches only the components of path below root, so a root
// that itself sits inside an ignored directory still reports its files.
func (m matcher) matchUnder(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return m.match(path)
	}
	return m.match(rel)
}

// splitPath splits a path into its components.
func splitPath(path string) []string {
	var parts []string
	for path != "" && path != "/" && path != "." {
		dir, file := filepath.Split(path)
		if file != "" {
			parts = append([]string{file}, parts...)
		}
		next := filepath.Clean(dir)
		if next == path {
			break
		}
		path = next
	}
	return parts
}
