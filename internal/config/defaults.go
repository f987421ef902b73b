package config

// DefaultStoreKey is the store key holding the watched directory list.
const DefaultStoreKey = "watched_directories"

// DefaultBackend is the notification backend used when none is configured.
const DefaultBackend = "notify"

// DefaultCompilerArgs asks lessc for compressed output.
var DefaultCompilerArgs = []string{"-x"}

// DefaultIgnorePatterns are path components never descended into or
// compiled from. Users can override via config.yaml: watcher.ignore_patterns
var DefaultIgnorePatterns = []string{
	".git",
	".svn",
	".hg",
	"node_modules",
	"bower_components",
	".cache",
	".idea",
	".vscode",
	"*.swp",
	"*~",
}
