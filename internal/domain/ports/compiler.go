package ports

import "context"

// Compiler turns a source stylesheet into its derived artifact.
type Compiler interface {
	// Compile writes the artifact for source to output. It blocks until
	// the external compiler exits.
	Compile(ctx context.Context, source, output string) error
}
