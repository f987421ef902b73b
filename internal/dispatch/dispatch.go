// Package dispatch turns write-close notifications on watched directories
// into compiler invocations.
package dispatch

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianly1003/lobo/internal/domain/ports"
	"github.com/rs/zerolog/log"
)

// Owner reports whether a handle belongs to a registered directory.
type Owner interface {
	Owns(h ports.Handle) bool
}

// Observer receives compile phase transitions.
type Observer interface {
	CompileStarted(source, output string)
	CompileFinished(source, output string, elapsed time.Duration, err error)
}

// Options selects which files are compiled and what they compile to.
type Options struct {
	SourceExt string // e.g. ".less"
	TargetExt string // e.g. ".css"
}

// Dispatcher filters notifications and runs the compiler synchronously.
type Dispatcher struct {
	owner     Owner
	compiler  ports.Compiler
	observer  Observer
	sourceExt string
	targetExt string
}

// New creates a dispatcher. Empty extensions default to .less and .css.
func New(owner Owner, compiler ports.Compiler, observer Observer, opts Options) *Dispatcher {
	if opts.SourceExt == "" {
		opts.SourceExt = ".less"
	}
	if opts.TargetExt == "" {
		opts.TargetExt = ".css"
	}
	return &Dispatcher{
		owner:     owner,
		compiler:  compiler,
		observer:  observer,
		sourceExt: opts.SourceExt,
		targetExt: opts.TargetExt,
	}
}

// Dispatch handles one notification and reports whether a compile ran.
// Only write-close events from live subscriptions whose path carries the
// source extension are compiled.
func (d *Dispatcher) Dispatch(ctx context.Context, n ports.Notification) bool {
	if !n.Op.Has(ports.OpCloseWrite) {
		return false
	}
	if !d.owner.Owns(n.Handle) {
		log.Debug().
			Str("path", n.Path).
			Str("handle", string(n.Handle)).
			Msg("dropping event from stale subscription")
		return false
	}

	output, ok := OutputPath(n.Path, d.sourceExt, d.targetExt)
	if !ok {
		return false
	}

	d.Compile(ctx, n.Path, output)
	return true
}

// Compile runs the compiler for source and reports both phases to the
// observer. The compile error, if any, is returned as well.
func (d *Dispatcher) Compile(ctx context.Context, source, output string) error {
	d.observer.CompileStarted(source, output)

	start := time.Now()
	err := d.compiler.Compile(ctx, source, output)
	elapsed := time.Since(start)

	if err != nil {
		log.Warn().Err(err).Str("source", source).Dur("elapsed", elapsed).Msg("compile failed")
	} else {
		log.Debug().Str("source", source).Str("output", output).Dur("elapsed", elapsed).Msg("compiled")
	}

	d.observer.CompileFinished(source, output, elapsed, err)
	return err
}

// OutputPath replaces sourceExt on path with targetExt. It returns false
// when path does not end in sourceExt. The comparison is case-sensitive and
// leading dots of the file name never start an extension, so ".less" alone
// is not a source file.
func OutputPath(path, sourceExt, targetExt string) (string, bool) {
	ext := filepath.Ext(strings.TrimLeft(filepath.Base(path), "."))
	if ext == "" || ext != sourceExt {
		return "", false
	}
	return strings.TrimSuffix(path, ext) + targetExt, true
}
