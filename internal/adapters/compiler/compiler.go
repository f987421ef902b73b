// Package compiler runs the external stylesheet compiler.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/brianly1003/lobo/internal/domain"
	"github.com/brianly1003/lobo/internal/domain/ports"
	"github.com/rs/zerolog/log"
)

// Argument placeholders substituted per compile.
const (
	SourcePlaceholder = "{source}"
	OutputPlaceholder = "{output}"
)

// waitDelay bounds how long Run waits for output pipes after the process
// was killed, in case it left children holding them.
const waitDelay = 2 * time.Second

// Options configures the external command.
type Options struct {
	// Command is the executable name or path, e.g. "lessc".
	Command string

	// Args may reference {source} and {output}. When {source} is absent the
	// source path is appended. When {output} is absent stdout becomes the
	// output file.
	Args []string

	// Timeout bounds a single compile. Zero means no limit.
	Timeout time.Duration
}

// Exec compiles by running Options.Command without a shell.
type Exec struct {
	command string
	args    []string
	timeout time.Duration
}

// New creates an exec compiler.
func New(opts Options) *Exec {
	cmd := opts.Command
	if cmd == "" {
		cmd = "lessc"
	}
	return &Exec{
		command: cmd,
		args:    append([]string(nil), opts.Args...),
		timeout: opts.Timeout,
	}
}

// Command returns the configured executable.
func (c *Exec) Command() string {
	return c.command
}

// Available resolves the command on PATH.
func (c *Exec) Available() (string, error) {
	return exec.LookPath(c.command)
}

// Compile implements ports.Compiler.
func (c *Exec) Compile(ctx context.Context, source, output string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args, toStdout := c.expand(source, output)

	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.Dir = filepath.Dir(source)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stderr = &stderr
	if toStdout {
		cmd.Stdout = &stdout
	}

	log.Debug().
		Str("command", c.command).
		Strs("args", args).
		Str("source", source).
		Msg("running compiler")

	if err := cmd.Run(); err != nil {
		exitCode := 0
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return domain.NewCompileError(source, err, exitCode, stderr.String())
	}

	if toStdout {
		if err := writeFile(output, stdout.Bytes()); err != nil {
			return domain.NewCompileError(source, err, 0, "")
		}
	}

	return nil
}

// expand substitutes placeholders and reports whether stdout must be
// captured into the output file.
func (c *Exec) expand(source, output string) ([]string, bool) {
	args := make([]string, 0, len(c.args)+1)
	hasSource, hasOutput := false, false

	for _, a := range c.args {
		if strings.Contains(a, SourcePlaceholder) {
			hasSource = true
		}
		if strings.Contains(a, OutputPlaceholder) {
			hasOutput = true
		}
		a = strings.ReplaceAll(a, SourcePlaceholder, source)
		a = strings.ReplaceAll(a, OutputPlaceholder, output)
		args = append(args, a)
	}

	if !hasSource {
		args = append(args, source)
	}
	return args, !hasOutput
}

// writeFile replaces path atomically with data.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp output: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close output: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod output: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace output: %w", err)
	}
	return nil
}

var _ ports.Compiler = (*Exec)(nil)
