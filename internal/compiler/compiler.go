// Package compiler runs the TypeScript compiler over the synced source tree.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	"github.com/savaki/grader-deployer/internal/config"
)

// failureMarker is the text whose presence in the compiler output marks a
// failed build. The match is case sensitive and may hit unrelated lines.
const failureMarker = "error"

// Runner runs a command and returns its combined stdout and stderr
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec
type ExecRunner struct {
	Dir string // Working directory; empty means the current directory
}

// Run implements Runner
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	return cmd.CombinedOutput()
}

// Result is the outcome of one compiler run
type Result struct {
	Output   string // Captured output, decoded as text
	OK       bool   // False when Output contains the failure marker
	ExitCode int
}

// Compiler invokes the configured compiler command
type Compiler struct {
	runner   Runner
	settings config.Compiler
}

// New creates a Compiler
func New(runner Runner, settings config.Compiler) *Compiler {
	return &Compiler{
		runner:   runner,
		settings: settings,
	}
}

// Succeeded reports whether output describes a successful build
func Succeeded(output string) bool {
	return !strings.Contains(output, failureMarker)
}

// Compile runs the compiler and judges the captured output. A process that
// exits non-zero is still judged by its output alone. An error is returned
// only when the process could not be run at all.
func (c *Compiler) Compile(ctx context.Context) (Result, error) {
	logger := zerolog.Ctx(ctx)
	args := c.settings.Args()

	logger.Info().
		Str("command", c.settings.Command).
		Strs("args", args).
		Msg("Compiling")

	data, err := c.runner.Run(ctx, c.settings.Command, args...)

	result := Result{Output: string(data)}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("failed to run %s: %w", c.settings.Command, err)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	result.OK = Succeeded(result.Output)
	if result.OK && result.ExitCode != 0 {
		logger.Warn().
			Int("exit_code", result.ExitCode).
			Msg("Compiler exited non-zero but reported no error")
	}

	return result, nil
}
