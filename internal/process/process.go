// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/matt-FFFFFF/prun/internal/cmdspec"
	"github.com/matt-FFFFFF/prun/internal/ctxlog"
)

var (
	// ErrCouldNotStartProcess is returned when the operating system could not create the process.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrWaitFailed is returned when the result of a started process could not be collected.
	ErrWaitFailed = errors.New("failed to wait for process")
)

// Result is the outcome of a process that has terminated.
type Result struct {
	ExitCode int    // -1 when the process was terminated by a signal
	StdOut   []byte // everything the process wrote to stdout
	StdErr   []byte // everything the process wrote to stderr
}

// Success reports whether the process exited with status zero.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Waiter blocks until one specific process terminates.
type Waiter interface {
	Wait() (*Result, error)
}

// Spawner starts processes.
type Spawner interface {
	Start(ctx context.Context, spec *cmdspec.Spec) (Waiter, error)
}

var _ Spawner = OSSpawner{}

// OSSpawner starts real operating system processes.
type OSSpawner struct{}

// Start implements Spawner.
func (OSSpawner) Start(ctx context.Context, spec *cmdspec.Spec) (Waiter, error) {
	h, err := Start(ctx, spec)
	if err != nil {
		return nil, err
	}

	return h, nil
}

var _ Waiter = (*Handle)(nil)

// Handle is a started process.
type Handle struct {
	cmd    *exec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer
	label  string
	logger *slog.Logger
}

// Start creates the process described by spec. Stdin is inherited.
// The returned error wraps ErrCouldNotStartProcess and the operating system error.
func Start(ctx context.Context, spec *cmdspec.Spec) (*Handle, error) {
	h := &Handle{
		label:  spec.String(),
		logger: ctxlog.Logger(ctx).With("command", spec.String()),
	}

	// not CommandContext: a started command always runs to completion
	cmd := exec.Command(spec.Program, spec.Args...) //nolint:gosec
	cmd.Stdin = os.Stdin
	cmd.Stdout = &h.stdout
	cmd.Stderr = &h.stderr
	h.cmd = cmd

	if err := cmd.Start(); err != nil {
		h.logger.Debug("process start failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrCouldNotStartProcess, err)
	}

	h.logger = h.logger.With("pid", h.Pid())
	h.logger.Debug("process started")

	return h, nil
}

// Pid returns the operating system process id.
func (h *Handle) Pid() int {
	return h.cmd.Process.Pid
}

// Wait blocks until the process has exited and its output has been fully collected.
// A non-zero exit status is not an error, it is reported in Result.ExitCode.
// Any other failure is returned wrapped in ErrWaitFailed.
func (h *Handle) Wait() (*Result, error) {
	err := h.cmd.Wait()

	var exitErr *exec.ExitError

	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		err = nil
	default:
		h.logger.Error("process wait failed", "error", err)
		return nil, fmt.Errorf("%w %q: %w", ErrWaitFailed, h.label, err)
	}

	res := &Result{
		ExitCode: h.cmd.ProcessState.ExitCode(),
		StdOut:   h.stdout.Bytes(),
		StdErr:   h.stderr.Bytes(),
	}

	h.logger.Debug("process finished",
		"exitCode", res.ExitCode,
		"stdoutBytes", len(res.StdOut),
		"stderrBytes", len(res.StdErr))

	return res, nil
}
