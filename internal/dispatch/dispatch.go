// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/matt-FFFFFF/prun/internal/cmdspec"
	"github.com/matt-FFFFFF/prun/internal/ctxlog"
	"github.com/matt-FFFFFF/prun/internal/process"
	"github.com/matt-FFFFFF/prun/internal/shellmode"
	"github.com/matt-FFFFFF/prun/internal/sink"
	"github.com/matt-FFFFFF/prun/internal/tally"
)

// DefaultMaxParallel is the number of commands in flight when none is configured.
const DefaultMaxParallel = 4

var (
	// ErrInvalidMaxParallel is returned by New when MaxParallel is below one.
	ErrInvalidMaxParallel = errors.New("max parallel must be at least 1")
	// ErrInterrupted is returned by Run when the context was cancelled before every command was started.
	ErrInterrupted = errors.New("batch interrupted")
)

// Options configures a Scheduler.
type Options struct {
	Mode        shellmode.Mode
	MaxParallel int
	// Spawner defaults to process.OSSpawner.
	Spawner process.Spawner
	// Stdout and Stderr receive command output. Stderr also receives start failure diagnostics.
	// They default to os.Stdout and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// Scheduler runs batches of commands. A Scheduler runs one batch at a time.
type Scheduler struct {
	mode        shellmode.Mode
	maxParallel int
	spawner     process.Spawner
	sink        *sink.Sink
	diag        io.Writer
}

type inflight struct {
	spec   *cmdspec.Spec
	waiter process.Waiter
}

// New validates opts and returns a Scheduler.
func New(opts Options) (*Scheduler, error) {
	if opts.MaxParallel < 1 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidMaxParallel, opts.MaxParallel)
	}

	if opts.Spawner == nil {
		opts.Spawner = process.OSSpawner{}
	}

	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	return &Scheduler{
		mode:        opts.Mode,
		maxParallel: opts.MaxParallel,
		spawner:     opts.Spawner,
		sink:        sink.New(opts.Stdout, opts.Stderr),
		diag:        opts.Stderr,
	}, nil
}

// Run executes commands in order and returns the tally of their outcomes.
//
// The returned error is fatal and the tally is then incomplete: an empty command in direct
// mode (cmdspec.ErrEmptyCommand), a failure to collect a process result (process.ErrWaitFailed),
// a failure to forward output (sink.ErrWrite), or ErrInterrupted.
// Commands already running when a fatal error occurs are left to run on their own.
//
// Cancelling ctx stops new commands from starting. Running commands are still waited for and
// their output forwarded before ErrInterrupted is returned.
func (s *Scheduler) Run(ctx context.Context, commands []string) (*tally.Tally, error) {
	logger := ctxlog.Logger(ctx).With(
		"shell", s.mode.String(),
		"maxParallel", s.maxParallel,
	)
	logger.Debug("dispatch starting", "commands", len(commands))

	// owned copy, items only ever leave from the front
	pending := append([]string(nil), commands...)
	running := make([]inflight, 0, s.maxParallel)
	t := &tally.Tally{}

	for len(pending) > 0 || len(running) > 0 {
		if len(running) < s.maxParallel && len(pending) > 0 && ctx.Err() == nil {
			raw := pending[0]
			pending = pending[1:]

			spec, err := cmdspec.Build(raw, s.mode)
			if err != nil {
				logger.Debug("dispatch aborted", "command", raw, "error", err, "pending", len(pending))
				return t, err
			}

			w, err := s.spawner.Start(ctx, spec)
			if err != nil {
				t.RecordSpawnFailure(err)
				fmt.Fprintf(s.diag, "Error running \"%s\": %v\n", spec, err) //nolint:errcheck

				continue
			}

			running = append(running, inflight{spec: spec, waiter: w})
			logger.Debug("command started", "command", spec.String(), "running", len(running))

			continue
		}

		if len(running) == 0 {
			// interrupted with commands still pending
			break
		}

		oldest := running[0]
		running = running[1:]

		res, err := oldest.waiter.Wait()
		if err != nil {
			return t, err //nolint:wrapcheck
		}

		if err := s.sink.Emit(res); err != nil {
			return t, err //nolint:wrapcheck
		}

		t.RecordExit(oldest.spec.String(), res.ExitCode)
		logger.Debug("command retired",
			"command", oldest.spec.String(),
			"exitCode", res.ExitCode,
			"running", len(running))
	}

	if len(pending) > 0 {
		logger.Warn("dispatch interrupted", "notStarted", len(pending), "error", ctx.Err())
		return t, fmt.Errorf("%w: %d command(s) not started: %w", ErrInterrupted, len(pending), context.Cause(ctx))
	}

	logger.Debug("dispatch finished",
		"ok", t.OK(),
		"failed", t.Failed(),
		"errors", t.Errors())

	return t, nil
}
