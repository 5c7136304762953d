// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matt-FFFFFF/prun/internal/cmdspec"
	"github.com/matt-FFFFFF/prun/internal/process"
	"github.com/matt-FFFFFF/prun/internal/shellmode"
	"github.com/matt-FFFFFF/prun/internal/sink"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeSpawner interprets the program name as a script:
//
//	ok <name> <delayMs>    prints name on stdout and exits 0 after delay
//	fail <name> <delayMs>  prints name on stderr and exits 1 after delay
//	missing                cannot be started
//	waitfail               started, but collecting the result fails
type fakeSpawner struct {
	mu       sync.Mutex
	live     int
	peak     int
	started  []string
	finished []string
	waited   []string
}

var errFakeNotFound = errors.New("executable file not found")

func (f *fakeSpawner) Start(_ context.Context, spec *cmdspec.Spec) (process.Waiter, error) {
	if spec.Program == "missing" {
		return nil, fmt.Errorf("%w: %w", process.ErrCouldNotStartProcess, errFakeNotFound)
	}

	name := spec.String()
	if len(spec.Args) > 0 {
		name = spec.Args[0]
	}

	var delay time.Duration

	if len(spec.Args) > 1 {
		var ms int

		_, _ = fmt.Sscanf(spec.Args[1], "%d", &ms)
		delay = time.Duration(ms) * time.Millisecond
	}

	f.mu.Lock()
	f.live++
	f.peak = max(f.peak, f.live)
	f.started = append(f.started, name)
	f.mu.Unlock()

	w := &fakeWaiter{f: f, program: spec.Program, name: name, done: make(chan struct{})}

	go func() {
		time.Sleep(delay)
		f.mu.Lock()
		f.finished = append(f.finished, name)
		f.mu.Unlock()
		close(w.done)
	}()

	return w, nil
}

type fakeWaiter struct {
	f       *fakeSpawner
	program string
	name    string
	done    chan struct{}
}

func (w *fakeWaiter) Wait() (*process.Result, error) {
	<-w.done

	w.f.mu.Lock()
	w.f.live--
	w.f.waited = append(w.f.waited, w.name)
	w.f.mu.Unlock()

	switch w.program {
	case "waitfail":
		return nil, fmt.Errorf("%w: lost child", process.ErrWaitFailed)
	case "fail":
		return &process.Result{ExitCode: 1, StdErr: []byte(w.name + "\n")}, nil
	default:
		return &process.Result{ExitCode: 0, StdOut: []byte(w.name + "\n")}, nil
	}
}

func newTestScheduler(t *testing.T, maxParallel int, spawner process.Spawner) (*Scheduler, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	s, err := New(Options{
		Mode:        shellmode.Direct,
		MaxParallel: maxParallel,
		Spawner:     spawner,
		Stdout:      &stdout,
		Stderr:      &stderr,
	})
	require.NoError(t, err)

	return s, &stdout, &stderr
}

func TestNew_InvalidMaxParallel(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := New(Options{MaxParallel: n})
		require.ErrorIs(t, err, ErrInvalidMaxParallel)
	}
}

func TestNew_Defaults(t *testing.T) {
	s, err := New(Options{MaxParallel: 1})
	require.NoError(t, err)
	assert.IsType(t, process.OSSpawner{}, s.spawner)
	assert.NotNil(t, s.sink)
	assert.NotNil(t, s.diag)
}

func TestRun_RetiresInStartOrderNotCompletionOrder(t *testing.T) {
	f := &fakeSpawner{}
	s, stdout, _ := newTestScheduler(t, 3, f)

	tl, err := s.Run(context.Background(), []string{
		"ok A 150",
		"ok B 10",
		"ok C 0",
		"ok D 0",
	})
	require.NoError(t, err)

	assert.Equal(t, "A\nB\nC\nD\n", stdout.String())
	assert.Equal(t, []string{"A", "B", "C", "D"}, f.waited)
	assert.Equal(t, []string{"A", "B", "C", "D"}, f.started)
	assert.NotEqual(t, "A", f.finished[0], "A is the slowest and must not finish first")
	assert.Equal(t, 4, tl.OK())
	assert.Equal(t, 0, tl.ExitCode())
}

func TestRun_ConcurrencyNeverExceedsWindow(t *testing.T) {
	for _, window := range []int{1, 2, 3, 8} {
		t.Run(fmt.Sprintf("window %d", window), func(t *testing.T) {
			f := &fakeSpawner{}
			s, _, _ := newTestScheduler(t, window, f)

			cmds := make([]string, 12)
			for i := range cmds {
				cmds[i] = fmt.Sprintf("ok c%d %d", i, (i%4)*5)
			}

			tl, err := s.Run(context.Background(), cmds)
			require.NoError(t, err)
			assert.Equal(t, len(cmds), tl.Attempted())
			assert.LessOrEqual(t, f.peak, window)
			assert.Equal(t, min(window, len(cmds)), f.peak, "the window fills up")
		})
	}
}

func TestRun_EmptyCommandIsFatal(t *testing.T) {
	f := &fakeSpawner{}
	s, stdout, _ := newTestScheduler(t, 1, f)

	tl, err := s.Run(context.Background(), []string{"ok A 0", "ok B 0", "   ", "ok C 0"})
	require.ErrorIs(t, err, cmdspec.ErrEmptyCommand)

	// window of one: A and B were retired before the empty command was reached
	assert.Equal(t, []string{"A", "B"}, f.started)
	assert.Equal(t, "A\nB\n", stdout.String())
	assert.Equal(t, 2, tl.OK())
}

func TestRun_EmptyCommandFirstStartsNothing(t *testing.T) {
	f := &fakeSpawner{}
	s, stdout, stderr := newTestScheduler(t, 4, f)

	_, err := s.Run(context.Background(), []string{"", "ok A 0"})
	require.ErrorIs(t, err, cmdspec.ErrEmptyCommand)
	assert.Empty(t, f.started)
	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRun_EmptyCommandLeavesRunningCommandsAlone(t *testing.T) {
	f := &fakeSpawner{}
	s, stdout, _ := newTestScheduler(t, 4, f)

	_, err := s.Run(context.Background(), []string{"ok A 20", "", "ok B 0"})
	require.ErrorIs(t, err, cmdspec.ErrEmptyCommand)
	assert.Equal(t, []string{"A"}, f.started)
	assert.Empty(t, f.waited, "nothing is drained after a fatal error")
	assert.Empty(t, stdout.String())

	// let the fake finish so goleak is satisfied
	time.Sleep(50 * time.Millisecond)
}

func TestRun_SpawnFailureIsRecoverable(t *testing.T) {
	f := &fakeSpawner{}
	s, stdout, stderr := newTestScheduler(t, 2, f)

	tl, err := s.Run(context.Background(), []string{"ok A 0", "missing --flag", "ok B 0"})
	require.NoError(t, err)

	assert.Equal(t, "A\nB\n", stdout.String())
	assert.Equal(t,
		"Error running \"missing --flag\": could not start process: executable file not found\n",
		stderr.String())
	assert.Equal(t, 2, tl.OK())
	assert.Equal(t, 1, tl.Failed())
	require.ErrorIs(t, tl.Errors(), errFakeNotFound)
}

func TestRun_AllSpawnsFail(t *testing.T) {
	f := &fakeSpawner{}
	s, _, stderr := newTestScheduler(t, 2, f)

	tl, err := s.Run(context.Background(), []string{"missing", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(stderr.String(), "Error running"))
	assert.Equal(t, 1, tl.ExitCode())
}

func TestRun_RunFailuresAreTallied(t *testing.T) {
	f := &fakeSpawner{}
	s, stdout, stderr := newTestScheduler(t, 2, f)

	tl, err := s.Run(context.Background(), []string{"fail X 5", "ok Y 0", "fail Z 0"})
	require.NoError(t, err)

	assert.Equal(t, "Y\n", stdout.String())
	assert.Equal(t, "X\nZ\n", stderr.String(), "no diagnostic beyond the command's own output")
	assert.Equal(t, 1, tl.OK())
	assert.Equal(t, 2, tl.Failed())
	assert.Equal(t, 0, tl.ExitCode())
}

func TestRun_WaitFailureIsFatal(t *testing.T) {
	f := &fakeSpawner{}
	s, stdout, _ := newTestScheduler(t, 1, f)

	_, err := s.Run(context.Background(), []string{"ok A 0", "waitfail B 0", "ok C 0"})
	require.ErrorIs(t, err, process.ErrWaitFailed)
	assert.Equal(t, "A\n", stdout.String())
	assert.Equal(t, []string{"A", "B"}, f.started)
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestRun_SinkFailureIsFatal(t *testing.T) {
	s, err := New(Options{
		MaxParallel: 1,
		Spawner:     &fakeSpawner{},
		Stdout:      brokenWriter{},
		Stderr:      &bytes.Buffer{},
	})
	require.NoError(t, err)

	_, err = s.Run(context.Background(), []string{"ok A 0", "ok B 0"})
	require.ErrorIs(t, err, sink.ErrWrite)
}

func TestRun_EmptyList(t *testing.T) {
	f := &fakeSpawner{}
	s, stdout, stderr := newTestScheduler(t, 4, f)

	tl, err := s.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, tl.Attempted())
	assert.Equal(t, 0, tl.ExitCode())
	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRun_CancelledContextDrainsRunningCommands(t *testing.T) {
	f := &fakeSpawner{}
	s, stdout, _ := newTestScheduler(t, 2, f)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	tl, err := s.Run(ctx, []string{"ok A 100", "ok B 100", "ok C 0", "ok D 0"})
	require.ErrorIs(t, err, ErrInterrupted)
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "2 command(s) not started")

	assert.Equal(t, []string{"A", "B"}, f.started)
	assert.Equal(t, "A\nB\n", stdout.String())
	assert.Equal(t, 2, tl.OK())
}

func TestRun_CancelledAfterLastStartIsNotAnInterruption(t *testing.T) {
	f := &fakeSpawner{}
	s, stdout, _ := newTestScheduler(t, 2, f)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := s.Run(ctx, []string{"ok A 100", "ok B 0"})
	require.NoError(t, err)
	assert.Equal(t, "A\nB\n", stdout.String())
}

func TestRun_RealProcesses(t *testing.T) {
	testCases := []struct {
		name         string
		commands     []string
		maxParallel  int
		wantStdout   string
		wantOK       int
		wantFailed   int
		wantExitCode int
	}{
		{
			name:         "two echoes in parallel keep input order",
			commands:     []string{"echo A", "echo B"},
			maxParallel:  2,
			wantStdout:   "A\nB\n",
			wantOK:       2,
			wantExitCode: 0,
		},
		{
			name:         "sequential failure then success",
			commands:     []string{"false", "true"},
			maxParallel:  1,
			wantOK:       1,
			wantFailed:   1,
			wantExitCode: 0,
		},
		{
			name:         "every command fails",
			commands:     []string{"false", "false"},
			maxParallel:  3,
			wantFailed:   2,
			wantExitCode: 1,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, stdout, _ := newTestScheduler(t, tc.maxParallel, nil)

			tl, err := s.Run(context.Background(), tc.commands)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStdout, stdout.String())
			assert.Equal(t, tc.wantOK, tl.OK())
			assert.Equal(t, tc.wantFailed, tl.Failed())
			assert.Equal(t, tc.wantExitCode, tl.ExitCode())
		})
	}
}

func TestRun_SlowFirstCommandStillPrintsFirst(t *testing.T) {
	script := filepath.Join(t.TempDir(), "slow.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nsleep 0.3\necho slow\n"), 0o755))

	s, stdout, _ := newTestScheduler(t, 2, nil)

	tl, err := s.Run(context.Background(), []string{script, "echo fast"})
	require.NoError(t, err)
	assert.Equal(t, "slow\nfast\n", stdout.String())
	assert.Equal(t, 2, tl.OK())
}

func TestRun_RealProcessNotFound(t *testing.T) {
	s, _, stderr := newTestScheduler(t, 2, nil)

	tl, err := s.Run(context.Background(), []string{"prun-no-such-binary --help", "true"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stderr.String(), `Error running "prun-no-such-binary --help": `))
	assert.Equal(t, 1, tl.OK())
	assert.Equal(t, 1, tl.Failed())
}

func TestRun_ShellMode(t *testing.T) {
	if _, err := exec.LookPath(cmdspec.ShellProgram); err != nil {
		t.Skip("bash not available")
	}

	var stdout, stderr bytes.Buffer

	s, err := New(Options{
		Mode:        shellmode.Shell,
		MaxParallel: 2,
		Stdout:      &stdout,
		Stderr:      &stderr,
	})
	require.NoError(t, err)

	tl, err := s.Run(context.Background(), []string{
		`sleep 0.1; echo "one  two" | tr a-z A-Z`,
		`echo oops >&2; exit 4`,
		"",
	})
	require.NoError(t, err, "an empty string is a valid shell command")
	assert.Equal(t, "ONE  TWO\n", stdout.String())
	assert.Equal(t, "oops\n", stderr.String())
	assert.Equal(t, 2, tl.OK())
	assert.Equal(t, 1, tl.Failed())
}
