// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package tally counts command outcomes and turns them into the process exit code.
//
// A batch succeeds when at least one command succeeded, or when nothing failed.
// An empty batch is therefore a success.
package tally

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Exit codes returned by ExitCode.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// ErrNonZeroExit is recorded for each command that ran and exited unsuccessfully.
type ErrNonZeroExit struct {
	Command  string
	ExitCode int
}

// Error implements the error interface.
func (e *ErrNonZeroExit) Error() string {
	return fmt.Sprintf("%q exited with code %d", e.Command, e.ExitCode)
}

// Tally holds the counts. The zero value is ready to use.
// Counts only ever go up.
type Tally struct {
	ok     int
	failed int
	errs   *multierror.Error
}

// RecordSpawnFailure counts a command that could not be started.
func (t *Tally) RecordSpawnFailure(err error) {
	t.failed++
	t.errs = multierror.Append(t.errs, err)
}

// RecordExit counts a command that ran to completion.
func (t *Tally) RecordExit(command string, exitCode int) {
	if exitCode == 0 {
		t.ok++
		return
	}

	t.failed++
	t.errs = multierror.Append(t.errs, &ErrNonZeroExit{Command: command, ExitCode: exitCode})
}

// OK returns the number of successful commands.
func (t *Tally) OK() int {
	return t.ok
}

// Failed returns the number of commands that failed to start or exited unsuccessfully.
func (t *Tally) Failed() int {
	return t.failed
}

// Attempted returns the number of commands that reached a terminal outcome.
func (t *Tally) Attempted() int {
	return t.ok + t.failed
}

// Success reports whether any command succeeded or none failed.
func (t *Tally) Success() bool {
	return t.ok > 0 || t.failed == 0
}

// ExitCode returns ExitSuccess or ExitFailure according to Success.
func (t *Tally) ExitCode() int {
	if t.Success() {
		return ExitSuccess
	}

	return ExitFailure
}

// Errors returns every recorded failure, or nil if there were none.
func (t *Tally) Errors() error {
	return t.errs.ErrorOrNil()
}
