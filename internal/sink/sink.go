// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package sink forwards the captured output of retired commands to the caller's streams.
package sink

import (
	"errors"
	"fmt"
	"io"

	"github.com/matt-FFFFFF/prun/internal/process"
)

// ErrWrite is returned when captured output could not be forwarded.
var ErrWrite = errors.New("failed to write command output")

// Sink writes each result as one block per stream.
// It is used from a single goroutine, one result at a time.
type Sink struct {
	stdout io.Writer
	stderr io.Writer
}

// New returns a Sink writing to stdout and stderr.
func New(stdout, stderr io.Writer) *Sink {
	return &Sink{
		stdout: stdout,
		stderr: stderr,
	}
}

// Emit writes the whole of res.StdOut to stdout and then the whole of res.StdErr to stderr.
func (s *Sink) Emit(res *process.Result) error {
	if err := writeAll(s.stdout, res.StdOut); err != nil {
		return fmt.Errorf("%w to stdout: %w", ErrWrite, err)
	}

	if err := writeAll(s.stderr, res.StdErr); err != nil {
		return fmt.Errorf("%w to stderr: %w", ErrWrite, err)
	}

	return nil
}

func writeAll(w io.Writer, b []byte) error {
	if len(b) == 0 {
		return nil
	}

	n, err := w.Write(b)
	if err != nil {
		return err //nolint:wrapcheck
	}

	if n != len(b) {
		return io.ErrShortWrite
	}

	return nil
}
