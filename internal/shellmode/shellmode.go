// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package shellmode defines how raw command strings are turned into processes:
// split on whitespace and run directly, or handed verbatim to a shell.
package shellmode

import (
	"errors"
	"fmt"
)

// ErrInvalidShell is returned by Parse for an unrecognised selector.
var ErrInvalidShell = errors.New("invalid shell")

// Mode is fixed for the whole run.
type Mode int

const (
	// Direct splits the command on whitespace; the first field is the program.
	Direct Mode = iota
	// Shell runs the command string through `bash -c`.
	Shell
)

const (
	// NoneSelector selects Direct.
	NoneSelector = "none"
	// BashSelector selects Shell.
	BashSelector = "bash"
)

// Selectors lists the accepted values for Parse, in help text order.
var Selectors = []string{NoneSelector, BashSelector}

// Parse converts a command line selector into a Mode.
func Parse(s string) (Mode, error) {
	switch s {
	case NoneSelector:
		return Direct, nil
	case BashSelector:
		return Shell, nil
	default:
		return Direct, fmt.Errorf("%w: %q is not a valid shell value, use one of %q", ErrInvalidShell, s, Selectors)
	}
}

// String returns the selector for m.
func (m Mode) String() string {
	switch m {
	case Direct:
		return NoneSelector
	case Shell:
		return BashSelector
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}
