// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmdspec builds the program and argument list for one raw command string.
package cmdspec

import (
	"errors"
	"strings"

	"github.com/matt-FFFFFF/prun/internal/shellmode"
)

const (
	// ShellProgram is the interpreter used in shell mode.
	ShellProgram = "bash"
	// ShellCommandSwitch precedes the command string in shell mode.
	ShellCommandSwitch = "-c"
)

// ErrEmptyCommand is returned when a command has no fields in direct mode.
var ErrEmptyCommand = errors.New("cannot run empty command")

// Spec is an executable program plus its arguments, not including the program itself.
type Spec struct {
	Program string
	Args    []string
}

// Build turns raw into a Spec according to mode.
// In shell mode the raw string is passed to the shell untouched, so it never fails.
// In direct mode it is split on whitespace and ErrEmptyCommand is returned when nothing is left.
func Build(raw string, mode shellmode.Mode) (*Spec, error) {
	if mode == shellmode.Shell {
		return &Spec{
			Program: ShellProgram,
			Args:    []string{ShellCommandSwitch, raw},
		}, nil
	}

	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, ErrEmptyCommand
	}

	return &Spec{
		Program: fields[0],
		Args:    fields[1:],
	}, nil
}

// String renders the spec the way it is shown in diagnostics.
func (s *Spec) String() string {
	if len(s.Args) == 0 {
		return s.Program
	}

	return s.Program + " " + strings.Join(s.Args, " ")
}
