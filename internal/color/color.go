// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package color

import (
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

const (
	// NoColor is the environment variable that disables color output.
	NoColor = "NO_COLOR"
	// ForceColor is the environment variable that forces color output.
	ForceColor = "FORCE_COLOR"

	prefix    = "\033["
	suffix    = "m"
	reset     = "\033[0m"
	sbPadding = 16
)

// Code represents an ANSI control code for text formatting.
type Code int

// Foreground text colors used by the log handler.
const (
	FgRed     Code = 31
	FgYellow  Code = 33
	FgBlue    Code = 34
	FgCyan    Code = 36
	FgWhite   Code = 37
	FgHiWhite Code = 97
	FgHiMag   Code = 95
)

var enabled bool

func init() {
	enabled = isColorCapable(os.Stderr)
}

// Colorize wraps str in the given ANSI codes followed by a reset.
// When color output is disabled the string is returned unchanged.
func Colorize(str string, codes ...Code) string {
	if !enabled || len(codes) == 0 {
		return str
	}

	sb := strings.Builder{}
	sb.Grow(len(str) + len(prefix) + len(suffix) + len(reset) + sbPadding)
	sb.WriteString(prefix)

	for i, code := range codes {
		if i > 0 {
			sb.WriteString(";")
		}

		sb.WriteString(strconv.Itoa(int(code)))
	}

	sb.WriteString(suffix)
	sb.WriteString(str)
	sb.WriteString(reset)

	return sb.String()
}

// Enabled reports whether color output is enabled.
// Log output is written to stderr, so that is the stream checked for a terminal.
func Enabled() bool {
	return enabled
}

// SetEnabled overrides the detected setting. It is intended for tests.
func SetEnabled(v bool) {
	enabled = v
}

func isColorCapable(f *os.File) bool {
	if os.Getenv(NoColor) != "" {
		return false
	}

	if os.Getenv(ForceColor) != "" {
		return true
	}

	return term.IsTerminal(int(f.Fd()))
}
