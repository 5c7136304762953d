// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package color decides whether log output should be colored and wraps strings in ANSI codes.
// NO_COLOR disables color, FORCE_COLOR enables it, otherwise color is used when stderr is a terminal.
package color
