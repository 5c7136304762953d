// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package ctxlog provides a context-aware logger built on log/slog.
//
// The logger travels in a context.Context so that the dispatch loop and the process layer
// log with the same run attributes. The default handler is a pretty console handler writing
// to stderr. The level is read from the PRUN_LOG_LEVEL environment variable.
package ctxlog
