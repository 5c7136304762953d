// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package dispatch runs a list of raw commands with a bounded number in flight.
//
// A single loop owns the pending queue and the running set. Each iteration either starts the
// next pending command, when the running set has room, or waits for the oldest running
// command and forwards its output. Commands are therefore retired in the order they were
// started, never in the order they finish, which keeps the output deterministic.
//
// An empty command in direct mode aborts the batch. A command that cannot be started, or that
// exits unsuccessfully, is counted as a failure and the batch carries on.
package dispatch
