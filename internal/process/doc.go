// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package process starts operating system processes for a cmdspec.Spec and collects their output.
//
// Output is captured into memory while the process runs, so a child never blocks on a full pipe
// while it waits to be retired. A process runs until it exits; nothing in this package kills it.
package process
