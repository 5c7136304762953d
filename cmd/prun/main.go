// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package main contains the prun command-line interface (CLI).
package main

import (
	"context"
	"os"

	"github.com/matt-FFFFFF/prun/cmd"
	"github.com/matt-FFFFFF/prun/internal/ctxlog"
	"github.com/matt-FFFFFF/prun/internal/signalbroker"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = ctxlog.New(ctx, ctxlog.FromEnv())

	sigCh := signalbroker.New(ctx)

	go signalbroker.Watch(ctx, sigCh, cancel)

	// cli.Exit errors set the exit code and message themselves and do not return here
	err := cmd.NewRootCmd(os.Stdout, os.Stderr).Run(ctx, os.Args)

	cancel()

	if err != nil {
		ctxlog.Logger(ctx).Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
