// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package cmd contains the command-line interface (CLI) for prun.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/matt-FFFFFF/prun"
	"github.com/matt-FFFFFF/prun/internal/commandfile"
	"github.com/matt-FFFFFF/prun/internal/ctxlog"
	"github.com/matt-FFFFFF/prun/internal/dispatch"
	"github.com/matt-FFFFFF/prun/internal/shellmode"
	"github.com/urfave/cli/v3"
)

const (
	shellFlag       = "shell"
	maxParallelFlag = "max-parallel"
	fileFlag        = "file"
	cliExitStr      = ""
	exitFailure     = 1
)

// ErrNoCommands is returned when neither positional commands nor a command file are given.
var ErrNoCommands = errors.New("no commands given, pass them as arguments or with --file")

// NewRootCmd returns the root command. Command output is written to stdout and stderr.
func NewRootCmd(stdout, stderr io.Writer) *cli.Command {
	return &cli.Command{
		Name:      "prun",
		Usage:     "run commands in parallel and print their output in order",
		ArgsUsage: "COMMAND...",
		Description: `Runs each COMMAND with at most --max-parallel of them in flight at once.

The output of every command is captured and printed once the command has been waited for.
Commands are waited for in the order they were given, so the output is always in input
order even when a later command finishes first.

With --shell none a command is split on whitespace and run directly.
With --shell bash it is passed unchanged to "bash -c".

The exit code is 0 if at least one command succeeded or none failed, 1 otherwise.
An empty command with --shell none aborts the whole batch with exit code 1.
No COMMAND and no --file: usage error, exit code 1.
A --file with no commands: empty batch, exit code 0.

Set PRUN_LOG_LEVEL (DEBUG, INFO, WARN, ERROR) and PRUN_LOG_FORMAT (json) to
control the diagnostic log written to stderr.`,
		Writer:          stdout,
		ErrWriter:       stderr,
		Version:         fmt.Sprintf("%s (commit: %s)", prun.Version, prun.Commit),
		HideHelpCommand: true,
		Copyright:       "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    shellFlag,
				Aliases: []string{"s"},
				Usage: "How to run each command: " + strings.Join(shellmode.Selectors, " or ") +
					". none splits on whitespace, bash runs the command with bash -c",
				Value:    shellmode.NoneSelector,
				OnlyOnce: true,
			},
			&cli.IntFlag{
				Name:     maxParallelFlag,
				Aliases:  []string{"j", "p"},
				Usage:    "Maximum number of commands running at the same time",
				Value:    dispatch.DefaultMaxParallel,
				OnlyOnce: true,
			},
			&cli.StringFlag{
				Name:    fileFlag,
				Aliases: []string{"f"},
				Usage: "Read additional commands from a file, run after the positional ones. " +
					"Supports Hashicorp's go-getter syntax for remote files. " +
					"Use .yaml/.yml or .hcl for a `commands` list, anything else for one command per line",
				TakesFile: true,
				OnlyOnce:  true,
			},
		},
		Action: actionFunc,
	}
}

func actionFunc(ctx context.Context, cmd *cli.Command) error {
	ctx = ctxlog.With(ctx, "run", uuid.NewString())
	logger := ctxlog.Logger(ctx)

	mode, err := shellmode.Parse(cmd.String(shellFlag))
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	commands := cmd.Args().Slice()

	src := cmd.String(fileFlag)
	if src != "" {
		loaded, err := commandfile.Load(ctx, src)
		if err != nil {
			return cli.Exit(err.Error(), exitFailure)
		}

		commands = append(commands, loaded...)
	}

	if src == "" && len(commands) == 0 {
		return cli.Exit(ErrNoCommands.Error(), exitFailure)
	}

	sched, err := dispatch.New(dispatch.Options{
		Mode:        mode,
		MaxParallel: cmd.Int(maxParallelFlag),
		Stdout:      cmd.Writer,
		Stderr:      cmd.ErrWriter,
	})
	if err != nil {
		return cli.Exit(err.Error(), exitFailure)
	}

	logger.Debug("running batch", "commands", len(commands), "shell", mode.String())

	t, err := sched.Run(ctx, commands)
	if err != nil {
		logger.Debug("batch aborted", "error", err, "ok", t.OK(), "failed", t.Failed())
		return cli.Exit(err.Error(), exitFailure)
	}

	logger.Info("batch finished", "ok", t.OK(), "failed", t.Failed())

	if !t.Success() {
		logger.Debug("every command failed", "errors", t.Errors())
		return cli.Exit(cliExitStr, t.ExitCode())
	}

	return nil
}
