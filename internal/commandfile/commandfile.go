// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package commandfile reads a list of raw commands from a file.
//
// The source is either a local path, read through FsFactory, or anything go-getter
// understands (for example https://, s3:: or git::), which is downloaded first.
// The format is chosen by extension:
//
//   - .yaml, .yml: a document with a `commands` sequence of strings
//   - .hcl: a `commands` attribute holding a list of strings
//   - anything else: one command per line, blank lines and lines starting with # are skipped
package commandfile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/go-getter/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
	"github.com/matt-FFFFFF/prun/internal/ctxlog"
	"github.com/spf13/afero"
)

var (
	// ErrLoad is returned when a command file cannot be fetched, read or parsed.
	ErrLoad = errors.New("failed to load command file")
	// ErrEmptySource is returned when no source is given.
	ErrEmptySource = errors.New("command file source is empty")
)

const (
	forcedGetterSeparator = "::"
	schemeSeparator       = "://"
	commentPrefix         = "#"
)

type document struct {
	Commands []string `hcl:"commands" yaml:"commands"`
}

// Load returns the commands in src, in file order.
func Load(ctx context.Context, src string) ([]string, error) {
	if src == "" {
		return nil, errors.Join(ErrLoad, ErrEmptySource)
	}

	logger := ctxlog.Logger(ctx).With("source", src)

	var (
		data []byte
		name string
		err  error
	)

	if isRemote(src) {
		logger.Debug("fetching remote command file")
		data, name, err = fetch(ctx, src)
	} else {
		logger.Debug("reading local command file")
		name = filepath.Base(src)
		data, err = afero.ReadFile(FsFactory(), src)
	}

	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrLoad, src, err)
	}

	cmds, err := Parse(name, data)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrLoad, src, err)
	}

	logger.Debug("command file loaded", "commands", len(cmds))

	return cmds, nil
}

// Parse decodes data according to the extension of name.
func Parse(name string, data []byte) ([]string, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var doc document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}

		return doc.Commands, nil

	case ".hcl":
		var doc document
		if err := hclsimple.Decode(name, data, nil, &doc); err != nil {
			return nil, fmt.Errorf("parsing hcl: %w", err)
		}

		return doc.Commands, nil

	default:
		return parseLines(data)
	}
}

func parseLines(data []byte) ([]string, error) {
	var cmds []string

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), len(data)+1)

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")

		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, commentPrefix) {
			continue
		}

		cmds = append(cmds, line)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading lines: %w", err)
	}

	return cmds, nil
}

func isRemote(src string) bool {
	return strings.Contains(src, forcedGetterSeparator) || strings.Contains(src, schemeSeparator)
}

// fetch downloads src with go-getter into a temporary directory and returns its content
// and the file name used to pick the format.
func fetch(ctx context.Context, src string) ([]byte, string, error) {
	tmpDir, err := os.MkdirTemp("", "prun-getter-*")
	if err != nil {
		return nil, "", err //nolint:wrapcheck
	}

	defer os.RemoveAll(tmpDir) //nolint:errcheck

	wd, err := os.Getwd()
	if err != nil {
		return nil, "", err //nolint:wrapcheck
	}

	name := remoteFileName(src)

	client := getter.Client{
		DisableSymlinks: true,
	}

	req := &getter.Request{
		Src:     src,
		Dst:     filepath.Join(tmpDir, name),
		Pwd:     wd,
		GetMode: getter.ModeFile,
	}

	res, err := client.Get(ctx, req)
	if err != nil {
		return nil, "", err //nolint:wrapcheck
	}

	data, err := afero.ReadFile(afero.NewOsFs(), res.Dst)
	if err != nil {
		return nil, "", err //nolint:wrapcheck
	}

	return data, name, nil
}

// remoteFileName returns the last path element of a getter source, without query or forced getter.
func remoteFileName(src string) string {
	if i := strings.Index(src, forcedGetterSeparator); i >= 0 {
		src = src[i+len(forcedGetterSeparator):]
	}

	if i := strings.Index(src, "?"); i >= 0 {
		src = src[:i]
	}

	base := path.Base(src)
	if base == "." || base == "/" || base == "" || strings.Contains(base, ":") {
		return "commands"
	}

	return base
}
