// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-cmd/cmd"
	"go.uber.org/zap"

	"github.com/ava-labs/ibcnet/utils/logging"
)

var ErrCommandFailed = errors.New("command failed")

// CommandResult is the outcome of a short-lived command.
type CommandResult struct {
	Stdout   []string
	Stderr   []string
	ExitCode int
}

// StdoutString joins the captured stdout lines.
func (r *CommandResult) StdoutString() string {
	return strings.Join(r.Stdout, "\n")
}

func (r *CommandResult) StderrString() string {
	return strings.Join(r.Stderr, "\n")
}

// LastLine returns the last non-empty stdout line. CLIs that print progress
// before a JSON result use it to locate the result.
func (r *CommandResult) LastLine() string {
	for i := len(r.Stdout) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(r.Stdout[i]); line != "" {
			return line
		}
	}
	return ""
}

// RunCommand runs a short-lived command to completion, buffering its output.
// A non-zero exit code is reported as ErrCommandFailed alongside the result so
// callers can inspect the output. Cancellation of [ctx] stops the command.
func RunCommand(ctx context.Context, log logging.Logger, bin string, args ...string) (*CommandResult, error) {
	log.Debug("running command",
		zap.String("cmd", bin),
		zap.String("args", strings.Join(args, " ")),
	)

	c := cmd.NewCmd(bin, args...)
	statusChan := c.Start()

	var status cmd.Status
	select {
	case status = <-statusChan:
	case <-ctx.Done():
		_ = c.Stop()
		return nil, fmt.Errorf("%s %s: %w", bin, strings.Join(args, " "), ctx.Err())
	}

	result := &CommandResult{
		Stdout:   status.Stdout,
		Stderr:   status.Stderr,
		ExitCode: status.Exit,
	}
	if status.Error != nil {
		return result, fmt.Errorf("failed to run %s: %w", bin, status.Error)
	}
	if status.Exit != 0 {
		log.Debug("command failed",
			zap.String("cmd", bin),
			zap.Int("exitCode", status.Exit),
			zap.String("stderr", result.StderrString()),
		)
		return result, fmt.Errorf("%w: %s exited with code %d: %s",
			ErrCommandFailed,
			bin,
			status.Exit,
			strings.TrimSpace(result.StderrString()),
		)
	}
	log.Verbo("command succeeded",
		zap.String("cmd", bin),
		zap.String("stdout", result.StdoutString()),
	)
	return result, nil
}
