// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/process"
	"go.uber.org/zap"

	"github.com/ava-labs/ibcnet/tests/fixture/readiness"
	"github.com/ava-labs/ibcnet/utils/logging"
)

// pidExists reports whether a process with the given pid is running.
func pidExists(pid int) (bool, error) {
	exists, err := process.PidExists(int32(pid))
	if err != nil {
		return false, fmt.Errorf("failed to check pid %d: %w", pid, err)
	}
	return exists, nil
}

// TerminatePID stops a process group that was launched by another harness
// invocation and recorded by pid. A pid that is no longer running is a no-op.
func TerminatePID(ctx context.Context, log logging.Logger, pid int, timeout time.Duration) error {
	log = log.With(zap.Int("pid", pid))

	exists, err := pidExists(pid)
	if err != nil {
		return err
	}
	if !exists && !groupAlive(pid) {
		log.Debug("process already exited")
		return nil
	}

	log.Info("sending SIGTERM to process group")
	if err := signalGroup(pid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return fmt.Errorf("failed to send SIGTERM to pid %d: %w", pid, err)
	}

	exited := func(context.Context) (bool, error) {
		exists, err := pidExists(pid)
		if err != nil {
			return false, err
		}
		return !exists && !groupAlive(pid), nil
	}
	err = readiness.WaitForCondition(ctx, log, "process group exit", timeout, exitPollInterval, exited)
	if err == nil || !errors.Is(err, readiness.ErrTimeout) {
		return err
	}

	log.Warn("process group did not exit after SIGTERM, sending SIGKILL")
	if err := signalGroup(pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("failed to send SIGKILL to pid %d: %w", pid, err)
	}
	killCtx, cancel := context.WithTimeout(context.Background(), killTimeout)
	defer cancel()
	if err := readiness.WaitForCondition(killCtx, log, "process group exit", killTimeout, exitPollInterval, exited); err != nil {
		return fmt.Errorf("%w: pid %d", ErrStillAlive, pid)
	}
	return nil
}
