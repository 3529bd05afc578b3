// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package supervisor launches harness child processes in their own process
// groups and guarantees that each launch is matched by exactly one
// termination of the whole group.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ava-labs/ibcnet/tests/fixture/readiness"
	"github.com/ava-labs/ibcnet/utils/logging"
	"github.com/ava-labs/ibcnet/utils/perms"
)

const (
	DefaultStopTimeout = 30 * time.Second
	killTimeout        = 5 * time.Second
	exitPollInterval   = 100 * time.Millisecond
)

var (
	ErrEmptyPath       = errors.New("process path is empty")
	ErrStillAlive      = errors.New("process group still alive after SIGKILL")
	ErrAlreadyLaunched = errors.New("process already launched")
	ErrNotStarted      = errors.New("process was not started by this supervisor")
)

// Supervisor tracks every process it launched until it is terminated.
type Supervisor struct {
	log         logging.Logger
	stopTimeout time.Duration

	lock      sync.Mutex
	processes []*Process
}

func New(log logging.Logger) *Supervisor {
	return &Supervisor{
		log:         log,
		stopTimeout: DefaultStopTimeout,
	}
}

// WithStopTimeout sets how long a group is given to exit after SIGTERM
// before it is killed.
func (s *Supervisor) WithStopTimeout(timeout time.Duration) *Supervisor {
	s.stopTimeout = timeout
	return s
}

// Launch starts the described process as the leader of a new process group.
// The process outlives [Launch]; it is only stopped by Terminate. Names of
// tracked processes are unique.
func (s *Supervisor) Launch(spec CommandSpec) (*Process, error) {
	if spec.Path == "" {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPath, spec.Name)
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	for _, tracked := range s.processes {
		if tracked.name == spec.Name {
			return nil, fmt.Errorf("%w: %s (pid %d)", ErrAlreadyLaunched, spec.Name, tracked.Pid())
		}
	}

	// exec.CommandContext is deliberately not used: cancellation of a
	// bring-up context must not kill the group behind the supervisor's back.
	cmd := exec.Command(spec.Path, spec.Args...) //#nosec G204
	cmd.Dir = spec.Dir
	cmd.Env = append(os.Environ(), spec.Env...)
	configureProcessGroup(cmd)

	var logFile *os.File
	if spec.LogPath != "" {
		if err := os.MkdirAll(filepath.Dir(spec.LogPath), perms.ReadWriteExecute); err != nil {
			return nil, fmt.Errorf("failed to create log dir for %s: %w", spec.Name, err)
		}
		f, err := os.OpenFile(spec.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, perms.ReadWrite)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file for %s: %w", spec.Name, err)
		}
		cmd.Stdout = f
		cmd.Stderr = f
		logFile = f
	}

	if err := cmd.Start(); err != nil {
		if logFile != nil {
			_ = logFile.Close()
		}
		return nil, fmt.Errorf("failed to start %s: %w", spec.Name, err)
	}

	p := &Process{
		owner:   s,
		name:    spec.Name,
		cmd:     cmd,
		logFile: logFile,
		done:    make(chan struct{}),
	}
	go p.wait()
	s.processes = append(s.processes, p)

	s.log.Info("launched process",
		zap.String("name", spec.Name),
		zap.String("path", spec.Path),
		zap.Strings("args", spec.Args),
		zap.Int("pid", p.Pid()),
		zap.String("logPath", spec.LogPath),
	)
	return p, nil
}

// Processes returns the processes that have not yet been terminated.
func (s *Supervisor) Processes() []*Process {
	s.lock.Lock()
	defer s.lock.Unlock()

	processes := make([]*Process, len(s.processes))
	copy(processes, s.processes)
	return processes
}

// Terminate stops the whole process group of [p] and waits for it to exit.
// Repeated calls return the result of the first.
func (s *Supervisor) Terminate(ctx context.Context, p *Process) error {
	if p == nil || p.owner != s {
		return ErrNotStarted
	}
	p.terminateOnce.Do(func() {
		p.terminateErr = s.terminate(ctx, p)

		s.lock.Lock()
		defer s.lock.Unlock()
		for i, tracked := range s.processes {
			if tracked == p {
				s.processes = append(s.processes[:i], s.processes[i+1:]...)
				break
			}
		}
	})
	return p.terminateErr
}

func (s *Supervisor) terminate(ctx context.Context, p *Process) error {
	log := s.log.With(
		zap.String("name", p.name),
		zap.Int("pid", p.Pid()),
	)
	pgid := p.Pid()

	if !p.Alive() && !groupAlive(pgid) {
		log.Debug("process already exited",
			zap.NamedError("exitErr", p.waitErr),
		)
		return nil
	}

	log.Info("sending SIGTERM to process group")
	if err := signalGroup(pgid, syscall.SIGTERM); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			log.Debug("process group exited before it could be signaled")
			return nil
		}
		return fmt.Errorf("failed to send SIGTERM to %s: %w", p.name, err)
	}

	exited := func(context.Context) (bool, error) {
		return !p.Alive() && !groupAlive(pgid), nil
	}
	err := readiness.WaitForCondition(ctx, log, "process group exit", s.stopTimeout, exitPollInterval, exited)
	if err == nil {
		log.Info("process group stopped")
		return nil
	}
	if !errors.Is(err, readiness.ErrTimeout) {
		return err
	}

	log.Warn("process group did not exit after SIGTERM, sending SIGKILL",
		zap.Error(err),
	)
	if err := signalGroup(pgid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		return fmt.Errorf("failed to send SIGKILL to %s: %w", p.name, err)
	}
	// The original context may already be done.
	killCtx, cancel := context.WithTimeout(context.Background(), killTimeout)
	defer cancel()
	if err := readiness.WaitForCondition(killCtx, log, "process group exit", killTimeout, exitPollInterval, exited); err != nil {
		return fmt.Errorf("%w: %s", ErrStillAlive, p.name)
	}
	return nil
}

// TerminateAll terminates every tracked process concurrently and returns the
// joined errors. No lock is held while waiting.
func (s *Supervisor) TerminateAll(ctx context.Context) error {
	processes := s.Processes()

	var (
		eg   errgroup.Group
		lock sync.Mutex
		errs []error
	)
	for _, p := range processes {
		eg.Go(func() error {
			if err := s.Terminate(ctx, p); err != nil {
				lock.Lock()
				errs = append(errs, fmt.Errorf("failed to terminate %s: %w", p.name, err))
				lock.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()
	return errors.Join(errs...)
}
