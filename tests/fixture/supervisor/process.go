// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package supervisor

import (
	"os"
	"os/exec"
	"sync"
)

// CommandSpec describes a long-running process to launch.
type CommandSpec struct {
	// Name identifies the process in logs.
	Name string `json:"name"`
	Path string `json:"path"`
	Args []string `json:"args,omitempty"`
	// Dir is the working directory. Defaults to the harness's.
	Dir string `json:"dir,omitempty"`
	// Env is appended to the harness's environment.
	Env []string `json:"env,omitempty"`
	// LogPath receives stdout and stderr. Output is discarded when empty.
	LogPath string `json:"logPath,omitempty"`
}

// Process is a handle to a launched process group. The group id equals the
// pid of the leader.
type Process struct {
	owner   *Supervisor
	name    string
	cmd     *exec.Cmd
	logFile *os.File

	done    chan struct{}
	waitErr error

	terminateOnce sync.Once
	terminateErr  error
}

func (p *Process) Name() string {
	return p.name
}

func (p *Process) Pid() int {
	return p.cmd.Process.Pid
}

// Done is closed once the group leader has exited and been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Alive reports whether the group leader is still running.
func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// ExitErr returns the result of waiting on the leader. Only valid after Done
// is closed.
func (p *Process) ExitErr() error {
	<-p.done
	return p.waitErr
}

func (p *Process) wait() {
	p.waitErr = p.cmd.Wait()
	if p.logFile != nil {
		_ = p.logFile.Close()
	}
	close(p.done)
}
