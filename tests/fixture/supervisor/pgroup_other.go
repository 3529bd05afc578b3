// Copyright (C) 2019-2026, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

//go:build !unix

package supervisor

import (
	"os"
	"os/exec"
	"syscall"
)

func configureProcessGroup(*exec.Cmd) {}

// Without process groups only the leader can be signaled.
func signalGroup(pid int, sig syscall.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if sig == syscall.SIGKILL {
		return p.Kill()
	}
	return p.Signal(sig)
}

func groupAlive(int) bool {
	return false
}
