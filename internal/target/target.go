/*
Package target runs commands on the host being sampled and reports their output and exit
status.
*/
package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"

	"golang.org/x/sys/unix"
)

// ExitCodeTimeout is the exit status coreutils' timeout reports when it stops a command.
// LocalTarget reports the same status when its own timeout expires, so callers have one
// value to check.
const ExitCodeTimeout = 124

// Target represents a machine where commands can be run.
type Target interface {
	// GetName returns the name of the target system.
	GetName() (name string)

	// IsSuperUser checks if the current user is a superuser.
	IsSuperUser() bool

	// CanElevatePrivileges checks if the current user can run commands with sudo
	// without being prompted for a password.
	CanElevatePrivileges() bool

	// GetArchitecture returns the architecture of the target system, e.g., x86_64.
	GetArchitecture() (arch string, err error)

	// RunCommand runs the specified command on the target.
	// Arguments:
	// - cmd: the command to run
	// - timeout: the maximum time in seconds allowed for the command to run (zero means no timeout)
	// It returns the standard output, standard error, exit code, and any error that occurred.
	// An expired timeout is reported as ExitCodeTimeout.
	RunCommand(cmd *exec.Cmd, timeout int) (stdout string, stderr string, exitCode int, err error)
}

type LocalTarget struct {
	host       string
	arch       string
	canElevate int // zero indicates unknown, 1 indicates yes, -1 indicates no
}

// NewLocalTarget creates a new LocalTarget
func NewLocalTarget() *LocalTarget {
	hostName, err := os.Hostname()
	if err != nil {
		hostName = "localhost"
	}
	return &LocalTarget{host: hostName}
}

// ShellCommand wraps a command line in 'bash -c' so that it is interpreted the way it
// would be when typed, e.g., quoting, redirection, and the workload's own arguments.
func ShellCommand(commandLine string) *exec.Cmd {
	return exec.Command("bash", "-c", commandLine) // #nosec G204
}

// RunCommand executes the given command with a timeout and returns the standard output,
// standard error, exit code, and any error that occurred.
func (t *LocalTarget) RunCommand(cmd *exec.Cmd, timeout int) (stdout string, stderr string, exitCode int, err error) {
	return runLocalCommandWithTimeout(cmd, timeout)
}

// GetName returns the host name of the local target.
func (t *LocalTarget) GetName() (host string) {
	return t.host
}

// IsSuperUser checks if the current user is a superuser.
func (t *LocalTarget) IsSuperUser() bool {
	return os.Geteuid() == 0
}

// CanElevatePrivileges (on LocalTarget) checks if the user is root or passwordless sudo works.
// The result is cached.
func (t *LocalTarget) CanElevatePrivileges() bool {
	if t.canElevate != 0 {
		return t.canElevate == 1
	}
	if t.IsSuperUser() {
		t.canElevate = 1
		return true
	}
	_, _, _, err := t.RunCommand(exec.Command("sudo", "-n", "true"), 0)
	if err == nil {
		t.canElevate = 1
		return true
	}
	t.canElevate = -1
	return false
}

// GetArchitecture returns the machine field of uname(2).
func (t *LocalTarget) GetArchitecture() (string, error) {
	if t.arch == "" {
		var uts unix.Utsname
		if err := unix.Uname(&uts); err != nil {
			return "", fmt.Errorf("uname failed: %w", err)
		}
		t.arch = string(bytes.TrimRight(uts.Machine[:], "\x00"))
	}
	return t.arch, nil
}
