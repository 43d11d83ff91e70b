package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// timeoutWaitDelay is how long a timed out command may take to exit after SIGTERM.
const timeoutWaitDelay = 5 * time.Second

// runLocalCommandWithTimeout runs cmd and collects its output. A zero timeout waits for the
// command to exit. exitCode is ExitCodeTimeout when the timeout expired and -1 when the
// command could not be started.
func runLocalCommandWithTimeout(cmd *exec.Cmd, timeout int) (stdout string, stderr string, exitCode int, err error) {
	slog.Debug("running local command", slog.String("cmd", cmd.String()), slog.Int("timeout", timeout))
	var ctx context.Context
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
		defer cancel()
		commandWithContext := exec.CommandContext(ctx, cmd.Path, cmd.Args[1:]...) // #nosec G204 // nosemgrep
		commandWithContext.Env = cmd.Env
		commandWithContext.Dir = cmd.Dir
		// terminate the whole process group so that perf, started by the shell, gets the
		// signal and prints its counters
		commandWithContext.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		commandWithContext.Cancel = func() error {
			return syscall.Kill(-commandWithContext.Process.Pid, syscall.SIGTERM)
		}
		commandWithContext.WaitDelay = timeoutWaitDelay
		cmd = commandWithContext
	}
	var outbuf, errbuf strings.Builder
	cmd.Stdout = &outbuf
	cmd.Stderr = &errbuf
	err = cmd.Run()
	stdout = outbuf.String()
	stderr = errbuf.String()
	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			exitCode = exitError.ExitCode()
		} else {
			exitCode = -1
		}
		if ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			slog.Debug("local command timed out", slog.String("cmd", cmd.String()), slog.Int("timeout", timeout))
			exitCode = ExitCodeTimeout
		}
	}
	return
}
