// Package common defines data structures and functions that are used by multiple
// application commands, e.g., uncore, core, percore, run.
package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"perfsample/internal/util"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var AppName = filepath.Base(os.Args[0])

// AppContext represents the application context that can be accessed from all commands.
type AppContext struct {
	Timestamp   string // Timestamp is the application start time, used in output file names.
	OutputDir   string // OutputDir is where reports are written, empty for stdout.
	LogFilePath string // LogFilePath is the path to the log file, empty when not logging to a file.
	Version     string // Version is the version of the application.
	Debug       bool   // Debug is true if the debug flag is set.
}

// GetAppContext returns the application context stored on the root command.
func GetAppContext(cmd *cobra.Command) AppContext {
	for c := cmd; c != nil; c = c.Parent() {
		if ctx := c.Context(); ctx != nil {
			if appContext, ok := ctx.Value(AppContext{}).(AppContext); ok {
				return appContext
			}
		}
	}
	return AppContext{}
}

type Flag struct {
	Name string
	Help string
}
type FlagGroup struct {
	GroupName string
	Flags     []Flag
}

// UsageFunc prints the command's flags in groups, followed by the global flags.
func UsageFunc(getFlagGroups func() []FlagGroup) func(*cobra.Command) error {
	return func(cmd *cobra.Command) error {
		cmd.Printf("Usage: %s\n\n", cmd.UseLine())
		if cmd.Example != "" {
			cmd.Printf("Examples:\n%s\n\n", cmd.Example)
		}
		cmd.Println("Flags:")
		for _, group := range getFlagGroups() {
			cmd.Printf("  %s:\n", group.GroupName)
			for _, flag := range group.Flags {
				flagDefault := ""
				if f := cmd.Flags().Lookup(flag.Name); f != nil && f.DefValue != "" && f.DefValue != "[]" && f.DefValue != "false" {
					flagDefault = fmt.Sprintf(" (default: %s)", f.DefValue)
				}
				cmd.Printf("    --%-20s %s%s\n", flag.Name, flag.Help, flagDefault)
			}
		}
		cmd.Println("\nGlobal Flags:")
		cmd.Root().PersistentFlags().VisitAll(func(pf *pflag.Flag) {
			flagDefault := ""
			if pf.DefValue != "" && pf.DefValue != "false" {
				flagDefault = fmt.Sprintf(" (default: %s)", pf.DefValue)
			}
			cmd.Printf("  --%-20s %s%s\n", pf.Name, pf.Usage, flagDefault)
		})
		return nil
	}
}

// HandleSignals forwards SIGINT and SIGTERM to child processes so that the workload and
// perf stop, and perf reports what it counted so far. Call the returned function to stop
// forwarding.
func HandleSignals() (stop func()) {
	sigChannel := make(chan os.Signal, 1)
	done := make(chan struct{})
	signal.Notify(sigChannel, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigChannel:
			slog.Info("received signal", slog.String("signal", sig.String()))
			// when run in the background or disowned the shell doesn't propagate the
			// signal to our children, so send it ourselves
			util.SignalChildren(syscall.SIGINT)
		case <-done:
		}
	}()
	return func() {
		signal.Stop(sigChannel)
		close(done)
	}
}

// Fail reports err the way every command does and returns it for RunE.
func Fail(cmd *cobra.Command, err error) error {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	slog.Error(err.Error())
	cmd.SilenceUsage = true
	return err
}
