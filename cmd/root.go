// Package cmd provides the command line interface for the application.
package cmd

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"log/syslog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"perfsample/cmd/core"
	"perfsample/cmd/df"
	"perfsample/cmd/paranoid"
	"perfsample/cmd/percore"
	"perfsample/cmd/run"
	"perfsample/cmd/topology"
	"perfsample/cmd/uncore"
	"perfsample/internal/common"
	"perfsample/internal/util"

	"github.com/spf13/cobra"
)

var gLogFile *os.File
var gVersion = "9.9.9" // overwritten by ldflags at build time

// LongAppName is the name of the application
const LongAppName = "PerfSample"

var examples = []string{
	fmt.Sprintf("  Count LLC lookups on every CHA while a workload runs:  $ %s uncore --event 0x34:00000001 -- ./stream", common.AppName),
	fmt.Sprintf("  Count core events and derive IPC:                      $ %s core -e cycles -e instructions --metric ipc=instructions/cycles -- ./stream", common.AppName),
	fmt.Sprintf("  Normalize per core LLC misses to cycles:               $ %s percore -e LLC-load-misses --normalize -- ./stream", common.AppName),
	fmt.Sprintf("  Run a sampling profile:                                $ %s run --profile llc.yaml -- ./stream", common.AppName),
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:                common.AppName,
	Short:              common.AppName,
	Long:               fmt.Sprintf(`%s (%s) samples hardware performance counters with perf while a workload runs.`, LongAppName, common.AppName),
	Example:            strings.Join(examples, "\n"),
	PersistentPreRunE:  initializeApplication, // will only be run if command has a 'Run' function
	PersistentPostRunE: terminateApplication,  // ...
	Version:            gVersion,
}

var (
	// logging
	flagDebug     bool
	flagSyslog    bool
	flagLogStdOut bool
	// output
	flagOutputDir string
)

const (
	flagDebugName     = "debug"
	flagSyslogName    = "syslog"
	flagLogStdOutName = "log-stdout"
	flagOutputDirName = "output"
)

func init() {
	rootCmd.SetUsageTemplate(`Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command] [flags]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}
`)
	rootCmd.SetHelpCommand(&cobra.Command{}) // block the help command
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.AddGroup([]*cobra.Group{{ID: "primary", Title: "Sampling Commands:"}}...)
	rootCmd.AddGroup([]*cobra.Group{{ID: "other", Title: "Host Commands:"}}...)
	rootCmd.AddCommand(uncore.Cmd)
	rootCmd.AddCommand(core.Cmd)
	rootCmd.AddCommand(df.Cmd)
	rootCmd.AddCommand(percore.Cmd)
	rootCmd.AddCommand(run.Cmd)
	rootCmd.AddCommand(topology.Cmd)
	rootCmd.AddCommand(paranoid.Cmd)
	// Global (persistent) flags
	rootCmd.PersistentFlags().BoolVar(&flagDebug, flagDebugName, false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagSyslog, flagSyslogName, false, "write logs to syslog instead of a file")
	rootCmd.PersistentFlags().BoolVar(&flagLogStdOut, flagLogStdOutName, false, "write logs to stdout")
	rootCmd.PersistentFlags().StringVar(&flagOutputDir, flagOutputDirName, "", "write reports to files in this directory instead of stdout")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.EnableCommandSorting = false
	cobra.EnableCaseInsensitive = true
	err := rootCmd.Execute()
	if err != nil {
		terminateErr := terminateApplication(rootCmd, os.Args)
		if terminateErr != nil {
			slog.Error("Error terminating application", slog.String("error", terminateErr.Error()))
			fmt.Printf("Error: %v\n", terminateErr)
		}
		os.Exit(1)
	}
}

func initializeApplication(cmd *cobra.Command, args []string) error {
	timestamp := time.Now().Local().Format("2006-01-02_15-04-05") // app startup time
	outputDir, err := resolveOutputDir(flagOutputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	logOpts := slog.HandlerOptions{Level: slog.LevelInfo}
	if flagDebug {
		logOpts.Level = slog.LevelDebug
		logOpts.AddSource = true
	}
	handler, err := newLogHandler(&logOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	slog.SetDefault(slog.New(handler))
	slog.Info("Starting up", slog.String("app", common.AppName), slog.String("version", gVersion), slog.Int("PID", os.Getpid()), slog.String("arguments", strings.Join(os.Args, " ")))
	var logFilePath string
	if gLogFile != nil {
		logFilePath = gLogFile.Name()
	}
	cmd.Root().SetContext(
		context.WithValue(
			context.Background(),
			common.AppContext{},
			common.AppContext{
				Timestamp:   timestamp,
				OutputDir:   outputDir,
				LogFilePath: logFilePath,
				Version:     gVersion,
				Debug:       flagDebug},
		),
	)
	return nil
}

// resolveOutputDir expands dir and checks that it exists. An empty dir means stdout.
func resolveOutputDir(dir string) (string, error) {
	if dir == "" {
		return "", nil
	}
	outputDir, err := util.AbsPath(dir)
	if err != nil {
		return "", fmt.Errorf("failed to expand --%s: %w", flagOutputDirName, err)
	}
	exists, err := util.DirectoryExists(outputDir)
	if err != nil {
		return "", fmt.Errorf("failed to check --%s: %w", flagOutputDirName, err)
	}
	if !exists {
		return "", fmt.Errorf("--%s directory %s does not exist", flagOutputDirName, outputDir)
	}
	return outputDir, nil
}

// newLogHandler picks the log destination from the logging flags. The default appends to
// <app>.log in the working directory and leaves it open in gLogFile.
func newLogHandler(logOpts *slog.HandlerOptions) (slog.Handler, error) {
	switch {
	case flagSyslog && flagLogStdOut:
		return nil, fmt.Errorf("--%s and --%s are mutually exclusive", flagSyslogName, flagLogStdOutName)
	case flagSyslog:
		handler, err := NewSyslogHandler(logOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to syslog: %w", err)
		}
		return handler, nil
	case flagLogStdOut:
		return slog.NewJSONHandler(os.Stdout, logOpts), nil
	}
	logFile, err := os.OpenFile(common.AppName+".log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644) // #nosec G302
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	gLogFile = logFile
	return slog.NewTextHandler(logFile, logOpts), nil
}

// terminateApplication closes the log file
func terminateApplication(cmd *cobra.Command, args []string) error {
	ctx := cmd.Root().Context()
	if ctx == nil {
		return nil
	}
	if _, ok := ctx.Value(common.AppContext{}).(common.AppContext); !ok {
		return nil
	}
	slog.Info("Shutting down", slog.String("app", common.AppName), slog.String("version", gVersion), slog.Int("PID", os.Getpid()))
	if gLogFile != nil {
		err := gLogFile.Close()
		if err != nil {
			return fmt.Errorf("failed to close log file %s: %w", gLogFile.Name(), err)
		}
		gLogFile = nil
	}
	return nil
}

// SyslogHandler is a slog.Handler that writes logfmt style lines to the local syslog.
type SyslogHandler struct {
	writer    *syslog.Writer
	level     slog.Leveler
	addSource bool
	attrs     []slog.Attr
}

func NewSyslogHandler(logOpts *slog.HandlerOptions) (*SyslogHandler, error) {
	writer, err := syslog.New(syslog.LOG_INFO|syslog.LOG_USER, filepath.Base(os.Args[0]))
	if err != nil {
		return nil, err
	}
	return &SyslogHandler{writer: writer, level: logOpts.Level, addSource: logOpts.AddSource}, nil
}

func (h *SyslogHandler) Handle(ctx context.Context, r slog.Record) error {
	msg := formatSyslogRecord(r, h.addSource, h.attrs)
	switch {
	case r.Level >= slog.LevelError:
		return h.writer.Err(msg)
	case r.Level >= slog.LevelWarn:
		return h.writer.Warning(msg)
	case r.Level >= slog.LevelInfo:
		return h.writer.Info(msg)
	default:
		return h.writer.Debug(msg)
	}
}

func formatSyslogRecord(r slog.Record, addSource bool, attrs []slog.Attr) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "level=%s", r.Level)
	if addSource && r.PC != 0 {
		frame, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		fmt.Fprintf(&sb, " source=%s:%d", filepath.Base(frame.File), frame.Line)
	}
	fmt.Fprintf(&sb, " msg=%q", r.Message)
	writeAttr := func(attr slog.Attr) bool {
		fmt.Fprintf(&sb, " %s=%q", attr.Key, attr.Value.String())
		return true
	}
	for _, attr := range attrs {
		writeAttr(attr)
	}
	r.Attrs(writeAttr)
	return sb.String()
}

func (h *SyslogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handler := *h
	handler.attrs = append(slices.Clone(h.attrs), attrs...)
	return &handler
}

// WithGroup is not supported, group names are dropped.
func (h *SyslogHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *SyslogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}
