package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"perfsample/internal/encode"
	"perfsample/internal/report"
	"perfsample/internal/sample"
	"perfsample/internal/target"
	"perfsample/internal/topology"
	"perfsample/internal/util"

	"github.com/spf13/cobra"
)

const (
	FlagPerfName             = "perf"
	FlagNoSudoName           = "no-sudo"
	FlagTimeoutName          = "timeout"
	FlagNoLineConversionName = "no-line-conversion"
	FlagLineSizeName         = "line-size"
	FlagNUMANodeName         = "numa-node"
	FlagCPUsName             = "cpus"
	FlagFormatName           = "format"
)

// SamplingFlags are the flags shared by every command that runs a workload under perf.
type SamplingFlags struct {
	PerfPath         string
	NoSudo           bool
	Timeout          int
	NoLineConversion bool
	LineSize         int64
	NUMANode         int
	CPUs             string
	Format           []string
}

// Add registers the flags on cmd.
func (f *SamplingFlags) Add(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.PerfPath, FlagPerfName, "perf", "")
	cmd.Flags().BoolVar(&f.NoSudo, FlagNoSudoName, false, "")
	cmd.Flags().IntVar(&f.Timeout, FlagTimeoutName, 0, "")
	cmd.Flags().BoolVar(&f.NoLineConversion, FlagNoLineConversionName, false, "")
	cmd.Flags().Int64Var(&f.LineSize, FlagLineSizeName, encode.CacheLineSize, "")
	cmd.Flags().IntVar(&f.NUMANode, FlagNUMANodeName, -1, "")
	cmd.Flags().StringVar(&f.CPUs, FlagCPUsName, "", "")
	cmd.Flags().StringSliceVar(&f.Format, FlagFormatName, []string{report.FormatTxt}, "")
}

// GetSamplingFlagGroup describes the flags for usage output.
func GetSamplingFlagGroup() FlagGroup {
	return FlagGroup{
		GroupName: "Sampling Options",
		Flags: []Flag{
			{Name: FlagPerfName, Help: "path to the perf binary"},
			{Name: FlagNoSudoName, Help: "run perf without sudo"},
			{Name: FlagTimeoutName, Help: "stop sampling after this many seconds, 0 waits for the workload to exit"},
			{Name: FlagNoLineConversionName, Help: "report counters perf labels as bytes without converting them to cache lines"},
			{Name: FlagLineSizeName, Help: "cache line size in bytes used to convert byte counters"},
			{Name: FlagNUMANodeName, Help: "pin the workload's CPUs and memory to this NUMA node"},
			{Name: FlagCPUsName, Help: "pin the workload to these CPUs, e.g., 0-3,8"},
			{Name: FlagFormatName, Help: fmt.Sprintf("choose output format(s) from: %s", strings.Join(report.FormatOptions, ", "))},
		},
	}
}

// ValidateFormats checks each requested output format against report.FormatOptions.
func ValidateFormats(formats []string) error {
	for _, format := range formats {
		if !slices.Contains(report.FormatOptions, format) {
			return fmt.Errorf("format options are: %s", strings.Join(report.FormatOptions, ", "))
		}
	}
	return nil
}

// Validate checks the flag values.
func (f *SamplingFlags) Validate() error {
	if err := ValidateFormats(f.Format); err != nil {
		return err
	}
	if f.Timeout < 0 {
		return fmt.Errorf("timeout must be 0 or greater")
	}
	if f.LineSize <= 0 {
		return fmt.Errorf("line size must be greater than 0")
	}
	if f.NUMANode >= 0 && f.CPUs != "" {
		return fmt.Errorf("--%s and --%s are mutually exclusive", FlagNUMANodeName, FlagCPUsName)
	}
	if f.CPUs != "" {
		if _, err := util.SelectiveIntRangeToIntList(f.CPUs); err != nil {
			return fmt.Errorf("invalid CPU list %q: %v", f.CPUs, err)
		}
	}
	return nil
}

// Options converts the flags into sampler options.
func (f *SamplingFlags) Options() sample.Options {
	opts := sample.DefaultOptions()
	opts.Command.PerfPath = f.PerfPath
	opts.Command.Sudo = !f.NoSudo
	opts.Parse.LineConversion = !f.NoLineConversion
	opts.Parse.LineSize = f.LineSize
	opts.Timeout = f.Timeout
	return opts
}

// Workload joins the command's arguments into the workload command line and applies
// the requested pinning.
func (f *SamplingFlags) Workload(topo sample.Topology, args []string) (string, error) {
	workload := strings.Join(args, " ")
	switch {
	case f.NUMANode >= 0:
		if _, err := topo.NUMANodeCPUs(f.NUMANode); err != nil {
			return "", err
		}
		workload = topology.PinCommand(workload, f.NUMANode)
	case f.CPUs != "":
		cpus, err := util.SelectiveIntRangeToIntList(f.CPUs)
		if err != nil {
			return "", err
		}
		workload = topology.CPUPinCommand(workload, cpus)
	}
	return workload, nil
}

// Session is what a sampling command needs: the host, its topology, and a sampler bound to both.
type Session struct {
	Target   *target.LocalTarget
	Topology *topology.SysfsTopology
	Sampler  *sample.Sampler
}

// NewSession creates a sampling session on the local host.
func (f *SamplingFlags) NewSession() *Session {
	localTarget := target.NewLocalTarget()
	topo := topology.NewSysfsTopology(localTarget)
	if !f.NoSudo && !localTarget.CanElevatePrivileges() {
		slog.Warn("sudo may prompt for a password, consider --no-sudo with a lower perf_event_paranoid level")
	}
	return &Session{
		Target:   localTarget,
		Topology: topo,
		Sampler:  sample.NewSampler(localTarget, topo, f.Options()),
	}
}

// UnitKind returns unit if set, otherwise the default uncore unit for the host's CPU vendor.
func (s *Session) UnitKind(unit string) (string, error) {
	if unit != "" {
		return unit, nil
	}
	return s.Topology.UnitKind()
}
