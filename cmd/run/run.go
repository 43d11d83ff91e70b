// Package run is a subcommand of the root command. It runs every event group in a YAML
// profile against a workload and writes one combined report.
package run

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"perfsample/internal/common"
	"perfsample/internal/perf"
	"perfsample/internal/profile"
	"perfsample/internal/progress"
	"perfsample/internal/report"
	"perfsample/internal/sample"

	"github.com/spf13/cobra"
)

const cmdName = "run"

var examples = []string{
	fmt.Sprintf("  Run a profile:                  $ %s %s --profile membw.yaml -- ./stream", common.AppName, cmdName),
	fmt.Sprintf("  Run a profile, write xlsx:      $ %s %s --profile membw.yaml --format xlsx -- ./stream", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName + " [flags] -- <workload>",
	Short:         "Sample every event group in a profile while a workload runs",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.MinimumNArgs(1),
	SilenceErrors: true,
}

var (
	flagProfile string

	samplingFlags common.SamplingFlags
)

const flagProfileName = "profile"

func init() {
	Cmd.Flags().StringVar(&flagProfile, flagProfileName, "", "")
	samplingFlags.Add(Cmd)

	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	return []common.FlagGroup{
		{
			GroupName: "Profile Options",
			Flags: []common.Flag{
				{
					Name: flagProfileName,
					Help: "path to a YAML profile describing the event groups to sample",
				},
			},
		},
		common.GetSamplingFlagGroup(),
	}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagProfile == "" {
		err := fmt.Errorf("--%s is required", flagProfileName)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	if _, err := os.Stat(flagProfile); err != nil {
		err = fmt.Errorf("profile file not found: %s", flagProfile)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	if err := samplingFlags.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	appContext := common.GetAppContext(cmd)
	prof, err := profile.Load(flagProfile)
	if err != nil {
		return common.Fail(cmd, err)
	}
	session := samplingFlags.NewSession()
	workload, err := samplingFlags.Workload(session.Topology, args)
	if err != nil {
		return common.Fail(cmd, err)
	}
	stop := common.HandleSignals()
	defer stop()
	spinner := progress.NewMultiSpinner()
	tables, err := runProfile(prof, session.Sampler, session.UnitKind, workload, spinner)
	if err != nil {
		return common.Fail(cmd, err)
	}
	name := cmdName
	if prof.Name != "" {
		name = prof.Name
	}
	if err := common.WriteReports(appContext, name, tables, samplingFlags.Format); err != nil {
		return common.Fail(cmd, err)
	}
	return nil
}

// profileSampler is the part of sample.Sampler a profile run needs.
type profileSampler interface {
	SampleUncoreEvents(workload string, unitKind string, specs []perf.EventSpec) (map[string]map[string]int64, error)
	SampleNamedMasks(workload string, unitKind string, code string, masks []perf.NamedMask) (map[string]map[string]int64, error)
	SampleCoreEvents(workload string, events []string) (map[string]int64, error)
	SamplePerCoreEvents(workload string, events []string, socket int) (map[string]map[string]int64, error)
	SampleAndNormalizePerCore(workload string, events []string, socket int) (map[string]map[string]float64, error)
	SampleDataFabricEvents(workload string, specs []perf.EventSpec) (map[string]int64, error)
}

type step struct {
	label string
	run   func() ([]report.Table, error)
}

// runProfile samples each group in the profile in order, one workload run per group.
func runProfile(prof *profile.Profile, sampler profileSampler, unitKind func(string) (string, error), workload string, spinner *progress.MultiSpinner) ([]report.Table, error) {
	steps := profileSteps(prof, sampler, unitKind, workload)
	for _, s := range steps {
		if err := spinner.AddSpinner(s.label); err != nil {
			return nil, err
		}
	}
	spinner.Start()
	defer spinner.Finish()
	var tables []report.Table
	for _, s := range steps {
		_ = spinner.Status(s.label, "sampling")
		stepTables, err := s.run()
		if err != nil {
			_ = spinner.Status(s.label, "failed")
			return nil, fmt.Errorf("%s: %w", s.label, err)
		}
		_ = spinner.Status(s.label, "done")
		slog.Debug("profile step complete", slog.String("step", s.label), slog.Int("tables", len(stepTables)))
		tables = append(tables, stepTables...)
	}
	return tables, nil
}

func profileSteps(prof *profile.Profile, sampler profileSampler, unitKind func(string) (string, error), workload string) []step {
	var steps []step
	for i, group := range prof.Uncore {
		label := group.Name
		if label == "" {
			label = fmt.Sprintf("uncore group %d", i)
		}
		steps = append(steps, step{label: label, run: func() ([]report.Table, error) {
			return uncoreGroupTables(label, group, sampler, unitKind, workload)
		}})
	}
	if prof.Core != nil {
		core := prof.Core
		steps = append(steps, step{label: "core", run: func() ([]report.Table, error) {
			counts, err := sampler.SampleCoreEvents(workload, core.Events)
			if err != nil {
				return nil, err
			}
			tables := []report.Table{report.CounterTable("Core Events", "Event", counts)}
			if len(core.Metrics) > 0 {
				metrics, err := sample.Derive(counts, core.Metrics)
				if err != nil {
					return nil, err
				}
				tables = append(tables, report.MetricTable("Core Metrics", metrics))
			}
			return tables, nil
		}})
	}
	if prof.PerCore != nil {
		perCore := prof.PerCore
		steps = append(steps, step{label: "percore", run: func() ([]report.Table, error) {
			if perCore.Normalize {
				ratios, err := sampler.SampleAndNormalizePerCore(workload, perCore.Events, perCore.Socket)
				if err != nil {
					return nil, err
				}
				return []report.Table{report.RatioTable(fmt.Sprintf("Per Core Events per Cycle (socket %d)", perCore.Socket), ratios)}, nil
			}
			counts, err := sampler.SamplePerCoreEvents(workload, perCore.Events, perCore.Socket)
			if err != nil {
				return nil, err
			}
			return []report.Table{report.NestedCounterTable(fmt.Sprintf("Per Core Events (socket %d)", perCore.Socket), "Event", "Core", nil, counts)}, nil
		}})
	}
	if prof.DataFabric != nil {
		df := prof.DataFabric
		steps = append(steps, step{label: "df", run: func() ([]report.Table, error) {
			specs, err := profile.ParseEventSpecs(df.Events)
			if err != nil {
				return nil, err
			}
			counts, err := sampler.SampleDataFabricEvents(workload, specs)
			if err != nil {
				return nil, err
			}
			tables := []report.Table{report.CounterTable("Data Fabric Events", "Event", counts)}
			if len(df.Metrics) > 0 {
				metrics, err := sample.Derive(counts, df.Metrics)
				if err != nil {
					return nil, err
				}
				tables = append(tables, report.MetricTable("Data Fabric Metrics", metrics))
			}
			return tables, nil
		}})
	}
	return steps
}

func uncoreGroupTables(label string, group profile.UncoreGroup, sampler profileSampler, unitKind func(string) (string, error), workload string) ([]report.Table, error) {
	unit, err := unitKind(group.Unit)
	if err != nil {
		return nil, err
	}
	tableName := fmt.Sprintf("%s (%s)", label, unit)
	if group.IsNamed() {
		masks, err := group.NamedMasks()
		if err != nil {
			return nil, err
		}
		counts, err := sampler.SampleNamedMasks(workload, unit, group.Code, masks)
		if err != nil {
			return nil, err
		}
		order := make([]string, 0, len(masks))
		for _, mask := range masks {
			order = append(order, mask.Name)
		}
		return []report.Table{report.NestedCounterTable(tableName, "Mask", "Instance", order, counts)}, nil
	}
	specs, err := group.EventSpecs()
	if err != nil {
		return nil, err
	}
	counts, err := sampler.SampleUncoreEvents(workload, unit, specs)
	if err != nil {
		return nil, err
	}
	order := make([]string, 0, len(specs))
	for _, spec := range specs {
		order = append(order, spec.Code)
	}
	return []report.Table{report.NestedCounterTable(tableName, "Event", "Instance", order, counts)}, nil
}
