// Package df is a subcommand of the root command. It samples AMD data fabric events while a
// workload runs.
package df

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"strings"

	"perfsample/internal/common"
	"perfsample/internal/perf"
	"perfsample/internal/report"

	"github.com/spf13/cobra"
)

const cmdName = "df"

var examples = []string{
	fmt.Sprintf("  Sample a data fabric event:  $ %s %s --event 0x1f:00000001 -- ./stream", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName + " [flags] -- <workload>",
	Short:         "Sample AMD data fabric events while a workload runs",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.MinimumNArgs(1),
	SilenceErrors: true,
}

var (
	flagEvents []string

	samplingFlags common.SamplingFlags
)

const flagEventName = "event"

func init() {
	Cmd.Flags().StringArrayVar(&flagEvents, flagEventName, nil, "")
	samplingFlags.Add(Cmd)

	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	return []common.FlagGroup{
		{
			GroupName: "Event Options",
			Flags: []common.Flag{
				{
					Name: flagEventName,
					Help: fmt.Sprintf("event as <code>:<binary mask>, may be repeated up to %d times", perf.MaxUncoreEvents),
				},
			},
		},
		common.GetSamplingFlagGroup(),
	}
}

func parseEvents() ([]perf.EventSpec, error) {
	var specs []perf.EventSpec
	for _, event := range flagEvents {
		spec, err := perf.ParseEventSpec(event)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, perf.ValidateEventSpecs(specs)
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if _, err := parseEvents(); err != nil {
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
	specs, err := parseEvents()
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
	counts, err := session.Sampler.SampleDataFabricEvents(workload, specs)
	if err != nil {
		return common.Fail(cmd, err)
	}
	tables := []report.Table{report.CounterTable("Data Fabric Events", "Event", counts)}
	if err := common.WriteReports(appContext, cmdName, tables, samplingFlags.Format); err != nil {
		return common.Fail(cmd, err)
	}
	return nil
}
