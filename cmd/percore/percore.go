// Package percore is a subcommand of the root command. It samples events on every core of a
// socket while a workload runs, optionally normalized to each core's cycles.
package percore

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"strings"

	"perfsample/internal/common"
	"perfsample/internal/report"

	"github.com/spf13/cobra"
)

const cmdName = "percore"

var examples = []string{
	fmt.Sprintf("  Count LLC misses per core on socket 0:    $ %s %s -e LLC-load-misses -- ./stream", common.AppName, cmdName),
	fmt.Sprintf("  LLC misses per cycle on socket 1 cores:   $ %s %s -e LLC-load-misses --socket 1 --normalize -- ./stream", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName + " [flags] -- <workload>",
	Short:         "Sample events per core while a workload runs",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.MinimumNArgs(1),
	SilenceErrors: true,
}

var (
	flagEvents    []string
	flagSocket    int
	flagNormalize bool

	samplingFlags common.SamplingFlags
)

const (
	flagEventName     = "event"
	flagSocketName    = "socket"
	flagNormalizeName = "normalize"
)

func init() {
	Cmd.Flags().StringArrayVarP(&flagEvents, flagEventName, "e", nil, "")
	Cmd.Flags().IntVar(&flagSocket, flagSocketName, 0, "")
	Cmd.Flags().BoolVar(&flagNormalize, flagNormalizeName, false, "")
	samplingFlags.Add(Cmd)

	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	var groups []common.FlagGroup
	flags := []common.Flag{
		{
			Name: flagEventName,
			Help: "event name as perf accepts it, may be repeated",
		},
		{
			Name: flagSocketName,
			Help: "report the cores of this socket",
		},
		{
			Name: flagNormalizeName,
			Help: "divide each core's count by its cycles",
		},
	}
	groups = append(groups, common.FlagGroup{
		GroupName: "Event Options",
		Flags:     flags,
	})
	groups = append(groups, common.GetSamplingFlagGroup())
	return groups
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if len(flagEvents) == 0 {
		err := fmt.Errorf("at least one --%s is required", flagEventName)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	if flagSocket < 0 {
		err := fmt.Errorf("socket must be 0 or greater")
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
	session := samplingFlags.NewSession()
	workload, err := samplingFlags.Workload(session.Topology, args)
	if err != nil {
		return common.Fail(cmd, err)
	}
	stop := common.HandleSignals()
	defer stop()
	var table report.Table
	if flagNormalize {
		ratios, err := session.Sampler.SampleAndNormalizePerCore(workload, flagEvents, flagSocket)
		if err != nil {
			return common.Fail(cmd, err)
		}
		table = report.RatioTable(fmt.Sprintf("Per Core Events per Cycle (socket %d)", flagSocket), ratios)
	} else {
		counts, err := session.Sampler.SamplePerCoreEvents(workload, flagEvents, flagSocket)
		if err != nil {
			return common.Fail(cmd, err)
		}
		table = report.NestedCounterTable(fmt.Sprintf("Per Core Events (socket %d)", flagSocket), "Event", "Core", nil, counts)
	}
	if err := common.WriteReports(appContext, cmdName, []report.Table{table}, samplingFlags.Format); err != nil {
		return common.Fail(cmd, err)
	}
	return nil
}
