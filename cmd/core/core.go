// Package core is a subcommand of the root command. It samples core events, passed to perf
// as given, while a workload runs.
package core

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"strings"

	"perfsample/internal/common"
	"perfsample/internal/report"
	"perfsample/internal/sample"

	"github.com/spf13/cobra"
)

const cmdName = "core"

var examples = []string{
	fmt.Sprintf("  Sample cycles and instructions:  $ %s %s -e cycles -e instructions -- ./stream", common.AppName, cmdName),
	fmt.Sprintf("  Derive a metric:                 $ %s %s -e cycles -e instructions --metric ipc=instructions/cycles -- ./stream", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName + " [flags] -- <workload>",
	Short:         "Sample core events while a workload runs",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.MinimumNArgs(1),
	SilenceErrors: true,
}

var (
	flagEvents  []string
	flagMetrics []string

	samplingFlags common.SamplingFlags
)

const (
	flagEventName  = "event"
	flagMetricName = "metric"
)

func init() {
	Cmd.Flags().StringArrayVarP(&flagEvents, flagEventName, "e", nil, "")
	Cmd.Flags().StringArrayVar(&flagMetrics, flagMetricName, nil, "")
	samplingFlags.Add(Cmd)

	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	var groups []common.FlagGroup
	flags := []common.Flag{
		{
			Name: flagEventName,
			Help: "event name as perf accepts it, e.g., cycles or cpu/event=0x3c/, may be repeated",
		},
		{
			Name: flagMetricName,
			Help: "derived metric as <name>=<expression>, e.g., ipc=instructions/cycles, may be repeated",
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
	if _, err := ParseMetrics(flagMetrics); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	if err := samplingFlags.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// ParseMetrics parses "name=expression" metric flags.
func ParseMetrics(values []string) ([]sample.MetricDefinition, error) {
	var definitions []sample.MetricDefinition
	for _, value := range values {
		name, expression, found := strings.Cut(value, "=")
		if !found || strings.TrimSpace(name) == "" || strings.TrimSpace(expression) == "" {
			return nil, fmt.Errorf("metric %q is not of the form <name>=<expression>", value)
		}
		definitions = append(definitions, sample.MetricDefinition{Name: strings.TrimSpace(name), Expression: expression})
	}
	return definitions, nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	appContext := common.GetAppContext(cmd)
	session := samplingFlags.NewSession()
	workload, err := samplingFlags.Workload(session.Topology, args)
	if err != nil {
		return common.Fail(cmd, err)
	}
	definitions, err := ParseMetrics(flagMetrics)
	if err != nil {
		return common.Fail(cmd, err)
	}
	stop := common.HandleSignals()
	defer stop()
	counts, err := session.Sampler.SampleCoreEvents(workload, flagEvents)
	if err != nil {
		return common.Fail(cmd, err)
	}
	tables := []report.Table{report.CounterTable("Core Events", "Event", counts)}
	if len(definitions) > 0 {
		metrics, err := sample.Derive(counts, definitions)
		if err != nil {
			return common.Fail(cmd, err)
		}
		tables = append(tables, report.MetricTable("Metrics", metrics))
	}
	if err := common.WriteReports(appContext, cmdName, tables, samplingFlags.Format); err != nil {
		return common.Fail(cmd, err)
	}
	return nil
}
