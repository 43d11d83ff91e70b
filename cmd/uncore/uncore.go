// Package uncore is a subcommand of the root command. It samples uncore events on every
// instance of an uncore unit while a workload runs.
package uncore

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

const cmdName = "uncore"

var examples = []string{
	fmt.Sprintf("  Sample one event on every CHA:            $ %s %s --event 0xb3:00001000 -- ./stream", common.AppName, cmdName),
	fmt.Sprintf("  Sample several masks of one event code:   $ %s %s --code 0x34 --mask hit=00000001 --mask miss=00000010 -- ./stream", common.AppName, cmdName),
	fmt.Sprintf("  Sample on memory controllers for 10s:     $ %s %s --unit uncore_imc --event 0x04:00000011 --timeout 10 -- sleep 60", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName + " [flags] -- <workload>",
	Short:         "Sample uncore events on every unit instance while a workload runs",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.MinimumNArgs(1),
	SilenceErrors: true,
}

var (
	flagUnit   string
	flagEvents []string
	flagCode   string
	flagMasks  []string

	samplingFlags common.SamplingFlags
)

const (
	flagUnitName  = "unit"
	flagEventName = "event"
	flagCodeName  = "code"
	flagMaskName  = "mask"
)

func init() {
	Cmd.Flags().StringVar(&flagUnit, flagUnitName, "", "")
	Cmd.Flags().StringArrayVar(&flagEvents, flagEventName, nil, "")
	Cmd.Flags().StringVar(&flagCode, flagCodeName, "", "")
	Cmd.Flags().StringArrayVar(&flagMasks, flagMaskName, nil, "")
	samplingFlags.Add(Cmd)

	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	var groups []common.FlagGroup
	flags := []common.Flag{
		{
			Name: flagUnitName,
			Help: "uncore unit kind, e.g., uncore_cha or uncore_imc (default: uncore_cha on Intel CPUs)",
		},
		{
			Name: flagEventName,
			Help: fmt.Sprintf("event as <code>:<binary mask>, may be repeated up to %d times", perf.MaxUncoreEvents),
		},
		{
			Name: flagCodeName,
			Help: "event code shared by the --mask values",
		},
		{
			Name: flagMaskName,
			Help: fmt.Sprintf("named mask as <name>=<binary mask>, may be repeated up to %d times", perf.MaxUncoreEvents),
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
	if err := validateEventFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	if err := samplingFlags.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func validateEventFlags() error {
	named := flagCode != "" || len(flagMasks) > 0
	if named && len(flagEvents) > 0 {
		return fmt.Errorf("--%s cannot be combined with --%s and --%s", flagEventName, flagCodeName, flagMaskName)
	}
	if named {
		if flagCode == "" || len(flagMasks) == 0 {
			return fmt.Errorf("--%s and --%s must be used together", flagCodeName, flagMaskName)
		}
		masks, err := parseMasks(flagMasks)
		if err != nil {
			return err
		}
		specs, err := perf.NamedMaskSpecs(flagCode, masks)
		if err != nil {
			return err
		}
		return perf.ValidateEventSpecs(specs)
	}
	specs, err := parseEvents(flagEvents)
	if err != nil {
		return err
	}
	return perf.ValidateEventSpecs(specs)
}

func parseEvents(events []string) ([]perf.EventSpec, error) {
	var specs []perf.EventSpec
	for _, event := range events {
		spec, err := perf.ParseEventSpec(event)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseMasks(values []string) ([]perf.NamedMask, error) {
	var masks []perf.NamedMask
	for _, value := range values {
		mask, err := perf.ParseNamedMask(value)
		if err != nil {
			return nil, err
		}
		masks = append(masks, mask)
	}
	return masks, nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	appContext := common.GetAppContext(cmd)
	session := samplingFlags.NewSession()
	unit, err := session.UnitKind(flagUnit)
	if err != nil {
		return common.Fail(cmd, err)
	}
	workload, err := samplingFlags.Workload(session.Topology, args)
	if err != nil {
		return common.Fail(cmd, err)
	}
	stop := common.HandleSignals()
	defer stop()
	var table report.Table
	tableName := fmt.Sprintf("Uncore Events (%s)", unit)
	if flagCode != "" {
		masks, err := parseMasks(flagMasks)
		if err != nil {
			return common.Fail(cmd, err)
		}
		counts, err := session.Sampler.SampleNamedMasks(workload, unit, flagCode, masks)
		if err != nil {
			return common.Fail(cmd, err)
		}
		order := make([]string, 0, len(masks))
		for _, mask := range masks {
			order = append(order, mask.Name)
		}
		table = report.NestedCounterTable(tableName, "Mask", "Instance", order, counts)
	} else {
		specs, err := parseEvents(flagEvents)
		if err != nil {
			return common.Fail(cmd, err)
		}
		counts, err := session.Sampler.SampleUncoreEvents(workload, unit, specs)
		if err != nil {
			return common.Fail(cmd, err)
		}
		order := make([]string, 0, len(specs))
		for _, spec := range specs {
			order = append(order, spec.Code)
		}
		table = report.NestedCounterTable(tableName, "Event", "Instance", order, counts)
	}
	if err := common.WriteReports(appContext, cmdName, []report.Table{table}, samplingFlags.Format); err != nil {
		return common.Fail(cmd, err)
	}
	return nil
}
