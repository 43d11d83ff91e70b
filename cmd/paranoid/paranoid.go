// Package paranoid is a subcommand of the root command. It shows or sets the kernel's
// perf_event_paranoid level.
package paranoid

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"strings"

	"perfsample/internal/common"
	"perfsample/internal/perf"
	"perfsample/internal/sample"
	"perfsample/internal/target"
	"perfsample/internal/topology"

	"github.com/spf13/cobra"
)

const cmdName = "paranoid"

var examples = []string{
	fmt.Sprintf("  Show the current level:     $ %s %s", common.AppName, cmdName),
	fmt.Sprintf("  Allow unrestricted access:  $ %s %s --level -1", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Show or set kernel.perf_event_paranoid",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "other",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagLevel  int
	flagNoSudo bool
)

const (
	flagLevelName  = "level"
	flagNoSudoName = "no-sudo"
)

func init() {
	Cmd.Flags().IntVar(&flagLevel, flagLevelName, 0, "")
	Cmd.Flags().BoolVar(&flagNoSudo, flagNoSudoName, false, "")

	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	return []common.FlagGroup{
		{
			GroupName: "Options",
			Flags: []common.Flag{
				{
					Name: flagLevelName,
					Help: fmt.Sprintf("set the level, %d (no restrictions) through %d (maximum restriction)", perf.MinRestrictionLevel, perf.MaxRestrictionLevel),
				},
				{
					Name: flagNoSudoName,
					Help: "run sysctl without sudo",
				},
			},
		},
	}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed(flagLevelName) && (flagLevel < perf.MinRestrictionLevel || flagLevel > perf.MaxRestrictionLevel) {
		err := fmt.Errorf("%w: %d, allowed values are %d through %d", perf.ErrInvalidRestrictionLevel, flagLevel, perf.MinRestrictionLevel, perf.MaxRestrictionLevel)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	localTarget := target.NewLocalTarget()
	opts := sample.DefaultOptions()
	opts.Command.Sudo = !flagNoSudo
	sampler := sample.NewSampler(localTarget, topology.NewSysfsTopology(localTarget), opts)
	if cmd.Flags().Changed(flagLevelName) {
		if err := sampler.SetRestrictionLevel(flagLevel); err != nil {
			return common.Fail(cmd, err)
		}
	}
	level, err := sampler.RestrictionLevel()
	if err != nil {
		return common.Fail(cmd, err)
	}
	fmt.Printf("kernel.perf_event_paranoid = %d\n", level)
	return nil
}
