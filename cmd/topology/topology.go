// Package topology is a subcommand of the root command. It reports what perfsample knows
// about the host: uncore unit instances, sockets, NUMA nodes, and caches.
package topology

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"perfsample/internal/common"
	"perfsample/internal/report"
	"perfsample/internal/target"
	hosttopology "perfsample/internal/topology"

	"github.com/spf13/cobra"
)

const cmdName = "topology"

var examples = []string{
	fmt.Sprintf("  Show the host topology:             $ %s %s", common.AppName, cmdName),
	fmt.Sprintf("  Count memory controller instances:  $ %s %s --unit uncore_imc", common.AppName, cmdName),
	fmt.Sprintf("  Include the cache table:            $ %s %s --cache", common.AppName, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Show uncore units, sockets, NUMA nodes, and caches",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "other",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagUnit   string
	flagCache  bool
	flagFormat []string
)

const (
	flagUnitName   = "unit"
	flagCacheName  = "cache"
	flagFormatName = "format"
)

func init() {
	Cmd.Flags().StringVar(&flagUnit, flagUnitName, "", "")
	Cmd.Flags().BoolVar(&flagCache, flagCacheName, false, "")
	Cmd.Flags().StringSliceVar(&flagFormat, flagFormatName, []string{report.FormatTxt}, "")

	Cmd.SetUsageFunc(common.UsageFunc(getFlagGroups))
}

func getFlagGroups() []common.FlagGroup {
	return []common.FlagGroup{
		{
			GroupName: "Options",
			Flags: []common.Flag{
				{Name: flagUnitName, Help: "uncore unit kind to count (default: uncore_cha on Intel CPUs)"},
				{Name: flagCacheName, Help: "include the cache table"},
				{Name: flagFormatName, Help: fmt.Sprintf("choose output format(s) from: %s", strings.Join(report.FormatOptions, ", "))},
			},
		},
	}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if err := common.ValidateFormats(flagFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	appContext := common.GetAppContext(cmd)
	localTarget := target.NewLocalTarget()
	topo := hosttopology.NewSysfsTopology(localTarget)
	tables, err := hostTables(localTarget, topo)
	if err != nil {
		return common.Fail(cmd, err)
	}
	if err := common.WriteReports(appContext, cmdName, tables, flagFormat); err != nil {
		return common.Fail(cmd, err)
	}
	return nil
}

func hostTables(localTarget target.Target, topo *hosttopology.SysfsTopology) ([]report.Table, error) {
	arch, err := localTarget.GetArchitecture()
	if err != nil {
		return nil, err
	}
	vendor, err := topo.Vendor()
	if err != nil {
		return nil, err
	}
	unit := flagUnit
	var dataFabric bool
	if unit == "" {
		if unit, err = hosttopology.UnitKindForVendor(vendor); err != nil {
			if !errors.Is(err, hosttopology.ErrDataFabricOnly) {
				slog.Warn("no default uncore unit", slog.String("error", err.Error()))
			}
			if dataFabric, err = topo.HasPMU(hosttopology.DataFabricPMU); err != nil {
				return nil, err
			}
		}
	}
	sockets, err := topo.SocketCount()
	if err != nil {
		return nil, err
	}
	nodes, err := topo.NUMANodeCount()
	if err != nil {
		return nil, err
	}
	fields := []report.Field{
		{Name: "Host", Values: []string{localTarget.GetName()}},
		{Name: "Architecture", Values: []string{arch}},
		{Name: "Vendor", Values: []string{vendor}},
		{Name: "Sockets", Values: []string{strconv.Itoa(sockets)}},
		{Name: "NUMA Nodes", Values: []string{strconv.Itoa(nodes)}},
	}
	if unit != "" {
		instances, err := topo.UnitInstanceCount(unit)
		if err != nil {
			return nil, err
		}
		fields = append(fields, report.Field{Name: fmt.Sprintf("%s Instances", unit), Values: []string{strconv.Itoa(instances)}})
	}
	if dataFabric {
		fields = append(fields, report.Field{Name: "Data Fabric PMU", Values: []string{hosttopology.DataFabricPMU}})
	}
	tables := []report.Table{report.ValueTable("Host", fields...)}

	numa := report.Table{Name: "NUMA Nodes", HasRows: true, Fields: []report.Field{{Name: "Node"}, {Name: "CPUs"}}}
	for node := range nodes {
		cpus, err := topo.NUMANodeCPUs(node)
		if err != nil {
			return nil, err
		}
		numa.Fields[0].Values = append(numa.Fields[0].Values, strconv.Itoa(node))
		numa.Fields[1].Values = append(numa.Fields[1].Values, strconv.Itoa(len(cpus)))
	}
	tables = append(tables, numa)

	if flagCache {
		caches, err := topo.Caches()
		if err != nil {
			return nil, err
		}
		tables = append(tables, cacheTable(caches))
	}
	return tables, nil
}

func cacheTable(caches []hosttopology.Cache) report.Table {
	table := report.Table{Name: "Caches", HasRows: true, Fields: []report.Field{{Name: "Name"}, {Name: "Level"}, {Name: "Type"}, {Name: "Ways"}, {Name: "Size"}, {Name: "Size (KiB)"}}}
	for _, cache := range caches {
		sizeKB := "-"
		if cache.SizeKB != hosttopology.UnknownSize {
			sizeKB = strconv.FormatInt(cache.SizeKB, 10)
		}
		for i, value := range []string{cache.Name, cache.Level, cache.Type, cache.Ways, cache.OneSize, sizeKB} {
			table.Fields[i].Values = append(table.Fields[i].Values, value)
		}
	}
	return table
}
