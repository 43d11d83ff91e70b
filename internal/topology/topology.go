// Package topology describes the host that perf runs on: uncore unit instances from sysfs,
// sockets, NUMA nodes, and caches from lscpu.
package topology

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"perfsample/internal/util"
)

const DefaultSysfsRoot = "/sys"

// IntelUnitKind is the numbered uncore unit sampled by default on Intel CPUs.
const IntelUnitKind = "uncore_cha"

// DataFabricPMU is the AMD data fabric PMU. It is a single, unnumbered PMU and is sampled with
// core event syntax rather than per instance.
const DataFabricPMU = "amd_df"

var (
	ErrUnknownVendor   = errors.New("no uncore unit known for CPU vendor")
	ErrDataFabricOnly  = errors.New("no numbered uncore unit on AMD CPUs, sample amd_df with the df command or pass --unit")
	ErrUnknownNUMANode = errors.New("unknown NUMA node")
	ErrMissingField    = errors.New("field not found in lscpu output")
)

// Runner runs commands on the host. target.LocalTarget satisfies it.
type Runner interface {
	RunCommand(cmd *exec.Cmd, timeout int) (stdout string, stderr string, exitCode int, err error)
}

// SysfsTopology answers topology questions from sysfs and lscpu. lscpu output is read once
// and reused.
type SysfsTopology struct {
	runner    Runner
	SysfsRoot string
	lscpu     string
}

func NewSysfsTopology(runner Runner) *SysfsTopology {
	return &SysfsTopology{runner: runner, SysfsRoot: DefaultSysfsRoot}
}

// UnitInstanceCount counts the <unitKind>_<n> PMUs under <sysfs>/devices, e.g.,
// uncore_cha_0 through uncore_cha_59.
func (t *SysfsTopology) UnitInstanceCount(unitKind string) (int, error) {
	pattern := filepath.Join(t.SysfsRoot, "devices", unitKind+"_*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", pattern, err)
	}
	count := 0
	for _, match := range matches {
		suffix := strings.TrimPrefix(filepath.Base(match), unitKind+"_")
		if _, err := strconv.Atoi(suffix); err == nil {
			count++
		}
	}
	slog.Debug("counted unit instances", slog.String("unit", unitKind), slog.Int("count", count))
	return count, nil
}

// HasPMU reports whether <sysfs>/devices/<name> exists, e.g., amd_df.
func (t *SysfsTopology) HasPMU(name string) (bool, error) {
	return util.DirectoryExists(filepath.Join(t.SysfsRoot, "devices", name))
}

// SocketCount returns lscpu's "Socket(s)".
func (t *SysfsTopology) SocketCount() (int, error) {
	return t.lscpuInt(`^Socket\(s\):\s*(.+)$`, "Socket(s)")
}

// NUMANodeCount returns lscpu's "NUMA node(s)".
func (t *SysfsTopology) NUMANodeCount() (int, error) {
	return t.lscpuInt(`^NUMA node\(s\):\s*(.+)$`, "NUMA node(s)")
}

// NUMANodeCPUs returns the CPUs of a NUMA node, expanded from lscpu's range list, e.g.,
// "0-3,8" yields [0 1 2 3 8].
func (t *SysfsTopology) NUMANodeCPUs(node int) ([]int, error) {
	output, err := t.lscpuOutput()
	if err != nil {
		return nil, err
	}
	cpuList := ValFromRegexSubmatch(output, fmt.Sprintf(`^NUMA node%d CPU\(s\):\s*(.+)$`, node))
	if cpuList == "" {
		return nil, fmt.Errorf("%w: %d", ErrUnknownNUMANode, node)
	}
	return util.SelectiveIntRangeToIntList(cpuList)
}

// Vendor returns lscpu's "Vendor ID", e.g., GenuineIntel.
func (t *SysfsTopology) Vendor() (string, error) {
	output, err := t.lscpuOutput()
	if err != nil {
		return "", err
	}
	vendor := ValFromRegexSubmatch(output, `^Vendor ID:\s*(.+)$`)
	if vendor == "" {
		return "", fmt.Errorf("%w: Vendor ID", ErrMissingField)
	}
	return vendor, nil
}

// UnitKind returns the uncore unit kind sampled by default on this host's CPUs.
func (t *SysfsTopology) UnitKind() (string, error) {
	vendor, err := t.Vendor()
	if err != nil {
		return "", err
	}
	return UnitKindForVendor(vendor)
}

// UnitKindForVendor maps a CPU vendor ID to its default numbered uncore unit kind. AMD CPUs
// have none, their data fabric PMU is sampled through the df command.
func UnitKindForVendor(vendor string) (string, error) {
	switch vendor {
	case "GenuineIntel":
		return IntelUnitKind, nil
	case "AuthenticAMD":
		return "", fmt.Errorf("%w: %s", ErrDataFabricOnly, vendor)
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownVendor, vendor)
}

func (t *SysfsTopology) lscpuInt(regex string, field string) (int, error) {
	output, err := t.lscpuOutput()
	if err != nil {
		return 0, err
	}
	val := ValFromRegexSubmatch(output, regex)
	if val == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingField, field)
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s from lscpu output: %s, %w", field, val, err)
	}
	return n, nil
}

func (t *SysfsTopology) lscpuOutput() (string, error) {
	if t.lscpu != "" {
		return t.lscpu, nil
	}
	stdout, err := t.run("lscpu")
	if err != nil {
		return "", err
	}
	t.lscpu = stdout
	return stdout, nil
}

func (t *SysfsTopology) run(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	stdout, stderr, exitCode, err := t.runner.RunCommand(cmd, 0)
	if err == nil && exitCode != 0 {
		err = fmt.Errorf("exit code %d", exitCode)
	}
	if err != nil {
		return "", fmt.Errorf("%s failed: %s: %w", cmd.String(), strings.TrimSpace(stderr), err)
	}
	return stdout, nil
}

// ValFromRegexSubmatch returns the first capture group of the first line that matches regex.
func ValFromRegexSubmatch(output string, regex string) string {
	re := regexp.MustCompile(regex)
	for line := range strings.SplitSeq(output, "\n") {
		match := re.FindStringSubmatch(strings.TrimSpace(line))
		if len(match) > 1 {
			return strings.TrimSpace(match[1])
		}
	}
	return ""
}
