package topology

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"strings"

	"perfsample/internal/util"
)

// PinCommand confines workload's CPUs and memory to one NUMA node.
func PinCommand(workload string, node int) string {
	return fmt.Sprintf("numactl --cpunodebind=%d --membind=%d %s", node, node, workload)
}

// CPUPinCommand confines workload to the given CPUs.
func CPUPinCommand(workload string, cpus []int) string {
	return fmt.Sprintf("taskset -c %s %s", strings.Join(util.IntSliceToStringSlice(cpus), ","), workload)
}
