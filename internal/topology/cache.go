package topology

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"strings"

	"perfsample/internal/encode"
)

// cacheUnitScales are the size suffixes lscpu uses, in bytes.
var cacheUnitScales = map[string]int64{
	"B":   1,
	"K":   1 << 10,
	"KiB": 1 << 10,
	"M":   1 << 20,
	"MiB": 1 << 20,
	"G":   1 << 30,
	"GiB": 1 << 30,
}

// UnknownSize is the SizeKB of a cache whose size lscpu printed in a form that could not
// be parsed.
const UnknownSize = -1

// Cache is one row of 'lscpu -C'.
type Cache struct {
	Name    string
	Level   string
	Type    string
	Ways    string
	OneSize string // as printed, e.g., "48K"
	AllSize string
	SizeKB  int64 // OneSize in KiB, UnknownSize if it could not be parsed
}

// Caches returns the host's caches in the order lscpu lists them.
func (t *SysfsTopology) Caches() ([]Cache, error) {
	output, err := t.run("lscpu", "-C")
	if err != nil {
		return nil, err
	}
	return ParseLscpuCacheOutput(output)
}

// ParseLscpuCacheOutput parses the output of `lscpu -C` (text/tabular)
// Example output:
// NAME ONE-SIZE ALL-SIZE WAYS TYPE        LEVEL   SETS PHY-LINE COHERENCY-SIZE
// L1d       48K     8.1M   12 Data            1     64        1             64
// L1i       64K    10.8M   16 Instruction     1     64        1             64
// L2         2M     344M   16 Unified         2   2048        1             64
// L3       336M     672M   16 Unified         3 344064        1             64
func ParseLscpuCacheOutput(output string) ([]Cache, error) {
	trimmed := strings.TrimSpace(output)
	if trimmed == "" {
		return nil, fmt.Errorf("lscpu cache output is empty")
	}
	lines := strings.Split(trimmed, "\n")
	headerCols := strings.Fields(lines[0])
	if len(headerCols) == 0 || strings.ToLower(headerCols[0]) != "name" {
		return nil, fmt.Errorf("invalid lscpu cache header")
	}
	idx := map[string]int{}
	for i, h := range headerCols {
		idx[strings.ToLower(h)] = i
	}
	col := func(cols []string, name string) string {
		if i, ok := idx[name]; ok && i < len(cols) {
			return cols[i]
		}
		return ""
	}
	var caches []Cache
	for _, line := range lines[1:] {
		cols := strings.Fields(line)
		if len(cols) < 4 {
			continue
		}
		cache := Cache{
			Name:    col(cols, "name"),
			Level:   col(cols, "level"),
			Type:    col(cols, "type"),
			Ways:    col(cols, "ways"),
			OneSize: col(cols, "one-size"),
			AllSize: col(cols, "all-size"),
		}
		if cache.OneSize != "" {
			size, err := encode.NormalizeQuantity(cache.OneSize, cacheUnitScales, "K")
			if err != nil {
				// lscpu rounds some sizes to a fraction, e.g., 1.3M
				slog.Warn("failed to parse cache size", slog.String("cache", cache.Name), slog.String("size", cache.OneSize), slog.String("error", err.Error()))
				size = UnknownSize
			}
			cache.SizeKB = size
		}
		caches = append(caches, cache)
	}
	if len(caches) == 0 {
		return nil, fmt.Errorf("unexpected lscpu cache output format: header only")
	}
	return caches, nil
}
