/*
Package encode converts user-facing values, i.e., binary unit masks, quantities with unit
suffixes, and event codes, into the encodings perf expects or that output parsing relies on.
*/
package encode

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrInvalidMask      = errors.New("invalid binary mask")
	ErrMaskTooWide      = errors.New("mask wider than 8 bits")
	ErrUnrecognizedUnit = errors.New("unrecognized unit")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidEventCode = errors.New("invalid event code")
)

// CacheLineSize is the number of bytes perf attributes to one counted cache line when it
// scales a line-granularity event into a "Bytes" unit.
const CacheLineSize int64 = 64

const maxMask = 0xff

// BinaryMaskToHex converts a binary string umask, e.g., "1101", into the hex
// representation perf expects, e.g., "0xd".
func BinaryMaskToHex(mask string) (string, error) {
	if mask == "" {
		return "", fmt.Errorf("%w: mask is empty", ErrInvalidMask)
	}
	if strings.Trim(mask, "01") != "" {
		return "", fmt.Errorf("%w: %q is not a binary string", ErrInvalidMask, mask)
	}
	if len(mask) > 8 {
		return "", fmt.Errorf("%w: %s has %d bits", ErrMaskTooWide, mask, len(mask))
	}
	val, err := strconv.ParseUint(mask, 2, 16)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMask, err)
	}
	if val > maxMask {
		return "", fmt.Errorf("%w: %s", ErrMaskTooWide, mask)
	}
	return fmt.Sprintf("0x%x", val), nil
}

// NormalizeQuantity parses a quantity with a unit suffix, e.g., "64KB", and converts it
// into targetUnit using the scales in unitScales. Units are matched longest first so that
// a short unit ("B") never shadows a longer one ("KB"). The result is truncated toward zero.
// targetUnit must be a key of unitScales.
func NormalizeQuantity(value string, unitScales map[string]int64, targetUnit string) (int64, error) {
	targetScale, ok := unitScales[targetUnit]
	if !ok || targetScale == 0 {
		panic(fmt.Sprintf("target unit %q is not a valid key of the unit scales", targetUnit))
	}
	units := make([]string, 0, len(unitScales))
	for unit := range unitScales {
		units = append(units, unit)
	}
	sort.Slice(units, func(i, j int) bool {
		if len(units[i]) != len(units[j]) {
			return len(units[i]) > len(units[j])
		}
		return units[i] < units[j]
	})
	for _, unit := range units {
		idx := strings.Index(value, unit)
		if unit == "" || idx < 0 {
			continue
		}
		numStr := strings.TrimSpace(value[:idx])
		num, err := strconv.ParseInt(numStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, value)
		}
		return num * unitScales[unit] / targetScale, nil
	}
	return 0, fmt.Errorf("%w: %q did not contain a unit out of %s", ErrUnrecognizedUnit, value, strings.Join(units, ", "))
}

// PadEventCode inserts zeros after the "0x" prefix of an event code. The numeric value
// is unchanged but each zero count yields a textually distinct code, e.g.,
// PadEventCode("0xb3", 2) returns "0x00b3".
func PadEventCode(code string, zeros int) (string, error) {
	if zeros < 0 {
		return "", fmt.Errorf("%w: negative zero count %d", ErrInvalidEventCode, zeros)
	}
	if !strings.HasPrefix(code, "0x") && !strings.HasPrefix(code, "0X") {
		return "", fmt.Errorf("%w: %q does not start with 0x", ErrInvalidEventCode, code)
	}
	if zeros == 0 {
		return code, nil
	}
	return code[:2] + strings.Repeat("0", zeros) + code[2:], nil
}

// BytesToLines converts a byte count reported by perf back into cache lines.
func BytesToLines(bytes int64, lineSize int64) int64 {
	if lineSize <= 0 {
		lineSize = CacheLineSize
	}
	return bytes / lineSize
}
