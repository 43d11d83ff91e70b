package encode

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinaryMaskToHex(t *testing.T) {
	tests := []struct {
		mask     string
		expected string
		err      error
	}{
		{"1101", "0xd", nil},
		{"1000", "0x8", nil},
		{"0", "0x0", nil},
		{"00000000", "0x0", nil},
		{"11111111", "0xff", nil},
		{"00010000", "0x10", nil},
		{"", "", ErrInvalidMask},
		{"10a1", "", ErrInvalidMask},
		{"0x10", "", ErrInvalidMask},
		{" 101", "", ErrInvalidMask},
		{"111111111", "", ErrMaskTooWide},
		{"000000001", "", ErrMaskTooWide},
	}
	for _, test := range tests {
		t.Run(test.mask, func(t *testing.T) {
			result, err := BinaryMaskToHex(test.mask)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, result)
		})
	}
}

// every binary string of up to 8 bits round-trips through its hex encoding
func TestBinaryMaskToHexRoundTrip(t *testing.T) {
	for width := 1; width <= 8; width++ {
		for val := 0; val < 1<<width; val++ {
			mask := fmt.Sprintf("%0*b", width, val)
			hexStr, err := BinaryMaskToHex(mask)
			require.NoError(t, err, mask)
			parsed, err := strconv.ParseUint(hexStr[2:], 16, 64)
			require.NoError(t, err, hexStr)
			assert.Equal(t, uint64(val), parsed, mask)
		}
	}
}

func TestNormalizeQuantity(t *testing.T) {
	sizes := map[string]int64{"B": 1, "KB": 1024, "MB": 1024 * 1024}
	tests := []struct {
		value    string
		target   string
		expected int64
		err      error
	}{
		{"64KB", "B", 65536, nil},
		{"64 KB", "B", 65536, nil},
		{"2MB", "KB", 2048, nil},
		{"512B", "B", 512, nil},
		{"1000B", "KB", 0, nil},
		{"1536KB", "MB", 1, nil},
		{"64", "B", 0, ErrUnrecognizedUnit},
		{"64GB", "B", 0, ErrInvalidQuantity}, // "B" matches, leaving "64G" as the number
		{"abcKB", "B", 0, ErrInvalidQuantity},
	}
	for _, test := range tests {
		t.Run(test.value+"->"+test.target, func(t *testing.T) {
			result, err := NormalizeQuantity(test.value, sizes, test.target)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, result)
		})
	}
}

func TestNormalizeQuantityUnknownTarget(t *testing.T) {
	assert.Panics(t, func() {
		_, _ = NormalizeQuantity("64KB", map[string]int64{"KB": 1024}, "B")
	})
}

func TestPadEventCode(t *testing.T) {
	tests := []struct {
		code     string
		zeros    int
		expected string
		err      error
	}{
		{"0xb3", 0, "0xb3", nil},
		{"0xb3", 1, "0x0b3", nil},
		{"0xb3", 2, "0x00b3", nil},
		{"0XF", 3, "0X000F", nil},
		{"b3", 1, "", ErrInvalidEventCode},
		{"0xb3", -1, "", ErrInvalidEventCode},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%s/%d", test.code, test.zeros), func(t *testing.T) {
			result, err := PadEventCode(test.code, test.zeros)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.expected, result)
		})
	}
}

func TestBytesToLines(t *testing.T) {
	assert.Equal(t, int64(10), BytesToLines(640, CacheLineSize))
	assert.Equal(t, int64(1), BytesToLines(127, 64))
	assert.Equal(t, int64(2), BytesToLines(128, 0))
}
