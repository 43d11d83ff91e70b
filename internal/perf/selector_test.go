package perf

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"testing"

	"perfsample/internal/encode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitEventSelector(t *testing.T) {
	selector, err := UnitEventSelector("uncore_cha", 3, "0xb3", "0x8")
	require.NoError(t, err)
	assert.Equal(t, "uncore_cha_3/event=0xb3,umask=0x8/", selector)

	_, err = UnitEventSelector("uncore_cha", -1, "0xb3", "0x8")
	assert.ErrorIs(t, err, ErrNegativeInstance)
}

func TestAllInstanceSelectors(t *testing.T) {
	selectors, err := AllInstanceSelectors("uncore_imc", 3, "0x04", "0x3")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"uncore_imc_0/event=0x04,umask=0x3/",
		"uncore_imc_1/event=0x04,umask=0x3/",
		"uncore_imc_2/event=0x04,umask=0x3/",
	}, selectors)

	selectors, err = AllInstanceSelectors("uncore_imc", 0, "0x04", "0x3")
	require.NoError(t, err)
	assert.Empty(t, selectors)
}

func TestDataFabricSelector(t *testing.T) {
	assert.Equal(t, "amd_df/event=0x1f,umask=0x1/", DataFabricSelector("0x1f", "0x1"))
}

func TestDisambiguateEventCodes(t *testing.T) {
	padded, err := DisambiguateEventCodes([]EventSpec{
		{Code: "0xb3", Mask: "1000"},
		{Code: "0xb3", Mask: "0100"},
		{Code: "0xb3", Mask: "0010"},
	})
	require.NoError(t, err)
	assert.Equal(t, []EventSpec{
		{Code: "0xb3", Mask: "1000"},
		{Code: "0x0b3", Mask: "0100"},
		{Code: "0x00b3", Mask: "0010"},
	}, padded)
}

// any list of up to 8 specs sharing one code disambiguates into distinct codes
func TestDisambiguateEventCodesAlwaysDistinct(t *testing.T) {
	for n := 1; n <= 8; n++ {
		var specs []EventSpec
		for i := range n {
			specs = append(specs, EventSpec{Code: "0xb3", Mask: fmt.Sprintf("%08b", i)})
		}
		padded, err := DisambiguateEventCodes(specs)
		require.NoError(t, err)
		require.Len(t, padded, n)
		seen := make(map[string]bool)
		for _, spec := range padded {
			assert.False(t, seen[spec.Code], "duplicate code %s", spec.Code)
			seen[spec.Code] = true
			assert.Equal(t, "0xb3", "0x"+trimZeros(spec.Code[2:]))
		}
	}
}

func TestDisambiguateEventCodesCollision(t *testing.T) {
	// a caller supplied pre-padded code collides with the padding of its neighbour
	_, err := DisambiguateEventCodes([]EventSpec{
		{Code: "0x0b3", Mask: "1"},
		{Code: "0xb3", Mask: "1"},
	})
	assert.ErrorIs(t, err, ErrDuplicateEventCode)

	_, err = DisambiguateEventCodes([]EventSpec{{Code: "b3", Mask: "1"}})
	assert.ErrorIs(t, err, encode.ErrInvalidEventCode)
}

func TestNamedMaskSpecs(t *testing.T) {
	specs, err := NamedMaskSpecs("0xb3", []NamedMask{
		{Name: "remote", Mask: "00010000"},
		{Name: "local", Mask: "00001000"},
	})
	require.NoError(t, err)
	assert.Equal(t, []EventSpec{
		{Code: "0xb3", Mask: "00010000", Name: "remote"},
		{Code: "0x0b3", Mask: "00001000", Name: "local"},
	}, specs)

	_, err = NamedMaskSpecs("0xb3", []NamedMask{{Name: "a", Mask: "1"}, {Name: "a", Mask: "10"}})
	assert.Error(t, err)
}

func TestParseEventSpec(t *testing.T) {
	spec, err := ParseEventSpec("0xb3:00001000")
	require.NoError(t, err)
	assert.Equal(t, EventSpec{Code: "0xb3", Mask: "00001000"}, spec)
	assert.Equal(t, "0xb3:00001000", spec.String())

	for _, bad := range []string{"0xb3", "0xb3:", ":1", ""} {
		_, err = ParseEventSpec(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseNamedMask(t *testing.T) {
	m, err := ParseNamedMask("local=00001000")
	require.NoError(t, err)
	assert.Equal(t, NamedMask{Name: "local", Mask: "00001000"}, m)

	_, err = ParseNamedMask("local")
	assert.Error(t, err)
}

func trimZeros(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}
