package profile

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"testing"

	"perfsample/internal/encode"
	"perfsample/internal/perf"
	"perfsample/internal/sample"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const llcProfile = `
name: llc
description: LLC lookups and IPC
uncore:
  - name: lookups
    unit: uncore_cha
    code: "0x34"
    masks:
      miss: "00000010"
      hit: "00000001"
      any: "00000011"
  - events: ["0x35:00000001", "0x36:00000001"]
core:
  events: [cycles, instructions]
  metrics:
    - name: ipc
      expression: instructions / cycles
percore:
  events: [LLC-load-misses]
  socket: 1
  normalize: true
df:
  events: ["0x1f:00000001"]
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "llc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(llcProfile), 0644))
	profile, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "llc", profile.Name)
	require.Len(t, profile.Uncore, 2)

	lookups := profile.Uncore[0]
	assert.True(t, lookups.IsNamed())
	masks, err := lookups.NamedMasks()
	require.NoError(t, err)
	assert.Equal(t, []perf.NamedMask{
		{Name: "miss", Mask: "00000010"},
		{Name: "hit", Mask: "00000001"},
		{Name: "any", Mask: "00000011"},
	}, masks)
	specs, err := lookups.EventSpecs()
	require.NoError(t, err)
	assert.Equal(t, []perf.EventSpec{
		{Code: "0x34", Mask: "00000010", Name: "miss"},
		{Code: "0x034", Mask: "00000001", Name: "hit"},
		{Code: "0x0034", Mask: "00000011", Name: "any"},
	}, specs)

	assert.False(t, profile.Uncore[1].IsNamed())
	assert.Equal(t, "", profile.Uncore[1].Unit)
	specs, err = profile.Uncore[1].EventSpecs()
	require.NoError(t, err)
	assert.Equal(t, []perf.EventSpec{{Code: "0x35", Mask: "00000001"}, {Code: "0x36", Mask: "00000001"}}, specs)

	require.NotNil(t, profile.Core)
	assert.Equal(t, []string{"cycles", "instructions"}, profile.Core.Events)
	assert.Equal(t, []sample.MetricDefinition{{Name: "ipc", Expression: "instructions / cycles"}}, profile.Core.Metrics)

	require.NotNil(t, profile.PerCore)
	assert.Equal(t, 1, profile.PerCore.Socket)
	assert.True(t, profile.PerCore.Normalize)

	require.NotNil(t, profile.DataFabric)
	assert.Equal(t, []string{"0x1f:00000001"}, profile.DataFabric.Events)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
	}{
		{"empty", "name: nothing\n", nil},
		{"unknown field", "name: x\ncores: {events: [cycles]}\n", nil},
		{"unquoted mask", "uncore:\n  - code: \"0x34\"\n    masks: {hit: 00000001}\n", nil},
		{"bad mask", "uncore:\n  - events: [\"0x34:00000201\"]\n", encode.ErrInvalidMask},
		{"too many", "uncore:\n  - events: [\"0x1:1\", \"0x2:1\", \"0x3:1\", \"0x4:1\", \"0x5:1\"]\n", perf.ErrTooManyEvents},
		{"duplicate code", "uncore:\n  - events: [\"0x1:1\", \"0x1:10\"]\n", perf.ErrDuplicateEventCode},
		{"masks and events", "uncore:\n  - code: \"0x34\"\n    masks: {hit: \"1\"}\n    events: [\"0x1:1\"]\n", nil},
		{"masks without code", "uncore:\n  - masks: {hit: \"1\"}\n", nil},
		{"empty core", "core: {events: []}\n", perf.ErrNoEvents},
		{"negative socket", "percore: {events: [cycles], socket: -1}\n", sample.ErrInvalidSocket},
		{"bad df", "df: {events: [\"0x1f\"]}\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
