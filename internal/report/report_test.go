package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"encoding/json"
	"testing"

	"perfsample/internal/sample"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func uncoreTable() Table {
	return NestedCounterTable("LLC Lookups", "Event", "Instance", []string{"miss", "hit"}, map[string]map[string]int64{
		"hit":  {"10": 5, "2": 1234567},
		"miss": {"0": 42},
	})
}

func TestTableBuilders(t *testing.T) {
	table := uncoreTable()
	assert.True(t, table.HasRows)
	assert.Equal(t, []Field{
		{Name: "Event", Values: []string{"miss", "hit", "hit"}},
		{Name: "Instance", Values: []string{"0", "2", "10"}},
		{Name: "Count", Values: []string{"42", "1234567", "5"}},
	}, table.Fields)

	counters := CounterTable("Core", "Event", map[string]int64{"instructions": 2, "cycles": 1})
	assert.Equal(t, []string{"cycles", "instructions"}, counters.Fields[0].Values)

	ratios := RatioTable("Normalized", map[string]map[string]float64{"instructions": {"1": 0.75, "0": 0.25}})
	assert.Equal(t, []string{"0.25", "0.75"}, ratios.Fields[2].Values)

	metrics := MetricTable("Metrics", []sample.Metric{{Name: "ipc", Value: 2.5}})
	assert.Equal(t, []Field{{Name: "Metric", Values: []string{"ipc"}}, {Name: "Value", Values: []string{"2.5"}}}, metrics.Fields)
}

func TestCreateMismatchedFields(t *testing.T) {
	table := Table{Name: "bad", HasRows: true, Fields: []Field{{Name: "a", Values: []string{"1"}}, {Name: "b"}}}
	_, err := Create(FormatTxt, []Table{table})
	assert.Error(t, err)
}

func TestCreateUnknownFormatPanics(t *testing.T) {
	assert.Panics(t, func() { _, _ = Create("html", nil) })
}

func TestTextReport(t *testing.T) {
	host := ValueTable("Host", Field{Name: "Name", Values: []string{"node1"}}, Field{Name: "Sockets", Values: []string{"2"}})
	empty := Table{Name: "Empty", HasRows: true, Fields: []Field{{Name: "Event"}, {Name: "Count"}}}
	out, err := Create(FormatTxt, []Table{host, uncoreTable(), empty})
	require.NoError(t, err)
	expected := `Host
====
Name:    node1
Sockets: 2

LLC Lookups
===========
Event   Instance   Count
-----   --------   -----
miss    0          42
hit     2          1,234,567
hit     10         5

Empty
=====
No data found.

`
	assert.Equal(t, expected, string(out))
}

func TestJsonReport(t *testing.T) {
	out, err := Create(FormatJson, []Table{uncoreTable()})
	require.NoError(t, err)
	var decoded map[string][]map[string]string
	require.NoError(t, json.Unmarshal(out, &decoded))
	require.Len(t, decoded["LLC Lookups"], 3)
	assert.Equal(t, map[string]string{"Event": "hit", "Instance": "2", "Count": "1234567"}, decoded["LLC Lookups"][1])
}

func TestYamlReport(t *testing.T) {
	out, err := Create(FormatYaml, []Table{uncoreTable()})
	require.NoError(t, err)
	expected := `LLC Lookups:
- Event: miss
  Instance: 0
  Count: 42
- Event: hit
  Instance: 2
  Count: 1234567
- Event: hit
  Instance: 10
  Count: 5
`
	assert.Equal(t, expected, string(out))
}

func TestXlsxReport(t *testing.T) {
	out, err := Create(FormatXlsx, []Table{uncoreTable()})
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()
	name, err := f.GetCellValue(XlsxPrimarySheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "LLC Lookups", name)
	header, err := f.GetCellValue(XlsxPrimarySheetName, "D2")
	require.NoError(t, err)
	assert.Equal(t, "Count", header)
	count, err := f.GetCellValue(XlsxPrimarySheetName, "D4")
	require.NoError(t, err)
	assert.Equal(t, "1234567", count)
}

func TestPromReport(t *testing.T) {
	host := ValueTable("Host", Field{Name: "Name", Values: []string{"node1"}})
	out, err := Create(FormatProm, []Table{host, uncoreTable()})
	require.NoError(t, err)
	text := string(out)
	assert.Contains(t, text, "# TYPE perfsample_llc_lookups gauge")
	assert.Contains(t, text, `perfsample_llc_lookups{event="hit",instance="2"} 1.234567e+06`)
	assert.Contains(t, text, `perfsample_llc_lookups{event="miss",instance="0"} 42`)
	assert.NotContains(t, text, "node1")
}

func TestSanitizeMetricName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"LLC Lookups", "llc_lookups"},
		{"Miss %", "miss_pct"},
		{"uncore_cha (0xb3)", "uncore_cha_0xb3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeMetricName(tt.in))
	}
}
