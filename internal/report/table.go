package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"cmp"
	"maps"
	"slices"
	"strconv"

	"perfsample/internal/sample"
)

// Field represents the values for a field in a table
type Field struct {
	Name   string
	Values []string
}

// Table is a named set of fields. When HasRows is set the fields are columns and each
// field holds one value per row, otherwise each field holds a single value.
type Table struct {
	Name        string
	HasRows     bool
	NoDataFound string // message to display when no data is found
	Fields      []Field
}

func (t *Table) addRow(values ...string) {
	for i := range t.Fields {
		t.Fields[i].Values = append(t.Fields[i].Values, values[i])
	}
}

// compareKeys orders instance and core labels numerically when both are numbers.
func compareKeys(a, b string) int {
	ai, aErr := strconv.Atoi(a)
	bi, bErr := strconv.Atoi(b)
	if aErr == nil && bErr == nil {
		return cmp.Compare(ai, bi)
	}
	return cmp.Compare(a, b)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.SortedFunc(maps.Keys(m), compareKeys)
}

// CounterTable renders one count per key, e.g., per event or per unit instance.
func CounterTable(name string, keyField string, counts map[string]int64) Table {
	table := Table{Name: name, HasRows: true, Fields: []Field{{Name: keyField}, {Name: "Count"}}}
	for _, key := range sortedKeys(counts) {
		table.addRow(key, strconv.FormatInt(counts[key], 10))
	}
	return table
}

// NestedCounterTable renders counts keyed by an outer and an inner label, e.g., event
// then unit instance. Outer keys appear in order, or sorted when order is nil.
func NestedCounterTable(name string, outerField string, innerField string, order []string, counts map[string]map[string]int64) Table {
	if order == nil {
		order = sortedKeys(counts)
	}
	table := Table{Name: name, HasRows: true, Fields: []Field{{Name: outerField}, {Name: innerField}, {Name: "Count"}}}
	for _, outer := range order {
		inner := counts[outer]
		for _, key := range sortedKeys(inner) {
			table.addRow(outer, key, strconv.FormatInt(inner[key], 10))
		}
	}
	return table
}

// RatioTable renders per core ratios keyed by event then core.
func RatioTable(name string, ratios map[string]map[string]float64) Table {
	table := Table{Name: name, HasRows: true, Fields: []Field{{Name: "Event"}, {Name: "Core"}, {Name: "Ratio"}}}
	for _, event := range sortedKeys(ratios) {
		perCore := ratios[event]
		for _, core := range sortedKeys(perCore) {
			table.addRow(event, core, strconv.FormatFloat(perCore[core], 'f', -1, 64))
		}
	}
	return table
}

// MetricTable renders derived metrics in definition order.
func MetricTable(name string, metrics []sample.Metric) Table {
	table := Table{Name: name, HasRows: true, Fields: []Field{{Name: "Metric"}, {Name: "Value"}}}
	for _, metric := range metrics {
		table.addRow(metric.Name, strconv.FormatFloat(metric.Value, 'f', -1, 64))
	}
	return table
}

// ValueTable renders single valued fields, e.g., host properties.
func ValueTable(name string, fields ...Field) Table {
	return Table{Name: name, Fields: fields}
}
