// Package report renders sampled counters as txt, json, yaml, xlsx, or Prometheus text.
package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"strings"
)

const (
	FormatTxt  = "txt"
	FormatJson = "json"
	FormatYaml = "yaml"
	FormatXlsx = "xlsx"
	FormatProm = "prom"
)

const noDataFound = "No data found."

var FormatOptions = []string{FormatTxt, FormatJson, FormatYaml, FormatXlsx, FormatProm}

// Create generates a report in the specified format from the provided tables.
// The function ensures that all fields of a table have the same number of values before
// generating the report. If the format is not supported, the function panics.
func Create(format string, tables []Table) (out []byte, err error) {
	for _, table := range tables {
		numRows := -1
		for _, field := range table.Fields {
			if numRows == -1 {
				numRows = len(field.Values)
				continue
			}
			if len(field.Values) != numRows {
				return nil, fmt.Errorf("table %s: expected %d value(s) for field %s, found %d", table.Name, numRows, field.Name, len(field.Values))
			}
		}
	}
	switch format {
	case FormatTxt:
		return createTextReport(tables)
	case FormatJson:
		return createJsonReport(tables)
	case FormatYaml:
		return createYamlReport(tables)
	case FormatXlsx:
		return createXlsxReport(tables)
	case FormatProm:
		return createPromReport(tables)
	}
	panic(fmt.Sprintf("expected one of %s, got %s", strings.Join(FormatOptions, ", "), format))
}

// FileExtension returns the file extension for reports in format.
func FileExtension(format string) string {
	if format == FormatProm {
		return "prom"
	}
	return format
}

func hasData(table Table) bool {
	return len(table.Fields) > 0 && len(table.Fields[0].Values) > 0
}

func noDataMessage(table Table) string {
	if table.NoDataFound != "" {
		return table.NoDataFound
	}
	return noDataFound
}
