package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func createTextReport(tables []Table) (out []byte, err error) {
	var sb strings.Builder
	for _, table := range tables {
		sb.WriteString(fmt.Sprintf("%s\n", table.Name))
		sb.WriteString(strings.Repeat("=", len(table.Name)))
		sb.WriteString("\n")
		if !hasData(table) {
			sb.WriteString(noDataMessage(table) + "\n\n")
			continue
		}
		sb.WriteString(renderTextTable(table))
		sb.WriteString("\n")
	}
	out = []byte(sb.String())
	return
}

// groupThousands inserts thousands separators into integer values, e.g., 1234567 becomes
// 1,234,567, the way perf prints counters. Other values are unchanged.
func groupThousands(p *message.Printer, value string) string {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return p.Sprintf("%d", n)
	}
	return value
}

func renderTextTable(table Table) string {
	p := message.NewPrinter(language.English)
	var sb strings.Builder
	if table.HasRows { // print the field names as column headings across the top of the table
		values := make([][]string, len(table.Fields))
		for i, field := range table.Fields {
			values[i] = make([]string, len(field.Values))
			for row, val := range field.Values {
				values[i][row] = groupThousands(p, val)
			}
		}
		// find the longest item per column -- can be the field name (column header) or a value
		maxFieldLen := make([]int, len(table.Fields))
		for i, field := range table.Fields {
			// the last column shouldn't occupy more space than the value
			if i == len(table.Fields)-1 {
				continue
			}
			maxFieldLen[i] = utf8.RuneCountInString(field.Name)
			for _, val := range values[i] {
				maxFieldLen[i] = max(maxFieldLen[i], utf8.RuneCountInString(val))
			}
		}
		columnSpacing := 3
		writeLine := func(cells func(i int) string) {
			var line strings.Builder
			for i := range table.Fields {
				line.WriteString(fmt.Sprintf("%-*s", maxFieldLen[i]+columnSpacing, cells(i)))
			}
			sb.WriteString(strings.TrimRight(line.String(), " "))
			sb.WriteString("\n")
		}
		writeLine(func(i int) string { return table.Fields[i].Name })
		// underline the field names
		writeLine(func(i int) string { return strings.Repeat("-", len(table.Fields[i].Name)) })
		numRows := len(table.Fields[0].Values)
		for row := range numRows {
			writeLine(func(i int) string { return values[i][row] })
		}
	} else {
		// get the longest field name to format the table nicely
		maxFieldNameLen := 0
		for _, field := range table.Fields {
			maxFieldNameLen = max(maxFieldNameLen, len(field.Name))
		}
		// print the field names followed by their value
		for _, field := range table.Fields {
			var value string
			if len(field.Values) > 0 {
				value = groupThousands(p, field.Values[0])
			}
			sb.WriteString(fmt.Sprintf("%s%-*s %s\n", field.Name, maxFieldNameLen-len(field.Name)+1, ":", value))
		}
	}
	return sb.String()
}
