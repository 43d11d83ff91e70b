package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/json"

	"gopkg.in/yaml.v2"
)

func createJsonReport(tables []Table) (out []byte, err error) {
	type outRecord map[string]string
	type outTable []outRecord
	type outReport map[string]outTable
	oReport := make(outReport)
	for _, table := range tables {
		oTable := outTable{}
		numRecords := 0
		if len(table.Fields) > 0 {
			numRecords = len(table.Fields[0].Values)
		}
		for recordIdx := range numRecords {
			oRecord := make(outRecord)
			for _, field := range table.Fields {
				oRecord[field.Name] = field.Values[recordIdx]
			}
			oTable = append(oTable, oRecord)
		}
		oReport[table.Name] = oTable
	}
	return json.MarshalIndent(oReport, "", " ")
}

// createYamlReport keeps tables and fields in the order they were produced.
func createYamlReport(tables []Table) (out []byte, err error) {
	oReport := yaml.MapSlice{}
	for _, table := range tables {
		oTable := []yaml.MapSlice{}
		numRecords := 0
		if len(table.Fields) > 0 {
			numRecords = len(table.Fields[0].Values)
		}
		for recordIdx := range numRecords {
			oRecord := yaml.MapSlice{}
			for _, field := range table.Fields {
				oRecord = append(oRecord, yaml.MapItem{Key: field.Name, Value: getValueForCell(field.Values[recordIdx])})
			}
			oTable = append(oTable, oRecord)
		}
		oReport = append(oReport, yaml.MapItem{Key: table.Name, Value: oTable})
	}
	return yaml.Marshal(oReport)
}
