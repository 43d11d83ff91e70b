package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const promMetricPrefix = "perfsample_"

var rxInvalidPromChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func sanitizeMetricName(name string) string {
	sanitized := strings.ReplaceAll(name, "%", "pct")
	sanitized = rxInvalidPromChars.ReplaceAllString(strings.ToLower(sanitized), "_")
	return strings.Trim(sanitized, "_")
}

// createPromReport writes each row-form table as a gauge in the Prometheus text format,
// for node_exporter's textfile collector. The last field is the value, the others become
// labels. Rows whose value is not a number are skipped.
func createPromReport(tables []Table) (out []byte, err error) {
	registry := prometheus.NewRegistry()
	for _, table := range tables {
		if !table.HasRows || len(table.Fields) == 0 {
			slog.Debug("skipping table without rows in prometheus output", slog.String("table", table.Name))
			continue
		}
		labelFields := table.Fields[:len(table.Fields)-1]
		valueField := table.Fields[len(table.Fields)-1]
		labels := make([]string, len(labelFields))
		for i, field := range labelFields {
			labels[i] = sanitizeMetricName(field.Name)
		}
		gauge := prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: promMetricPrefix + sanitizeMetricName(table.Name),
				Help: fmt.Sprintf("%s (%s)", table.Name, valueField.Name),
			},
			labels,
		)
		if err = registry.Register(gauge); err != nil {
			return nil, fmt.Errorf("failed to register metric for table %s: %w", table.Name, err)
		}
		for row, valueStr := range valueField.Values {
			value, parseErr := strconv.ParseFloat(valueStr, 64)
			if parseErr != nil {
				continue
			}
			labelValues := make([]string, len(labelFields))
			for i, field := range labelFields {
				labelValues[i] = field.Values[row]
			}
			gauge.WithLabelValues(labelValues...).Set(value)
		}
	}
	families, err := registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}
	var buf bytes.Buffer
	for _, family := range families {
		if _, err = expfmt.MetricFamilyToText(&buf, family); err != nil {
			return nil, fmt.Errorf("failed to encode metric %s: %w", family.GetName(), err)
		}
	}
	return buf.Bytes(), nil
}
