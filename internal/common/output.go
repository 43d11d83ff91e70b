package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"perfsample/internal/report"
)

// WriteReports renders tables in each format. Reports go to files in the output directory
// when one is set, xlsx always does, everything else is written to stdout.
func WriteReports(appContext AppContext, reportName string, tables []report.Table, formats []string) error {
	return writeReports(os.Stdout, appContext, reportName, tables, formats)
}

func writeReports(stdout io.Writer, appContext AppContext, reportName string, tables []report.Table, formats []string) error {
	for _, format := range formats {
		out, err := report.Create(format, tables)
		if err != nil {
			return fmt.Errorf("failed to create %s report: %w", format, err)
		}
		if appContext.OutputDir == "" && format != report.FormatXlsx {
			if _, err := stdout.Write(out); err != nil {
				return err
			}
			continue
		}
		outputDir := appContext.OutputDir
		if outputDir == "" {
			outputDir = "."
		}
		fileName := fmt.Sprintf("%s_%s_%s.%s", AppName, reportName, appContext.Timestamp, report.FileExtension(format))
		path := filepath.Join(outputDir, fileName)
		if err := os.WriteFile(path, out, 0644); err != nil { // #nosec G306
			return fmt.Errorf("failed to write report: %w", err)
		}
		slog.Info("wrote report", slog.String("path", path), slog.String("format", format))
		fmt.Fprintf(stdout, "Report written to %s\n", path)
	}
	return nil
}
