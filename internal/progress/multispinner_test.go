package progress

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMultiSpinner(t *testing.T) {
	spinner := NewMultiSpinner()
	if spinner == nil {
		t.Fatal("failed to create a spinner")
	}
}

func TestMultiSpinner(t *testing.T) {
	var out bytes.Buffer
	spinner := NewMultiSpinnerWriter(&out, false)
	require.NoError(t, spinner.AddSpinner("uncore"))
	require.NoError(t, spinner.AddSpinner("core"))
	assert.Error(t, spinner.AddSpinner("uncore"), "added spinner with same label")
	spinner.Start()

	assert.NoError(t, spinner.Status("uncore", "sampling"))
	assert.NoError(t, spinner.Status("core", "done"))
	assert.Error(t, spinner.Status("percore", "sampling"), "updated status of non-existent spinner")
	spinner.Finish()

	// without a terminal only changed statuses are printed
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "uncore")
	assert.Contains(t, lines[0], "sampling")
	assert.Contains(t, lines[1], "done")
	assert.NotContains(t, out.String(), "\x1b[1A")
}

func TestMultiSpinnerTerminal(t *testing.T) {
	var out bytes.Buffer
	spinner := NewMultiSpinnerWriter(&out, true)
	require.NoError(t, spinner.AddSpinner("uncore"))
	spinner.Start()
	spinner.Finish()
	assert.Contains(t, out.String(), "\x1b[1A")
	assert.GreaterOrEqual(t, strings.Count(out.String(), "uncore"), 2)
}
