package uncore

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"testing"

	"perfsample/internal/perf"

	"github.com/stretchr/testify/assert"
)

func TestValidateEventFlags(t *testing.T) {
	tests := []struct {
		name    string
		events  []string
		code    string
		masks   []string
		wantErr error
		fails   bool
	}{
		{name: "events", events: []string{"0xb3:00001000", "0x34:00000001"}},
		{name: "named masks", code: "0x34", masks: []string{"hit=00000001", "miss=00000010"}},
		{name: "no events", wantErr: perf.ErrNoEvents},
		{name: "too many events", events: []string{"0x1:1", "0x2:1", "0x3:1", "0x4:1", "0x5:1"}, wantErr: perf.ErrTooManyEvents},
		{name: "duplicate code", events: []string{"0xb3:1", "0xb3:10"}, wantErr: perf.ErrDuplicateEventCode},
		{name: "events and code", events: []string{"0xb3:1"}, code: "0x34", masks: []string{"hit=1"}, fails: true},
		{name: "code without masks", code: "0x34", fails: true},
		{name: "malformed mask", code: "0x34", masks: []string{"hit"}, fails: true},
		{name: "malformed event", events: []string{"0xb3"}, fails: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flagEvents, flagCode, flagMasks = tt.events, tt.code, tt.masks
			defer func() { flagEvents, flagCode, flagMasks = nil, "", nil }()
			err := validateEventFlags()
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.fails:
				assert.Error(t, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
