package topology

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"testing"

	hosttopology "perfsample/internal/topology"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheTable(t *testing.T) {
	caches := []hosttopology.Cache{
		{Name: "L1d", Level: "1", Type: "Data", Ways: "12", OneSize: "48K", SizeKB: 48},
		{Name: "L2", Level: "2", Type: "Unified", Ways: "10", OneSize: "1.3M", SizeKB: hosttopology.UnknownSize},
	}
	table := cacheTable(caches)
	require.Len(t, table.Fields, 6)
	assert.True(t, table.HasRows)
	assert.Equal(t, []string{"48K", "1.3M"}, table.Fields[4].Values)
	assert.Equal(t, []string{"48", "-"}, table.Fields[5].Values)
}
