// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	c, err := ParseConfig("")
	require.NoError(t, err)
	assert.Equal(t, Config{}, c)

	c, err = ParseConfig("extern_result_memory, parallelism=4")
	require.NoError(t, err)
	assert.Equal(t, Config{ExternResultMemory: true, Parallelism: 4}, c)

	c, err = ParseConfig("extern_result_memory=false,parallelism=-1")
	require.NoError(t, err)
	assert.Equal(t, Config{Parallelism: -1}, c)

	_, err = ParseConfig("parallelism=many")
	require.Error(t, err)
	_, err = ParseConfig("extern_result_memory=maybe")
	require.Error(t, err)
	_, err = ParseConfig("fusion")
	require.ErrorContains(t, err, "unknown option")
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(ConfigEnv, "parallelism=2")
	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, 2, c.Parallelism)

	t.Setenv(ConfigEnv, "bogus")
	_, err = LoadConfig()
	require.ErrorContains(t, err, ConfigEnv)
}
