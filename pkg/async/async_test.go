// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package async

import (
	"testing"

	"github.com/gomlx/kernelgen/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	m := NewManager()
	require.Nil(t, m.Next())

	s0 := m.Stream(tensors.CUDAGPU, 0, "stream_0")
	s1 := m.Stream(tensors.CUDAGPU, 1, "stream_1")
	assert.Same(t, s0, m.Stream(tensors.CUDAGPU, 0, "stream_0"))
	assert.Len(t, m.Streams(), 2)

	symbol, found := s1.Symbol(CUDNNHandle)
	require.True(t, found)
	assert.Equal(t, "cudnn_handle_1", symbol)
	symbol, found = s0.Symbol(CUBLASHandle)
	require.True(t, found)
	assert.Equal(t, "cublas_handle_0", symbol)

	// Round-robin.
	assert.Same(t, s0, m.Next())
	assert.Same(t, s1, m.Next())
	assert.Same(t, s0, m.Next())

	// Clone doesn't share the bindings.
	c := s0.Clone()
	delete(c.BindingSymbols, CUDNNHandle)
	_, found = s0.Symbol(CUDNNHandle)
	assert.True(t, found)

	var nilStream *Stream
	_, found = nilStream.Symbol(CUDNNHandle)
	assert.False(t, found)
}
