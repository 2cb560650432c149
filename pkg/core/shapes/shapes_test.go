// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shapes

import (
	"testing"

	"github.com/gomlx/kernelgen/pkg/core/dtypes"
	"github.com/stretchr/testify/require"
)

func TestShape(t *testing.T) {
	require.False(t, Shape{}.Ok())

	shape0 := Make(dtypes.Float64)
	require.True(t, shape0.Ok())
	require.True(t, shape0.IsScalar())
	require.Equal(t, 0, shape0.Rank())
	require.Equal(t, 1, shape0.Size())
	require.Equal(t, 8, int(shape0.Memory()))
	require.Equal(t, "(Float64)", shape0.String())
	require.Equal(t, "Shape{}", shape0.DimensionsString())

	shape1 := Make(dtypes.Float32, 4, 3, 2)
	require.False(t, shape1.IsScalar())
	require.Equal(t, 3, shape1.Rank())
	require.Equal(t, 4*3*2, shape1.Size())
	require.Equal(t, 4*4*3*2, int(shape1.Memory()))
	require.Equal(t, "(Float32)[4 3 2]", shape1.String())
	require.Equal(t, "Shape{4, 3, 2}", shape1.DimensionsString())

	// Empty tensors are valid kernel shapes.
	empty := Make(dtypes.Int32, 0, 5)
	require.Equal(t, 0, empty.Size())
	require.Panics(t, func() { _ = Make(dtypes.Int32, 2, -1) })
}

func TestEqualAndClone(t *testing.T) {
	s := Make(dtypes.Int8, 2, 3)
	c := s.Clone()
	require.True(t, s.Equal(c))
	c.Dimensions[0] = 7
	require.False(t, s.Equal(c))
	require.Equal(t, 2, s.Dimensions[0])
	require.True(t, s.EqualDimensions(Make(dtypes.Float32, 2, 3)))
	require.False(t, s.Equal(Make(dtypes.Float32, 2, 3)))
}
