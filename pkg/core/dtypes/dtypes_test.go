// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import (
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

func TestMapOfNames(t *testing.T) {
	assert.Equal(t, Float16, MapOfNames["Float16"])
	assert.Equal(t, Float16, MapOfNames["float16"])
	assert.Equal(t, Float16, MapOfNames["F16"])
	assert.Equal(t, Float16, MapOfNames["f16"])
	assert.Equal(t, Float32, MapOfNames["float"])
	assert.Equal(t, Int32, MapOfNames["int32_t"])
	assert.Equal(t, BFloat16, MapOfNames["bf16"])
}

func TestParse(t *testing.T) {
	dtype, err := Parse("float32")
	require.NoError(t, err)
	assert.Equal(t, Float32, dtype)

	dtype, err = Parse("DOUBLE")
	require.NoError(t, err)
	assert.Equal(t, Float64, dtype)

	_, err = Parse("float7")
	require.Error(t, err)
	_, err = Parse("invalid")
	require.Error(t, err)
}

func TestCType(t *testing.T) {
	for dtype, want := range map[DType]string{
		Bool:       "char",
		Int8:       "int8_t",
		Int64:      "int64_t",
		Uint16:     "uint16_t",
		Float16:    "half",
		Float32:    "float",
		Float64:    "double",
		Complex128: "cuDoubleComplex",
	} {
		assert.Equal(t, want, dtype.CType(), "dtype %s", dtype)
	}
	require.Panics(t, func() { _ = InvalidDType.CType() })

	// Every C type tag must parse back to its dtype, except the ones that are shared.
	for _, dtype := range []DType{Int8, Int16, Int32, Int64, Uint8, Uint16, Uint32, Uint64, Float16, Float32, Float64} {
		got, err := Parse(dtype.CType())
		require.NoError(t, err)
		assert.Equal(t, dtype, got)
	}
}

func TestFromGoType(t *testing.T) {
	assert.Equal(t, Float32, FromGoType(reflect.TypeOf(float32(0))))
	assert.Equal(t, Float16, FromGoType(reflect.TypeOf(float16.Float16(0))))
	assert.Equal(t, Uint8, FromGoType(reflect.TypeOf(uint8(0))))
	assert.Equal(t, Bool, FromGoType(reflect.TypeOf(true)))
	assert.Equal(t, Complex64, FromGoType(reflect.TypeOf(complex64(0))))
	assert.Equal(t, InvalidDType, FromGoType(reflect.TypeOf("")))
	assert.Equal(t, InvalidDType, FromGoType(nil))
}

func TestStringAndSize(t *testing.T) {
	assert.Equal(t, "Float32", Float32.String())
	assert.Equal(t, "DType(99)", DType(99).String())
	assert.False(t, DType(99).IsValid())
	assert.False(t, InvalidDType.IsValid())
	assert.True(t, Int8.IsValid())
	assert.Equal(t, 2, BFloat16.Size())
	assert.Equal(t, 16, Complex128.Size())
	assert.True(t, Float16.IsFloat())
	assert.True(t, Uint64.IsInt())
	assert.False(t, Bool.IsInt())
}

func TestLiteral(t *testing.T) {
	assert.Equal(t, "1", Literal(Bool, 7))
	assert.Equal(t, "0", Literal(Bool, 0))
	assert.Equal(t, "-3", Literal(Int8, -3))
	assert.Equal(t, "-3LL", Literal(Int64, int64(-3)))
	assert.Equal(t, "42U", Literal(Uint32, 42))
	assert.Equal(t, "18446744073709551615ULL", Literal(Uint64, uint64(math.MaxUint64)))
	assert.Equal(t, "0.5f", Literal(Float32, 0.5))
	assert.Equal(t, "1.0f", Literal(Float32, 1))
	assert.Equal(t, "1e+20f", Literal(Float32, 1e20))
	assert.Equal(t, "0.1", Literal(Float64, 0.1))
	assert.Equal(t, "2.0", Literal(Float64, int64(2)))
	assert.Equal(t, "NAN", Literal(Float64, math.NaN()))
	assert.Equal(t, "-INFINITY", Literal(Float32, math.Inf(-1)))
	assert.Equal(t, "__ushort_as_half((unsigned short)0x3c00)", Literal(Float16, 1.0))
	assert.Equal(t, "__ushort_as_half((unsigned short)0xb800)", Literal(Float16, -0.5))
	assert.Equal(t, "__float2bfloat16(0.25f)", Literal(BFloat16, 0.25))
	require.Panics(t, func() { _ = Literal(Complex64, 1.0) })
	require.Panics(t, func() { _ = Literal(InvalidDType, 1) })
}
