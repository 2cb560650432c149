// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dtypes includes the DType enum for the element types of tensors handled by the kernel
// generator, and their mapping to the low-level type tags used in generated code.
//
// It is forked from github.com/gomlx/gomlx/pkg/core/dtypes: only the numeric types that can be
// represented in generated C/CUDA code are kept.
package dtypes

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// panicf panics with the formatted description.
//
// It is only used for "bugs in the code" -- when parameters don't follow the specifications.
func panicf(format string, args ...any) {
	panic(errors.Errorf(format, args...))
}

func init() {
	// Add a mapping to the lower-case version of dtypes.
	keys := slices.Collect(maps.Keys(MapOfNames))
	for _, key := range keys {
		lowerKey := strings.ToLower(key)
		if lowerKey == key {
			continue
		}
		if _, found := MapOfNames[lowerKey]; found {
			continue
		}
		MapOfNames[lowerKey] = MapOfNames[key]
	}
}

// String implements fmt.Stringer.
func (dtype DType) String() string {
	if name, found := dtypeNames[dtype]; found {
		return name
	}
	return fmt.Sprintf("DType(%d)", int32(dtype))
}

// IsValid returns whether dtype is one of the known element types.
func (dtype DType) IsValid() bool {
	_, found := dtypeNames[dtype]
	return found && dtype != InvalidDType
}

// Parse returns the DType for the given name, see MapOfNames for the accepted names.
func Parse(name string) (DType, error) {
	dtype, found := MapOfNames[name]
	if !found {
		dtype, found = MapOfNames[strings.ToLower(name)]
	}
	if !found || dtype == InvalidDType {
		return InvalidDType, errors.Errorf("unknown dtype %q", name)
	}
	return dtype, nil
}

// CType returns the canonical low-level type tag used for dtype in generated code.
// It is used for kernel names, signatures and comments.
//
// It panics for InvalidDType or unknown values.
func (dtype DType) CType() string {
	switch dtype {
	case Bool:
		return "char"
	case Int8:
		return "int8_t"
	case Int16:
		return "int16_t"
	case Int32:
		return "int32_t"
	case Int64:
		return "int64_t"
	case Uint8:
		return "uint8_t"
	case Uint16:
		return "uint16_t"
	case Uint32:
		return "uint32_t"
	case Uint64:
		return "uint64_t"
	case Float16:
		return "half"
	case BFloat16:
		return "bfloat16"
	case Float32:
		return "float"
	case Float64:
		return "double"
	case Complex64:
		return "cuFloatComplex"
	case Complex128:
		return "cuDoubleComplex"
	default:
		panicf("no C type for dtype %s", dtype)
		panic(nil)
	}
}

// Size returns the number of bytes of one element of dtype.
func (dtype DType) Size() int {
	switch dtype {
	case Bool, Int8, Uint8:
		return 1
	case Int16, Uint16, Float16, BFloat16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Int64, Uint64, Float64, Complex64:
		return 8
	case Complex128:
		return 16
	default:
		panicf("unknown size for dtype %s", dtype)
		panic(nil)
	}
}

// IsFloat returns whether dtype is a floating point type.
func (dtype DType) IsFloat() bool {
	return dtype == Float16 || dtype == BFloat16 || dtype == Float32 || dtype == Float64
}

// IsInt returns whether dtype is an integer type (signed or unsigned).
func (dtype DType) IsInt() bool {
	return dtype >= Int8 && dtype <= Uint64
}

var float16Type = reflect.TypeOf(float16.Float16(0))

// FromGoType returns the DType for the given "reflect.Type", or InvalidDType if there is no mapping
// (or t is nil).
func FromGoType(t reflect.Type) DType {
	if t == nil {
		return InvalidDType
	}
	if t == float16Type {
		return Float16
	}
	switch t.Kind() {
	case reflect.Int:
		if strconv.IntSize == 32 {
			return Int32
		}
		return Int64
	case reflect.Int64:
		return Int64
	case reflect.Int32:
		return Int32
	case reflect.Int16:
		return Int16
	case reflect.Int8:
		return Int8
	case reflect.Uint64:
		return Uint64
	case reflect.Uint32:
		return Uint32
	case reflect.Uint16:
		return Uint16
	case reflect.Uint8:
		return Uint8
	case reflect.Bool:
		return Bool
	case reflect.Float32:
		return Float32
	case reflect.Float64:
		return Float64
	case reflect.Complex64:
		return Complex64
	case reflect.Complex128:
		return Complex128
	default:
		return InvalidDType
	}
}
