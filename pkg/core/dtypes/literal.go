// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/x448/float16"
	"golang.org/x/exp/constraints"
)

// Number is the constraint of the Go values that Literal can write.
type Number interface {
	constraints.Integer | constraints.Float
}

// Literal returns the C literal of value converted to dtype, e.g. "0.5f" for Float32 or
// "-3LL" for Int64.
//
// Half precision values use the CUDA intrinsics (cuda_fp16.h and cuda_bf16.h): Float16 is written
// as its exact bit pattern. Non-finite floats are written with the math.h macros NAN and INFINITY.
//
// It panics for complex dtypes, which have no literals in C, and for invalid dtypes.
func Literal[T Number](dtype DType, value T) string {
	switch dtype {
	case Bool:
		if value != 0 {
			return "1"
		}
		return "0"
	case Int8, Int16, Int32:
		return strconv.FormatInt(int64(value), 10)
	case Int64:
		return strconv.FormatInt(int64(value), 10) + "LL"
	case Uint8, Uint16:
		return strconv.FormatUint(uint64(value), 10)
	case Uint32:
		return strconv.FormatUint(uint64(value), 10) + "U"
	case Uint64:
		return strconv.FormatUint(uint64(value), 10) + "ULL"
	case Float16:
		return fmt.Sprintf("__ushort_as_half((unsigned short)0x%04x)", float16.Fromfloat32(float32(value)).Bits())
	case BFloat16:
		return "__float2bfloat16(" + floatLiteral(float64(value), 32) + ")"
	case Float32:
		return floatLiteral(float64(value), 32)
	case Float64:
		return floatLiteral(float64(value), 64)
	default:
		panicf("no C literal for dtype %s", dtype)
		panic(nil)
	}
}

// floatLiteral formats v with the precision of bitSize, with the "f" suffix for 32 bits.
func floatLiteral(v float64, bitSize int) string {
	switch {
	case math.IsNaN(v):
		return "NAN"
	case math.IsInf(v, 1):
		return "INFINITY"
	case math.IsInf(v, -1):
		return "-INFINITY"
	}
	text := strconv.FormatFloat(v, 'g', -1, bitSize)
	if !strings.ContainsAny(text, ".e") {
		text += ".0"
	}
	if bitSize == 32 {
		text += "f"
	}
	return text
}
