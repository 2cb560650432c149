// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dtypes

// DType is an enum that represents the element type of a tensor.
//
// The numeric values follow the XLA/PJRT buffer type numbering, so descriptors produced by
// other GoMLX tools can be consumed directly.
type DType int32

const (
	// InvalidDType is the zero value, used to signal an unset element type.
	InvalidDType DType = 0

	// Bool are two-state booleans. Generated code stores them as one byte.
	Bool DType = 1

	// Signed integral values of fixed width.

	Int8  DType = 2
	Int16 DType = 3
	Int32 DType = 4
	Int64 DType = 5

	// Unsigned integral values of fixed width.

	Uint8  DType = 6
	Uint16 DType = 7
	Uint32 DType = 8
	Uint64 DType = 9

	// Floating-point values of fixed width.

	Float16 DType = 10
	Float32 DType = 11
	Float64 DType = 12

	// BFloat16 is the truncated 16 bit floating-point format: 1 bit for the sign, 8 bits for the
	// exponent and 7 bits for the mantissa.
	BFloat16 DType = 13

	// Complex values of fixed width: paired float32 or float64.

	Complex64  DType = 14
	Complex128 DType = 15
)

// Aliases with the XLA short names.
const (
	PRED = Bool
	S8   = Int8
	S16  = Int16
	S32  = Int32
	S64  = Int64
	U8   = Uint8
	U16  = Uint16
	U32  = Uint32
	U64  = Uint64
	F16  = Float16
	F32  = Float32
	F64  = Float64
	BF16 = BFloat16
	C64  = Complex64
	C128 = Complex128
)

// MapOfNames maps names (long, short XLA names and C type tags) to their DType.
// Lower-case versions of every key are added at initialization.
var MapOfNames = map[string]DType{
	"InvalidDType": InvalidDType,
	"INVALID":      InvalidDType,
	"Bool":         Bool,
	"PRED":         Bool,
	"Int8":         Int8,
	"S8":           Int8,
	"int8_t":       Int8,
	"Int16":        Int16,
	"S16":          Int16,
	"int16_t":      Int16,
	"Int32":        Int32,
	"S32":          Int32,
	"int32_t":      Int32,
	"Int64":        Int64,
	"S64":          Int64,
	"int64_t":      Int64,
	"Uint8":        Uint8,
	"U8":           Uint8,
	"uint8_t":      Uint8,
	"Uint16":       Uint16,
	"U16":          Uint16,
	"uint16_t":     Uint16,
	"Uint32":       Uint32,
	"U32":          Uint32,
	"uint32_t":     Uint32,
	"Uint64":       Uint64,
	"U64":          Uint64,
	"uint64_t":     Uint64,
	"Float16":      Float16,
	"F16":          Float16,
	"half":         Float16,
	"Float32":      Float32,
	"F32":          Float32,
	"float":        Float32,
	"Float64":      Float64,
	"F64":          Float64,
	"double":       Float64,
	"BFloat16":     BFloat16,
	"BF16":         BFloat16,
	"Complex64":    Complex64,
	"C64":          Complex64,
	"Complex128":   Complex128,
	"C128":         Complex128,
}

var dtypeNames = map[DType]string{
	InvalidDType: "InvalidDType",
	Bool:         "Bool",
	Int8:         "Int8",
	Int16:        "Int16",
	Int32:        "Int32",
	Int64:        "Int64",
	Uint8:        "Uint8",
	Uint16:       "Uint16",
	Uint32:       "Uint32",
	Uint64:       "Uint64",
	Float16:      "Float16",
	Float32:      "Float32",
	Float64:      "Float64",
	BFloat16:     "BFloat16",
	Complex64:    "Complex64",
	Complex128:   "Complex128",
}
