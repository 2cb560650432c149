// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/kernelgen/pkg/codegen"
	"github.com/gomlx/kernelgen/pkg/core/dtypes"
	"github.com/gomlx/kernelgen/pkg/core/tensors"
	"github.com/gomlx/kernelgen/pkg/kernels"
)

// ElementwiseExpr is the C expression of an elementwise operator: a format with the operands as
// %[1]s and %[2]s.
type ElementwiseExpr struct {
	Format string

	// FloatOnly operators use math.h functions, and are only supported for float32 and float64.
	FloatOnly bool
}

// ElementwiseExprs maps the elementwise op types to their expressions.
var ElementwiseExprs = map[string]ElementwiseExpr{
	"Not":      {Format: "!%[1]s"},
	"Negative": {Format: "-%[1]s"},
	"Abs":      {Format: "(%[1]s < 0 ? -%[1]s : %[1]s)"},
	"Relu":     {Format: "(%[1]s > 0 ? %[1]s : 0)"},
	"Sqrt":     {Format: "sqrt(%[1]s)", FloatOnly: true},
	"Exp":      {Format: "exp(%[1]s)", FloatOnly: true},
	"Log":      {Format: "log(%[1]s)", FloatOnly: true},
	"Tanh":     {Format: "tanh(%[1]s)", FloatOnly: true},
	"Sigmoid":  {Format: "1 / (1 + exp(-%[1]s))", FloatOnly: true},

	"Add":      {Format: "%[1]s + %[2]s"},
	"Subtract": {Format: "%[1]s - %[2]s"},
	"Multiply": {Format: "%[1]s * %[2]s"},
	"Divide":   {Format: "%[1]s / %[2]s"},
	"Maximum":  {Format: "(%[1]s > %[2]s ? %[1]s : %[2]s)"},
	"Minimum":  {Format: "(%[1]s < %[2]s ? %[1]s : %[2]s)"},
	"Power":    {Format: "pow(%[1]s, %[2]s)", FloatOnly: true},

	"Equal":     {Format: "%[1]s == %[2]s"},
	"NotEqual":  {Format: "%[1]s != %[2]s"},
	"Less":      {Format: "%[1]s < %[2]s"},
	"LessEq":    {Format: "%[1]s <= %[2]s"},
	"Greater":   {Format: "%[1]s > %[2]s"},
	"GreaterEq": {Format: "%[1]s >= %[2]s"},

	"And": {Format: "%[1]s && %[2]s"},
	"Or":  {Format: "%[1]s || %[2]s"},
}

// Elementwise generates the kernel of an elementwise operator.
//
// On the CPU it is a plain loop. On CUDA the body launches a __global__ helper function shared by
// all kernels of the same op and dtypes, on the stream given to the kernel.
type Elementwise struct {
	OpType string
	Device tensors.DeviceType
	Expr   ElementwiseExpr
}

var (
	_ kernels.BodyEmitter       = (*Elementwise)(nil)
	_ kernels.HandleRequirer    = (*Elementwise)(nil)
	_ kernels.DependencyEmitter = (*Elementwise)(nil)
)

// NewElementwise returns the kernel for the elementwise opType on device. It panics if opType
// is not in ElementwiseExprs.
func NewElementwise(opType string, device tensors.DeviceType) *Elementwise {
	expr, found := ElementwiseExprs[opType]
	if !found {
		exceptions.Panicf("builtin.NewElementwise(%q): unknown elementwise op", opType)
	}
	return &Elementwise{OpType: opType, Device: device, Expr: expr}
}

// supported returns whether the dtype can be generated for the device.
func (k *Elementwise) supported(dtype dtypes.DType) bool {
	switch dtype {
	case dtypes.Complex64, dtypes.Complex128, dtypes.InvalidDType:
		return false
	case dtypes.Float16, dtypes.BFloat16:
		// No native half types in plain C, and no overloads of the math.h functions on CUDA.
		return k.Device.IsGPU() && !k.Expr.FloatOnly
	}
	return !k.Expr.FloatOnly || dtype.IsFloat()
}

// RuntimeHandles implements kernels.HandleRequirer.
func (k *Elementwise) RuntimeHandles(*kernels.Emitter) []kernels.ParamKind {
	if k.Device.IsGPU() {
		return []kernels.ParamKind{kernels.ParamStream}
	}
	return nil
}

// EmitDependency implements kernels.DependencyEmitter.
func (k *Elementwise) EmitDependency(_ *kernels.Emitter, dep *codegen.Unit) {
	if k.Device.IsGPU() {
		dep.Require(CUDAHeader)
	} else {
		dep.Require(StdintHeader)
	}
}

// operands returns the element i of each input, e.g. "input0[i]".
func operands(numInputs int, index string) []any {
	ops := make([]any, numInputs)
	for ii := range numInputs {
		ops[ii] = fmt.Sprintf("input%d[%s]", ii, index)
	}
	return ops
}

// EmitBody implements kernels.BodyEmitter.
func (k *Elementwise) EmitBody(e *kernels.Emitter) *codegen.Unit {
	ctx := e.Context()
	if len(ctx.Outputs()) != 1 || len(ctx.Inputs()) == 0 {
		return nil
	}
	inputDType := ctx.Inputs()[0].DType()
	if !k.supported(inputDType) {
		return nil
	}
	size := ctx.Outputs()[0].Shape().Size()
	expr := fmt.Sprintf(k.Expr.Format, operands(len(ctx.Inputs()), "i")...)

	body := codegen.NewUnit(e.KernelName() + "_body")
	if k.Expr.FloatOnly {
		body.RequireSymbol("math.h", MathHeader)
	}
	if !k.Device.IsGPU() {
		body.Printf("for (int64_t i = 0; i < %d; ++i) {\n", size)
		body.Printf("    output0[i] = %s;\n", expr)
		body.Println("}")
		return body
	}

	var halfHeader *codegen.Unit
	switch inputDType {
	case dtypes.Float16:
		halfHeader = CUDAFP16
	case dtypes.BFloat16:
		halfHeader = CUDABF16
	}
	inputCType := inputDType.CType()
	outputCType := ctx.Outputs()[0].DType().CType()
	helperName := fmt.Sprintf("%s_%s_%s_elementwise", k.OpType, inputCType, outputCType)
	helper := e.SharedUnit(helperName, func(u *codegen.Unit) {
		u.Require(CUDAHeader)
		if halfHeader != nil {
			u.Require(halfHeader)
		}
		if k.Expr.FloatOnly {
			u.Require(MathHeader)
		}
		var params []any
		for ii := range ctx.Inputs() {
			params = append(params, fmt.Sprintf("const %s* input%d", inputCType, ii))
		}
		u.Printf("__global__ void %s(", helperName)
		for _, p := range params {
			u.Printf("%s, ", p)
		}
		u.Printf("%s* output0, int64_t n)\n{\n", outputCType)
		u.Println("    int64_t i = blockIdx.x * (int64_t)blockDim.x + threadIdx.x;")
		u.Println("    if (i < n) {")
		u.Printf("        output0[i] = %s;\n", expr)
		u.Println("    }")
		u.Println("}")
	})
	body.RequireSymbol(helperName, helper)
	body.RequireSymbol("CUDA_SAFE_CALL", CUDAMacros)

	body.Printf("const int64_t n = %d;\n", size)
	body.Printf("%s<<<(n + %d) / %d, %d, 0, stream>>>(", helperName, cudaBlockSize-1, cudaBlockSize, cudaBlockSize)
	for ii := range ctx.Inputs() {
		body.Printf("input%d, ", ii)
	}
	body.Println("output0, n);")
	body.Println("CUDA_SAFE_CALL(cudaGetLastError());")
	return body
}

// cudaBlockSize is the number of threads per block of the elementwise helpers.
const cudaBlockSize = 256
