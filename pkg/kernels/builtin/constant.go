// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/kernelgen/pkg/codegen"
	"github.com/gomlx/kernelgen/pkg/core/dtypes"
	"github.com/gomlx/kernelgen/pkg/core/graph"
	"github.com/gomlx/kernelgen/pkg/core/tensors"
	"github.com/gomlx/kernelgen/pkg/kernels"
)

// Constant generates the kernel of graph.ConstantOpType nodes: it fills its only output with the
// value of the graph.ValueAnnotation annotation.
type Constant struct {
	Device tensors.DeviceType
}

var (
	_ kernels.BodyEmitter       = (*Constant)(nil)
	_ kernels.HandleRequirer    = (*Constant)(nil)
	_ kernels.DependencyEmitter = (*Constant)(nil)
)

// RuntimeHandles implements kernels.HandleRequirer.
func (k *Constant) RuntimeHandles(*kernels.Emitter) []kernels.ParamKind {
	if k.Device.IsGPU() {
		return []kernels.ParamKind{kernels.ParamStream}
	}
	return nil
}

// EmitDependency implements kernels.DependencyEmitter.
func (k *Constant) EmitDependency(_ *kernels.Emitter, dep *codegen.Unit) {
	if k.Device.IsGPU() {
		dep.Require(CUDAHeader)
	} else {
		dep.Require(StdintHeader)
	}
}

// constantLiteral parses the value annotation and returns it as a C literal of dtype.
func constantLiteral(dtype dtypes.DType, value string) (string, error) {
	switch {
	case dtype == dtypes.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return "", err
		}
		if b {
			return dtypes.Literal(dtype, 1), nil
		}
		return dtypes.Literal(dtype, 0), nil
	case dtype.IsInt():
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return dtypes.Literal(dtype, i), nil
		}
		u, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return "", err
		}
		return dtypes.Literal(dtype, u), nil
	default:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return "", err
		}
		return dtypes.Literal(dtype, f), nil
	}
}

// EmitBody implements kernels.BodyEmitter.
func (k *Constant) EmitBody(e *kernels.Emitter) *codegen.Unit {
	ctx := e.Context()
	if len(ctx.Inputs()) != 0 || len(ctx.Outputs()) != 1 {
		return nil
	}
	output := ctx.Outputs()[0]
	dtype := output.DType()
	switch dtype {
	case dtypes.Complex64, dtypes.Complex128, dtypes.InvalidDType:
		return nil
	case dtypes.Float16, dtypes.BFloat16:
		if !k.Device.IsGPU() {
			return nil
		}
	}
	value, found := ctx.Annotations()[graph.ValueAnnotation]
	if !found {
		exceptions.Panicf("builtin.Constant(%s): missing %q annotation", ctx.Node().UniqueName(), graph.ValueAnnotation)
	}
	literal, err := constantLiteral(dtype, value)
	if err != nil {
		exceptions.Panicf("builtin.Constant(%s): invalid value %q for %s: %v", ctx.Node().UniqueName(), value, dtype, err)
	}
	size := output.Shape().Size()

	body := codegen.NewUnit(e.KernelName() + "_body")
	if strings.Contains(literal, "NAN") || strings.Contains(literal, "INFINITY") {
		body.RequireSymbol("math.h", MathHeader)
	}
	if !k.Device.IsGPU() {
		body.Printf("for (int64_t i = 0; i < %d; ++i) {\n", size)
		body.Printf("    output0[i] = %s;\n", literal)
		body.Println("}")
		return body
	}

	ctype := dtype.CType()
	helperName := fmt.Sprintf("Constant_%s_fill", ctype)
	helper := e.SharedUnit(helperName, func(u *codegen.Unit) {
		u.Require(CUDAHeader)
		switch dtype {
		case dtypes.Float16:
			u.Require(CUDAFP16)
		case dtypes.BFloat16:
			u.Require(CUDABF16)
		}
		u.Printf("__global__ void %s(%s* output0, %s value, int64_t n)\n{\n", helperName, ctype, ctype)
		u.Println("    int64_t i = blockIdx.x * (int64_t)blockDim.x + threadIdx.x;")
		u.Println("    if (i < n) {")
		u.Println("        output0[i] = value;")
		u.Println("    }")
		u.Println("}")
	})
	body.RequireSymbol(helperName, helper)
	body.RequireSymbol("CUDA_SAFE_CALL", CUDAMacros)
	body.Printf("const int64_t n = %d;\n", size)
	body.Printf("%s<<<(n + %d) / %d, %d, 0, stream>>>(output0, %s, n);\n",
		helperName, cudaBlockSize-1, cudaBlockSize, cudaBlockSize, literal)
	body.Println("CUDA_SAFE_CALL(cudaGetLastError());")
	return body
}
