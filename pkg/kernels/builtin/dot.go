// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"github.com/gomlx/kernelgen/pkg/codegen"
	"github.com/gomlx/kernelgen/pkg/core/dtypes"
	"github.com/gomlx/kernelgen/pkg/core/shapes"
	"github.com/gomlx/kernelgen/pkg/core/tensors"
	"github.com/gomlx/kernelgen/pkg/kernels"
)

// Dot generates the kernel of the matrix multiplication [m, k] x [k, n] -> [m, n], row-major.
//
// On CUDA it calls cuBLAS (float32 and float64 only), with the cuBLAS handle bound to the kernel
// stream. On the CPU it transposes the right-hand side into a temporary tensor, so the inner loop
// reads both operands contiguously.
type Dot struct {
	Device tensors.DeviceType
}

var (
	_ kernels.BodyEmitter       = (*Dot)(nil)
	_ kernels.HandleRequirer    = (*Dot)(nil)
	_ kernels.DependencyEmitter = (*Dot)(nil)
)

// RuntimeHandles implements kernels.HandleRequirer.
func (k *Dot) RuntimeHandles(*kernels.Emitter) []kernels.ParamKind {
	if k.Device.IsGPU() {
		return []kernels.ParamKind{kernels.ParamStream, kernels.ParamCUBLASHandle}
	}
	return nil
}

// EmitDependency implements kernels.DependencyEmitter.
func (k *Dot) EmitDependency(_ *kernels.Emitter, dep *codegen.Unit) {
	if k.Device.IsGPU() {
		dep.Require(CUBLASHeader)
	} else {
		dep.Require(StdintHeader)
	}
}

// dotDimensions returns m, k, n, or ok=false if the operands are not rank-2 matrices.
func dotDimensions(ctx *kernels.Context) (m, k, n int, ok bool) {
	if len(ctx.Inputs()) != 2 || len(ctx.Outputs()) != 1 {
		return
	}
	lhs, rhs := ctx.Inputs()[0].Shape(), ctx.Inputs()[1].Shape()
	if lhs.Rank() != 2 || rhs.Rank() != 2 || lhs.Dimensions[1] != rhs.Dimensions[0] {
		return
	}
	return lhs.Dimensions[0], lhs.Dimensions[1], rhs.Dimensions[1], true
}

// EmitBody implements kernels.BodyEmitter.
func (k *Dot) EmitBody(e *kernels.Emitter) *codegen.Unit {
	ctx := e.Context()
	m, kk, n, ok := dotDimensions(ctx)
	if !ok {
		return nil
	}
	dtype := ctx.Inputs()[0].DType()
	if k.Device.IsGPU() {
		return k.emitCUBLAS(e, dtype, m, kk, n)
	}
	if !dtype.IsInt() && dtype != dtypes.Float32 && dtype != dtypes.Float64 {
		return nil
	}

	transposed := e.AllocateTensor(shapes.Make(dtype, n, kk), "", k.Device, tensors.Storage{})
	accumulator := "double"
	if dtype.IsInt() {
		accumulator = "int64_t"
	}
	body := codegen.NewUnit(e.KernelName() + "_body")
	body.Printf("%s* rhs_t = %s;\n", dtype.CType(), transposed.Name())
	body.Printf("for (int64_t j = 0; j < %d; ++j) {\n", n)
	body.Printf("    for (int64_t p = 0; p < %d; ++p) {\n", kk)
	body.Printf("        rhs_t[j * %d + p] = input1[p * %d + j];\n", kk, n)
	body.Println("    }")
	body.Println("}")
	body.Printf("for (int64_t i = 0; i < %d; ++i) {\n", m)
	body.Printf("    for (int64_t j = 0; j < %d; ++j) {\n", n)
	body.Printf("        %s acc = 0;\n", accumulator)
	body.Printf("        for (int64_t p = 0; p < %d; ++p) {\n", kk)
	body.Printf("            acc += input0[i * %d + p] * rhs_t[j * %d + p];\n", kk, kk)
	body.Println("        }")
	body.Printf("        output0[i * %d + j] = (%s)acc;\n", n, dtype.CType())
	body.Println("    }")
	body.Println("}")
	return body
}

// emitCUBLAS generates the cuBLAS call. cuBLAS is column-major: the row-major product
// C = A x B is computed as the column-major C^T = B^T x A^T.
func (k *Dot) emitCUBLAS(e *kernels.Emitter, dtype dtypes.DType, m, kk, n int) *codegen.Unit {
	var gemm, literalSuffix string
	switch dtype {
	case dtypes.Float32:
		gemm, literalSuffix = "cublasSgemm", "f"
	case dtypes.Float64:
		gemm = "cublasDgemm"
	default:
		return nil
	}
	ctype := dtype.CType()
	body := codegen.NewUnit(e.KernelName() + "_body")
	body.RequireSymbol("CUBLAS_SAFE_CALL", CUBLASMacros)
	body.Printf("const %s alpha = 1.0%s, beta = 0.0%s;\n", ctype, literalSuffix, literalSuffix)
	body.Println("CUBLAS_SAFE_CALL(cublasSetStream(cublas_handle, stream));")
	body.Printf("CUBLAS_SAFE_CALL(%s(cublas_handle, CUBLAS_OP_N, CUBLAS_OP_N, %d, %d, %d, &alpha, input1, %d, input0, %d, &beta, output0, %d));\n",
		gemm, n, m, kk, n, kk, n)
	return body
}
