// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"github.com/gomlx/kernelgen/pkg/codegen"
	"github.com/gomlx/kernelgen/pkg/core/tensors"
	"github.com/gomlx/kernelgen/pkg/kernels"
)

// Result generates the kernel that hands the value of its input to the caller of the program.
//
// If the kernel owns its output (output parameters are double pointers, see
// kernels.ResultKernelMarker) it allocates the output buffer and returns it through output0.
// Otherwise it copies into the buffer given by the caller.
type Result struct {
	Device tensors.DeviceType
}

var (
	_ kernels.BodyEmitter    = (*Result)(nil)
	_ kernels.HandleRequirer = (*Result)(nil)
)

// RuntimeHandles implements kernels.HandleRequirer.
func (k *Result) RuntimeHandles(*kernels.Emitter) []kernels.ParamKind {
	if k.Device.IsGPU() {
		return []kernels.ParamKind{kernels.ParamStream}
	}
	return nil
}

// ownsOutput returns whether output0 is allocated by the kernel.
func ownsOutput(e *kernels.Emitter) bool {
	for _, p := range e.Signature().Data() {
		if p.Name == "output0" {
			return p.Depth == 2
		}
	}
	return false
}

// EmitBody implements kernels.BodyEmitter.
func (k *Result) EmitBody(e *kernels.Emitter) *codegen.Unit {
	ctx := e.Context()
	if len(ctx.Inputs()) != 1 || len(ctx.Outputs()) != 1 {
		return nil
	}
	output := ctx.Outputs()[0]
	bytes := output.Shape().Memory()
	body := codegen.NewUnit(e.KernelName() + "_body")

	if k.Device.IsGPU() {
		body.RequireSymbol("CUDA_SAFE_CALL", CUDAMacros)
		target := "output0"
		if ownsOutput(e) {
			body.Printf("CUDA_SAFE_CALL(cudaMallocAsync((void**)output0, %d, stream));\n", bytes)
			target = "*output0"
		}
		body.Printf("CUDA_SAFE_CALL(cudaMemcpyAsync(%s, input0, %d, cudaMemcpyDeviceToDevice, stream));\n", target, bytes)
		return body
	}

	body.RequireSymbol("string.h", StringHeader)
	target := "output0"
	if ownsOutput(e) {
		body.RequireSymbol("stdlib.h", StdlibHeader)
		body.Printf("*output0 = (%s*)malloc(%d);\n", output.DType().CType(), bytes)
		target = "*output0"
	}
	body.Printf("memcpy(%s, input0, %d);\n", target, bytes)
	return body
}
