// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package builtin implements reference kernels for the elementwise, Result, Dot and Constant operators,
// for the generic CPU (plain C) and CUDA devices.
//
// Importing the package registers the kernels with kernels.Register:
//
//	import _ "github.com/gomlx/kernelgen/pkg/kernels/builtin"
package builtin

import "github.com/gomlx/kernelgen/pkg/codegen"

// Header units shared by all kernels. They are never modified after initialization, so they can
// be required concurrently.
var (
	StdintHeader = codegen.NewUnitWithCode("header_stdint", "#include <stdint.h>\n")
	StdioHeader  = codegen.NewUnitWithCode("header_stdio", "#include <stdio.h>\n")
	StdlibHeader = codegen.NewUnitWithCode("header_stdlib", "#include <stdlib.h>\n")
	StringHeader = codegen.NewUnitWithCode("header_string", "#include <string.h>\n")
	MathHeader   = codegen.NewUnitWithCode("header_math", "#include <math.h>\n")
	CUDAHeader   = codegen.NewUnitWithCode("header_cuda", "#include <cuda_runtime.h>\n")
	CUDAFP16     = codegen.NewUnitWithCode("header_cuda_fp16", "#include <cuda_fp16.h>\n")
	CUDABF16     = codegen.NewUnitWithCode("header_cuda_bf16", "#include <cuda_bf16.h>\n")
	CUBLASHeader = codegen.NewUnitWithCode("header_cublas", "#include <cublas_v2.h>\n")
	CUBLASMacros = codegen.NewUnit("macro_cublas_safe_call")
	CUDAMacros   = codegen.NewUnit("macro_cuda_safe_call")
)

func init() {
	CUBLASHeader.Require(CUDAHeader)
	CUBLASMacros.Require(CUBLASHeader)
	CUBLASMacros.Println(`#define CUBLAS_SAFE_CALL(x)                                   \
    do {                                                      \
        cublasStatus_t status = (x);                          \
        if (status != CUBLAS_STATUS_SUCCESS) {                \
            fprintf(stderr, "cuBLAS error %d at %s:%d\n",     \
                    (int)status, __FILE__, __LINE__);         \
            exit(1);                                          \
        }                                                     \
    } while (0)`)
	CUBLASMacros.Require(StdlibHeader)
	CUBLASMacros.Require(StdioHeader)

	CUDAMacros.Require(CUDAHeader)
	CUDAMacros.Require(StdlibHeader)
	CUDAMacros.Require(StdioHeader)
	CUDAMacros.Println(`#define CUDA_SAFE_CALL(x)                                     \
    do {                                                      \
        cudaError_t result = (x);                             \
        if (result != cudaSuccess) {                          \
            fprintf(stderr, "CUDA error %s at %s:%d\n",       \
                    cudaGetErrorString(result), __FILE__, __LINE__); \
            exit(1);                                          \
        }                                                     \
    } while (0)`)
}
