// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"strings"
	"testing"

	"github.com/gomlx/kernelgen/pkg/async"
	"github.com/gomlx/kernelgen/pkg/codegen"
	"github.com/gomlx/kernelgen/pkg/core/dtypes"
	"github.com/gomlx/kernelgen/pkg/core/graph"
	"github.com/gomlx/kernelgen/pkg/core/shapes"
	"github.com/gomlx/kernelgen/pkg/core/tensors"
	"github.com/gomlx/kernelgen/pkg/kernels"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func emitOne(t *testing.T, config kernels.Config, device tensors.DeviceType, opType string, inputShapes ...shapes.Shape) *kernels.Result {
	t.Helper()
	g := graph.New(t.Name(), device)
	var inputs []*tensors.Descriptor
	for ii, shape := range inputShapes {
		inputs = append(inputs, g.Parameter(string(rune('a'+ii)), shape))
	}
	must.M1(g.AddNode(opType, nil, inputs...))
	results := kernels.NewSession(config).EmitGraph(g)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	return results[0]
}

func TestElementwiseCPU(t *testing.T) {
	shape := shapes.Make(dtypes.Float32, 2, 3)
	r := emitOne(t, kernels.Config{}, tensors.GenericCPU, "Add", shape, shape)
	require.True(t, r.Supported())
	fu := r.Kernel
	assert.True(t, strings.HasPrefix(fu.KernelName(), "Add_float_float_float_reference_Add_"))
	assert.Equal(t, "for (int64_t i = 0; i < 6; ++i) {\n    output0[i] = input0[i] + input1[i];\n}\n", fu.Body.Code())
	assert.Equal(t, "void "+fu.KernelName()+"(float* input0, float* input1, float* output0)", fu.Signature.Code())
	assert.Equal(t, []*codegen.Unit{StdintHeader}, fu.Dependency.Required())

	r = emitOne(t, kernels.Config{}, tensors.GenericCPU, "Sqrt", shape)
	require.True(t, r.Supported())
	assert.Contains(t, r.Kernel.Dependency.Required(), MathHeader)
	assert.Contains(t, r.Kernel.Body.Code(), "output0[i] = sqrt(input0[i]);")

	comparison := emitOne(t, kernels.Config{}, tensors.GenericCPU, "Less", shape, shape)
	require.True(t, comparison.Supported())
	assert.Contains(t, comparison.Kernel.Signature.Code(), "char* output0")
}

func TestElementwiseUnsupported(t *testing.T) {
	intShape := shapes.Make(dtypes.Int32, 4)
	r := emitOne(t, kernels.Config{}, tensors.GenericCPU, "Sqrt", intShape)
	assert.False(t, r.Supported())

	halfShape := shapes.Make(dtypes.Float16, 4)
	r = emitOne(t, kernels.Config{}, tensors.GenericCPU, "Add", halfShape, halfShape)
	assert.False(t, r.Supported())
	r = emitOne(t, kernels.Config{}, tensors.CUDAGPU, "Exp", halfShape)
	assert.False(t, r.Supported())

	r = emitOne(t, kernels.Config{}, tensors.CUDAGPU, "Add", halfShape, halfShape)
	require.True(t, r.Supported())
	order := codegen.Linearize(r.Kernel.Dependency)
	assert.Contains(t, order, CUDAFP16)

	require.Panics(t, func() { NewElementwise("Conv", tensors.GenericCPU) })
}

func TestElementwiseCUDA(t *testing.T) {
	shape := shapes.Make(dtypes.Float32, 1000)
	g := graph.New("cuda", tensors.CUDAGPU)
	x := g.Parameter("x", shape)
	y := g.Parameter("y", shape)
	add0 := must.M1(g.AddNode("Add", nil, x, y))
	add1 := must.M1(g.AddNode("Add", nil, add0.Output(0), y))

	session := kernels.NewSession(kernels.Config{})
	results := session.EmitGraph(g)
	require.Len(t, results, 2)
	fu0, fu1 := results[0].Kernel, results[1].Kernel
	require.NotNil(t, fu0)
	require.NotNil(t, fu1)
	assert.Equal(t, "void "+fu0.KernelName()+"(cudaStream_t stream, float* input0, float* input1, float* output0)",
		fu0.Signature.Code())
	assert.Contains(t, fu0.Body.Code(), "Add_float_float_elementwise<<<(n + 255) / 256, 256, 0, stream>>>(input0, input1, output0, n);")

	// Both kernels share the same helper.
	var helper *codegen.Unit
	for _, u := range fu0.Dependency.Required() {
		if u.Name() == "Add_float_float_elementwise" {
			helper = u
		}
	}
	require.NotNil(t, helper)
	assert.Contains(t, fu1.Dependency.Required(), helper)

	// Helpers are owned by the session that created them.
	otherResults := kernels.NewSession(kernels.Config{}).EmitGraph(g)
	require.True(t, otherResults[0].Supported())
	assert.NotContains(t, otherResults[0].Kernel.Dependency.Required(), helper)
	assert.Same(t, helper, session.Cache().SharedUnit("Add_float_float_elementwise", nil))

	// Assign streams and refresh the call sites.
	manager := async.NewManager()
	manager.Stream(tensors.CUDAGPU, 0, "stream_0")
	manager.Stream(tensors.CUDAGPU, 0, "stream_1")
	for _, n := range []*graph.Node{add0, add1} {
		n.SetAsyncInfo(&async.ExecutionInfo{ExecutionStream: manager.Next()})
	}
	require.NoError(t, session.RefreshCalls(results))
	assert.Equal(t, fu0.KernelName()+"(stream_0, x, y, "+add0.Output(0).Name()+");\n", fu0.Call().Code())
	assert.True(t, strings.HasPrefix(fu1.Call().Code(), fu1.KernelName()+"(stream_1, "))

	program := kernels.AssembleProgram(kernels.Kernels(results))
	assert.Equal(t, 1, strings.Count(program, "__global__ void Add_float_float_elementwise("))
	assert.Equal(t, 1, strings.Count(program, "#include <cuda_runtime.h>"))
	assert.Less(t, strings.Index(program, "#include <cuda_runtime.h>"), strings.Index(program, "__global__"))
}

func TestDot(t *testing.T) {
	lhs, rhs := shapes.Make(dtypes.Float32, 2, 3), shapes.Make(dtypes.Float32, 3, 4)

	r := emitOne(t, kernels.Config{}, tensors.CUDAGPU, "Dot", lhs, rhs)
	require.True(t, r.Supported())
	fu := r.Kernel
	assert.Equal(t, "void "+fu.KernelName()+"(cudaStream_t stream, cublasHandle_t cublas_handle, "+
		"float* input0, float* input1, float* output0)", fu.Signature.Code())
	assert.Contains(t, fu.Body.Code(), "cublasSgemm(cublas_handle, CUBLAS_OP_N, CUBLAS_OP_N, 4, 2, 3, &alpha, input1, 4, input0, 3, &beta, output0, 4)")
	assert.Contains(t, fu.Dependency.Required(), CUBLASMacros)

	r = emitOne(t, kernels.Config{}, tensors.CUDAGPU, "Dot", shapes.Make(dtypes.Int32, 2, 3), shapes.Make(dtypes.Int32, 3, 4))
	assert.False(t, r.Supported())

	r = emitOne(t, kernels.Config{}, tensors.GenericCPU, "Dot", lhs, rhs)
	require.True(t, r.Supported())
	fu = r.Kernel
	tempName := r.Node.UniqueName() + "_temp0"
	assert.Equal(t, []string{tempName}, r.Emitter.Context().TemporaryNames())
	assert.True(t, strings.HasSuffix(fu.Signature.Code(), "float* output0, float* "+tempName+")"))
	assert.True(t, strings.HasSuffix(fu.Call().Code(), ", "+tempName+");\n"))
	assert.Contains(t, fu.Comment.Code(), "// Other tensors in use:\n//\t- name: "+tempName+"\ttype: float\tshape: Shape{4, 3}\n")
	assert.Contains(t, fu.Body.Code(), "acc += input0[i * 3 + p] * rhs_t[j * 3 + p];")
}

func TestResult(t *testing.T) {
	shape := shapes.Make(dtypes.Float32, 8)

	r := emitOne(t, kernels.Config{}, tensors.GenericCPU, "Result", shape)
	require.True(t, r.Supported())
	assert.Contains(t, r.Kernel.Signature.Code(), "float** output0")
	assert.Equal(t, "*output0 = (float*)malloc(32);\nmemcpy(*output0, input0, 32);\n", r.Kernel.Body.Code())
	assert.Contains(t, r.Kernel.Dependency.Required(), StdlibHeader)

	r = emitOne(t, kernels.Config{ExternResultMemory: true}, tensors.GenericCPU, "Result", shape)
	require.True(t, r.Supported())
	assert.Contains(t, r.Kernel.Signature.Code(), "float* output0")
	assert.Equal(t, "memcpy(output0, input0, 32);\n", r.Kernel.Body.Code())

	r = emitOne(t, kernels.Config{}, tensors.CUDAGPU, "Result", shape)
	require.True(t, r.Supported())
	assert.Contains(t, r.Kernel.Body.Code(), "cudaMallocAsync((void**)output0, 32, stream)")
	assert.Contains(t, r.Kernel.Body.Code(), "cudaMemcpyAsync(*output0, input0, 32, cudaMemcpyDeviceToDevice, stream)")
}

func TestConstant(t *testing.T) {
	// CPU.
	g := graph.New(t.Name(), tensors.GenericCPU)
	half := g.Constant("half", shapes.Make(dtypes.Float32, 2, 4), "0.5")
	count := g.Constant("count", shapes.Make(dtypes.Int64, 3), "-3")
	nan := g.Constant("nan", shapes.Make(dtypes.Float64, 1), "NaN")
	halfCPU := g.Constant("half_cpu", shapes.Make(dtypes.Float16, 1), "1")
	results := kernels.NewSession(kernels.Config{}).EmitGraph(g)
	require.Len(t, results, 4)
	for _, r := range results {
		require.NoError(t, r.Err)
	}

	fu := results[0].Kernel
	require.NotNil(t, fu)
	assert.Equal(t, "Constant_float_reference_"+half.UniqueName(), fu.KernelName())
	assert.Equal(t, "void "+fu.KernelName()+"(float* output0)", fu.Signature.Code())
	assert.Equal(t, "for (int64_t i = 0; i < 8; ++i) {\n    output0[i] = 0.5f;\n}\n", fu.Body.Code())
	assert.Equal(t, fu.KernelName()+"(half);\n", fu.Call().Code())

	require.True(t, results[1].Supported())
	assert.Contains(t, results[1].Kernel.Body.Code(), "output0[i] = -3LL;")
	assert.Equal(t, count.UniqueName(), results[1].Node.UniqueName())

	require.True(t, results[2].Supported())
	assert.Contains(t, results[2].Kernel.Body.Code(), "output0[i] = NAN;")
	assert.Contains(t, results[2].Kernel.Dependency.Required(), MathHeader)
	assert.Same(t, nan, results[2].Node)

	// No half precision in plain C.
	assert.False(t, results[3].Supported())
	assert.Same(t, halfCPU, results[3].Node)

	// CUDA, with a half precision value written as its bits.
	g = graph.New(t.Name(), tensors.CUDAGPU)
	g.Constant("h", shapes.Make(dtypes.Float16, 1000), "1")
	r := emitGraphOne(t, g)
	assert.Equal(t, "void "+r.Kernel.KernelName()+"(cudaStream_t stream, half* output0)", r.Kernel.Signature.Code())
	assert.Contains(t, r.Kernel.Body.Code(),
		"Constant_half_fill<<<(n + 255) / 256, 256, 0, stream>>>(output0, __ushort_as_half((unsigned short)0x3c00), n);")
	order := codegen.Linearize(r.Kernel.Dependency)
	assert.Contains(t, order, CUDAFP16)
	assert.Contains(t, order, CUDAMacros)

	// Invalid values are malformed nodes.
	g = graph.New(t.Name(), tensors.GenericCPU)
	bad := g.Constant("bad", shapes.Make(dtypes.Int32, 1), "1.5")
	results = kernels.NewSession(kernels.Config{}).EmitGraph(g)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), bad.UniqueName())
	assert.False(t, results[0].Supported())
}

// emitGraphOne emits the kernels of g, which must have one node, and returns its result.
func emitGraphOne(t *testing.T, g *graph.Graph) *kernels.Result {
	t.Helper()
	results := kernels.NewSession(kernels.Config{}).EmitGraph(g)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	require.True(t, results[0].Supported())
	return results[0]
}
