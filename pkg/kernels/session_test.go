// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"strings"
	"testing"

	"github.com/gomlx/kernelgen/pkg/async"
	"github.com/gomlx/kernelgen/pkg/codegen"
	"github.com/gomlx/kernelgen/pkg/core/dtypes"
	"github.com/gomlx/kernelgen/pkg/core/graph"
	"github.com/gomlx/kernelgen/pkg/core/shapes"
	"github.com/gomlx/kernelgen/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	sessionHeader      = codegen.NewUnitWithCode("session_test_header", "#include <session_test.h>\n")
	sessionUnsupported = &testBody{unsupported: true}
	sessionBody        = &testBody{handles: []ParamKind{ParamStream}, header: sessionHeader}
)

func init() {
	Register("SessionTestAdd", tensors.GenericCPU, "fast", sessionUnsupported)
	Register("SessionTestAdd", tensors.GenericCPU, "reference", sessionBody)
	Register("SessionTestPanic", tensors.GenericCPU, "reference", BodyEmitterFn(func(*Emitter) *codegen.Unit {
		panic("hook bug")
	}))
}

func TestRegistry(t *testing.T) {
	regs := LookupAll("SessionTestAdd", tensors.GenericCPU)
	require.Len(t, regs, 2)
	assert.Equal(t, "fast", regs[0].KernelType)
	assert.Equal(t, "reference", regs[1].KernelType)
	assert.Empty(t, LookupAll("SessionTestAdd", tensors.CUDAGPU))
	assert.Contains(t, RegisteredOpTypes(tensors.GenericCPU), "SessionTestAdd")
}

func TestSession(t *testing.T) {
	session := NewSession(Config{Parallelism: 2})
	assert.NotEqual(t, session.ID().String(), NewSession(Config{}).ID().String())

	g := graph.New("session_test", tensors.GenericCPU)
	shape := shapes.Make(dtypes.Float32, 4)
	x := g.Parameter("x", shape)
	newOutput := func(name string) []*tensors.Descriptor {
		return []*tensors.Descriptor{tensors.NewDescriptor(shape, name, tensors.GenericCPU, tensors.Storage{})}
	}
	add := g.AddNodeWithOutputs("SessionTestAdd", nil, []*tensors.Descriptor{x, x}, newOutput("y"))
	unknown := g.AddNodeWithOutputs("SessionTestUnknown", nil, []*tensors.Descriptor{x}, newOutput("z"))
	malformed := g.AddNodeWithOutputs("SessionTestAdd", nil, []*tensors.Descriptor{x, nil}, newOutput("w"))

	results := session.EmitGraph(g)
	require.Len(t, results, 3)
	assert.Same(t, add, results[0].Node)
	assert.Same(t, unknown, results[1].Node)
	assert.Same(t, malformed, results[2].Node)

	require.NoError(t, results[0].Err)
	require.True(t, results[0].Supported())
	assert.Equal(t, "reference", results[0].Emitter.KernelType())
	assert.Equal(t, 1, session.Cache().Len())

	assert.NoError(t, results[1].Err)
	assert.False(t, results[1].Supported())

	require.Error(t, results[2].Err)
	assert.Contains(t, results[2].Err.Error(), malformed.UniqueName())
	assert.False(t, results[2].Supported())

	// Assign a stream and refresh the call sites.
	manager := async.NewManager()
	add.SetAsyncInfo(&async.ExecutionInfo{ExecutionStream: manager.Stream(tensors.GenericCPU, 0, "stream_0")})
	fu := results[0].Kernel
	definition := fu.Source()
	require.NoError(t, session.RefreshCalls(results))
	assert.Equal(t, definition, fu.Source())
	assert.True(t, strings.HasPrefix(fu.Call().Code(), fu.KernelName()+"(stream_0, x, x, y);"))

	program := AssembleProgram(Kernels(results))
	headerPos := strings.Index(program, "#include <session_test.h>")
	definitionPos := strings.Index(program, "// Node name:\t"+add.UniqueName())
	callPos := strings.Index(program, "// Call sites:\n"+fu.Call().Code())
	require.GreaterOrEqual(t, headerPos, 0)
	assert.Less(t, headerPos, definitionPos)
	assert.Less(t, definitionPos, callPos)
}

func TestRefreshCallsMissingBinding(t *testing.T) {
	session := NewSession(Config{Parallelism: 1})
	node := newFakeNode("Dot", "Dot_42", 2, 1)
	body := &testBody{handles: []ParamKind{ParamCUDNNHandle}}
	r := &Result{Node: node, Emitter: session.NewEmitter(node, "cuda", body)}
	r.Kernel = r.Emitter.GetOrEmitSource(false)
	require.NotNil(t, r.Kernel)

	node.asyncInfo = &async.ExecutionInfo{ExecutionStream: &async.Stream{Name: "s"}}
	err := session.RefreshCalls([]*Result{r})
	require.Error(t, err)
	assert.Equal(t, err, r.Err)
}

func TestSessionNonErrorPanic(t *testing.T) {
	session := NewSession(Config{Parallelism: 2})
	bad := newFakeNode("SessionTestPanic", "SessionTestPanic_1", 1, 1)
	good := newFakeNode("SessionTestAdd", "SessionTestAdd_2", 2, 1)
	var results []*Result
	require.NotPanics(t, func() { results = session.EmitKernels(tensors.GenericCPU, bad, good) })
	require.Len(t, results, 2)

	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "hook bug")
	assert.Contains(t, results[0].Err.Error(), "SessionTestPanic_1")
	assert.False(t, results[0].Supported())

	require.NoError(t, results[1].Err)
	assert.True(t, results[1].Supported())
}
