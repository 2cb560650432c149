// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/kernelgen/pkg/async"
	"github.com/gomlx/kernelgen/pkg/core/graph"
	"github.com/gomlx/kernelgen/pkg/core/tensors"
)

// Node is what kernel generation needs from a graph node. It's implemented by *graph.Node.
type Node interface {
	ID() int64
	OpType() string
	UniqueName() string
	NumInputs() int
	Input(i int) *tensors.Descriptor
	NumOutputs() int
	Output(i int) *tensors.Descriptor
	Annotations() graph.Annotations
	AsyncInfo() *async.ExecutionInfo
}

var _ Node = (*graph.Node)(nil)

// Context is the snapshot of a node used to generate its kernel.
//
// Inputs and outputs are fixed at construction. Only the list of temporary tensors grows, through
// Emitter.AllocateTensor. A Context belongs to one Emitter and is not safe for concurrent use.
type Context struct {
	node        Node
	inputs      []*tensors.Descriptor
	inputNames  []string
	outputs     []*tensors.Descriptor
	outputNames []string
	dtypes      []string
	annotations graph.Annotations

	temporaries    []*tensors.Descriptor
	temporaryNames []string
}

// NewContext snapshots the tensors of node.
//
// It panics if any of the node's input or output tensors is nil: the graph is malformed.
func NewContext(node Node) *Context {
	if node == nil {
		exceptions.Panicf("kernels.NewContext(nil)")
	}
	ctx := &Context{
		node:        node,
		inputs:      make([]*tensors.Descriptor, 0, node.NumInputs()),
		inputNames:  make([]string, 0, node.NumInputs()),
		outputs:     make([]*tensors.Descriptor, 0, node.NumOutputs()),
		outputNames: make([]string, 0, node.NumOutputs()),
		annotations: node.Annotations().Clone(),
	}
	for i := range node.NumInputs() {
		t := node.Input(i)
		if t == nil {
			exceptions.Panicf("kernels.NewContext(%s): input tensor #%d is nil", node.UniqueName(), i)
		}
		ctx.inputs = append(ctx.inputs, t)
		ctx.inputNames = append(ctx.inputNames, t.Name())
	}
	for i := range node.NumOutputs() {
		t := node.Output(i)
		if t == nil {
			exceptions.Panicf("kernels.NewContext(%s): output tensor #%d is nil", node.UniqueName(), i)
		}
		ctx.outputs = append(ctx.outputs, t)
		ctx.outputNames = append(ctx.outputNames, t.Name())
	}
	for _, t := range ctx.inputs {
		ctx.dtypes = append(ctx.dtypes, t.DType().CType())
	}
	for _, t := range ctx.outputs {
		ctx.dtypes = append(ctx.dtypes, t.DType().CType())
	}
	return ctx
}

// Node returns the node the context was created from.
func (c *Context) Node() Node { return c.node }

// Inputs returns the input tensors of the node, in order.
func (c *Context) Inputs() []*tensors.Descriptor { return c.inputs }

// InputNames returns the names of the input tensors, in order.
func (c *Context) InputNames() []string { return c.inputNames }

// Outputs returns the output tensors of the node, in order.
func (c *Context) Outputs() []*tensors.Descriptor { return c.outputs }

// OutputNames returns the names of the output tensors, in order.
func (c *Context) OutputNames() []string { return c.outputNames }

// DTypes returns the C type tags of the inputs followed by the outputs.
func (c *Context) DTypes() []string { return c.dtypes }

// Annotations returns the context's copy of the operator annotations.
func (c *Context) Annotations() graph.Annotations { return c.annotations }

// Temporaries returns the temporary tensors allocated so far, in allocation order.
func (c *Context) Temporaries() []*tensors.Descriptor {
	return append([]*tensors.Descriptor(nil), c.temporaries...)
}

// TemporaryNames returns the externally visible names of the temporary tensors, in allocation order.
func (c *Context) TemporaryNames() []string {
	return append([]string(nil), c.temporaryNames...)
}

// NumTemporaries returns how many temporary tensors were allocated.
func (c *Context) NumTemporaries() int { return len(c.temporaries) }

func (c *Context) addTemporary(t *tensors.Descriptor) {
	c.temporaries = append(c.temporaries, t)
	c.temporaryNames = append(c.temporaryNames, t.Name())
}

// truncateTemporaries drops the temporaries allocated after the first n.
func (c *Context) truncateTemporaries(n int) {
	c.temporaries = c.temporaries[:n]
	c.temporaryNames = c.temporaryNames[:n]
}
