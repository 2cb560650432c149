// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"fmt"
	"maps"
	"sync/atomic"

	"github.com/gomlx/kernelgen/pkg/async"
	"github.com/gomlx/kernelgen/pkg/core/tensors"
)

// Annotations are free-form operator annotations (e.g. "inplace": "true"), copied into the
// kernel context.
type Annotations map[string]string

// Clone returns a copy of the annotations. The clone of nil annotations is an empty map.
func (a Annotations) Clone() Annotations {
	if a == nil {
		return Annotations{}
	}
	return maps.Clone(a)
}

// Node represents one operator application in the graph.
//
// Its inputs and outputs are fixed at creation. The only mutable part is the execution info,
// which the scheduling pass may set while kernels are being generated concurrently.
type Node struct {
	graph       *Graph
	id          int64
	opType      string
	uniqueName  string
	inputs      []*tensors.Descriptor
	outputs     []*tensors.Descriptor
	annotations Annotations
	asyncInfo   atomic.Pointer[async.ExecutionInfo]
}

// Graph that owns the node.
func (n *Node) Graph() *Graph { return n.graph }

// ID is unique in the process.
func (n *Node) ID() int64 { return n.id }

// OpType is the operator type tag, e.g. "Add".
func (n *Node) OpType() string { return n.opType }

// UniqueName is "<OpType>_<ID>", unique in the process and safe to use as an identifier.
func (n *Node) UniqueName() string { return n.uniqueName }

// NumInputs returns the number of inputs of the node.
func (n *Node) NumInputs() int { return len(n.inputs) }

// Input returns the i-th input tensor, it may be nil for malformed graphs.
func (n *Node) Input(i int) *tensors.Descriptor { return n.inputs[i] }

// NumOutputs returns the number of outputs of the node.
func (n *Node) NumOutputs() int { return len(n.outputs) }

// Output returns the i-th output tensor, it may be nil for malformed graphs.
func (n *Node) Output(i int) *tensors.Descriptor { return n.outputs[i] }

// Annotations returns the node's operator annotations. Callers must not modify it.
func (n *Node) Annotations() Annotations { return n.annotations }

// Device where the node is executed.
func (n *Node) Device() tensors.DeviceType {
	if n.graph == nil {
		return tensors.InvalidDevice
	}
	return n.graph.device
}

// AsyncInfo returns the execution-stream binding assigned to the node, or nil if none was.
func (n *Node) AsyncInfo() *async.ExecutionInfo { return n.asyncInfo.Load() }

// SetAsyncInfo assigns the execution-stream binding of the node.
func (n *Node) SetAsyncInfo(info *async.ExecutionInfo) { n.asyncInfo.Store(info) }

// String implements fmt.Stringer.
func (n *Node) String() string {
	return fmt.Sprintf("Node(%s: %d inputs, %d outputs)", n.uniqueName, len(n.inputs), len(n.outputs))
}
