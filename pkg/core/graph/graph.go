// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package graph holds a minimal computation graph consumed by the kernel generator: nodes with
// an operator type, ordered input and output tensor descriptors, operator annotations and the
// execution-stream binding assigned by a scheduling pass.
//
// Nodes are kept in insertion order, which is a topological order since a node can only use
// tensors that already exist.
//
// Graph building errors caused by the user (unknown operators, incompatible shapes) are
// returned as errors. Structural misuse (nil graph, nil tensors) panics.
package graph

import (
	"fmt"
	"sync"

	"github.com/gomlx/kernelgen/pkg/core/shapes"
	"github.com/gomlx/kernelgen/pkg/core/tensors"
	"github.com/pkg/errors"
)

// Graph owns a list of nodes, and assigns their process-unique ids.
type Graph struct {
	mu     sync.Mutex
	name   string
	device tensors.DeviceType
	nodes  []*Node
	params []*tensors.Descriptor
}

// nextNodeID is shared by all graphs, so node ids (and hence unique names) are unique in the process.
var (
	muNextNodeID sync.Mutex
	nextNodeID   int64
)

func newNodeID() int64 {
	muNextNodeID.Lock()
	defer muNextNodeID.Unlock()
	id := nextNodeID
	nextNodeID++
	return id
}

// New creates an empty graph whose nodes are placed on the given device.
func New(name string, device tensors.DeviceType) *Graph {
	return &Graph{name: name, device: device}
}

// Name of the graph.
func (g *Graph) Name() string { return g.name }

// Device where the graph's nodes and tensors are placed.
func (g *Graph) Device() tensors.DeviceType { return g.device }

// Nodes returns the nodes of the graph, in insertion (topological) order.
func (g *Graph) Nodes() []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*Node(nil), g.nodes...)
}

// Parameters returns the parameter tensors fed by the caller of the graph.
func (g *Graph) Parameters() []*tensors.Descriptor {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*tensors.Descriptor(nil), g.params...)
}

// Parameter creates a parameter tensor of the graph with the given name and shape.
func (g *Graph) Parameter(name string, shape shapes.Shape) *tensors.Descriptor {
	t := tensors.NewDescriptor(shape, name, g.device, tensors.Storage{Parameter: true})
	g.mu.Lock()
	defer g.mu.Unlock()
	g.params = append(g.params, t)
	return t
}

// AddNode creates a node for opType over the given inputs. The output tensors are created
// with shapes inferred by the operator definition registered with RegisterOp, and named
// "<UniqueName>_<outputIndex>".
//
// It returns an error if opType is not registered or if the inputs are not valid for it.
func (g *Graph) AddNode(opType string, annotations Annotations, inputs ...*tensors.Descriptor) (*Node, error) {
	def, found := LookupOp(opType)
	if !found {
		return nil, errors.Errorf("graph %q: unknown operator %q", g.name, opType)
	}
	inputShapes := make([]shapes.Shape, len(inputs))
	for ii, input := range inputs {
		if input == nil {
			return nil, errors.Errorf("graph %q: operator %q input #%d is nil", g.name, opType, ii)
		}
		inputShapes[ii] = input.Shape()
	}
	outputShapes, err := def.InferOutputs(inputShapes)
	if err != nil {
		return nil, errors.WithMessagef(err, "graph %q: operator %q", g.name, opType)
	}
	node := g.newNode(opType, annotations, inputs)
	node.outputs = make([]*tensors.Descriptor, len(outputShapes))
	for ii, shape := range outputShapes {
		name := fmt.Sprintf("%s_%d", node.uniqueName, ii)
		node.outputs[ii] = tensors.NewDescriptor(shape, name, g.device, tensors.Storage{})
	}
	return node, nil
}

// AddNodeWithOutputs creates a node with explicitly given inputs and outputs, no validation is
// performed. Used for operators not registered, or by tools that import graphs built elsewhere.
func (g *Graph) AddNodeWithOutputs(opType string, annotations Annotations, inputs, outputs []*tensors.Descriptor) *Node {
	node := g.newNode(opType, annotations, inputs)
	node.outputs = append([]*tensors.Descriptor(nil), outputs...)
	return node
}

// ConstantOpType is the operator type of the nodes created by Graph.Constant.
const ConstantOpType = "Constant"

// ValueAnnotation is the annotation of Constant nodes with their value, formatted with fmt.Sprint:
// e.g. "0.5", "-3" or "true".
const ValueAnnotation = "value"

// Constant creates a node with no inputs and one output tensor, named name, with every element
// set to value.
func (g *Graph) Constant(name string, shape shapes.Shape, value string) *Node {
	t := tensors.NewDescriptor(shape, name, g.device, tensors.Storage{Constant: true})
	return g.AddNodeWithOutputs(ConstantOpType, Annotations{ValueAnnotation: value}, nil, []*tensors.Descriptor{t})
}

func (g *Graph) newNode(opType string, annotations Annotations, inputs []*tensors.Descriptor) *Node {
	id := newNodeID()
	node := &Node{
		graph:       g,
		id:          id,
		opType:      opType,
		uniqueName:  fmt.Sprintf("%s_%d", opType, id),
		inputs:      append([]*tensors.Descriptor(nil), inputs...),
		annotations: annotations.Clone(),
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = append(g.nodes, node)
	return node
}
