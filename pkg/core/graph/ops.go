// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package graph

import (
	"maps"
	"slices"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/kernelgen/pkg/core/dtypes"
	"github.com/gomlx/kernelgen/pkg/core/shapes"
	"github.com/pkg/errors"
)

// OpDefinition validates the inputs of an operator and infers its output shapes.
type OpDefinition interface {
	InferOutputs(inputs []shapes.Shape) ([]shapes.Shape, error)
}

// OpDefinitionFn is a function that implements OpDefinition.
type OpDefinitionFn func(inputs []shapes.Shape) ([]shapes.Shape, error)

// InferOutputs implements OpDefinition.
func (fn OpDefinitionFn) InferOutputs(inputs []shapes.Shape) ([]shapes.Shape, error) {
	return fn(inputs)
}

var (
	muOps         sync.RWMutex
	registeredOps = make(map[string]OpDefinition)
)

// RegisterOp registers the definition of opType. It panics if opType is already registered.
func RegisterOp(opType string, def OpDefinition) {
	muOps.Lock()
	defer muOps.Unlock()
	if _, found := registeredOps[opType]; found {
		exceptions.Panicf("graph.RegisterOp(%q): operator already registered", opType)
	}
	registeredOps[opType] = def
}

// LookupOp returns the definition of opType, if registered.
func LookupOp(opType string) (OpDefinition, bool) {
	muOps.RLock()
	defer muOps.RUnlock()
	def, found := registeredOps[opType]
	return def, found
}

// RegisteredOps returns the sorted names of the registered operators.
func RegisteredOps() []string {
	muOps.RLock()
	defer muOps.RUnlock()
	return slices.Sorted(maps.Keys(registeredOps))
}

// Elementwise operator types registered by this package.
var (
	UnaryOps      = []string{"Not", "Negative", "Abs", "Relu", "Sqrt", "Exp", "Log", "Tanh", "Sigmoid"}
	BinaryOps     = []string{"Add", "Subtract", "Multiply", "Divide", "Maximum", "Minimum", "Power"}
	ComparisonOps = []string{"Equal", "NotEqual", "Less", "LessEq", "Greater", "GreaterEq"}
	LogicalOps    = []string{"And", "Or"}
)

func init() {
	for _, op := range UnaryOps {
		RegisterOp(op, elementwise(1, false))
	}
	for _, op := range BinaryOps {
		RegisterOp(op, elementwise(2, false))
	}
	for _, op := range ComparisonOps {
		RegisterOp(op, elementwise(2, true))
	}
	for _, op := range LogicalOps {
		RegisterOp(op, elementwise(2, true))
	}
	RegisterOp("Result", elementwise(1, false))
	RegisterOp("Dot", OpDefinitionFn(inferDot))
}

// elementwise validates that all inputs have the same dtype and dimensions, and returns one
// output of the same shape -- with Bool dtype if boolOutput is set.
func elementwise(numInputs int, boolOutput bool) OpDefinition {
	return OpDefinitionFn(func(inputs []shapes.Shape) ([]shapes.Shape, error) {
		if len(inputs) != numInputs {
			return nil, errors.Errorf("expected %d inputs, got %d", numInputs, len(inputs))
		}
		for ii, input := range inputs[1:] {
			if input.DType != inputs[0].DType {
				return nil, errors.Errorf("input #%d dtype %s doesn't match input #0 dtype %s", ii+1, input.DType, inputs[0].DType)
			}
			if !input.EqualDimensions(inputs[0]) {
				return nil, errors.Errorf("input #%d shape %s doesn't match input #0 shape %s", ii+1, input, inputs[0])
			}
		}
		output := inputs[0].Clone()
		if boolOutput {
			output.DType = dtypes.Bool
		}
		return []shapes.Shape{output}, nil
	})
}

// inferDot is a matrix multiplication [m, k] x [k, n] -> [m, n].
func inferDot(inputs []shapes.Shape) ([]shapes.Shape, error) {
	if len(inputs) != 2 {
		return nil, errors.Errorf("expected 2 inputs, got %d", len(inputs))
	}
	lhs, rhs := inputs[0], inputs[1]
	if lhs.DType != rhs.DType {
		return nil, errors.Errorf("dtypes %s and %s don't match", lhs.DType, rhs.DType)
	}
	if lhs.Rank() != 2 || rhs.Rank() != 2 {
		return nil, errors.Errorf("only rank-2 operands are supported, got %s and %s", lhs, rhs)
	}
	if lhs.Dimensions[1] != rhs.Dimensions[0] {
		return nil, errors.Errorf("contracting dimensions don't match: %s x %s", lhs, rhs)
	}
	return []shapes.Shape{shapes.Make(lhs.DType, lhs.Dimensions[0], rhs.Dimensions[1])}, nil
}
