// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"fmt"
	"os"
	"reflect"

	"github.com/gomlx/kernelgen/pkg/core/dtypes"
	"github.com/gomlx/kernelgen/pkg/core/graph"
	"github.com/gomlx/kernelgen/pkg/core/shapes"
	"github.com/gomlx/kernelgen/pkg/core/tensors"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// graphFile is the YAML description of a graph:
//
//	name: mlp
//	device: cuda
//	parameters:
//	  - {name: x, dtype: float32, shape: [2, 3]}
//	constants:
//	  - {name: half, dtype: float32, shape: [2, 3], value: 0.5}
//	nodes:
//	  - {op: Relu, inputs: [x], outputs: [h]}
//
// Outputs of nodes are referred to by the aliases listed in "outputs", or by their generated
// names ("<op>_<id>_<index>").
type graphFile struct {
	Name       string       `yaml:"name"`
	Device     string       `yaml:"device"`
	Parameters []tensorSpec   `yaml:"parameters"`
	Constants  []constantSpec `yaml:"constants"`
	Nodes      []nodeSpec     `yaml:"nodes"`
}

type tensorSpec struct {
	Name  string `yaml:"name"`
	DType string `yaml:"dtype"`
	Shape []int  `yaml:"shape"`
}

// constantSpec is a tensor with all elements set to Value: a bool, an integer or a float.
type constantSpec struct {
	tensorSpec `yaml:",inline"`
	Value      any `yaml:"value"`
}

type nodeSpec struct {
	Op          string            `yaml:"op"`
	Inputs      []string          `yaml:"inputs"`
	Outputs     []string          `yaml:"outputs"`
	Annotations map[string]string `yaml:"annotations"`
}

// loadGraph reads the graph description in path. If device is not empty it overrides the device
// of the file.
func loadGraph(path, device string) (*graph.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading graph file")
	}
	g, err := parseGraph(data, device)
	return g, errors.WithMessagef(err, "graph file %q", path)
}

func parseGraph(data []byte, device string) (*graph.Graph, error) {
	var gf graphFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&gf); err != nil {
		return nil, errors.Wrap(err, "parsing YAML")
	}
	if device == "" {
		device = gf.Device
	}
	if device == "" {
		device = "cpu"
	}
	deviceType, err := tensors.ParseDeviceType(device)
	if err != nil {
		return nil, err
	}

	g := graph.New(gf.Name, deviceType)
	named := make(map[string]*tensors.Descriptor)
	for _, p := range gf.Parameters {
		shape, err := p.shape(named)
		if err != nil {
			return nil, errors.WithMessagef(err, "parameter %q", p.Name)
		}
		named[p.Name] = g.Parameter(p.Name, shape)
	}
	for _, c := range gf.Constants {
		shape, err := c.shape(named)
		if err != nil {
			return nil, errors.WithMessagef(err, "constant %q", c.Name)
		}
		value, err := constantValue(c.Value, shape.DType)
		if err != nil {
			return nil, errors.WithMessagef(err, "constant %q", c.Name)
		}
		named[c.Name] = g.Constant(c.Name, shape, value).Output(0)
	}

	for ii, n := range gf.Nodes {
		inputs := make([]*tensors.Descriptor, len(n.Inputs))
		for jj, name := range n.Inputs {
			t, found := named[name]
			if !found {
				return nil, errors.Errorf("node #%d (%s): unknown input %q", ii, n.Op, name)
			}
			inputs[jj] = t
		}
		node, err := g.AddNode(n.Op, n.Annotations, inputs...)
		if err != nil {
			return nil, errors.WithMessagef(err, "node #%d", ii)
		}
		if len(n.Outputs) > node.NumOutputs() {
			return nil, errors.Errorf("node #%d (%s): %d output names given, but it has %d outputs",
				ii, n.Op, len(n.Outputs), node.NumOutputs())
		}
		for jj := range node.NumOutputs() {
			named[node.Output(jj).Name()] = node.Output(jj)
		}
		for jj, alias := range n.Outputs {
			if _, found := named[alias]; found {
				return nil, errors.Errorf("node #%d (%s): output name %q already used", ii, n.Op, alias)
			}
			named[alias] = node.Output(jj)
		}
	}
	return g, nil
}

// shape validates the name of the tensor, and returns its shape.
func (spec tensorSpec) shape(named map[string]*tensors.Descriptor) (shapes.Shape, error) {
	if spec.Name == "" {
		return shapes.Shape{}, errors.New("tensor without a name")
	}
	if _, found := named[spec.Name]; found {
		return shapes.Shape{}, errors.New("defined more than once")
	}
	dtype, err := dtypes.Parse(spec.DType)
	if err != nil {
		return shapes.Shape{}, err
	}
	for _, dim := range spec.Shape {
		if dim < 0 {
			return shapes.Shape{}, errors.Errorf("negative dimension in shape %v", spec.Shape)
		}
	}
	return shapes.Make(dtype, spec.Shape...), nil
}

// constantValue checks that the YAML value can be converted to dtype, and formats it for the
// graph.ValueAnnotation annotation.
func constantValue(value any, dtype dtypes.DType) (string, error) {
	valueDType := dtypes.FromGoType(reflect.TypeOf(value))
	switch {
	case valueDType == dtypes.InvalidDType:
		return "", errors.Errorf("value %v is not a number or a bool", value)
	case dtype == dtypes.Complex64 || dtype == dtypes.Complex128:
		return "", errors.Errorf("constants of dtype %s are not supported", dtype)
	case (valueDType == dtypes.Bool) != (dtype == dtypes.Bool):
		return "", errors.Errorf("value %v can't be converted to %s", value, dtype)
	case valueDType.IsFloat() && !dtype.IsFloat():
		return "", errors.Errorf("float value %v can't be converted to %s", value, dtype)
	}
	return fmt.Sprint(value), nil
}
