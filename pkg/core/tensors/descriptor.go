// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors defines Descriptor, the description of a tensor consumed by kernel
// generation: element type, shape, name, device placement and storage class.
//
// Descriptors carry no data: they only describe memory that the generated program will
// allocate and pass to the kernels.
package tensors

import (
	"fmt"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/kernelgen/pkg/core/dtypes"
	"github.com/gomlx/kernelgen/pkg/core/shapes"
)

// Storage holds the storage-class flags of a tensor.
type Storage struct {
	// Persistent tensors outlive one execution of the program (e.g.: weights, kernel workspaces).
	Persistent bool

	// Constant tensors are initialized once and never written to.
	Constant bool

	// Parameter tensors are fed by the caller of the program.
	Parameter bool

	// RDMA tensors are remote-accessible across devices.
	RDMA bool

	// Group is the memory pool the tensor is allocated from, empty for the default one.
	Group string

	// DeviceID is the index of the device, when there is more than one of the same type.
	DeviceID int
}

// Descriptor describes one tensor. It's created by whichever graph or kernel scope defines the
// tensor, and it's never mutated by consumers.
type Descriptor struct {
	shape   shapes.Shape
	name    string
	device  DeviceType
	storage Storage
}

// NewDescriptor creates a tensor descriptor. The name must be unique within its defining scope.
//
// It panics if the shape is invalid.
func NewDescriptor(shape shapes.Shape, name string, device DeviceType, storage Storage) *Descriptor {
	if !shape.Ok() {
		exceptions.Panicf("tensors.NewDescriptor(%q): invalid shape %s", name, shape)
	}
	return &Descriptor{shape: shape.Clone(), name: name, device: device, storage: storage}
}

// Shape returns the shape (element type and dimensions) of the tensor.
func (d *Descriptor) Shape() shapes.Shape { return d.shape }

// DType returns the element type of the tensor.
func (d *Descriptor) DType() dtypes.DType { return d.shape.DType }

// Name of the tensor.
func (d *Descriptor) Name() string { return d.name }

// Device where the tensor is placed.
func (d *Descriptor) Device() DeviceType { return d.device }

// Storage returns the storage-class flags.
func (d *Descriptor) Storage() Storage { return d.storage }

func (d *Descriptor) IsPersistent() bool { return d.storage.Persistent }
func (d *Descriptor) IsConstant() bool   { return d.storage.Constant }
func (d *Descriptor) IsParameter() bool  { return d.storage.Parameter }
func (d *Descriptor) IsRDMA() bool       { return d.storage.RDMA }

// String implements fmt.Stringer.
func (d *Descriptor) String() string {
	return fmt.Sprintf("%s%s@%s", d.name, d.shape, d.device)
}
