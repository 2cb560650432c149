// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/kernelgen/pkg/async"
)

// ParamKind is the semantic kind of a kernel parameter. Call-site generation matches runtime
// handles to parameters by kind.
type ParamKind int

const (
	// ParamData is a pointer to tensor data: inputs, outputs and temporaries.
	ParamData ParamKind = iota

	// ParamStream is the execution stream the kernel is launched on.
	ParamStream

	// ParamCUDNNHandle is the cuDNN library handle bound to the stream.
	ParamCUDNNHandle

	// ParamCUBLASHandle is the cuBLAS library handle bound to the stream.
	ParamCUBLASHandle
)

var paramKindNames = []string{"Data", "Stream", "CUDNNHandle", "CUBLASHandle"}

// String implements fmt.Stringer.
func (k ParamKind) String() string {
	if k < 0 || int(k) >= len(paramKindNames) {
		return fmt.Sprintf("ParamKind(%d)", int(k))
	}
	return paramKindNames[k]
}

// IsHandle returns whether the kind is a runtime synchronization handle (stream or library
// handle), as opposed to tensor data.
func (k ParamKind) IsHandle() bool { return k != ParamData }

// BindingKey returns the key of async.Stream.BindingSymbols for library handle kinds, or "" for
// the other kinds.
func (k ParamKind) BindingKey() string {
	switch k {
	case ParamCUDNNHandle:
		return async.CUDNNHandle
	case ParamCUBLASHandle:
		return async.CUBLASHandle
	}
	return ""
}

// HandleParam returns the parameter declaration for a runtime handle kind.
func HandleParam(kind ParamKind) Param {
	switch kind {
	case ParamStream:
		return Param{Kind: kind, CType: "cudaStream_t", Name: "stream"}
	case ParamCUDNNHandle:
		return Param{Kind: kind, CType: "cudnnHandle_t", Name: "cudnn_handle"}
	case ParamCUBLASHandle:
		return Param{Kind: kind, CType: "cublasHandle_t", Name: "cublas_handle"}
	}
	exceptions.Panicf("kernels.HandleParam(%s): not a handle kind", kind)
	panic(nil)
}

// Param is one parameter of a kernel signature.
type Param struct {
	Kind  ParamKind
	CType string

	// Depth is the pointer depth: 0 for handles, 1 for data buffers written in place, 2 for
	// buffers allocated by the callee.
	Depth int

	Name string
}

// String returns the C declaration of the parameter, e.g. "float* input0".
func (p Param) String() string {
	if p.Depth == 0 {
		return p.CType + " " + p.Name
	}
	return p.CType + strings.Repeat("*", p.Depth) + " " + p.Name
}

// Signature is the structured parameter list of a kernel: handles first, then inputs, outputs
// and temporaries.
type Signature struct {
	Params []Param
}

// Has returns whether the signature has a parameter of the given kind.
func (s *Signature) Has(kind ParamKind) bool {
	if s == nil {
		return false
	}
	return slices.ContainsFunc(s.Params, func(p Param) bool { return p.Kind == kind })
}

// Handles returns the handle parameters, in signature order.
func (s *Signature) Handles() []Param {
	var handles []Param
	for _, p := range s.Params {
		if p.Kind.IsHandle() {
			handles = append(handles, p)
		}
	}
	return handles
}

// Data returns the data parameters, in signature order.
func (s *Signature) Data() []Param {
	var data []Param
	for _, p := range s.Params {
		if !p.Kind.IsHandle() {
			data = append(data, p)
		}
	}
	return data
}

// String returns the comma-separated parameter declarations.
func (s *Signature) String() string {
	parts := make([]string, len(s.Params))
	for ii, p := range s.Params {
		parts[ii] = p.String()
	}
	return strings.Join(parts, ", ")
}
