// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package builtin

import (
	"github.com/gomlx/kernelgen/pkg/core/graph"
	"github.com/gomlx/kernelgen/pkg/core/tensors"
	"github.com/gomlx/kernelgen/pkg/kernels"
)

// Kernel types used in the names of the builtin kernels.
const (
	ReferenceKernelType = "reference"
	CUDAKernelType      = "cuda"
)

// Devices with builtin kernels, and their kernel types.
var Devices = map[tensors.DeviceType]string{
	tensors.GenericCPU: ReferenceKernelType,
	tensors.CUDAGPU:    CUDAKernelType,
}

func init() {
	for device, kernelType := range Devices {
		for opType := range ElementwiseExprs {
			kernels.Register(opType, device, kernelType, NewElementwise(opType, device))
		}
		kernels.Register("Result", device, kernelType, &Result{Device: device})
		kernels.Register("Dot", device, kernelType, &Dot{Device: device})
		kernels.Register(graph.ConstantOpType, device, kernelType, &Constant{Device: device})
	}
}
