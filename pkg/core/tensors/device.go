// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"strings"

	"github.com/pkg/errors"
)

// DeviceType is the kind of device a tensor is placed on, and for which a kernel is generated.
type DeviceType int

const (
	InvalidDevice DeviceType = iota
	GenericCPU
	CUDAGPU
	ROCmGPU
	GraphCore
)

var deviceTypeNames = []string{"InvalidDevice", "GENERIC_CPU", "CUDA_GPU", "ROCM_GPU", "GraphCore"}

// String implements fmt.Stringer.
func (d DeviceType) String() string {
	if d < 0 || int(d) >= len(deviceTypeNames) {
		return "DeviceType(?)"
	}
	return deviceTypeNames[d]
}

// IsGPU returns whether the device executes kernels asynchronously on streams.
func (d DeviceType) IsGPU() bool {
	return d == CUDAGPU || d == ROCmGPU
}

// ParseDeviceType converts a name like "cuda_gpu", "cuda" or "cpu" to a DeviceType.
func ParseDeviceType(name string) (DeviceType, error) {
	switch strings.ToLower(name) {
	case "generic_cpu", "cpu":
		return GenericCPU, nil
	case "cuda_gpu", "cuda", "gpu":
		return CUDAGPU, nil
	case "rocm_gpu", "rocm":
		return ROCmGPU, nil
	case "graphcore", "ipu":
		return GraphCore, nil
	}
	return InvalidDevice, errors.Errorf("unknown device type %q, valid values are cpu, cuda, rocm or graphcore", name)
}
