// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gomlx/kernelgen/pkg/core/tensors"
)

// Registration of a kernel implementation for an op and device.
type Registration struct {
	OpType     string
	Device     tensors.DeviceType
	KernelType string
	Body       BodyEmitter
}

var (
	muRegistry sync.RWMutex
	registry   = make(map[string][]Registration)
)

func registryKey(opType string, device tensors.DeviceType) string {
	return fmt.Sprintf("%s@%s", opType, device)
}

// Register a BodyEmitter for the given op type and device, under the given kernel type (used in
// kernel names).
//
// Many implementations can be registered for the same op and device: Session.EmitKernels tries
// them in registration order, and uses the first one that generates a body. Typically called from
// the init() of the package implementing the kernels.
func Register(opType string, device tensors.DeviceType, kernelType string, body BodyEmitter) {
	muRegistry.Lock()
	defer muRegistry.Unlock()
	key := registryKey(opType, device)
	registry[key] = append(registry[key], Registration{OpType: opType, Device: device, KernelType: kernelType, Body: body})
}

// LookupAll returns the implementations registered for the op type and device, in registration order.
func LookupAll(opType string, device tensors.DeviceType) []Registration {
	muRegistry.RLock()
	defer muRegistry.RUnlock()
	return slices.Clone(registry[registryKey(opType, device)])
}

// RegisteredOpTypes returns the sorted op types with at least one implementation for device.
func RegisteredOpTypes(device tensors.DeviceType) []string {
	muRegistry.RLock()
	defer muRegistry.RUnlock()
	var ops []string
	for _, regs := range registry {
		if len(regs) > 0 && regs[0].Device == device {
			ops = append(ops, regs[0].OpType)
		}
	}
	slices.Sort(ops)
	return ops
}
