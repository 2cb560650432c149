// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package async holds the execution-stream bindings that a scheduling pass assigns to graph
// nodes: which runtime stream a kernel is launched on, and which library handles
// (cuDNN, cuBLAS) are bound to that stream.
//
// The kernel generator only reads these bindings, when generating call sites.
package async

import (
	"fmt"
	"maps"
	"sync"

	"github.com/gomlx/kernelgen/pkg/core/tensors"
)

// Names of the library handles bound to a stream, used as keys of Stream.BindingSymbols.
const (
	CUDNNHandle  = "cudnn_handle"
	CUBLASHandle = "cublas_handle"
)

// Stream is an execution stream of a device.
type Stream struct {
	// Name is the identifier of the stream variable in the generated program.
	Name     string
	Device   tensors.DeviceType
	DeviceID int

	// BindingSymbols maps a handle name (see CUDNNHandle, CUBLASHandle) to the identifier of the
	// handle variable in the generated program.
	BindingSymbols map[string]string
}

// Symbol returns the identifier bound to the given handle name, and whether it was found.
func (s *Stream) Symbol(handle string) (string, bool) {
	if s == nil {
		return "", false
	}
	symbol, found := s.BindingSymbols[handle]
	return symbol, found
}

// ExecutionInfo is the association a scheduling pass attaches to a node.
type ExecutionInfo struct {
	ExecutionStream *Stream
}

// Manager creates streams and assigns them to nodes. It is a minimal stand-in for a real
// scheduling pass: streams are assigned round-robin, and every stream gets the default
// library handles of its device bound.
//
// It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	streams map[string]*Stream
	order   []*Stream
	next    int
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{streams: make(map[string]*Stream)}
}

// Stream returns the stream with the given name for the device, creating it if needed.
// New streams are bound to the handles "cudnn_handle_<deviceID>" and "cublas_handle_<deviceID>".
func (m *Manager) Stream(device tensors.DeviceType, deviceID int, name string) *Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := fmt.Sprintf("%s/%d/%s", device, deviceID, name)
	if s, found := m.streams[key]; found {
		return s
	}
	s := &Stream{
		Name:     name,
		Device:   device,
		DeviceID: deviceID,
		BindingSymbols: map[string]string{
			CUDNNHandle:  fmt.Sprintf("%s_%d", CUDNNHandle, deviceID),
			CUBLASHandle: fmt.Sprintf("%s_%d", CUBLASHandle, deviceID),
		},
	}
	m.streams[key] = s
	m.order = append(m.order, s)
	return s
}

// Streams returns the streams created so far, in creation order.
func (m *Manager) Streams() []*Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Stream(nil), m.order...)
}

// Next returns the next stream in round-robin order, or nil if no streams were created.
func (m *Manager) Next() *Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.order) == 0 {
		return nil
	}
	s := m.order[m.next%len(m.order)]
	m.next++
	return s
}

// Clone returns a copy of the stream with its own binding map, so it can be
// modified without affecting the nodes already bound to s.
func (s *Stream) Clone() *Stream {
	c := *s
	c.BindingSymbols = maps.Clone(s.BindingSymbols)
	return &c
}
