// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/kernelgen/internal/workerspool"
	"github.com/gomlx/kernelgen/pkg/core/graph"
	"github.com/gomlx/kernelgen/pkg/core/tensors"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Session is one compilation: it owns the kernel cache and the configuration shared by all the
// emitters it creates. Kernels are never evicted from the cache during a session.
type Session struct {
	id     uuid.UUID
	config Config
	cache  *Cache
	pool   *workerspool.Pool

	onResult func(r *Result)
}

// NewSession creates a session with an empty cache.
func NewSession(config Config) *Session {
	s := &Session{
		id:     uuid.New(),
		config: config,
		cache:  NewCache(),
		pool:   workerspool.New(config.Parallelism),
	}
	klog.V(1).Infof("kernels: new session %s (%+v)", s.id, config)
	return s
}

// ID returns the unique identifier of the session.
func (s *Session) ID() uuid.UUID { return s.id }

// Config returns the session configuration.
func (s *Session) Config() Config { return s.config }

// Cache returns the cache of kernels generated in the session.
func (s *Session) Cache() *Cache { return s.cache }

// OnResult sets a function called by EmitKernels as soon as the kernel of each node is done,
// e.g. to report progress. It's called concurrently from the workers.
func (s *Session) OnResult(fn func(r *Result)) {
	s.onResult = fn
}

// NewEmitter creates an emitter for node that uses the session cache and configuration.
func (s *Session) NewEmitter(node Node, kernelType string, body BodyEmitter) *Emitter {
	return NewEmitter(node, kernelType, body, s.cache, s.config)
}

// Result of the emission of the kernel of one node.
type Result struct {
	Node Node

	// Emitter that generated (or adopted) the kernel, nil if no implementation is registered.
	Emitter *Emitter

	// Kernel is nil if the node is not supported, or if Err is set.
	Kernel *FunctionUnit

	// Err is set if the kernel generation failed: malformed node or missing stream binding.
	Err error
}

// Supported returns whether a kernel was generated.
func (r *Result) Supported() bool { return r.Kernel != nil }

// EmitKernels generates the kernels of the nodes for device, in parallel.
//
// For each node the implementations registered (see Register) for its op type and device are
// tried in order, and the first one that generates a body is used. Nodes with no implementation
// generating a body get a Result with a nil Kernel and no error.
//
// Failures of one kernel are reported in its Result.Err, and don't stop the others.
// Results are returned in the order of the nodes.
func (s *Session) EmitKernels(device tensors.DeviceType, nodes ...Node) []*Result {
	results := make([]*Result, len(nodes))
	s.pool.ForEach(len(nodes), func(i int) {
		results[i] = s.emitNode(device, nodes[i])
		if s.onResult != nil {
			s.onResult(results[i])
		}
	})
	return results
}

// EmitGraph generates the kernels of all the nodes of g, for the device of the graph.
func (s *Session) EmitGraph(g *graph.Graph) []*Result {
	graphNodes := g.Nodes()
	nodes := make([]Node, len(graphNodes))
	for ii, n := range graphNodes {
		nodes[ii] = n
	}
	return s.EmitKernels(g.Device(), nodes...)
}

func (s *Session) emitNode(device tensors.DeviceType, node Node) *Result {
	r := &Result{Node: node}
	regs := LookupAll(node.OpType(), device)
	if len(regs) == 0 {
		klog.Warningf("kernels: op %s (node %s) has no kernel registered for %s", node.OpType(), node.UniqueName(), device)
		return r
	}
	err := catchPanic(func() {
		for _, reg := range regs {
			r.Emitter = s.NewEmitter(node, reg.KernelType, reg.Body)
			if r.Kernel = r.Emitter.GetOrEmitSource(false); r.Kernel != nil {
				return
			}
			klog.V(1).Infof("kernels: %s kernel not supported for node %s", reg.KernelType, node.UniqueName())
		}
		klog.Warningf("kernels: op %s (node %s) not supported on %s", node.OpType(), node.UniqueName(), device)
	})
	if err != nil {
		r.Kernel = nil
		r.Err = errors.WithMessagef(err, "generating kernel for node %s", node.UniqueName())
	}
	return r
}

// catchPanic runs fn and returns the value it panicked with as an error, so a failing kernel
// stops only its own generation.
func catchPanic(fn func()) error {
	panicked := exceptions.Try(fn)
	if panicked == nil {
		return nil
	}
	if err, ok := panicked.(error); ok {
		return err
	}
	return errors.Errorf("%v", panicked)
}

// RefreshCalls regenerates the call sites of the kernels in results, typically after execution
// streams were assigned to the nodes. Definitions are not regenerated.
//
// It returns the first error found, and records each failure in its Result.Err.
func (s *Session) RefreshCalls(results []*Result) error {
	var firstErr error
	for _, r := range results {
		if r.Kernel == nil || r.Err != nil {
			continue
		}
		err := catchPanic(func() { r.Emitter.GetOrEmitSource(true) })
		if err != nil {
			r.Err = errors.WithMessagef(err, "refreshing call of node %s", r.Node.UniqueName())
			if firstErr == nil {
				firstErr = r.Err
			}
		}
	}
	return firstErr
}

// Kernels returns the generated kernels of results, in order, skipping the unsupported ones.
func Kernels(results []*Result) []*FunctionUnit {
	var kernels []*FunctionUnit
	for _, r := range results {
		if r.Kernel != nil {
			kernels = append(kernels, r.Kernel)
		}
	}
	return kernels
}
