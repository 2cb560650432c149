// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/kernelgen/pkg/codegen"
	"github.com/gomlx/kernelgen/pkg/core/shapes"
	"github.com/gomlx/kernelgen/pkg/core/tensors"
	"k8s.io/klog/v2"
)

// ResultKernelMarker is the substring of a kernel name that marks kernels that allocate their own
// outputs. Unless Config.ExternResultMemory is set, their output parameters are pointers to
// pointers, through which the callee returns the address of the buffer it allocated.
const ResultKernelMarker = "Result"

// BodyEmitter generates the body of a kernel for one op and device.
type BodyEmitter interface {
	// EmitBody returns the body of the kernel of e.Context(), or nil if it can't generate one:
	// the op is not supported for this device or these dtypes.
	//
	// It may call e.AllocateTensor to use temporary tensors, and stage requirements of the body
	// (headers, helper functions) with codegen.Unit.RequireSymbol.
	EmitBody(e *Emitter) *codegen.Unit
}

// BodyEmitterFn implements BodyEmitter with a function.
type BodyEmitterFn func(e *Emitter) *codegen.Unit

// EmitBody implements BodyEmitter.
func (fn BodyEmitterFn) EmitBody(e *Emitter) *codegen.Unit { return fn(e) }

// HandleRequirer can be implemented by a BodyEmitter whose kernels take runtime handles
// (a stream, library handles) as leading parameters.
type HandleRequirer interface {
	RuntimeHandles(e *Emitter) []ParamKind
}

// DependencyEmitter can be implemented by a BodyEmitter to declare the dependencies of its
// kernels (headers, declarations) in the dependency unit.
type DependencyEmitter interface {
	EmitDependency(e *Emitter, dependency *codegen.Unit)
}

// Emitter generates the kernel of one node.
//
// It starts unemitted. The first call to GetOrEmitSource generates the kernel, or adopts it from
// the cache, and the emitter becomes emitted: from then on only the call site can be regenerated.
//
// An Emitter is not safe for concurrent use. Different emitters sharing a Cache are.
type Emitter struct {
	ctx        *Context
	kernelType string
	body       BodyEmitter
	cache      *Cache
	config     Config

	name      string
	signature *Signature
	emitted   bool
	result    *FunctionUnit
}

// NewEmitter creates the emitter for node.
//
// The kernelType is the kernel category used in the kernel name (e.g. "cuda", "cpu_reference").
// It must be a valid C identifier fragment, as must the op type and unique name of the node.
// If cache is nil the emitter uses a cache of its own.
//
// It panics if the node is malformed, see NewContext.
func NewEmitter(node Node, kernelType string, body BodyEmitter, cache *Cache, config Config) *Emitter {
	if body == nil {
		exceptions.Panicf("kernels.NewEmitter(%s): nil BodyEmitter", node.UniqueName())
	}
	if cache == nil {
		cache = NewCache()
	}
	return &Emitter{
		ctx:        NewContext(node),
		kernelType: kernelType,
		body:       body,
		cache:      cache,
		config:     config,
	}
}

// Context of the node being emitted.
func (e *Emitter) Context() *Context { return e.ctx }

// KernelType returns the kernel category given at construction.
func (e *Emitter) KernelType() string { return e.kernelType }

// Config returns the session configuration the emitter follows.
func (e *Emitter) Config() Config { return e.config }

// IsEmitted returns whether GetOrEmitSource already ran.
func (e *Emitter) IsEmitted() bool { return e.emitted }

// Signature returns the structured signature last generated, or nil if none was generated yet.
func (e *Emitter) Signature() *Signature { return e.signature }

// SharedUnit returns the unit named name shared by the kernels of the emitter's cache, creating
// it with create the first time. See Cache.SharedUnit.
func (e *Emitter) SharedUnit(name string, create func(u *codegen.Unit)) *codegen.Unit {
	return e.cache.SharedUnit(name, create)
}

// KernelName returns the kernel name, computing it if needed.
func (e *Emitter) KernelName() string {
	if e.name == "" {
		node := e.ctx.Node()
		e.name = node.OpType() + "_" + strings.Join(e.ctx.DTypes(), "_") + "_" + e.kernelType + "_" + node.UniqueName()
	}
	return e.name
}

// GetOrEmitSource returns the kernel of the node, generating it on the first call.
//
// The first call computes the kernel name and looks it up in the cache: on a hit the cached
// FunctionUnit is adopted as is. Otherwise it generates the signature, the body (through the
// BodyEmitter), the call site, the dependencies and the comments, moves the requirements staged
// by the call site and body into the dependency unit, and stores the result in the cache.
//
// Later calls return the same FunctionUnit, and if emitCall is set the call site is regenerated
// first (e.g. after execution streams were assigned to the node). Only the emitter that built a
// kernel regenerates its call site.
//
// It returns nil if the BodyEmitter can't generate the kernel. This is the only recoverable
// failure: malformed nodes and missing stream bindings panic.
func (e *Emitter) GetOrEmitSource(emitCall bool) *FunctionUnit {
	if e.emitted {
		if emitCall && e.result != nil {
			e.refreshCall()
		}
		return e.result
	}

	name := e.KernelName()
	fu, hit := e.cache.GetOrEmit(name, e.emit)
	if hit {
		klog.V(1).Infof("kernels: reusing cached kernel %s", name)
	}
	e.result = fu
	e.emitted = true
	return fu
}

// emit runs the full generation of the kernel. It returns nil if the body is not supported.
func (e *Emitter) emit() *FunctionUnit {
	name := e.KernelName()
	klog.V(2).Infof("kernels: emitting %s", name)
	numTemporaries := e.ctx.NumTemporaries()
	defer func() {
		if r := recover(); r != nil {
			// Roll back the temporaries and signature of the failed attempt, so the emitter can
			// be retried.
			e.ctx.truncateTemporaries(numTemporaries)
			e.signature = nil
			panic(r)
		}
	}()
	signature := e.EmitFunctionSignature()
	body := e.body.EmitBody(e)
	if body == nil {
		klog.V(2).Infof("kernels: no body for %s", name)
		return nil
	}
	if e.ctx.NumTemporaries() != numTemporaries {
		// Temporaries allocated by the body are parameters too.
		signature = e.EmitFunctionSignature()
	}
	call := e.EmitFunctionCall()
	dependency := e.EmitDependency()
	comment := e.EmitComments()

	call.TransferStaged(dependency)
	body.TransferStaged(dependency)

	def := &Definition{
		Name:       e.EmitFunctionName(),
		Signature:  signature,
		Params:     e.signature,
		Body:       body,
		Dependency: dependency,
		Comment:    comment,
	}
	return newFunctionUnit(def, call, e)
}

// refreshCall regenerates the call site of the kernel, if this emitter built it.
func (e *Emitter) refreshCall() {
	if e.result.Owner() != e {
		klog.V(2).Infof("kernels: %s was built by another emitter, keeping its call site", e.KernelName())
		return
	}
	call := e.EmitFunctionCall()
	// The dependency unit is frozen: requirements of a regenerated call stay with the call.
	call.PromoteStaged()
	e.result.setCall(call)
}

// EmitFunctionName returns a unit with the kernel name as its code.
func (e *Emitter) EmitFunctionName() *codegen.Unit {
	return codegen.NewUnitWithCode("function_name", e.KernelName())
}

// outputDepth returns the pointer depth of the output parameters.
func (e *Emitter) outputDepth() int {
	if !strings.Contains(e.KernelName(), ResultKernelMarker) || e.config.ExternResultMemory {
		return 1
	}
	return 2
}

// EmitFunctionSignature generates the declaration "void <name>(<params>)".
//
// Parameters are, in order: the runtime handles required by the BodyEmitter (see
// HandleRequirer), one pointer per input ("input0", ...), one per output ("output0", ...), and
// one per temporary tensor allocated so far, named after the tensor.
//
// Outputs are single pointers, written in place, unless the kernel name contains
// ResultKernelMarker and Config.ExternResultMemory is false: then they are double pointers and
// the kernel allocates them.
func (e *Emitter) EmitFunctionSignature() *codegen.Unit {
	sig := &Signature{}
	if hr, ok := e.body.(HandleRequirer); ok {
		kinds := hr.RuntimeHandles(e)
		for _, kind := range []ParamKind{ParamStream, ParamCUDNNHandle, ParamCUBLASHandle} {
			if slices.Contains(kinds, kind) {
				sig.Params = append(sig.Params, HandleParam(kind))
			}
		}
	}
	for ii, t := range e.ctx.Inputs() {
		sig.Params = append(sig.Params, Param{Kind: ParamData, CType: t.DType().CType(), Depth: 1, Name: fmt.Sprintf("input%d", ii)})
	}
	depth := e.outputDepth()
	for ii, t := range e.ctx.Outputs() {
		sig.Params = append(sig.Params, Param{Kind: ParamData, CType: t.DType().CType(), Depth: depth, Name: fmt.Sprintf("output%d", ii)})
	}
	for _, t := range e.ctx.Temporaries() {
		sig.Params = append(sig.Params, Param{Kind: ParamData, CType: t.DType().CType(), Depth: 1, Name: t.Name()})
	}
	e.signature = sig

	u := codegen.NewUnit(e.KernelName() + "_sig")
	u.Printf("void %s(%s)", e.KernelName(), sig)
	return u
}

// EmitFunctionCall generates the call site "<name>(<args>);".
//
// Arguments follow the signature order. If a signature was already generated, the leading
// handle arguments are resolved from the stream assigned to the node, see ResolveStreamArguments.
// It can be called any number of times, it doesn't change the emitter.
func (e *Emitter) EmitFunctionCall() *codegen.Unit {
	var args []string
	args = append(args, ResolveStreamArguments(e.ctx.Node(), e.signature)...)
	args = append(args, e.ctx.InputNames()...)
	args = append(args, e.ctx.OutputNames()...)
	args = append(args, e.ctx.TemporaryNames()...)

	u := codegen.NewUnit(e.KernelName() + "_call")
	u.Printf("%s(%s);\n", e.KernelName(), strings.Join(args, ", "))
	return u
}

// EmitDependency generates the unit that holds the dependencies of the kernel. The BodyEmitter
// adds to it if it implements DependencyEmitter.
func (e *Emitter) EmitDependency() *codegen.Unit {
	u := codegen.NewUnit(e.KernelName() + "_dep")
	if de, ok := e.body.(DependencyEmitter); ok {
		de.EmitDependency(e, u)
	}
	return u
}

// EmitComments generates the documentation block of the kernel: the node, and the name, type
// and shape of each tensor it uses.
func (e *Emitter) EmitComments() *codegen.Unit {
	u := codegen.NewUnit(e.KernelName() + "_comments")
	node := e.ctx.Node()
	u.Printf("// Node name:\t%s\n", node.UniqueName())
	u.Printf("// Description:\t%s\n", node.OpType())
	u.Println("// Input:")
	for _, t := range e.ctx.Inputs() {
		writeTensorComment(u, t)
	}
	u.Println("// Output:")
	for _, t := range e.ctx.Outputs() {
		writeTensorComment(u, t)
	}
	if temporaries := e.ctx.Temporaries(); len(temporaries) > 0 {
		u.Println("// Other tensors in use:")
		for _, t := range temporaries {
			writeTensorComment(u, t)
		}
	}
	return u
}

func writeTensorComment(u *codegen.Unit, t *tensors.Descriptor) {
	u.Printf("//\t- name: %s\ttype: %s\tshape: %s\n", t.Name(), t.DType().CType(), t.Shape().DimensionsString())
}

// AllocateTensor creates a temporary tensor for the kernel and registers it in the context.
//
// The positional name is "temp<N>", where N is the number of temporaries allocated before.
// The tensor is named "<node unique name>_temp<N>", unless an explicit name is given.
// Temporaries become parameters of the kernel, after the outputs, in allocation order.
//
// It must be called while generating the body: it panics once the kernel is emitted.
func (e *Emitter) AllocateTensor(shape shapes.Shape, name string, device tensors.DeviceType, storage tensors.Storage) *tensors.Descriptor {
	if e.emitted {
		exceptions.Panicf("kernels: AllocateTensor(%s) on already emitted kernel %s", shape, e.KernelName())
	}
	positional := fmt.Sprintf("temp%d", e.ctx.NumTemporaries())
	if name == "" {
		name = e.ctx.Node().UniqueName() + "_" + positional
	}
	t := tensors.NewDescriptor(shape, name, device, storage)
	e.ctx.addTemporary(t)
	klog.V(1).Infof("Tensor allocated:\t%s, shape is: %s", name, shape.DimensionsString())
	return t
}
