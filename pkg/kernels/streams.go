// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package kernels

import (
	"github.com/gomlx/exceptions"
	"k8s.io/klog/v2"
)

// ResolveStreamArguments returns the leading call arguments for the handle parameters of
// signature, taken from the execution stream assigned to node.
//
// If node has no assigned stream, or signature is nil, it returns nil: the call omits all
// synchronization arguments. Otherwise each handle parameter is matched by kind: the stream
// parameter gets the stream name, and library handles get the stream's binding symbol.
// It panics if a required handle has no binding, since that is a bug in the pass that assigned
// the streams.
func ResolveStreamArguments(node Node, signature *Signature) []string {
	if signature == nil {
		return nil
	}
	info := node.AsyncInfo()
	if info == nil || info.ExecutionStream == nil {
		if len(signature.Handles()) > 0 && klog.V(2).Enabled() {
			klog.Infof("kernels: %s has no assigned stream, omitting %d handle arguments", node.UniqueName(), len(signature.Handles()))
		}
		return nil
	}
	stream := info.ExecutionStream
	var args []string
	for _, p := range signature.Handles() {
		switch p.Kind {
		case ParamStream:
			if stream.Name == "" {
				exceptions.Panicf("kernels: node %s requires a stream argument, but its assigned stream has no name", node.UniqueName())
			}
			args = append(args, stream.Name)
		default:
			symbol, found := stream.Symbol(p.Kind.BindingKey())
			if !found || symbol == "" {
				exceptions.Panicf("kernels: node %s requires %q, but stream %q has no binding for %q",
					node.UniqueName(), p.String(), stream.Name, p.Kind.BindingKey())
			}
			args = append(args, symbol)
		}
	}
	return args
}
