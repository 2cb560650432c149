// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// kernelgen generates the kernels of a computation graph described in a YAML file.
//
// Usage:
//
//	kernelgen emit [flags] <graph.yaml>
//
// It writes one source file (kernels.cu for GPUs, kernels.c otherwise) with the dependencies and
// definitions of all the kernels, followed by their call sites in graph order.
package main

import (
	"os"

	_ "github.com/gomlx/kernelgen/pkg/kernels/builtin"
	"k8s.io/klog/v2"
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		klog.Errorf("kernelgen: %+v", err)
		klog.Flush()
		os.Exit(1)
	}
	klog.Flush()
}
