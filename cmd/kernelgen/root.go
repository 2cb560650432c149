// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"flag"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kernelgen",
		Short: "kernelgen - kernel code generator",
		Long: `Generates the low-level kernels (C for CPUs, CUDA for GPUs) of the nodes of a
computation graph, with their declarations, call sites and dependencies.`,
		SilenceUsage: true,
	}

	// klog flags (-v, -logtostderr, ...) are available to all commands.
	goFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(goFlags)
	cmd.PersistentFlags().AddGoFlagSet(goFlags)

	cmd.AddCommand(newEmitCommand())
	return cmd
}
