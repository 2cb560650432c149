// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gomlx/kernelgen/pkg/async"
	"github.com/gomlx/kernelgen/pkg/core/graph"
	"github.com/gomlx/kernelgen/pkg/kernels"
	"github.com/gomlx/kernelgen/pkg/sink"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

type emitOptions struct {
	device             string
	streams            int
	externResultMemory bool
	parallelism        int
	output             string
	summary            bool
	progress           bool
}

func newEmitCommand() *cobra.Command {
	opts := &emitOptions{}
	cmd := &cobra.Command{
		Use:   "emit <graph.yaml>",
		Short: "Generate the kernels of a graph",
		Long: `Generate the kernels of the graph described in the YAML file, and write them with their
call sites in one source file: kernels.cu for GPU devices, kernels.c otherwise.

Defaults for the configuration are taken from $` + kernels.ConfigEnv + `, the flags override them.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := kernels.LoadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("extern-result-memory") {
				config.ExternResultMemory = opts.externResultMemory
			}
			if cmd.Flags().Changed("parallelism") {
				config.Parallelism = opts.parallelism
			}
			var progressWriter io.Writer
			if opts.progress {
				progressWriter = cmd.ErrOrStderr()
			}
			report, err := emit(cmd.Context(), opts, config, args[0], progressWriter)
			if err != nil {
				return err
			}
			if opts.summary {
				printSummary(cmd.OutOrStdout(), report)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.device, "device", "", "device to generate kernels for (cpu, cuda, rocm, graphcore); "+
		"overrides the device in the graph file")
	cmd.Flags().IntVar(&opts.streams, "streams", 0, "number of execution streams to assign to the nodes (GPU only); "+
		"call sites then take the stream and library handles bound to it")
	cmd.Flags().BoolVar(&opts.externResultMemory, "extern-result-memory", false, "the caller allocates the outputs of Result kernels")
	cmd.Flags().IntVar(&opts.parallelism, "parallelism", 0, "number of kernels generated concurrently: 0 for the number of CPUs, -1 for unlimited")
	cmd.Flags().StringVarP(&opts.output, "output", "o", ".", "output directory, or gs://<bucket>/<prefix>")
	cmd.Flags().BoolVar(&opts.summary, "summary", false, "print a table with the kernel of each node")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "display a progress bar")
	return cmd
}

// emitReport is the outcome of the emit command.
type emitReport struct {
	Graph    *graph.Graph
	Session  *kernels.Session
	Results  []*kernels.Result
	FileName string
	Location string
	Source   string
}

// emit generates the kernels of the graph in graphPath, and writes the source file to the
// output of opts. If progressWriter is not nil, a progress bar is displayed on it.
func emit(ctx context.Context, opts *emitOptions, config kernels.Config, graphPath string, progressWriter io.Writer) (*emitReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	g, err := loadGraph(graphPath, opts.device)
	if err != nil {
		return nil, err
	}
	report := &emitReport{Graph: g, Session: kernels.NewSession(config)}
	klog.V(1).Infof("emitting %d nodes of graph %q for %s, session %s", len(g.Nodes()), g.Name(), g.Device(), report.Session.ID())

	if progressWriter != nil {
		bar := progressbar.NewOptions(len(g.Nodes()),
			progressbar.OptionSetDescription("Emitting kernels"),
			progressbar.OptionSetWriter(progressWriter),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
			progressbar.OptionClearOnFinish(),
		)
		report.Session.OnResult(func(*kernels.Result) { _ = bar.Add(1) })
		defer func() { _ = bar.Finish() }()
	}
	report.Results = report.Session.EmitGraph(g)
	var numErrors int
	var firstErr error
	for _, r := range report.Results {
		if r.Err != nil {
			numErrors++
			klog.Errorf("%v", r.Err)
			if firstErr == nil {
				firstErr = r.Err
			}
		}
	}
	if firstErr != nil {
		return nil, errors.WithMessagef(firstErr, "%d kernels failed, first error", numErrors)
	}

	if opts.streams > 0 {
		if err := assignStreams(report, opts.streams); err != nil {
			return nil, err
		}
	}

	report.FileName = "kernels.c"
	if g.Device().IsGPU() {
		report.FileName = "kernels.cu"
	}
	report.Source = programSource(report)

	out, err := sink.New(opts.output)
	if err != nil {
		return nil, err
	}
	if err := out.Put(ctx, report.FileName, []byte(report.Source)); err != nil {
		return nil, errors.WithMessagef(err, "writing %s", out.Location(report.FileName))
	}
	report.Location = out.Location(report.FileName)
	return report, nil
}

// assignStreams creates numStreams streams on the device of the graph, assigns them round-robin
// to the nodes, and regenerates the call sites of the kernels.
func assignStreams(report *emitReport, numStreams int) error {
	device := report.Graph.Device()
	if !device.IsGPU() {
		klog.Warningf("--streams ignored: device %s has no execution streams", device)
		return nil
	}
	manager := async.NewManager()
	for ii := range numStreams {
		manager.Stream(device, 0, fmt.Sprintf("stream_%d", ii))
	}
	for _, node := range report.Graph.Nodes() {
		node.SetAsyncInfo(&async.ExecutionInfo{ExecutionStream: manager.Next()})
	}
	return report.Session.RefreshCalls(report.Results)
}

// programSource returns the generated source file.
func programSource(report *emitReport) string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "// Generated by kernelgen from graph %q for %s. DO NOT EDIT.\n", report.Graph.Name(), report.Graph.Device())
	var unsupported []*kernels.Result
	for _, r := range report.Results {
		if !r.Supported() {
			unsupported = append(unsupported, r)
		}
	}
	if len(unsupported) > 0 {
		sb.WriteString("//\n// Unsupported nodes:\n")
		for _, r := range unsupported {
			_, _ = fmt.Fprintf(&sb, "//\t- %s (%s)\n", r.Node.UniqueName(), r.Node.OpType())
		}
	}
	sb.WriteString("\n")
	sb.WriteString(kernels.AssembleProgram(kernels.Kernels(report.Results)))
	return sb.String()
}
