// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
	redRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).
			Bold(true).
			PaddingLeft(1).PaddingRight(1)
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 0, 1, 0)
)

// tableWithReds is a table where some rows (unsupported nodes) are highlighted in red.
type tableWithReds struct {
	Table *lgtable.Table
	Count int
	Reds  map[int]bool
}

func (t *tableWithReds) Row(isRed bool, row ...string) {
	if isRed {
		t.Reds[t.Count] = true
	}
	t.Table.Row(row...)
	t.Count++
}

func newTableWithReds(alignments ...lipgloss.Position) *tableWithReds {
	t := &tableWithReds{
		Reds: make(map[int]bool),
	}
	t.Table = lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if row < 0 {
				s = headerRowStyle
				return
			}
			switch {
			case t.Reds[row]:
				s = redRowStyle
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			}
			s = s.Align(alignment)
			return
		})
	return t
}

// printSummary writes a table with the kernel generated for each node, and totals.
func printSummary(w io.Writer, report *emitReport) {
	table := newTableWithReds(lipgloss.Left, lipgloss.Left, lipgloss.Left, lipgloss.Right)
	table.Table.Headers("Node", "Op", "Kernel", "Source")
	var numUnsupported int
	for _, r := range report.Results {
		if !r.Supported() {
			numUnsupported++
			table.Row(true, r.Node.UniqueName(), r.Node.OpType(), "unsupported", "-")
			continue
		}
		size := len(r.Kernel.Source())
		table.Row(false, r.Node.UniqueName(), r.Node.OpType(), r.Kernel.KernelName(), humanize.Bytes(uint64(size)))
	}
	_, _ = fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("Graph %q on %s", report.Graph.Name(), report.Graph.Device())))
	_, _ = fmt.Fprintln(w, table.Table.Render())
	_, _ = fmt.Fprintf(w, "%s nodes, %s kernels generated, %s unsupported\n",
		humanize.Comma(int64(len(report.Results))),
		humanize.Comma(int64(report.Session.Cache().Len())),
		humanize.Comma(int64(numUnsupported)))
	_, _ = fmt.Fprintf(w, "Wrote %s (%s)\n", report.Location, humanize.Bytes(uint64(len(report.Source))))
}
