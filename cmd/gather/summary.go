package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gather/pkg/types"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

var (
	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	warnStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFB86C"))
	failStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F87"))
)

// renderSummary prints one row per file that was moved, planned, skipped or
// failed, followed by a one-line total.
func renderSummary(w io.Writer, report *types.Report, colorize bool) {
	results := report.Results()
	if len(results) > 0 {
		rows := make([][]string, 0, len(results))
		for _, res := range results {
			rows = append(rows, resultRow(res))
		}
		fmt.Fprintln(w, renderTable(
			[]string{"Status", "Source", "Destination", "Detail"},
			rows,
		))
	}

	line := totalLine(report)
	if colorize {
		line = totalStyle(report).Render(line)
	}
	fmt.Fprintln(w, line)
}

func resultRow(res types.MoveResult) []string {
	dest := res.Destination
	detail := ""
	switch res.Status {
	case types.StatusMoved, types.StatusPlanned:
		detail = humanize.Bytes(uint64(res.Size))
	case types.StatusSkipped:
		detail = res.Detail
	case types.StatusFailed:
		if res.Error != nil {
			detail = res.Error.Error()
		}
	}
	if dest != "" {
		dest = filepath.Base(dest)
	}
	return []string{string(res.Status), res.Source, dest, detail}
}

func totalLine(report *types.Report) string {
	verb := "moved"
	count := report.Moved()
	if report.DryRun {
		verb = "would move"
		count = report.Planned()
	}
	return fmt.Sprintf("%s %d %s (%s) into %s, skipped %d, failed %d, directories %d",
		verb, count, plural(count, "file"), humanize.Bytes(uint64(report.BytesMoved())),
		report.Target, report.Skipped(), report.Failed(), len(report.Directories))
}

func totalStyle(report *types.Report) lipgloss.Style {
	switch {
	case report.Failed() > 0 || report.Err() != nil:
		return failStyle
	case report.Skipped() > 0:
		return warnStyle
	default:
		return okStyle
	}
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func renderTable(headers []string, rows [][]string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
