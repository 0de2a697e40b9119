package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/reelgen/reelgen/internal/spin"
	"github.com/reelgen/reelgen/internal/store"
)

var (
	cellStyle      = lipgloss.NewStyle().Width(3).Align(lipgloss.Right)
	highlightStyle = cellStyle.Foreground(lipgloss.Color("#101F38")).Background(lipgloss.Color("#8BC34A")).Bold(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#2196F3"))
	resultStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true)
	mutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9AA5B1"))
	frameStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#2a3850")).Padding(0, 1)
)

// renderGrid draws the visible window with the highlighted column marked.
func renderGrid(snap spin.Snapshot) string {
	lines := make([]string, len(snap.Rows))
	for r, row := range snap.Rows {
		cells := make([]string, len(row))
		for c, v := range row {
			style := cellStyle
			if c == snap.HighlightIndex {
				style = highlightStyle
			}
			cells[c] = style.Render(fmt.Sprint(v))
		}
		lines[r] = lipgloss.JoinHorizontal(lipgloss.Top, cells...)
	}
	return frameStyle.Render(strings.Join(lines, "\n"))
}

// renderStatus is the line under the grid: status, progress and nonce.
func renderStatus(snap spin.Snapshot) string {
	progress := fmt.Sprintf("%d/%d", snap.Generated, snap.Requested)
	return statusStyle.Render(snap.Status) + "  " +
		mutedStyle.Render(fmt.Sprintf("progress %s  nonce %d", progress, snap.Nonce))
}

func renderResult(r spin.Result) string {
	return resultStyle.Render(r.String())
}

// renderSessions is a plain aligned table; lipgloss only pads the columns.
func renderSessions(list *store.SessionsList) string {
	header := []string{"ID", "STATUS", "NONCE", "RESULTS", "CREATED"}
	rows := [][]string{header}
	for _, s := range list.Sessions {
		rows = append(rows, []string{
			s.ID,
			s.Status,
			fmt.Sprint(s.StartNonce),
			fmt.Sprint(s.ResultCount),
			s.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		})
	}

	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = lipgloss.NewStyle().Width(widths[j] + 2).Render(cell)
		}
		line := strings.TrimRight(lipgloss.JoinHorizontal(lipgloss.Top, cells...), " ")
		if i == 0 {
			line = mutedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "page %d of %d, %d sessions\n", list.Page, list.TotalPages, list.TotalCount)
	return b.String()
}
