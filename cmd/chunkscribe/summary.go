package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/foxseedlab/chunkscribe/internal/pipeline"
	"github.com/foxseedlab/chunkscribe/internal/repository"
	"github.com/foxseedlab/chunkscribe/internal/segment"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	okStyle     = cellStyle.Foreground(lipgloss.Color("2"))
	skipStyle   = cellStyle.Foreground(lipgloss.Color("3"))
	failStyle   = cellStyle.Foreground(lipgloss.Color("1"))
	titleStyle  = lipgloss.NewStyle().Bold(true).MarginTop(1)
)

const statusColumn = 1

func resultStatus(r pipeline.Result) string {
	switch {
	case r.Err != nil:
		return "failed"
	case r.Skipped:
		return "skipped"
	default:
		return "done"
	}
}

func renderSummary(results []pipeline.Result) string {
	rows := make([][]string, 0, len(results))
	failed := 0
	for _, r := range results {
		stream := r.StreamID
		if stream == "" {
			stream = r.Source
		}
		detail := ""
		if r.Err != nil {
			failed++
			detail = pipeline.FailureReason(r.Err)
		}
		rows = append(rows, []string{
			stream,
			resultStatus(r),
			strconv.Itoa(r.ChunkCount),
			fmt.Sprintf("%.1f", float64(r.DurationMs)/60_000),
			detail,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("STREAM", "STATUS", "CHUNKS", "MIN", "REASON").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col != statusColumn || row < 0 || row >= len(rows) {
				return cellStyle
			}
			switch rows[row][statusColumn] {
			case "failed":
				return failStyle
			case "skipped":
				return skipStyle
			default:
				return okStyle
			}
		})

	title := titleStyle.Render(fmt.Sprintf("%d stream(s), %d failed", len(results), failed))
	return lipgloss.JoinVertical(lipgloss.Left, title, t.Render())
}

func renderPlan(durationMs int64, windows []segment.Window) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "START MS", "END MS", "LENGTH MS").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, w := range windows {
		t.Row(
			fmt.Sprintf("%02d", w.Index),
			strconv.FormatInt(w.StartMs, 10),
			strconv.FormatInt(w.EndMs, 10),
			strconv.FormatInt(w.DurationMs(), 10),
		)
	}
	title := titleStyle.Render(fmt.Sprintf("%d chunk(s) for %d ms", len(windows), durationMs))
	return lipgloss.JoinVertical(lipgloss.Left, title, t.Render())
}

func renderStatus(run *repository.Run, segs []repository.TranscriptSegment) string {
	style := okStyle
	switch run.Status {
	case repository.RunStatusFailed:
		style = failStyle
	case repository.RunStatusRunning:
		style = skipStyle
	}

	lines := []string{
		titleStyle.Render(fmt.Sprintf("%s run %s", run.StreamID, run.ID)),
		"status:   " + style.Render(string(run.Status)),
		fmt.Sprintf("provider: %s (%s)", run.Provider, run.Model),
		"started:  " + run.StartedAt.Format(time.RFC3339),
	}
	if run.EndedAt != nil {
		lines = append(lines, "ended:    "+run.EndedAt.Format(time.RFC3339))
	}
	if run.Status == repository.RunStatusFailed {
		lines = append(lines,
			fmt.Sprintf("reason:   %s", run.FailureReason),
			fmt.Sprintf("error:    %s", run.ErrorMessage),
			fmt.Sprintf("last ok:  chunk %d", run.LastChunkIndex),
		)
	}
	if len(segs) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "START MS", "END MS", "CHARS").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, seg := range segs {
		t.Row(
			fmt.Sprintf("%02d", seg.ChunkIndex),
			strconv.FormatInt(seg.StartMs, 10),
			strconv.FormatInt(seg.EndMs, 10),
			strconv.Itoa(len(seg.Content)),
		)
	}
	lines = append(lines, t.Render())
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
