package formatter

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/gnolang/vcprove/internal"
	"github.com/gnolang/vcprove/internal/prover"
	"github.com/gnolang/vcprove/internal/types"
)

var (
	provedStyle  = color.New(color.FgGreen, color.Bold)
	vacuousStyle = color.New(color.FgHiYellow, color.Bold)
	failedStyle  = color.New(color.FgRed, color.Bold)
	skippedStyle = color.New(color.FgWhite)
	fileStyle    = color.New(color.FgCyan, color.Bold)
	lineStyle    = color.New(color.FgHiBlue, color.Bold)
	noteStyle    = color.New(color.FgWhite)
)

// FormatReport renders one line per VC of report under a file header.
func FormatReport(report *internal.Report) string {
	var builder strings.Builder

	builder.WriteString(fileStyle.Sprint("--> "))
	builder.WriteString(fileStyle.Sprintf("%s (%s)", report.File, report.Module))
	builder.WriteString("\n")

	for _, res := range report.Results {
		builder.WriteString("  ")
		builder.WriteString(statusStyle(res).Sprintf("%-30s", prover.StatusText(res)))
		builder.WriteString(lineStyle.Sprintf(" VC %d", res.ID))
		if !res.Skipped {
			builder.WriteString(noteStyle.Sprintf(" [%d ms, %d steps", res.Duration.Milliseconds(), res.Steps))
			if res.Cached {
				builder.WriteString(noteStyle.Sprint(", cached"))
			}
			builder.WriteString(noteStyle.Sprint("]"))
		}
		if res.Explanation != "" {
			builder.WriteString(" " + res.Explanation)
		}
		builder.WriteString(lineStyle.Sprintf(" %s", res.Location))
		builder.WriteString("\n")
	}
	return builder.String()
}

func statusStyle(res types.Result) *color.Color {
	switch {
	case res.Skipped:
		return skippedStyle
	case res.Status == types.Proved:
		return provedStyle
	case res.Status == types.FalseAssumption:
		return vacuousStyle
	default:
		return failedStyle
	}
}

// Totals counts the outcomes of every VC in reports.
type Totals struct {
	Proved  int
	Vacuous int
	Failed  int
	Skipped int
	Cached  int
}

func CountResults(reports []*internal.Report) Totals {
	var t Totals
	for _, report := range reports {
		for _, res := range report.Results {
			if res.Cached {
				t.Cached++
			}
			switch {
			case res.Skipped:
				t.Skipped++
			case res.Status == types.Proved:
				t.Proved++
			case res.Status == types.FalseAssumption:
				t.Vacuous++
			default:
				t.Failed++
			}
		}
	}
	return t
}

func (t Totals) Total() int {
	return t.Proved + t.Vacuous + t.Failed + t.Skipped
}

func FormatTotals(t Totals) string {
	var parts []string
	parts = append(parts, provedStyle.Sprintf("%d proved", t.Proved))
	if t.Vacuous > 0 {
		parts = append(parts, vacuousStyle.Sprintf("%d with false assumptions", t.Vacuous))
	}
	if t.Failed > 0 {
		parts = append(parts, failedStyle.Sprintf("%d not proved", t.Failed))
	}
	if t.Skipped > 0 {
		parts = append(parts, skippedStyle.Sprintf("%d skipped", t.Skipped))
	}
	line := fmt.Sprintf("%s of %d VCs", strings.Join(parts, ", "), t.Total())
	if t.Cached > 0 {
		line += noteStyle.Sprintf(" (%d from cache)", t.Cached)
	}
	return line + "\n"
}
