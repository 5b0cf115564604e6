package prover

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gnolang/vcprove/internal/types"
)

const lineWidth = 80

// divLine renders label centred in a banner of '=' characters.
func divLine(label string) string {
	if len(label) > lineWidth-2 {
		label = label[:lineWidth-3]
	}
	label = " " + label + " "
	div := []byte(strings.Repeat("=", lineWidth))
	copy(div[lineWidth/2-len(label)/2:], label)
	return string(div) + "\n"
}

func vcName(id int) string {
	return strconv.Itoa(id)
}

// StatusText is the phrase a summary line uses for res.
func StatusText(res types.Result) string {
	switch {
	case res.Skipped:
		return "skipped"
	case res.Status == types.Proved:
		return "Proved"
	case res.Status == types.FalseAssumption:
		return "Proved (Assumption(s) false)"
	default:
		return "Out of theorems, or timed out"
	}
}

// Summary lists the outcome of every result followed by the time elapsed
// since the prover was built.
func (p *Prover) Summary(results []types.Result) string {
	var sb strings.Builder
	for _, res := range results {
		if res.Skipped {
			fmt.Fprintf(&sb, "%s skipped\n", vcName(res.ID))
			continue
		}
		fmt.Fprintf(&sb, "%s %s time: %d ms\n", vcName(res.ID), StatusText(res), res.Duration.Milliseconds())
	}
	fmt.Fprintf(&sb, "Elapsed time from construction: %d ms\n", time.Since(p.created).Milliseconds())

	div := divLine("Summary")
	return div + sb.String() + div
}

// Report is the body of a proof file: every trace, then the summary.
func (p *Prover) Report(results []types.Result) string {
	var sb strings.Builder
	for _, res := range results {
		sb.WriteString(res.Trace)
	}
	sb.WriteString(p.Summary(results))
	return sb.String()
}
