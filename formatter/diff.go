package formatter

import (
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	addedStyle   = color.New(color.FgGreen)
	removedStyle = color.New(color.FgRed)
)

// timings match the parts of a proof file that change on every run.
var timings = []*regexp.Regexp{
	regexp.MustCompile(`(?m)^Proofs for (\S+) generated .*$`),
	regexp.MustCompile(`\d+ ms\b`),
	regexp.MustCompile(`\[\d+ms\]`),
	regexp.MustCompile(`Iter Time: \d+ Search Time for this theorem: \d+ Elapsed Time: \d+`),
}

var timingReplacements = []string{
	"Proofs for $1",
	"_ ms",
	"[_ms]",
	"Iter Time: _ Search Time for this theorem: _ Elapsed Time: _",
}

func stableProofText(s string) string {
	for i, re := range timings {
		s = re.ReplaceAllString(s, timingReplacements[i])
	}
	return s
}

// ProofDiff shows the lines of the proof file that changed between two runs,
// ignoring the generation date and timings. It is empty when nothing changed
// or when there is no previous proof.
func ProofDiff(previous, current string) string {
	if previous == "" {
		return ""
	}
	previous, current = stableProofText(previous), stableProofText(current)
	if previous == current {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(previous, current)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var builder strings.Builder
	for _, d := range diffs {
		var style *color.Color
		var prefix string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			style, prefix = addedStyle, "+ "
		case diffmatchpatch.DiffDelete:
			style, prefix = removedStyle, "- "
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			builder.WriteString(style.Sprint(prefix + strings.TrimSuffix(line, "\n")))
			builder.WriteString("\n")
		}
	}
	return builder.String()
}
