package prove

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/gnolang/vcprove/internal/types"
)

// ProgressListener draws a progress bar over the obligations of each module.
type ProgressListener struct {
	mu     sync.Mutex
	w      io.Writer
	bar    *progressbar.ProgressBar
	proved int
}

func NewProgressListener(w io.Writer) *ProgressListener {
	return &ProgressListener{w: w}
}

func (l *ProgressListener) ObligationStarted(id, total int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.bar == nil || l.bar.IsFinished() {
		l.proved = 0
		l.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(l.w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}
	l.bar.Describe(fmt.Sprintf("VC %d", id))
}

func (l *ProgressListener) StepApplied(id int, theorem, _ string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.bar != nil {
		l.bar.Describe(fmt.Sprintf("VC %d %s", id, theorem))
	}
}

func (l *ProgressListener) ObligationFinished(res types.Result, _ int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if res.Status.Terminal() {
		l.proved++
	}
	if l.bar != nil {
		l.bar.Describe(fmt.Sprintf("%d proved", l.proved))
		_ = l.bar.Add(1)
	}
}

// Proved counts the decided obligations of the current module.
func (l *ProgressListener) Proved() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.proved
}
