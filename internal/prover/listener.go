package prover

import (
	"sync/atomic"

	"github.com/gnolang/vcprove/internal/types"
)

// Listener receives progress events from a proof run. With more than one
// job the methods are called from several goroutines.
type Listener interface {
	ObligationStarted(id, total int)
	StepApplied(id int, theorem, fact string)
	ObligationFinished(res types.Result, total int)
}

type nopListener struct{}

func (nopListener) ObligationStarted(int, int)           {}
func (nopListener) StepApplied(int, string, string)      {}
func (nopListener) ObligationFinished(types.Result, int) {}

// Canceller lets a controller stop a running prover. A nil Canceller never
// cancels.
type Canceller struct {
	stopped atomic.Bool
}

func NewCanceller() *Canceller {
	return &Canceller{}
}

func (c *Canceller) Cancel() {
	c.stopped.Store(true)
}

// Running reports whether work should continue.
func (c *Canceller) Running() bool {
	return c == nil || !c.stopped.Load()
}
