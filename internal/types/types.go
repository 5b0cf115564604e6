package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gnolang/vcprove/internal/mathexp"
)

// Location points at the program text a VC was generated from.
type Location struct {
	File   string `json:"file" yaml:"file"`
	Line   int    `json:"line" yaml:"line"`
	Column int    `json:"column" yaml:"column"`
}

func (l Location) String() string {
	if l.File == "" {
		return "?"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Sequent is a list of assumed formulas implying a list of goal formulas.
type Sequent struct {
	Left  []mathexp.Exp
	Right []mathexp.Exp
}

func (s Sequent) String() string {
	return join(s.Left) + " ==> " + join(s.Right)
}

func join(exps []mathexp.Exp) string {
	parts := make([]string, len(exps))
	for i, e := range exps {
		parts[i] = e.String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// VC is one verification condition. It is never modified once built.
type VC struct {
	ID          int
	Explanation string
	Location    Location
	Sequent     Sequent
}

// TheoremSymbol is a named global theorem.
type TheoremSymbol struct {
	Name      string
	Module    string
	Assertion mathexp.Exp
}

// MathSymbol is a declared mathematical symbol and its classification.
type MathSymbol struct {
	Name   string
	Module string
	Type   mathexp.Type
}

// ImportStrategy selects which modules a symbol query searches.
type ImportStrategy int

const (
	// ImportNone searches the module itself only.
	ImportNone ImportStrategy = iota
	// ImportNamed adds the modules the module imports directly.
	ImportNamed
	// ImportRecursive follows imports transitively.
	ImportRecursive
)

// FacilityStrategy selects whether facility instantiations are searched.
type FacilityStrategy int

const (
	FacilityIgnore FacilityStrategy = iota
	FacilityInstantiate
)

var (
	ErrNoSuchModule     = errors.New("no such module")
	ErrUnknownSymbol    = errors.New("unknown symbol")
	ErrDuplicateSymbol  = errors.New("duplicate symbol")
	ErrUnexpectedSymbol = errors.New("unexpected symbol")
)

// Status is the outcome of a proof attempt.
type Status int

const (
	StillEvaluating Status = iota
	Proved
	FalseAssumption
)

func (s Status) String() string {
	switch s {
	case StillEvaluating:
		return "STILL_EVALUATING"
	case Proved:
		return "PROVED"
	case FalseAssumption:
		return "FALSE_ASSUMPTION"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further work can change the status.
func (s Status) Terminal() bool {
	return s == Proved || s == FalseAssumption
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "STILL_EVALUATING":
		*s = StillEvaluating
	case "PROVED":
		*s = Proved
	case "FALSE_ASSUMPTION":
		*s = FalseAssumption
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Result is the per-VC outcome reported to callers.
type Result struct {
	ID          int           `json:"id"`
	Explanation string        `json:"explanation"`
	Location    Location      `json:"location"`
	Status      Status        `json:"status"`
	Skipped     bool          `json:"skipped,omitempty"`
	Cached      bool          `json:"cached,omitempty"`
	Steps       int           `json:"steps"`
	Duration    time.Duration `json:"duration"`
	// Trace is the textual proof record written to the .proof file.
	Trace string `json:"trace,omitempty"`
}
