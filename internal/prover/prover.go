package prover

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gnolang/vcprove/internal/mathexp"
	"github.com/gnolang/vcprove/internal/types"
)

const (
	DefaultTimeout = 5 * time.Second
	DefaultTries   = -1
)

// Config holds the knobs of a proof run.
type Config struct {
	// Timeout is the budget of a single obligation.
	Timeout time.Duration
	// Tries is the number of unproved obligations after which the rest are
	// skipped. A negative value never skips.
	Tries int
	// Jobs is the number of obligations proved at once.
	Jobs int

	AllowNewSymbols        bool
	ShowResultsIfNotProved bool
	PrintVCEachStep        bool
}

func DefaultConfig() Config {
	return Config{
		Timeout:                DefaultTimeout,
		Tries:                  DefaultTries,
		Jobs:                   1,
		ShowResultsIfNotProved: true,
	}
}

// TheoremSource answers the symbol queries the prover needs.
type TheoremSource interface {
	// Theorems returns every theorem visible from module. On failure it may
	// return partial results together with the joined errors.
	Theorems(module string, imports types.ImportStrategy, facilities types.FacilityStrategy) ([]types.TheoremSymbol, error)
	LookupMathSymbol(module, name string) (types.MathSymbol, bool)
}

// IntegerSorts reports whether both integer base sorts, Z and N, are visible
// from module. Strict integer comparisons are only rewritten when they are.
func IntegerSorts(source TheoremSource, module string) bool {
	_, hasZ := source.LookupMathSymbol(module, string(mathexp.TypeInteger))
	_, hasN := source.LookupMathSymbol(module, string(mathexp.TypeNatural))
	return hasZ && hasN
}

type Option func(*Prover)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Prover) {
		p.logger = logger
	}
}

func WithListener(l Listener) Option {
	return func(p *Prover) {
		p.listener = l
	}
}

func WithCanceller(c *Canceller) Option {
	return func(p *Prover) {
		p.canceller = c
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Prover) {
		p.metrics = m
	}
}

// Prover runs the congruence closure proof search over the obligations of
// one module.
type Prover struct {
	module string
	cfg    Config
	norm   mathexp.Normalizer

	logger    *zap.Logger
	listener  Listener
	canceller *Canceller
	metrics   *Metrics

	obligations   []*Obligation
	rules         []*Theorem
	nonQuantified map[string]bool

	created time.Time
}

// New builds the obligations for vcs and derives the rewrite rules from the
// theorems source makes visible from module.
func New(module string, vcs []types.VC, source TheoremSource, cfg Config, opts ...Option) (*Prover, error) {
	p := &Prover{
		module:        module,
		cfg:           cfg,
		logger:        zap.NewNop(),
		listener:      nopListener{},
		nonQuantified: make(map[string]bool),
		created:       time.Now(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = NewMetrics(nil)
	}
	if p.cfg.Timeout <= 0 {
		p.cfg.Timeout = DefaultTimeout
	}
	if p.cfg.Jobs < 1 {
		p.cfg.Jobs = 1
	}

	if IntegerSorts(source, module) {
		p.norm.IntegerSorts = true
	} else {
		p.logger.Info("could not find some fundamental base sorts/classifications used by the prover: N and/or Z",
			zap.String("module", module))
	}

	seen := make(map[int]bool, len(vcs))
	for _, vc := range vcs {
		if seen[vc.ID] {
			return nil, fmt.Errorf("vc %d: %w", vc.ID, types.ErrDuplicateSymbol)
		}
		seen[vc.ID] = true
		p.obligations = append(p.obligations, NewObligation(vc, p.norm))
	}

	theorems, err := source.Theorems(module, types.ImportRecursive, types.FacilityIgnore)
	if err != nil {
		p.logger.Debug("skipping theorems that could not be resolved",
			zap.String("module", module), zap.Error(err))
	}
	for _, th := range theorems {
		p.addTheorem(th)
	}

	p.logger.Debug("prover ready",
		zap.String("module", module),
		zap.Int("obligations", len(p.obligations)),
		zap.Int("theorems", len(theorems)),
		zap.Int("rules", len(p.rules)))
	return p, nil
}

func (p *Prover) addTheorem(th types.TheoremSymbol) {
	assertion := p.norm.Normalize(th.Assertion)
	quantified := len(mathexp.QuantifiedVariables(assertion)) > 0

	switch {
	case mathexp.Operator(assertion) == mathexp.OpEq && quantified:
		p.addEqualityTheorem(true, assertion, th.Name+"_left")
		p.addEqualityTheorem(false, assertion, th.Name+"_right")
	case mathexp.Operator(assertion) == mathexp.OpImplies && quantified:
		p.addGoalSearchingTheorem(assertion.(mathexp.Apply), th.Name)
		ant, cons := mathexp.Sides(assertion)
		p.addRule(newTheorem(th.Name, assertion, ant, cons, cons, true, p.cfg.AllowNewSymbols, false))
	default:
		// without quantifiers the rule fires unconditionally, so the whole
		// assertion is inserted
		p.addRule(newTheorem(th.Name, assertion, assertion, assertion, assertion, false, p.cfg.AllowNewSymbols, false))
	}

	quants := make(map[string]bool)
	for _, v := range mathexp.QuantifiedVariables(assertion) {
		quants[v.Name] = true
	}
	for _, name := range mathexp.SymbolNames(assertion) {
		if !quants[name] && !excludedSymbols[name] {
			p.nonQuantified[name] = true
		}
	}
}

func (p *Prover) addEqualityTheorem(matchLeft bool, theorem mathexp.Exp, name string) {
	lhs, rhs := mathexp.Sides(theorem)
	if !matchLeft {
		lhs, rhs = rhs, lhs
	}
	if !mathexp.IsApply(lhs) {
		return
	}
	t := newTheorem(name, theorem, lhs, rhs, theorem, false, p.cfg.AllowNewSymbols, true)
	t.smallEnd = len(mathexp.SymbolNames(lhs)) < len(mathexp.SymbolNames(rhs))
	p.addRule(t)
}

// addGoalSearchingTheorem turns implies(P, Q) into a rule that finds a goal
// _g equal to Q and inserts (P or _g) = _g, so that proving P meets the goal.
func (p *Prover) addGoalSearchingTheorem(theorem mathexp.Apply, name string) {
	ant, cons := mathexp.Sides(theorem)
	goal := mathexp.Var(goalVar, mathexp.TypeBoolean)

	match := mathexp.Eq(cons, goal)
	insert := mathexp.Eq(mathexp.Or(ant, goal), goal)
	p.addRule(newTheorem(name+"_goalSearch", theorem, match, insert, insert, true, p.cfg.AllowNewSymbols, false))
}

func (p *Prover) addRule(t *Theorem) {
	p.rules = append(p.rules, t)
}

// Rules returns the rewrite rules in the order they were derived.
func (p *Prover) Rules() []*Theorem {
	return append([]*Theorem(nil), p.rules...)
}

// NonQuantifiedSymbols lists the constant symbols the theorems mention.
func (p *Prover) NonQuantifiedSymbols() []string {
	out := make([]string, 0, len(p.nonQuantified))
	for name := range p.nonQuantified {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (p *Prover) Obligations() []*Obligation {
	return append([]*Obligation(nil), p.obligations...)
}

func (p *Prover) Metrics() *Metrics {
	return p.metrics
}

func (p *Prover) Module() string {
	return p.module
}

// Start proves every obligation and returns one result per VC, in input
// order. With more than one job, obligations run concurrently; the try
// budget is then shared on a first come basis.
func (p *Prover) Start(ctx context.Context) ([]types.Result, error) {
	p.metrics.Reset()
	results := make([]types.Result, len(p.obligations))
	total := len(p.obligations)

	var unproved atomic.Int64
	run := func(i int) {
		ob := p.obligations[i]
		p.listener.ObligationStarted(ob.ID(), total)
		var res types.Result
		if p.cfg.Tries >= 0 && unproved.Load() >= int64(p.cfg.Tries) {
			res = skippedResult(ob)
		} else {
			res = p.prove(ctx, ob)
			if !res.Status.Terminal() {
				unproved.Add(1)
			}
		}
		p.metrics.finished(res.Status, res.Skipped, res.Duration)
		results[i] = res
		p.listener.ObligationFinished(res, total)
	}

	if p.cfg.Jobs == 1 {
		for i := range p.obligations {
			run(i)
		}
	} else {
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.Jobs)
		for i := range p.obligations {
			i := i
			g.Go(func() error {
				run(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return results, err
		}
	}

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("proof run of %s interrupted: %w", p.module, err)
	}
	return results, nil
}

func skippedResult(ob *Obligation) types.Result {
	vc := ob.VC()
	return types.Result{
		ID:          vc.ID,
		Explanation: vc.Explanation,
		Location:    vc.Location,
		Status:      types.StillEvaluating,
		Skipped:     true,
	}
}

func (p *Prover) running(ctx context.Context, deadline time.Time) bool {
	return ctx.Err() == nil && p.canceller.Running() && !time.Now().After(deadline)
}

// prove runs the proof loop of one obligation until it is decided, its
// budget runs out or no rule adds anything to its model.
func (p *Prover) prove(ctx context.Context, ob *Obligation) types.Result {
	start := time.Now()
	deadline := start.Add(p.cfg.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	rules := append([]*Theorem(nil), p.rules...)
	defer func() {
		for _, t := range p.rules {
			t.forget(ob.ID())
		}
	}()

	log := p.logger.With(zap.Int("vc", ob.ID()))
	applied := make(map[string]int)
	div := divLine(vcName(ob.ID()))

	var trace strings.Builder
	trace.WriteString(div)
	fmt.Fprintf(&trace, "Before application of theorems: %s\n", ob)

	steps, iteration := 0, 0
	status := ob.Status()
	for status == types.StillEvaluating && p.running(ctx, deadline) {
		roundStart := time.Now()
		queue := newPrioritizer(rules, applied, ob, p.nonQuantified)
		chosen := 0

		for queue.Len() > 0 && status == types.StillEvaluating &&
			(chosen < 1 || queue.peekScore() <= 1) {
			if !p.running(ctx, deadline) {
				break
			}
			selected := time.Now()
			ranked := queue.pop()
			cur := ranked.theorem
			applied[cur.name]++

			cur.ApplyTo(ob, deadline)
			cand := cur.Next(ob)
			if cand == nil {
				fmt.Fprintf(&trace, "Could not find any matches for %s[%dms]\n\n",
					cur.name, time.Since(selected).Milliseconds())
				p.metrics.backtracked()
				continue
			}
			if cur.noQuants {
				rules = without(rules, cur)
			}

			var change string
			for cand != nil {
				p.metrics.proofConsidered()
				if change = ob.Model().AddExpression(cand.Exp); change != "" {
					break
				}
				if !p.running(ctx, deadline) {
					break
				}
				cand = cur.Next(ob)
			}
			if change == "" {
				fmt.Fprintf(&trace, "Emptied queue for %s with no new results [%dms]\n\n",
					cur.name, time.Since(selected).Milliseconds())
				p.metrics.backtracked()
				continue
			}

			now := time.Now()
			fmt.Fprintf(&trace,
				"Iter:%d.%d Iter Time: %d Search Time for this theorem: %d Elapsed Time: %d\n[%d]%s\n%s\t%s\n\n",
				iteration, chosen,
				now.Sub(roundStart).Milliseconds(),
				now.Sub(selected).Milliseconds(),
				now.Sub(start).Milliseconds(),
				ranked.score, cur.name, cand, change)
			if p.cfg.PrintVCEachStep {
				trace.WriteString(ob.Model().String())
				trace.WriteString("\n\n")
			}
			log.Debug("applied theorem",
				zap.String("theorem", cur.name),
				zap.Stringer("fact", cand.Exp))
			p.listener.StepApplied(ob.ID(), cur.name, cand.Exp.String())

			steps++
			chosen++
			status = ob.Status()
		}
		iteration++

		if chosen == 0 {
			log.Debug("out of theorems")
			break
		}
	}

	if status == types.StillEvaluating && p.cfg.ShowResultsIfNotProved {
		fmt.Fprintf(&trace, "Final model:\n%s\n", ob.Model())
	}
	trace.WriteString(div)

	vc := ob.VC()
	res := types.Result{
		ID:          vc.ID,
		Explanation: vc.Explanation,
		Location:    vc.Location,
		Status:      status,
		Steps:       steps,
		Duration:    time.Since(start),
		Trace:       trace.String(),
	}
	log.Debug("obligation finished",
		zap.Stringer("status", status),
		zap.Int("steps", steps),
		zap.Duration("elapsed", res.Duration))
	return res
}

func without(rules []*Theorem, t *Theorem) []*Theorem {
	out := rules[:0:0]
	for _, r := range rules {
		if r != t {
			out = append(out, r)
		}
	}
	return out
}
