package internal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gnolang/vcprove/internal/prover"
	"github.com/gnolang/vcprove/internal/types"
)

// EngineConfig collects what an Engine needs besides its logger.
type EngineConfig struct {
	Prover  prover.Config
	Imports ImportConfig
	// CacheDir enables the proof cache when set.
	CacheDir string
	// NoProofFile disables writing .proof files.
	NoProofFile bool
}

// Engine proves VC modules file by file.
type Engine struct {
	logger    *zap.Logger
	cfg       EngineConfig
	table     *SymbolTable
	cache     *Cache
	metrics   *prover.Metrics
	listener  prover.Listener
	canceller *prover.Canceller
	runID     string
	now       func() time.Time

	watcher    *fsnotify.Watcher
	isWatching atomic.Bool
}

type EngineOption func(*Engine)

func WithListener(l prover.Listener) EngineOption {
	return func(e *Engine) {
		e.listener = l
	}
}

func WithMetrics(m *prover.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates a proof engine. A nil logger discards all logs.
func NewEngine(logger *zap.Logger, cfg EngineConfig, opts ...EngineOption) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		logger:    logger,
		cfg:       cfg,
		table:     NewSymbolTable(cfg.Imports),
		canceller: prover.NewCanceller(),
		runID:     uuid.NewString(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = prover.NewMetrics(nil)
	}

	if cfg.CacheDir != "" {
		cache, err := OpenCache(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		e.cache = cache
	}

	e.logger = e.logger.With(zap.String("run", e.runID))
	return e, nil
}

func (e *Engine) RunID() string {
	return e.runID
}

func (e *Engine) Table() *SymbolTable {
	return e.table
}

func (e *Engine) Metrics() *prover.Metrics {
	return e.metrics
}

// Cancel stops the obligations that are being proved.
func (e *Engine) Cancel() {
	e.canceller.Cancel()
}

// Close releases the cache and stops watching.
func (e *Engine) Close() error {
	var errs []error
	if e.isWatching.Load() {
		errs = append(errs, e.StopWatching())
	}
	if e.cache != nil {
		errs = append(errs, e.cache.Close())
	}
	return errors.Join(errs...)
}

// Report is the outcome of proving one module file.
type Report struct {
	RunID     string         `json:"run_id"`
	File      string         `json:"file"`
	Module    string         `json:"module"`
	ProofFile string         `json:"proof_file,omitempty"`
	Results   []types.Result `json:"results"`
	// Proof is the full proof file text; Previous is what the proof file
	// held before this run.
	Proof    string `json:"-"`
	Previous string `json:"-"`
	Summary  string `json:"-"`
}

// Failed reports whether some VC was left undecided.
func (r *Report) Failed() bool {
	for _, res := range r.Results {
		if !res.Status.Terminal() {
			return true
		}
	}
	return false
}

// Run loads the module in filename, proves its VCs and writes the proof file.
func (e *Engine) Run(ctx context.Context, filename string) (*Report, error) {
	module, err := LoadModule(e.table, filename)
	if err != nil {
		return nil, fmt.Errorf("error loading module: %w", err)
	}
	log := e.logger.With(zap.String("module", module.Name), zap.String("file", filename))

	theorems, err := e.table.Theorems(module.Name, types.ImportRecursive, types.FacilityIgnore)
	if err != nil {
		log.Debug("theorem lookup reported problems", zap.Error(err))
	}
	fingerprint := TheoremFingerprint(theorems)
	symbols := SymbolFingerprint(e.table.Symbols(module.Name), prover.IntegerSorts(e.table, module.Name))

	results := make([]types.Result, len(module.VCs))
	keys := make([]string, len(module.VCs))
	var pending []types.VC
	var pendingIdx []int
	for i, vc := range module.VCs {
		keys[i] = CacheKey(module.Name, vc, fingerprint, symbols, e.cfg.Prover)
		if e.cache != nil {
			if res, ok := e.cache.Get(keys[i]); ok && res.Status.Terminal() {
				res.Cached = true
				results[i] = res
				continue
			}
		}
		pending = append(pending, vc)
		pendingIdx = append(pendingIdx, i)
	}
	log.Debug("proving module",
		zap.Int("vcs", len(module.VCs)),
		zap.Int("cached", len(module.VCs)-len(pending)))

	opts := []prover.Option{
		prover.WithLogger(log),
		prover.WithCanceller(e.canceller),
		prover.WithMetrics(e.metrics),
	}
	if e.listener != nil {
		opts = append(opts, prover.WithListener(e.listener))
	}
	p, err := prover.New(module.Name, pending, e.table, e.cfg.Prover, opts...)
	if err != nil {
		return nil, fmt.Errorf("error preparing prover: %w", err)
	}

	proved, runErr := p.Start(ctx)
	for j, res := range proved {
		i := pendingIdx[j]
		results[i] = res
		if e.cache != nil {
			if err := e.cache.Set(keys[i], res); err != nil {
				log.Warn("failed to cache result", zap.Int("vc", res.ID), zap.Error(err))
			}
		}
	}

	now, body := e.now(), p.Report(results)
	report := &Report{
		RunID:   e.runID,
		File:    filename,
		Module:  module.Name,
		Results: results,
		Summary: p.Summary(results),
	}
	report.Proof = prover.ProofFileContent(module.Name, now, body)

	if !e.cfg.NoProofFile {
		report.ProofFile = prover.ProofFilePath(filename)
		if prev, err := os.ReadFile(report.ProofFile); err == nil {
			report.Previous = string(prev)
		}
		if err := prover.WriteProofFile(report.ProofFile, module.Name, now, body); err != nil {
			return report, err
		}
	}

	if runErr != nil {
		return report, runErr
	}
	return report, nil
}
