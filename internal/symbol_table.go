package internal

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/gnolang/vcprove/internal/types"
)

// ImportConfig lists the modules every module sees without importing them.
type ImportConfig struct {
	DefaultImports []string
}

// Module is one loaded VC module.
type Module struct {
	Name     string
	Path     string
	Imports  []string
	Symbols  map[string]types.MathSymbol
	Theorems []types.TheoremSymbol
	VCs      []types.VC
}

// SymbolTable holds every loaded module and answers the symbol queries of
// the prover. It is safe for concurrent use.
type SymbolTable struct {
	modules map[string]*Module
	imports ImportConfig
	mutex   sync.RWMutex
}

func NewSymbolTable(cfg ImportConfig) *SymbolTable {
	return &SymbolTable{
		modules: make(map[string]*Module),
		imports: ImportConfig{DefaultImports: append([]string(nil), cfg.DefaultImports...)},
	}
}

// Put registers m, replacing any module of the same name.
func (st *SymbolTable) Put(m *Module) {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	st.modules[m.Name] = m
}

func (st *SymbolTable) IsDefined(module string) bool {
	st.mutex.RLock()
	defer st.mutex.RUnlock()

	_, exists := st.modules[module]
	return exists
}

func (st *SymbolTable) Module(name string) (*Module, error) {
	st.mutex.RLock()
	defer st.mutex.RUnlock()

	m, ok := st.modules[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, types.ErrNoSuchModule)
	}
	return m, nil
}

// Modules returns the names of all loaded modules, sorted.
func (st *SymbolTable) Modules() []string {
	st.mutex.RLock()
	defer st.mutex.RUnlock()

	names := make([]string, 0, len(st.modules))
	for name := range st.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// visible returns module followed by the modules strategy makes visible from
// it, each once, in breadth-first order. Imports that are not loaded are
// reported through the joined error.
func (st *SymbolTable) visible(module string, strategy types.ImportStrategy) ([]*Module, error) {
	root, ok := st.modules[module]
	if !ok {
		return nil, fmt.Errorf("%q: %w", module, types.ErrNoSuchModule)
	}

	var errs []error
	seen := map[string]bool{module: true}
	out := []*Module{root}
	queue := []*Module{root}
	for len(queue) > 0 && strategy != types.ImportNone {
		cur := queue[0]
		queue = queue[1:]

		names := append(append([]string(nil), cur.Imports...), st.imports.DefaultImports...)
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			m, ok := st.modules[name]
			if !ok {
				errs = append(errs, fmt.Errorf("%q imported by %q: %w", name, cur.Name, types.ErrNoSuchModule))
				continue
			}
			out = append(out, m)
			if strategy == types.ImportRecursive {
				queue = append(queue, m)
			}
		}
	}
	return out, errors.Join(errs...)
}

// Theorems returns every theorem visible from module. Theorems whose name
// was already seen are dropped. All problems are returned as one joined
// error next to the theorems that could be collected. Facility
// instantiations are not modelled, so facilities has no effect.
func (st *SymbolTable) Theorems(
	module string,
	imports types.ImportStrategy,
	facilities types.FacilityStrategy,
) ([]types.TheoremSymbol, error) {
	st.mutex.RLock()
	defer st.mutex.RUnlock()

	modules, err := st.visible(module, imports)
	errs := []error{err}

	seen := make(map[string]string)
	var out []types.TheoremSymbol
	for _, m := range modules {
		for _, th := range m.Theorems {
			if th.Assertion == nil {
				errs = append(errs, fmt.Errorf("theorem %s.%s: %w", m.Name, th.Name, types.ErrUnexpectedSymbol))
				continue
			}
			if owner, dup := seen[th.Name]; dup {
				errs = append(errs, fmt.Errorf("theorem %s in %q and %q: %w", th.Name, owner, m.Name, types.ErrDuplicateSymbol))
				continue
			}
			seen[th.Name] = m.Name
			out = append(out, th)
		}
	}
	return out, errors.Join(errs...)
}

// LookupMathSymbol finds name in module or, failing that, in the modules it
// imports transitively.
func (st *SymbolTable) LookupMathSymbol(module, name string) (types.MathSymbol, bool) {
	st.mutex.RLock()
	defer st.mutex.RUnlock()

	modules, _ := st.visible(module, types.ImportRecursive)
	for _, m := range modules {
		if sym, ok := m.Symbols[name]; ok {
			return sym, true
		}
	}
	return types.MathSymbol{}, false
}

// Symbols merges the symbols visible from module. Declarations closer to
// module win over those of its imports.
func (st *SymbolTable) Symbols(module string) map[string]types.MathSymbol {
	st.mutex.RLock()
	defer st.mutex.RUnlock()

	out := make(map[string]types.MathSymbol)
	modules, _ := st.visible(module, types.ImportRecursive)
	for i := len(modules) - 1; i >= 0; i-- {
		for name, sym := range modules[i].Symbols {
			out[name] = sym
		}
	}
	return out
}
