package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gnolang/vcprove/internal/mathexp"
	"github.com/gnolang/vcprove/internal/types"
)

// ModuleExtensions are the file extensions of VC module files.
var ModuleExtensions = []string{".vc", ".yaml", ".yml"}

// IsModuleFile reports whether path has a VC module extension.
func IsModuleFile(path string) bool {
	ext := filepath.Ext(path)
	for _, e := range ModuleExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

type moduleFile struct {
	Module   string            `yaml:"module"`
	Imports  []string          `yaml:"imports"`
	Symbols  map[string]string `yaml:"symbols"`
	Theorems []theoremDecl     `yaml:"theorems"`
	VCs      []vcDecl          `yaml:"vcs"`
}

type theoremDecl struct {
	Name      string            `yaml:"name"`
	ForAll    map[string]string `yaml:"forall"`
	Assertion string            `yaml:"assertion"`
}

type vcDecl struct {
	ID          int            `yaml:"id"`
	Explanation string         `yaml:"explanation"`
	Location    types.Location `yaml:"location"`
	Left        []string       `yaml:"left"`
	Right       []string       `yaml:"right"`
}

func decodeModuleFile(path string) (*moduleFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening module file: %w", err)
	}
	defer f.Close()

	var mf moduleFile
	if err := yaml.NewDecoder(f).Decode(&mf); err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", path, err)
	}
	if mf.Module == "" {
		mf.Module = moduleNameFromPath(path)
	}
	return &mf, nil
}

func moduleNameFromPath(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// findModuleFile looks for a sibling file of dir holding module name.
func findModuleFile(dir, name string) (string, bool) {
	for _, ext := range ModuleExtensions {
		candidate := filepath.Join(dir, name+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// LoadModule reads the module file at path together with every module it
// imports, directly or not, and registers them all in st. Imports are looked
// up next to the file that names them; the ones that cannot be found are
// left for the theorem query to report.
func LoadModule(st *SymbolTable, path string) (*Module, error) {
	root, err := decodeModuleFile(path)
	if err != nil {
		return nil, err
	}

	type pendingModule struct {
		file *moduleFile
		path string
	}
	pending := []pendingModule{{root, path}}
	loaded := map[string]bool{root.Module: true}

	for i := 0; i < len(pending); i++ {
		cur := pending[i]
		names := append(append([]string(nil), cur.file.Imports...), st.imports.DefaultImports...)
		for _, name := range names {
			if loaded[name] {
				continue
			}
			loaded[name] = true
			file, ok := findModuleFile(filepath.Dir(cur.path), name)
			if !ok {
				continue
			}
			mf, err := decodeModuleFile(file)
			if err != nil {
				return nil, fmt.Errorf("import %s: %w", name, err)
			}
			if mf.Module != name {
				return nil, fmt.Errorf("file %s declares module %q, expected %q", file, mf.Module, name)
			}
			pending = append(pending, pendingModule{mf, file})
		}
	}

	// symbols first, so every module can be parsed against its imports
	modules := make([]*Module, len(pending))
	for i, p := range pending {
		modules[i] = declareModule(p.file, p.path)
		st.Put(modules[i])
	}

	var errs []error
	for i, p := range pending {
		next, err := parseModule(st, modules[i], p.file)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.path, err))
			continue
		}
		st.Put(next)
		modules[i] = next
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return modules[0], nil
}

func declareModule(mf *moduleFile, path string) *Module {
	m := &Module{
		Name:    mf.Module,
		Path:    path,
		Imports: append([]string(nil), mf.Imports...),
		Symbols: make(map[string]types.MathSymbol, len(mf.Symbols)),
	}
	for name, typ := range mf.Symbols {
		m.Symbols[name] = types.MathSymbol{Name: name, Module: mf.Module, Type: mathexp.Type(typ)}
	}
	return m
}

func parseModule(st *SymbolTable, m *Module, mf *moduleFile) (*Module, error) {
	next := *m
	next.Theorems = nil
	next.VCs = nil

	env := mathexp.Env{Symbols: make(map[string]mathexp.Type)}
	for name, sym := range st.Symbols(m.Name) {
		env.Symbols[name] = sym.Type
	}

	seen := make(map[string]bool)
	for _, decl := range mf.Theorems {
		if seen[decl.Name] {
			return nil, fmt.Errorf("theorem %s: %w", decl.Name, types.ErrDuplicateSymbol)
		}
		seen[decl.Name] = true

		thEnv := env
		thEnv.ForAll = make(map[string]mathexp.Type, len(decl.ForAll))
		for v, typ := range decl.ForAll {
			thEnv.ForAll[v] = mathexp.Type(typ)
		}
		assertion, err := mathexp.Parse(decl.Assertion, thEnv)
		if err != nil {
			return nil, fmt.Errorf("theorem %s: %w", decl.Name, err)
		}
		next.Theorems = append(next.Theorems, types.TheoremSymbol{
			Name:      decl.Name,
			Module:    m.Name,
			Assertion: assertion,
		})
	}

	for _, decl := range mf.VCs {
		vc := types.VC{ID: decl.ID, Explanation: decl.Explanation, Location: decl.Location}
		if vc.Location.File == "" {
			vc.Location.File = m.Path
		}
		for _, src := range decl.Left {
			e, err := mathexp.Parse(src, env)
			if err != nil {
				return nil, fmt.Errorf("vc %d: %w", decl.ID, err)
			}
			vc.Sequent.Left = append(vc.Sequent.Left, e)
		}
		for _, src := range decl.Right {
			e, err := mathexp.Parse(src, env)
			if err != nil {
				return nil, fmt.Errorf("vc %d: %w", decl.ID, err)
			}
			vc.Sequent.Right = append(vc.Sequent.Right, e)
		}
		next.VCs = append(next.VCs, vc)
	}
	return &next, nil
}
