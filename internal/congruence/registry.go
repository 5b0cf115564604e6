package congruence

import (
	"fmt"
	"sort"

	"github.com/gnolang/vcprove/internal/mathexp"
)

// Usage classifies how a symbol entered a registry.
type Usage int

const (
	// UsageLiteral marks constants and literals taken from the input.
	UsageLiteral Usage = iota
	// UsageCreated marks fresh symbols naming a flattened sub-term.
	UsageCreated
	// UsageForAll marks universally quantified theorem variables.
	UsageForAll
	// UsageHasArgsForAll marks quantified variables in function position.
	UsageHasArgsForAll
)

func (u Usage) String() string {
	switch u {
	case UsageLiteral:
		return "Literal"
	case UsageCreated:
		return "Created"
	case UsageForAll:
		return "ForAll"
	case UsageHasArgsForAll:
		return "HasArgsForAll"
	default:
		return "?"
	}
}

// IsVariable reports whether a pattern symbol with this usage may be bound
// during matching.
func (u Usage) IsVariable() bool {
	return u != UsageLiteral
}

// IsQuantified reports whether the usage comes from a quantifier.
func (u Usage) IsQuantified() bool {
	return u == UsageForAll || u == UsageHasArgsForAll
}

// Indices of the boolean literals, interned first in every registry.
const (
	IndexTrue  = 0
	IndexFalse = 1
)

// createdPrefix starts every fresh symbol name. It cannot be produced by
// the formula parser.
const createdPrefix = "¢c"

// Registry is an arena of symbols with a union-find partition over them.
// Symbols are referenced by their index; the parent slice runs parallel to
// the symbol slice.
type Registry struct {
	symbols []string
	types   []mathexp.Type
	usages  []Usage
	parent  []int
	index   map[string]int
	// members lists every index of a class, keyed by its root
	members map[int][]int
	created int
}

func NewRegistry() *Registry {
	r := &Registry{
		index:   make(map[string]int),
		members: make(map[int][]int),
	}
	r.AddSymbol(mathexp.True.Name, mathexp.TypeBoolean, UsageLiteral)
	r.AddSymbol(mathexp.False.Name, mathexp.TypeBoolean, UsageLiteral)
	return r
}

// AddSymbol interns name and returns its index. An existing symbol keeps
// its original type and usage.
func (r *Registry) AddSymbol(name string, typ mathexp.Type, usage Usage) int {
	if i, ok := r.index[name]; ok {
		return i
	}
	i := len(r.symbols)
	r.symbols = append(r.symbols, name)
	r.types = append(r.types, typ)
	r.usages = append(r.usages, usage)
	r.parent = append(r.parent, i)
	r.index[name] = i
	r.members[i] = []int{i}
	return i
}

// MakeSymbol creates a fresh symbol of the given type and returns its name.
func (r *Registry) MakeSymbol(typ mathexp.Type) string {
	for {
		name := fmt.Sprintf("%s%d", createdPrefix, r.created)
		r.created++
		if _, taken := r.index[name]; !taken {
			r.AddSymbol(name, typ, UsageCreated)
			return name
		}
	}
}

// Root returns the representative of i's class, compressing the path.
func (r *Registry) Root(i int) int {
	root := i
	for r.parent[root] != root {
		root = r.parent[root]
	}
	for r.parent[i] != root {
		next := r.parent[i]
		r.parent[i] = root
		i = next
	}
	return root
}

// Merge unions the classes of a and b and returns the surviving root.
// Input symbols are preferred over created ones, then older over newer.
func (r *Registry) Merge(a, b int) int {
	ra, rb := r.Root(a), r.Root(b)
	if ra == rb {
		return ra
	}
	winner, loser := ra, rb
	if r.prefer(rb, ra) {
		winner, loser = rb, ra
	}
	r.parent[loser] = winner
	r.members[winner] = append(r.members[winner], r.members[loser]...)
	delete(r.members, loser)
	return winner
}

func (r *Registry) prefer(a, b int) bool {
	createdA, createdB := r.usages[a] == UsageCreated, r.usages[b] == UsageCreated
	if createdA != createdB {
		return createdB
	}
	return a < b
}

// Lookup returns the index of name when it has been interned.
func (r *Registry) Lookup(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

func (r *Registry) IsSymbol(name string) bool {
	_, ok := r.index[name]
	return ok
}

// IndexForSymbol returns the index of an interned symbol.
// Asking for a symbol that was never interned is a programming error.
func (r *Registry) IndexForSymbol(name string) int {
	i, ok := r.index[name]
	if !ok {
		panic(fmt.Sprintf("congruence: unknown symbol %q", name))
	}
	return i
}

func (r *Registry) SymbolForIndex(i int) string {
	r.check(i)
	return r.symbols[i]
}

func (r *Registry) RootSymbol(name string) string {
	return r.symbols[r.Root(r.IndexForSymbol(name))]
}

func (r *Registry) TypeByIndex(i int) mathexp.Type {
	r.check(i)
	return r.types[i]
}

func (r *Registry) Usage(name string) Usage {
	return r.usages[r.IndexForSymbol(name)]
}

func (r *Registry) UsageByIndex(i int) Usage {
	r.check(i)
	return r.usages[i]
}

// Children returns the other members of the class rooted at root, oldest
// first.
func (r *Registry) Children(root string) []string {
	ri := r.Root(r.IndexForSymbol(root))
	members := append([]int(nil), r.members[ri]...)
	sort.Ints(members)
	var out []string
	for _, m := range members {
		if m != ri {
			out = append(out, r.symbols[m])
		}
	}
	return out
}

// ParentsByType returns the root symbols whose type fits typ, oldest first.
// Quantified variables are never returned.
func (r *Registry) ParentsByType(typ mathexp.Type) []string {
	var out []string
	for i, name := range r.symbols {
		if r.parent[i] != i || r.usages[i].IsQuantified() {
			continue
		}
		if typ.Accepts(r.types[i]) {
			out = append(out, name)
		}
	}
	return out
}

// ForAlls returns the universally quantified symbols in index order.
func (r *Registry) ForAlls() []string {
	var out []string
	for i, u := range r.usages {
		if u == UsageForAll {
			out = append(out, r.symbols[i])
		}
	}
	return out
}

// Variables returns every symbol a pattern match may bind.
func (r *Registry) Variables() []string {
	var out []string
	for i, u := range r.usages {
		if u.IsVariable() {
			out = append(out, r.symbols[i])
		}
	}
	return out
}

// Size is the number of interned symbols.
func (r *Registry) Size() int {
	return len(r.symbols)
}

func (r *Registry) check(i int) {
	if i < 0 || i >= len(r.symbols) {
		panic(fmt.Sprintf("congruence: index %d out of range [0, %d)", i, len(r.symbols)))
	}
}
