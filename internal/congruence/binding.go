package congruence

import (
	"sort"
	"strings"
)

// Binding maps theorem variable names to the model symbols bound to them.
// An empty value means the variable is still unbound.
type Binding map[string]string

// NewBinding returns a binding with every name in vars unbound.
func NewBinding(vars []string) Binding {
	b := make(Binding, len(vars))
	for _, v := range vars {
		b[v] = ""
	}
	return b
}

func (b Binding) Clone() Binding {
	out := make(Binding, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Key renders b deterministically, for use as a set key.
func (b Binding) Key() string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(b[k])
	}
	return sb.String()
}

func (b Binding) String() string {
	return "{" + b.Key() + "}"
}
