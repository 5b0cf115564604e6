package internal

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/pebble"

	"github.com/gnolang/vcprove/internal/prover"
	"github.com/gnolang/vcprove/internal/types"
)

const (
	defaultCacheSize = 8 << 20
	resultPrefix     = "result/"
)

// Cache stores decided proof results keyed by everything that can change
// them: the module, the VC, the visible theorems and symbols, and the prover
// settings.
type Cache struct {
	CacheDir string
	db       *pebble.DB
}

// OpenCache opens or creates the proof cache in cacheDir.
func OpenCache(cacheDir string) (*Cache, error) {
	db, err := pebble.Open(cacheDir, &pebble.Options{
		Cache: pebble.NewCache(defaultCacheSize),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open proof cache %q: %w", cacheDir, err)
	}
	return &Cache{CacheDir: cacheDir, db: db}, nil
}

func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Get returns the cached result for key.
func (c *Cache) Get(key string) (types.Result, bool) {
	data, closer, err := c.db.Get([]byte(resultPrefix + key))
	if err != nil {
		return types.Result{}, false
	}
	defer closer.Close()

	var res types.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return types.Result{}, false
	}
	return res, true
}

// Set stores res under key. Only decided results are cached; an undecided
// one could still be proved with a larger budget.
func (c *Cache) Set(key string, res types.Result) error {
	if !res.Status.Terminal() || res.Skipped {
		return nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := c.db.Set([]byte(resultPrefix+key), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	return nil
}

// InvalidateAll drops every cached result.
func (c *Cache) InvalidateAll() error {
	start := []byte(resultPrefix)
	end := []byte(resultPrefix)
	end[len(end)-1]++
	return c.db.DeleteRange(start, end, pebble.Sync)
}

// Len counts the cached results.
func (c *Cache) Len() (int, error) {
	end := []byte(resultPrefix)
	end[len(end)-1]++
	iter, err := c.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(resultPrefix),
		UpperBound: end,
	})
	if err != nil {
		return 0, err
	}
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, errors.Join(iter.Error(), iter.Close())
}

// TheoremFingerprint hashes a theorem set independently of its order.
func TheoremFingerprint(theorems []types.TheoremSymbol) string {
	lines := make([]string, len(theorems))
	for i, th := range theorems {
		lines[i] = th.Module + "." + th.Name + ": " + th.Assertion.String()
	}
	sort.Strings(lines)
	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}

// SymbolFingerprint hashes the classifications visible from a module and
// whether the integer base sorts were resolved.
func SymbolFingerprint(symbols map[string]types.MathSymbol, integerSorts bool) string {
	lines := make([]string, 0, len(symbols))
	for name, sym := range symbols {
		lines = append(lines, name+": "+string(sym.Type))
	}
	sort.Strings(lines)
	h := sha256.New()
	fmt.Fprintf(h, "integer_sorts=%t\n", integerSorts)
	h.Write([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

// CacheKey identifies the result of proving vc in module.
func CacheKey(module string, vc types.VC, theorems, symbols string, cfg prover.Config) string {
	h := sha256.New()
	fmt.Fprintf(h, "module=%s\n", module)
	fmt.Fprintf(h, "vc=%d %s\n", vc.ID, vc.Sequent)
	fmt.Fprintf(h, "theorems=%s\n", theorems)
	fmt.Fprintf(h, "symbols=%s\n", symbols)
	fmt.Fprintf(h, "timeout=%s allow_new_symbols=%t\n", cfg.Timeout, cfg.AllowNewSymbols)
	return hex.EncodeToString(h.Sum(nil))
}
