package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnolang/vcprove/internal/mathexp"
	"github.com/gnolang/vcprove/internal/prover"
	"github.com/gnolang/vcprove/internal/types"
)

func TestCache(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "cache-test")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	cache, err := OpenCache(filepath.Join(tmpDir, "cache"))
	require.NoError(t, err)
	defer cache.Close()

	proved := types.Result{
		ID:          1,
		Explanation: "Ensures clause of Push",
		Location:    types.Location{File: "Stack.rb", Line: 12, Column: 4},
		Status:      types.Proved,
		Steps:       2,
		Duration:    15 * time.Millisecond,
		Trace:       "trace",
	}

	t.Run("SaveAndLoad", func(t *testing.T) {
		require.NoError(t, cache.Set("proved", proved))

		loaded, found := cache.Get("proved")
		assert.True(t, found)
		assert.Equal(t, proved, loaded)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, found := cache.Get("nonexistent")
		assert.False(t, found)
	})

	t.Run("UndecidedIsNotStored", func(t *testing.T) {
		open := proved
		open.Status = types.StillEvaluating
		require.NoError(t, cache.Set("open", open))

		skipped := proved
		skipped.Skipped = true
		require.NoError(t, cache.Set("skipped", skipped))

		_, found := cache.Get("open")
		assert.False(t, found)
		_, found = cache.Get("skipped")
		assert.False(t, found)
	})

	t.Run("InvalidateAll", func(t *testing.T) {
		vacuous := proved
		vacuous.Status = types.FalseAssumption
		require.NoError(t, cache.Set("vacuous", vacuous))

		n, err := cache.Len()
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		require.NoError(t, cache.InvalidateAll())
		n, err = cache.Len()
		require.NoError(t, err)
		assert.Zero(t, n)

		_, found := cache.Get("proved")
		assert.False(t, found)
	})
}

func TestCachePersistsAcrossOpens(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(createTempDir(t, "cache-reopen"), "cache")
	cache, err := OpenCache(dir)
	require.NoError(t, err)
	require.NoError(t, cache.Set("k", types.Result{ID: 3, Status: types.Proved}))
	require.NoError(t, cache.Close())

	cache, err = OpenCache(dir)
	require.NoError(t, err)
	defer cache.Close()

	res, found := cache.Get("k")
	require.True(t, found)
	assert.Equal(t, 3, res.ID)
	assert.Equal(t, dir, cache.CacheDir)
}

func TestCacheKey(t *testing.T) {
	t.Parallel()

	env := mathexp.Env{
		Symbols: map[string]mathexp.Type{"a": mathexp.TypeInteger, "b": mathexp.TypeInteger},
		ForAll:  map[string]mathexp.Type{"x": mathexp.TypeInteger},
	}
	zero := types.TheoremSymbol{Name: "Zero_Additive", Module: "Integer_Theory", Assertion: mathexp.MustParse("x + 0 == x", env)}
	refl := types.TheoremSymbol{Name: "Refl", Module: "Integer_Theory", Assertion: mathexp.MustParse("x == x", env)}

	assert.Equal(t,
		TheoremFingerprint([]types.TheoremSymbol{zero, refl}),
		TheoremFingerprint([]types.TheoremSymbol{refl, zero}),
		"fingerprints ignore theorem order")
	assert.NotEqual(t,
		TheoremFingerprint([]types.TheoremSymbol{zero}),
		TheoremFingerprint([]types.TheoremSymbol{zero, refl}))

	vc := types.VC{ID: 1, Sequent: types.Sequent{Right: []mathexp.Exp{mathexp.MustParse("a + 0 == a", env)}}}
	other := types.VC{ID: 1, Sequent: types.Sequent{Right: []mathexp.Exp{mathexp.MustParse("a + 0 == b", env)}}}
	fp := TheoremFingerprint([]types.TheoremSymbol{zero})
	symbols := map[string]types.MathSymbol{
		"a": {Name: "a", Type: mathexp.TypeInteger},
		"b": {Name: "b", Type: mathexp.TypeInteger},
	}
	sf := SymbolFingerprint(symbols, true)
	cfg := prover.DefaultConfig()

	key := CacheKey("Stack_Template", vc, fp, sf, cfg)
	assert.Equal(t, key, CacheKey("Stack_Template", vc, fp, sf, cfg))
	assert.NotEqual(t, key, CacheKey("Queue_Template", vc, fp, sf, cfg))
	assert.NotEqual(t, key, CacheKey("Stack_Template", other, fp, sf, cfg))

	longer := cfg
	longer.Timeout = 2 * cfg.Timeout
	assert.NotEqual(t, key, CacheKey("Stack_Template", vc, fp, sf, longer))

	jobs := cfg
	jobs.Jobs = 8
	assert.Equal(t, key, CacheKey("Stack_Template", vc, fp, sf, jobs), "parallelism does not change results")

	retyped := map[string]types.MathSymbol{
		"a": {Name: "a", Type: mathexp.TypeNatural},
		"b": {Name: "b", Type: mathexp.TypeInteger},
	}
	assert.NotEqual(t, key, CacheKey("Stack_Template", vc, fp, SymbolFingerprint(retyped, true), cfg),
		"changing a classification invalidates results")
	assert.NotEqual(t, key, CacheKey("Stack_Template", vc, fp, SymbolFingerprint(symbols, false), cfg),
		"the integer base sorts change normalization")
	assert.Equal(t, sf, SymbolFingerprint(map[string]types.MathSymbol{
		"b": {Name: "b", Type: mathexp.TypeInteger},
		"a": {Name: "a", Type: mathexp.TypeInteger},
	}, true))
}
