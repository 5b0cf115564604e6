package formatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const firstProof = `Proofs for Stack_Template generated Wed, 01 May 2024 12:00:00 UTC

Before application of theorems: {S.Length + 0 = S.Length}
Iter:0.0 Iter Time: 3 Search Time for this theorem: 2 Elapsed Time: 3
[0]Zero_Additive_left
(S.Length + 0) = S.Length	1 new atoms, 1 merges

1 Proved time: 3 ms
Elapsed time from construction: 10 ms
`

func TestProofDiff(t *testing.T) {
	t.Parallel()

	retimed := `Proofs for Stack_Template generated Thu, 02 May 2024 08:30:00 UTC

Before application of theorems: {S.Length + 0 = S.Length}
Iter:0.0 Iter Time: 9 Search Time for this theorem: 7 Elapsed Time: 9
[0]Zero_Additive_left
(S.Length + 0) = S.Length	1 new atoms, 1 merges

1 Proved time: 12 ms
Elapsed time from construction: 41 ms
`

	tests := []struct {
		name     string
		previous string
		current  string
	}{
		{"no previous proof", "", firstProof},
		{"identical", firstProof, firstProof},
		{"only timings changed", firstProof, retimed},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Empty(t, ProofDiff(tt.previous, tt.current))
		})
	}
}

func TestProofDiffRegression(t *testing.T) {
	t.Parallel()

	regressed := `Proofs for Stack_Template generated Thu, 02 May 2024 08:30:00 UTC

Before application of theorems: {S.Length + 0 = S.Length}
Could not find any matches for Zero_Additive_left[1ms]

1 Out of theorems, or timed out time: 5000 ms
Elapsed time from construction: 5004 ms
`

	diff := ProofDiff(firstProof, regressed)

	assert.Contains(t, diff, "- [0]Zero_Additive_left\n")
	assert.Contains(t, diff, "- 1 Proved time: _ ms\n")
	assert.Contains(t, diff, "+ Could not find any matches for Zero_Additive_left[_ms]\n")
	assert.Contains(t, diff, "+ 1 Out of theorems, or timed out time: _ ms\n")
	assert.NotContains(t, diff, "Proofs for", "unchanged lines are left out")
	assert.NotContains(t, diff, "Elapsed time")
}

func TestStableProofText(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"Proofs for Stack_Template\n\n1 Proved time: _ ms\n",
		stableProofText("Proofs for Stack_Template generated Wed, 01 May 2024 12:00:00 UTC\n\n1 Proved time: 3 ms\n"))
}
