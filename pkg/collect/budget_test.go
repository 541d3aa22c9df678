package collect

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreScale(t *testing.T) {
	tests := []struct {
		ignored int
		want    float64
	}{
		{0, 1},
		{1, 1.5},
		{250, 1.5},
		{500, 2},
		{700, 2.4},
		{5000, 2.4},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, IgnoreScale(tt.ignored), 1e-9, "ignored=%d", tt.ignored)
	}
}

func TestNewSearchBudget(t *testing.T) {
	b := NewSearchBudget(3, 0, DownloadAttempts)
	assert.Equal(t, 20, b.MaxAttempts)
	assert.Equal(t, 9, b.Breadth)
	assert.InDelta(t, 3.0, b.Multiplier, 1e-9)
	assert.Zero(t, b.AttemptsMade)

	scaled := NewSearchBudget(3, 500, DownloadAttempts)
	assert.Equal(t, 40, scaled.MaxAttempts)
	assert.Equal(t, 18, scaled.Breadth)

	candidates := NewSearchBudget(10, 100, CandidateAttempts)
	assert.Equal(t, 8, candidates.MaxAttempts) // ceil(5 * 1.5)
	assert.Equal(t, 45, candidates.Breadth)
}

func TestBudgetScalesMonotonically(t *testing.T) {
	prev := NewSearchBudget(5, 0, DownloadAttempts)
	for _, n := range []int{1, 100, 400, 600, 700, 2000} {
		b := NewSearchBudget(5, n, DownloadAttempts)
		assert.GreaterOrEqual(t, b.MaxAttempts, prev.MaxAttempts, "ignored=%d", n)
		assert.GreaterOrEqual(t, b.Breadth, prev.Breadth, "ignored=%d", n)
		prev = b
	}
}

func TestSearchLimit(t *testing.T) {
	b := SearchBudget{Multiplier: 3, Breadth: 9}
	assert.Equal(t, 18, b.SearchLimit(3))
	assert.Equal(t, 9, b.SearchLimit(1))

	b.Breadth = 100
	assert.Equal(t, 100, b.SearchLimit(3))
}

func TestBudgetTransitionsArePure(t *testing.T) {
	b := SearchBudget{MaxAttempts: 2, Multiplier: 3, Breadth: 10}

	empty := b.OnEmptyAttempt()
	assert.Equal(t, 20, empty.Breadth)
	assert.Equal(t, 10, b.Breadth)

	unproductive := b.OnUnproductiveAttempt()
	assert.Equal(t, 15, unproductive.Breadth)

	odd := SearchBudget{Breadth: 3}.OnUnproductiveAttempt()
	assert.Equal(t, 5, odd.Breadth)

	started := b.Begin()
	assert.Equal(t, 1, started.AttemptsMade)
	assert.Zero(t, b.AttemptsMade)
	assert.False(t, started.Exhausted())
	assert.True(t, started.Begin().Exhausted())
}

func TestBreadthIsBounded(t *testing.T) {
	b := NewSearchBudget(5000, 1000, DownloadAttempts)
	for i := 0; i < 200; i++ {
		b = b.OnEmptyAttempt()
		require.Positive(t, b.Breadth)
	}
	assert.Equal(t, MaxBreadth, b.Breadth)
	assert.Equal(t, MaxBreadth, b.OnUnproductiveAttempt().Breadth)
	assert.Equal(t, MaxBreadth, b.SearchLimit(math.MaxInt32))
}
