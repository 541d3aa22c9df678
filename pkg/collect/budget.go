package collect

import "math"

const (
	// DownloadAttempts is the baseline attempt budget when items are materialized.
	DownloadAttempts = 20
	// CandidateAttempts is the baseline for manifest/candidate collection.
	CandidateAttempts = 5
	// BaseMultiplier is the baseline breadth multiplier per needed item.
	BaseMultiplier = 3.0

	// MaxBreadth caps breadth and search limits.
	MaxBreadth = math.MaxInt32

	emptyGrowth        = 2.0
	unproductiveGrowth = 1.5
)

// SearchBudget controls how hard a run searches. Transitions are pure: every
// method returns a new value and leaves the receiver untouched.
type SearchBudget struct {
	AttemptsMade int     `json:"attempts_made" yaml:"attempts_made"`
	MaxAttempts  int     `json:"max_attempts" yaml:"max_attempts"`
	Multiplier   float64 `json:"multiplier" yaml:"multiplier"`
	Breadth      int     `json:"breadth" yaml:"breadth"`
}

// IgnoreScale returns the factor applied to the baseline budget for an ignore
// list of the given size. It is 1 for an empty list and never below 1.5
// otherwise, capped at 2.4 from 700 ids upward.
func IgnoreScale(ignored int) float64 {
	if ignored <= 0 {
		return 1
	}
	ratio := math.Min(float64(ignored)/1000, 0.7)
	return math.Max(1.5, 1+2*ratio)
}

// NewSearchBudget sizes the budget for needed items given the ignore list size
// at run start. baseAttempts is DownloadAttempts or CandidateAttempts.
func NewSearchBudget(needed, ignored, baseAttempts int) SearchBudget {
	scale := IgnoreScale(ignored)
	mult := BaseMultiplier * scale
	return SearchBudget{
		MaxAttempts: ceil(float64(baseAttempts) * scale),
		Multiplier:  mult,
		Breadth:     ceil(mult * float64(needed)),
	}
}

// SearchLimit is the number of results to ask the source for when remaining
// items are still needed.
func (b SearchBudget) SearchLimit(remaining int) int {
	want := ceil(float64(remaining) * b.Multiplier * 2)
	if b.Breadth > want {
		return b.Breadth
	}
	return want
}

// Exhausted reports whether no attempts are left.
func (b SearchBudget) Exhausted() bool {
	return b.AttemptsMade >= b.MaxAttempts
}

// Begin records the start of a new attempt.
func (b SearchBudget) Begin() SearchBudget {
	b.AttemptsMade++
	return b
}

// OnEmptyAttempt widens the search after an attempt yielded no new candidates.
func (b SearchBudget) OnEmptyAttempt() SearchBudget {
	b.Breadth = grow(b.Breadth, emptyGrowth)
	return b
}

// OnUnproductiveAttempt widens the search after candidates were found but none
// was accepted.
func (b SearchBudget) OnUnproductiveAttempt() SearchBudget {
	b.Breadth = grow(b.Breadth, unproductiveGrowth)
	return b
}

func grow(n int, factor float64) int {
	if n < 1 {
		n = 1
	}
	return ceil(float64(n) * factor)
}

// ceil rounds up, absorbing float noise such as 20*2.2 = 44.000000000000007,
// and clamps to MaxBreadth.
func ceil(v float64) int {
	v = math.Ceil(v - 1e-9)
	if v >= MaxBreadth {
		return MaxBreadth
	}
	return int(v)
}
