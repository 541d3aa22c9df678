// Package collect runs the adaptive, deduplicating search loop that turns a
// query into a fixed number of new accepted items.
package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/28jackiiee/video-scraping/models"
)

// ErrInvalidRequest marks configuration errors detected before any search.
var ErrInvalidRequest = errors.New("invalid collection request")

// Searcher is the external source of candidate items. It paginates and dedups
// internally up to limit; an empty outcome is not an error.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (models.SearchOutcome, error)
}

// SearchFunc adapts a plain function to Searcher.
type SearchFunc func(ctx context.Context, query string, limit int) (models.SearchOutcome, error)

func (f SearchFunc) Search(ctx context.Context, query string, limit int) (models.SearchOutcome, error) {
	return f(ctx, query, limit)
}

// FilterFunc reports whether an item must be rejected. It must be pure.
type FilterFunc func(item models.CandidateItem) bool

// AcceptFunc materializes an item. A nil error means the item is accepted.
type AcceptFunc func(ctx context.Context, item models.CandidateItem) error

// Request describes one collection run.
type Request struct {
	Query  string
	Needed int
	// Ignore is read-only during the run.
	Ignore IDSet
	// Existing receives the id of every accepted item.
	Existing IDSet
	Filter   FilterFunc
	Accept   AcceptFunc
	// BaseAttempts defaults to DownloadAttempts.
	BaseAttempts int
}

// Report summarizes a run. Falling short of Needed is reported, not returned
// as an error.
type Report struct {
	Query          string                 `json:"query" yaml:"query"`
	Needed         int                    `json:"needed" yaml:"needed"`
	AcceptedIDs    []string               `json:"accepted_ids" yaml:"accepted_ids"`
	Accepted       []models.CandidateItem `json:"-" yaml:"-"`
	Attempts       int                    `json:"attempts" yaml:"attempts"`
	MaxAttempts    int                    `json:"max_attempts" yaml:"max_attempts"`
	Seen           int                    `json:"seen" yaml:"seen"`
	Invalid        int                    `json:"invalid" yaml:"invalid"`
	Ignored        int                    `json:"ignored" yaml:"ignored"`
	Duplicates     int                    `json:"duplicates" yaml:"duplicates"`
	Existing       int                    `json:"existing" yaml:"existing"`
	Filtered       int                    `json:"filtered" yaml:"filtered"`
	AcceptFailures int                    `json:"accept_failures" yaml:"accept_failures"`
	SearchErrors   int                    `json:"search_errors" yaml:"search_errors"`
	Budget         SearchBudget           `json:"budget" yaml:"budget"`
}

// Complete reports whether the target was reached.
func (r *Report) Complete() bool {
	return len(r.AcceptedIDs) >= r.Needed
}

// Shortfall is the number of items still missing.
func (r *Report) Shortfall() int {
	if n := r.Needed - len(r.AcceptedIDs); n > 0 {
		return n
	}
	return 0
}

// Engine drives a Searcher. It holds no per-run state, so one Engine can serve
// consecutive runs.
type Engine struct {
	searcher Searcher
	logger   *slog.Logger
}

func NewEngine(searcher Searcher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{searcher: searcher, logger: logger}
}

func (req Request) validate() error {
	switch {
	case req.Needed <= 0:
		return fmt.Errorf("%w: needed must be positive, got %d", ErrInvalidRequest, req.Needed)
	case req.Accept == nil:
		return fmt.Errorf("%w: no accept action", ErrInvalidRequest)
	case req.BaseAttempts < 0:
		return fmt.Errorf("%w: negative attempt budget", ErrInvalidRequest)
	}
	return nil
}

// classification of a single search result against the exclusion layers.
type verdict int

const (
	candidate verdict = iota
	invalid
	ignored
	duplicate
	existing
)

// run carries the state owned by one Run call.
type run struct {
	req     Request
	seen    IDSet
	budget  SearchBudget
	report  *Report
	logger  *slog.Logger
	needed  int
	current int
}

func (r *run) classify(item models.CandidateItem) verdict {
	if !item.HasID() {
		return invalid
	}
	if r.req.Ignore.Has(item.ID) {
		return ignored
	}
	if r.seen.Has(item.ID) {
		return duplicate
	}
	if r.req.Existing.Has(item.ID) {
		r.seen.Add(item.ID)
		return existing
	}
	r.seen.Add(item.ID)
	return candidate
}

// Run searches until Needed items are accepted or the attempt budget is spent.
// On context cancellation the partial report is returned with ctx.Err().
func (e *Engine) Run(ctx context.Context, req Request) (*Report, error) {
	if e.searcher == nil {
		return nil, fmt.Errorf("%w: no searcher", ErrInvalidRequest)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.Existing == nil {
		req.Existing = NewIDSet()
	}
	base := req.BaseAttempts
	if base == 0 {
		base = DownloadAttempts
	}

	r := &run{
		req:    req,
		seen:   NewIDSet(),
		budget: NewSearchBudget(req.Needed, req.Ignore.Len(), base),
		report: &Report{Query: req.Query, Needed: req.Needed},
		logger: e.logger.With("query", req.Query),
		needed: req.Needed,
	}
	r.report.MaxAttempts = r.budget.MaxAttempts
	r.logger.Info("Collection started",
		"needed", req.Needed,
		"ignored_ids", req.Ignore.Len(),
		"existing_ids", req.Existing.Len(),
		"max_attempts", r.budget.MaxAttempts,
		"breadth", r.budget.Breadth)

	for r.current < r.needed && !r.budget.Exhausted() {
		if err := ctx.Err(); err != nil {
			return r.finish(), err
		}
		if err := e.attempt(ctx, r); err != nil {
			return r.finish(), err
		}
	}

	rep := r.finish()
	if rep.Complete() {
		r.logger.Info("Collection complete", "accepted", len(rep.AcceptedIDs), "attempts", rep.Attempts)
	} else {
		r.logger.Warn("Collection fell short",
			"accepted", len(rep.AcceptedIDs),
			"needed", rep.Needed,
			"attempts", rep.Attempts,
			"ignored", rep.Ignored,
			"duplicates", rep.Duplicates,
			"filtered", rep.Filtered)
	}
	return rep, nil
}

// attempt performs one search call and processes its results. Only context
// cancellation is returned as an error.
func (e *Engine) attempt(ctx context.Context, r *run) error {
	r.budget = r.budget.Begin()
	remaining := r.needed - r.current
	limit := r.budget.SearchLimit(remaining)
	log := r.logger.With("attempt", r.budget.AttemptsMade, "max_attempts", r.budget.MaxAttempts)
	log.Debug("Searching", "limit", limit, "remaining", remaining)

	outcome, err := e.searcher.Search(ctx, r.req.Query, limit)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.report.SearchErrors++
		log.Warn("Search failed", "error", err)
		outcome = models.SearchOutcome{}
	}

	var candidates []models.CandidateItem
	for _, item := range outcome.Items {
		item.ID = strings.TrimSpace(item.ID)
		switch r.classify(item) {
		case invalid:
			r.report.Invalid++
		case ignored:
			r.report.Ignored++
		case duplicate:
			r.report.Duplicates++
		case existing:
			r.report.Existing++
		default:
			candidates = append(candidates, item)
		}
	}

	if len(candidates) == 0 {
		r.budget = r.budget.OnEmptyAttempt()
		log.Info("No new candidates", "returned", len(outcome.Items), "next_breadth", r.budget.Breadth)
		return nil
	}

	eligible := make([]models.CandidateItem, 0, len(candidates))
	for _, item := range candidates {
		if r.req.Filter != nil && r.req.Filter(item) {
			r.report.Filtered++
			continue
		}
		eligible = append(eligible, item)
	}

	acceptedNow := 0
	for _, item := range eligible {
		if r.current >= r.needed {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.req.Accept(ctx, item); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			r.report.AcceptFailures++
			log.Warn("Item not accepted", "id", item.ID, "error", err)
			continue
		}
		r.req.Existing.Add(item.ID)
		r.report.AcceptedIDs = append(r.report.AcceptedIDs, item.ID)
		r.report.Accepted = append(r.report.Accepted, item)
		r.current++
		acceptedNow++
		log.Debug("Item accepted", "id", item.ID, "progress", fmt.Sprintf("%d/%d", r.current, r.needed))
	}

	if acceptedNow == 0 {
		r.budget = r.budget.OnUnproductiveAttempt()
	}
	log.Info("Attempt finished",
		"returned", len(outcome.Items),
		"candidates", len(candidates),
		"eligible", len(eligible),
		"accepted", acceptedNow,
		"total", r.current)
	return nil
}

func (r *run) finish() *Report {
	r.report.Attempts = r.budget.AttemptsMade
	r.report.Seen = r.seen.Len()
	r.report.Budget = r.budget
	return r.report
}
