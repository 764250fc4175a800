// Package collector runs the ingestion pipeline: fetch one listing page,
// then fetch and flatten each listed entry with per-entry fault isolation.
package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Sternrassler/pokeapi-ingest/pkg/flatten"
	"github.com/Sternrassler/pokeapi-ingest/pkg/logging"
	"github.com/Sternrassler/pokeapi-ingest/pkg/pagination"
	"github.com/Sternrassler/pokeapi-ingest/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var entriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pokeapi_entries_total",
	Help: "Listing entries processed by outcome",
}, []string{"outcome"})

const (
	outcomeOK           = "ok"
	outcomeFetchError   = "fetch_error"
	outcomeFlattenError = "flatten_error"
	outcomePanic        = "panic"
)

var (
	// ErrListingFetch is returned when the listing page cannot be fetched.
	// No detail fetches happen after it.
	ErrListingFetch = errors.New("listing fetch failed")

	// ErrMissingURL is recorded for listing entries without a detail URL.
	ErrMissingURL = errors.New("listing entry has no detail url")
)

// Stage names the pipeline step an entry failed in.
type Stage string

const (
	// StageFetch covers pacing and the detail request.
	StageFetch Stage = "fetch"

	// StageFlatten covers converting the detail document into a row.
	StageFlatten Stage = "flatten"

	// StageInternal marks faults recovered from a panic.
	StageInternal Stage = "internal"
)

// Fetcher is the JSON fetch capability the collector depends on.
// *client.Client satisfies it.
type Fetcher interface {
	FetchJSON(ctx context.Context, rawURL string, params url.Values, v any) error
}

// Failure describes one listing entry that produced no row.
type Failure struct {
	Name  string
	URL   string
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (f Failure) Error() string {
	return fmt.Sprintf("entry %q (%s): %v", f.Name, f.Stage, f.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (f Failure) Unwrap() error {
	return f.Err
}

// Result is the outcome of one collection run.
type Result struct {
	// Rows holds one row per successful entry, in listing order.
	Rows []flatten.Row

	// Failures holds one element per dropped entry, in listing order.
	Failures []Failure

	// Listed is the number of entries taken from the listing page.
	Listed int

	// Available is the total resource count the listing reported.
	Available int

	Duration time.Duration
}

// Collector fetches a listing page and its detail documents.
type Collector struct {
	fetcher       Fetcher
	listingURL    string
	limiter       *ratelimit.Limiter
	logger        zerolog.Logger
	progressEvery int
}

// Option configures a Collector.
type Option func(*Collector)

// WithLimiter sets the pacing limiter waited on after each detail fetch.
// A nil limiter disables pacing.
func WithLimiter(limiter *ratelimit.Limiter) Option {
	return func(c *Collector) {
		if limiter == nil {
			limiter = ratelimit.NewLimiter(0)
		}
		c.limiter = limiter
	}
}

// WithLogger sets the collector logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Collector) {
		c.logger = logger
	}
}

// WithProgressEvery logs progress at Info every n entries. n <= 0 disables it.
func WithProgressEvery(n int) Option {
	return func(c *Collector) {
		c.progressEvery = n
	}
}

// New creates a collector reading the listing at listingURL.
func New(fetcher Fetcher, listingURL string, opts ...Option) *Collector {
	if fetcher == nil {
		panic("fetcher cannot be nil")
	}

	c := &Collector{
		fetcher:       fetcher,
		listingURL:    listingURL,
		logger:        logging.NewLogger("collector"),
		progressEvery: 25,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = ratelimit.NewLimiter(ratelimit.DefaultInterval, ratelimit.WithLogger(c.logger))
	}

	return c
}

// Collect fetches one listing page for params and then every listed entry.
// A listing failure aborts the run with ErrListingFetch. Entry failures are
// recorded in the result and the run continues. On cancellation Collect
// returns the partial result together with the context error.
func (c *Collector) Collect(ctx context.Context, params pagination.Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()

	var page pagination.Page
	if err := c.fetcher.FetchJSON(ctx, c.listingURL, params.Values(), &page); err != nil {
		c.logger.Error().
			Err(err).
			Str(logging.FieldURL, c.listingURL).
			Int(logging.FieldLimit, params.Limit).
			Int(logging.FieldOffset, params.Offset).
			Msg("Listing fetch failed")
		return nil, fmt.Errorf("%w: %w", ErrListingFetch, err)
	}

	entries := page.Entries(params.Limit)
	c.logger.Info().
		Int(logging.FieldLimit, params.Limit).
		Int(logging.FieldOffset, params.Offset).
		Int("entries", len(entries)).
		Int("available", page.Count).
		Msg("Listing fetched")

	c.limiter.Drain()

	processed := 0
	outcomes, err := Isolate(ctx, entries, func(ctx context.Context, entry pagination.Entry) (flatten.Row, error) {
		row, err := c.collectEntry(ctx, entry)
		processed++
		if c.progressEvery > 0 && processed%c.progressEvery == 0 {
			c.logger.Info().
				Int("processed", processed).
				Int("total", len(entries)).
				Msg("Collection progress")
		}
		return row, err
	})

	result := &Result{
		Listed:    len(entries),
		Available: page.Count,
	}

	for _, outcome := range outcomes {
		if outcome.OK() {
			entriesTotal.WithLabelValues(outcomeOK).Inc()
			result.Rows = append(result.Rows, outcome.Value)
			continue
		}

		failure := asFailure(entries[outcome.Index], outcome.Err)
		result.Failures = append(result.Failures, failure)
		c.logFailure(failure)
	}

	result.Duration = time.Since(start)

	if err != nil {
		c.logger.Warn().
			Err(err).
			Int(logging.FieldRows, len(result.Rows)).
			Int("processed", len(outcomes)).
			Msg("Collection interrupted")
		return result, err
	}

	c.logger.Info().
		Int(logging.FieldRows, len(result.Rows)).
		Int(logging.FieldFailures, len(result.Failures)).
		Dur("duration", result.Duration).
		Msg("Collection complete")

	return result, nil
}

// stageError tags an entry error with the step it happened in.
type stageError struct {
	stage Stage
	err   error
}

func (e *stageError) Error() string { return e.err.Error() }
func (e *stageError) Unwrap() error { return e.err }

// collectEntry fetches and flattens one entry. A pacing permit is waited
// for after every detail fetch, whether it succeeded or not.
func (c *Collector) collectEntry(ctx context.Context, entry pagination.Entry) (row flatten.Row, err error) {
	if entry.URL == "" {
		return flatten.Row{}, &stageError{stage: StageFetch, err: ErrMissingURL}
	}

	defer func() {
		if waitErr := c.limiter.Wait(ctx); waitErr != nil && err == nil {
			row, err = flatten.Row{}, &stageError{stage: StageFetch, err: waitErr}
		}
	}()

	var doc flatten.Document
	if err := c.fetcher.FetchJSON(ctx, entry.URL, nil, &doc); err != nil {
		return flatten.Row{}, &stageError{stage: StageFetch, err: err}
	}

	row, err = flatten.Flatten(doc)
	if err != nil {
		return flatten.Row{}, &stageError{stage: StageFlatten, err: err}
	}

	c.logger.Debug().Str(logging.FieldEntry, entry.Name).Msg("Entry collected")
	return row, nil
}

func asFailure(entry pagination.Entry, err error) Failure {
	failure := Failure{Name: entry.Name, URL: entry.URL, Stage: StageInternal, Err: err}

	var se *stageError
	if errors.As(err, &se) {
		failure.Stage = se.stage
		failure.Err = se.err
	}

	return failure
}

func (c *Collector) logFailure(f Failure) {
	var outcome, msg string
	switch f.Stage {
	case StageFetch:
		outcome, msg = outcomeFetchError, "Detail fetch failed, entry dropped"
	case StageFlatten:
		outcome, msg = outcomeFlattenError, "Detail document could not be flattened, entry dropped"
	default:
		outcome, msg = outcomePanic, "Entry processing panicked, entry dropped"
	}
	entriesTotal.WithLabelValues(outcome).Inc()

	c.logger.Warn().
		Err(f.Err).
		Str(logging.FieldEntry, f.Name).
		Str(logging.FieldURL, f.URL).
		Str(logging.FieldStage, string(f.Stage)).
		Msg(msg)
}
