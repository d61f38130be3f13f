package core

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// RowErrorPolicy decides what happens to a batch when a row fails conversion.
type RowErrorPolicy int

const (
	// SkipRow drops the failing row and reports it in Extraction.FailedRows.
	SkipRow RowErrorPolicy = iota
	// AbortBatch fails the whole extraction on the first bad row.
	AbortBatch
)

// ParseRowErrorPolicy maps "skip" / "abort" to a policy.
func ParseRowErrorPolicy(s string) (RowErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "skip", "":
		return SkipRow, nil
	case "abort":
		return AbortBatch, nil
	default:
		return SkipRow, fmt.Errorf("unknown row error policy %q", s)
	}
}

// Extraction is the result of converting one feed.
type Extraction struct {
	Detected   bool
	Reason     string // set when Detected is false
	Strategy   StrategyKind
	Market     string
	Headers    []string
	Products   []Product
	FailedRows []FailedRow
}

// Extractor drives strategy detection and row conversion for a feed.
type Extractor struct {
	ids         IDPolicy
	rowPolicy   RowErrorPolicy
	workers     int
	keepFeedIDs bool
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithIDPolicy sets how product ids are assigned.
func WithIDPolicy(p IDPolicy) ExtractorOption {
	return func(e *Extractor) { e.ids = p }
}

// WithRowErrorPolicy sets the batch behavior for rows that fail conversion.
func WithRowErrorPolicy(p RowErrorPolicy) ExtractorOption {
	return func(e *Extractor) { e.rowPolicy = p }
}

// WithWorkers sets how many rows are parsed in parallel.
func WithWorkers(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithFeedIDs controls whether an id read from the feed (mapped "id"
// column) is kept instead of assigning one from the policy.
func WithFeedIDs(keep bool) ExtractorOption {
	return func(e *Extractor) { e.keepFeedIDs = keep }
}

// NewExtractor creates an Extractor. Defaults: database-assigned ids,
// skip bad rows, one worker per CPU, feed ids kept.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		ids:         DatabaseIDs{},
		rowPolicy:   SkipRow,
		workers:     runtime.GOMAXPROCS(0),
		keepFeedIDs: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractProducts converts raw into products owned by user.
//
// An empty feed is an error. A feed no strategy recognizes is not: the
// returned Extraction has Detected=false and the reason, and the caller is
// expected to ask the user for a column mapping.
func (e *Extractor) ExtractProducts(ctx context.Context, raw RawFeedData, groups [][]MapModel, user User) (*Extraction, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}

	result := DetectStrategy(raw.Headers, groups)
	out := &Extraction{
		Headers: raw.Headers,
		Market:  result.Market,
	}
	if !result.OK() {
		out.Reason = result.Reason
		return out, nil
	}
	out.Detected = true
	out.Strategy = result.Strategy.Kind()

	parsed, rowErrs, err := e.parseRows(ctx, result.Strategy, raw.Rows)
	if err != nil {
		return nil, err
	}

	out.Products = make([]Product, 0, len(parsed))
	for i, p := range parsed {
		if rowErrs[i] != nil {
			rowErr := &RowError{Line: i + 2, Err: rowErrs[i]}
			if e.rowPolicy == AbortBatch {
				return nil, rowErr
			}
			out.FailedRows = append(out.FailedRows, FailedRow{
				LineNumber: rowErr.Line,
				Reason:     rowErrs[i].Error(),
				Data:       raw.Rows[i],
			})
			continue
		}
		out.Products = append(out.Products, e.stamp(p, user))
	}

	return out, nil
}

// parseRows runs the strategy over every row. Results keep row order.
func (e *Extractor) parseRows(ctx context.Context, s Strategy, rows [][]string) ([]Product, []error, error) {
	products := make([]Product, len(rows))
	rowErrs := make([]error, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			products[i], rowErrs[i] = s.Parse(row)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return products, rowErrs, nil
}

// stamp assigns ownership and identity and propagates the id to attributes.
func (e *Extractor) stamp(p Product, user User) Product {
	u := user
	p.User = &u
	p.UserID = user.ID
	if p.ID == 0 || !e.keepFeedIDs {
		p.ID = e.ids.NextID()
	}
	for i := range p.Attributes {
		p.Attributes[i].ProductID = p.ID
	}
	return p
}
