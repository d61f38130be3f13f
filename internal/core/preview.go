package core

import (
	"context"
	"fmt"
	"time"
)

// Sample limits
const (
	maxProductSamples = 10
	maxErrorSamples   = 20
)

// FeedPreview is a dry run of an upload: nothing is stored.
type FeedPreview struct {
	Strategy         string         `json:"strategy,omitempty"`
	Market           string         `json:"market,omitempty"`
	NeedsMapping     bool           `json:"needsMapping"`
	Reason           string         `json:"reason,omitempty"`
	Headers          []string       `json:"headers"`
	TotalRows        int            `json:"totalRows"`
	ValidRows        int            `json:"validRows"`
	ErrorRows        int            `json:"errorRows"`
	ProductSamples   []Product      `json:"productSamples"`
	ErrorSamples     []FailedRow    `json:"errorSamples"`
	Mapping          *MappingReport `json:"mapping,omitempty"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
}

// PreviewFeed decodes and parses a feed the way UploadFeed would and returns
// samples of the outcome. When the feed is not recognized, the report of the
// user's closest mapping group is included so the UI can show what is missing.
func (s *Service) PreviewFeed(ctx context.Context, req UploadRequest) (*FeedPreview, error) {
	start := time.Now()
	if req.Reader == nil {
		return nil, fmt.Errorf("no file provided")
	}

	user, err := s.deps.Users.UserByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", req.UserID, err)
	}

	raw, err := s.deps.Decoder.Decode(req.FileName, req.Reader)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", req.FileName, err)
	}

	groups, err := s.deps.Mappings.MappingGroups(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load mappings: %w", err)
	}

	// Row failures are always collected here, whatever the upload policy.
	ex := NewExtractor(WithIDPolicy(DatabaseIDs{}), WithRowErrorPolicy(SkipRow))
	result, err := ex.ExtractProducts(ctx, raw, groups, user)
	if err != nil {
		return nil, err
	}

	preview := &FeedPreview{
		Market:    result.Market,
		Headers:   result.Headers,
		TotalRows: len(raw.Rows),
	}

	if !result.Detected {
		preview.NeedsMapping = true
		preview.Reason = result.Reason
		preview.Mapping = closestGroup(raw.Headers, groups)
		preview.ProcessingTimeMs = time.Since(start).Milliseconds()
		return preview, nil
	}

	preview.Strategy = result.Strategy.String()
	preview.ValidRows = len(result.Products)
	preview.ErrorRows = len(result.FailedRows)
	preview.ProductSamples = result.Products[:min(len(result.Products), maxProductSamples)]
	preview.ErrorSamples = result.FailedRows[:min(len(result.FailedRows), maxErrorSamples)]
	preview.ProcessingTimeMs = time.Since(start).Milliseconds()
	return preview, nil
}

// closestGroup returns the report of the group leaving the fewest headers uncovered.
func closestGroup(headers []string, groups [][]MapModel) *MappingReport {
	var best *MappingReport
	for _, g := range groups {
		r := CheckMapping(headers, g)
		if best == nil || len(r.Uncovered) < len(best.Uncovered) {
			best = &r
		}
	}
	return best
}
