package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Unknown is the oracle's "no match" answer.
const Unknown = "UNKNOWN"

// Oracle suggests catalog matches for attribute names and values that do not
// match exactly. Implementations make one remote call per method and must be
// safe to retry.
type Oracle interface {
	// SuggestAttribute returns the closest of candidates to name, or Unknown.
	SuggestAttribute(ctx context.Context, name string, candidates []string) (string, error)
	// SuggestValue returns the closest of allowed to value for attribute, or Unknown.
	SuggestValue(ctx context.Context, attribute, value string, allowed []string) (string, error)
}

// Normalizer aligns extracted attributes with a marketplace catalog.
type Normalizer struct {
	catalog []Attribute
	names   []string
	oracle  Oracle
	logger  *slog.Logger
}

// NewNormalizer creates a Normalizer over catalog. oracle may be nil, in
// which case only exact name matches are resolved.
func NewNormalizer(catalog []Attribute, oracle Oracle, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	names := make([]string, len(catalog))
	for i, a := range catalog {
		names[i] = a.Name
	}
	return &Normalizer{
		catalog: catalog,
		names:   names,
		oracle:  oracle,
		logger:  logger,
	}
}

// Normalize resolves every attribute of p against the catalog, one at a time.
//
// Names without an exact case-insensitive match go to the oracle. An Unknown
// answer leaves the attribute attached and unchanged. For restricted catalog
// attributes, values outside the allowed set go to the oracle too; an
// Unknown answer keeps the original value even though it violates the
// restriction.
func (n *Normalizer) Normalize(ctx context.Context, p Product) (Product, error) {
	attrs := make([]ProductAttribute, len(p.Attributes))
	copy(attrs, p.Attributes)

	for i := range attrs {
		pa := &attrs[i]

		match, viaOracle, err := n.matchAttribute(ctx, pa.Attribute.Name)
		if err != nil {
			return p, fmt.Errorf("normalize attribute %q: %w", pa.Attribute.Name, err)
		}
		if match == nil {
			n.logger.Debug("attribute left unmatched",
				"product_id", p.ID,
				"attribute", pa.Attribute.Name,
			)
			continue
		}
		pa.Attribute = *match
		if viaOracle {
			pa.IsExtractedByAI = true
		}

		if pa.Attribute.Allows(pa.Value) {
			continue
		}
		value, err := n.matchValue(ctx, *match, pa.Value)
		if err != nil {
			return p, fmt.Errorf("normalize value of %q: %w", match.Name, err)
		}
		if value == "" {
			n.logger.Debug("restricted value left unresolved",
				"product_id", p.ID,
				"attribute", match.Name,
				"value", pa.Value,
			)
			continue
		}
		pa.Value = value
		pa.IsExtractedByAI = true
	}

	p.Attributes = attrs
	return p, nil
}

// NormalizeAll normalizes products concurrently, at most limit at a time.
// Product order is preserved. The first oracle failure cancels the rest.
func (n *Normalizer) NormalizeAll(ctx context.Context, products []Product, limit int) ([]Product, error) {
	out := make([]Product, len(products))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, p := range products {
		i, p := i, p
		g.Go(func() error {
			np, err := n.Normalize(gctx, p)
			if err != nil {
				return err
			}
			out[i] = np
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// matchAttribute finds the catalog attribute for name. The bool result is
// true when the match came from the oracle.
func (n *Normalizer) matchAttribute(ctx context.Context, name string) (*Attribute, bool, error) {
	if a := n.lookup(name); a != nil {
		return a, false, nil
	}
	if n.oracle == nil || len(n.catalog) == 0 {
		return nil, false, nil
	}

	suggestion, err := n.oracle.SuggestAttribute(ctx, name, n.names)
	if err != nil {
		return nil, false, err
	}
	if isUnknown(suggestion) {
		return nil, false, nil
	}
	// Suggestions outside the catalog are treated as no match.
	a := n.lookup(suggestion)
	return a, a != nil, nil
}

// matchValue asks the oracle for an allowed value. Returns "" when there is none.
func (n *Normalizer) matchValue(ctx context.Context, attr Attribute, value string) (string, error) {
	if n.oracle == nil {
		return "", nil
	}
	suggestion, err := n.oracle.SuggestValue(ctx, attr.Name, value, attr.AllowedValues)
	if err != nil {
		return "", err
	}
	if isUnknown(suggestion) {
		return "", nil
	}
	for _, allowed := range attr.AllowedValues {
		if strings.EqualFold(allowed, strings.TrimSpace(suggestion)) {
			return allowed, nil
		}
	}
	return "", nil
}

func (n *Normalizer) lookup(name string) *Attribute {
	name = strings.TrimSpace(name)
	for i := range n.catalog {
		if strings.EqualFold(n.catalog[i].Name, name) {
			return &n.catalog[i]
		}
	}
	return nil
}

func isUnknown(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, Unknown)
}
