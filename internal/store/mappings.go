package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/JonMunkholm/feeduploader/internal/core"
)

const (
	mappingGroupsQuery = `
		SELECT id, source_field, destination_field, market, user_id
		FROM map_models
		WHERE user_id IS NULL OR user_id = $1
		ORDER BY market, id
	`
	mappingsForMarketQuery = `
		SELECT id, source_field, destination_field, market, user_id
		FROM map_models
		WHERE market = $1 AND (user_id IS NULL OR user_id = $2)
		ORDER BY id
	`
	upsertMappingQuery = `
		INSERT INTO map_models (source_field, destination_field, market, user_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source_field, market, user_id)
		DO UPDATE SET destination_field = EXCLUDED.destination_field
		RETURNING id
	`
)

// MappingGroups returns the global rules and the user's own rules, one group
// per market, markets in name order. A user rule replaces the global rule
// for the same market and source column.
func (s *Store) MappingGroups(ctx context.Context, userID int64) ([][]core.MapModel, error) {
	rules, err := s.queryMappings(ctx, mappingGroupsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	rules = shadowGlobalRules(rules)

	var groups [][]core.MapModel
	for _, m := range rules {
		n := len(groups)
		if n > 0 && groups[n-1][0].Market == m.Market {
			groups[n-1] = append(groups[n-1], m)
			continue
		}
		groups = append(groups, []core.MapModel{m})
	}
	return groups, nil
}

// MappingsForMarket returns the rules of one market visible to userID.
func (s *Store) MappingsForMarket(ctx context.Context, market string, userID int64) ([]core.MapModel, error) {
	rules, err := s.queryMappings(ctx, mappingsForMarketQuery, market, userID)
	if err != nil {
		return nil, fmt.Errorf("list mappings for %s: %w", market, err)
	}
	return shadowGlobalRules(rules), nil
}

// shadowGlobalRules drops global rules overridden by a user rule with the
// same market and source column. Source columns compare the way feed
// headers are matched: cleaned and case-insensitive.
func shadowGlobalRules(rules []core.MapModel) []core.MapModel {
	key := func(m core.MapModel) string {
		return m.Market + "\x00" + strings.ToLower(core.CleanCell(m.SourceField))
	}

	owned := make(map[string]bool)
	for _, m := range rules {
		if m.UserID != nil {
			owned[key(m)] = true
		}
	}
	if len(owned) == 0 {
		return rules
	}

	out := rules[:0:0]
	for _, m := range rules {
		if m.UserID == nil && owned[key(m)] {
			continue
		}
		out = append(out, m)
	}
	return out
}

// SaveMapping inserts a rule or updates the destination of an existing one
// with the same source field, market and owner.
func (s *Store) SaveMapping(ctx context.Context, m core.MapModel) (core.MapModel, error) {
	err := s.db.QueryRowContext(ctx, upsertMappingQuery,
		m.SourceField, m.DestinationField, m.Market, nullInt(m.UserID),
	).Scan(&m.ID)
	if err != nil {
		return core.MapModel{}, fmt.Errorf("save mapping: %w", err)
	}
	return m, nil
}

func (s *Store) queryMappings(ctx context.Context, query string, args ...any) ([]core.MapModel, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.MapModel
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMapping(row scanner) (core.MapModel, error) {
	var (
		m      core.MapModel
		userID sql.NullInt64
	)
	if err := row.Scan(&m.ID, &m.SourceField, &m.DestinationField, &m.Market, &userID); err != nil {
		return core.MapModel{}, err
	}
	if userID.Valid {
		id := userID.Int64
		m.UserID = &id
	}
	return m, nil
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
