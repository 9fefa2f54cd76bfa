package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// GetEntity retrieves a card by id.
func (s *PGStore) GetEntity(ctx context.Context, id string) (*Entity, error) {
	query := fmt.Sprintf(`
		SELECT id, name, type, criticality_base, updated_at
		FROM %s
		WHERE id = $1
	`, s.entityTable)

	e := &Entity{}
	var typ string
	var updatedAt *time.Time
	err := s.pool.QueryRow(ctx, query, id).Scan(&e.ID, &e.Name, &typ, &e.CriticalityBase, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, EntityNotFoundError(id)
	}
	if err != nil {
		return nil, UnavailableError("GetEntity", "entity", err)
	}
	e.Type = EntityType(typ)
	if updatedAt != nil {
		e.UpdatedAt = *updatedAt
	}
	return e, nil
}

// ListEntities retrieves all cards matching filter, ordered by id.
func (s *PGStore) ListEntities(ctx context.Context, filter EntityFilter) ([]*Entity, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.IDs) > 0 {
		args = append(args, filter.IDs)
		where = append(where, fmt.Sprintf("id = ANY($%d)", len(args)))
	}
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = string(t)
		}
		args = append(args, types)
		where = append(where, fmt.Sprintf("type = ANY($%d)", len(args)))
	}

	query := fmt.Sprintf(`SELECT id, name, type, criticality_base, updated_at FROM %s`, s.entityTable)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, UnavailableError("ListEntities", "entity", err)
	}
	defer rows.Close()

	entities := make([]*Entity, 0)
	for rows.Next() {
		e := &Entity{}
		var typ string
		var updatedAt *time.Time
		if err := rows.Scan(&e.ID, &e.Name, &typ, &e.CriticalityBase, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		e.Type = EntityType(typ)
		if !e.Type.IsValid() {
			s.skippedRows.Add(1)
			continue
		}
		if updatedAt != nil {
			e.UpdatedAt = *updatedAt
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, UnavailableError("ListEntities", "entity", err)
	}
	return entities, nil
}

// ListRelationships retrieves relationships matching filter, ordered by id.
func (s *PGStore) ListRelationships(ctx context.Context, filter RelationshipFilter) ([]*Relationship, error) {
	var (
		where []string
		args  []any
	)
	if len(filter.Types) > 0 {
		types := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			types[i] = t.String()
		}
		args = append(args, types)
		where = append(where, fmt.Sprintf("type = ANY($%d)", len(args)))
	}
	if len(filter.EntityIDs) > 0 {
		args = append(args, filter.EntityIDs)
		where = append(where, fmt.Sprintf("(source_id = ANY($%d) OR target_id = ANY($%d))", len(args), len(args)))
	}

	query := fmt.Sprintf(`SELECT id, source_id, target_id, type, strength FROM %s`, s.relationshipTable)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, UnavailableError("ListRelationships", "relationship", err)
	}
	defer rows.Close()

	rels := make([]*Relationship, 0)
	for rows.Next() {
		r := &Relationship{}
		var typ string
		if err := rows.Scan(&r.ID, &r.SourceID, &r.TargetID, &typ, &r.Strength); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		rt, err := ParseRelationshipType(typ)
		if err != nil {
			s.skippedRows.Add(1)
			continue
		}
		r.Type = rt
		rels = append(rels, r)
	}
	if err := rows.Err(); err != nil {
		return nil, UnavailableError("ListRelationships", "relationship", err)
	}
	return rels, nil
}
