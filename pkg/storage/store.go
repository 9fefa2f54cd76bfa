package storage

import (
	"context"
	"time"
)

// EntityFilter narrows ListEntities. Zero value matches everything.
type EntityFilter struct {
	IDs   []string
	Types []EntityType
}

// Matches reports whether e passes the filter.
func (f EntityFilter) Matches(e *Entity) bool {
	if len(f.IDs) > 0 && !containsString(f.IDs, e.ID) {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == e.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// RelationshipFilter narrows ListRelationships. Zero value matches everything.
type RelationshipFilter struct {
	Types     []RelationshipType
	EntityIDs []string // either endpoint in the set
}

// Matches reports whether r passes the filter.
func (f RelationshipFilter) Matches(r *Relationship) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == r.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.EntityIDs) > 0 &&
		!containsString(f.EntityIDs, r.SourceID) && !containsString(f.EntityIDs, r.TargetID) {
		return false
	}
	return true
}

// EntityStore is the read side of the entity (card) persistence owned by the
// CRUD layer.
type EntityStore interface {
	GetEntity(ctx context.Context, id string) (*Entity, error)
	ListEntities(ctx context.Context, filter EntityFilter) ([]*Entity, error)
}

// RelationshipStore is the read side of relationship persistence.
type RelationshipStore interface {
	ListRelationships(ctx context.Context, filter RelationshipFilter) ([]*Relationship, error)
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ChangeKind identifies what a ChangeEvent refers to.
type ChangeKind string

const (
	ChangeEntity       ChangeKind = "entity"
	ChangeRelationship ChangeKind = "relationship"
)

// ChangeOp is the mutation applied by the CRUD layer.
type ChangeOp string

const (
	OpCreated ChangeOp = "created"
	OpUpdated ChangeOp = "updated"
	OpDeleted ChangeOp = "deleted"
)

// ChangeEvent notifies readers that persisted state changed.
type ChangeEvent struct {
	Kind ChangeKind `json:"kind"`
	Op   ChangeOp   `json:"op"`
	ID   string     `json:"id"`
	At   time.Time  `json:"at"`
}

// Topic returns the pubsub topic an event is published on.
func (e ChangeEvent) Topic() string {
	if e.Kind == ChangeEntity {
		return TopicEntities
	}
	return TopicRelationships
}

// Pubsub topics for change notifications.
const (
	TopicEntities      = "entities"
	TopicRelationships = "relationships"
)

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
