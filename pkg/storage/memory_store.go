package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChangePublisher receives change notifications. *pubsub.PubSub satisfies it.
type ChangePublisher interface {
	Publish(topic string, message any)
}

// MemoryStore is an in-memory Entity and Relationship store. It backs
// standalone deployments (loaded from a snapshot) and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	entities      map[string]*Entity
	relationships map[string]*Relationship
	publisher     ChangePublisher
	closed        bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities:      make(map[string]*Entity),
		relationships: make(map[string]*Relationship),
	}
}

// SetPublisher attaches a change publisher; mutations are announced on it.
func (s *MemoryStore) SetPublisher(p ChangePublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
}

// GetEntity returns a copy of the entity with the given id.
func (s *MemoryStore) GetEntity(ctx context.Context, id string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewError("GetEntity").Entity(id).Cause(ErrStoreClosed).Err()
	}
	e, ok := s.entities[id]
	if !ok {
		return nil, EntityNotFoundError(id)
	}
	clone := *e
	return &clone, nil
}

// ListEntities returns copies of all matching entities ordered by id.
func (s *MemoryStore) ListEntities(ctx context.Context, filter EntityFilter) ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewError("ListEntities").Cause(ErrStoreClosed).Err()
	}
	out := make([]*Entity, 0, len(s.entities))
	for _, e := range s.entities {
		if !filter.Matches(e) {
			continue
		}
		clone := *e
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListRelationships returns copies of all matching relationships ordered by id.
func (s *MemoryStore) ListRelationships(ctx context.Context, filter RelationshipFilter) ([]*Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, NewError("ListRelationships").Cause(ErrStoreClosed).Err()
	}
	out := make([]*Relationship, 0, len(s.relationships))
	for _, r := range s.relationships {
		if !filter.Matches(r) {
			continue
		}
		clone := *r
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// PutEntity creates or replaces an entity.
func (s *MemoryStore) PutEntity(e *Entity) error {
	if err := e.Validate(); err != nil {
		return NewError("PutEntity").Entity(e.ID).Cause(wrapCause(ErrInvalidEntity, err)).Err()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return NewError("PutEntity").Entity(e.ID).Cause(ErrStoreClosed).Err()
	}
	op := OpCreated
	if _, exists := s.entities[e.ID]; exists {
		op = OpUpdated
	}
	clone := *e
	if clone.UpdatedAt.IsZero() {
		clone.UpdatedAt = time.Now().UTC()
	}
	s.entities[e.ID] = &clone
	pub := s.publisher
	s.mu.Unlock()

	notify(pub, ChangeEntity, op, e.ID)
	return nil
}

// PutRelationship creates or replaces a relationship. An empty ID is
// assigned a random UUID. Both endpoints must exist.
func (s *MemoryStore) PutRelationship(r *Relationship) (*Relationship, error) {
	clone := *r
	if clone.ID == "" {
		clone.ID = uuid.NewString()
	}
	if err := clone.Validate(); err != nil {
		return nil, NewError("PutRelationship").Relationship(clone.ID).Cause(wrapCause(ErrInvalidRelationship, err)).Err()
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, NewError("PutRelationship").Relationship(clone.ID).Cause(ErrStoreClosed).Err()
	}
	if _, ok := s.entities[clone.SourceID]; !ok {
		s.mu.Unlock()
		return nil, NewError("PutRelationship").Entity(clone.SourceID).Cause(ErrEntityNotFound).Err()
	}
	if _, ok := s.entities[clone.TargetID]; !ok {
		s.mu.Unlock()
		return nil, NewError("PutRelationship").Entity(clone.TargetID).Cause(ErrEntityNotFound).Err()
	}
	op := OpCreated
	if _, exists := s.relationships[clone.ID]; exists {
		op = OpUpdated
	}
	s.relationships[clone.ID] = &clone
	pub := s.publisher
	s.mu.Unlock()

	notify(pub, ChangeRelationship, op, clone.ID)
	out := clone
	return &out, nil
}

// DeleteRelationship removes a relationship by id.
func (s *MemoryStore) DeleteRelationship(id string) error {
	s.mu.Lock()
	if _, ok := s.relationships[id]; !ok {
		s.mu.Unlock()
		return NewError("DeleteRelationship").Relationship(id).Cause(ErrRelationshipNotFound).Err()
	}
	delete(s.relationships, id)
	pub := s.publisher
	s.mu.Unlock()

	notify(pub, ChangeRelationship, OpDeleted, id)
	return nil
}

// DeleteEntity removes an entity and every relationship touching it.
func (s *MemoryStore) DeleteEntity(id string) error {
	s.mu.Lock()
	if _, ok := s.entities[id]; !ok {
		s.mu.Unlock()
		return EntityNotFoundError(id)
	}
	delete(s.entities, id)
	var removed []string
	for relID, r := range s.relationships {
		if r.SourceID == id || r.TargetID == id {
			delete(s.relationships, relID)
			removed = append(removed, relID)
		}
	}
	pub := s.publisher
	s.mu.Unlock()

	notify(pub, ChangeEntity, OpDeleted, id)
	for _, relID := range removed {
		notify(pub, ChangeRelationship, OpDeleted, relID)
	}
	return nil
}

// Load replaces the store contents in one step. Invalid records and
// relationships with unknown endpoints are rejected and nothing is changed.
func (s *MemoryStore) Load(entities []*Entity, relationships []*Relationship) error {
	ents := make(map[string]*Entity, len(entities))
	for _, e := range entities {
		if e == nil {
			continue
		}
		if err := e.Validate(); err != nil {
			return NewError("Load").Entity(e.ID).Cause(wrapCause(ErrInvalidEntity, err)).Err()
		}
		clone := *e
		ents[e.ID] = &clone
	}
	rels := make(map[string]*Relationship, len(relationships))
	for _, r := range relationships {
		if r == nil {
			continue
		}
		clone := *r
		if clone.ID == "" {
			clone.ID = uuid.NewString()
		}
		if err := clone.Validate(); err != nil {
			return NewError("Load").Relationship(clone.ID).Cause(wrapCause(ErrInvalidRelationship, err)).Err()
		}
		for _, end := range []string{clone.SourceID, clone.TargetID} {
			if _, ok := ents[end]; !ok {
				return NewError("Load").Relationship(clone.ID).Entity(end).Cause(ErrEntityNotFound).Err()
			}
		}
		rels[clone.ID] = &clone
	}

	s.mu.Lock()
	s.entities = ents
	s.relationships = rels
	pub := s.publisher
	s.mu.Unlock()

	notify(pub, ChangeRelationship, OpUpdated, "*")
	return nil
}

// Counts returns the number of stored entities and relationships.
func (s *MemoryStore) Counts() (entities, relationships int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities), len(s.relationships)
}

// Ping reports whether the store is open.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// Close marks the store closed; subsequent reads fail with ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func notify(pub ChangePublisher, kind ChangeKind, op ChangeOp, id string) {
	if pub == nil {
		return
	}
	ev := ChangeEvent{Kind: kind, Op: op, ID: id, At: time.Now().UTC()}
	pub.Publish(ev.Topic(), ev)
}
