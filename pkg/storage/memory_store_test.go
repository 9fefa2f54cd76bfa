package storage

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func (p *recordingPublisher) Publish(topic string, message any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := message.(ChangeEvent); ok {
		p.events = append(p.events, ev)
	}
}

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	require.NoError(t, s.PutEntity(&Entity{ID: "a", Name: "A", Type: TypeApplication, CriticalityBase: 10}))
	require.NoError(t, s.PutEntity(&Entity{ID: "b", Name: "B", Type: TypeITComponent, CriticalityBase: 20}))
	require.NoError(t, s.PutEntity(&Entity{ID: "c", Name: "C", Type: TypePlatform, CriticalityBase: 30}))
	return s
}

func TestMemoryStore_GetEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e, err := s.GetEntity(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", e.Name)
	assert.False(t, e.UpdatedAt.IsZero())

	// Returned value is a copy
	e.Name = "mutated"
	again, _ := s.GetEntity(ctx, "a")
	assert.Equal(t, "A", again.Name)

	_, err = s.GetEntity(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

func TestMemoryStore_ListWithFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.PutRelationship(&Relationship{ID: "r1", SourceID: "a", TargetID: "b", Type: DependsOn, Strength: 0.8})
	require.NoError(t, err)
	_, err = s.PutRelationship(&Relationship{ID: "r2", SourceID: "b", TargetID: "c", Type: SimilarTo, Strength: 0.3})
	require.NoError(t, err)

	all, err := s.ListEntities(ctx, EntityFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	apps, err := s.ListEntities(ctx, EntityFilter{Types: []EntityType{TypeApplication}})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "a", apps[0].ID)

	deps, err := s.ListRelationships(ctx, RelationshipFilter{Types: []RelationshipType{DependsOn}})
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, "r1", deps[0].ID)

	touchingC, err := s.ListRelationships(ctx, RelationshipFilter{EntityIDs: []string{"c"}})
	require.NoError(t, err)
	require.Len(t, touchingC, 1)
	assert.Equal(t, "r2", touchingC[0].ID)
}

func TestMemoryStore_PutRelationshipValidation(t *testing.T) {
	s := newTestStore(t)

	_, err := s.PutRelationship(&Relationship{SourceID: "a", TargetID: "a", Type: DependsOn})
	assert.True(t, errors.Is(err, ErrInvalidRelationship))

	_, err = s.PutRelationship(&Relationship{SourceID: "a", TargetID: "zzz", Type: DependsOn})
	assert.True(t, errors.Is(err, ErrEntityNotFound))

	r, err := s.PutRelationship(&Relationship{SourceID: "a", TargetID: "b", Type: Implements, Strength: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID, "empty ids are assigned")
}

func TestMemoryStore_DeleteEntityCascades(t *testing.T) {
	s := newTestStore(t)
	pub := &recordingPublisher{}
	s.SetPublisher(pub)

	_, err := s.PutRelationship(&Relationship{ID: "r1", SourceID: "a", TargetID: "b", Type: DependsOn, Strength: 0.5})
	require.NoError(t, err)
	_, err = s.PutRelationship(&Relationship{ID: "r2", SourceID: "c", TargetID: "a", Type: DependsOn, Strength: 0.5})
	require.NoError(t, err)

	require.NoError(t, s.DeleteEntity("a"))

	ents, rels := s.Counts()
	assert.Equal(t, 2, ents)
	assert.Equal(t, 0, rels)

	// 2 creates + entity delete + 2 relationship deletes
	require.Len(t, pub.events, 5)
	assert.Equal(t, ChangeEvent{Kind: ChangeEntity, Op: OpDeleted, ID: "a", At: pub.events[2].At}, pub.events[2])
	assert.Equal(t, TopicRelationships, pub.events[3].Topic())
}

func TestMemoryStore_LoadIsAtomic(t *testing.T) {
	s := newTestStore(t)

	err := s.Load(
		[]*Entity{{ID: "x", Name: "X", Type: TypeRisk}},
		[]*Relationship{{SourceID: "x", TargetID: "x", Type: DependsOn}},
	)
	require.Error(t, err)

	ents, _ := s.Counts()
	assert.Equal(t, 3, ents, "failed load leaves previous contents in place")

	err = s.Load(
		[]*Entity{{ID: "x", Name: "X", Type: TypeRisk}, {ID: "y", Name: "Y", Type: TypeRisk}},
		[]*Relationship{{SourceID: "x", TargetID: "y", Type: ConflictsWith, Strength: 0.2}},
	)
	require.NoError(t, err)
	ents, rels := s.Counts()
	assert.Equal(t, 2, ents)
	assert.Equal(t, 1, rels)
}

func TestMemoryStore_Closed(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.ListEntities(context.Background(), EntityFilter{})
	assert.True(t, IsUnavailable(err))
	assert.True(t, IsUnavailable(s.Ping(context.Background())))
}

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, validateIdentifier("cards"))
	assert.NoError(t, validateIdentifier("card_relationships2"))
	assert.Error(t, validateIdentifier("cards; DROP TABLE x"))
	assert.Error(t, validateIdentifier("1cards"))
	assert.Error(t, validateIdentifier(""))
}
