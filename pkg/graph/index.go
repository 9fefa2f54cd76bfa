package graph

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-archgraph/pkg/logging"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

// Edge is one relationship as seen from the index.
type Edge struct {
	ID       string                   `json:"id"`
	From     string                   `json:"source"`
	To       string                   `json:"target"`
	Type     storage.RelationshipType `json:"type"`
	Strength float64                  `json:"strength"`
}

// Stats summarises an index build.
type Stats struct {
	Entities      int                              `json:"entities"`
	Relationships int                              `json:"relationships"`
	Skipped       int                              `json:"skipped"`
	ByType        map[storage.RelationshipType]int `json:"byType"`
	Version       uint64                           `json:"version"`
	BuiltAt       time.Time                        `json:"builtAt"`
	BuildDuration time.Duration                    `json:"buildDuration"`
}

// Index is an immutable adjacency snapshot of the entity and relationship
// stores. All methods are safe for concurrent use; returned slices are shared
// and must not be modified.
type Index struct {
	entities map[string]*storage.Entity
	ids      []string
	out      map[string][]Edge
	in       map[string][]Edge
	stats    Stats
}

var versionCounter atomic.Uint64

type buildConfig struct {
	logger logging.Logger
}

// BuildOption customises Build and FromRecords.
type BuildOption func(*buildConfig)

// WithLogger sets the logger used to report skipped relationships.
func WithLogger(l logging.Logger) BuildOption {
	return func(c *buildConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Build reads both stores and returns a new index. Store failures are
// reported as Unavailable, cancellation as Timeout.
func Build(ctx context.Context, entities storage.EntityStore, rels storage.RelationshipStore, opts ...BuildOption) (*Index, error) {
	start := time.Now()

	ents, err := entities.ListEntities(ctx, storage.EntityFilter{})
	if err != nil {
		return nil, FromStore("build index", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, FromContext("build index", err)
	}
	edges, err := rels.ListRelationships(ctx, storage.RelationshipFilter{})
	if err != nil {
		return nil, FromStore("build index", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, FromContext("build index", err)
	}

	idx := FromRecords(ents, edges, opts...)
	idx.stats.BuildDuration = time.Since(start)
	return idx, nil
}

// FromRecords builds an index from already loaded records. Relationships
// that are self-loops, reference unknown entities or fail validation are
// skipped and counted.
func FromRecords(entities []*storage.Entity, rels []*storage.Relationship, opts ...BuildOption) *Index {
	cfg := buildConfig{logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(&cfg)
	}

	idx := &Index{
		entities: make(map[string]*storage.Entity, len(entities)),
		out:      make(map[string][]Edge),
		in:       make(map[string][]Edge),
		stats: Stats{
			ByType: make(map[storage.RelationshipType]int, len(storage.RelationshipTypes)),
		},
	}
	for _, t := range storage.RelationshipTypes {
		idx.stats.ByType[t] = 0
	}

	for _, e := range entities {
		if e == nil || e.ID == "" {
			continue
		}
		clone := *e
		idx.entities[e.ID] = &clone
	}
	idx.ids = make([]string, 0, len(idx.entities))
	for id := range idx.entities {
		idx.ids = append(idx.ids, id)
	}
	sort.Strings(idx.ids)

	for _, r := range rels {
		if r == nil {
			continue
		}
		if err := r.Validate(); err != nil {
			idx.stats.Skipped++
			cfg.logger.Warn("skipping invalid relationship",
				logging.RelationshipID(r.ID), logging.Error(err))
			continue
		}
		if _, ok := idx.entities[r.SourceID]; !ok {
			idx.stats.Skipped++
			cfg.logger.Warn("skipping relationship with unknown source",
				logging.RelationshipID(r.ID), logging.EntityID(r.SourceID))
			continue
		}
		if _, ok := idx.entities[r.TargetID]; !ok {
			idx.stats.Skipped++
			cfg.logger.Warn("skipping relationship with unknown target",
				logging.RelationshipID(r.ID), logging.EntityID(r.TargetID))
			continue
		}

		edge := Edge{ID: r.ID, From: r.SourceID, To: r.TargetID, Type: r.Type, Strength: r.Strength}
		idx.out[edge.From] = append(idx.out[edge.From], edge)
		idx.in[edge.To] = append(idx.in[edge.To], edge)
		idx.stats.ByType[edge.Type]++
		idx.stats.Relationships++
	}

	for _, list := range idx.out {
		sort.Slice(list, func(i, j int) bool { return edgeLess(list[i], list[j], list[i].To, list[j].To) })
	}
	for _, list := range idx.in {
		sort.Slice(list, func(i, j int) bool { return edgeLess(list[i], list[j], list[i].From, list[j].From) })
	}

	idx.stats.Entities = len(idx.entities)
	idx.stats.Version = versionCounter.Add(1)
	idx.stats.BuiltAt = time.Now()
	return idx
}

// edgeLess orders by type, then neighbour id, then edge id.
func edgeLess(a, b Edge, na, nb string) bool {
	if a.Type != b.Type {
		return a.Type < b.Type
	}
	if na != nb {
		return na < nb
	}
	return a.ID < b.ID
}

// Version identifies this snapshot. Later builds have larger versions.
func (idx *Index) Version() uint64 { return idx.stats.Version }

// BuiltAt returns when the snapshot was taken.
func (idx *Index) BuiltAt() time.Time { return idx.stats.BuiltAt }

// Stats returns build statistics. The ByType map is a copy.
func (idx *Index) Stats() Stats {
	s := idx.stats
	s.ByType = make(map[storage.RelationshipType]int, len(idx.stats.ByType))
	for k, v := range idx.stats.ByType {
		s.ByType[k] = v
	}
	return s
}

// Len returns the number of entities.
func (idx *Index) Len() int { return len(idx.ids) }

// TypeCount returns how many indexed relationships have type t.
func (idx *Index) TypeCount(t storage.RelationshipType) int { return idx.stats.ByType[t] }

// Entity returns the entity with the given id.
func (idx *Index) Entity(id string) (*storage.Entity, bool) {
	e, ok := idx.entities[id]
	return e, ok
}

// Has reports whether id is a known entity.
func (idx *Index) Has(id string) bool {
	_, ok := idx.entities[id]
	return ok
}

// EntityIDs returns every entity id in ascending order.
func (idx *Index) EntityIDs() []string { return idx.ids }

// Successors returns edges leaving id, restricted to types when given.
func (idx *Index) Successors(id string, types ...storage.RelationshipType) ([]Edge, error) {
	if !idx.Has(id) {
		return nil, NotFound("successors", id)
	}
	return filterEdges(idx.out[id], types), nil
}

// Predecessors returns edges entering id, restricted to types when given.
func (idx *Index) Predecessors(id string, types ...storage.RelationshipType) ([]Edge, error) {
	if !idx.Has(id) {
		return nil, NotFound("predecessors", id)
	}
	return filterEdges(idx.in[id], types), nil
}

// OutDegree counts edges leaving id whose type is in set (all types when
// set is nil). Unknown ids have degree zero.
func (idx *Index) OutDegree(id string, set TypeSet) int {
	return countEdges(idx.out[id], set)
}

// InDegree counts edges entering id whose type is in set.
func (idx *Index) InDegree(id string, set TypeSet) int {
	return countEdges(idx.in[id], set)
}

func countEdges(list []Edge, set TypeSet) int {
	if set.All() {
		return len(list)
	}
	n := 0
	for _, e := range list {
		if set.Contains(e.Type) {
			n++
		}
	}
	return n
}

func filterEdges(list []Edge, types []storage.RelationshipType) []Edge {
	if len(types) == 0 {
		if list == nil {
			return []Edge{}
		}
		return list
	}
	set := NewTypeSet(types...)
	out := make([]Edge, 0, len(list))
	for _, e := range list {
		if set.Contains(e.Type) {
			out = append(out, e)
		}
	}
	return out
}

// TypeSet is a bitmask over relationship types. The zero value means "all".
type TypeSet uint8

// NewTypeSet builds a set from types. No types yields the "all" set.
func NewTypeSet(types ...storage.RelationshipType) TypeSet {
	var s TypeSet
	for _, t := range types {
		if t.IsValid() {
			s |= 1 << t
		}
	}
	return s
}

// All reports whether the set places no restriction.
func (s TypeSet) All() bool { return s == 0 }

// Contains reports whether t passes the set.
func (s TypeSet) Contains(t storage.RelationshipType) bool {
	return s == 0 || s&(1<<t) != 0
}

// Types lists the members in enumeration order; nil for the "all" set.
func (s TypeSet) Types() []storage.RelationshipType {
	if s == 0 {
		return nil
	}
	var out []storage.RelationshipType
	for _, t := range storage.RelationshipTypes {
		if s&(1<<t) != 0 {
			out = append(out, t)
		}
	}
	return out
}
