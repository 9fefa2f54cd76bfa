// Package engine serves relationship queries against cached snapshots of the
// entity and relationship stores.
//
// Staleness: the snapshot is rebuilt on the first request after an
// invalidation (change event or manual Invalidate) or once it is older than
// Config.CacheTTL. Events are processed asynchronously, so a write becomes
// visible no later than the next request after its event is handled. Requests
// already running keep the snapshot they started with.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dd0wney/cluso-archgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/logging"
	"github.com/dd0wney/cluso-archgraph/pkg/metrics"
	"github.com/dd0wney/cluso-archgraph/pkg/pubsub"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

// Invalidation sources, used as the metrics label.
const (
	SourceEvent  = "event"
	SourceManual = "manual"
	SourceTTL    = "ttl"
)

// Engine answers chain, impact, matrix, critical path and cycle queries. It is
// safe for concurrent use.
type Engine struct {
	entities storage.EntityStore
	rels     storage.RelationshipStore
	cfg      Config
	scorer   algorithms.Scorer
	logger   logging.Logger
	metrics  *metrics.Registry
	now      func() time.Time

	// generation is bumped by every invalidation; a snapshot built at an
	// older generation is stale.
	generation atomic.Uint64
	current    atomic.Pointer[snapshot]
	rebuildMu  sync.Mutex

	impactCache *lru.Cache[string, *algorithms.ImpactResult]
}

type snapshot struct {
	idx        *graph.Index
	generation uint64
	crit       algorithms.CriticalityFunc
}

// Option customises an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics sets the metrics registry. Without it the engine records into
// a private registry.
func WithMetrics(r *metrics.Registry) Option {
	return func(e *Engine) {
		if r != nil {
			e.metrics = r
		}
	}
}

// WithScorer replaces the default criticality scorer.
func WithScorer(s algorithms.Scorer) Option {
	return func(e *Engine) { e.scorer = s }
}

// WithClock overrides time.Now for TTL checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an engine over the given stores.
func New(entities storage.EntityStore, rels storage.RelationshipStore, cfg Config, opts ...Option) (*Engine, error) {
	if entities == nil || rels == nil {
		return nil, errors.New("engine: entity and relationship stores are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		entities: entities,
		rels:     rels,
		cfg:      cfg,
		scorer:   algorithms.DefaultScorer(),
		logger:   logging.NewNopLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.NewRegistry()
	}
	e.logger = e.logger.With(logging.Component("engine"))

	cache, err := lru.New[string, *algorithms.ImpactResult](cfg.ImpactCacheSize)
	if err != nil {
		return nil, fmt.Errorf("engine: impact cache: %w", err)
	}
	e.impactCache = cache
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Invalidate marks the current snapshot stale. The next query rebuilds.
func (e *Engine) Invalidate(source string) {
	gen := e.generation.Add(1)
	e.metrics.RecordInvalidation(source)
	e.logger.Debug("snapshot invalidated",
		logging.String("source", source), logging.Uint64("generation", gen))
}

// Watch subscribes to entity and relationship change topics and invalidates
// on every burst of events. It returns once the subscription exists; the
// listener stops when ctx is cancelled or ps shuts down.
func (e *Engine) Watch(ctx context.Context, ps *pubsub.PubSub) error {
	sub, err := ps.Subscribe(ctx, storage.TopicRelationships, storage.TopicEntities)
	if err != nil {
		return fmt.Errorf("engine: subscribe: %w", err)
	}
	go e.listen(sub)
	return nil
}

// listen invalidates once per received message plus whatever was already
// queued behind it, so a bulk import costs one generation bump per read.
func (e *Engine) listen(sub *pubsub.Subscription) {
	for msg := range sub.Channel() {
		if ev, ok := msg.(storage.ChangeEvent); ok {
			e.logger.Debug("change event",
				logging.String("kind", string(ev.Kind)),
				logging.String("op", string(ev.Op)),
				logging.String("id", ev.ID))
		}
		if n := sub.Drain(); n > 0 {
			e.logger.Debug("coalesced change events", logging.Int("count", n+1))
		}
		e.Invalidate(SourceEvent)
	}
}

// Snapshot returns statistics for a fresh snapshot, rebuilding if needed.
func (e *Engine) Snapshot(ctx context.Context) (graph.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()
	s, err := e.snapshot(ctx)
	if err != nil {
		return graph.Stats{}, err
	}
	return s.idx.Stats(), nil
}

// LastSnapshot returns the statistics of the cached snapshot without
// rebuilding, and whether one exists and is still fresh.
func (e *Engine) LastSnapshot() (graph.Stats, bool, bool) {
	s := e.current.Load()
	if s == nil {
		return graph.Stats{}, false, false
	}
	return s.idx.Stats(), true, e.fresh(s)
}

// Ping checks the entity store, then the relationship store when it is a
// different value. Stores without a Ping method are assumed reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if p, ok := e.entities.(storage.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return graph.FromStore("ping", err)
		}
	}
	if p, ok := e.rels.(storage.Pinger); ok && any(e.rels) != any(e.entities) {
		if err := p.Ping(ctx); err != nil {
			return graph.FromStore("ping", err)
		}
	}
	return nil
}

func (e *Engine) fresh(s *snapshot) bool {
	if s.generation != e.generation.Load() {
		return false
	}
	return e.now().Sub(s.idx.BuiltAt()) < e.cfg.CacheTTL
}

// snapshot returns the cached index, rebuilding it single-flight when stale.
func (e *Engine) snapshot(ctx context.Context) (*snapshot, error) {
	if s := e.current.Load(); s != nil && e.fresh(s) {
		return s, nil
	}

	e.rebuildMu.Lock()
	defer e.rebuildMu.Unlock()

	prev := e.current.Load()
	if prev != nil && e.fresh(prev) {
		return prev, nil
	}
	if prev != nil && prev.generation == e.generation.Load() {
		e.metrics.RecordInvalidation(SourceTTL)
	}

	gen := e.generation.Load()
	timer := logging.StartTimer(e.logger, "snapshot rebuilt")
	idx, err := graph.Build(ctx, e.entities, e.rels, graph.WithLogger(e.logger))
	if err != nil {
		e.metrics.RecordSnapshotRebuild(err, timer.Elapsed(), 0, 0, 0, 0)
		timer.EndError(err)
		return nil, err
	}

	st := idx.Stats()
	e.metrics.RecordSnapshotRebuild(nil, timer.Elapsed(), st.Entities, st.Relationships, st.Skipped, st.Version)
	timer.End(
		logging.Version(st.Version),
		logging.Int("entities", st.Entities),
		logging.Int("relationships", st.Relationships),
		logging.Int("skipped", st.Skipped))

	s := &snapshot{idx: idx, generation: gen}
	s.crit = func(ctx context.Context, id string) (float64, error) {
		res, err := e.impactFor(ctx, s, id)
		if err != nil {
			return 0, err
		}
		return res.Criticality, nil
	}
	e.current.Store(s)
	return s, nil
}

// impactFor serves impact results from the LRU, keyed by snapshot version.
// Cached results are shared and must not be modified.
func (e *Engine) impactFor(ctx context.Context, s *snapshot, id string) (*algorithms.ImpactResult, error) {
	key := fmt.Sprintf("%d:%s", s.idx.Version(), id)
	if res, ok := e.impactCache.Get(key); ok {
		e.metrics.RecordImpactCache(true)
		return res, nil
	}
	e.metrics.RecordImpactCache(false)

	scorer := e.scorer
	res, err := algorithms.Impact(ctx, s.idx, id, algorithms.ImpactOptions{Scorer: &scorer})
	if err != nil {
		return nil, err
	}
	e.impactCache.Add(key, res)
	return res, nil
}

// run executes one query under the configured timeout and records its
// outcome. fn returns the result size for metrics.
func (e *Engine) run(ctx context.Context, op string, fields []logging.Field, fn func(ctx context.Context, s *snapshot) (int, error)) error {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	timer := logging.StartTimer(e.logger, op+" query", append(fields, logging.Operation(op))...)

	size := 0
	s, err := e.snapshot(ctx)
	if err == nil {
		e.metrics.SetSnapshotAge(e.now().Sub(s.idx.BuiltAt()))
		size, err = fn(ctx, s)
	}
	if err != nil && ctx.Err() != nil && graph.KindOf(err) != graph.KindTimeout {
		err = graph.FromContext(op, ctx.Err())
	}

	kind := "ok"
	if err != nil {
		kind = graph.KindOf(err).String()
	}
	e.metrics.RecordQuery(op, kind, timer.Elapsed(), size)

	switch {
	case err == nil:
		timer.End(logging.Count(size))
	case graph.IsRetryable(err):
		timer.EndWarn(op+" query failed", logging.Error(err))
	case graph.KindOf(err) == graph.KindInternal:
		timer.EndError(err)
	default:
		timer.End(logging.Error(err))
	}
	return err
}
