package algorithms

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

// Critical path defaults.
const (
	DefaultPathMinLength     = 3
	DefaultPathMaxLength     = 8
	DefaultPathThreshold     = MediumFloor
	DefaultPathLimit         = 10
	DefaultPathMaxExpansions = 200_000
)

// pathNamespace scopes the deterministic path ids.
var pathNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("archgraph:critical-path"))

// PathOptions configures CriticalPaths. Zero values take the defaults above.
type PathOptions struct {
	Types         []storage.RelationshipType // nil walks the dependency types
	MinLength     int                        // minimum cards on a path
	MaxLength     int                        // maximum cards on a path
	Threshold     float64                    // minimum riskScore
	Limit         int                        // maximum paths returned
	MaxExpansions int64                      // DFS work budget across all roots
	Concurrency   int                        // roots explored in parallel

	Criticality CriticalityFunc
}

func (o PathOptions) withDefaults() PathOptions {
	if len(o.Types) == 0 {
		o.Types = storage.DependencyTypes()
	}
	if o.MinLength <= 0 {
		o.MinLength = DefaultPathMinLength
	}
	if o.MaxLength <= 0 {
		o.MaxLength = DefaultPathMaxLength
	}
	if o.MaxLength < o.MinLength {
		o.MaxLength = o.MinLength
	}
	if o.Threshold <= 0 {
		o.Threshold = DefaultPathThreshold
	}
	if o.Limit <= 0 {
		o.Limit = DefaultPathLimit
	}
	if o.MaxExpansions <= 0 {
		o.MaxExpansions = DefaultPathMaxExpansions
	}
	if o.Concurrency <= 0 {
		o.Concurrency = runtime.GOMAXPROCS(0)
	}
	return o
}

// CriticalPath is a ranked dependency chain.
type CriticalPath struct {
	ID              string   `json:"id"`
	Cards           []string `json:"cards"`
	RiskScore       float64  `json:"riskScore"`
	MeanCriticality float64  `json:"meanCriticality"`
	MinStrength     float64  `json:"minStrength"`
}

// CriticalPaths searches maximal simple paths over the walk types and
// returns the highest-risk ones:
//
//	riskScore = mean(criticality of cards) * (0.5 + 0.5*minEdgeStrength)
//
// Paths start from every entity of a source component of the condensation:
// entities with no incoming walk edge, and every member of a dependency loop
// that nothing outside the loop enters. Paths never revisit a card.
//
// The search is branch-and-bound: a prefix is dropped once no completion can
// beat the current Limit-th path or reach the threshold. The ranking is a
// strict total order, so the answer does not depend on exploration order.
// Exceeding MaxExpansions or the context deadline returns a Timeout error
// rather than a partial ranking.
func CriticalPaths(ctx context.Context, idx *graph.Index, opts PathOptions) ([]CriticalPath, error) {
	opts = opts.withDefaults()
	if err := graph.FromContext("critical_paths", ctx.Err()); err != nil {
		return nil, err
	}
	if idx.Len() == 0 {
		return []CriticalPath{}, nil
	}

	criticality := opts.Criticality
	if criticality == nil {
		criticality = NewCriticalityFunc(idx, DefaultScorer())
	}

	p := newPoller(ctx, "critical_paths")
	roots, err := pathRoots(p, idx, opts.Types)
	if err != nil {
		return nil, err
	}
	crit := make(map[string]float64, idx.Len())
	for _, id := range idx.EntityIDs() {
		if err := p.check(); err != nil {
			return nil, err
		}
		c, err := criticality(ctx, id)
		if err != nil {
			return nil, err
		}
		crit[id] = c
	}
	bounds, err := newPathBounds(p, idx, opts, crit)
	if err != nil {
		return nil, err
	}

	rank := &ranking{limit: opts.Limit}
	var expansions atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, root := range roots {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			w := &pathWalker{
				opts:       opts,
				bounds:     bounds,
				crit:       crit,
				rank:       rank,
				poll:       newPoller(gctx, "critical_paths"),
				expansions: &expansions,
				onPath:     make(map[string]bool),
			}
			return w.walk(root)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := graph.FromContext("critical_paths", ctx.Err()); err != nil {
		return nil, err
	}
	return rank.result(), nil
}

// pathRoots returns the members of every strongly connected component that
// no other component has an edge into, in entity order.
func pathRoots(p *poller, idx *graph.Index, types []storage.RelationshipType) ([]string, error) {
	components, err := stronglyConnected(p, idx, types)
	if err != nil {
		return nil, err
	}
	comp := make(map[string]int, idx.Len())
	for i, members := range components {
		for _, id := range members {
			comp[id] = i
		}
	}
	entered := make([]bool, len(components))
	for _, id := range idx.EntityIDs() {
		edges, _ := idx.Successors(id, types...)
		for _, e := range edges {
			if comp[e.To] != comp[id] {
				entered[comp[e.To]] = true
			}
		}
	}

	roots := make([]string, 0)
	for _, id := range idx.EntityIDs() {
		if !entered[comp[id]] {
			roots = append(roots, id)
		}
	}
	return roots, nil
}

type pathStep struct {
	to       string
	strength float64
}

// pathBounds holds the per-entity tables the search prunes with. Both are
// computed over walks rather than simple paths, so they only overestimate.
type pathBounds struct {
	next map[string][]pathStep
	// gain[id][k] is the largest criticality sum of the k cards after id
	// on any k-step walk; -Inf when no such walk exists.
	gain map[string][]float64
	// grip[id][k] is the largest bottleneck strength of a k-step walk.
	grip map[string][]float64
}

func newPathBounds(p *poller, idx *graph.Index, opts PathOptions, crit map[string]float64) (*pathBounds, error) {
	ids := idx.EntityIDs()
	b := &pathBounds{
		next: make(map[string][]pathStep, len(ids)),
		gain: make(map[string][]float64, len(ids)),
		grip: make(map[string][]float64, len(ids)),
	}
	for _, id := range ids {
		b.next[id] = collapseSteps(idx, id, opts.Types)
		gain := make([]float64, opts.MaxLength)
		grip := make([]float64, opts.MaxLength)
		for k := 1; k < opts.MaxLength; k++ {
			gain[k] = math.Inf(-1)
		}
		grip[0] = 1
		b.gain[id] = gain
		b.grip[id] = grip
	}

	for k := 1; k < opts.MaxLength; k++ {
		for _, id := range ids {
			if err := p.check(); err != nil {
				return nil, err
			}
			for _, step := range b.next[id] {
				prev := b.gain[step.to][k-1]
				if math.IsInf(prev, -1) {
					continue
				}
				b.gain[id][k] = math.Max(b.gain[id][k], crit[step.to]+prev)
				b.grip[id][k] = math.Max(b.grip[id][k], math.Min(step.strength, b.grip[step.to][k-1]))
			}
		}
	}

	// Visit the most promising successor first so the cut tightens early.
	lead := make(map[string]float64, len(ids))
	for _, id := range ids {
		best := crit[id]
		for k, g := range b.gain[id] {
			if !math.IsInf(g, -1) {
				best = math.Max(best, (crit[id]+g)/float64(k+1))
			}
		}
		lead[id] = best
	}
	for _, steps := range b.next {
		sort.Slice(steps, func(i, j int) bool {
			a, c := steps[i], steps[j]
			if lead[a.to] != lead[c.to] {
				return lead[a.to] > lead[c.to]
			}
			if a.strength != c.strength {
				return a.strength > c.strength
			}
			return a.to < c.to
		})
	}
	return b, nil
}

// collapseSteps keeps one step per target, with the strongest parallel edge.
func collapseSteps(idx *graph.Index, id string, types []storage.RelationshipType) []pathStep {
	edges, _ := idx.Successors(id, types...)
	steps := make([]pathStep, 0, len(edges))
	pos := make(map[string]int, len(edges))
	for _, e := range edges {
		if i, ok := pos[e.To]; ok {
			if e.Strength > steps[i].strength {
				steps[i].strength = e.Strength
			}
			continue
		}
		pos[e.To] = len(steps)
		steps = append(steps, pathStep{to: e.To, strength: e.Strength})
	}
	return steps
}

// boundSlack absorbs summation-order differences between a bound and the
// exact score of the path it bounds.
const boundSlack = 1e-9

type pathWalker struct {
	opts       PathOptions
	bounds     *pathBounds
	crit       map[string]float64
	rank       *ranking
	poll       *poller
	expansions *atomic.Int64

	path      []string
	strengths []float64
	sum       float64
	onPath    map[string]bool
}

// walk searches the maximal simple paths starting at root.
func (w *pathWalker) walk(root string) error {
	w.path = append(w.path[:0], root)
	w.strengths = w.strengths[:0]
	w.sum = w.crit[root]
	w.onPath[root] = true
	defer delete(w.onPath, root)
	return w.extend(root)
}

func (w *pathWalker) extend(current string) error {
	if w.expansions.Add(1) > w.opts.MaxExpansions {
		return graph.Timeout("critical_paths",
			fmt.Errorf("search exceeded %d expansions", w.opts.MaxExpansions))
	}
	if err := w.poll.check(); err != nil {
		return err
	}
	if w.hopeless(current) {
		return nil
	}

	extended := false
	if len(w.path) < w.opts.MaxLength {
		for _, step := range w.bounds.next[current] {
			if w.onPath[step.to] {
				continue
			}
			extended = true
			w.path = append(w.path, step.to)
			w.strengths = append(w.strengths, step.strength)
			w.sum += w.crit[step.to]
			w.onPath[step.to] = true

			err := w.extend(step.to)

			delete(w.onPath, step.to)
			w.sum -= w.crit[step.to]
			w.path = w.path[:len(w.path)-1]
			w.strengths = w.strengths[:len(w.strengths)-1]
			if err != nil {
				return err
			}
		}
	}

	if !extended && len(w.path) >= w.opts.MinLength {
		w.emit()
	}
	return nil
}

// hopeless reports whether no path extending the current prefix can score
// above the threshold and enter the ranking.
func (w *pathWalker) hopeless(current string) bool {
	n := len(w.path)
	prefixMin := w.minStrength()
	gain, grip := w.bounds.gain[current], w.bounds.grip[current]

	best, longest := math.Inf(-1), -1
	for k := max(0, w.opts.MinLength-n); n+k <= w.opts.MaxLength && k < len(gain); k++ {
		if math.IsInf(gain[k], -1) {
			continue
		}
		mean := (w.sum + gain[k]) / float64(n+k)
		score := mean * (0.5 + 0.5*math.Min(prefixMin, grip[k]))
		best = math.Max(best, score)
		longest = n + k
	}
	if longest < 0 {
		return true
	}

	score := round1(best + boundSlack)
	if score < w.opts.Threshold {
		return true
	}
	return !w.rank.admits(score, longest, w.path)
}

func (w *pathWalker) minStrength() float64 {
	m := 1.0
	for _, s := range w.strengths {
		m = math.Min(m, s)
	}
	return m
}

func (w *pathWalker) emit() {
	total := 0.0
	for _, id := range w.path {
		total += w.crit[id]
	}
	mean := total / float64(len(w.path))
	minStrength := w.minStrength()

	score := round1(mean * (0.5 + 0.5*minStrength))
	if score < w.opts.Threshold {
		return
	}

	cards := append([]string(nil), w.path...)
	w.rank.offer(CriticalPath{
		ID:              pathID(cards),
		Cards:           cards,
		RiskScore:       score,
		MeanCriticality: round1(mean),
		MinStrength:     minStrength,
	})
}

// ranking is the running top-Limit shared by every root's walker. cut holds
// the Limit-th path once the ranking is full; it only ever moves up.
type ranking struct {
	mu    sync.Mutex
	limit int
	top   []CriticalPath
	cut   atomic.Pointer[CriticalPath]
}

func (r *ranking) offer(p CriticalPath) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := sort.Search(len(r.top), func(i int) bool { return ranksBefore(p, r.top[i]) })
	if i >= r.limit {
		return
	}
	r.top = slices.Insert(r.top, i, p)
	if len(r.top) > r.limit {
		r.top = r.top[:r.limit]
	}
	if len(r.top) == r.limit {
		cut := r.top[r.limit-1]
		r.cut.Store(&cut)
	}
}

// admits reports whether some path scoring at most score, holding at most
// length cards and starting with prefix could still rank before the cut.
func (r *ranking) admits(score float64, length int, prefix []string) bool {
	cut := r.cut.Load()
	switch {
	case cut == nil:
		return true
	case score != cut.RiskScore:
		return score > cut.RiskScore
	case length != len(cut.Cards):
		return length > len(cut.Cards)
	default:
		return !lessCards(cut.Cards[:len(prefix)], prefix)
	}
}

func (r *ranking) result() []CriticalPath {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append(make([]CriticalPath, 0, len(r.top)), r.top...)
}

func pathID(cards []string) string {
	return uuid.NewSHA1(pathNamespace, []byte(strings.Join(cards, "\x1f"))).String()
}

// ranksBefore orders paths by riskScore desc, length desc, then card
// sequence.
func ranksBefore(a, b CriticalPath) bool {
	if a.RiskScore != b.RiskScore {
		return a.RiskScore > b.RiskScore
	}
	if len(a.Cards) != len(b.Cards) {
		return len(a.Cards) > len(b.Cards)
	}
	return lessCards(a.Cards, b.Cards)
}

// topPaths sorts by ranksBefore and keeps the first limit.
func topPaths(paths []CriticalPath, limit int) []CriticalPath {
	sort.Slice(paths, func(i, j int) bool { return ranksBefore(paths[i], paths[j]) })
	if len(paths) > limit {
		paths = paths[:limit]
	}
	return paths
}

func lessCards(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
