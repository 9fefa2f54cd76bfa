package algorithms

import (
	"context"

	"github.com/dd0wney/cluso-archgraph/pkg/graph"
)

// pollInterval is how many steps a walk takes between context checks.
const pollInterval = 256

// poller turns context cancellation into a Timeout error at a bounded
// cadence so inner loops stay cheap.
type poller struct {
	ctx context.Context
	op  string
	n   int
}

func newPoller(ctx context.Context, op string) *poller {
	return &poller{ctx: ctx, op: op}
}

// check returns a Timeout error once the context is done.
func (p *poller) check() error {
	p.n++
	if p.n%pollInterval != 0 {
		return nil
	}
	return graph.FromContext(p.op, p.ctx.Err())
}

// now checks the context immediately.
func (p *poller) now() error {
	return graph.FromContext(p.op, p.ctx.Err())
}
