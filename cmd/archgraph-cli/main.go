// Command archgraph-cli analyses a portfolio export offline and prints
// risk-coloured reports.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dd0wney/cluso-archgraph/pkg/engine"
	"github.com/dd0wney/cluso-archgraph/pkg/logging"
	"github.com/dd0wney/cluso-archgraph/pkg/snapshot"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
	"github.com/dd0wney/cluso-archgraph/pkg/validation"
)

const usage = `usage: archgraph-cli <command> [flags]

commands:
  summary   snapshot statistics and relationship types
  impact    impact analysis and dependency chain of one entity (-id)
  paths     highest-risk dependency paths
  cycles    dependency cycles
  pack      convert an export between formats (-in, -out)

Exports are .json, .yaml or .yml, optionally snappy-compressed with .sz.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := runCommand(context.Background(), os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func runCommand(ctx context.Context, cmd string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	file := fs.String("snapshot", "portfolio.yaml", "portfolio export to analyse")
	verbose := fs.Bool("v", false, "log engine activity to stderr")

	switch cmd {
	case "summary":
		if err := fs.Parse(args); err != nil {
			return err
		}
		eng, err := openEngine(ctx, *file, *verbose)
		if err != nil {
			return err
		}
		stats, err := eng.Snapshot(ctx)
		if err != nil {
			return err
		}
		types, err := eng.RelationshipTypes(ctx)
		if err != nil {
			return err
		}
		renderSnapshot(out, stats)
		renderTypes(out, types)
		return nil

	case "impact":
		id := fs.String("id", "", "entity id")
		depth := fs.Int("depth", 3, "chain depth")
		types := fs.String("types", "", "comma separated relationship types for the chain")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := validation.ValidateEntityID(*id); err != nil {
			return err
		}
		relTypes, err := validation.ParseTypes(validation.SplitList(*types))
		if err != nil {
			return err
		}
		eng, err := openEngine(ctx, *file, *verbose)
		if err != nil {
			return err
		}
		impact, err := eng.Impact(ctx, *id)
		if err != nil {
			return err
		}
		chains, err := eng.Chains(ctx, engine.ChainsQuery{ID: *id, Depth: depth, Types: relTypes})
		if err != nil {
			return err
		}
		name := *id
		if len(chains.Nodes) > 0 && chains.Nodes[0].Name != "" {
			name = chains.Nodes[0].Name
		}
		renderImpact(out, name, impact)
		renderChains(out, chains)
		return nil

	case "paths":
		limit := fs.Int("limit", 10, "maximum paths")
		threshold := fs.Float64("threshold", 40, "minimum risk score")
		if err := fs.Parse(args); err != nil {
			return err
		}
		eng, err := openEngine(ctx, *file, *verbose)
		if err != nil {
			return err
		}
		paths, err := eng.CriticalPaths(ctx, engine.PathsQuery{Limit: limit, Threshold: threshold})
		if err != nil {
			return err
		}
		renderPaths(out, paths)
		return nil

	case "cycles":
		limit := fs.Int("limit", 50, "maximum cycles")
		maxLen := fs.Int("max-length", 0, "maximum cycle length (0 = unbounded)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		eng, err := openEngine(ctx, *file, *verbose)
		if err != nil {
			return err
		}
		report, err := eng.Cycles(ctx, engine.CyclesQuery{Limit: *limit, MaxLength: *maxLen})
		if err != nil {
			return err
		}
		renderCycles(out, report)
		return nil

	case "pack":
		in := fs.String("in", "", "source export")
		dst := fs.String("out", "", "destination export")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return pack(ctx, *in, *dst, out)

	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q\n\n%s", cmd, strings.TrimSpace(usage))
}

// openEngine loads path into a memory store and returns an engine over it.
func openEngine(ctx context.Context, path string, verbose bool) (*engine.Engine, error) {
	ms := storage.NewMemoryStore()
	if _, err := snapshot.Load(ctx, snapshot.FileSource{Path: path}, ms); err != nil {
		return nil, err
	}

	logger := logging.NewNopLogger()
	if verbose {
		logger = logging.NewTextLogger(os.Stderr, logging.DebugLevel)
	}
	cfg := engine.DefaultConfig()
	// Offline analysis is not latency bound.
	cfg.QueryTimeout = 5 * time.Minute
	return engine.New(ms, ms, cfg, engine.WithLogger(logger))
}

// pack re-encodes an export, validating it on the way through.
func pack(ctx context.Context, in, dst string, out io.Writer) error {
	if in == "" || dst == "" {
		return fmt.Errorf("pack needs -in and -out")
	}
	ms := storage.NewMemoryStore()
	doc, err := snapshot.Load(ctx, snapshot.FileSource{Path: in}, ms)
	if err != nil {
		return err
	}
	if err := snapshot.WriteFile(dst, doc); err != nil {
		return err
	}
	fmt.Fprintf(out, "packed %d entities and %d relationships into %s\n",
		len(doc.Entities), len(doc.Relationships), dst)
	return nil
}
