// Command archgraph-server serves the relationship graph queries over HTTP
// and GraphQL.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dd0wney/cluso-archgraph/pkg/api"
	"github.com/dd0wney/cluso-archgraph/pkg/config"
	"github.com/dd0wney/cluso-archgraph/pkg/engine"
	"github.com/dd0wney/cluso-archgraph/pkg/graphql"
	"github.com/dd0wney/cluso-archgraph/pkg/health"
	"github.com/dd0wney/cluso-archgraph/pkg/logging"
	"github.com/dd0wney/cluso-archgraph/pkg/metrics"
	"github.com/dd0wney/cluso-archgraph/pkg/pubsub"
	"github.com/dd0wney/cluso-archgraph/pkg/server"
	"github.com/dd0wney/cluso-archgraph/pkg/snapshot"
	"github.com/dd0wney/cluso-archgraph/pkg/storage"
)

const metricsInterval = 15 * time.Second

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before the environment is read")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, closer, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()
	logging.SetDefaultLogger(logger)

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Error("server exited", logging.Error(err))
		closer.Close()
		os.Exit(1)
	}
	logger.Info("server exited", logging.String("version", version))
}

// backend is the store selected by configuration. memory is nil for
// postgres deployments.
type backend struct {
	entities storage.EntityStore
	rels     storage.RelationshipStore
	memory   *storage.MemoryStore
	source   snapshot.Source
	close    func() error
}

func openBackend(ctx context.Context, cfg *config.Config, logger logging.Logger) (*backend, error) {
	if cfg.Store.Type == config.StorePostgres {
		pg, err := storage.NewPGStore(ctx, cfg.Store.Postgres)
		if err != nil {
			return nil, err
		}
		logger.Info("using postgres store")
		return &backend{entities: pg, rels: pg, close: pg.Close}, nil
	}

	ms := storage.NewMemoryStore()
	b := &backend{entities: ms, rels: ms, memory: ms, close: ms.Close}

	src, err := snapshot.NewSource(ctx, cfg.Store.Snapshot.File, cfg.Store.Snapshot.S3)
	if err != nil {
		return nil, err
	}
	if src == nil {
		logger.Warn("memory store has no snapshot source configured; serving an empty portfolio")
		return b, nil
	}
	b.source = src

	doc, err := snapshot.Load(ctx, src, ms)
	if err != nil {
		return nil, err
	}
	logger.Info("portfolio snapshot loaded",
		logging.Int("entities", len(doc.Entities)),
		logging.Int("relationships", len(doc.Relationships)),
	)
	return b, nil
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	reg := metrics.DefaultRegistry()
	reg.SetBuildInfo(version, cfg.Store.Type)

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := b.close(); err != nil {
			logger.Warn("failed to close store", logging.Error(err))
		}
	}()

	eng, err := engine.New(b.entities, b.rels, cfg.Engine,
		engine.WithLogger(logger),
		engine.WithMetrics(reg),
	)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ps := pubsub.NewPubSub(pubsub.WithBufferSize(cfg.Events.BufferSize))
	defer ps.Shutdown()
	if err := eng.Watch(ctx, ps); err != nil {
		return err
	}
	if b.memory != nil {
		b.memory.SetPublisher(ps)
	}

	var opts []api.Option
	opts = append(opts,
		api.WithLogger(logger),
		api.WithMetrics(reg),
		api.WithCORSOrigins(cfg.Server.CORSOrigins),
	)
	if cfg.Server.GraphQL {
		schema, err := graphql.NewSchema(eng, logger)
		if err != nil {
			return err
		}
		opts = append(opts, api.WithGraphQL(graphql.NewHandler(schema, graphql.Limits{}, logger)))
	}

	hc := health.NewHealthChecker()
	opts = append(opts, api.WithHealth(hc))

	srv := server.New(api.NewServer(eng, opts...).Handler(), server.Options{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Logger:          logger,
	})
	srv.SetReloadFunc(reloadFunc(b, eng, logger))
	registerChecks(hc, eng, srv)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return srv.Run(gctx)
	})
	g.Go(func() error {
		sampleMetrics(gctx, reg, eng)
		return nil
	})
	if cfg.Events.NNGAddr != "" {
		bridge := pubsub.NewNNGBridge(pubsub.BridgeConfig{Addr: cfg.Events.NNGAddr}, ps, logger, reg)
		g.Go(func() error { return bridge.Run(gctx) })
	}

	// Build the first snapshot before traffic arrives; a failure here is
	// reported by readiness and retried by the next query.
	if _, err := eng.Snapshot(ctx); err != nil {
		logger.Warn("initial snapshot build failed", logging.Error(err))
	}

	return g.Wait()
}

// reloadFunc re-reads the snapshot source on SIGHUP. Postgres deployments
// just invalidate, so the next query reads the current tables.
func reloadFunc(b *backend, eng *engine.Engine, logger logging.Logger) server.ReloadFunc {
	return func(ctx context.Context) error {
		if b.source != nil {
			doc, err := snapshot.Load(ctx, b.source, b.memory)
			if err != nil {
				return err
			}
			logger.Info("portfolio snapshot reloaded",
				logging.Int("entities", len(doc.Entities)),
				logging.Int("relationships", len(doc.Relationships)),
			)
		}
		eng.Invalidate(engine.SourceManual)
		return nil
	}
}

func registerChecks(hc *health.HealthChecker, eng *engine.Engine, srv *server.GracefulServer) {
	hc.RegisterCheck("store", health.StoreCheck(eng.Ping))
	hc.RegisterCheck("snapshot", health.SnapshotCheck(eng.LastSnapshot))
	hc.RegisterCheck("memory", health.MemoryCheck(memoryUsage))

	hc.RegisterReadinessCheck("store", health.StoreCheck(eng.Ping))
	hc.RegisterReadinessCheck("draining", func(ctx context.Context) health.Check {
		if srv.IsShuttingDown() {
			return health.Check{Name: "draining", Status: health.StatusUnhealthy, Message: "server is shutting down"}
		}
		return health.Check{Name: "draining", Status: health.StatusHealthy}
	})

	hc.RegisterLivenessCheck("alive", health.AliveCheck())
}

func memoryUsage() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}

func sampleMetrics(ctx context.Context, reg *metrics.Registry, eng *engine.Engine) {
	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()
	for {
		reg.UpdateSystemMetrics()
		if stats, ok, _ := eng.LastSnapshot(); ok {
			reg.SetSnapshotAge(time.Since(stats.BuiltAt))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
