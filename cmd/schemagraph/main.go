// Command schemagraph runs the schema introspection server: it extracts
// structural metadata from registered datasources and persists it as a
// property graph, streaming progress to callers over SSE.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soumikpal/schemagraph/internal/adapter"
	"github.com/soumikpal/schemagraph/internal/adapter/mysql"
	"github.com/soumikpal/schemagraph/internal/adapter/postgres"
	"github.com/soumikpal/schemagraph/internal/config"
	"github.com/soumikpal/schemagraph/internal/datasource"
	"github.com/soumikpal/schemagraph/internal/graph"
	"github.com/soumikpal/schemagraph/internal/introspect"
	"github.com/soumikpal/schemagraph/internal/logger"
	"github.com/soumikpal/schemagraph/internal/server"
	"github.com/soumikpal/schemagraph/internal/snapshot"
	snapminio "github.com/soumikpal/schemagraph/internal/snapshot/minio"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New(nil).Fatal("config load failed: " + err.Error())
	}

	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Graph writer: Neo4j in production, in-memory for credential-free
	// local runs.
	var writer graph.Writer
	if cfg.Neo4j.Enabled {
		neo, err := graph.NewNeo4jWriter(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database)
		if err != nil {
			log.Fatal("neo4j connect failed: " + err.Error())
		}
		defer neo.Close(context.Background())
		writer = neo
		log.Infof("graph writer connected: %s", cfg.Neo4j.URI)
	} else {
		writer = graph.NewMemoryWriter()
		log.Warn("neo4j disabled; using in-memory graph writer")
	}

	var archive snapshot.Store
	if cfg.Snapshot.Enabled {
		store, err := snapminio.New(ctx, &cfg.Snapshot.Config)
		if err != nil {
			log.Fatal("snapshot store connect failed: " + err.Error())
		}
		defer store.Close()
		archive = store
		log.Infof("snapshot archive connected: %s/%s", cfg.Snapshot.Endpoint, cfg.Snapshot.Bucket)
	}

	registry := adapter.NewRegistry()
	registry.Register("postgres", postgres.New)
	registry.Register("postgresql", postgres.New)
	registry.Register("mysql", mysql.New)
	registry.Register("mariadb", mysql.New)

	svc := introspect.NewService(registry, writer, archive, log)
	srv := server.New(datasource.NewStore(), svc, log)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("listening on %s", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error: " + err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error: " + err.Error())
		os.Exit(1)
	}
}
