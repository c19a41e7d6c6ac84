// Package introspect composes an extraction run with graph storage into one
// combined progress stream.
//
// The service is the producer of record for the combined stream: it
// guarantees the phase order connecting → schemas → tables → foreign_keys →
// storing → complete, a monotonically non-decreasing percent on success,
// and at most one terminal record.
package introspect

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/soumikpal/schemagraph/internal/adapter"
	"github.com/soumikpal/schemagraph/internal/extract"
	"github.com/soumikpal/schemagraph/internal/graph"
	"github.com/soumikpal/schemagraph/internal/logger"
	"github.com/soumikpal/schemagraph/internal/metadata"
	"github.com/soumikpal/schemagraph/internal/snapshot"
)

// storingPercent is where the storing sub-phase sits; a storage failure
// reports this value rather than resetting to zero, marking that extraction
// itself succeeded.
const storingPercent = 90

// Service wires the adapter registry, the extraction orchestrator, the
// graph writer, and the optional snapshot archive.
type Service struct {
	registry *adapter.Registry
	orch     *extract.Orchestrator
	writer   graph.Writer
	archive  snapshot.Store // nil disables archiving
	log      *logger.Logger
}

// NewService builds a Service. archive may be nil.
func NewService(registry *adapter.Registry, writer graph.Writer, archive snapshot.Store, log *logger.Logger) *Service {
	if log == nil {
		log = logger.New(nil)
	}
	return &Service{
		registry: registry,
		orch:     extract.New(log),
		writer:   writer,
		archive:  archive,
		log:      log,
	}
}

// Engines returns the registry's supported engine identifiers.
func (s *Service) Engines() []string {
	return s.registry.Engines()
}

// SupportsEngine reports whether an adapter is registered for engine.
func (s *Service) SupportsEngine(engine string) bool {
	return s.registry.Supported(engine)
}

// TestConnection builds an adapter for the engine and probes the target.
// An unsupported engine reports ok=false with a diagnostic message.
func (s *Service) TestConnection(ctx context.Context, engine string, params adapter.ConnParams) (bool, string) {
	adp, ok := s.registry.Adapter(engine, params)
	if !ok {
		return false, s.unsupportedMessage(engine)
	}
	return adp.TestConnection(ctx)
}

// ExtractAndStore runs extraction for datasourceName and persists the
// resulting snapshot. Every record of the returned stream is safe to
// serialise to callers; the in-process snapshot payload never leaves the
// service. The snapshot is not retained after storage — re-running
// extraction is the recovery path for storage failures.
func (s *Service) ExtractAndStore(ctx context.Context, datasourceName string, req extract.Request) <-chan metadata.Progress {
	out := make(chan metadata.Progress)
	go func() {
		defer close(out)
		s.run(ctx, datasourceName, req, out)
	}()
	return out
}

// Collect drains a progress stream and returns its terminal record. This is
// the synchronous consumption mode: intermediate records are discarded and
// the caller inspects only phase and error of the result.
func Collect(ch <-chan metadata.Progress) metadata.Progress {
	var last metadata.Progress
	for p := range ch {
		last = p
	}
	return last
}

func (s *Service) run(ctx context.Context, datasourceName string, req extract.Request, out chan<- metadata.Progress) {
	emit := func(p metadata.Progress) bool {
		select {
		case out <- p:
			return true
		case <-ctx.Done():
			return false
		}
	}

	adp, ok := s.registry.Adapter(req.Engine, req.Params)
	if !ok {
		// Short-circuit: one error record, no extraction at all.
		msg := s.unsupportedMessage(req.Engine)
		emit(metadata.Progress{
			Phase:    metadata.PhaseError,
			Message:  msg,
			Progress: 0,
			Error:    "unsupported engine: " + strings.ToLower(req.Engine),
		})
		return
	}

	// Forward the orchestrator's stream, holding back its terminal
	// "complete" record: the combined stream replaces it with
	// storing → complete so the phase order and percent stay monotonic.
	var result *metadata.Database
	for p := range s.orch.Run(ctx, adp, req) {
		if p.Phase == metadata.PhaseComplete && p.Result != nil {
			result = p.Result
			continue
		}
		if !emit(p) {
			return
		}
		if p.Phase == metadata.PhaseError {
			return
		}
	}

	if result == nil {
		// Consumer cancelled mid-run; nothing more to do.
		return
	}

	if !emit(metadata.Progress{
		Phase:    metadata.PhaseStoring,
		Message:  "Storing metadata graph...",
		Progress: storingPercent,
	}) {
		return
	}

	if err := s.writer.StoreDatabase(ctx, datasourceName, result); err != nil {
		s.log.ErrorWith("graph storage failed", err, map[string]interface{}{
			"datasource": datasourceName,
		})
		emit(metadata.Progress{
			Phase:    metadata.PhaseError,
			Message:  fmt.Sprintf("Storage failed after successful extraction: %v", err),
			Progress: storingPercent,
			Error:    err.Error(),
		})
		return
	}

	s.archiveSnapshot(ctx, datasourceName, result)

	totalTables := result.TableCount()
	emit(metadata.Progress{
		Phase:            metadata.PhaseComplete,
		Message:          "Metadata stored successfully",
		Progress:         100,
		TotalSchemas:     len(result.Schemas),
		ProcessedSchemas: len(result.Schemas),
		TotalTables:      totalTables,
		ProcessedTables:  totalTables,
	})
}

// archiveSnapshot uploads the snapshot JSON when an archive is configured.
// The graph is the system of record, so archive failures only log.
func (s *Service) archiveSnapshot(ctx context.Context, datasourceName string, result *metadata.Database) {
	if s.archive == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		s.log.WarnWith("snapshot marshal failed", err, map[string]interface{}{"datasource": datasourceName})
		return
	}
	key := snapshot.Key(datasourceName, result.ExtractedAt)
	if err := s.archive.Put(ctx, key, data); err != nil {
		s.log.WarnWith("snapshot upload failed", err, map[string]interface{}{
			"datasource": datasourceName,
			"key":        key,
		})
	}
}

func (s *Service) unsupportedMessage(engine string) string {
	return fmt.Sprintf("Unsupported database engine: %s (supported: %s)",
		engine, strings.Join(s.registry.Engines(), ", "))
}
