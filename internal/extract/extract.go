// Package extract drives one adapter through the fixed extraction phase
// sequence, producing a lazy stream of progress records capped by a single
// terminal record that carries the metadata snapshot.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soumikpal/schemagraph/internal/adapter"
	"github.com/soumikpal/schemagraph/internal/logger"
	"github.com/soumikpal/schemagraph/internal/metadata"
)

// Request describes one extraction run.
type Request struct {
	// Engine is the engine identifier the adapter was selected with.
	Engine string

	// Params are the connection parameters the adapter was constructed
	// with; the snapshot echoes host, port, and database name from them.
	Params adapter.ConnParams

	// Schemas optionally scopes the run to the named schemas. When set it
	// is used as-is — names that were never discovered are not validated
	// away. Empty means "all discovered schemas".
	Schemas []string

	// IncludeColumns controls whether columns are fetched per table.
	IncludeColumns bool

	// IncludeForeignKeys controls whether the foreign_keys phase runs.
	IncludeForeignKeys bool
}

// NewRequest returns a Request with columns and foreign keys included.
func NewRequest(engine string, params adapter.ConnParams) Request {
	return Request{
		Engine:             engine,
		Params:             params,
		IncludeColumns:     true,
		IncludeForeignKeys: true,
	}
}

// Orchestrator runs extractions. It holds no per-run state; one Orchestrator
// serves any number of concurrent runs, each with its own adapter.
type Orchestrator struct {
	log *logger.Logger
}

// New returns an Orchestrator logging through log.
func New(log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.New(nil)
	}
	return &Orchestrator{log: log}
}

// A progress record is emitted after every batch of this many tables.
const tableBatch = 10

// Run starts the extraction and returns the progress channel. The producer
// goroutine owns the channel and closes it after the terminal record; at
// most one terminal record ("complete" or "error") is ever sent, and no
// record follows it. The adapter is always disconnected on exit, success or
// failure.
//
// The channel is unbuffered: if the consumer stops receiving without
// cancelling ctx, the producer blocks and the connection is held until ctx
// ends. Callers that may abandon the stream must cancel ctx.
func (o *Orchestrator) Run(ctx context.Context, adp adapter.Adapter, req Request) <-chan metadata.Progress {
	ch := make(chan metadata.Progress)
	go func() {
		defer close(ch)
		o.run(ctx, adp, req, ch)
	}()
	return ch
}

func (o *Orchestrator) run(ctx context.Context, adp adapter.Adapter, req Request, ch chan<- metadata.Progress) {
	emit := func(p metadata.Progress) bool {
		select {
		case ch <- p:
			return true
		case <-ctx.Done():
			return false
		}
	}

	result := &metadata.Database{
		Name:        req.Params.Database,
		Engine:      strings.ToLower(req.Engine),
		Host:        req.Params.Host,
		Port:        req.Params.Port,
		ExtractedAt: time.Now().UTC(),
	}

	log := o.log.With().
		Str("engine", result.Engine).
		Str("database", result.Name).
		Logger()

	// Phase: connecting.
	if !emit(metadata.Progress{
		Phase:    metadata.PhaseConnecting,
		Message:  "Connecting to database...",
		Progress: 5,
	}) {
		return
	}

	if err := adp.Connect(ctx); err != nil {
		log.ErrorWith("extraction aborted: connect failed", err, nil)
		emit(errorRecord(fmt.Sprintf("Connection failed: %v", err), err))
		return
	}
	defer func() {
		if err := adp.Disconnect(context.WithoutCancel(ctx)); err != nil {
			log.WarnWith("disconnect failed", err, nil)
		}
	}()

	// Phase: schemas.
	if !emit(metadata.Progress{
		Phase:    metadata.PhaseSchemas,
		Message:  "Discovering schemas...",
		Progress: 10,
	}) {
		return
	}

	discovered, err := adp.Schemas(ctx)
	if err != nil {
		log.ErrorWith("extraction aborted: schema discovery failed", err, nil)
		emit(errorRecord(fmt.Sprintf("Schema discovery failed: %v", err), err))
		return
	}

	// A caller-supplied allow-list is used verbatim; undiscovered names are
	// simply schemas that will yield nothing.
	targets := req.Schemas
	if len(targets) == 0 {
		targets = discovered
	}
	totalSchemas := len(targets)

	if !emit(metadata.Progress{
		Phase:        metadata.PhaseSchemas,
		Message:      fmt.Sprintf("Discovered %d schemas", totalSchemas),
		Progress:     15,
		TotalSchemas: totalSchemas,
	}) {
		return
	}

	// Phase: tables. Percent interpolates linearly from 20 to 80 across
	// schemas, in input order; the table counter is global across schemas.
	totalTables := 0
	processedTables := 0

	for idx, schemaName := range targets {
		if !emit(metadata.Progress{
			Phase:            metadata.PhaseTables,
			Message:          fmt.Sprintf("Processing schema %q...", schemaName),
			Progress:         tablesPercent(idx, totalSchemas),
			TotalSchemas:     totalSchemas,
			ProcessedSchemas: idx,
		}) {
			return
		}

		tables, err := adp.Tables(ctx, schemaName)
		if err != nil {
			// Schema-level failure: this schema is absent from the result
			// and extraction continues.
			log.ErrorWith("schema skipped", err, map[string]interface{}{"schema": schemaName})
			continue
		}

		schemaMeta := metadata.Schema{Name: schemaName}
		for _, table := range tables {
			totalTables++

			if req.IncludeColumns {
				cols, err := adp.Columns(ctx, schemaName, table.Name)
				if err != nil {
					// Column-level failure: the table stays, columns empty.
					log.WarnWith("columns skipped", err, map[string]interface{}{
						"schema": schemaName,
						"table":  table.Name,
					})
				} else {
					table.Columns = cols
				}
			}

			schemaMeta.Tables = append(schemaMeta.Tables, table)
			processedTables++

			if processedTables%tableBatch == 0 {
				if !emit(metadata.Progress{
					Phase:            metadata.PhaseTables,
					Message:          fmt.Sprintf("Processing tables: %d/%d", processedTables, totalTables),
					Progress:         tablesMidPercent(idx, totalSchemas),
					TotalSchemas:     totalSchemas,
					ProcessedSchemas: idx,
					TotalTables:      totalTables,
					ProcessedTables:  processedTables,
				}) {
					return
				}
			}
		}

		result.Schemas = append(result.Schemas, schemaMeta)
	}

	// Phase: foreign_keys. Failures here degrade to "whatever was
	// collected so far" rather than aborting the run.
	if req.IncludeForeignKeys {
		if !emit(metadata.Progress{
			Phase:            metadata.PhaseForeignKeys,
			Message:          "Extracting foreign key relationships...",
			Progress:         85,
			TotalSchemas:     totalSchemas,
			ProcessedSchemas: totalSchemas,
			TotalTables:      totalTables,
			ProcessedTables:  processedTables,
		}) {
			return
		}

		for _, schemaName := range targets {
			fks, err := adp.ForeignKeys(ctx, schemaName)
			if err != nil {
				log.WarnWith("foreign key extraction stopped", err, map[string]interface{}{"schema": schemaName})
				break
			}
			result.ForeignKeys = append(result.ForeignKeys, fks...)
		}
	}

	// Phase: complete. The terminal record carries the snapshot.
	emit(metadata.Progress{
		Phase: metadata.PhaseComplete,
		Message: fmt.Sprintf("Extraction complete: %d schemas, %d tables, %d foreign keys",
			totalSchemas, totalTables, len(result.ForeignKeys)),
		Progress:         100,
		TotalSchemas:     totalSchemas,
		ProcessedSchemas: totalSchemas,
		TotalTables:      totalTables,
		ProcessedTables:  processedTables,
		Result:           result,
	})
}

func errorRecord(msg string, err error) metadata.Progress {
	return metadata.Progress{
		Phase:    metadata.PhaseError,
		Message:  msg,
		Progress: 0,
		Error:    err.Error(),
	}
}

// tablesPercent maps schema index to the 20–80 band.
func tablesPercent(idx, total int) int {
	if total == 0 {
		return 20
	}
	return 20 + int(60*float64(idx)/float64(total))
}

// tablesMidPercent is the half-schema point used for intra-schema batches.
func tablesMidPercent(idx, total int) int {
	if total == 0 {
		return 20
	}
	return 20 + int(60*(float64(idx)+0.5)/float64(total))
}
