// Package graph persists extracted metadata as a property graph.
//
// Node identity is stable across runs: datasources by name, schemas by
// (name, database), tables by (name, schema), and columns by their global
// FQN (see metadata.FQN). Every write is an idempotent upsert — re-running
// an extraction refreshes attribute values but never duplicates nodes, so a
// crash mid-storage is recovered by simply re-running.
package graph

import (
	"context"

	"github.com/soumikpal/schemagraph/internal/metadata"
)

// Writer receives one extraction run's snapshot and upserts it into the
// graph under the given datasource name.
//
// Foreign keys become REFERENCES edges between column nodes matched by FQN.
// When either endpoint is absent (for example the referenced schema was
// excluded from the run) the edge is silently skipped — never an error.
type Writer interface {
	StoreDatabase(ctx context.Context, datasource string, db *metadata.Database) error
}
