// Package adapter defines the capability contract every database engine
// driver implements, plus the registry that maps engine identifiers to
// adapter constructors.
//
// Layers above this package talk only to the Adapter interface — they never
// import the postgres or mysql packages directly, and they never branch on
// which driver backs an adapter.
package adapter

import (
	"context"

	"github.com/soumikpal/schemagraph/internal/metadata"
)

// ConnParams is the connection-parameter bag an adapter is constructed with.
type ConnParams struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password,omitempty" yaml:"password"`
	Database string `json:"database" yaml:"database"`
}

// Adapter is the capability contract for one database engine family.
//
// Connect failures are fatal for an extraction run. Failures from Tables,
// Columns, or ForeignKeys for a single unit are caught by the orchestrator
// and logged; extraction continues with that unit omitted or partial.
type Adapter interface {
	// Connect establishes the driver connection.
	Connect(ctx context.Context) error

	// Disconnect releases the connection. Safe to call when not connected.
	Disconnect(ctx context.Context) error

	// TestConnection connects then disconnects. It never returns an error;
	// failure is reported as ok=false plus a diagnostic message.
	TestConnection(ctx context.Context) (ok bool, errMsg string)

	// Schemas returns schema/namespace names, excluding the engine's own
	// system schemas.
	Schemas(ctx context.Context) ([]string, error)

	// Tables returns base tables and views in schema, tagged with a
	// normalised table type. Indexes and sequences are excluded.
	Tables(ctx context.Context, schema string) ([]metadata.Table, error)

	// Columns returns the columns of schema.table ordered by ordinal
	// position, with primary keys detected via the constraint catalog.
	Columns(ctx context.Context, schema, table string) ([]metadata.Column, error)

	// ForeignKeys returns FK constraints, scoped to schema when non-empty.
	ForeignKeys(ctx context.Context, schema string) ([]metadata.ForeignKey, error)
}

// Constructor builds an adapter instance from connection parameters.
type Constructor func(params ConnParams) Adapter
