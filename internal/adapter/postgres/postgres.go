// Package postgres implements adapter.Adapter for the Postgres engine
// family using pgx/v5. Catalog metadata is read from information_schema,
// with descriptions pulled from the system catalogs.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/soumikpal/schemagraph/internal/adapter"
	"github.com/soumikpal/schemagraph/internal/errs"
	"github.com/soumikpal/schemagraph/internal/metadata"
)

const (
	defaultPort     = 5432
	defaultMaxConns = 4
)

// Adapter is a Postgres implementation of adapter.Adapter backed by pgxpool.
// One adapter owns one pool; extraction runs never share adapters.
type Adapter struct {
	params adapter.ConnParams
	pool   *pgxpool.Pool
}

// New returns an unconnected Postgres adapter for the given parameters.
func New(params adapter.ConnParams) adapter.Adapter {
	return &Adapter{params: params}
}

// Connect establishes the connection pool and validates it with a ping.
func (a *Adapter) Connect(ctx context.Context) error {
	poolCfg, err := pgxpool.ParseConfig(a.dsn())
	if err != nil {
		return errs.Wrap(errs.ErrKindConnectionFailed, "invalid postgres connection parameters", err)
	}
	poolCfg.MaxConns = defaultMaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return errs.Wrap(errs.ErrKindConnectionFailed, "failed to create connection pool", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return mapError(err, "ping failed")
	}

	a.pool = pool
	return nil
}

// Disconnect drains the pool. Calling it when not connected is a no-op.
func (a *Adapter) Disconnect(_ context.Context) error {
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return nil
}

// TestConnection connects then disconnects. It never returns an error.
func (a *Adapter) TestConnection(ctx context.Context) (bool, string) {
	if err := a.Connect(ctx); err != nil {
		return false, err.Error()
	}
	_ = a.Disconnect(ctx)
	return true, ""
}

// Schemas returns all schema names except the engine's own system schemas.
func (a *Adapter) Schemas(ctx context.Context) ([]string, error) {
	const q = `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema', 'pg_toast')
		ORDER BY schema_name`

	rows, err := a.pool.Query(ctx, q)
	if err != nil {
		return nil, mapError(err, "failed to list schemas")
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, mapError(err, "failed to scan schema name")
		}
		schemas = append(schemas, name)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating schemas")
	}
	return schemas, nil
}

// Tables returns base tables and views in schema with their comments.
func (a *Adapter) Tables(ctx context.Context, schema string) ([]metadata.Table, error) {
	const q = `
		SELECT t.table_name,
		       t.table_type,
		       obj_description((quote_ident(t.table_schema) || '.' || quote_ident(t.table_name))::regclass) AS description
		FROM information_schema.tables t
		WHERE t.table_schema = $1
		  AND t.table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY t.table_name`

	rows, err := a.pool.Query(ctx, q, schema)
	if err != nil {
		return nil, mapError(err, "failed to list tables")
	}
	defer rows.Close()

	var tables []metadata.Table
	for rows.Next() {
		var (
			name      string
			tableType string
			desc      *string
		)
		if err := rows.Scan(&name, &tableType, &desc); err != nil {
			return nil, mapError(err, "failed to scan table")
		}
		tables = append(tables, metadata.Table{
			Name:        name,
			Schema:      schema,
			TableType:   normalizeTableType(tableType),
			Description: desc,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating tables")
	}
	return tables, nil
}

// Columns returns the columns of schema.table ordered by ordinal position.
// Primary-key and unique flags come from the constraint catalog.
func (a *Adapter) Columns(ctx context.Context, schema, table string) ([]metadata.Column, error) {
	const q = `
		SELECT c.column_name,
		       c.data_type,
		       c.is_nullable = 'YES'           AS is_nullable,
		       c.column_default,
		       c.ordinal_position,
		       c.character_maximum_length,
		       c.numeric_precision,
		       c.numeric_scale,
		       col_description((quote_ident($1) || '.' || quote_ident($2))::regclass, c.ordinal_position) AS description,
		       COALESCE(pk.is_pk, false)       AS is_primary_key,
		       COALESCE(uq.is_unique, false)   AS is_unique
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT kcu.column_name, true AS is_pk
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
			  ON tc.constraint_name = kcu.constraint_name
			 AND tc.table_schema    = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
			  AND tc.table_schema    = $1
			  AND tc.table_name      = $2
		) pk ON pk.column_name = c.column_name
		LEFT JOIN (
			SELECT kcu.column_name, true AS is_unique
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
			  ON tc.constraint_name = kcu.constraint_name
			 AND tc.table_schema    = kcu.table_schema
			WHERE tc.constraint_type = 'UNIQUE'
			  AND tc.table_schema    = $1
			  AND tc.table_name      = $2
		) uq ON uq.column_name = c.column_name
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`

	rows, err := a.pool.Query(ctx, q, schema, table)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("failed to fetch columns for %s.%s", schema, table))
	}
	defer rows.Close()

	var cols []metadata.Column
	for rows.Next() {
		var col metadata.Column
		if err := rows.Scan(
			&col.Name,
			&col.DataType,
			&col.Nullable,
			&col.DefaultValue,
			&col.OrdinalPosition,
			&col.MaxLength,
			&col.NumericPrecision,
			&col.NumericScale,
			&col.Description,
			&col.PrimaryKey,
			&col.Unique,
		); err != nil {
			return nil, mapError(err, "failed to scan column")
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating columns")
	}
	return cols, nil
}

// ForeignKeys returns FK constraints, scoped to schema when non-empty.
// Cross-schema constraints keep their independent source and target schemas.
func (a *Adapter) ForeignKeys(ctx context.Context, schema string) ([]metadata.ForeignKey, error) {
	q := `
		SELECT tc.constraint_name,
		       tc.table_schema  AS source_schema,
		       tc.table_name    AS source_table,
		       kcu.column_name  AS source_column,
		       ccu.table_schema AS target_schema,
		       ccu.table_name   AS target_table,
		       ccu.column_name  AS target_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema    = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON ccu.constraint_name = tc.constraint_name
		 AND ccu.table_schema    = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'`

	var args []any
	if schema != "" {
		q += ` AND tc.table_schema = $1`
		args = append(args, schema)
	}
	q += ` ORDER BY tc.constraint_name`

	rows, err := a.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, "failed to fetch foreign keys")
	}
	defer rows.Close()

	var fks []metadata.ForeignKey
	for rows.Next() {
		var fk metadata.ForeignKey
		if err := rows.Scan(
			&fk.Name,
			&fk.SourceSchema,
			&fk.SourceTable,
			&fk.SourceColumn,
			&fk.TargetSchema,
			&fk.TargetTable,
			&fk.TargetColumn,
		); err != nil {
			return nil, mapError(err, "failed to scan foreign key")
		}
		fks = append(fks, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating foreign keys")
	}
	return fks, nil
}

func (a *Adapter) dsn() string {
	port := a.params.Port
	if port == 0 {
		port = defaultPort
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=prefer",
		a.params.Host, port, a.params.User, a.params.Password, a.params.Database,
	)
}

func normalizeTableType(raw string) metadata.TableType {
	switch raw {
	case "VIEW":
		return metadata.TypeView
	case "MATERIALIZED VIEW":
		return metadata.TypeMaterializedView
	default:
		return metadata.TypeTable
	}
}
