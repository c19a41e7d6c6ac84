// Package mysql implements adapter.Adapter for the MySQL/MariaDB engine
// family using database/sql with the go-sql-driver. All catalog metadata is
// read from INFORMATION_SCHEMA.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // register "mysql" driver

	"github.com/soumikpal/schemagraph/internal/adapter"
	"github.com/soumikpal/schemagraph/internal/errs"
	"github.com/soumikpal/schemagraph/internal/metadata"
)

const (
	defaultPort     = 3306
	defaultMaxConns = 4
)

// Adapter is a MySQL implementation of adapter.Adapter backed by database/sql.
// One adapter owns one pool; extraction runs never share adapters.
type Adapter struct {
	params adapter.ConnParams
	db     *sql.DB
}

// New returns an unconnected MySQL adapter for the given parameters.
func New(params adapter.ConnParams) adapter.Adapter {
	return &Adapter{params: params}
}

// Connect opens the connection pool and validates it with a ping.
func (a *Adapter) Connect(ctx context.Context) error {
	db, err := sql.Open("mysql", a.dsn())
	if err != nil {
		return errs.Wrap(errs.ErrKindConnectionFailed, "invalid mysql connection parameters", err)
	}
	db.SetMaxOpenConns(defaultMaxConns)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return mapError(err, "ping failed")
	}

	a.db = db
	return nil
}

// Disconnect closes the pool. Calling it when not connected is a no-op.
func (a *Adapter) Disconnect(_ context.Context) error {
	if a.db != nil {
		_ = a.db.Close()
		a.db = nil
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

// Schemas returns all database names except the engine's own system schemas.
func (a *Adapter) Schemas(ctx context.Context) ([]string, error) {
	const q = `
		SELECT SCHEMA_NAME
		FROM INFORMATION_SCHEMA.SCHEMATA
		WHERE SCHEMA_NAME NOT IN ('mysql', 'information_schema', 'performance_schema', 'sys')
		ORDER BY SCHEMA_NAME`

	rows, err := a.db.QueryContext(ctx, q)
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
		SELECT TABLE_NAME,
		       TABLE_TYPE,
		       TABLE_COMMENT
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = ?
		  AND TABLE_TYPE IN ('BASE TABLE', 'VIEW')
		ORDER BY TABLE_NAME`

	rows, err := a.db.QueryContext(ctx, q, schema)
	if err != nil {
		return nil, mapError(err, "failed to list tables")
	}
	defer rows.Close()

	var tables []metadata.Table
	for rows.Next() {
		var (
			name      string
			tableType string
			comment   sql.NullString
		)
		if err := rows.Scan(&name, &tableType, &comment); err != nil {
			return nil, mapError(err, "failed to scan table")
		}
		t := metadata.Table{
			Name:      name,
			Schema:    schema,
			TableType: normalizeTableType(tableType),
		}
		if comment.Valid && comment.String != "" {
			desc := comment.String
			t.Description = &desc
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating tables")
	}
	return tables, nil
}

// Columns returns the columns of schema.table ordered by ordinal position.
// COLUMN_KEY carries both primary-key ('PRI') and unique ('UNI') markers.
func (a *Adapter) Columns(ctx context.Context, schema, table string) ([]metadata.Column, error) {
	const q = `
		SELECT COLUMN_NAME,
		       DATA_TYPE,
		       IS_NULLABLE = 'YES',
		       COLUMN_DEFAULT,
		       ORDINAL_POSITION,
		       CHARACTER_MAXIMUM_LENGTH,
		       NUMERIC_PRECISION,
		       NUMERIC_SCALE,
		       COLUMN_COMMENT,
		       COLUMN_KEY
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`

	rows, err := a.db.QueryContext(ctx, q, schema, table)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("failed to fetch columns for %s.%s", schema, table))
	}
	defer rows.Close()

	var cols []metadata.Column
	for rows.Next() {
		var (
			col       metadata.Column
			comment   sql.NullString
			columnKey string
		)
		if err := rows.Scan(
			&col.Name,
			&col.DataType,
			&col.Nullable,
			&col.DefaultValue,
			&col.OrdinalPosition,
			&col.MaxLength,
			&col.NumericPrecision,
			&col.NumericScale,
			&comment,
			&columnKey,
		); err != nil {
			return nil, mapError(err, "failed to scan column")
		}
		col.PrimaryKey = columnKey == "PRI"
		col.Unique = columnKey == "UNI"
		if comment.Valid && comment.String != "" {
			desc := comment.String
			col.Description = &desc
		}
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating columns")
	}
	return cols, nil
}

// ForeignKeys returns FK constraints, scoped to schema when non-empty.
func (a *Adapter) ForeignKeys(ctx context.Context, schema string) ([]metadata.ForeignKey, error) {
	q := `
		SELECT CONSTRAINT_NAME,
		       TABLE_SCHEMA            AS source_schema,
		       TABLE_NAME              AS source_table,
		       COLUMN_NAME             AS source_column,
		       REFERENCED_TABLE_SCHEMA AS target_schema,
		       REFERENCED_TABLE_NAME   AS target_table,
		       REFERENCED_COLUMN_NAME  AS target_column
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE REFERENCED_TABLE_NAME IS NOT NULL`

	var args []any
	if schema != "" {
		q += ` AND TABLE_SCHEMA = ?`
		args = append(args, schema)
	}
	q += ` ORDER BY CONSTRAINT_NAME`

	rows, err := a.db.QueryContext(ctx, q, args...)
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
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		a.params.User, a.params.Password, a.params.Host, port, a.params.Database)
}

func normalizeTableType(raw string) metadata.TableType {
	switch raw {
	case "VIEW", "SYSTEM VIEW":
		return metadata.TypeView
	default:
		return metadata.TypeTable
	}
}
