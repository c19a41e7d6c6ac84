// Package metadata defines the structural metadata extracted from a
// relational datasource: schemas, tables, columns, and foreign keys, plus
// the progress records emitted while extracting them.
package metadata

import (
	"strings"
	"time"
)

// TableType normalises the engine-specific table kind.
type TableType string

const (
	TypeTable            TableType = "TABLE"
	TypeView             TableType = "VIEW"
	TypeMaterializedView TableType = "MATERIALIZED_VIEW"
)

// Column describes one table column.
type Column struct {
	Name             string  `json:"name"`
	DataType         string  `json:"data_type"`
	Nullable         bool    `json:"nullable"`
	PrimaryKey       bool    `json:"primary_key"`
	Unique           bool    `json:"unique"`
	DefaultValue     *string `json:"default_value,omitempty"`
	Description      *string `json:"description,omitempty"`
	OrdinalPosition  int     `json:"ordinal_position"`
	MaxLength        *int    `json:"max_length,omitempty"`
	NumericPrecision *int    `json:"numeric_precision,omitempty"`
	NumericScale     *int    `json:"numeric_scale,omitempty"`
}

// ForeignKey describes one FK constraint. Source and target schema are
// independent — cross-schema constraints are representable.
type ForeignKey struct {
	Name         string `json:"name"`
	SourceSchema string `json:"source_schema"`
	SourceTable  string `json:"source_table"`
	SourceColumn string `json:"source_column"`
	TargetSchema string `json:"target_schema"`
	TargetTable  string `json:"target_table"`
	TargetColumn string `json:"target_column"`
}

// SourceFQN returns the fully-qualified name of the constraint's source column.
func (fk ForeignKey) SourceFQN() string {
	return FQN(fk.SourceSchema, fk.SourceTable, fk.SourceColumn)
}

// TargetFQN returns the fully-qualified name of the referenced column.
func (fk ForeignKey) TargetFQN() string {
	return FQN(fk.TargetSchema, fk.TargetTable, fk.TargetColumn)
}

// Table describes one base table or view, with columns ordered by
// ordinal position.
type Table struct {
	Name        string    `json:"name"`
	Schema      string    `json:"schema"`
	TableType   TableType `json:"table_type"`
	Description *string   `json:"description,omitempty"`
	Columns     []Column  `json:"columns"`
	RowCount    *int64    `json:"row_count,omitempty"`
}

// Schema describes one schema/namespace and its tables.
type Schema struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Tables      []Table `json:"tables"`
}

// Database is the full result of one extraction run. It is built by the
// orchestrator, handed read-only to the graph writer, and not retained
// afterwards.
type Database struct {
	Name        string       `json:"name"`
	Engine      string       `json:"engine"`
	Host        string       `json:"host,omitempty"`
	Port        int          `json:"port,omitempty"`
	Schemas     []Schema     `json:"schemas"`
	ForeignKeys []ForeignKey `json:"foreign_keys"`
	ExtractedAt time.Time    `json:"extracted_at"`
}

// TableCount returns the total number of tables across all schemas.
func (d *Database) TableCount() int {
	n := 0
	for _, s := range d.Schemas {
		n += len(s.Tables)
	}
	return n
}

// FQN builds the fully-qualified name used as the global identity key for a
// column node: "schema.table.column", case-folded to lower case. The FQN is
// the sole merge key for columns in the graph and the basis for resolving
// foreign-key edges across independent extraction runs, so the folding and
// the "." separator must never change.
func FQN(schema, table, column string) string {
	return strings.ToLower(schema + "." + table + "." + column)
}
