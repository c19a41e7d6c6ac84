package graph

import (
	"context"
	"sync"

	"github.com/soumikpal/schemagraph/internal/metadata"
)

// MemoryWriter is an in-process Writer with the same upsert and FK-matching
// semantics as the Neo4j writer. It backs tests and credential-free local
// runs where no graph database is available.
type MemoryWriter struct {
	mu          sync.Mutex
	datasources map[string]*DataSourceNode
	schemas     map[string]*SchemaNode // keyed by schema + "\x00" + database
	tables      map[string]*TableNode  // keyed by schema + "\x00" + table
	columns     map[string]*ColumnNode // keyed by FQN
	edges       map[string]*ReferenceEdge
}

// DataSourceNode mirrors the DataSource node attributes.
type DataSourceNode struct {
	Name     string
	Engine   string
	Host     string
	Port     int
	Database string
}

// SchemaNode mirrors the Schema node attributes.
type SchemaNode struct {
	Name        string
	Database    string
	Description *string
}

// TableNode mirrors the Table node attributes.
type TableNode struct {
	Name        string
	Schema      string
	TableType   metadata.TableType
	Description *string
	Datasource  string
}

// ColumnNode mirrors the Column node attributes. Name, Table, and Schema
// are identity fields set on first creation only; the rest are refreshed on
// every store.
type ColumnNode struct {
	FQN             string
	Name            string
	Table           string
	Schema          string
	DataType        string
	Nullable        bool
	PrimaryKey      bool
	Description     *string
	OrdinalPosition int
	Datasource      string
}

// ReferenceEdge mirrors a REFERENCES relationship between two columns.
type ReferenceEdge struct {
	SourceFQN      string
	TargetFQN      string
	ConstraintName string
}

// NewMemoryWriter returns an empty in-memory graph.
func NewMemoryWriter() *MemoryWriter {
	return &MemoryWriter{
		datasources: make(map[string]*DataSourceNode),
		schemas:     make(map[string]*SchemaNode),
		tables:      make(map[string]*TableNode),
		columns:     make(map[string]*ColumnNode),
		edges:       make(map[string]*ReferenceEdge),
	}
}

// StoreDatabase upserts the snapshot with the same identity keys the Neo4j
// writer uses.
func (m *MemoryWriter) StoreDatabase(_ context.Context, datasource string, db *metadata.Database) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.datasources[datasource] = &DataSourceNode{
		Name:     datasource,
		Engine:   db.Engine,
		Host:     db.Host,
		Port:     db.Port,
		Database: db.Name,
	}

	for _, schema := range db.Schemas {
		m.schemas[schema.Name+"\x00"+db.Name] = &SchemaNode{
			Name:        schema.Name,
			Database:    db.Name,
			Description: schema.Description,
		}

		for _, table := range schema.Tables {
			m.tables[schema.Name+"\x00"+table.Name] = &TableNode{
				Name:        table.Name,
				Schema:      schema.Name,
				TableType:   table.TableType,
				Description: table.Description,
				Datasource:  datasource,
			}

			for _, col := range table.Columns {
				fqn := metadata.FQN(schema.Name, table.Name, col.Name)
				node, ok := m.columns[fqn]
				if !ok {
					// Identity fields only on creation.
					node = &ColumnNode{
						FQN:    fqn,
						Name:   col.Name,
						Table:  table.Name,
						Schema: schema.Name,
					}
					m.columns[fqn] = node
				}
				node.DataType = col.DataType
				node.Nullable = col.Nullable
				node.PrimaryKey = col.PrimaryKey
				node.Description = col.Description
				node.OrdinalPosition = col.OrdinalPosition
				node.Datasource = datasource
			}
		}
	}

	for _, fk := range db.ForeignKeys {
		src, tgt := fk.SourceFQN(), fk.TargetFQN()
		if _, ok := m.columns[src]; !ok {
			continue // endpoint missing: edge silently skipped
		}
		if _, ok := m.columns[tgt]; !ok {
			continue
		}
		m.edges[src+"\x00"+tgt] = &ReferenceEdge{
			SourceFQN:      src,
			TargetFQN:      tgt,
			ConstraintName: fk.Name,
		}
	}

	return nil
}

// Column returns the column node with the given FQN, or nil.
func (m *MemoryWriter) Column(fqn string) *ColumnNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.columns[fqn]
}

// NodeCount returns the total number of nodes of all kinds.
func (m *MemoryWriter) NodeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.datasources) + len(m.schemas) + len(m.tables) + len(m.columns)
}

// EdgeCount returns the number of REFERENCES edges.
func (m *MemoryWriter) EdgeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.edges)
}

// Edges returns a copy of all REFERENCES edges.
func (m *MemoryWriter) Edges() []ReferenceEdge {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ReferenceEdge, 0, len(m.edges))
	for _, e := range m.edges {
		out = append(out, *e)
	}
	return out
}
