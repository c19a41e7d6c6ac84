package graph

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/soumikpal/schemagraph/internal/errs"
	"github.com/soumikpal/schemagraph/internal/metadata"
)

// Cypher templates. MERGE keys are the stable node identities; column
// identity fields are set ON CREATE only, mutable attributes on every run.
const (
	cypherDataSource = `
		MERGE (ds:DataSource {name: $name})
		SET ds.engine = $engine,
		    ds.host   = $host,
		    ds.port   = $port,
		    ds.database = $database`

	cypherSchema = `
		MATCH (ds:DataSource {name: $datasource})
		MERGE (s:Schema {name: $schema, db: $database})
		SET s.description = $description
		MERGE (ds)-[:HAS_SCHEMA]->(s)`

	cypherTable = `
		MATCH (s:Schema {name: $schema, db: $database})
		MERGE (t:Table {name: $table, schema: $schema})
		SET t.table_type  = $table_type,
		    t.description = $description,
		    t.db          = $database,
		    t.datasource  = $datasource
		MERGE (s)-[:HAS_TABLE]->(t)`

	cypherColumn = `
		MATCH (t:Table {name: $table, schema: $schema})
		MERGE (c:Column {fqn: $fqn})
		ON CREATE SET
		    c.name   = $column,
		    c.table  = $table,
		    c.schema = $schema
		SET c.type             = $data_type,
		    c.nullable         = $nullable,
		    c.primary_key      = $primary_key,
		    c.description      = $description,
		    c.ordinal_position = $ordinal_position,
		    c.datasource       = $datasource
		MERGE (t)-[:HAS_COLUMN]->(c)`

	// Both MATCH clauses must bind for the edge to be created; when either
	// FQN is missing the statement simply matches nothing.
	cypherForeignKey = `
		MATCH (sc:Column {fqn: $source_fqn})
		MATCH (tc:Column {fqn: $target_fqn})
		MERGE (sc)-[r:REFERENCES]->(tc)
		SET r.constraint_name = $constraint`
)

// Neo4jWriter persists snapshots to a Neo4j instance. Each statement runs
// as its own auto-committed write; because all writes are idempotent
// upserts, a partially stored run is repaired by re-running extraction.
type Neo4jWriter struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewNeo4jWriter connects to Neo4j at uri and verifies connectivity before
// returning. database may be empty for the server default.
func NewNeo4jWriter(ctx context.Context, uri, user, password, database string) (*Neo4jWriter, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create neo4j driver", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "neo4j unreachable", err)
	}
	return &Neo4jWriter{driver: driver, database: database}, nil
}

// Close releases the underlying driver. Call at process shutdown.
func (w *Neo4jWriter) Close(ctx context.Context) error {
	return w.driver.Close(ctx)
}

// StoreDatabase upserts the whole snapshot under datasource.
func (w *Neo4jWriter) StoreDatabase(ctx context.Context, datasource string, db *metadata.Database) error {
	session := w.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: w.database,
	})
	defer session.Close(ctx)

	if err := w.run(ctx, session, cypherDataSource, map[string]any{
		"name":     datasource,
		"engine":   db.Engine,
		"host":     db.Host,
		"port":     db.Port,
		"database": db.Name,
	}); err != nil {
		return err
	}

	for _, schema := range db.Schemas {
		if err := w.run(ctx, session, cypherSchema, map[string]any{
			"datasource":  datasource,
			"schema":      schema.Name,
			"database":    db.Name,
			"description": strPtr(schema.Description),
		}); err != nil {
			return err
		}

		for _, table := range schema.Tables {
			if err := w.run(ctx, session, cypherTable, map[string]any{
				"datasource":  datasource,
				"schema":      schema.Name,
				"database":    db.Name,
				"table":       table.Name,
				"table_type":  string(table.TableType),
				"description": strPtr(table.Description),
			}); err != nil {
				return err
			}

			for _, col := range table.Columns {
				if err := w.run(ctx, session, cypherColumn, map[string]any{
					"fqn":              metadata.FQN(schema.Name, table.Name, col.Name),
					"datasource":       datasource,
					"schema":           schema.Name,
					"table":            table.Name,
					"column":           col.Name,
					"data_type":        col.DataType,
					"nullable":         col.Nullable,
					"primary_key":      col.PrimaryKey,
					"description":      strPtr(col.Description),
					"ordinal_position": col.OrdinalPosition,
				}); err != nil {
					return err
				}
			}
		}
	}

	for _, fk := range db.ForeignKeys {
		if err := w.run(ctx, session, cypherForeignKey, map[string]any{
			"source_fqn": fk.SourceFQN(),
			"target_fqn": fk.TargetFQN(),
			"constraint": fk.Name,
		}); err != nil {
			return err
		}
	}

	return nil
}

func (w *Neo4jWriter) run(ctx context.Context, session neo4j.SessionWithContext, cypher string, params map[string]any) error {
	result, err := session.Run(ctx, cypher, params)
	if err != nil {
		return errs.Wrap(errs.ErrKindStorageFailed, "graph write failed", err)
	}
	if _, err := result.Consume(ctx); err != nil {
		return errs.Wrap(errs.ErrKindStorageFailed, "graph write failed", err)
	}
	return nil
}

// strPtr flattens *string to a driver-friendly nullable value.
func strPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
