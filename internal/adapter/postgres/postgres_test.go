package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/soumikpal/schemagraph/internal/adapter"
	"github.com/soumikpal/schemagraph/internal/errs"
	"github.com/soumikpal/schemagraph/internal/metadata"
)

func TestDSN(t *testing.T) {
	a := New(adapter.ConnParams{
		Host: "db.local", Port: 5433,
		User: "reader", Password: "pw", Database: "shop",
	}).(*Adapter)
	assert.Equal(t,
		"host=db.local port=5433 user=reader password=pw dbname=shop sslmode=prefer",
		a.dsn())
}

func TestDSNDefaultPort(t *testing.T) {
	a := New(adapter.ConnParams{Host: "db.local", User: "u", Database: "d"}).(*Adapter)
	assert.Contains(t, a.dsn(), "port=5432")
}

func TestNormalizeTableType(t *testing.T) {
	assert.Equal(t, metadata.TypeTable, normalizeTableType("BASE TABLE"))
	assert.Equal(t, metadata.TypeView, normalizeTableType("VIEW"))
	assert.Equal(t, metadata.TypeMaterializedView, normalizeTableType("MATERIALIZED VIEW"))
	assert.Equal(t, metadata.TypeTable, normalizeTableType("FOREIGN"))
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil, "noop"))

	assert.True(t, errs.IsTimeout(mapError(context.DeadlineExceeded, "q")))
	assert.True(t, errs.IsTimeout(mapError(context.Canceled, "q")))
	assert.True(t, errs.IsNotFound(mapError(pgx.ErrNoRows, "q")))

	connErr := &pgconn.PgError{Code: "08006", Message: "connection failure"}
	assert.True(t, errs.IsConnectionFailed(mapError(connErr, "q")))

	queryErr := &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	mapped := mapError(queryErr, "q")
	assert.True(t, errs.IsQueryFailed(mapped))
	assert.Contains(t, mapped.Error(), "relation does not exist")

	assert.True(t, errs.IsConnectionFailed(mapError(errors.New("dial tcp: refused"), "q")))
}

func TestDisconnectWithoutConnect(t *testing.T) {
	a := New(adapter.ConnParams{}).(*Adapter)
	assert.NoError(t, a.Disconnect(context.Background()))
}
