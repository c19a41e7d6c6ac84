package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soumikpal/schemagraph/internal/adapter"
	"github.com/soumikpal/schemagraph/internal/extract"
	"github.com/soumikpal/schemagraph/internal/graph"
	"github.com/soumikpal/schemagraph/internal/metadata"
)

// fakeAdapter serves a small fixed catalog.
type fakeAdapter struct {
	connectErr error
}

func (f *fakeAdapter) Connect(context.Context) error    { return f.connectErr }
func (f *fakeAdapter) Disconnect(context.Context) error { return nil }
func (f *fakeAdapter) TestConnection(context.Context) (bool, string) {
	if f.connectErr != nil {
		return false, f.connectErr.Error()
	}
	return true, ""
}
func (f *fakeAdapter) Schemas(context.Context) ([]string, error) {
	return []string{"public"}, nil
}
func (f *fakeAdapter) Tables(_ context.Context, schema string) ([]metadata.Table, error) {
	return []metadata.Table{{Name: "customers", Schema: schema, TableType: metadata.TypeTable}}, nil
}
func (f *fakeAdapter) Columns(context.Context, string, string) ([]metadata.Column, error) {
	return []metadata.Column{
		{Name: "id", DataType: "integer", PrimaryKey: true, OrdinalPosition: 1},
	}, nil
}
func (f *fakeAdapter) ForeignKeys(context.Context, string) ([]metadata.ForeignKey, error) {
	return nil, nil
}

type failingWriter struct{ err error }

func (w *failingWriter) StoreDatabase(context.Context, string, *metadata.Database) error {
	return w.err
}

type fakeArchive struct {
	keys []string
	err  error
}

func (a *fakeArchive) Ping(context.Context) error { return nil }
func (a *fakeArchive) Close() error               { return nil }
func (a *fakeArchive) Put(_ context.Context, key string, data []byte) error {
	if a.err != nil {
		return a.err
	}
	if !json.Valid(data) {
		return errors.New("not json")
	}
	a.keys = append(a.keys, key)
	return nil
}

func testRegistry(adp adapter.Adapter) *adapter.Registry {
	r := adapter.NewRegistry()
	r.Register("postgres", func(adapter.ConnParams) adapter.Adapter { return adp })
	return r
}

func drain(ch <-chan metadata.Progress) []metadata.Progress {
	var out []metadata.Progress
	for p := range ch {
		out = append(out, p)
	}
	return out
}

func TestExtractAndStoreUnsupportedEngine(t *testing.T) {
	svc := NewService(testRegistry(&fakeAdapter{}), graph.NewMemoryWriter(), nil, nil)

	req := extract.NewRequest("flatfile", adapter.ConnParams{})
	records := drain(svc.ExtractAndStore(context.Background(), "files", req))

	require.Len(t, records, 1, "unsupported engine must short-circuit with a single record")
	assert.Equal(t, metadata.PhaseError, records[0].Phase)
	assert.Equal(t, 0, records[0].Progress)
	assert.Equal(t, "unsupported engine: flatfile", records[0].Error)
	assert.Contains(t, records[0].Message, "postgres")
}

func TestExtractAndStoreSuccess(t *testing.T) {
	mem := graph.NewMemoryWriter()
	svc := NewService(testRegistry(&fakeAdapter{}), mem, nil, nil)

	req := extract.NewRequest("postgres", adapter.ConnParams{Database: "shop"})
	records := drain(svc.ExtractAndStore(context.Background(), "shop-prod", req))

	// Exactly one terminal record, at the end.
	final := records[len(records)-1]
	assert.Equal(t, metadata.PhaseComplete, final.Phase)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, 1, final.TotalSchemas)
	assert.Equal(t, 1, final.TotalTables)
	for _, p := range records[:len(records)-1] {
		assert.False(t, p.IsTerminal())
	}

	// The combined stream inserts storing between extraction and complete,
	// keeping percent monotonic.
	var sawStoring bool
	lastPercent := 0
	for _, p := range records {
		assert.GreaterOrEqual(t, p.Progress, lastPercent)
		lastPercent = p.Progress
		if p.Phase == metadata.PhaseStoring {
			sawStoring = true
			assert.Equal(t, 90, p.Progress)
		}
		assert.Nil(t, p.Result, "snapshot payload must not leave the service")
	}
	assert.True(t, sawStoring)

	// The graph actually got the data.
	assert.NotNil(t, mem.Column("public.customers.id"))
}

func TestExtractAndStoreStorageFailure(t *testing.T) {
	writer := &failingWriter{err: errors.New("bolt connection reset")}
	svc := NewService(testRegistry(&fakeAdapter{}), writer, nil, nil)

	req := extract.NewRequest("postgres", adapter.ConnParams{Database: "shop"})
	records := drain(svc.ExtractAndStore(context.Background(), "shop-prod", req))

	final := records[len(records)-1]
	assert.Equal(t, metadata.PhaseError, final.Phase)
	// Extraction succeeded, so the percent marks the storing point instead
	// of resetting.
	assert.Equal(t, 90, final.Progress)
	assert.Contains(t, final.Message, "Storage failed")
	assert.Equal(t, "bolt connection reset", final.Error)

	for _, p := range records[:len(records)-1] {
		assert.NotEqual(t, metadata.PhaseError, p.Phase)
	}
}

func TestExtractAndStoreExtractionFailure(t *testing.T) {
	svc := NewService(testRegistry(&fakeAdapter{connectErr: errors.New("refused")}),
		graph.NewMemoryWriter(), nil, nil)

	req := extract.NewRequest("postgres", adapter.ConnParams{Database: "shop"})
	records := drain(svc.ExtractAndStore(context.Background(), "shop-prod", req))

	final := records[len(records)-1]
	assert.Equal(t, metadata.PhaseError, final.Phase)
	assert.Equal(t, 0, final.Progress, "extraction errors reset the percent")
	for _, p := range records {
		assert.NotEqual(t, metadata.PhaseStoring, p.Phase, "no storing after a failed extraction")
	}
}

func TestExtractAndStoreArchivesSnapshot(t *testing.T) {
	archive := &fakeArchive{}
	svc := NewService(testRegistry(&fakeAdapter{}), graph.NewMemoryWriter(), archive, nil)

	req := extract.NewRequest("postgres", adapter.ConnParams{Database: "shop"})
	records := drain(svc.ExtractAndStore(context.Background(), "shop-prod", req))

	assert.Equal(t, metadata.PhaseComplete, records[len(records)-1].Phase)
	require.Len(t, archive.keys, 1)
	assert.True(t, strings.HasPrefix(archive.keys[0], "shop-prod/"))
	assert.True(t, strings.HasSuffix(archive.keys[0], ".json"))
}

func TestExtractAndStoreArchiveFailureIsNonFatal(t *testing.T) {
	archive := &fakeArchive{err: errors.New("bucket gone")}
	svc := NewService(testRegistry(&fakeAdapter{}), graph.NewMemoryWriter(), archive, nil)

	req := extract.NewRequest("postgres", adapter.ConnParams{Database: "shop"})
	records := drain(svc.ExtractAndStore(context.Background(), "shop-prod", req))

	// The archive is best-effort: the run still completes.
	assert.Equal(t, metadata.PhaseComplete, records[len(records)-1].Phase)
}

func TestCollectReturnsTerminalRecord(t *testing.T) {
	svc := NewService(testRegistry(&fakeAdapter{}), graph.NewMemoryWriter(), nil, nil)

	req := extract.NewRequest("postgres", adapter.ConnParams{Database: "shop"})
	final := Collect(svc.ExtractAndStore(context.Background(), "shop-prod", req))

	assert.Equal(t, metadata.PhaseComplete, final.Phase)
	assert.Equal(t, 100, final.Progress)
}

func TestTestConnection(t *testing.T) {
	svc := NewService(testRegistry(&fakeAdapter{}), graph.NewMemoryWriter(), nil, nil)

	ok, msg := svc.TestConnection(context.Background(), "postgres", adapter.ConnParams{})
	assert.True(t, ok)
	assert.Empty(t, msg)

	ok, msg = svc.TestConnection(context.Background(), "flatfile", adapter.ConnParams{})
	assert.False(t, ok)
	assert.Contains(t, msg, "Unsupported database engine")
}

func TestEngines(t *testing.T) {
	svc := NewService(testRegistry(&fakeAdapter{}), graph.NewMemoryWriter(), nil, nil)
	assert.Equal(t, []string{"postgres"}, svc.Engines())
	assert.True(t, svc.SupportsEngine("postgres"))
	assert.False(t, svc.SupportsEngine("flatfile"))
}
