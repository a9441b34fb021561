package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock fetcher ---

type mockFetcher struct {
	catalog Catalog
	err     error
	calls   int
}

func (m *mockFetcher) FetchCatalog(_ context.Context) (Catalog, error) {
	m.calls++
	return m.catalog, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestFallbackCatalog(t *testing.T) {
	c := FallbackCatalog()

	assert.Len(t, c, 70)
	assert.Equal(t, "United States", c["US"].Name)
	assert.Equal(t, "Democratic Republic of the Congo", c["CD"].Name)
	assert.Equal(t, "M 150,30 L 280,30 L 280,80 L 150,80 Z", c["CA"].Path)
	for code, geo := range c {
		assert.Len(t, code, 2, "code %q", code)
		assert.NotEmpty(t, geo.Name, "name for %s", code)
		assert.NotEmpty(t, geo.Path, "path for %s", code)
	}
}

func TestFallbackCatalog_ReturnsFreshCopy(t *testing.T) {
	a := FallbackCatalog()
	delete(a, "US")

	b := FallbackCatalog()
	assert.Contains(t, b, "US")
}

func TestLoadCatalog_Remote(t *testing.T) {
	remote := Catalog{
		"US": {Name: "United States", Path: "M0,0Z"},
		"XX": {Name: "No outline"},
	}
	f := &mockFetcher{catalog: remote}

	c, src := LoadCatalog(context.Background(), f, discardLogger())

	assert.Equal(t, CatalogRemote, src)
	assert.Equal(t, remote, c, "remote entries are returned verbatim, including ones without a path")
	assert.Equal(t, 1, f.calls)
}

func TestLoadCatalog_FetchFailureUsesFallback(t *testing.T) {
	f := &mockFetcher{err: errors.New("connection refused")}

	c, src := LoadCatalog(context.Background(), f, discardLogger())

	assert.Equal(t, CatalogFallback, src)
	fallback := FallbackCatalog()
	assert.ElementsMatch(t, fallback.Codes(), c.Codes())
	for code, geo := range fallback {
		assert.Equal(t, geo.Name, c[code].Name)
	}
}

func TestLoadCatalog_NilFetcher(t *testing.T) {
	c, src := LoadCatalog(context.Background(), nil, discardLogger())
	assert.Equal(t, CatalogFallback, src)
	assert.Len(t, c, 70)
}

func TestLoadCatalog_NilRemoteCatalogIsLoadedButEmpty(t *testing.T) {
	c, src := LoadCatalog(context.Background(), &mockFetcher{}, discardLogger())
	assert.Equal(t, CatalogRemote, src)
	require.NotNil(t, c)
	assert.Empty(t, c)
}

func TestParseCatalog(t *testing.T) {
	t.Run("countries object", func(t *testing.T) {
		c, err := ParseCatalog([]byte(`{"countries":{"FR":{"name":"France","path":"M 1,1 Z","bounding_box":[41.3,51.1,-5.1,9.6]}}}`))
		require.NoError(t, err)
		assert.Equal(t, "France", c["FR"].Name)
		assert.Equal(t, []float64{41.3, 51.1, -5.1, 9.6}, c["FR"].BoundingBox)
	})

	t.Run("missing countries key", func(t *testing.T) {
		c, err := ParseCatalog([]byte(`{"version":2}`))
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Empty(t, c)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := ParseCatalog([]byte(`{"countries":`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse catalog")
	})
}

func TestCatalog_CodesSorted(t *testing.T) {
	c := Catalog{"US": {}, "CA": {}, "FR": {}}
	assert.Equal(t, []string{"CA", "FR", "US"}, c.Codes())
}

func TestCatalog_DisplayName(t *testing.T) {
	c := Catalog{"CA": {Name: "Canada"}, "ZZ": {}}
	assert.Equal(t, "Canada", c.DisplayName("CA"))
	assert.Equal(t, "ZZ", c.DisplayName("ZZ"))
	assert.Equal(t, "QQ", c.DisplayName("QQ"))
}
