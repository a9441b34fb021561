package geodata

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/couchcryptid/been-map-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func testClient(url string, timeout time.Duration) *Client {
	return NewClient(url, timeout, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_FetchCatalog_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/local/been_map/countries.json", r.URL.Path)
		assert.Equal(t, contentTypeJSON, r.Header.Get("Accept"))
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"countries":{"US":{"name":"United States","path":"M0,0Z"},"CA":{"name":"Canada","path":"M1,1Z"}}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL+"/local/been_map/countries.json", 5*time.Second)
	catalog, err := c.FetchCatalog(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.Catalog{
		"US": {Name: "United States", Path: "M0,0Z"},
		"CA": {Name: "Canada", Path: "M1,1Z"},
	}, catalog)
}

func TestClient_FetchCatalog_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("404: Not Found"))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).FetchCatalog(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_FetchCatalog_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`{"countries": [`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).FetchCatalog(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse catalog")
}

func TestClient_FetchCatalog_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 50*time.Millisecond).FetchCatalog(context.Background())
	require.Error(t, err)
}

func TestClient_FetchCatalog_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := testClient(url, time.Second).FetchCatalog(context.Background())
	require.Error(t, err)
}

func TestLoadCatalog_FallsBackOnFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	catalog, src := domain.LoadCatalog(context.Background(), testClient(srv.URL, time.Second), logger)

	assert.Equal(t, domain.CatalogFallback, src)
	assert.Equal(t, domain.FallbackCatalog(), catalog)
}
