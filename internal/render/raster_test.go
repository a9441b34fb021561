package render

import (
	"bytes"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/couchcryptid/been-map-service/internal/domain"
	"github.com/couchcryptid/been-map-service/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPNG_DrawsFills(t *testing.T) {
	catalog := domain.Catalog{
		"US": {Name: "United States", Path: "M0,0 L400,0 L400,500 L0,500 Z"},
	}
	cfg := domain.NormalizeConfig(domain.RawConfig{UnvisitedColor: "#0000FF", BorderWidth: 0.0001})
	view, ok := domain.BuildView(catalog, cfg, domain.VisitState{VisitedCountries: []string{"US"}})
	require.True(t, ok)

	data, err := PNG(view, 200, discardLogger())
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 125, img.Bounds().Dy())

	// Left half is the visited country, right half the background.
	r, g, b, _ := img.At(50, 60).RGBA()
	assert.Equal(t, [3]uint32{0x4C, 0xAF, 0x50}, [3]uint32{r >> 8, g >> 8, b >> 8})
	r, g, b, _ = img.At(150, 60).RGBA()
	assert.Equal(t, [3]uint32{0x00, 0x00, 0xFF}, [3]uint32{r >> 8, g >> 8, b >> 8})
}

func TestPNG_NamedColorsDrawBlack(t *testing.T) {
	catalog := domain.Catalog{
		"US": {Name: "United States", Path: "M0,0 L400,0 L400,500 L0,500 Z"},
	}
	cfg := domain.NormalizeConfig(domain.RawConfig{VisitedColor: "red", BorderWidth: 0.0001})
	view, ok := domain.BuildView(catalog, cfg, domain.VisitState{VisitedCountries: []string{"US"}})
	require.True(t, ok)

	data, err := PNG(view, 200, discardLogger())
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	r, g, b, _ := img.At(50, 60).RGBA()
	assert.Equal(t, [3]uint32{0, 0, 0}, [3]uint32{r >> 8, g >> 8, b >> 8})
}

func TestPNG_SkipsUnparseableOutlines(t *testing.T) {
	catalog := domain.Catalog{
		"US": {Name: "United States", Path: "M0,0 C1,1 2,2 3,3"},
		"CA": {Name: "Canada", Path: "M0,0 L10,0 L10,10 Z"},
	}
	view, ok := domain.BuildView(catalog, domain.NormalizeConfig(domain.RawConfig{}), domain.VisitState{})
	require.True(t, ok)

	data, err := PNG(view, 80, discardLogger())
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
}

func TestRasterizer_CachesByFingerprintAndWidth(t *testing.T) {
	m := observability.NewMetricsForTesting()
	r := NewRasterizer(4, m, discardLogger())
	view := exampleView(t)

	first, err := r.PNG(view, 100)
	require.NoError(t, err)
	second, err := r.PNG(view, 100)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = r.PNG(view, 120)
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RasterCache.WithLabelValues("hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.RasterCache.WithLabelValues("miss")))
	assert.Equal(t, 2, r.cache.len())
}

func TestRasterizer_ClampsWidth(t *testing.T) {
	r := NewRasterizer(4, observability.NewMetricsForTesting(), discardLogger())
	view := exampleView(t)

	data, err := r.PNG(view, 0)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, DefaultPNGWidth, img.Bounds().Dx())

	data, err = r.PNG(view, MaxPNGWidth+1000)
	require.NoError(t, err)
	img, err = png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, MaxPNGWidth, img.Bounds().Dx())
}
