package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomlens/roomlens-go/internal/conf"
	"github.com/roomlens/roomlens-go/internal/detector"
	"github.com/roomlens/roomlens-go/internal/hotspot"
	"github.com/roomlens/roomlens-go/internal/taxonomy"
)

// stubEngine emits one high-confidence armchair detection.
type stubEngine struct {
	output detector.RawOutput
}

func (s *stubEngine) Run(_ context.Context, _ detector.Feeds) (detector.RawOutput, error) {
	return s.output, nil
}

func (s *stubEngine) Close() error { return nil }

func testController(t *testing.T) *Controller {
	t.Helper()

	modelPath := filepath.Join(t.TempDir(), "model.onnx")
	require.NoError(t, os.WriteFile(modelPath, []byte{0x08, 0x01, 0x00, 0xff}, 0o644))

	settings := &conf.Settings{}
	settings.Detector = conf.DetectorSettings{
		ModelSource: modelPath,
		ModelID:     "interior-v1",
		InputSize:   640,
		ScoreCutoff: conf.DefaultScoreCutoff,
	}
	settings.Hotspot = conf.HotspotSettings{
		ConfidenceThreshold: conf.DefaultConfidenceThreshold,
		FallbackTopK:        conf.DefaultFallbackTopK,
	}
	settings.Web = conf.WebSettings{Enabled: true, Host: "127.0.0.1", Port: "8080"}

	engine := &stubEngine{output: detector.RawOutput{
		Labels: []int64{3},
		Scores: []float32{0.9},
		Boxes:  []float32{100, 100, 300, 260},
	}}
	pipeline := detector.New(settings.Detector, detector.WithEngine(engine))
	require.NoError(t, pipeline.Load(context.Background()))

	analyzer := detector.NewAnalyzer(pipeline, nil, time.Minute, nil)
	resolver := hotspot.NewResolver(settings.Hotspot)
	return New(settings, analyzer, resolver, nil, nil)
}

func encodedImage(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(64, 64, color.NRGBA{30, 30, 30, 255}), imaging.PNG))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func postHotspots(t *testing.T, c *Controller, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/hotspots", strings.NewReader(body))
	req.Header.Set(echoContentType, echoJSON)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

const (
	echoContentType = "Content-Type"
	echoJSON        = "application/json"
)

func TestHealthReady(t *testing.T) {
	t.Parallel()

	c := testController(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", http.NoBody)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ready", resp.ModelState)
}

func TestHotspotsEndToEnd(t *testing.T) {
	t.Parallel()

	c := testController(t)
	body, err := json.Marshal(map[string]any{
		"imageId":   "room-1",
		"imageData": encodedImage(t),
		"container": map[string]float64{"width": 390, "height": 660},
	})
	require.NoError(t, err)

	rec := postHotspots(t, c, string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp hotspotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Hotspots, 1)
	h := resp.Hotspots[0]
	assert.Equal(t, 1, h.ID)
	assert.Equal(t, "armchair", h.Label)
	// No taxonomy client configured: shown but unmapped.
	assert.True(t, h.Unmapped)
	assert.LessOrEqual(t, h.CX, 390.0)
	assert.LessOrEqual(t, h.CY, 660.0)
	assert.Equal(t, 64.0, resp.Image.Width)
}

func TestHotspotsValidation(t *testing.T) {
	t.Parallel()

	c := testController(t)
	tests := []struct {
		name string
		body string
	}{
		{"missing identity", `{"container": {"width": 390, "height": 660}}`},
		{"zero container", `{"imageId": "x", "container": {"width": 0, "height": 660}}`},
		{"bad base64", `{"imageId": "x", "imageData": "!!!", "container": {"width": 390, "height": 660}}`},
		{"malformed json", `{nope`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := postHotspots(t, c, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestHotspotsWithTaxonomy(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(echoContentType, echoJSON)
		_, _ = w.Write([]byte(`[{"categoryId": 10, "nameEng": "Seating", "nameKr": "의자",
			"furnitures": [{"code": "ARMCHAIR", "label": "armchair"}]}]`))
	}))
	defer server.Close()

	c := testController(t)
	c.taxonomy = taxonomy.NewClient(conf.TaxonomySettings{Endpoint: server.URL, Timeout: 5 * time.Second})

	body, err := json.Marshal(map[string]any{
		"imageId":   "room-2",
		"imageData": encodedImage(t),
		"container": map[string]float64{"width": 390, "height": 660},
	})
	require.NoError(t, err)

	rec := postHotspots(t, c, string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp hotspotsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Hotspots, 1)
	assert.False(t, resp.Hotspots[0].Unmapped)
	require.NotNil(t, resp.Hotspots[0].Category)
	assert.Equal(t, "ARMCHAIR", resp.Hotspots[0].Category.Code)
}

func TestHealthDegradedBeforeLoad(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	settings.Detector = conf.DetectorSettings{ModelSource: "missing", InputSize: 640}
	pipeline := detector.New(settings.Detector, detector.WithEngine(&stubEngine{}))
	analyzer := detector.NewAnalyzer(pipeline, nil, time.Minute, nil)
	c := New(settings, analyzer, hotspot.NewResolver(conf.HotspotSettings{}), nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", http.NoBody)
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unloaded", resp.ModelState)
}
