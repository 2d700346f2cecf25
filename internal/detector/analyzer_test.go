package detector

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomlens/roomlens-go/internal/httpclient"
)

func encodedTestImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, testImage(16, 16), imaging.PNG))
	return buf.Bytes()
}

func newTestAnalyzer(t *testing.T, engine Engine) *Analyzer {
	t.Helper()
	return NewAnalyzer(newReadyPipeline(t, engine), nil, time.Minute, nil)
}

func TestAnalyzeCachesByImageIdentity(t *testing.T) {
	t.Parallel()

	engine := &fakeEngine{output: RawOutput{
		Labels: []int64{3},
		Scores: []float32{0.9},
		Boxes:  []float32{10, 10, 100, 100},
	}}
	a := newTestAnalyzer(t, engine)
	src := ImageSource{ID: "room-1", Data: encodedTestImage(t)}

	first, err := a.Analyze(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, first.Detections, 1)
	assert.Equal(t, 1, engine.calls)

	// Same identity hits the cache, the engine is not consulted again.
	second, err := a.Analyze(context.Background(), src)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, engine.calls)

	// Invalidation forces a fresh run.
	a.Invalidate("room-1")
	_, err = a.Analyze(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 2, engine.calls)
}

func TestAnalyzeRefetchesUnreadablePayload(t *testing.T) {
	t.Parallel()

	good := encodedTestImage(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(good)
	}))
	defer server.Close()

	engine := &fakeEngine{output: RawOutput{
		Labels: []int64{3},
		Scores: []float32{0.9},
		Boxes:  []float32{1, 1, 5, 5},
	}}
	a := NewAnalyzer(newReadyPipeline(t, engine), httpclient.New(nil), time.Minute, nil)

	// The handed-over bytes are garbage, the origin serves a good copy.
	src := ImageSource{ID: "room-2", URL: server.URL, Data: []byte("truncated junk")}
	result, err := a.Analyze(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, result.Detections, 1)
	assert.Equal(t, 1, engine.calls)
}

func TestAnalyzeUnreadableEverywhereYieldsEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("still not an image"))
	}))
	defer server.Close()

	engine := &fakeEngine{}
	a := NewAnalyzer(newReadyPipeline(t, engine), httpclient.New(nil), time.Minute, nil)

	src := ImageSource{ID: "room-3", URL: server.URL, Data: []byte("junk")}
	result, err := a.Analyze(context.Background(), src)
	require.NoError(t, err)
	assert.Empty(t, result.Detections)
	// Inference never ran.
	assert.Equal(t, 0, engine.calls)
}

func TestAnalyzeUnreadableWithoutURLYieldsEmpty(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(t, &fakeEngine{})
	result, err := a.Analyze(context.Background(), ImageSource{ID: "room-4", Data: []byte("junk")})
	require.NoError(t, err)
	assert.Empty(t, result.Detections)
}

func TestAnalyzeDiscardsSupersededResult(t *testing.T) {
	t.Parallel()

	var a *Analyzer
	engine := &fakeEngine{output: RawOutput{
		Labels: []int64{3},
		Scores: []float32{0.9},
		Boxes:  []float32{1, 1, 5, 5},
	}}
	// A newer request for the same image arrives while inference runs.
	engine.onRun = func() { a.begin("room-5") }
	a = newTestAnalyzer(t, engine)

	_, err := a.Analyze(context.Background(), ImageSource{ID: "room-5", Data: encodedTestImage(t)})
	require.ErrorIs(t, err, ErrSuperseded)

	// The stale result was not cached: the next call runs inference again.
	engine.onRun = nil
	result, err := a.Analyze(context.Background(), ImageSource{ID: "room-5", Data: encodedTestImage(t)})
	require.NoError(t, err)
	assert.Len(t, result.Detections, 1)
	assert.Equal(t, 2, engine.calls)
}

func TestAnalyzeRequiresIdentity(t *testing.T) {
	t.Parallel()

	a := newTestAnalyzer(t, &fakeEngine{})
	_, err := a.Analyze(context.Background(), ImageSource{Data: encodedTestImage(t)})
	require.Error(t, err)
}
