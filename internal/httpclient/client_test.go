package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBytes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{0x08, 0x01, 0x12, 0x00})
	}))
	t.Cleanup(srv.Close)

	c := New(nil)
	body, resp, err := c.GetBytes(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x08, 0x01, 0x12, 0x00}, body)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))
}

func TestGetBytesNonOKStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	t.Cleanup(srv.Close)

	_, resp, err := New(nil).GetBytes(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "410")
	require.NotNil(t, resp)
}

func TestGetJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"name":"storage","id":20}`))
	}))
	t.Cleanup(srv.Close)

	var out struct {
		Name string `json:"name"`
		ID   int    `json:"id"`
	}
	require.NoError(t, New(nil).GetJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, "storage", out.Name)
	assert.Equal(t, 20, out.ID)
}

func TestGetBytesNetworkError(t *testing.T) {
	c := New(nil)
	httpmock.ActivateNonDefault(c.HTTPClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://cdn.example.com/model.onnx",
		httpmock.NewErrorResponder(errors.New("connection reset")))

	_, _, err := c.GetBytes(context.Background(), "https://cdn.example.com/model.onnx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestGetJSONDecodeError(t *testing.T) {
	c := New(nil)
	httpmock.ActivateNonDefault(c.HTTPClient())
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder(http.MethodGet, "https://api.example.com/categories",
		httpmock.NewStringResponder(http.StatusOK, "not json at all"))

	var out map[string]any
	err := c.GetJSON(context.Background(), "https://api.example.com/categories", &out)
	require.Error(t, err)
}

func TestDefaultTimeoutApplies(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	c := New(&Config{DefaultTimeout: 50 * time.Millisecond})
	_, _, err := c.GetBytes(context.Background(), srv.URL)
	require.Error(t, err)
}
