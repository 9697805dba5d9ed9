package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string) (*Client, func() *url.URL) {
	t.Helper()
	var (
		mu       sync.Mutex
		captured *url.URL
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		captured = r.URL
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{APIKey: "test-key", BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	return c, func() *url.URL {
		mu.Lock()
		defer mu.Unlock()
		return captured
	}
}

func TestClient_Geocode(t *testing.T) {
	c, lastURL := newTestServer(t, http.StatusOK, `{
		"status": "OK",
		"results": [{
			"formatted_address": "日本、〒150-0043 東京都渋谷区道玄坂１丁目２−３",
			"geometry": {"location": {"lat": 35.6580, "lng": 139.6994}}
		}]
	}`)

	res, err := c.Geocode(context.Background(), "東京都渋谷区道玄坂1-2-3")
	require.NoError(t, err)
	assert.InDelta(t, 35.6580, res.Lat, 1e-9)
	assert.InDelta(t, 139.6994, res.Lng, 1e-9)
	assert.Equal(t, "35.658000, 139.699400", res.String())

	u := lastURL()
	require.NotNil(t, u)
	assert.Equal(t, "/geocode/json", u.Path)
	q := u.Query()
	assert.Equal(t, "東京都渋谷区道玄坂1-2-3", q.Get("address"))
	assert.Equal(t, "test-key", q.Get("key"))
	assert.Equal(t, "ja", q.Get("language"))
	assert.Equal(t, "jp", q.Get("region"))
}

func TestClient_GeocodeNoResult(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"zero results", `{"status": "ZERO_RESULTS", "results": []}`},
		{"ok but empty", `{"status": "OK", "results": []}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestServer(t, http.StatusOK, tt.body)
			_, err := c.Geocode(context.Background(), "どこか")
			assert.True(t, errors.Is(err, ErrNoResult))
		})
	}
}

func TestClient_GeocodeEmptyAddress(t *testing.T) {
	c, _ := newTestServer(t, http.StatusOK, `{}`)
	_, err := c.Geocode(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestClient_GeocodeAPIError(t *testing.T) {
	c, _ := newTestServer(t, http.StatusOK, `{"status": "REQUEST_DENIED", "error_message": "The provided API key is invalid."}`)

	_, err := c.Geocode(context.Background(), "東京都")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "REQUEST_DENIED", apiErr.Status)
	assert.Contains(t, err.Error(), "API key is invalid")
}

func TestClient_GeocodeHTTPError(t *testing.T) {
	c, _ := newTestServer(t, http.StatusServiceUnavailable, `{"status": "UNKNOWN_ERROR"}`)

	_, err := c.Geocode(context.Background(), "東京都")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.HTTPStatus)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, isTransient(ErrNoResult))
	assert.False(t, isTransient(&APIError{HTTPStatus: 200, Status: "REQUEST_DENIED"}))
	assert.True(t, isTransient(&APIError{HTTPStatus: 200, Status: "OVER_QUERY_LIMIT"}))
	assert.True(t, isTransient(&APIError{HTTPStatus: 503}))
	assert.True(t, isTransient(errors.New("dial tcp: timeout")))
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{}, nil)
	assert.Error(t, err)
}
