package geo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nearify/nearify-backend/pkg/cache"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	geoCache, err := cache.New(16, time.Minute)
	require.NoError(t, err)
	revCache, err := cache.New(16, time.Minute)
	require.NoError(t, err)

	client := NewClient(server.URL, "test-agent/1.0", "dev@example.com", geoCache, revCache)
	client.SetSleep(func(time.Duration) {})
	return client, server
}

func TestGeocode_Success(t *testing.T) {
	var requests int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Brownsburg, IN", r.URL.Query().Get("q"))
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte(`[{"lat":"39.8434","lon":"-86.3978","display_name":"Brownsburg, Hendricks County, Indiana"}]`))
	}))

	loc, err := client.Geocode(context.Background(), "Brownsburg, IN")
	require.NoError(t, err)
	assert.InDelta(t, 39.8434, loc.Lat, 1e-6)
	assert.InDelta(t, -86.3978, loc.Lon, 1e-6)
	assert.Equal(t, "Brownsburg, Hendricks County, Indiana", loc.DisplayName)

	// Second lookup for the same query is served from cache.
	_, err = client.Geocode(context.Background(), "brownsburg, in")
	require.NoError(t, err)
	assert.Equal(t, 1, requests)
}

func TestGeocode_NoResults(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	_, err := client.Geocode(context.Background(), "nowhere at all")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestGeocode_Blocked(t *testing.T) {
	var requests int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusForbidden)
	}))

	_, err := client.Geocode(context.Background(), "Brownsburg, IN")
	assert.ErrorIs(t, err, ErrBlocked)

	// The blocked outcome is cached too.
	_, err = client.Geocode(context.Background(), "Brownsburg, IN")
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, 1, requests)
}

func TestGeocode_EmptyQuery(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty query")
	}))

	_, err := client.Geocode(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestReverse_Success(t *testing.T) {
	var requests int
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/reverse", r.URL.Path)
		w.Write([]byte(`{"address":{"house_number":"12","road":"Main St","town":"Brownsburg","state":"Indiana","postcode":"46112"}}`))
	}))

	addr := client.Reverse(context.Background(), 39.84341, -86.39782)
	assert.Equal(t, "12 Main St", addr.Street)
	assert.Equal(t, "Brownsburg", addr.City)
	assert.Equal(t, "Indiana", addr.State)
	assert.Equal(t, "46112", addr.ZipCode)

	// Coordinates within rounding distance hit the cache.
	addr = client.Reverse(context.Background(), 39.843411, -86.397819)
	assert.Equal(t, "Brownsburg", addr.City)
	assert.Equal(t, 1, requests)
}

func TestReverse_UpstreamFailure(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	addr := client.Reverse(context.Background(), 39.8, -86.4)
	assert.Equal(t, Address{}, addr)
}
