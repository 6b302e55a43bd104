package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeedJSON = `[
  {
    "id": "13000001",
    "case_number": "JH100001",
    "date": "2024-06-01T14:30:00.000",
    "block": "001XX N STATE ST",
    "iucr": "0820",
    "primary_type": "THEFT",
    "description": "$500 AND UNDER",
    "location_description": "STREET",
    "arrest": false,
    "domestic": false,
    "beat": "0111",
    "district": "001",
    "ward": "42",
    "community_area": "32",
    "fbi_code": "06",
    "year": "2024",
    "updated_on": "2024-06-02T10:00:00.000",
    "latitude": "41.883500187",
    "longitude": "-87.627876698"
  },
  {
    "id": "13000002",
    "case_number": "JH100002",
    "date": "2024-06-01T13:00:00.000",
    "primary_type": "BATTERY",
    "arrest": true,
    "domestic": true,
    "year": "2024"
  }
]`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		BaseURL:    srv.URL,
		MaxRetries: 2,
		RateLimit:  1000,
		Burst:      1000,
	})
}

func TestFetchLatest_ParsesRecords(t *testing.T) {
	var gotQuery atomic.Value
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery.Store(r.URL.Query().Encode())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(sampleFeedJSON)) //nolint:errcheck
	})

	incidents, err := c.FetchLatest(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, incidents, 2)

	first := incidents[0]
	assert.Equal(t, "13000001", first.ID)
	assert.Equal(t, "THEFT", first.PrimaryType)
	assert.Equal(t, time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC), first.Date)
	assert.Equal(t, 2024, first.Year)
	require.True(t, first.HasCoordinates())
	assert.InDelta(t, 41.8835, *first.Latitude, 1e-3)
	assert.InDelta(t, -87.6279, *first.Longitude, 1e-3)

	// Second record has no coordinates; it is kept with nil lat/lon.
	second := incidents[1]
	assert.True(t, second.Arrest)
	assert.True(t, second.Domestic)
	assert.False(t, second.HasCoordinates())

	q := gotQuery.Load().(string)
	assert.Contains(t, q, "%24limit=2")
	assert.Contains(t, q, "date+DESC")
}

func TestFetchLatest_AppTokenHeader(t *testing.T) {
	var gotToken atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotToken.Store(r.Header.Get("X-App-Token"))
		w.Write([]byte("[]")) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)

	withToken := NewClient(Options{BaseURL: srv.URL, AppToken: "secret-token", RateLimit: 1000, Burst: 1000})
	_, err := withToken.FetchLatest(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "secret-token", gotToken.Load())

	withoutToken := NewClient(Options{BaseURL: srv.URL, RateLimit: 1000, Burst: 1000})
	_, err = withoutToken.FetchLatest(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "", gotToken.Load())
}

func TestFetchLatest_RetriesOn500(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[]`)) //nolint:errcheck
	})

	incidents, err := c.FetchLatest(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, incidents)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchLatest_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	_, err := c.FetchLatest(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "giving up")
	assert.Equal(t, int32(3), calls.Load()) // initial + 2 retries
}

func TestFetchLatest_ClientErrorNoRetry(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	_, err := c.FetchLatest(context.Background(), 10)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchPaged_MergesPages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("$offset")
		if offset == "" {
			w.Write([]byte(sampleFeedJSON)) //nolint:errcheck
			return
		}
		w.Write([]byte(`[{"id": "13000003", "primary_type": "ROBBERY", "date": "2024-06-01T12:00:00.000"}]`)) //nolint:errcheck
	})

	incidents, err := c.FetchPaged(context.Background(), 3, 2)
	require.NoError(t, err)
	require.Len(t, incidents, 3)
	assert.Equal(t, "13000001", incidents[0].ID)
	assert.Equal(t, "13000003", incidents[2].ID)
}

func TestParseFeedTime(t *testing.T) {
	assert.Equal(t,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		parseFeedTime("2024-01-01T00:00:00.000"),
	)
	assert.Equal(t,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		parseFeedTime("2024-01-01T00:00:00"),
	)
	assert.True(t, parseFeedTime("not a time").IsZero())
}
