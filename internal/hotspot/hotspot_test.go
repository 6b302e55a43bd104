package hotspot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimengo/crimengo/internal/model"
)

func incidentAt(id string, lat, lon float64) model.Incident {
	return model.Incident{
		ID:          id,
		Date:        time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		PrimaryType: "THEFT",
		Latitude:    &lat,
		Longitude:   &lon,
	}
}

func clusterAt(n int, lat, lon float64) []model.Incident {
	out := make([]model.Incident, 0, n)
	for i := 0; i < n; i++ {
		// Jitter well within the 2-decimal bucket.
		out = append(out, incidentAt("c", lat+float64(i)*1e-5, lon-float64(i)*1e-5))
	}
	return out
}

func TestFindHotspots_ThresholdBoundary(t *testing.T) {
	cluster := clusterAt(50, 10.00, 20.00)

	got := FindHotspots(cluster, 30, 2)
	require.Len(t, got, 1)
	assert.Equal(t, 10.00, got[0].LatBin)
	assert.Equal(t, 20.00, got[0].LonBin)
	assert.Equal(t, 50, got[0].Count)

	// Count equal to the threshold is excluded, strictly-greater included.
	assert.Empty(t, FindHotspots(cluster, 50, 2))
	assert.Len(t, FindHotspots(cluster, 49, 2), 1)
}

func TestFindHotspots_SkipsMissingCoordinates(t *testing.T) {
	incidents := clusterAt(5, -16.40, -71.54)
	incidents = append(incidents,
		model.Incident{ID: "no-coords-1"},
		model.Incident{ID: "no-coords-2"},
	)

	got := FindHotspots(incidents, 4, 2)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Count)
}

func TestFindHotspots_EmptyInput(t *testing.T) {
	assert.Empty(t, FindHotspots(nil, 0, 2))
	assert.Empty(t, FindHotspots([]model.Incident{{ID: "x"}}, 0, 2))
}

func TestFindHotspots_Deterministic(t *testing.T) {
	incidents := append(clusterAt(40, 10.00, 20.00), clusterAt(35, 10.10, 20.10)...)

	a := FindHotspots(incidents, 30, 2)
	b := FindHotspots(incidents, 30, 2)
	SortBuckets(a)
	SortBuckets(b)
	assert.Equal(t, a, b)
	require.Len(t, a, 2)
	assert.Equal(t, 40, a[0].Count)
	assert.Equal(t, 35, a[1].Count)
}

func TestFindHotspots_SeparateBuckets(t *testing.T) {
	incidents := append(clusterAt(10, 41.88, -87.63), clusterAt(10, 41.95, -87.70)...)

	got := FindHotspots(incidents, 5, 2)
	assert.Len(t, got, 2)
}

func TestSortBuckets_TiesByKey(t *testing.T) {
	buckets := []Bucket{
		{LatBin: 2, LonBin: 1, Count: 3},
		{LatBin: 1, LonBin: 2, Count: 3},
		{LatBin: 1, LonBin: 1, Count: 3},
	}
	SortBuckets(buckets)
	assert.Equal(t, []Bucket{
		{LatBin: 1, LonBin: 1, Count: 3},
		{LatBin: 1, LonBin: 2, Count: 3},
		{LatBin: 2, LonBin: 1, Count: 3},
	}, buckets)
}
