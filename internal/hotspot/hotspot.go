// Package hotspot flags coarse spatial buckets whose incident count exceeds
// an operator-configured threshold.
package hotspot

import (
	"math"
	"sort"

	"github.com/crimengo/crimengo/internal/model"
)

// DefaultBinSize is the decimal precision used for bucket keys. Two decimal
// places is roughly a 1 km bucket at mid latitudes.
const DefaultBinSize = 2

// Bucket is an ephemeral aggregate keyed by rounded coordinates. Buckets are
// computed fresh per request and never persisted.
type Bucket struct {
	LatBin float64 `json:"lat_bin"`
	LonBin float64 `json:"lon_bin"`
	Count  int     `json:"count"`
}

// FindHotspots bins incidents onto a coarse grid and returns buckets whose
// count strictly exceeds threshold. Incidents missing either coordinate are
// skipped. Bucket order is not specified; callers needing determinism must
// sort (see SortBuckets).
func FindHotspots(incidents []model.Incident, threshold int, binSize int) []Bucket {
	if binSize < 0 {
		binSize = DefaultBinSize
	}

	type key struct{ lat, lon float64 }
	counts := make(map[key]int)
	for _, in := range incidents {
		if !in.HasCoordinates() {
			continue
		}
		counts[key{roundTo(*in.Latitude, binSize), roundTo(*in.Longitude, binSize)}]++
	}

	var buckets []Bucket
	for k, c := range counts {
		if c > threshold {
			buckets = append(buckets, Bucket{LatBin: k.lat, LonBin: k.lon, Count: c})
		}
	}
	return buckets
}

// SortBuckets orders buckets by descending count, then by bucket key, for
// stable display output.
func SortBuckets(buckets []Bucket) {
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		if buckets[i].LatBin != buckets[j].LatBin {
			return buckets[i].LatBin < buckets[j].LatBin
		}
		return buckets[i].LonBin < buckets[j].LonBin
	})
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
