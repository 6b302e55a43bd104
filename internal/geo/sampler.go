package geo

import "math/rand/v2"

// MaxSampleAttempts bounds the rejection-sampling loop in SamplePoint.
const MaxSampleAttempts = 100

// SamplePoint draws a point uniformly from the polygon's bounding box until
// one passes the membership test, up to MaxSampleAttempts draws. If none
// passes it returns the vertex centroid with inside=false; for concave
// shapes that fallback may lie outside the boundary and callers must
// tolerate it.
func SamplePoint(rng *rand.Rand, p Polygon) (Point, bool) {
	minLat, maxLat, minLon, maxLon := p.BoundingBox()

	for range MaxSampleAttempts {
		pt := Point{
			Lat: minLat + rng.Float64()*(maxLat-minLat),
			Lon: minLon + rng.Float64()*(maxLon-minLon),
		}
		if p.Contains(pt) {
			return pt, true
		}
	}

	return p.Centroid(), false
}

// SampleN draws n points independently. No deduplication and no spacing
// guarantee between points. insideAll reports whether every point passed the
// membership test (false if any draw fell back to the centroid).
func SampleN(rng *rand.Rand, n int, p Polygon) (pts []Point, insideAll bool) {
	pts = make([]Point, 0, n)
	insideAll = true
	for range n {
		pt, inside := SamplePoint(rng, p)
		pts = append(pts, pt)
		insideAll = insideAll && inside
	}
	return pts, insideAll
}
