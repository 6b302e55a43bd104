package geo

// Point is a geographic coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Polygon is an ordered list of boundary vertices, implicitly closed (the
// last vertex connects back to the first). At least 3 vertices are expected;
// degenerate shapes are accepted and degrade through the sampler fallback.
type Polygon []Point

// BoundingBox returns the axis-aligned bounds of the polygon's vertices.
func (p Polygon) BoundingBox() (minLat, maxLat, minLon, maxLon float64) {
	if len(p) == 0 {
		return 0, 0, 0, 0
	}
	minLat, maxLat = p[0].Lat, p[0].Lat
	minLon, maxLon = p[0].Lon, p[0].Lon
	for _, v := range p[1:] {
		if v.Lat < minLat {
			minLat = v.Lat
		}
		if v.Lat > maxLat {
			maxLat = v.Lat
		}
		if v.Lon < minLon {
			minLon = v.Lon
		}
		if v.Lon > maxLon {
			maxLon = v.Lon
		}
	}
	return minLat, maxLat, minLon, maxLon
}

// Centroid returns the arithmetic mean of the vertices. For concave shapes
// this point is not guaranteed to lie inside the polygon.
func (p Polygon) Centroid() Point {
	if len(p) == 0 {
		return Point{}
	}
	var sumLat, sumLon float64
	for _, v := range p {
		sumLat += v.Lat
		sumLon += v.Lon
	}
	n := float64(len(p))
	return Point{Lat: sumLat / n, Lon: sumLon / n}
}

// Contains tests membership with a ray-casting crossing count. Edges with
// equal longitude at both endpoints never contribute a crossing, which keeps
// axis-aligned boundaries from double counting.
func (p Polygon) Contains(pt Point) bool {
	n := len(p)
	if n < 3 {
		return false
	}

	inside := false
	p1 := p[0]
	for i := 1; i <= n; i++ {
		p2 := p[i%n]

		lonMin, lonMax := p1.Lon, p2.Lon
		if lonMin > lonMax {
			lonMin, lonMax = lonMax, lonMin
		}
		latMax := p1.Lat
		if p2.Lat > latMax {
			latMax = p2.Lat
		}

		if pt.Lon > lonMin && pt.Lon <= lonMax && pt.Lat <= latMax {
			if p1.Lat == p2.Lat {
				inside = !inside
			} else {
				xinters := (pt.Lon-p1.Lon)*(p2.Lat-p1.Lat)/(p2.Lon-p1.Lon) + p1.Lat
				if pt.Lat <= xinters {
					inside = !inside
				}
			}
		}

		p1 = p2
	}

	return inside
}
