package model

// Zone is a named polygonal district used to bound synthetic incident
// generation. Boundary vertices are (lat, lon) pairs, implicitly closed.
type Zone struct {
	Name      string       `json:"name" yaml:"name"`
	Boundary  [][2]float64 `json:"boundary" yaml:"boundary"`
	CenterLat float64      `json:"center_lat" yaml:"center_lat"`
	CenterLon float64      `json:"center_lon" yaml:"center_lon"`
}
