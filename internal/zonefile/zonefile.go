// Package zonefile loads zone boundaries from YAML seed files and ESRI
// shapefiles, and encodes them for export and Postgres storage.
package zonefile

import (
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/crimengo/crimengo/internal/geo"
	"github.com/crimengo/crimengo/internal/model"
)

// DefaultNameField is the shapefile attribute used for zone names when none
// is given.
const DefaultNameField = "name"

type seedFile struct {
	Zones []model.Zone `yaml:"zones"`
}

// Polygon converts a zone boundary to a geo.Polygon.
func Polygon(z model.Zone) geo.Polygon {
	poly := make(geo.Polygon, 0, len(z.Boundary))
	for _, v := range z.Boundary {
		poly = append(poly, geo.Point{Lat: v[0], Lon: v[1]})
	}
	return poly
}

// LoadSeed reads zones from a YAML seed file. Zones with an unset center get
// the boundary centroid.
func LoadSeed(path string) ([]model.Zone, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zonefile: read seed %s", path)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, eris.Wrapf(err, "zonefile: parse seed %s", path)
	}

	for i := range seed.Zones {
		z := &seed.Zones[i]
		if z.Name == "" {
			return nil, eris.Errorf("zonefile: zone %d in %s has no name", i, path)
		}
		if len(z.Boundary) < 3 {
			return nil, eris.Errorf("zonefile: zone %s has %d vertices, need at least 3", z.Name, len(z.Boundary))
		}
		if z.CenterLat == 0 && z.CenterLon == 0 {
			c := Polygon(*z).Centroid()
			z.CenterLat = c.Lat
			z.CenterLon = c.Lon
		}
	}
	return seed.Zones, nil
}

// ImportShapefile reads polygon records from a shapefile. Zone names come
// from the nameField attribute; shapefile points are (lon, lat) and only the
// outer ring of each record is kept.
func ImportShapefile(path, nameField string) ([]model.Zone, error) {
	if nameField == "" {
		nameField = DefaultNameField
	}

	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zonefile: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	nameIdx := -1
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, nameField) {
			nameIdx = i
			break
		}
	}
	if nameIdx < 0 {
		return nil, eris.Errorf("zonefile: shapefile %s has no %q field", path, nameField)
	}

	var zones []model.Zone
	var skipped int
	for n := 0; reader.Next(); n++ {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok || poly.NumParts == 0 || len(poly.Points) == 0 {
			skipped++
			continue
		}

		// Outer ring only.
		end := int32(len(poly.Points))
		if poly.NumParts > 1 {
			end = poly.Parts[1]
		}
		boundary := make([][2]float64, 0, end-poly.Parts[0])
		for j := poly.Parts[0]; j < end; j++ {
			boundary = append(boundary, [2]float64{poly.Points[j].Y, poly.Points[j].X})
		}
		if len(boundary) < 3 {
			skipped++
			continue
		}

		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		if name == "" {
			skipped++
			continue
		}

		zone := model.Zone{Name: name, Boundary: boundary}
		c := Polygon(zone).Centroid()
		zone.CenterLat = c.Lat
		zone.CenterLon = c.Lon
		zones = append(zones, zone)
	}

	if skipped > 0 {
		zap.L().Debug("zonefile: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return zones, nil
}

// geomPolygon builds a closed go-geom polygon from a zone boundary in
// (lon, lat) coordinate order.
func geomPolygon(z model.Zone) (*geom.Polygon, error) {
	if len(z.Boundary) < 3 {
		return nil, eris.Errorf("zonefile: zone %s has %d vertices, need at least 3", z.Name, len(z.Boundary))
	}

	flat := make([]float64, 0, (len(z.Boundary)+1)*2)
	for _, v := range z.Boundary {
		flat = append(flat, v[1], v[0])
	}
	// Close the ring.
	if first, last := z.Boundary[0], z.Boundary[len(z.Boundary)-1]; first != last {
		flat = append(flat, first[1], first[0])
	}

	poly := geom.NewPolygon(geom.XY).SetSRID(4326)
	if err := poly.Push(geom.NewLinearRingFlat(geom.XY, flat)); err != nil {
		return nil, eris.Wrapf(err, "zonefile: build polygon %s", z.Name)
	}
	return poly, nil
}

// EncodeEWKB converts a zone boundary to EWKB bytes with SRID 4326.
func EncodeEWKB(z model.Zone) ([]byte, error) {
	poly, err := geomPolygon(z)
	if err != nil {
		return nil, err
	}
	data, err := ewkb.Marshal(poly, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrapf(err, "zonefile: encode EWKB %s", z.Name)
	}
	return data, nil
}

// GeoJSON encodes zones as a GeoJSON FeatureCollection.
func GeoJSON(zones []model.Zone) ([]byte, error) {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(zones))}
	for _, z := range zones {
		poly, err := geomPolygon(z)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       z.Name,
			Geometry: poly,
			Properties: map[string]any{
				"name":       z.Name,
				"center_lat": z.CenterLat,
				"center_lon": z.CenterLon,
			},
		})
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return nil, eris.Wrap(err, "zonefile: encode GeoJSON")
	}
	return data, nil
}
