// Package synth fabricates incident records scattered inside a zone
// boundary, for testing and demo data.
package synth

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/crimengo/crimengo/internal/geo"
	"github.com/crimengo/crimengo/internal/model"
)

// maxDaysBack caps the timestamp window. A window of daysBack days is drawn
// in nanoseconds, which overflows int64 past roughly 106751 days.
const maxDaysBack = 365 * 100

// Config drives record synthesis. Flag probabilities are configuration, not
// inlined constants, so operators can tune them per deployment.
type Config struct {
	// Categories maps a primary type to its pool of sub-descriptions.
	Categories map[string][]string `yaml:"categories" mapstructure:"categories"`
	// Locations is the pool of location descriptions.
	Locations []string `yaml:"locations" mapstructure:"locations"`
	// StreetPrefixes is the pool of block prefixes.
	StreetPrefixes []string `yaml:"street_prefixes" mapstructure:"street_prefixes"`
	// ArrestProb is the flat probability that a record is marked arrested.
	ArrestProb float64 `yaml:"arrest_prob" mapstructure:"arrest_prob"`
	// DomesticProb overrides the domestic-flag probability per category.
	DomesticProb map[string]float64 `yaml:"domestic_prob" mapstructure:"domestic_prob"`
	// DefaultDomesticProb applies to categories absent from DomesticProb.
	DefaultDomesticProb float64 `yaml:"default_domestic_prob" mapstructure:"default_domestic_prob"`
}

// DefaultConfig returns the Arequipa category tables used by the original
// dashboard deployment.
func DefaultConfig() Config {
	return Config{
		Categories: map[string][]string{
			"ROBO":               {"Robo con violencia", "Robo de vehículo", "Robo a transeúnte"},
			"ASALTO":             {"Asalto y lesiones", "Agresión física", "Riña callejera"},
			"HURTO":              {"Hurto simple", "Hurto de celular", "Carterismo"},
			"VANDALISMO":         {"Daño a propiedad", "Grafiti", "Destrucción de bienes"},
			"VIOLENCIA FAMILIAR": {"Violencia doméstica", "Maltrato familiar"},
			"ESTAFA":             {"Fraude", "Estafa telefónica", "Clonación de tarjetas"},
		},
		Locations: []string{
			"CALLE", "AVENIDA", "PARQUE", "PLAZA", "TIENDA", "RESTAURANTE",
			"RESIDENCIA", "BANCO", "MERCADO", "TRANSPORTE PÚBLICO", "ESTACIONAMIENTO",
		},
		StreetPrefixes:      []string{"AV", "CALLE", "JR"},
		ArrestProb:          0.15,
		DomesticProb:        map[string]float64{"VIOLENCIA FAMILIAR": 0.25},
		DefaultDomesticProb: 0.05,
	}
}

// Generator assembles synthetic incidents. It is safe for sequential use;
// callers embedding it in a server should scope one per call.
type Generator struct {
	cfg Config
	rng *rand.Rand
	now func() time.Time
}

// Option customizes a Generator.
type Option func(*Generator)

// WithRand sets the random source (useful for deterministic tests).
func WithRand(rng *rand.Rand) Option {
	return func(g *Generator) { g.rng = rng }
}

// WithNow sets the clock (useful for deterministic tests).
func WithNow(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a Generator with the given config.
func New(cfg Config, opts ...Option) *Generator {
	if len(cfg.Categories) == 0 {
		cfg = DefaultConfig()
	}
	g := &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Result describes a generation batch.
type Result struct {
	BatchID   string `json:"batch_id"`
	Fallbacks int    `json:"fallbacks"` // points placed at the centroid fallback
}

// Generate produces exactly n incident records located inside the zone
// boundary, categorized uniformly from categories (or the full config table
// when empty) and timestamped uniformly within the last daysBack days.
//
// Record ids combine the batch timestamp in milliseconds with the sequence
// index; two batches generated in the same millisecond can collide, which is
// a documented weak point of the scheme, not a guarantee.
func (g *Generator) Generate(n int, zone geo.Polygon, categories []string, daysBack int) ([]model.Incident, Result) {
	now := g.now().UTC()
	res := Result{BatchID: uuid.New().String()}

	if len(categories) == 0 {
		categories = make([]string, 0, len(g.cfg.Categories))
		for cat := range g.cfg.Categories {
			categories = append(categories, cat)
		}
	}
	if daysBack <= 0 {
		daysBack = 30
	}
	if daysBack > maxDaysBack {
		daysBack = maxDaysBack
	}

	incidents := make([]model.Incident, 0, n)
	for i := 0; i < n; i++ {
		pt, inside := geo.SamplePoint(g.rng, zone)
		if !inside {
			res.Fallbacks++
		}

		primary := categories[g.rng.IntN(len(categories))]
		descs := g.cfg.Categories[primary]
		desc := "Incidente"
		if len(descs) > 0 {
			desc = descs[g.rng.IntN(len(descs))]
		}

		age := time.Duration(g.rng.Int64N(int64(daysBack) * int64(24*time.Hour)))
		date := now.Add(-age)

		lat, lon := pt.Lat, pt.Lon
		incidents = append(incidents, model.Incident{
			ID:                  fmt.Sprintf("SYN-%d-%d", now.UnixMilli(), i),
			CaseNumber:          fmt.Sprintf("AQP%d%06d", date.Year(), i),
			Date:                date,
			Block:               fmt.Sprintf("%s %d", g.pick(g.cfg.StreetPrefixes), 100+g.rng.IntN(900)),
			IUCR:                fmt.Sprintf("%d", 1000+g.rng.IntN(9000)),
			PrimaryType:         primary,
			Description:         desc,
			LocationDescription: g.pick(g.cfg.Locations),
			Arrest:              g.rng.Float64() < g.cfg.ArrestProb,
			Domestic:            g.rng.Float64() < g.domesticProb(primary),
			Beat:                fmt.Sprintf("%d", 100+g.rng.IntN(900)),
			District:            fmt.Sprintf("%02d", 1+g.rng.IntN(10)),
			Ward:                fmt.Sprintf("%d", 1+g.rng.IntN(29)),
			CommunityArea:       fmt.Sprintf("%d", 1+g.rng.IntN(77)),
			Year:                date.Year(),
			UpdatedOn:           now,
			Latitude:            &lat,
			Longitude:           &lon,
			Location:            fmt.Sprintf("(%v, %v)", pt.Lat, pt.Lon),
			Source:              model.SourceSynthetic,
		})
	}

	return incidents, res
}

func (g *Generator) domesticProb(category string) float64 {
	if p, ok := g.cfg.DomesticProb[category]; ok {
		return p
	}
	return g.cfg.DefaultDomesticProb
}

func (g *Generator) pick(pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	return pool[g.rng.IntN(len(pool))]
}
