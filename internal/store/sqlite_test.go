package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimengo/crimengo/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testIncident(id string, date time.Time) model.Incident {
	lat, lon := -16.409, -71.537
	return model.Incident{
		ID:                  id,
		CaseNumber:          "AQP2025" + id,
		Date:                date,
		Block:               "AV EJERCITO 100",
		IUCR:                "0820",
		PrimaryType:         "ROBO",
		Description:         "Robo de celular",
		LocationDescription: "CALLE",
		Arrest:              false,
		Domestic:            false,
		Beat:                "0421",
		District:            "004",
		Ward:                "12",
		CommunityArea:       "25",
		FBICode:             "06",
		Year:                date.Year(),
		UpdatedOn:           date,
		Latitude:            &lat,
		Longitude:           &lon,
		Location:            "(-16.409, -71.537)",
		Source:              model.SourceSynthetic,
	}
}

// --- Incidents ---

func TestSQLite_UpsertAndGetIncident(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	date := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	n, err := st.UpsertIncidents(ctx, []model.Incident{testIncident("A1", date)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := st.GetIncident(ctx, "A1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ROBO", got.PrimaryType)
	assert.Equal(t, "AQP2025A1", got.CaseNumber)
	assert.True(t, date.Equal(got.Date))
	require.NotNil(t, got.Latitude)
	assert.InDelta(t, -16.409, *got.Latitude, 1e-9)
	assert.Equal(t, model.SourceSynthetic, got.Source)
}

func TestSQLite_UpsertReplacesByID(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	date := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	in := testIncident("A1", date)
	_, err := st.UpsertIncidents(ctx, []model.Incident{in})
	require.NoError(t, err)

	in.PrimaryType = "HURTO"
	in.Arrest = true
	_, err = st.UpsertIncidents(ctx, []model.Incident{in})
	require.NoError(t, err)

	count, err := st.CountIncidents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := st.GetIncident(ctx, "A1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "HURTO", got.PrimaryType)
	assert.True(t, got.Arrest)
}

func TestSQLite_UpsertEmptyBatch(t *testing.T) {
	st := newTestSQLiteStore(t)

	n, err := st.UpsertIncidents(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_GetIncident_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetIncident(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_IncidentWithoutCoordinates(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	in := testIncident("NC1", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	in.Latitude = nil
	in.Longitude = nil
	_, err := st.UpsertIncidents(ctx, []model.Incident{in})
	require.NoError(t, err)

	got, err := st.GetIncident(ctx, "NC1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.Latitude)
	assert.Nil(t, got.Longitude)
	assert.False(t, got.HasCoordinates())
}

func TestSQLite_ListIncidents_OrderAndFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	older := testIncident("OLD", base)
	newer := testIncident("NEW", base.Add(48*time.Hour))
	newer.PrimaryType = "ASALTO"
	newer.Arrest = true
	newer.Source = model.SourceFeed
	_, err := st.UpsertIncidents(ctx, []model.Incident{older, newer})
	require.NoError(t, err)

	all, err := st.ListIncidents(ctx, model.IncidentFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "NEW", all[0].ID) // date DESC
	assert.Equal(t, "OLD", all[1].ID)

	byType, err := st.ListIncidents(ctx, model.IncidentFilter{PrimaryType: "ASALTO"})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "NEW", byType[0].ID)

	arrests, err := st.ListIncidents(ctx, model.IncidentFilter{ArrestOnly: true})
	require.NoError(t, err)
	require.Len(t, arrests, 1)
	assert.Equal(t, "NEW", arrests[0].ID)

	synthetic, err := st.ListIncidents(ctx, model.IncidentFilter{Source: model.SourceSynthetic})
	require.NoError(t, err)
	require.Len(t, synthetic, 1)
	assert.Equal(t, "OLD", synthetic[0].ID)

	since := base.Add(24 * time.Hour)
	recent, err := st.ListIncidents(ctx, model.IncidentFilter{Since: &since})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "NEW", recent[0].ID)
}

func TestSQLite_ListIncidents_LimitOffset(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	batch := make([]model.Incident, 5)
	for i := range batch {
		batch[i] = testIncident(string(rune('A'+i)), base.Add(time.Duration(i)*time.Hour))
	}
	_, err := st.UpsertIncidents(ctx, batch)
	require.NoError(t, err)

	page, err := st.ListIncidents(ctx, model.IncidentFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "D", page[0].ID)
	assert.Equal(t, "C", page[1].ID)
}

func TestSQLite_DeleteIncident(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.UpsertIncidents(ctx, []model.Incident{
		testIncident("DEL", time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	})
	require.NoError(t, err)

	deleted, err := st.DeleteIncident(ctx, "DEL")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = st.DeleteIncident(ctx, "DEL")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSQLite_Summary(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	empty, err := st.Summary(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Nil(t, empty.LatestDate)

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	a := testIncident("S1", base)
	a.Arrest = true
	b := testIncident("S2", base.Add(time.Hour))
	b.Domestic = true
	c := testIncident("S3", base.Add(2*time.Hour))
	_, err = st.UpsertIncidents(ctx, []model.Incident{a, b, c})
	require.NoError(t, err)

	sum, err := st.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Arrests)
	assert.Equal(t, 1, sum.Domestic)
	require.NotNil(t, sum.LatestDate)
	assert.True(t, base.Add(2*time.Hour).Equal(*sum.LatestDate))
}

func TestSQLite_TopCategories(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	var batch []model.Incident
	for i := 0; i < 3; i++ {
		in := testIncident("R"+string(rune('0'+i)), base)
		batch = append(batch, in)
	}
	hurto := testIncident("H1", base)
	hurto.PrimaryType = "HURTO"
	blank := testIncident("B1", base)
	blank.PrimaryType = ""
	batch = append(batch, hurto, blank)
	_, err := st.UpsertIncidents(ctx, batch)
	require.NoError(t, err)

	top, err := st.TopCategories(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "ROBO", top[0].Label)
	assert.Equal(t, 3, top[0].Count)
	// Blank category is reported as UNKNOWN.
	labels := []string{top[1].Label, top[2].Label}
	assert.Contains(t, labels, "HURTO")
	assert.Contains(t, labels, "UNKNOWN")
}

func TestSQLite_TopLocations_Limit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	locations := []string{"CALLE", "MERCADO", "PARQUE"}
	var batch []model.Incident
	for i, loc := range locations {
		in := testIncident("L"+string(rune('0'+i)), base)
		in.LocationDescription = loc
		batch = append(batch, in)
	}
	_, err := st.UpsertIncidents(ctx, batch)
	require.NoError(t, err)

	top, err := st.TopLocations(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

// --- Zones ---

func TestSQLite_ZoneRoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	zone := model.Zone{
		Name: "cercado",
		Boundary: [][2]float64{
			{-16.38, -71.55}, {-16.38, -71.52}, {-16.42, -71.52}, {-16.42, -71.55},
		},
		CenterLat: -16.40,
		CenterLon: -71.535,
	}
	require.NoError(t, st.UpsertZone(ctx, zone))

	got, err := st.GetZone(ctx, "cercado")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, zone.Boundary, got.Boundary)
	assert.InDelta(t, zone.CenterLat, got.CenterLat, 1e-9)

	// Replaces on the same name.
	zone.CenterLat = -16.41
	require.NoError(t, st.UpsertZone(ctx, zone))
	got, err = st.GetZone(ctx, "cercado")
	require.NoError(t, err)
	assert.InDelta(t, -16.41, got.CenterLat, 1e-9)
}

func TestSQLite_GetZone_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetZone(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_ListZones_SortedByName(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, name := range []string{"yanahuara", "cercado", "miraflores"} {
		require.NoError(t, st.UpsertZone(ctx, model.Zone{
			Name:     name,
			Boundary: [][2]float64{{0, 0}, {0, 1}, {1, 1}},
		}))
	}

	zones, err := st.ListZones(ctx)
	require.NoError(t, err)
	require.Len(t, zones, 3)
	assert.Equal(t, "cercado", zones[0].Name)
	assert.Equal(t, "miraflores", zones[1].Name)
	assert.Equal(t, "yanahuara", zones[2].Name)
}

// --- Users ---

func TestSQLite_CreateAndGetUser(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.CreateUser(ctx, model.User{
		Username:     "admin",
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuv",
		IsAdmin:      true,
	})
	require.NoError(t, err)

	got, err := st.GetUser(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.IsAdmin)
	assert.Equal(t, "$2a$10$abcdefghijklmnopqrstuv", got.PasswordHash)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSQLite_CreateUser_DuplicateFails(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	u := model.User{Username: "admin", PasswordHash: "x"}
	require.NoError(t, st.CreateUser(ctx, u))
	assert.Error(t, st.CreateUser(ctx, u))
}

func TestSQLite_GetUser_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	got, err := st.GetUser(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, got)
}
