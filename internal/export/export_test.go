package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/crimengo/crimengo/internal/model"
)

func sampleIncidents() []model.Incident {
	lat, lon := -16.409, -71.537
	return []model.Incident{
		{
			ID:          "SYN-1",
			CaseNumber:  "AQP2025000001",
			Date:        time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC),
			PrimaryType: "ROBO",
			Description: "Robo de celular",
			Arrest:      true,
			Year:        2025,
			Latitude:    &lat,
			Longitude:   &lon,
			Source:      model.SourceSynthetic,
		},
		{
			ID:          "SYN-2",
			PrimaryType: "HURTO",
			Source:      model.SourceSynthetic,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleIncidents()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3) // header + 2 rows

	assert.Equal(t, "id", records[0][0])
	assert.Equal(t, "primary_type", records[0][5])

	first := records[1]
	assert.Equal(t, "SYN-1", first[0])
	assert.Equal(t, "2025-06-01 14:30:00", first[2])
	assert.Equal(t, "ROBO", first[5])
	assert.Equal(t, "true", first[8])
	assert.Equal(t, "-16.409", first[17])
	assert.Equal(t, "-71.537", first[18])

	// Missing coordinates and zero dates come out empty.
	second := records[2]
	assert.Equal(t, "", second[2])
	assert.Equal(t, "", second[17])
	assert.Equal(t, "", second[18])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1) // header only
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleIncidents()))

	f, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, f.Sheets, 1)

	sheet := f.Sheets[0]
	assert.Equal(t, "Incidents", sheet.Name)
	require.Len(t, sheet.Rows, 3)

	assert.Equal(t, "id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "SYN-1", sheet.Rows[1].Cells[0].String())
	assert.Equal(t, "ROBO", sheet.Rows[1].Cells[5].String())
	assert.Equal(t, "HURTO", sheet.Rows[2].Cells[5].String())
}
