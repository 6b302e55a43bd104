// Package export writes incident sets to CSV and XLSX.
package export

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/crimengo/crimengo/internal/model"
)

const dateLayout = "2006-01-02 15:04:05"

var header = []string{
	"id", "case_number", "date", "block", "iucr", "primary_type", "description",
	"location_description", "arrest", "domestic", "beat", "district", "ward",
	"community_area", "fbi_code", "year", "updated_on", "latitude", "longitude",
	"location", "source",
}

func row(in model.Incident) []string {
	var lat, lon string
	if in.Latitude != nil {
		lat = strconv.FormatFloat(*in.Latitude, 'f', -1, 64)
	}
	if in.Longitude != nil {
		lon = strconv.FormatFloat(*in.Longitude, 'f', -1, 64)
	}
	return []string{
		in.ID, in.CaseNumber, formatDate(in.Date), in.Block, in.IUCR, in.PrimaryType,
		in.Description, in.LocationDescription,
		strconv.FormatBool(in.Arrest), strconv.FormatBool(in.Domestic),
		in.Beat, in.District, in.Ward, in.CommunityArea, in.FBICode,
		strconv.Itoa(in.Year), formatDate(in.UpdatedOn), lat, lon,
		in.Location, string(in.Source),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

// WriteCSV writes incidents as CSV with a header row.
func WriteCSV(w io.Writer, incidents []model.Incident) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, in := range incidents {
		if err := cw.Write(row(in)); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", in.ID)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// WriteXLSX writes incidents to a single-sheet XLSX workbook.
func WriteXLSX(w io.Writer, incidents []model.Incident) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Incidents")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	hr := sheet.AddRow()
	for _, col := range header {
		hr.AddCell().SetString(col)
	}

	for _, in := range incidents {
		r := sheet.AddRow()
		for _, cell := range row(in) {
			r.AddCell().SetString(cell)
		}
	}

	return eris.Wrap(f.Write(w), "export: write xlsx")
}
