package model

import "time"

// Source identifies where an incident record came from.
type Source string

const (
	SourceFeed      Source = "feed"      // ingested from the public incident feed
	SourceSynthetic Source = "synthetic" // produced by the zone generator
)

// Incident is a single crime-incident record. Records are immutable once
// created; re-ingesting the same id replaces the stored row wholesale.
type Incident struct {
	ID                  string    `json:"id"`
	CaseNumber          string    `json:"case_number,omitempty"`
	Date                time.Time `json:"date"`
	Block               string    `json:"block,omitempty"`
	IUCR                string    `json:"iucr,omitempty"`
	PrimaryType         string    `json:"primary_type"`
	Description         string    `json:"description,omitempty"`
	LocationDescription string    `json:"location_description,omitempty"`
	Arrest              bool      `json:"arrest"`
	Domestic            bool      `json:"domestic"`
	Beat                string    `json:"beat,omitempty"`
	District            string    `json:"district,omitempty"`
	Ward                string    `json:"ward,omitempty"`
	CommunityArea       string    `json:"community_area,omitempty"`
	FBICode             string    `json:"fbi_code,omitempty"`
	Year                int       `json:"year,omitempty"`
	UpdatedOn           time.Time `json:"updated_on,omitempty"`
	Latitude            *float64  `json:"latitude,omitempty"`
	Longitude           *float64  `json:"longitude,omitempty"`
	Location            string    `json:"location,omitempty"`
	Source              Source    `json:"source,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (in Incident) HasCoordinates() bool {
	return in.Latitude != nil && in.Longitude != nil
}

// IncidentFilter specifies criteria for listing incidents.
type IncidentFilter struct {
	PrimaryType string     `json:"primary_type,omitempty"`
	ArrestOnly  bool       `json:"arrest_only,omitempty"`
	Source      Source     `json:"source,omitempty"`
	Since       *time.Time `json:"since,omitempty"`
	Limit       int        `json:"limit,omitempty"`
	Offset      int        `json:"offset,omitempty"`
}

// Summary holds the headline metrics shown on the dashboard.
type Summary struct {
	Total      int        `json:"total"`
	Arrests    int        `json:"arrests"`
	Domestic   int        `json:"domestic"`
	LatestDate *time.Time `json:"latest_date,omitempty"`
}

// CategoryCount is one bar of a category chart.
type CategoryCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// User is an operator account. Only admins may mutate data.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}
