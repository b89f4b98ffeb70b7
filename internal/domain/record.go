package domain

import (
	"encoding/json"
	"strings"
)

// StormRecord is the structured detail of one storm as served by the backend.
type StormRecord struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name,omitempty" yaml:"name,omitempty"`
	Category      int      `json:"category" yaml:"category"`
	WindSpeed     float64  `json:"windSpeed,omitempty" yaml:"wind_speed,omitempty"` // km/h
	Pressure      float64  `json:"pressure,omitempty" yaml:"pressure,omitempty"`    // mb
	Location      string   `json:"location,omitempty" yaml:"location,omitempty"`
	Lat           float64  `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lng           float64  `json:"lng,omitempty" yaml:"lng,omitempty"`
	Direction     string   `json:"direction,omitempty" yaml:"direction,omitempty"`
	MovementSpeed float64  `json:"movementSpeed,omitempty" yaml:"movement_speed,omitempty"` // km/h
	AffectedAreas []string `json:"affectedAreas,omitempty" yaml:"affected_areas,omitempty"`
	Status        string   `json:"status,omitempty" yaml:"status,omitempty"` // active, warning, watch
	Investigation bool     `json:"investigation,omitempty" yaml:"investigation,omitempty"`
}

// IsInvestigationArea reports whether the record describes an investigation
// area: either flagged explicitly or carrying an "invest" id prefix.
func (r StormRecord) IsInvestigationArea() bool {
	return r.Investigation || strings.HasPrefix(strings.ToLower(r.ID), "invest")
}

// SubjectFromRecord maps a record to a storm subject. The subject's ID is always r.ID.
func SubjectFromRecord(r StormRecord) Subject {
	return Storm(StormInfo{
		ID:                r.ID,
		DisplayName:       r.Name,
		InvestigationArea: r.IsInvestigationArea(),
		DangerCategory:    r.Category,
	})
}

// Detail is the structured record fetched for a subject on a slot.
type Detail struct {
	Subject Subject         `json:"-" yaml:"-"`
	Slot    TimeSlot        `json:"-" yaml:"-"`
	Date    string          `json:"date,omitempty" yaml:"date,omitempty"`
	Source  string          `json:"source,omitempty" yaml:"source,omitempty"` // backend file or directory name
	Storms  []StormRecord   `json:"storms" yaml:"storms"`
	Raw     json.RawMessage `json:"-" yaml:"-"`
}

// Subjects returns the overview followed by one subject per record with a non-empty id.
func (d Detail) Subjects() []Subject {
	out := make([]Subject, 0, len(d.Storms)+1)
	out = append(out, Overview())
	seen := make(map[string]bool, len(d.Storms))
	for _, r := range d.Storms {
		if r.ID == "" || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		out = append(out, SubjectFromRecord(r))
	}
	return out
}

// StormStats summarises a list of records the way the dashboard sidebar does.
type StormStats struct {
	Active   int `json:"active" yaml:"active"`
	Severe   int `json:"severe" yaml:"severe"` // category 3 and above
	Warnings int `json:"warnings" yaml:"warnings"`
}

// Stats counts active, severe and warning-status storms.
func Stats(records []StormRecord) StormStats {
	var s StormStats
	for _, r := range records {
		s.Active++
		if r.Category >= 3 {
			s.Severe++
		}
		if r.Status == "warning" {
			s.Warnings++
		}
	}
	return s
}

// RainPoint is one interpolated rain-map sample.
type RainPoint struct {
	Lat  float64 `json:"lat" yaml:"lat"`
	Lon  float64 `json:"lon" yaml:"lon"`
	Rain float64 `json:"rain" yaml:"rain"`
}

// RainMap is the realtime interpolated rain map.
type RainMap struct {
	Timestamp          string      `json:"timestamp" yaml:"timestamp"`
	OriginalPoints     int         `json:"original_points" yaml:"original_points"`
	InterpolatedPoints int         `json:"interpolated_points" yaml:"interpolated_points"`
	Data               []RainPoint `json:"data" yaml:"-"`
}

// RainSummary reduces a rain map to its headline numbers.
type RainSummary struct {
	Timestamp string    `json:"timestamp" yaml:"timestamp"`
	Points    int       `json:"points" yaml:"points"`
	MaxRain   float64   `json:"max_rain" yaml:"max_rain"`
	MeanRain  float64   `json:"mean_rain" yaml:"mean_rain"`
	Wettest   RainPoint `json:"wettest" yaml:"wettest"`
}

// Summarize computes the max and mean rain of the map.
func (m RainMap) Summarize() RainSummary {
	s := RainSummary{Timestamp: m.Timestamp, Points: len(m.Data)}
	if len(m.Data) == 0 {
		return s
	}
	var total float64
	s.Wettest = m.Data[0]
	for _, p := range m.Data {
		total += p.Rain
		if p.Rain > s.Wettest.Rain {
			s.Wettest = p
		}
	}
	s.MaxRain = s.Wettest.Rain
	s.MeanRain = total / float64(len(m.Data))
	return s
}
