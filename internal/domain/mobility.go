package domain

import (
	"math"
	"time"
)

// GeoPoint is a WGS84 coordinate
type GeoPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Deeplinks holds per-platform targets that open a provider app
type Deeplinks struct {
	IOS     string `json:"ios,omitempty"`
	Android string `json:"android,omitempty"`
	Web     string `json:"web,omitempty"`
}

// Primary returns the first non-empty target
func (d *Deeplinks) Primary() string {
	if d == nil {
		return ""
	}
	for _, link := range []string{d.IOS, d.Android, d.Web} {
		if link != "" {
			return link
		}
	}
	return ""
}

// Stop describes the public transit stop a response set was built for
type Stop struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Distance *float64  `json:"distance,omitempty"`
	Location *GeoPoint `json:"location,omitempty"`
}

// MobilityOption is one concrete offering: a departure, a vehicle or a station
type MobilityOption struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Location    *GeoPoint  `json:"location,omitempty"`
	IconURL     string     `json:"icon_url,omitempty"`
	SymbolURL   string     `json:"symbol_url,omitempty"`
	Deeplinks   *Deeplinks `json:"deeplinks,omitempty"`
	Distance    *float64   `json:"distance,omitempty"`     // meters
	EnergyLevel *float64   `json:"energy_level,omitempty"` // 0..1

	// Public transit only
	ShortName          string     `json:"short_name,omitempty"`
	Color              string     `json:"color,omitempty"`
	Direction          string     `json:"direction,omitempty"`
	DeparturePlanned   *time.Time `json:"departure_time_planned,omitempty"`
	DepartureEstimated *time.Time `json:"departure_time_estimated,omitempty"`
	Delayed            bool       `json:"delayed,omitempty"`
	Delay              int        `json:"delay,omitempty"` // seconds
}

// DelayMinutes is the whole-minute delay applied to the planned departure
func (o MobilityOption) DelayMinutes() int {
	if !o.Delayed {
		return 0
	}
	return int(math.Round(float64(o.Delay)) / 60)
}

// IsDeparture reports whether the option is a scheduled departure row
func (o MobilityOption) IsDeparture() bool {
	return o.DeparturePlanned != nil
}

// CategoryResponseSet is what the provider returned for one category in one cycle
type CategoryResponseSet struct {
	Category  Category         `json:"type"`
	IconURL   string           `json:"icon_url,omitempty"`
	SymbolURL string           `json:"symbol_url,omitempty"`
	Stop      *Stop            `json:"stop,omitempty"`
	Options   []MobilityOption `json:"available_options"`
}

// HasDeeplinks reports whether any option can be opened in a provider app
func (s CategoryResponseSet) HasDeeplinks() bool {
	for _, o := range s.Options {
		if o.Deeplinks.Primary() != "" {
			return true
		}
	}
	return false
}

// Section is one category of the aggregated view
type Section struct {
	Category Category              `json:"category"`
	Sets     []CategoryResponseSet `json:"sets"`
}

// AggregatedView holds non-empty categories in priority order
type AggregatedView struct {
	Sections []Section `json:"sections"`
}

// Categories lists the categories of the view in order
func (v AggregatedView) Categories() []Category {
	out := make([]Category, 0, len(v.Sections))
	for _, s := range v.Sections {
		out = append(out, s.Category)
	}
	return out
}

// Section returns the section at the given display index
func (v AggregatedView) Section(index int) (Section, bool) {
	if index < 0 || index >= len(v.Sections) {
		return Section{}, false
	}
	return v.Sections[index], true
}

// SolingenCenter coordinates (Hauptbahnhof)
const (
	SolingenCenterLat = 51.161300933868745
	SolingenCenterLon = 7.00264613279818
)
