// Package projector maps the aggregated view, loading state and weather
// reading into the model a dashboard renders.
package projector

import (
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/smartcity/mobility/internal/domain"
)

const (
	// walkingSpeed in meters per minute
	walkingSpeed = 75.0
	// rainThreshold in millimeters above which the rain icon is shown
	rainThreshold = 0.3
)

// Weather icon names
const (
	IconSun  = "sun.max"
	IconRain = "cloud.rain"
)

// WeatherSummary is the header weather block
type WeatherSummary struct {
	Icon             string    `json:"icon"`
	TemperatureLabel string    `json:"temperature_label"`
	Temperature      float64   `json:"temperature"`
	Precipitation    float64   `json:"precipitation"`
	StationName      string    `json:"station_name,omitempty"`
	ObservedAt       time.Time `json:"observed_at"`
}

// Row is one line of a card. Departure rows fill the transit fields,
// vehicle rows the walk and energy fields.
type Row struct {
	ID      string `json:"id"`
	IconURL string `json:"icon_url,omitempty"`

	Line           string `json:"line,omitempty"`
	Color          string `json:"color,omitempty"`
	Direction      string `json:"direction,omitempty"`
	DepartureLabel string `json:"departure_label,omitempty"`
	MinutesUntil   *int   `json:"minutes_until,omitempty"`
	DelayMinutes   int    `json:"delay_minutes,omitempty"`

	Name        string `json:"name,omitempty"`
	WalkMinutes *int   `json:"walk_minutes,omitempty"`
	WalkLabel   string `json:"walk_label,omitempty"`
	EnergyIcon  string `json:"energy_icon,omitempty"`
	Deeplink    string `json:"deeplink,omitempty"`
}

// Card renders one CategoryResponseSet
type Card struct {
	Title         string `json:"title"`
	IconURL       string `json:"icon_url,omitempty"`
	DistanceLabel string `json:"distance_label,omitempty"`
	HasDeeplinks  bool   `json:"has_deeplinks"`
	PublicTransit bool   `json:"public_transit"`
	Rows          []Row  `json:"rows"`
}

// SectionModel groups the cards of one category
type SectionModel struct {
	Category domain.Category `json:"category"`
	Cards    []Card          `json:"cards"`
}

// Annotation is a map pin for an option with a known location
type Annotation struct {
	ID       string          `json:"id"`
	Category domain.Category `json:"category"`
	Lat      float64         `json:"lat"`
	Lon      float64         `json:"lon"`
	ImageURL string          `json:"image_url,omitempty"`
}

// ScreenModel is everything the presentation layer reads
type ScreenModel struct {
	State       domain.LoadingState `json:"state"`
	Weather     *WeatherSummary     `json:"weather,omitempty"`
	Sections    []SectionModel      `json:"sections"`
	Annotations []Annotation        `json:"annotations"`
	GeneratedAt time.Time           `json:"generated_at"`
}

// Projector caches the last weather reading so it survives
// mobility-only refresh cycles.
type Projector struct {
	mu      sync.RWMutex
	weather *domain.WeatherSnapshot
}

// New creates a projector without weather
func New() *Projector {
	return &Projector{}
}

// ObserveWeather keeps the first reading. An empty list keeps the previous one.
func (p *Projector) ObserveWeather(readings []domain.WeatherSnapshot) {
	if len(readings) == 0 {
		return
	}
	w := readings[0]
	p.mu.Lock()
	p.weather = &w
	p.mu.Unlock()
}

// Weather returns the cached reading
func (p *Projector) Weather() (domain.WeatherSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.weather == nil {
		return domain.WeatherSnapshot{}, false
	}
	return *p.weather, true
}

// Project builds the screen model with the cached weather
func (p *Projector) Project(view domain.AggregatedView, state domain.LoadingState, now time.Time) ScreenModel {
	p.mu.RLock()
	weather := p.weather
	p.mu.RUnlock()
	return Build(view, state, weather, now)
}

// Build is the pure projection of its inputs
func Build(view domain.AggregatedView, state domain.LoadingState, weather *domain.WeatherSnapshot, now time.Time) ScreenModel {
	model := ScreenModel{
		State:       state,
		Weather:     Summarize(weather),
		Sections:    make([]SectionModel, 0, len(view.Sections)),
		Annotations: []Annotation{},
		GeneratedAt: now,
	}

	for _, section := range view.Sections {
		sm := SectionModel{Category: section.Category, Cards: make([]Card, 0, len(section.Sets))}
		for si, set := range section.Sets {
			sm.Cards = append(sm.Cards, buildCard(section.Category, set, now))
			model.Annotations = append(model.Annotations, annotations(section.Category, si, set)...)
		}
		model.Sections = append(model.Sections, sm)
	}

	return model
}

// Summarize formats a weather reading. A reading missing temperature or
// precipitation yields nil.
func Summarize(w *domain.WeatherSnapshot) *WeatherSummary {
	if w == nil {
		return nil
	}
	temp, ok := w.Temperature()
	if !ok {
		return nil
	}
	rain, ok := w.Precipitation()
	if !ok {
		return nil
	}

	icon := IconRain
	if rain < rainThreshold {
		icon = IconSun
	}
	return &WeatherSummary{
		Icon:             icon,
		TemperatureLabel: TemperatureLabel(temp),
		Temperature:      temp,
		Precipitation:    rain,
		StationName:      w.Name,
		ObservedAt:       w.ObservedAt,
	}
}

// TemperatureLabel renders degrees Celsius without trailing zeros
func TemperatureLabel(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64) + "°C"
}

// WalkMinutes converts a distance in meters to walking minutes
func WalkMinutes(distance float64) int {
	return int(math.Round(distance / walkingSpeed))
}

// WalkLabel renders walking minutes, "-" when under half a minute
func WalkLabel(minutes int) string {
	if minutes == 0 {
		return "-"
	}
	return strconv.Itoa(minutes)
}

// EnergyIcon buckets a 0..1 charge level. Unknown levels render nothing.
func EnergyIcon(level *float64) string {
	if level == nil || *level < 0 {
		return ""
	}
	switch l := *level; {
	case l >= 0.8:
		return "battery.100"
	case l >= 0.6:
		return "battery.75"
	case l >= 0.4:
		return "battery.50"
	case l >= 0.2:
		return "battery.25"
	default:
		return "battery.0"
	}
}

func buildCard(category domain.Category, set domain.CategoryResponseSet, now time.Time) Card {
	card := Card{
		Title:         category.Title(set),
		IconURL:       set.IconURL,
		HasDeeplinks:  set.HasDeeplinks(),
		PublicTransit: category.IsPublicTransit(),
		Rows:          make([]Row, 0, len(set.Options)),
	}

	if card.PublicTransit && set.Stop != nil && set.Stop.Distance != nil {
		card.DistanceLabel = fmt.Sprintf("%.0fm", *set.Stop.Distance)
	}

	for _, o := range set.Options {
		if card.PublicTransit {
			card.Rows = append(card.Rows, departureRow(o, now))
		} else {
			card.Rows = append(card.Rows, vehicleRow(o))
		}
	}
	return card
}

func departureRow(o domain.MobilityOption, now time.Time) Row {
	row := Row{
		ID:        o.ID,
		IconURL:   o.IconURL,
		Line:      o.ShortName,
		Color:     o.Color,
		Direction: o.Direction,
	}
	if o.DeparturePlanned != nil {
		delay := o.DelayMinutes()
		m := MinutesUntil(*o.DeparturePlanned, delay, now)
		row.MinutesUntil = &m
		row.DelayMinutes = delay
		row.DepartureLabel = DepartureLabel(*o.DeparturePlanned, delay, now)
	}
	return row
}

func vehicleRow(o domain.MobilityOption) Row {
	row := Row{
		ID:         o.ID,
		IconURL:    o.IconURL,
		Name:       o.Name,
		EnergyIcon: EnergyIcon(o.EnergyLevel),
		Deeplink:   o.Deeplinks.Primary(),
	}
	if o.Distance != nil {
		m := WalkMinutes(*o.Distance)
		row.WalkMinutes = &m
		row.WalkLabel = WalkLabel(m)
	}
	return row
}

func annotations(category domain.Category, setIndex int, set domain.CategoryResponseSet) []Annotation {
	var out []Annotation
	for i, o := range set.Options {
		if o.Location == nil {
			continue
		}
		id := o.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d-%d", category, setIndex, i)
		}
		image := set.SymbolURL
		if image == "" {
			image = o.SymbolURL
		}
		out = append(out, Annotation{
			ID:       id,
			Category: category,
			Lat:      o.Location.Latitude,
			Lon:      o.Location.Longitude,
			ImageURL: image,
		})
	}
	return out
}
