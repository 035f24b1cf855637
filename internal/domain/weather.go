package domain

import "time"

// WeatherValueType names a measured quantity of a weather station
type WeatherValueType string

const (
	WeatherTemperature   WeatherValueType = "temperature"
	WeatherPrecipitation WeatherValueType = "precipitation"
	WeatherHumidity      WeatherValueType = "humidity"
	WeatherWindSpeed     WeatherValueType = "windSpeed"
	WeatherPressure      WeatherValueType = "pressure"
)

// WeatherValue is a single measurement
type WeatherValue struct {
	Type  WeatherValueType `json:"type"`
	Value float64          `json:"value"`
	Unit  string           `json:"unit,omitempty"`
}

// WeatherSnapshot represents the latest observed reading of one station
type WeatherSnapshot struct {
	StationID  string         `json:"station_id"`
	Name       string         `json:"name"`
	Location   *GeoPoint      `json:"location,omitempty"`
	ObservedAt time.Time      `json:"observed_at"`
	Values     []WeatherValue `json:"values"`
	IsMock     bool           `json:"is_mock"`
}

// Value returns the first measurement of the given type
func (w WeatherSnapshot) Value(t WeatherValueType) (float64, bool) {
	for _, v := range w.Values {
		if v.Type == t {
			return v.Value, true
		}
	}
	return 0, false
}

// Temperature in degrees Celsius
func (w WeatherSnapshot) Temperature() (float64, bool) {
	return w.Value(WeatherTemperature)
}

// Precipitation in millimeters
func (w WeatherSnapshot) Precipitation() (float64, bool) {
	return w.Value(WeatherPrecipitation)
}

// WeatherResponse wraps weather data with metadata
type WeatherResponse struct {
	Data    []WeatherSnapshot `json:"data"`
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
}
