package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/smartcity/mobility/internal/domain"
)

// WeatherService fetches observed weather from the city data platform
type WeatherService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewWeatherService creates a new weather service. An empty baseURL
// serves demo readings.
func NewWeatherService(baseURL, apiKey string, timeout time.Duration) *WeatherService {
	return &WeatherService{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// weatherObservedResponse represents the platform's WeatherObserved class query
type weatherObservedResponse struct {
	Results []struct {
		ObjectID string `json:"objectId"`
		Name     string `json:"name"`
		GeoPoint *struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		} `json:"geopoint"`
		DateObserved *struct {
			ISO string `json:"iso"`
		} `json:"dateObserved"`
		ValueArray *struct {
			WeatherValues []struct {
				Type  string  `json:"type"`
				Value float64 `json:"value"`
				Unit  string  `json:"unit"`
			} `json:"weatherValues"`
		} `json:"valueArray"`
	} `json:"results"`
}

// NearSphereQuery builds the geo query selecting stations closest to a point
func NearSphereQuery(lat, lon float64) map[string]string {
	where := fmt.Sprintf(
		`{"geopoint": {"$nearSphere": { "__type": "GeoPoint", "latitude": %s, "longitude": %s }}}`,
		strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lon, 'f', -1, 64),
	)
	return map[string]string{"where": where}
}

// GetWeatherObserved fetches up to limit station readings matching query
func (s *WeatherService) GetWeatherObserved(ctx context.Context, limit int, query map[string]string) ([]domain.WeatherSnapshot, error) {
	// Return mock data if no platform is configured
	if s.baseURL == "" {
		return []domain.WeatherSnapshot{s.getMockWeather()}, nil
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	for k, v := range query {
		params.Set(k, v)
	}
	endpoint := fmt.Sprintf("%s/classes/WeatherObserved?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("weather: failed to create request: %w", &domain.FetchError{Kind: domain.FetchOther, Err: err})
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: request failed: %w", &domain.FetchError{Kind: domain.FetchNetwork, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("weather: unexpected response: %w",
			&domain.FetchError{Kind: domain.FetchNetwork, StatusCode: resp.StatusCode, Body: body})
	}

	var wr weatherObservedResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return nil, fmt.Errorf("weather: failed to decode response: %w", &domain.FetchError{Kind: domain.FetchDecode, Err: err})
	}

	snapshots := make([]domain.WeatherSnapshot, 0, len(wr.Results))
	for _, r := range wr.Results {
		snap := domain.WeatherSnapshot{
			StationID: r.ObjectID,
			Name:      r.Name,
		}
		if r.GeoPoint != nil {
			snap.Location = &domain.GeoPoint{Latitude: r.GeoPoint.Latitude, Longitude: r.GeoPoint.Longitude}
		}
		if r.DateObserved != nil {
			if t, err := time.Parse(time.RFC3339, r.DateObserved.ISO); err == nil {
				snap.ObservedAt = t
			}
		}
		if r.ValueArray != nil {
			for _, v := range r.ValueArray.WeatherValues {
				snap.Values = append(snap.Values, domain.WeatherValue{
					Type:  domain.WeatherValueType(v.Type),
					Value: v.Value,
					Unit:  v.Unit,
				})
			}
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}

// getMockWeather returns a simulated reading for the season
func (s *WeatherService) getMockWeather() domain.WeatherSnapshot {
	month := time.Now().Month()
	var temp, rain float64

	switch {
	case month >= 12 || month <= 2: // Winter
		temp, rain = 2.0, 0.8
	case month >= 3 && month <= 5: // Spring
		temp, rain = 11.0, 0.4
	case month >= 6 && month <= 8: // Summer
		temp, rain = 21.0, 0.1
	default: // Autumn
		temp, rain = 10.0, 1.2
	}

	return domain.WeatherSnapshot{
		StationID:  "mock-station",
		Name:       "Solingen Mitte",
		Location:   &domain.GeoPoint{Latitude: domain.SolingenCenterLat, Longitude: domain.SolingenCenterLon},
		ObservedAt: time.Now(),
		Values: []domain.WeatherValue{
			{Type: domain.WeatherTemperature, Value: temp, Unit: "°C"},
			{Type: domain.WeatherPrecipitation, Value: rain, Unit: "mm"},
			{Type: domain.WeatherHumidity, Value: 65, Unit: "%"},
		},
		IsMock: true,
	}
}
