package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/smartcity/mobility/internal/domain"
	"github.com/smartcity/mobility/pkg/utils"
)

// MobilityService fetches nearby options per category from the mobility provider
type MobilityService struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewMobilityService creates a new mobility service. An empty baseURL
// generates demo options around the requested location.
func NewMobilityService(baseURL, apiKey string, timeout time.Duration) *MobilityService {
	return &MobilityService{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchMobility fetches the response sets of one category near lat/lon
func (s *MobilityService) FetchMobility(ctx context.Context, category domain.Category, lat, lon float64, maxDetailItems int) ([]domain.CategoryResponseSet, error) {
	if s.baseURL == "" {
		return s.generateMockSets(category, lat, lon, maxDetailItems, time.Now()), nil
	}

	params := url.Values{}
	params.Set("type", string(category))
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("maxDetailItems", strconv.Itoa(maxDetailItems))
	endpoint := fmt.Sprintf("%s/mobility?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("mobility: failed to create request: %w", &domain.FetchError{Kind: domain.FetchOther, Err: err})
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mobility: %s request failed: %w", category, &domain.FetchError{Kind: domain.FetchNetwork, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("mobility: %s unexpected response: %w", category,
			&domain.FetchError{Kind: domain.FetchNetwork, StatusCode: resp.StatusCode, Body: body})
	}

	var sets []domain.CategoryResponseSet
	if err := json.NewDecoder(resp.Body).Decode(&sets); err != nil {
		return nil, fmt.Errorf("mobility: %s failed to decode response: %w", category, &domain.FetchError{Kind: domain.FetchDecode, Err: err})
	}

	origin := domain.GeoPoint{Latitude: lat, Longitude: lon}
	for i := range sets {
		if sets[i].Category == "" {
			sets[i].Category = category
		}
		fillDistances(sets[i].Options, origin)
	}

	return sets, nil
}

// fillDistances computes walking distance in meters for options the provider left without one
func fillDistances(options []domain.MobilityOption, origin domain.GeoPoint) {
	for i := range options {
		o := &options[i]
		if o.Distance != nil || o.Location == nil {
			continue
		}
		meters := utils.RoundTo(utils.Haversine(origin.Latitude, origin.Longitude, o.Location.Latitude, o.Location.Longitude)*1000, 1)
		o.Distance = &meters
	}
}

// generateMockSets creates plausible options around the location
func (s *MobilityService) generateMockSets(category domain.Category, lat, lon float64, maxItems int, now time.Time) []domain.CategoryResponseSet {
	origin := domain.GeoPoint{Latitude: lat, Longitude: lon}
	iconURL := fmt.Sprintf("https://static.example.org/mobility/%s.png", category)

	switch category {
	case domain.CategoryBus, domain.CategoryTrain, domain.CategoryRegioTrain:
		stopLoc := offset(origin, 0.003)
		distance := utils.RoundTo(utils.Haversine(lat, lon, stopLoc.Latitude, stopLoc.Longitude)*1000, 0)
		stop := &domain.Stop{
			ID:       fmt.Sprintf("mock-stop-%s", category),
			Name:     mockStopNames[category],
			Distance: &distance,
			Location: &stopLoc,
		}

		options := make([]domain.MobilityOption, 0, maxItems)
		for i := 0; i < maxItems; i++ {
			planned := now.Truncate(time.Minute).Add(time.Duration(3+i*7) * time.Minute)
			delaySeconds := 0
			if rand.Intn(3) == 0 {
				delaySeconds = 60 * (1 + rand.Intn(5))
			}
			estimated := planned.Add(time.Duration(delaySeconds) * time.Second)
			options = append(options, domain.MobilityOption{
				ID:                 fmt.Sprintf("%s-%d", stop.ID, i),
				Name:               mockDirections[i%len(mockDirections)],
				Direction:          mockDirections[i%len(mockDirections)],
				ShortName:          mockLines[category][i%len(mockLines[category])],
				Color:              mockLineColor[category],
				Location:           &stopLoc,
				DeparturePlanned:   &planned,
				DepartureEstimated: &estimated,
				Delayed:            delaySeconds > 0,
				Delay:              delaySeconds,
			})
		}
		return []domain.CategoryResponseSet{{Category: category, IconURL: iconURL, Stop: stop, Options: options}}

	case domain.CategoryEScooter, domain.CategoryBicycle, domain.CategoryCarSharing:
		options := make([]domain.MobilityOption, 0, maxItems)
		for i := 0; i < maxItems; i++ {
			loc := offset(origin, 0.004)
			energy := utils.RoundTo(rand.Float64(), 2)
			options = append(options, domain.MobilityOption{
				ID:          fmt.Sprintf("mock-%s-%d", category, i),
				Name:        fmt.Sprintf("%s %d", category.Title(domain.CategoryResponseSet{}), i+1),
				Location:    &loc,
				IconURL:     iconURL,
				EnergyLevel: &energy,
				Deeplinks:   &domain.Deeplinks{IOS: fmt.Sprintf("mock%s://vehicle/%d", category, i)},
			})
		}
		fillDistances(options, origin)
		return []domain.CategoryResponseSet{{Category: category, IconURL: iconURL, Options: options}}

	case domain.CategoryTaxi:
		loc := offset(origin, 0.002)
		options := []domain.MobilityOption{{
			ID:        "mock-taxi-0",
			Name:      "Taxi Zentrale",
			Location:  &loc,
			IconURL:   iconURL,
			Deeplinks: &domain.Deeplinks{Web: "tel:+49212000000"},
		}}
		fillDistances(options, origin)
		return []domain.CategoryResponseSet{{Category: category, IconURL: iconURL, Options: options}}

	default:
		// Nothing of this kind nearby
		return []domain.CategoryResponseSet{{Category: category, IconURL: iconURL}}
	}
}

// offset returns a random point within radius degrees of p
func offset(p domain.GeoPoint, radius float64) domain.GeoPoint {
	return domain.GeoPoint{
		Latitude:  p.Latitude + (rand.Float64()-0.5)*2*radius,
		Longitude: p.Longitude + (rand.Float64()-0.5)*2*radius,
	}
}

var mockStopNames = map[domain.Category]string{
	domain.CategoryBus:        "Solingen Graf-Wilhelm-Platz",
	domain.CategoryTrain:      "Solingen Hbf",
	domain.CategoryRegioTrain: "Solingen Mitte",
}

var mockLines = map[domain.Category][]string{
	domain.CategoryBus:        {"683", "681", "695"},
	domain.CategoryTrain:      {"S7", "S1"},
	domain.CategoryRegioTrain: {"RE7", "RB48"},
}

var mockLineColor = map[domain.Category]string{
	domain.CategoryBus:        "E30613",
	domain.CategoryTrain:      "00843D",
	domain.CategoryRegioTrain: "7F7F7F",
}

var mockDirections = []string{"Wuppertal Hbf", "Düsseldorf Hbf", "Remscheid", "Köln Hbf"}
