package http

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	nethttp "net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"github.com/smartcity/mobility/internal/deeplink"
	"github.com/smartcity/mobility/internal/domain"
	"github.com/smartcity/mobility/internal/imagecache"
	"github.com/smartcity/mobility/internal/projector"
	"github.com/smartcity/mobility/internal/screen"
	"github.com/smartcity/mobility/internal/service"
)

// sseHeartbeat keeps idle event streams open through proxies
const sseHeartbeat = 15 * time.Second

// Handler contains all HTTP handlers
type Handler struct {
	runner    screen.Runner
	weather   service.WeatherFetcher
	icons     *imagecache.Cache
	screens   *screen.Registry
	repo      domain.SnapshotRepository
	deeplinks deeplink.Matcher
	fallback  domain.GeoPoint
}

// NewHandler creates a new handler
func NewHandler(
	runner screen.Runner,
	weather service.WeatherFetcher,
	icons *imagecache.Cache,
	screens *screen.Registry,
	repo domain.SnapshotRepository,
	deeplinks deeplink.Matcher,
	fallback domain.GeoPoint,
) *Handler {
	return &Handler{
		runner:    runner,
		weather:   weather,
		icons:     icons,
		screens:   screens,
		repo:      repo,
		deeplinks: deeplinks,
		fallback:  fallback,
	}
}

// locationRequest is the body of screen create and location updates
type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

func (r locationRequest) point() (*domain.GeoPoint, error) {
	if r.Lat == nil && r.Lon == nil {
		return nil, nil
	}
	if r.Lat == nil || r.Lon == nil {
		return nil, fmt.Errorf("lat and lon must be given together")
	}
	return validPoint(*r.Lat, *r.Lon)
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	storage := "ok"
	if err := h.repo.Health(c.Context()); err != nil {
		log.Printf("Health check: %v", err)
		status = "degraded"
		storage = "unavailable"
	}

	return c.JSON(fiber.Map{
		"status":  status,
		"service": "mobility-monitor",
		"version": "1.0.0",
		"storage": storage,
		"screens": h.screens.Len(),
	})
}

// GetMobility runs one aggregation cycle for lat/lon and returns the projected model
func (h *Handler) GetMobility(c *fiber.Ctx) error {
	ctx := c.Context()

	loc, err := h.queryLocation(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	// One-shot screens only register their icons, GetIcon loads them
	s := screen.New(h.runner, h.icons, screen.Options{Location: &loc, NoPrefetch: true})
	defer s.Close()

	report, _ := s.Refresh(ctx)
	model := s.Model()

	return c.JSON(fiber.Map{
		"success": report.OK(),
		"data":    model,
		"cycle":   cycleSummary(report),
	})
}

// GetWeather returns the reading of the nearest weather station
func (h *Handler) GetWeather(c *fiber.Ctx) error {
	ctx := c.Context()

	loc, err := h.queryLocation(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	readings, err := h.weather.GetWeatherObserved(ctx, 1, service.NearSphereQuery(loc.Latitude, loc.Longitude))
	if err != nil {
		log.Printf("Weather fetch error: %v", err)
		return fiber.NewError(fiber.StatusBadGateway, "Failed to fetch weather data")
	}

	var summary *projector.WeatherSummary
	if len(readings) > 0 {
		summary = projector.Summarize(&readings[0])
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    readings,
		"summary": summary,
	})
}

// GetIcon serves icon bytes through the shared image cache. Only icons
// referenced by fetched options are served.
func (h *Handler) GetIcon(c *fiber.Ctx) error {
	url := c.Query("url")
	if url == "" {
		return fiber.NewError(fiber.StatusBadRequest, "url is required")
	}

	data, err := h.icons.Fetch(c.Context(), url)
	if err != nil {
		if !errors.Is(err, imagecache.ErrUnknownURL) {
			log.Printf("Icon fetch error: %v", err)
		}
		return fiber.NewError(fiber.StatusNotFound, "Icon not available")
	}

	c.Set(fiber.HeaderContentType, nethttp.DetectContentType(data))
	c.Set(fiber.HeaderCacheControl, "public, max-age=3600")
	return c.Send(data)
}

// CheckDeeplink reports whether the dashboard can open a URL
func (h *Handler) CheckDeeplink(c *fiber.Ctx) error {
	url := c.Query("url")
	if url == "" {
		return fiber.NewError(fiber.StatusBadRequest, "url is required")
	}

	target, ok := h.deeplinks.Target(url)
	return c.JSON(fiber.Map{
		"can_open": h.deeplinks.CanOpen(url),
		"target":   target,
		"valid":    ok,
	})
}

// GetHistoricalWeather returns weather history within a time range
func (h *Handler) GetHistoricalWeather(c *fiber.Ctx) error {
	ctx := c.Context()
	from, to := historyWindow(c)

	data, err := h.repo.GetHistoricalWeather(ctx, from, to)
	if err != nil {
		log.Printf("History error: %v", err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch weather history")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

// GetCategoryHistory returns snapshots of one category within a time range
func (h *Handler) GetCategoryHistory(c *fiber.Ctx) error {
	ctx := c.Context()

	category, ok := domain.ParseCategory(c.Params("category"))
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "Unknown category")
	}
	from, to := historyWindow(c)

	data, err := h.repo.GetCategoryHistory(ctx, category, from, to)
	if err != nil {
		log.Printf("History error (%s): %v", category, err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch mobility history")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

// CreateScreen registers a screen and starts its refresh timer
func (h *Handler) CreateScreen(c *fiber.Ctx) error {
	var req locationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
	}
	loc, err := req.point()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	s := h.screens.Create(loc)
	if err := s.Appear(); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to start screen")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"id":      s.ID(),
		"data":    s.Model(),
	})
}

// GetScreen returns the current model of a screen
func (h *Handler) GetScreen(c *fiber.Ctx) error {
	s, err := h.lookupScreen(c)
	if err != nil {
		return err
	}

	resp := fiber.Map{
		"success": true,
		"id":      s.ID(),
		"active":  s.Active(),
		"data":    s.Model(),
	}
	if report, ok := s.LastReport(); ok {
		resp["cycle"] = cycleSummary(report)
	}
	return c.JSON(resp)
}

// UpdateScreenLocation reports a device location for a screen
func (h *Handler) UpdateScreenLocation(c *fiber.Ctx) error {
	s, err := h.lookupScreen(c)
	if err != nil {
		return err
	}

	var req locationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	loc, err := req.point()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	if loc == nil {
		return fiber.NewError(fiber.StatusBadRequest, "lat and lon are required")
	}

	if err := s.UpdateLocation(*loc); err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Screen not found")
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"location": loc,
	})
}

// DeleteScreen tears a screen down
func (h *Handler) DeleteScreen(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid screen id")
	}
	if err := h.screens.Remove(id); err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Screen not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// StreamScreen streams screen models as Server-Sent Events until the
// client goes away or the screen is torn down
func (h *Handler) StreamScreen(c *fiber.Ctx) error {
	s, err := h.lookupScreen(c)
	if err != nil {
		return err
	}

	// The subscription replays the latest model first
	models, cancel := s.Models()
	s.Touch()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		ticker := time.NewTicker(sseHeartbeat)
		defer ticker.Stop()

		for {
			select {
			case m, ok := <-models:
				if !ok {
					writeEvent(w, "closed", fiber.Map{"id": s.ID()})
					return
				}
				s.Touch()
				if err := writeEvent(w, "model", m); err != nil {
					return
				}
			case <-ticker.C:
				s.Touch()
				fmt.Fprint(w, ": ping\n\n")
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func writeEvent(w *bufio.Writer, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Failed to marshal SSE message: %v", err)
		return nil
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return w.Flush()
}

func (h *Handler) lookupScreen(c *fiber.Ctx) (*screen.Screen, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid screen id")
	}
	s, err := h.screens.Get(id)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Screen not found")
	}
	return s, nil
}

// queryLocation reads lat/lon query parameters, defaulting to the fallback
func (h *Handler) queryLocation(c *fiber.Ctx) (domain.GeoPoint, error) {
	if c.Query("lat") == "" && c.Query("lon") == "" {
		return h.fallback, nil
	}
	p, err := validPoint(c.QueryFloat("lat", -1000), c.QueryFloat("lon", -1000))
	if err != nil {
		return domain.GeoPoint{}, err
	}
	return *p, nil
}

func validPoint(lat, lon float64) (*domain.GeoPoint, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) ||
		lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("invalid coordinate %v,%v", lat, lon)
	}
	return &domain.GeoPoint{Latitude: lat, Longitude: lon}, nil
}

func historyWindow(c *fiber.Ctx) (from, to time.Time) {
	hours := c.QueryInt("hours", 24)
	if hours < 1 || hours > 720 { // max 30 days
		hours = 24
	}
	to = time.Now()
	from = to.Add(-time.Duration(hours) * time.Hour)
	return from, to
}

func cycleSummary(r service.CycleReport) fiber.Map {
	failures := make(map[domain.Category]string, len(r.Failures))
	for category, err := range r.Failures {
		failures[category] = err.Error()
	}
	summary := fiber.Map{
		"id":          r.ID,
		"started_at":  r.StartedAt,
		"duration_ms": r.Duration.Milliseconds(),
		"applied":     r.Applied,
		"failures":    failures,
		"state":       r.State,
	}
	if r.WeatherErr != nil {
		summary["weather_error"] = r.WeatherErr.Error()
	}
	return summary
}

// ErrorHandler renders errors as {error, message}
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
