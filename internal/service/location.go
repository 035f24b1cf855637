package service

import (
	"context"
	"sync"

	"github.com/smartcity/mobility/internal/domain"
)

// LocationProvider supplies a best-effort current coordinate and
// accepts coordinates reported by the device
type LocationProvider interface {
	Resolve(ctx context.Context) (domain.GeoPoint, bool)
	Report(p domain.GeoPoint)
}

// DeviceLocation remembers the last coordinate reported by the client and
// falls back to a configured default when none was reported yet
type DeviceLocation struct {
	mu       sync.RWMutex
	last     *domain.GeoPoint
	fallback *domain.GeoPoint
}

// NewDeviceLocation creates a provider with an optional default coordinate
func NewDeviceLocation(fallback *domain.GeoPoint) *DeviceLocation {
	return &DeviceLocation{fallback: fallback}
}

// Report records a device coordinate
func (l *DeviceLocation) Report(p domain.GeoPoint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = &p
}

// Resolve returns the device coordinate, else the default
func (l *DeviceLocation) Resolve(ctx context.Context) (domain.GeoPoint, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.last != nil {
		return *l.last, true
	}
	if l.fallback != nil {
		return *l.fallback, true
	}
	return domain.GeoPoint{}, false
}
