package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/smartcity/mobility/internal/domain"
)

// maxIconBytes bounds a single icon download
const maxIconBytes = 1 << 20

// ImageService downloads category and option icons
type ImageService struct {
	httpClient *http.Client
}

// NewImageService creates a new image service
func NewImageService(timeout time.Duration) *ImageService {
	return &ImageService{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchImageData downloads the icon at rawURL
func (s *ImageService) FetchImageData(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("image: invalid url %q: %w", rawURL, &domain.FetchError{Kind: domain.FetchOther, Err: err})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("image: failed to create request: %w", &domain.FetchError{Kind: domain.FetchOther, Err: err})
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("image: request failed: %w", &domain.FetchError{Kind: domain.FetchNetwork, Err: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("image: unexpected response: %w",
			&domain.FetchError{Kind: domain.FetchNetwork, StatusCode: resp.StatusCode, Body: body})
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIconBytes+1))
	if err != nil {
		return nil, fmt.Errorf("image: failed to read body: %w", &domain.FetchError{Kind: domain.FetchNetwork, Err: err})
	}
	if len(data) > maxIconBytes {
		return nil, fmt.Errorf("image: icon exceeds %d bytes: %w", maxIconBytes,
			&domain.FetchError{Kind: domain.FetchOther, Err: fmt.Errorf("too large")})
	}

	return data, nil
}
