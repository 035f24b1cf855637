package service

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smartcity/mobility/internal/domain"
)

func TestImageServiceFetch(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\nicon")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/icon.png":
			w.Write(png)
		case "/huge.png":
			w.Write(bytes.Repeat([]byte{0}, maxIconBytes+1))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	svc := NewImageService(time.Second)

	data, err := svc.FetchImageData(testContext(t), srv.URL+"/icon.png")
	if err != nil {
		t.Fatalf("FetchImageData() error = %v", err)
	}
	if !bytes.Equal(data, png) {
		t.Errorf("FetchImageData() = %q", data)
	}

	_, err = svc.FetchImageData(testContext(t), srv.URL+"/huge.png")
	var fe *domain.FetchError
	if !errors.As(err, &fe) || fe.Kind != domain.FetchOther {
		t.Errorf("oversized icon error = %v", err)
	}

	_, err = svc.FetchImageData(testContext(t), srv.URL+"/missing.png")
	if !errors.As(err, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Errorf("missing icon error = %v", err)
	}
}

func TestImageServiceRejectsBadURLs(t *testing.T) {
	svc := NewImageService(time.Second)
	for _, raw := range []string{"", "ftp://example.org/icon.png", "/relative/icon.png", "http://", "::bad"} {
		if _, err := svc.FetchImageData(testContext(t), raw); err == nil {
			t.Errorf("FetchImageData(%q) succeeded", raw)
		}
	}
}
