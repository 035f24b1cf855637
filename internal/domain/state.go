package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a screen-level failure
type ErrorKind string

const (
	ErrorMobilityFetch ErrorKind = "mobilityFetch"
	ErrorWeatherFetch  ErrorKind = "weatherFetch"
)

// Sentinel errors for the screen-level failure kinds
var (
	ErrMobilityFetch = errors.New("mobility fetch failed")
	ErrWeatherFetch  = errors.New("weather fetch failed")
)

// Err returns the sentinel error of the kind
func (k ErrorKind) Err() error {
	switch k {
	case ErrorMobilityFetch:
		return ErrMobilityFetch
	case ErrorWeatherFetch:
		return ErrWeatherFetch
	default:
		return nil
	}
}

// LoadingPhase is the tag of LoadingState
type LoadingPhase string

const (
	PhaseLoading         LoadingPhase = "loading"
	PhaseFinishedLoading LoadingPhase = "finishedLoading"
	PhaseError           LoadingPhase = "error"
)

// LoadingState is loading, finishedLoading or error(kind)
type LoadingState struct {
	Phase LoadingPhase `json:"phase"`
	Error ErrorKind    `json:"error,omitempty"`
}

// Loading returns the loading state
func Loading() LoadingState { return LoadingState{Phase: PhaseLoading} }

// FinishedLoading returns the finished state
func FinishedLoading() LoadingState { return LoadingState{Phase: PhaseFinishedLoading} }

// Failed returns the error state of the given kind
func Failed(kind ErrorKind) LoadingState { return LoadingState{Phase: PhaseError, Error: kind} }

// IsError reports whether the state is error(kind) for any kind
func (s LoadingState) IsError() bool { return s.Phase == PhaseError }

func (s LoadingState) String() string {
	if s.Phase == PhaseError {
		return fmt.Sprintf("error(%s)", s.Error)
	}
	return string(s.Phase)
}

// FetchErrorKind distinguishes provider failures
type FetchErrorKind string

const (
	FetchNetwork FetchErrorKind = "network"
	FetchDecode  FetchErrorKind = "decode"
	FetchOther   FetchErrorKind = "other"
)

// FetchError is a typed failure of a collaborator request
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int
	Body       []byte
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchNetwork:
		if e.StatusCode != 0 {
			return fmt.Sprintf("network: status %d: %s", e.StatusCode, truncate(string(e.Body), 200))
		}
		return fmt.Sprintf("network: %v", e.Err)
	case FetchDecode:
		return fmt.Sprintf("decode: %v", e.Err)
	default:
		return fmt.Sprintf("other: %v", e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
