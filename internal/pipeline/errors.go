package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveSources is returned when a run finds nothing to crawl.
	ErrNoActiveSources = errors.New("no active sources found")
	// ErrRunInProgress is returned when a run is requested while another holds the lock.
	ErrRunInProgress = errors.New("a briefing run is already in progress")
)

// SynthesisError reports a failed final generation. No report is stored.
type SynthesisError struct {
	Cause error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("report generation failed: %v", e.Cause)
}

func (e *SynthesisError) Unwrap() error {
	return e.Cause
}

// PersistError reports a report that was generated but could not be stored.
type PersistError struct {
	Cause error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to save report: %v", e.Cause)
}

func (e *PersistError) Unwrap() error {
	return e.Cause
}

// ProviderInitError reports a generation backend that could not be constructed.
type ProviderInitError struct {
	Provider string
	Cause    error
}

func (e *ProviderInitError) Error() string {
	return fmt.Sprintf("failed to initialize provider %q: %v", e.Provider, e.Cause)
}

func (e *ProviderInitError) Unwrap() error {
	return e.Cause
}
