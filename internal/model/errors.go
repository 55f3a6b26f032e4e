package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientHistory means a series is too short for an indicator.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrInvalidStop means the computed stop is at or above the entry.
	ErrInvalidStop = errors.New("invalid stop")
	// ErrDegenerateRisk means the per-share risk is not positive or the
	// reward/risk ratio is not finite.
	ErrDegenerateRisk = errors.New("degenerate risk")
	// ErrRejected means a symbol failed one of the screening rules.
	ErrRejected = errors.New("criteria not met")
	// ErrUniverseUnavailable is fatal for a screening run.
	ErrUniverseUnavailable = errors.New("universe unavailable")
	// ErrProviderFailure is a per-symbol market data failure.
	ErrProviderFailure = errors.New("provider failure")
	// ErrInvalidState is returned for an illegal journal transition.
	ErrInvalidState = errors.New("invalid state")
	// ErrTradeNotFound is returned for an unknown trade id.
	ErrTradeNotFound = errors.New("trade not found")
)

// Provider failure kinds. All of them match ErrProviderFailure with errors.Is.
var (
	ErrNotFound    = fmt.Errorf("%w: symbol not found", ErrProviderFailure)
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrProviderFailure)
	ErrTimeout     = fmt.Errorf("%w: timeout", ErrProviderFailure)
)

// ScreenError explains why a symbol was excluded from a result set.
type ScreenError struct {
	Symbol string
	Reason Rule
	Err    error
}

func (e *ScreenError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s: %v", e.Symbol, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Symbol, e.Err)
}

func (e *ScreenError) Unwrap() error { return e.Err }
