package shared

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed   = fmt.Errorf("authentication failed")
	ErrTokenExpired = fmt.Errorf("access token expired")

	// API and service errors
	ErrAPIRequest          = fmt.Errorf("API request failed")
	ErrRateLimited         = fmt.Errorf("rate limited")
	ErrServiceUnavailable  = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound    = fmt.Errorf("playlist not found")
	ErrTrackNotFound       = fmt.Errorf("track not found")
	ErrNoMatch             = fmt.Errorf("no matching track")
	ErrUnsupportedPlatform = fmt.Errorf("unsupported platform")

	// Job errors
	ErrJobNotFound  = fmt.Errorf("job not found")
	ErrJobFinalized = fmt.Errorf("job already finished")
	ErrJobCancelled = fmt.Errorf("job cancelled")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// Error kinds reported to users. They separate "your credentials are wrong" (auth) from
// "a track could not be found" (no_match) from "the service is unavailable" (api, unavailable).
const (
	KindAuth        = "auth"
	KindNotFound    = "not_found"
	KindAPI         = "api"
	KindNoMatch     = "no_match"
	KindInvalid     = "invalid"
	KindUnavailable = "unavailable"
	KindCancelled   = "cancelled"
	KindInternal    = "internal"
)

// Kind classifies err into one of the Kind* constants.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthFailed), errors.Is(err, ErrTokenExpired),
		errors.Is(err, ErrMissingCredentials):
		return KindAuth
	case errors.Is(err, ErrPlaylistNotFound), errors.Is(err, ErrTrackNotFound), errors.Is(err, ErrJobNotFound):
		return KindNotFound
	case errors.Is(err, ErrNoMatch):
		return KindNoMatch
	case errors.Is(err, ErrJobCancelled), errors.Is(err, context.Canceled):
		return KindCancelled
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrInvalidArgument),
		errors.Is(err, ErrMissingArgument), errors.Is(err, ErrUnsupportedPlatform):
		return KindInvalid
	case errors.Is(err, ErrServiceUnavailable), errors.Is(err, ErrRateLimited),
		errors.Is(err, context.DeadlineExceeded):
		return KindUnavailable
	case errors.Is(err, ErrAPIRequest):
		return KindAPI
	default:
		return KindInternal
	}
}

// Describe renders err with a user-facing prefix derived from its kind.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	switch Kind(err) {
	case KindAuth:
		return "credentials rejected: " + err.Error()
	case KindNotFound:
		return "not found: " + err.Error()
	case KindNoMatch:
		return "no match on destination: " + err.Error()
	case KindUnavailable, KindAPI:
		return "platform unavailable: " + err.Error()
	case KindCancelled:
		return "cancelled: " + err.Error()
	default:
		return err.Error()
	}
}
