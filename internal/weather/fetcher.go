// Package weather fetches current conditions for a city from the OpenWeather API.
package weather

import (
	"context"
	"fmt"

	"github.com/hyperjump/kotae/internal/models"
)

// Fetcher returns current weather facts for a city name.
// Failures are reported as *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, city string) (*models.WeatherFacts, error)
}

// FetchError describes why facts for City could not be fetched. StatusCode is zero
// when no HTTP response was received.
type FetchError struct {
	City       string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("weather for %q: status %d: %s", e.City, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("weather for %q: %s: %v", e.City, e.Message, e.Err)
	default:
		return fmt.Sprintf("weather for %q: %s", e.City, e.Message)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the API did not recognise the city.
func (e *FetchError) NotFound() bool {
	return e.StatusCode == 404
}
