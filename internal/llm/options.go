package llm

import (
	"time"

	"go.uber.org/zap"
)

type options struct {
	baseURL     string
	temperature float64
	timeout     time.Duration
	maxRetries  int
	logger      *zap.Logger
}

func defaultOptions() options {
	return options{
		timeout:    60 * time.Second,
		maxRetries: 2,
		logger:     zap.NewNop(),
	}
}

// Option configures a Client.
type Option func(*options)

// WithBaseURL overrides the provider endpoint. Empty keeps the default.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *options) { o.temperature = t }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxRetries sets how many times transient failures are retried by the provider SDK.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxRetries = n }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
