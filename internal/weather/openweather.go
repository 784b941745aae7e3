package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client fetches current weather from the OpenWeather "current weather" endpoint.
// It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	units   string
	http    *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
	logger  *zap.Logger
}

var _ Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithUnits sets the OpenWeather unit system ("metric" by default).
func WithUnits(units string) Option {
	return func(c *Client) {
		if units != "" {
			c.units = units
		}
	}
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = utils.NewPooledClient(d)
		}
	}
}

// WithRateLimit allows at most rps requests per second, with bursts of one.
// Zero or negative disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			c.limiter = nil
		}
	}
}

// WithCacheTTL caches successful lookups per city for ttl. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.cache = cache.New(ttl, 2*ttl)
		} else {
			c.cache = nil
		}
	}
}

// NewClient returns a client for the endpoint at baseURL using apiKey.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		units:   "metric",
		http:    utils.NewPooledClient(10 * time.Second),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type owmResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main *struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type owmError struct {
	Message string `json:"message"`
}

// Fetch returns the current weather for city. It never retries.
func (c *Client) Fetch(ctx context.Context, city string) (*models.WeatherFacts, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, &FetchError{City: city, Message: "city name is empty"}
	}
	key := strings.ToLower(city)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			facts := *v.(*models.WeatherFacts)
			return &facts, nil
		}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{City: city, Message: "rate limit wait", Err: err}
		}
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.apiKey)
	q.Set("units", c.units)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, &FetchError{City: city, Message: "build request", Err: err}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &FetchError{City: city, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &FetchError{City: city, Message: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := http.StatusText(resp.StatusCode)
		var apiErr owmError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return nil, &FetchError{City: city, StatusCode: resp.StatusCode, Message: msg}
	}

	facts, err := parseFacts(body)
	if err != nil {
		return nil, &FetchError{City: city, Message: "malformed response", Err: err}
	}
	c.logger.Debug("weather fetched",
		zap.String("city", city),
		zap.String("location", facts.Name),
		zap.Duration("elapsed", time.Since(start)),
	)
	if c.cache != nil {
		stored := *facts
		c.cache.SetDefault(key, &stored)
	}
	return facts, nil
}

func parseFacts(body []byte) (*models.WeatherFacts, error) {
	var r owmResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	if r.Main == nil {
		return nil, fmt.Errorf("missing main section")
	}
	if len(r.Weather) == 0 {
		return nil, fmt.Errorf("missing weather description")
	}
	return &models.WeatherFacts{
		Name:        r.Name,
		Country:     r.Sys.Country,
		TempC:       r.Main.Temp,
		FeelsLikeC:  r.Main.FeelsLike,
		HumidityPct: r.Main.Humidity,
		Description: r.Weather[0].Description,
		WindSpeed:   r.Wind.Speed,
	}, nil
}
