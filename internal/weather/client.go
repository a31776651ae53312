// Package weather fetches current conditions from OpenWeatherMap and maps them
// to mood observations.
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/justestif/go-weather-mood/internal/breaker"
	"github.com/justestif/go-weather-mood/internal/metrics"
	"github.com/justestif/go-weather-mood/internal/mood"
)

const (
	baseURL   = "https://api.openweathermap.org/data/2.5/weather"
	userAgent = "weather-mood/1.0"
	provider  = "weather"
)

// Sentinel errors.
var (
	// ErrCityNotFound is returned when the provider does not know the city.
	ErrCityNotFound = errors.New("city not found")

	// ErrInvalidAPIKey is returned when the API key is rejected.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrUnavailable is returned for transient provider failures.
	ErrUnavailable = errors.New("weather provider unavailable")
)

// Report is the current weather for a city.
type Report struct {
	mood.Observation
	City        string `json:"city"`
	Description string `json:"description,omitempty"`
	Icon        string `json:"icon,omitempty"`
	// Degraded is set when the report is a neutral substitute, not a real reading.
	Degraded bool `json:"degraded"`
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     zerolog.Logger
	now        func() time.Time
	retryDelay time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithBaseURL points the client at another endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithClock overrides the clock used for neutral fallbacks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new OpenWeatherMap client.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		baseURL:    baseURL,
		logger:     zerolog.Nop(),
		now:        time.Now,
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}

	cfg := breaker.DefaultConfig(provider)
	cfg.IsSuccessful = func(err error) bool {
		return errors.Is(err, ErrCityNotFound)
	}
	c.breaker = breaker.New[[]byte](cfg, c.logger)
	return c
}

// Current fetches the current weather for a city.
func (c *Client) Current(ctx context.Context, city string) (Report, error) {
	if c.apiKey == "" {
		return Report{}, fmt.Errorf("%w: no API key configured", ErrUnavailable)
	}

	params := url.Values{
		"q":     {city},
		"appid": {c.apiKey},
		"units": {"metric"},
		"lang":  {"en"},
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doRequest(ctx, params)
	})
	metrics.RecordProviderCall(provider, time.Since(start), err)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Report{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return Report{}, fmt.Errorf("fetching weather for %q: %w", city, err)
	}

	var resp currentResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Report{}, fmt.Errorf("parsing weather response: %w", err)
	}
	return resp.report(), nil
}

// Observe returns the current weather for a city, or a neutral degraded
// report if the provider cannot answer.
func (c *Client) Observe(ctx context.Context, city string) Report {
	r, err := c.Current(ctx, city)
	if err != nil {
		c.logger.Warn().Err(err).Str("city", city).Msg("weather lookup failed, using neutral observation")
		metrics.RecordProviderFallback(provider)
		n := Neutral(c.now())
		n.City = city
		return n
	}
	return r
}

// Neutral is the substitute observation used when no reading is available.
func Neutral(now time.Time) Report {
	return Report{
		Observation: mood.Observation{
			Condition:          mood.Unknown,
			TemperatureCelsius: 20,
			LocalHour:          now.UTC().Hour(),
		},
		Degraded: true,
	}
}

// doRequest performs the request, retrying once on transient failures.
func (c *Client) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + "?" + params.Encode()

	body, err := c.doSingleRequest(ctx, reqURL)
	if err == nil || !errors.Is(err, ErrUnavailable) {
		return body, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.retryDelay):
	}
	return c.doSingleRequest(ctx, reqURL)
}

// doSingleRequest performs a single HTTP request.
func (c *Client) doSingleRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %w", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrCityNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrInvalidAPIKey
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		var apiErr apiError
		_ = json.Unmarshal(body, &apiErr)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, apiErr.Message)
	}
}
