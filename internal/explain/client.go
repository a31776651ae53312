// Package explain produces a short explanation of why a set of tracks suits
// the weather, using an OpenAI-compatible chat completion API with template
// fallbacks.
package explain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/justestif/go-weather-mood/internal/breaker"
	"github.com/justestif/go-weather-mood/internal/catalog"
	"github.com/justestif/go-weather-mood/internal/metrics"
	"github.com/justestif/go-weather-mood/internal/mood"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-3.5-turbo"
	provider       = "explain"

	systemPrompt = "You are a friendly, inspiring assistant who knows music and moods. " +
		"You recommend music for the current weather."

	maxPromptTracks = 5
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("text generation not configured")

// Source names where an explanation came from.
type Source string

// Explanation sources.
const (
	SourceAI       Source = "ai"
	SourceTemplate Source = "template"
)

// Request is the context an explanation is written for.
type Request struct {
	City               string
	Condition          mood.Condition
	TemperatureCelsius float64
	Vibe               string
	Tracks             []catalog.Track
}

// Explanation is a generated or templated explanation.
type Explanation struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
	Vibe   string `json:"vibe"`
}

// Client is an OpenAI-compatible chat completions client.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	breaker     *gobreaker.CircuitBreaker[string]
	logger      zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another compatible endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithModel sets the model name.
func WithModel(m string) Option {
	return func(c *Client) {
		if m != "" {
			c.model = m
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewClient creates a chat completions client. An empty apiKey disables
// generation and every explanation uses the templates.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		baseURL:     defaultBaseURL,
		model:       defaultModel,
		temperature: 0.8,
		maxTokens:   300,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = breaker.New[string](breaker.DefaultConfig(provider), c.logger)
	return c
}

// Configured reports whether generation is enabled.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Explain returns a generated explanation, or the template for the vibe when
// generation is unavailable.
func (c *Client) Explain(ctx context.Context, req Request) Explanation {
	text, err := c.Generate(ctx, req)
	if err != nil {
		if !errors.Is(err, ErrNotConfigured) {
			c.logger.Warn().Err(err).Msg("explanation generation failed, using template")
			metrics.RecordProviderFallback(provider)
		}
		return Explanation{
			Text:   Fallback(req.Vibe, req.Condition, req.TemperatureCelsius),
			Source: SourceTemplate,
			Vibe:   req.Vibe,
		}
	}
	return Explanation{Text: text, Source: SourceAI, Vibe: req.Vibe}
}

// Generate asks the model for an explanation. The request is retried once.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(req)},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("explain: marshal request: %w", err)
	}

	start := time.Now()
	text, err := c.breaker.Execute(func() (string, error) {
		text, err := c.complete(ctx, body)
		if err != nil && ctx.Err() == nil {
			text, err = c.complete(ctx, body)
		}
		return text, err
	})
	metrics.RecordProviderCall(provider, time.Since(start), err)
	return text, err
}

func (c *Client) complete(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("explain: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("explain: request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("explain: decode response (status %d): %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("explain: %s", parsed.Error.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("explain: unexpected status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", errors.New("explain: empty response")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

func buildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Write a short, warm explanation of these music recommendations.\n\n")
	fmt.Fprintf(&b, "City: %s\n", req.City)
	fmt.Fprintf(&b, "Weather: %s\n", req.Condition)
	fmt.Fprintf(&b, "Temperature: %s\n", formatTemp(req.TemperatureCelsius))
	fmt.Fprintf(&b, "Mood: %s\n", req.Vibe)

	if len(req.Tracks) > 0 {
		b.WriteString("\nTop tracks:\n")
		for i, t := range req.Tracks[:min(len(req.Tracks), maxPromptTracks)] {
			fmt.Fprintf(&b, "%d. %s - %s\n", i+1, t.Name, t.ArtistName())
		}
	}

	b.WriteString("\nExplain why this weather suits this music (2-3 sentences), why these songs fit (2-3 sentences), ")
	b.WriteString("and suggest an activity to do while listening (1-2 sentences). Use at most 150 words.")
	return b.String()
}
