// Package anthropic generates daily reflections through the Anthropic
// Messages API. It is an ACL adapter: request and response DTOs stay
// unexported, and every failure surfaces as a domain error.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/clients"
	"github.com/jsamuelsen/stoic-reflections/internal/adapters/clients/acl"
	"github.com/jsamuelsen/stoic-reflections/internal/domain"
	"github.com/jsamuelsen/stoic-reflections/internal/ports"
)

const (
	serviceName  = "anthropic"
	messagesPath = "/v1/messages"

	headerAPIKey  = "x-api-key"
	headerVersion = "anthropic-version"

	// priorPreviewChars bounds each prior-reflection excerpt in the
	// prompt. Full texts live in the archive.
	priorPreviewChars = 240
)

// AuthHeaders returns an auth function for the instrumented HTTP client
// that injects the credentials the Messages API expects. It runs on every
// attempt, including retries.
func AuthHeaders(apiKey, version string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set(headerAPIKey, apiKey)
		r.Header.Set(headerVersion, version)
	}
}

// Config configures the reflection generator client.
type Config struct {
	// Client is the instrumented HTTP client to use (required). Its
	// AuthFunc should be set via AuthHeaders.
	Client *clients.Client

	// Model is the model identifier sent with every request.
	Model string

	// MaxTokens caps the sampled response length.
	MaxTokens int

	// Temperature is the sampling temperature.
	Temperature float64

	// Logger is the structured logger (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// Client produces reflections for resolved quotes via the Messages API.
// It implements ports.ReflectionGenerator and ports.HealthChecker.
type Client struct {
	acl.BaseAdapter
	model       string
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

// NewClient creates a Messages API client.
// Panics if cfg.Client is nil, as this indicates a programming error.
func NewClient(cfg Config) *Client {
	if cfg.Client == nil {
		panic("anthropic.NewClient: client is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		BaseAdapter: acl.NewBaseAdapter(cfg.Client, serviceName),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      logger.With(slog.String("component", "anthropic.Client")),
	}
}

// messageRequest is the Messages API request body.
type messageRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Messages    []message `json:"messages"`
}

// message is a single conversation turn.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// messageResponse is the Messages API response body.
type messageResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Content    []contentBlock `json:"content"`
	Usage      usageBlock     `json:"usage"`
}

// contentBlock is one block of model output; reflections arrive as a
// single text block.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// usageBlock reports token consumption for the request.
type usageBlock struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// reflectionPayload is the JSON document the prompt instructs the model
// to produce.
type reflectionPayload struct {
	Quote       string `json:"quote"`
	Attribution string `json:"attribution"`
	Reflection  string `json:"reflection"`
}

// Generate produces the reflection essay for the day's quote.
// Returns domain.ErrGenerationFailed when the API errors or the response
// cannot be used.
func (c *Client) Generate(ctx context.Context, req ports.GenerationRequest) (domain.GeneratedReflection, error) {
	prompt := buildPrompt(req)

	payload, err := json.Marshal(messageRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Messages:    []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return domain.GeneratedReflection{}, fmt.Errorf("encoding message request: %w", err)
	}

	c.logger.InfoContext(ctx, "requesting reflection",
		slog.String("model", c.model),
		slog.String("theme", req.Theme.Name),
		slog.Int("prompt_chars", len(prompt)),
	)

	body, err := c.Post(ctx, messagesPath, bytes.NewReader(payload), "generate reflection", "")
	if err != nil {
		return domain.GeneratedReflection{}, domain.NewGenerationError(serviceName, err.Error())
	}

	resp, err := acl.DecodeResponseForService[messageResponse](body, c.ServiceName())
	if err != nil {
		return domain.GeneratedReflection{}, domain.NewGenerationError(serviceName, err.Error())
	}

	if len(resp.Content) == 0 {
		return domain.GeneratedReflection{}, domain.NewGenerationError(serviceName, "response has no content blocks")
	}

	text := resp.Content[0].Text

	c.logger.DebugContext(ctx, "received model response",
		slog.String("response_id", resp.ID),
		slog.String("stop_reason", resp.StopReason),
		slog.Int("chars", len(text)),
		slog.Int("output_tokens", resp.Usage.OutputTokens),
	)

	generated, err := parseReflection(text)
	if err != nil {
		return domain.GeneratedReflection{}, err
	}

	c.logger.InfoContext(ctx, "reflection generated",
		slog.String("attribution", generated.Attribution),
		slog.Int("words", domain.WordCount(generated.Reflection)),
	)

	return generated, nil
}

// promptTemplate is the user message for one day's reflection. The day's
// quote is fixed by the dataset; the model writes the essay and restates
// the quote in its JSON answer.
const promptTemplate = `You are a thoughtful teacher of stoic philosophy. Your task is to create a daily reflection for someone interested in applying stoic wisdom to modern life.

Current Month's Theme: %s
Theme Focus: %s

Today's Quote: "%s"
Attribution: %s

Requirements:
1. Write a reflection (250-450 words) on today's quote that:
   - Explains the quote's meaning in accessible language
   - Connects it to this month's theme
   - Connects it to modern life with a concrete, relatable example
   - Offers practical, actionable guidance the reader can apply today
   - Uses a warm, conversational tone (imagine speaking to a thoughtful friend)
   - Avoids academic jargon or overly formal language
   - Feels personal and encouraging, not preachy or didactic

2. Do NOT reference any of these recently used sources:
%s

3. Take a fresh angle, distinct from this month's earlier reflections:
%s

4. Format your response as JSON:
{
  "quote": "The exact quote text",
  "attribution": "Author - Work Section (e.g., 'Marcus Aurelius - Meditations 4.3')",
  "reflection": "Your full reflection text here"
}

Write the reflection now.`

// buildPrompt renders the prompt for a generation request.
func buildPrompt(req ports.GenerationRequest) string {
	return fmt.Sprintf(promptTemplate,
		req.Theme.Name,
		req.Theme.Description,
		req.Quote,
		req.Attribution,
		formatExclusions(req.RecentAttributions),
		formatPriorReflections(req.PriorReflections),
	)
}

// formatExclusions renders recently used sources as a bulleted list.
func formatExclusions(attributions []string) string {
	if len(attributions) == 0 {
		return "(No sources to exclude - this is the first reflection)"
	}

	lines := make([]string, 0, len(attributions))
	for _, attribution := range attributions {
		lines = append(lines, "- "+attribution)
	}

	return strings.Join(lines, "\n")
}

// formatPriorReflections renders excerpts of the month's earlier essays.
func formatPriorReflections(reflections []string) string {
	if len(reflections) == 0 {
		return "(No earlier reflections this month)"
	}

	lines := make([]string, 0, len(reflections))
	for _, reflection := range reflections {
		lines = append(lines, "- "+truncate(strings.TrimSpace(reflection), priorPreviewChars))
	}

	return strings.Join(lines, "\n")
}

// truncate shortens s to at most limit runes, marking the cut with an
// ellipsis.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	return string(runes[:limit]) + "..."
}

// fencedJSON matches a JSON object wrapped in a markdown code fence.
var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// parseReflection extracts the structured payload from the model's text,
// unwrapping a markdown fence when present.
func parseReflection(text string) (domain.GeneratedReflection, error) {
	raw := strings.TrimSpace(text)
	if match := fencedJSON.FindStringSubmatch(raw); match != nil {
		raw = match[1]
	}

	var payload reflectionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return domain.GeneratedReflection{}, domain.NewGenerationError(serviceName,
			fmt.Sprintf("invalid JSON in response: %v", err))
	}

	generated := domain.GeneratedReflection{
		Quote:       strings.TrimSpace(payload.Quote),
		Attribution: strings.TrimSpace(payload.Attribution),
		Reflection:  strings.TrimSpace(payload.Reflection),
	}

	switch {
	case generated.Quote == "":
		return domain.GeneratedReflection{}, domain.NewGenerationError(serviceName, `missing or empty "quote" in response`)
	case generated.Attribution == "":
		return domain.GeneratedReflection{}, domain.NewGenerationError(serviceName, `missing or empty "attribution" in response`)
	case generated.Reflection == "":
		return domain.GeneratedReflection{}, domain.NewGenerationError(serviceName, `missing or empty "reflection" in response`)
	}

	return generated, nil
}

// Name implements ports.HealthChecker.
func (c *Client) Name() string {
	return serviceName
}

// Check implements ports.HealthChecker. The Messages API has no
// unauthenticated ping, and a probe request would sample tokens, so the
// check reports the circuit breaker's view of the service instead.
func (c *Client) Check(_ context.Context) error {
	if state := c.Client().CircuitState(); state == clients.StateOpen {
		return fmt.Errorf("circuit breaker %s for %s", state, serviceName)
	}

	return nil
}
