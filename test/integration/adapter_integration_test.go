//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/clients"
	"github.com/jsamuelsen/stoic-reflections/internal/adapters/clients/anthropic"
	"github.com/jsamuelsen/stoic-reflections/internal/domain"
	"github.com/jsamuelsen/stoic-reflections/internal/platform/config"
	"github.com/jsamuelsen/stoic-reflections/internal/ports"
)

const (
	testAPIKey     = "test-api-key"
	testAPIVersion = "2023-06-01"
)

// testGeneratorClient builds the instrumented client the generator runs on,
// pointed at a local test server.
func testGeneratorClient(t *testing.T, baseURL string) *clients.Client {
	t.Helper()

	client, err := clients.New(&clients.Config{
		ServiceName: "anthropic",
		BaseURL:     baseURL,
		Timeout:     5 * time.Second,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      2.0,
		},
		Circuit: config.CircuitBreakerConfig{
			MaxFailures:   3,
			Timeout:       100 * time.Millisecond,
			HalfOpenLimit: 2,
		},
		AuthFunc: anthropic.AuthHeaders(testAPIKey, testAPIVersion),
	})
	require.NoError(t, err)

	return client
}

func testGenerator(t *testing.T, baseURL string) *anthropic.Client {
	t.Helper()

	return anthropic.NewClient(anthropic.Config{
		Client:      testGeneratorClient(t, baseURL),
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   4000,
		Temperature: 1.0,
	})
}

func testGenerationRequest() ports.GenerationRequest {
	return ports.GenerationRequest{
		Quote:       "You have power over your mind - not outside events.",
		Attribution: "Marcus Aurelius",
		Theme: domain.MonthlyTheme{
			Name:        "Discipline of Perception",
			Description: "Seeing events as they are, without the stories we attach to them.",
		},
		RecentAttributions: []string{"Seneca - Letters 13"},
		PriorReflections:   []string{"An earlier essay about judgment and first impressions."},
	}
}

// TestReflectionGenerator_Generate_Integration drives the full request path:
// auth header injection, request encoding, and extraction of the fenced JSON
// payload from the model's answer.
func TestReflectionGenerator_Generate_Integration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		// Credentials are injected per attempt by the auth function.
		assert.Equal(t, testAPIKey, r.Header.Get("x-api-key"))
		assert.Equal(t, testAPIVersion, r.Header.Get("anthropic-version"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req struct {
			Model       string  `json:"model"`
			MaxTokens   int     `json:"max_tokens"`
			Temperature float64 `json:"temperature"`
			Messages    []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.Unmarshal(raw, &req))

		assert.Equal(t, "claude-sonnet-4-5-20250929", req.Model)
		assert.Equal(t, 4000, req.MaxTokens)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		// The prompt carries the day's quote, the month's theme, and the
		// repetition-avoidance context.
		assert.Contains(t, req.Messages[0].Content, "You have power over your mind")
		assert.Contains(t, req.Messages[0].Content, "Discipline of Perception")
		assert.Contains(t, req.Messages[0].Content, "Seneca - Letters 13")

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_integration_01",
			"model":       req.Model,
			"stop_reason": "end_turn",
			"content": []map[string]string{
				{
					"type": "text",
					"text": "```json\n" +
						`{"quote": "You have power over your mind - not outside events.",` +
						` "attribution": "Marcus Aurelius - Meditations 9.13",` +
						` "reflection": "Events arrive without labels. The labels are ours."}` +
						"\n```",
				},
			},
			"usage": map[string]int{"input_tokens": 700, "output_tokens": 120},
		})
	}))
	defer server.Close()

	generator := testGenerator(t, server.URL)

	generated, err := generator.Generate(context.Background(), testGenerationRequest())

	require.NoError(t, err)
	assert.Equal(t, "You have power over your mind - not outside events.", generated.Quote)
	assert.Equal(t, "Marcus Aurelius - Meditations 9.13", generated.Attribution)
	assert.Equal(t, "Events arrive without labels. The labels are ours.", generated.Reflection)
}

// TestReflectionGenerator_RateLimited verifies a 429 surfaces as a
// generation failure without leaking provider detail beyond the reason.
func TestReflectionGenerator_RateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"type": "rate_limit_error", "message": "Number of requests exceeds your rate limit"}}`))
	}))
	defer server.Close()

	generator := testGenerator(t, server.URL)

	_, err := generator.Generate(context.Background(), testGenerationRequest())

	require.Error(t, err)
	assert.True(t, domain.IsGenerationFailed(err), "expected generation failure")
	assert.Contains(t, err.Error(), "rate limit")
}

// TestReflectionGenerator_ServerErrors verifies 5xx responses exhaust the
// retry budget and surface as a generation failure.
func TestReflectionGenerator_ServerErrors(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	generator := testGenerator(t, server.URL)

	_, err := generator.Generate(context.Background(), testGenerationRequest())

	require.Error(t, err)
	assert.True(t, domain.IsGenerationFailed(err), "expected generation failure")
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(1), hits.Load(), "one attempt with the retry budget spent")
}

// TestReflectionGenerator_CircuitOpen verifies the breaker fails calls fast
// once tripped and that the health check reports it.
func TestReflectionGenerator_CircuitOpen(t *testing.T) {
	var hits atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testGeneratorClient(t, server.URL)
	generator := anthropic.NewClient(anthropic.Config{
		Client:    client,
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 4000,
	})

	// Trip the breaker: three failed calls against MaxFailures of 3.
	for range 3 {
		_, _ = generator.Generate(context.Background(), testGenerationRequest())
	}

	hitsBefore := hits.Load()

	_, err := generator.Generate(context.Background(), testGenerationRequest())

	require.Error(t, err)
	assert.True(t, domain.IsGenerationFailed(err), "expected generation failure")
	assert.Contains(t, err.Error(), "circuit breaker open")
	assert.Equal(t, hitsBefore, hits.Load(), "no server call while the circuit is open")

	assert.Equal(t, clients.StateOpen, client.CircuitState())
	assert.Error(t, generator.Check(context.Background()), "health check reports the open circuit")
}

// TestReflectionGenerator_UnusableAnswer verifies a well-formed API response
// whose text is not the requested JSON document maps to a generation failure.
func TestReflectionGenerator_UnusableAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_integration_02",
			"stop_reason": "end_turn",
			"content": []map[string]string{
				{"type": "text", "text": "I would rather write free prose today."},
			},
		})
	}))
	defer server.Close()

	generator := testGenerator(t, server.URL)

	_, err := generator.Generate(context.Background(), testGenerationRequest())

	require.Error(t, err)
	assert.True(t, domain.IsGenerationFailed(err), "expected generation failure")
	assert.Contains(t, err.Error(), "invalid JSON in response")
}
