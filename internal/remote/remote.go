// Package remote adapts an external language-model alignment capability.
// The capability is a black box with a typed contract: one request per
// sentence, one strictly validated response. Every failure here is a
// capability failure the caller recovers from, never a crash.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"readalign/internal/config"
	"readalign/internal/transcript"
)

// Logger is the injected reporting sink.
type Logger interface {
	Log(level, stage, message, detail string)
}

type nopLogger struct{}

func (nopLogger) Log(level, stage, message, detail string) {}

// Result is a validated alignment from the capability.
type Result struct {
	StartMS    int64
	EndMS      int64
	Confidence float64
}

// SchemaError marks a response that does not conform to the alignment
// contract. It is a capability failure, retried like a transport error.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string {
	return "remote alignment schema: " + e.Reason
}

const defaultConfidence = 0.95

// Client calls an OpenAI-compatible chat-completions endpoint that returns
// structured alignment JSON.
type Client struct {
	url    string
	apiKey string
	model  string
	hc     *http.Client
	cfg    config.Remote
	logger Logger
}

// NewClient reads the API key from the configured environment variable and
// prepares the HTTP client. The per-attempt timeout lives on the client, so
// a stuck call counts as one failed attempt rather than hanging the run.
func NewClient(cfg config.Remote, logger Logger) (*Client, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	keyEnv := cfg.APIKeyEnv
	if keyEnv == "" {
		keyEnv = "XAI_API_KEY"
	}
	key := os.Getenv(keyEnv)
	if key == "" {
		return nil, fmt.Errorf("remote: %s is not set", keyEnv)
	}
	return &Client{
		url:    strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		apiKey: key,
		model:  cfg.Model,
		hc:     &http.Client{Timeout: cfg.Timeout()},
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Align asks the capability where the sentence sits within the word context.
// Transient failures (timeout, transport, rate limiting, malformed payload)
// are retried up to MaxRetries with a fixed delay; exhaustion returns the
// last error and no result.
func (c *Client) Align(ctx context.Context, sentence string, words []transcript.Word) (Result, error) {
	prompt, err := buildPrompt(sentence, words)
	if err != nil {
		return Result{}, fmt.Errorf("remote: build prompt: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(c.cfg.RetryDelay()):
			}
		}
		res, err := c.alignOnce(ctx, prompt)
		if err == nil {
			return res, nil
		}
		lastErr = err
		c.logger.Log("WARN", "REMOTE", fmt.Sprintf("attempt %d/%d failed", attempt, c.cfg.MaxRetries), err.Error())
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
	}
	return Result{}, fmt.Errorf("remote: all %d attempts failed: %w", c.cfg.MaxRetries, lastErr)
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// alignmentPayload is the structured response contract. Pointer fields
// distinguish absent from zero; only confidence may be absent.
type alignmentPayload struct {
	StartMS    *int64   `json:"start_ms"`
	EndMS      *int64   `json:"end_ms"`
	Confidence *float64 `json:"confidence"`
}

const systemPrompt = "You are a precise timestamp alignment assistant. " +
	"Given a sentence and a transcription with word-level timestamps, " +
	"you determine the exact start and end times for that sentence in milliseconds. " +
	"Respond with JSON only: {\"start_ms\": int, \"end_ms\": int, \"confidence\": float}."

func buildPrompt(sentence string, words []transcript.Word) (string, error) {
	compact, err := json.Marshal(struct {
		Words []transcript.Word `json:"words"`
	}{Words: words})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`Given this transcription excerpt with word-level timestamps (in milliseconds):

%s

Task: find the exact start and end timestamps for this sentence:
%q

The sentence may differ from the transcription in punctuation, contractions or phrasing. Use the start timestamp of its first word and the end timestamp of its last word. Report a confidence between 0.0 and 1.0.`, compact, sentence), nil
}

func (c *Client) alignOnce(ctx context.Context, prompt string) (Result, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature:    0.1,
		MaxTokens:      200,
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.hc.Do(req)
	if err != nil {
		return Result{}, err
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Result{}, &SchemaError{Reason: "response body is not valid JSON"}
	}
	if len(parsed.Choices) == 0 {
		return Result{}, &SchemaError{Reason: "response has no choices"}
	}
	return validatePayload(parsed.Choices[0].Message.Content)
}

// validatePayload enforces the alignment contract: start_ms >= 0, end_ms >
// start_ms, confidence in [0,1] defaulting to 0.95 when absent. Any shape
// mismatch is a SchemaError, never an unchecked field access.
func validatePayload(content string) (Result, error) {
	var p alignmentPayload
	if err := json.Unmarshal([]byte(content), &p); err != nil {
		return Result{}, &SchemaError{Reason: "message content is not alignment JSON"}
	}
	if p.StartMS == nil {
		return Result{}, &SchemaError{Reason: "start_ms missing"}
	}
	if p.EndMS == nil {
		return Result{}, &SchemaError{Reason: "end_ms missing"}
	}
	if *p.StartMS < 0 {
		return Result{}, &SchemaError{Reason: fmt.Sprintf("start_ms %d is negative", *p.StartMS)}
	}
	if *p.EndMS <= *p.StartMS {
		return Result{}, &SchemaError{Reason: fmt.Sprintf("end_ms %d not after start_ms %d", *p.EndMS, *p.StartMS)}
	}
	confidence := defaultConfidence
	if p.Confidence != nil {
		confidence = *p.Confidence
		if confidence < 0 || confidence > 1 {
			return Result{}, &SchemaError{Reason: fmt.Sprintf("confidence %v outside [0,1]", confidence)}
		}
	}
	return Result{StartMS: *p.StartMS, EndMS: *p.EndMS, Confidence: confidence}, nil
}
