// Package voice is the client for the conversational-AI provider that
// runs defense sessions. Only conversation readback is implemented here;
// session setup happens in the student's browser.
package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"viva/internal/services"
)

const (
	defaultHTTPTimeout   = 30 * time.Second
	defaultRetryAttempts = 2
	defaultRetryDelay    = 2 * time.Second
)

// Config captures the runtime settings required to talk to the provider.
type Config struct {
	APIKey         string
	BaseURL        string
	AgentID        string
	TimeoutSeconds int
}

// Turn is one utterance as reported by the provider.
type Turn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// Conversation is the readback of a finished (or unfinished) voice session.
type Conversation struct {
	ConversationID      string
	SessionID           string
	Status              string
	CallDurationSeconds int
	Turns               []Turn
}

// Summary is a list entry from the provider's conversation index.
type Summary struct {
	ConversationID string
	Status         string
}

// Client wraps the provider's conversation API with a bounded timeout and a
// single retry on transient failures.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryDelay       time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the attempt budget (defaults to 2).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a voice provider client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			AgentID:        strings.TrimSpace(cfg.AgentID),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryDelay:       defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://api.elevenlabs.io"
	}
	return client
}

type conversationResponse struct {
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
	Transcript     []Turn `json:"transcript"`
	Metadata       struct {
		CallDurationSecs int `json:"call_duration_secs"`
	} `json:"metadata"`
	InitiationClientData struct {
		DynamicVariables map[string]string `json:"dynamic_variables"`
	} `json:"conversation_initiation_client_data"`
}

type conversationListResponse struct {
	Conversations []struct {
		ConversationID string `json:"conversation_id"`
		Status         string `json:"status"`
	} `json:"conversations"`
}

// Conversation fetches one conversation by its provider identifier.
//
// Two outcomes are non-fatal and must be distinguished by callers: a
// conversation the provider does not know (services.ErrNotFound) and one
// still being recorded or processed (services.ErrInProgress).
func (c *Client) Conversation(ctx context.Context, conversationID string) (*Conversation, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, errors.New("voice conversation: conversation id required")
	}

	var parsed conversationResponse
	endpoint := c.cfg.BaseURL + "/v1/convai/conversations/" + url.PathEscape(conversationID)
	if err := c.getJSON(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}

	if inProgressStatus(parsed.Status) {
		return nil, services.Wrap(services.ErrInProgress, "voice", "conversation",
			fmt.Sprintf("conversation %s has status %q", conversationID, parsed.Status), nil)
	}

	return &Conversation{
		ConversationID:      parsed.ConversationID,
		SessionID:           strings.TrimSpace(parsed.InitiationClientData.DynamicVariables["session_id"]),
		Status:              parsed.Status,
		CallDurationSeconds: parsed.Metadata.CallDurationSecs,
		Turns:               parsed.Transcript,
	}, nil
}

// ListRecent returns the most recent conversations for the configured agent,
// newest first, up to limit.
func (c *Client) ListRecent(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 30
	}
	query := url.Values{"page_size": {fmt.Sprint(limit)}}
	if c.cfg.AgentID != "" {
		query.Set("agent_id", c.cfg.AgentID)
	}

	var parsed conversationListResponse
	endpoint := c.cfg.BaseURL + "/v1/convai/conversations?" + query.Encode()
	if err := c.getJSON(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(parsed.Conversations))
	for _, entry := range parsed.Conversations {
		summaries = append(summaries, Summary{
			ConversationID: entry.ConversationID,
			Status:         entry.Status,
		})
	}
	return summaries, nil
}

func inProgressStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "initiated", "in-progress", "processing":
		return true
	default:
		return false
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, target any) error {
	if c.cfg.APIKey == "" {
		return errors.New("voice request: api key required")
	}

	attempts := c.retryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := c.getJSONOnce(ctx, endpoint, target)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(ctx, err) || attempt == attempts {
			return err
		}
		if sleepErr := c.sleep(ctx, c.retryDelay); sleepErr != nil {
			return sleepErr
		}
	}
	return lastErr
}

func (c *Client) getJSONOnce(ctx context.Context, endpoint string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("voice request: new request: %w", err)
	}
	req.Header.Set("xi-api-key", c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("voice request: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("voice request: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "voice", "request",
			"conversation not found", nil)
	case resp.StatusCode >= http.StatusMultipleChoices:
		return &httpStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("voice request: decode response: %w", err)
	}
	return nil
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("voice request: http %d: %s", e.StatusCode, e.Body)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrInProgress) {
		return false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode >= http.StatusInternalServerError
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return false
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
