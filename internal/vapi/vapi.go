// Package vapi wraps the Vapi REST API for outbound voice calls.
//
// It provides the Dialer abstraction the pipeline consumes, plus the wire
// types for inline assistant configurations.
package vapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// DefaultBaseURL is the production Vapi endpoint.
const DefaultBaseURL = "https://api.vapi.ai"

// Dialer is the call-lifecycle surface the pipeline depends on. The HTTP
// client implements it against Vapi; twiliovoice provides an alternative.
type Dialer interface {
	// StartCall initiates an outbound call. A provider error is returned
	// as-is and never retried here; retry policy belongs to the caller.
	StartCall(ctx context.Context, req CallRequest) (*Call, error)

	// CallStatus fetches the provider's view of an active or ended call.
	CallStatus(ctx context.Context, callID string) (*Call, error)

	// EndCall asks the provider to hang up an active call.
	EndCall(ctx context.Context, callID string) error
}

// ModelConfig selects the conversational model behind the assistant.
type ModelConfig struct {
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int     `json:"maxOutputTokens,omitempty"`
	SystemPrompt string  `json:"systemMessage,omitempty"`
}

// VoiceConfig selects the synthesized voice.
type VoiceConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model,omitempty"`
	VoiceID  string `json:"voiceId"`
}

// TranscriberConfig selects the speech-to-text engine.
type TranscriberConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

// StopSpeakingPlan tunes barge-in behavior.
type StopSpeakingPlan struct {
	NumWords       int     `json:"numWords,omitempty"`
	VoiceSeconds   float64 `json:"voiceSeconds,omitempty"`
	BackoffSeconds float64 `json:"backoffSeconds,omitempty"`
}

// AssistantConfig is the inline assistant definition sent with a call when
// no pre-provisioned assistant id is used.
type AssistantConfig struct {
	Name               string            `json:"name,omitempty"`
	Model              ModelConfig       `json:"model"`
	Voice              VoiceConfig       `json:"voice"`
	Transcriber        TranscriberConfig `json:"transcriber"`
	FirstMessageMode   string            `json:"firstMessageMode,omitempty"`
	FirstMessage       string            `json:"firstMessage"`
	EndCallMessage     string            `json:"endCallMessage,omitempty"`
	EndCallPhrases     []string          `json:"endCallPhrases,omitempty"`
	RecordingEnabled   bool              `json:"recordingEnabled"`
	MaxDurationSeconds int               `json:"maxDurationSeconds,omitempty"`
	StopSpeaking       *StopSpeakingPlan `json:"stopSpeakingPlan,omitempty"`
	ServerURL          string            `json:"serverUrl,omitempty"`
}

// assistantRef points at a pre-provisioned assistant.
type assistantRef struct {
	AssistantID string `json:"assistantId"`
}

// CallRequest describes one outbound call. Exactly one of AssistantID or
// Assistant must be set.
type CallRequest struct {
	PhoneNumber string
	AssistantID string
	Assistant   *AssistantConfig
	ServerURL   string
	Metadata    map[string]any
}

// Call is the provider's record of an initiated call.
type Call struct {
	ID     string `json:"id"`
	Status string `json:"status,omitempty"`
}

// ProviderError reports a non-2xx response or transport failure from the
// call provider. The call is considered not initiated.
type ProviderError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("call provider request failed: %v", e.Err)
	}
	return fmt.Sprintf("call provider returned status %d: %s", e.StatusCode, e.Body)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Opts holds configuration options for the Vapi client.
type Opts struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Option defines a configuration option for the Vapi client.
type Option func(*Opts)

// WithAPIKey sets the Vapi API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithBaseURL overrides the Vapi endpoint, mainly for testing.
func WithBaseURL(url string) Option {
	return func(o *Opts) { o.BaseURL = url }
}

// WithTimeout bounds each provider request.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client talks to the Vapi REST API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient builds a Vapi client, falling back to VAPI_API_KEY and
// VAPI_BASE_URL when options are not provided.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("VAPI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("VAPI_BASE_URL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vapi API key must be provided")
	}

	slog.Debug("vapi.NewClient: configured", "base_url", cfg.BaseURL, "timeout", cfg.Timeout)
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// StartCall POSTs the call request. Success is a 2xx response whose body
// carries a call id; any other status is a ProviderError, never retried
// automatically.
func (c *Client) StartCall(ctx context.Context, req CallRequest) (*Call, error) {
	if req.PhoneNumber == "" {
		return nil, fmt.Errorf("phone number is required")
	}

	payload := map[string]any{"phoneNumber": req.PhoneNumber}
	switch {
	case req.AssistantID != "":
		payload["assistant"] = assistantRef{AssistantID: req.AssistantID}
	case req.Assistant != nil:
		payload["assistant"] = req.Assistant
	default:
		return nil, fmt.Errorf("either an assistant id or an inline assistant is required")
	}
	if req.ServerURL != "" {
		payload["serverUrl"] = req.ServerURL
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}

	var call Call
	if err := c.do(ctx, http.MethodPost, "/call", payload, &call); err != nil {
		return nil, err
	}
	if call.ID == "" {
		return nil, &ProviderError{StatusCode: http.StatusOK, Body: "response missing call id"}
	}

	slog.Info("vapi.StartCall: call initiated", "call_id", call.ID, "to", req.PhoneNumber)
	return &call, nil
}

// CallStatus fetches the current call record.
func (c *Client) CallStatus(ctx context.Context, callID string) (*Call, error) {
	var call Call
	if err := c.do(ctx, http.MethodGet, "/call/"+callID, nil, &call); err != nil {
		return nil, err
	}
	return &call, nil
}

// EndCall marks the call ended on the provider side.
func (c *Client) EndCall(ctx context.Context, callID string) error {
	err := c.do(ctx, http.MethodPatch, "/call/"+callID, map[string]any{"status": "ended"}, nil)
	if err != nil {
		slog.Error("vapi.EndCall: failed to end call", "call_id", callID, "error", err)
		return err
	}
	slog.Info("vapi.EndCall: call ended", "call_id", callID)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &ProviderError{Err: err}
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ProviderError{StatusCode: resp.StatusCode, Body: string(data)}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
