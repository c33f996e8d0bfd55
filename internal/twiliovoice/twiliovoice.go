// Package twiliovoice wraps the Twilio voice API as an alternative call
// transport for deployments without a Vapi account.
//
// It implements the vapi.Dialer surface: outbound calls are placed with a
// TwiML script rendered from the assistant's first message, so the full
// conversational loop is degraded to a scripted call, but the pipeline and
// webhook plumbing stay identical.
package twiliovoice

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/Kushal-Kongara/hackerday-sf/internal/vapi"
)

// Opts holds configuration options for the Twilio voice client.
type Opts struct {
	AccountSID string
	AuthToken  string
	FromNumber string
}

// Option defines a configuration option for the Twilio voice client.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromNumber sets the caller id in E.164 format.
func WithFromNumber(from string) Option {
	return func(o *Opts) { o.FromNumber = from }
}

// Client wraps the Twilio REST API for outbound voice calls.
type Client struct {
	client *twilio.RestClient
	from   string
}

// NewClient builds a Twilio voice client, falling back to
// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromNumber == "" {
		cfg.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")
	}
	slog.Debug("twiliovoice.NewClient: config loaded",
		"account_sid_set", cfg.AccountSID != "",
		"auth_token_set", cfg.AuthToken != "",
		"from_set", cfg.FromNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("from number must be provided")
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &Client{client: client, from: cfg.FromNumber}, nil
}

// StartCall places an outbound voice call speaking the assistant's first
// message. A webhook ServerURL, when present, receives Twilio status
// callbacks on the same /events endpoint the aggregator consumes.
func (c *Client) StartCall(ctx context.Context, req vapi.CallRequest) (*vapi.Call, error) {
	if req.PhoneNumber == "" {
		return nil, fmt.Errorf("phone number is required")
	}
	firstMessage := "Hello! This is the ticket office calling."
	if req.Assistant != nil && req.Assistant.FirstMessage != "" {
		firstMessage = req.Assistant.FirstMessage
	}

	params := &twilioApi.CreateCallParams{}
	params.SetTo(req.PhoneNumber)
	params.SetFrom(c.from)
	params.SetTwiml(fmt.Sprintf("<Response><Say>%s</Say></Response>", html.EscapeString(firstMessage)))
	if req.ServerURL != "" {
		params.SetStatusCallback(req.ServerURL)
		params.SetStatusCallbackEvent([]string{"completed"})
	}

	resp, err := c.client.Api.CreateCall(params)
	if err != nil {
		return nil, &vapi.ProviderError{Err: err}
	}
	if resp.Sid == nil || *resp.Sid == "" {
		return nil, &vapi.ProviderError{Body: "twilio response missing call sid"}
	}

	call := &vapi.Call{ID: *resp.Sid}
	if resp.Status != nil {
		call.Status = *resp.Status
	}
	slog.Info("twiliovoice.StartCall: call initiated", "call_id", call.ID, "to", req.PhoneNumber)
	return call, nil
}

// CallStatus fetches the Twilio call record.
func (c *Client) CallStatus(ctx context.Context, callID string) (*vapi.Call, error) {
	resp, err := c.client.Api.FetchCall(callID, &twilioApi.FetchCallParams{})
	if err != nil {
		return nil, &vapi.ProviderError{Err: err}
	}
	call := &vapi.Call{ID: callID}
	if resp.Status != nil {
		call.Status = *resp.Status
	}
	return call, nil
}

// EndCall terminates an in-progress Twilio call.
func (c *Client) EndCall(ctx context.Context, callID string) error {
	params := &twilioApi.UpdateCallParams{}
	params.SetStatus("completed")
	if _, err := c.client.Api.UpdateCall(callID, params); err != nil {
		slog.Error("twiliovoice.EndCall: failed to end call", "call_id", callID, "error", err)
		return &vapi.ProviderError{Err: err}
	}
	slog.Info("twiliovoice.EndCall: call ended", "call_id", callID)
	return nil
}
