package vapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(WithAPIKey("test-key"), WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return c
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("VAPI_API_KEY", "")
	if _, err := NewClient(WithBaseURL("http://localhost")); err == nil {
		t.Error("missing API key should be rejected")
	}
	t.Setenv("VAPI_API_KEY", "from-env")
	if _, err := NewClient(); err != nil {
		t.Errorf("env fallback should work: %v", err)
	}
}

func TestStartCallSuccess(t *testing.T) {
	var got map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/call" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("missing bearer auth, got %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(Call{ID: "call_123", Status: "queued"})
	})

	call, err := c.StartCall(context.Background(), CallRequest{
		PhoneNumber: "+14155550123",
		Assistant:   &AssistantConfig{FirstMessage: "hi"},
		ServerURL:   "https://example.com/events",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call.ID != "call_123" {
		t.Errorf("unexpected call id %q", call.ID)
	}
	if got["phoneNumber"] != "+14155550123" {
		t.Errorf("payload missing phone number: %v", got)
	}
	if got["serverUrl"] != "https://example.com/events" {
		t.Errorf("payload missing server url: %v", got)
	}
	if _, ok := got["assistant"]; !ok {
		t.Error("payload missing inline assistant")
	}
}

func TestStartCallNonTwoxxIsProviderError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient funds", http.StatusPaymentRequired)
	})

	_, err := c.StartCall(context.Background(), CallRequest{
		PhoneNumber: "+14155550123",
		AssistantID: "asst_1",
	})
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if provErr.StatusCode != http.StatusPaymentRequired {
		t.Errorf("unexpected status %d", provErr.StatusCode)
	}
}

func TestStartCallMissingIDIsProviderError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})
	_, err := c.StartCall(context.Background(), CallRequest{PhoneNumber: "+1", AssistantID: "a"})
	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("2xx without an id must be a ProviderError, got %v", err)
	}
}

func TestStartCallValidation(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made for invalid input")
	})
	if _, err := c.StartCall(context.Background(), CallRequest{AssistantID: "a"}); err == nil {
		t.Error("missing phone number should fail")
	}
	if _, err := c.StartCall(context.Background(), CallRequest{PhoneNumber: "+1"}); err == nil {
		t.Error("missing assistant should fail")
	}
}

func TestEndCall(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/call/call_9" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["status"] != "ended" {
			t.Errorf("expected ended status, got %v", body)
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := c.EndCall(context.Background(), "call_9"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCallStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/call/call_7" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Call{ID: "call_7", Status: "in-progress"})
	})
	call, err := c.CallStatus(context.Background(), "call_7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if call.Status != "in-progress" {
		t.Errorf("unexpected status %q", call.Status)
	}
}
