// Package outcome aggregates webhook notifications into per-call state and
// a final binary success verdict.
//
// The call provider delivers events at least once with no ordering
// guarantee. The aggregator owns the state map: webhook handlers feed events
// through Apply and never touch state directly. Mutations for one call id
// are serialized through a striped lock; distinct call ids proceed in
// parallel.
package outcome

import (
	"hash/fnv"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"github.com/Kushal-Kongara/hackerday-sf/internal/models"
)

// linkPattern matches a purchase link anywhere in transcript or message text.
var linkPattern = regexp.MustCompile(`https?://\S+`)

// terminalEvents are the event types that close a call.
var terminalEvents = map[string]bool{
	"call.ended":     true,
	"ended":          true,
	"call.completed": true,
}

// Message is one assistant utterance carried by a webhook event.
type Message struct {
	Content string `json:"content"`
}

// Event is the provider-agnostic view of one webhook notification.
type Event struct {
	Type       string    `json:"type"`
	CallID     string    `json:"call_id"`
	Transcript string    `json:"transcript,omitempty"`
	Messages   []Message `json:"messages,omitempty"`
	Summary    string    `json:"summary,omitempty"`
}

// Terminal reports whether the event type ends the call.
func (e Event) Terminal() bool {
	return terminalEvents[e.Type]
}

// Verdict is the binary outcome computed when a call ends. Repeated terminal
// events recompute it from the same immutable state and get the same answer.
type Verdict struct {
	CallID  string `json:"call_id"`
	Success bool   `json:"success"`
	Summary string `json:"summary,omitempty"`
}

// callRecord is the mutable per-call state plus its phase.
type callRecord struct {
	state  models.CallState
	closed bool
}

const lockStripes = 32

// Aggregator is the owned key-value store of call state. States are created
// on first sight of a call id and never deleted by the aggregator.
type Aggregator struct {
	mu    sync.RWMutex
	calls map[string]*callRecord
	locks [lockStripes]sync.Mutex
}

// NewAggregator constructs an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{calls: make(map[string]*callRecord)}
}

// Track pre-registers a call id so state exists before the first webhook.
func (a *Aggregator) Track(callID string) {
	if callID == "" {
		return
	}
	a.record(callID)
	slog.Debug("Aggregator.Track: tracking call", "call_id", callID)
}

// Apply folds one event into the call's state. It returns a Verdict when the
// event is terminal, nil otherwise. Unknown call ids create fresh state;
// events with no call id are dropped.
func (a *Aggregator) Apply(event Event) *Verdict {
	if event.CallID == "" {
		slog.Warn("Aggregator.Apply: event without call id dropped", "type", event.Type)
		return nil
	}

	rec := a.record(event.CallID)

	stripe := &a.locks[stripeFor(event.CallID)]
	stripe.Lock()
	defer stripe.Unlock()

	if event.Transcript != "" {
		// Cumulative transcript from the provider: replace, don't append.
		rec.state.Transcript = event.Transcript
		if linkPattern.MatchString(event.Transcript) {
			rec.state.LinkSent = true
		}
	}
	for _, m := range event.Messages {
		if linkPattern.MatchString(m.Content) {
			rec.state.LinkSent = true
		}
	}
	if event.Summary != "" {
		rec.state.Summary = event.Summary
	}

	if !event.Terminal() {
		return nil
	}

	rec.closed = true
	verdict := &Verdict{
		CallID:  event.CallID,
		Success: successFrom(rec.state),
		Summary: rec.state.Summary,
	}
	slog.Info("Aggregator.Apply: call ended",
		"call_id", event.CallID, "success", verdict.Success, "link_sent", rec.state.LinkSent)
	return verdict
}

// successFrom computes the binary verdict from an immutable state snapshot:
// the purchase link was delivered and the conversation actually pitched
// tickets.
func successFrom(state models.CallState) bool {
	transcript := strings.ToLower(state.Transcript)
	pitched := strings.Contains(transcript, "ticket") || strings.Contains(transcript, "single-game")
	return state.LinkSent && pitched
}

// State returns a snapshot of a call's accumulated state.
func (a *Aggregator) State(callID string) (models.CallState, bool) {
	a.mu.RLock()
	rec, ok := a.calls[callID]
	a.mu.RUnlock()
	if !ok {
		return models.CallState{}, false
	}

	stripe := &a.locks[stripeFor(callID)]
	stripe.Lock()
	defer stripe.Unlock()
	return rec.state, true
}

// Closed reports whether a terminal event has been seen for the call.
func (a *Aggregator) Closed(callID string) bool {
	a.mu.RLock()
	rec, ok := a.calls[callID]
	a.mu.RUnlock()
	if !ok {
		return false
	}
	stripe := &a.locks[stripeFor(callID)]
	stripe.Lock()
	defer stripe.Unlock()
	return rec.closed
}

// TrackedCalls returns how many call ids the aggregator has seen.
func (a *Aggregator) TrackedCalls() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.calls)
}

// record returns the callRecord for id, creating it on first sight.
func (a *Aggregator) record(callID string) *callRecord {
	a.mu.RLock()
	rec, ok := a.calls[callID]
	a.mu.RUnlock()
	if ok {
		return rec
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if rec, ok = a.calls[callID]; ok {
		return rec
	}
	rec = &callRecord{}
	a.calls[callID] = rec
	return rec
}

func stripeFor(callID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(callID))
	return h.Sum32() % lockStripes
}
