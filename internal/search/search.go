// Package search wraps the Weaviate vector store holding the game catalog.
// Queries are semantic: free-text concepts resolved with near-text search,
// returning candidate events with relevance metadata for the analyst to
// score.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"

	"github.com/Kushal-Kongara/hackerday-sf/internal/models"
)

// className is the Weaviate collection holding game documents.
const className = "Games"

// eventFields are the properties requested on every game query. They match
// the catalog schema the analyst's category matching reads from.
var eventFields = []graphql.Field{
	{Name: "title"},
	{Name: "sport"},
	{Name: "date"},
	{Name: "venue"},
	{Name: "teams"},
	{Name: "home_team"},
	{Name: "away_team"},
	{Name: "description"},
	{Name: "_additional", Fields: []graphql.Field{
		{Name: "id"},
		{Name: "score"},
		{Name: "distance"},
	}},
}

// Opts holds configuration options for the search client.
type Opts struct {
	Host   string
	Scheme string
	APIKey string
}

// Option defines a configuration option for the search client.
type Option func(*Opts)

// WithHost sets the Weaviate host (host:port, no scheme).
func WithHost(host string) Option {
	return func(o *Opts) { o.Host = host }
}

// WithScheme sets the connection scheme, http or https.
func WithScheme(scheme string) Option {
	return func(o *Opts) { o.Scheme = scheme }
}

// WithAPIKey sets the API key; empty means anonymous access.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// Client provides semantic search over the game catalog.
type Client struct {
	weaviate *weaviate.Client
}

// NewClient builds a search client, falling back to WEAVIATE_HOST,
// WEAVIATE_SCHEME and WEAVIATE_API_KEY when options are omitted.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Host == "" {
		cfg.Host = os.Getenv("WEAVIATE_HOST")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost:8080"
	}
	if cfg.Scheme == "" {
		cfg.Scheme = os.Getenv("WEAVIATE_SCHEME")
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("WEAVIATE_API_KEY")
	}

	wcfg := weaviate.Config{Host: cfg.Host, Scheme: cfg.Scheme}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	wc, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	slog.Info("search.NewClient: configured", "host", cfg.Host, "scheme", cfg.Scheme)
	return &Client{weaviate: wc}, nil
}

// SearchGames runs a near-text query against the catalog and returns up to
// limit candidate events with relevance metadata.
func (c *Client) SearchGames(ctx context.Context, query string, limit int) ([]models.CandidateEvent, error) {
	if query == "" {
		return nil, fmt.Errorf("search query must not be empty")
	}
	if limit <= 0 {
		limit = 5
	}

	nearText := c.weaviate.GraphQL().NearTextArgBuilder().WithConcepts([]string{query})
	resp, err := c.weaviate.GraphQL().Get().
		WithClassName(className).
		WithFields(eventFields...).
		WithNearText(nearText).
		WithLimit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search games %q: %w", query, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("search games %q: %s", query, resp.Errors[0].Message)
	}

	events := parseEvents(resp.Data["Get"])
	slog.Debug("search.SearchGames: done", "query", query, "hits", len(events))
	return events, nil
}

// GameByID fetches a single game object, or nil when it does not exist.
func (c *Client) GameByID(ctx context.Context, gameID string) (*models.CandidateEvent, error) {
	if gameID == "" {
		return nil, fmt.Errorf("game id must not be empty")
	}

	objects, err := c.weaviate.Data().ObjectsGetter().
		WithClassName(className).
		WithID(gameID).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch game %s: %w", gameID, err)
	}
	if len(objects) == 0 {
		return nil, nil
	}

	obj := objects[0]
	event := models.CandidateEvent{ID: obj.ID.String()}
	if props, ok := obj.Properties.(map[string]any); ok {
		event.Properties = props
	} else {
		event.Properties = map[string]any{}
	}
	return &event, nil
}

// UpcomingGames returns the catalog's best answer to a generic schedule
// query, capped at the candidate-event limit.
func (c *Client) UpcomingGames(ctx context.Context) ([]models.CandidateEvent, error) {
	return c.SearchGames(ctx, "upcoming games schedule", models.MaxCandidateEvents)
}

// parseEvents decodes the GraphQL "Get" payload into candidate events.
// Malformed entries are skipped rather than failing the whole result.
func parseEvents(get any) []models.CandidateEvent {
	getMap, ok := get.(map[string]any)
	if !ok {
		return nil
	}
	hits, ok := getMap[className].([]any)
	if !ok {
		return nil
	}

	events := make([]models.CandidateEvent, 0, len(hits))
	for _, hit := range hits {
		props, ok := hit.(map[string]any)
		if !ok {
			continue
		}
		event := models.CandidateEvent{Properties: map[string]any{}}
		for k, v := range props {
			if k != "_additional" {
				event.Properties[k] = v
			}
		}
		if add, ok := props["_additional"].(map[string]any); ok {
			event.ID, _ = add["id"].(string)
			event.Relevance = floatField(add, "score")
			event.Distance = floatField(add, "distance")
		}
		events = append(events, event)
	}
	return events
}

// floatField reads a numeric additional-metadata field. Weaviate returns
// score as a string and distance as a number, so both shapes are handled.
func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%g", &f); err == nil {
			return f
		}
	}
	return 0
}
