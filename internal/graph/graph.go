// Package graph wraps the Neo4j graph database holding user profiles,
// attendance history, preferences and recorded interactions.
//
// The pipeline consumes it through four read operations and one write
// operation keyed by user id; all storage belongs to the graph store, never
// to the core.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/Kushal-Kongara/hackerday-sf/internal/models"
)

// Opts holds configuration options for the graph client.
type Opts struct {
	URI      string
	Username string
	Password string
}

// Option defines a configuration option for the graph client.
type Option func(*Opts)

// WithURI sets the bolt URI.
func WithURI(uri string) Option {
	return func(o *Opts) { o.URI = uri }
}

// WithAuth sets the basic-auth credentials.
func WithAuth(username, password string) Option {
	return func(o *Opts) { o.Username = username; o.Password = password }
}

// Client provides typed access to the user graph.
type Client struct {
	driver neo4j.DriverWithContext
}

// NewClient connects to Neo4j and verifies connectivity, falling back to
// NEO4J_URI, NEO4J_USERNAME and NEO4J_PASSWORD when options are omitted.
// A connectivity failure here is fatal for process startup.
func NewClient(ctx context.Context, opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.URI == "" {
		cfg.URI = os.Getenv("NEO4J_URI")
	}
	if cfg.URI == "" {
		cfg.URI = "bolt://localhost:7687"
	}
	if cfg.Username == "" {
		cfg.Username = os.Getenv("NEO4J_USERNAME")
	}
	if cfg.Username == "" {
		cfg.Username = "neo4j"
	}
	if cfg.Password == "" {
		cfg.Password = os.Getenv("NEO4J_PASSWORD")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}

	slog.Info("graph.NewClient: connected", "uri", cfg.URI)
	return &Client{driver: driver}, nil
}

// UserProfile retrieves one user's profile, or nil when the user is unknown.
func (c *Client) UserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if userID == "" {
		return nil, models.ErrEmptyUserID
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (u:User {id: $user_id})
		RETURN u.id AS id, u.name AS name, u.email AS email, u.phone AS phone
	`, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("query user profile %s: %w", userID, err)
	}
	if !result.Next(ctx) {
		slog.Warn("graph.UserProfile: user not found", "user_id", userID)
		return nil, result.Err()
	}

	rec := result.Record()
	return &models.UserProfile{
		ID:    stringValue(rec, "id"),
		Name:  stringValue(rec, "name"),
		Email: stringValue(rec, "email"),
		Phone: stringValue(rec, "phone"),
	}, nil
}

// GameHistory fetches attendance records ordered by attendance date
// descending, up to limit entries.
func (c *Client) GameHistory(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error) {
	if userID == "" {
		return nil, models.ErrEmptyUserID
	}
	if limit <= 0 {
		limit = 10
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (u:User {id: $user_id})-[a:ATTENDED]->(g:Game)
		RETURN g.id AS event_id, g.title AS title, a.attended_date AS date,
		       g.venue AS venue, a.ticket_type AS ticket_tier, a.satisfaction_rating AS rating
		ORDER BY a.attended_date DESC
		LIMIT $limit
	`, map[string]any{"user_id": userID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("query game history %s: %w", userID, err)
	}

	history := []models.HistoryEntry{}
	for result.Next(ctx) {
		rec := result.Record()
		history = append(history, models.HistoryEntry{
			EventID:    stringValue(rec, "event_id"),
			Title:      stringValue(rec, "title"),
			Date:       stringValue(rec, "date"),
			Venue:      stringValue(rec, "venue"),
			TicketTier: stringValue(rec, "ticket_tier"),
			Rating:     intValue(rec, "rating"),
		})
	}
	return history, result.Err()
}

// Preferences collects the user's favorite teams and sports.
func (c *Client) Preferences(ctx context.Context, userID string) (models.PreferenceSet, error) {
	if userID == "" {
		return models.PreferenceSet{}, models.ErrEmptyUserID
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (u:User {id: $user_id})
		OPTIONAL MATCH (u)-[:INTERESTED_IN]->(t:Team)
		OPTIONAL MATCH (u)-[:PREFERS]->(s:Sport)
		RETURN collect(DISTINCT t.name) AS favorite_teams,
		       collect(DISTINCT s.name) AS favorite_sports
	`, map[string]any{"user_id": userID})
	if err != nil {
		return models.PreferenceSet{}, fmt.Errorf("query preferences %s: %w", userID, err)
	}
	if !result.Next(ctx) {
		return models.PreferenceSet{}, result.Err()
	}

	rec := result.Record()
	return models.PreferenceSet{
		FavoriteTeams:  stringSlice(rec, "favorite_teams"),
		FavoriteSports: stringSlice(rec, "favorite_sports"),
	}, nil
}

// SimilarUsers finds users with overlapping attendance, ranked by the share
// of their games in common with userID.
func (c *Client) SimilarUsers(ctx context.Context, userID string, limit int) ([]models.SimilarUser, error) {
	if userID == "" {
		return nil, models.ErrEmptyUserID
	}
	if limit <= 0 {
		limit = 5
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (u1:User {id: $user_id})-[:ATTENDED]->(g:Game)<-[:ATTENDED]-(u2:User)
		WHERE u1 <> u2
		WITH u2, count(g) AS common_games
		MATCH (u2)-[:ATTENDED]->(g2:Game)
		WITH u2, common_games, count(g2) AS total_games
		RETURN u2.id AS user_id, u2.name AS name, common_games,
		       (common_games * 1.0 / total_games) AS similarity_score
		ORDER BY similarity_score DESC
		LIMIT $limit
	`, map[string]any{"user_id": userID, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("query similar users %s: %w", userID, err)
	}

	similar := []models.SimilarUser{}
	for result.Next(ctx) {
		rec := result.Record()
		similar = append(similar, models.SimilarUser{
			UserID:      stringValue(rec, "user_id"),
			Name:        stringValue(rec, "name"),
			CommonGames: intValue(rec, "common_games"),
			Similarity:  floatValue(rec, "similarity_score"),
		})
	}
	return similar, result.Err()
}

// RecordInteraction appends an interaction node linked to the user. It is
// the single write operation the core performs.
func (c *Client) RecordInteraction(ctx context.Context, userID, kind string, details map[string]any) error {
	if userID == "" {
		return models.ErrEmptyUserID
	}
	if kind == "" {
		return models.ErrUnknownInteraction
	}

	// Property values must be primitives, so details travel as JSON text.
	encoded, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode interaction details: %w", err)
	}

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err = session.Run(ctx, `
		MATCH (u:User {id: $user_id})
		CREATE (i:Interaction {type: $kind, timestamp: datetime(), details: $details})
		CREATE (u)-[:HAD_INTERACTION]->(i)
	`, map[string]any{"user_id": userID, "kind": kind, "details": string(encoded)})
	if err != nil {
		return fmt.Errorf("record %s interaction for %s: %w", kind, userID, err)
	}

	slog.Info("graph.RecordInteraction: recorded", "user_id", userID, "type", kind)
	return nil
}

// Close releases the underlying driver.
func (c *Client) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

func stringValue(rec *neo4j.Record, key string) string {
	if v, ok := rec.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func intValue(rec *neo4j.Record, key string) int {
	if v, ok := rec.Get(key); ok {
		switch n := v.(type) {
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return 0
}

func floatValue(rec *neo4j.Record, key string) float64 {
	if v, ok := rec.Get(key); ok {
		switch n := v.(type) {
		case float64:
			return n
		case int64:
			return float64(n)
		}
	}
	return 0
}

func stringSlice(rec *neo4j.Record, key string) []string {
	v, ok := rec.Get(key)
	if !ok {
		return nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
