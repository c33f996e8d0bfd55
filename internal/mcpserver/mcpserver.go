// Package mcpserver exposes the user graph as a set of MCP tools over
// stdio, so the voice assistant can look users up mid-call.
//
// Each tool is registered exactly once and returns a uniform
// {success, data|error} JSON payload; handler failures become tool error
// results, never transport errors.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Kushal-Kongara/hackerday-sf/internal/models"
)

// Default limits applied when a tool call omits them.
const (
	defaultHistoryLimit = 10
	defaultSimilarLimit = 5
)

// UserGraph is the graph surface the tools read and write.
type UserGraph interface {
	UserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	GameHistory(ctx context.Context, userID string, limit int) ([]models.HistoryEntry, error)
	Preferences(ctx context.Context, userID string) (models.PreferenceSet, error)
	SimilarUsers(ctx context.Context, userID string, limit int) ([]models.SimilarUser, error)
	RecordInteraction(ctx context.Context, userID, kind string, details map[string]any) error
}

// Server wraps an MCP stdio server over the user graph.
type Server struct {
	graph UserGraph
	mcp   *server.MCPServer
}

// NewServer builds the tool server and registers the tool set.
func NewServer(graph UserGraph) *Server {
	s := &Server{
		graph: graph,
		mcp: server.NewMCPServer("sales-agent-user-graph", "1.0.0",
			server.WithToolCapabilities(false)),
	}
	s.registerTools()
	return s
}

// ServeStdio blocks serving tool calls on stdin/stdout.
func (s *Server) ServeStdio() error {
	slog.Info("Server.ServeStdio: MCP server starting")
	return server.ServeStdio(s.mcp)
}

// MCPServer exposes the underlying server for in-process test transports.
func (s *Server) MCPServer() *server.MCPServer { return s.mcp }

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("get_user_profile",
		mcp.WithDescription("Get a user's profile information"),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Unique user identifier")),
	), s.getUserProfile)

	s.mcp.AddTool(mcp.NewTool("get_user_game_history",
		mcp.WithDescription("Get a user's game attendance history, most recent first"),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Unique user identifier")),
		mcp.WithNumber("limit", mcp.Description("Maximum entries to return, default 10")),
	), s.getUserGameHistory)

	s.mcp.AddTool(mcp.NewTool("get_user_preferences",
		mcp.WithDescription("Get a user's favorite teams and sports"),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Unique user identifier")),
	), s.getUserPreferences)

	s.mcp.AddTool(mcp.NewTool("get_similar_users",
		mcp.WithDescription("Find users with overlapping game attendance"),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Unique user identifier")),
		mcp.WithNumber("limit", mcp.Description("Maximum users to return, default 5")),
	), s.getSimilarUsers)

	s.mcp.AddTool(mcp.NewTool("record_interaction",
		mcp.WithDescription("Record an interaction with a user"),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Unique user identifier")),
		mcp.WithString("interaction_type", mcp.Required(), mcp.Description("Kind of interaction, e.g. sales_call")),
		mcp.WithObject("details", mcp.Description("Free-form interaction details")),
	), s.recordInteraction)
}

// toolResult renders the uniform envelope as a text result. Marshal failures
// degrade to an error result rather than a broken payload.
func toolResult(envelope models.APIResponse) *mcp.CallToolResult {
	data, err := json.Marshal(envelope)
	if err != nil {
		slog.Error("mcpserver.toolResult: failed to marshal envelope", "error", err)
		return mcp.NewToolResultError("internal encoding error")
	}
	return mcp.NewToolResultText(string(data))
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return toolResult(models.Error(fmt.Sprintf(format, args...)))
}

func (s *Server) getUserProfile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return toolError("user_id is required"), nil
	}

	profile, err := s.graph.UserProfile(ctx, userID)
	if err != nil {
		slog.Error("Server.getUserProfile: lookup failed", "user_id", userID, "error", err.Error())
		return toolError("profile lookup failed: %v", err), nil
	}
	if profile == nil {
		return toolError("user %s not found", userID), nil
	}
	return toolResult(models.Success(profile)), nil
}

func (s *Server) getUserGameHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return toolError("user_id is required"), nil
	}
	limit := req.GetInt("limit", defaultHistoryLimit)

	history, err := s.graph.GameHistory(ctx, userID, limit)
	if err != nil {
		slog.Error("Server.getUserGameHistory: lookup failed", "user_id", userID, "error", err.Error())
		return toolError("history lookup failed: %v", err), nil
	}
	return toolResult(models.Success(history)), nil
}

func (s *Server) getUserPreferences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return toolError("user_id is required"), nil
	}

	prefs, err := s.graph.Preferences(ctx, userID)
	if err != nil {
		slog.Error("Server.getUserPreferences: lookup failed", "user_id", userID, "error", err.Error())
		return toolError("preference lookup failed: %v", err), nil
	}
	return toolResult(models.Success(prefs)), nil
}

func (s *Server) getSimilarUsers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return toolError("user_id is required"), nil
	}
	limit := req.GetInt("limit", defaultSimilarLimit)

	similar, err := s.graph.SimilarUsers(ctx, userID, limit)
	if err != nil {
		slog.Error("Server.getSimilarUsers: lookup failed", "user_id", userID, "error", err.Error())
		return toolError("similar-user lookup failed: %v", err), nil
	}
	return toolResult(models.Success(similar)), nil
}

func (s *Server) recordInteraction(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := req.RequireString("user_id")
	if err != nil {
		return toolError("user_id is required"), nil
	}
	kind, err := req.RequireString("interaction_type")
	if err != nil {
		return toolError("interaction_type is required"), nil
	}

	var details map[string]any
	if args := req.GetArguments(); args != nil {
		if d, ok := args["details"].(map[string]any); ok {
			details = d
		}
	}

	if err := s.graph.RecordInteraction(ctx, userID, kind, details); err != nil {
		slog.Error("Server.recordInteraction: write failed", "user_id", userID, "error", err.Error())
		return toolError("failed to record interaction: %v", err), nil
	}
	return toolResult(models.SuccessWithMessage("interaction recorded", nil)), nil
}
