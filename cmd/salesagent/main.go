// Command salesagent runs the outbound sales-call pipeline.
//
// Subcommands:
//
//	call    place one call: salesagent call -user user_001 -phone +14155550100
//	batch   place calls from a JSON file: salesagent batch -file calls.json
//	serve   run the webhook/API server, campaign scheduler and MCP tools
//	status  print a system status snapshot
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Kushal-Kongara/hackerday-sf/internal/api"
	"github.com/Kushal-Kongara/hackerday-sf/internal/briefing"
	"github.com/Kushal-Kongara/hackerday-sf/internal/genai"
	"github.com/Kushal-Kongara/hackerday-sf/internal/graph"
	"github.com/Kushal-Kongara/hackerday-sf/internal/mcpserver"
	"github.com/Kushal-Kongara/hackerday-sf/internal/orchestrator"
	"github.com/Kushal-Kongara/hackerday-sf/internal/scheduler"
	"github.com/Kushal-Kongara/hackerday-sf/internal/search"
	"github.com/Kushal-Kongara/hackerday-sf/internal/twiliovoice"
	"github.com/Kushal-Kongara/hackerday-sf/internal/util"
	"github.com/Kushal-Kongara/hackerday-sf/internal/vapi"
)

func main() {
	initializeLogger()

	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "call":
		err = runCall(os.Args[2:])
	case "batch":
		err = runBatch(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "status":
		err = runStatus(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		slog.Error("salesagent failed", "command", os.Args[1], "error", err.Error())
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: salesagent <call|batch|serve|status> [flags]")
}

// initializeLogger sets up structured logging, honoring LOG_LEVEL.
func initializeLogger() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

// loadPipelineConfig builds the orchestrator configuration from the
// environment once; flags never override it mid-run.
func loadPipelineConfig() orchestrator.Config {
	return orchestrator.Config{
		ServerURL:          os.Getenv("SERVER_URL"),
		AssistantID:        os.Getenv("VAPI_ASSISTANT_ID"),
		Voice:              os.Getenv("ASSISTANT_VOICE"),
		Model:              os.Getenv("ASSISTANT_MODEL"),
		MaxCallDuration:    util.ParseIntEnv("MAX_CALL_DURATION", briefing.DefaultMaxDurationSec),
		RecordCalls:        util.ParseBoolEnv("RECORD_CALLS", false),
		CallRetryAttempts:  util.ParseIntEnv("CALL_RETRY_ATTEMPTS", 2),
		CallRetryDelay:     time.Duration(util.ParseIntEnv("CALL_RETRY_DELAY_SECONDS", 2)) * time.Second,
		MaxConcurrentCalls: util.ParseIntEnv("MAX_CONCURRENT_CALLS", 5),
	}
}

// buildDialer selects the call provider: CALL_PROVIDER=twilio switches to
// plain Twilio voice, anything else uses the conversational provider.
func buildDialer() (vapi.Dialer, error) {
	if strings.EqualFold(os.Getenv("CALL_PROVIDER"), "twilio") {
		slog.Info("buildDialer: using twilio voice backend")
		client, err := twiliovoice.NewClient()
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	client, err := vapi.NewClient()
	if err != nil {
		return nil, err
	}
	return client, nil
}

// buildOrchestrator wires every collaborator. The returned cleanup closes
// the graph connection.
func buildOrchestrator(ctx context.Context) (*orchestrator.Orchestrator, *graph.Client, func(), error) {
	users, err := graph.NewClient(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect user graph: %w", err)
	}
	cleanup := func() {
		if err := users.Close(context.Background()); err != nil {
			slog.Warn("failed to close graph connection", "error", err.Error())
		}
	}

	events, err := search.NewClient()
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("configure game search: %w", err)
	}

	dialer, err := buildDialer()
	if err != nil {
		cleanup()
		return nil, nil, nil, fmt.Errorf("configure call provider: %w", err)
	}

	// The language model is optional: without it briefings stay fully
	// deterministic.
	var builder *briefing.Builder
	if gen, err := genai.NewClient(); err != nil {
		slog.Info("language model unavailable, using deterministic briefings", "reason", err.Error())
		builder = briefing.NewBuilder(nil)
	} else {
		builder = briefing.NewBuilder(gen)
	}

	orch := orchestrator.New(users, events, dialer, builder, nil, loadPipelineConfig())
	return orch, users, cleanup, nil
}

func runCall(args []string) error {
	fs := flag.NewFlagSet("call", flag.ExitOnError)
	userID := fs.String("user", "", "user id to call")
	phone := fs.String("phone", "", "phone number in E.164 format")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *userID == "" || *phone == "" {
		return fmt.Errorf("call requires -user and -phone")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, _, cleanup, err := buildOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := orch.ProcessSalesCall(ctx, *userID, *phone)
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	file := fs.String("file", "", "JSON file with call requests")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" {
		return fmt.Errorf("batch requires -file")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("read batch file: %w", err)
	}
	var requests []orchestrator.CallRequest
	if err := json.Unmarshal(data, &requests); err != nil {
		return fmt.Errorf("parse batch file: %w", err)
	}
	if len(requests) == 0 {
		return fmt.Errorf("batch file contains no requests")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, _, cleanup, err := buildOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	batch := orch.ProcessBatch(ctx, requests)
	if err := printJSON(batch); err != nil {
		return err
	}
	if len(batch.Failed) > 0 {
		return fmt.Errorf("%d of %d calls failed", len(batch.Failed), batch.Total)
	}
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address (default API_ADDR or :8080)")
	mcpStdio := fs.Bool("mcp", util.ParseBoolEnv("MCP_STDIO", false), "serve MCP tools on stdin/stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch, users, cleanup, err := buildOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := scheduleCampaign(ctx, orch, sched); err != nil {
		return err
	}

	if *mcpStdio {
		go func() {
			if err := mcpserver.NewServer(users).ServeStdio(); err != nil {
				slog.Error("MCP server stopped", "error", err.Error())
			}
		}()
	}

	var opts []api.Option
	if *addr != "" {
		opts = append(opts, api.WithAddr(*addr))
	}
	return api.NewServer(orch, opts...).Run(ctx)
}

// scheduleCampaign registers the recurring batch campaign when CAMPAIGN_CRON
// and CAMPAIGN_FILE are configured.
func scheduleCampaign(ctx context.Context, orch *orchestrator.Orchestrator, sched *scheduler.Scheduler) error {
	cronExpr := os.Getenv("CAMPAIGN_CRON")
	file := os.Getenv("CAMPAIGN_FILE")
	if cronExpr == "" || file == "" {
		slog.Debug("no campaign configured")
		return nil
	}

	return sched.AddCampaign(cronExpr, func() {
		data, err := os.ReadFile(file)
		if err != nil {
			slog.Error("campaign: failed to read request file", "file", file, "error", err.Error())
			return
		}
		var requests []orchestrator.CallRequest
		if err := json.Unmarshal(data, &requests); err != nil {
			slog.Error("campaign: failed to parse request file", "file", file, "error", err.Error())
			return
		}
		batch := orch.ProcessBatch(ctx, requests)
		slog.Info("campaign completed",
			"total", batch.Total, "successful", len(batch.Successful), "failed", len(batch.Failed))
	})
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	orch, _, cleanup, err := buildOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	return printJSON(orch.SystemStatus())
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
