package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/fathomdata/salesdesk/internal/agent"
	"github.com/fathomdata/salesdesk/internal/resolver"
	slackbot "github.com/fathomdata/salesdesk/internal/slack"
	"github.com/fathomdata/salesdesk/internal/templates"
	"github.com/fathomdata/salesdesk/internal/warehouse"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultMetricsAddr = "0.0.0.0:0"
	defaultHTTPAddr    = "0.0.0.0:3000"

	agentModel     = "claude-sonnet-4-20250514"
	agentMaxTokens = 4096
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run starts the SalesDesk bot.
//
// Required Slack Bot Token Scopes:
//   - chat:write - Post messages
//   - files:write - Upload chart images
//   - reactions:write - Add the processing reaction
//   - im:history - Read DM history
//   - app_mentions:read - Receive channel mentions
//
// Required Event Subscriptions (Subscribe to bot events):
//   - app_mention - Receive events when the bot is mentioned in channels
//   - message.im - Receive direct messages
//
// For DMs, the bot responds to all messages. For channels, it only responds
// when mentioned.
func run() error {
	verboseFlag := flag.Bool("verbose", false, "Enable verbose (debug) logging")
	enablePprofFlag := flag.Bool("enable-pprof", false, "Enable pprof server")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics")
	modeFlag := flag.String("mode", "", "Mode: 'socket' (dev) or 'http' (prod). Defaults to 'socket' if SLACK_APP_TOKEN is set, otherwise 'http'")
	httpAddrFlag := flag.String("http-addr", defaultHTTPAddr, "Address to listen on for HTTP events (production mode)")
	shutdownTimeoutFlag := flag.Duration("shutdown-timeout", 60*time.Second, "Maximum time to wait for in-flight messages to complete during graceful shutdown")

	templatesPathFlag := flag.String("templates-path", "", "Path to the query template repository (or set TEMPLATES_PATH env var)")
	minMatchScoreFlag := flag.Float64("min-match-score", 0, "Minimum cosine similarity for a template match; 0 always takes the best match")
	maxPlotItemsFlag := flag.Int("max-plot-items", 10, "Maximum rows rendered in a chart")

	// ClickHouse configuration flags (used as fallback if env vars not set)
	clickhouseAddrFlag := flag.String("clickhouse-addr", "", "ClickHouse server address (e.g., localhost:9000, or set CLICKHOUSE_ADDR env var)")
	clickhouseDatabaseFlag := flag.String("clickhouse-database", "", "ClickHouse database name (or set CLICKHOUSE_DATABASE env var)")
	clickhouseUsernameFlag := flag.String("clickhouse-username", "", "ClickHouse username (or set CLICKHOUSE_USERNAME env var)")
	clickhousePasswordFlag := flag.String("clickhouse-password", "", "ClickHouse password (or set CLICKHOUSE_PASSWORD env var)")

	flag.Parse()

	// Optional .env for local development.
	_ = godotenv.Load()

	log := newLogger(*verboseFlag)

	cfg, err := slackbot.LoadFromEnv(*modeFlag, *httpAddrFlag, *metricsAddrFlag, *verboseFlag, *enablePprofFlag)
	if err != nil {
		return err
	}

	// Flags take precedence over env vars.
	if *clickhouseAddrFlag != "" {
		cfg.ClickhouseAddr = *clickhouseAddrFlag
	}
	if *clickhouseDatabaseFlag != "" {
		cfg.ClickhouseDatabase = *clickhouseDatabaseFlag
	}
	if *clickhouseUsernameFlag != "" {
		cfg.ClickhouseUsername = *clickhouseUsernameFlag
	}
	if *clickhousePasswordFlag != "" {
		cfg.ClickhousePassword = *clickhousePasswordFlag
	}
	if *templatesPathFlag != "" {
		cfg.TemplatesPath = *templatesPathFlag
	}

	// Start pprof server if enabled
	if cfg.EnablePprof {
		go func() {
			log.Info("starting pprof server", "address", "localhost:6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				log.Error("failed to start pprof server", "error", err)
			}
		}()
	}

	// Start metrics server
	if cfg.MetricsAddr != "" {
		slackbot.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", cfg.MetricsAddr)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Warehouse client
	warehouseClient, err := warehouse.NewClient(ctx, log, cfg.ClickhouseAddr, cfg.ClickhouseDatabase, cfg.ClickhouseUsername, cfg.ClickhousePassword)
	if err != nil {
		return fmt.Errorf("failed to create clickhouse client: %w", err)
	}
	defer warehouseClient.Close()

	querier := warehouse.NewQuerier(warehouseClient, log)
	schemaFetcher := warehouse.NewSchemaFetcher(warehouseClient, cfg.ClickhouseDatabase)

	// Template repository (missing or malformed file degrades to empty)
	repo := templates.Load(cfg.TemplatesPath, log)

	// Generative agent fallback
	llmClient := agent.NewAnthropicLLMClient(cfg.AnthropicAPIKey, agentModel, agentMaxTokens, log)
	sqlAgent, err := agent.New(agent.Config{
		Logger:       log,
		LLM:          llmClient,
		Querier:      querier,
		Schema:       schemaFetcher,
		SystemPrompt: cfg.SystemPrompt,
	})
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}

	// Query resolution orchestrator
	res, err := resolver.New(resolver.Config{
		Logger:        log,
		Repository:    repo,
		Querier:       querier,
		Agent:         sqlAgent,
		Escape:        slackbot.EscapeMrkdwn,
		MaxPlotItems:  *maxPlotItemsFlag,
		MinMatchScore: *minMatchScoreFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to create resolver: %w", err)
	}

	// Initialize Slack client
	slackClient := slackbot.NewClient(cfg.BotToken, cfg.AppToken, log)
	botUserID, err := slackClient.Initialize(ctx)
	if err != nil {
		log.Warn("slack auth test failed, continuing anyway", "error", err)
	}
	cfg.BotUserID = botUserID

	// Set up message processor
	msgProcessor := slackbot.NewProcessor(slackClient, res, log)
	msgProcessor.Start(ctx)

	// Set up event handler
	eventHandler := slackbot.NewEventHandler(ctx, slackClient, msgProcessor, log)
	eventHandler.Start(ctx)

	// Start bot based on mode
	if cfg.Mode == slackbot.ModeSocket {
		err = runSocketMode(ctx, slackClient.API(), eventHandler, log)
	} else {
		err = runHTTPMode(ctx, cfg.HTTPAddr, cfg.SigningSecret, eventHandler, log)
	}

	// If shutdown was initiated, wait for in-flight operations
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		log.Info("shutdown signal received, stopping new events and waiting for in-flight messages", "timeout", *shutdownTimeoutFlag)
		waitInFlight := eventHandler.StopAcceptingNew()

		waitDone := make(chan struct{})
		go func() {
			waitInFlight()
			close(waitDone)
		}()

		select {
		case <-waitDone:
			log.Info("all in-flight messages completed")
		case <-time.After(*shutdownTimeoutFlag):
			log.Warn("timeout waiting for in-flight messages, proceeding with shutdown", "timeout", *shutdownTimeoutFlag)
		}
		log.Info("bot shutting down", "reason", err)
		return nil
	}
	return err
}

// runSocketMode runs the bot in Socket Mode (development)
func runSocketMode(
	ctx context.Context,
	api *slackapi.Client,
	eventHandler *slackbot.EventHandler,
	log *slog.Logger,
) error {
	client := socketmode.New(api)

	go func() {
		if err := client.Run(); err != nil {
			log.Error("socketmode client error", "error", err)
		}
	}()

	// Handle events - this will return when ctx is cancelled
	return eventHandler.HandleSocketMode(ctx, client)
}

// runHTTPMode runs the bot in HTTP Mode (production)
func runHTTPMode(
	ctx context.Context,
	httpAddr string,
	signingSecret string,
	eventHandler *slackbot.EventHandler,
	log *slog.Logger,
) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/slack/events", func(w http.ResponseWriter, r *http.Request) {
		eventHandler.HandleHTTP(w, r, signingSecret)
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			log.Error("failed to write readyz response", "error", err)
		}
	})

	httpServer := &http.Server{
		Addr:    httpAddr,
		Handler: mux,
	}

	go func() {
		log.Info("HTTP server listening for Slack events", "addr", httpAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("bot running in HTTP mode (DMs and channel mentions)")
	<-ctx.Done()
	log.Info("shutdown signal received, stopping HTTP server from accepting new connections")

	eventHandler.StopAcceptingNew()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("error shutting down HTTP server", "error", err)
	} else {
		log.Info("HTTP server stopped accepting new connections")
	}

	return ctx.Err()
}

func newLogger(verbose bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				t := a.Value.Time().UTC()
				a.Value = slog.StringValue(formatRFC3339Millis(t))
			}
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func formatRFC3339Millis(t time.Time) string {
	t = t.UTC()
	base := t.Format("2006-01-02T15:04:05")
	ms := t.Nanosecond() / 1_000_000
	return fmt.Sprintf("%s.%03dZ", base, ms)
}
