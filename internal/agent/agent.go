// Package agent is the generative fallback: when no template matches a
// question, it asks an LLM to write a single SQL statement against the
// warehouse schema, executes it, and feeds execution errors back to the model
// for a bounded number of repair attempts.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/fathomdata/salesdesk/internal/table"
)

const defaultMaxAttempts = 3

// LLMClient is the interface for interacting with an LLM.
type LLMClient interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Querier executes SQL queries.
type Querier interface {
	Query(ctx context.Context, sql string) (table.Table, error)
}

// SchemaFetcher retrieves database schema information.
type SchemaFetcher interface {
	// FetchSchema returns a formatted string describing the database schema.
	FetchSchema(ctx context.Context) (string, error)
}

// Config holds the configuration for the SQL agent.
type Config struct {
	Logger       *slog.Logger
	LLM          LLMClient
	Querier      Querier
	Schema       SchemaFetcher
	SystemPrompt string // operating-domain instruction; defaults to the sales prompt
	MaxAttempts  int    // generation attempts including repairs (default 3)
}

// SQLAgent generates and executes SQL for free-text questions.
type SQLAgent struct {
	cfg Config
	log *slog.Logger
}

// New creates a SQLAgent.
func New(cfg Config) (*SQLAgent, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("agent: LLM client is required")
	}
	if cfg.Querier == nil {
		return nil, fmt.Errorf("agent: querier is required")
	}
	if cfg.Schema == nil {
		return nil, fmt.Errorf("agent: schema fetcher is required")
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SQLAgent{cfg: cfg, log: cfg.Logger}, nil
}

// Resolve answers a free-text question by generating and executing SQL.
// On success it returns a mapping with a "result" field holding the table,
// mirroring the agent-output contract the orchestrator unwraps.
func (a *SQLAgent) Resolve(ctx context.Context, question string) (any, error) {
	schema, err := a.cfg.Schema.FetchSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schema: %w", err)
	}

	prompt := generatePrompt(schema, question)
	var lastErr error

	for attempt := 1; attempt <= a.cfg.MaxAttempts; attempt++ {
		raw, err := a.cfg.LLM.Complete(ctx, a.cfg.SystemPrompt, prompt)
		if err != nil {
			return nil, fmt.Errorf("LLM completion failed: %w", err)
		}

		sql := ExtractSQL(raw)
		if err := validateSQL(sql); err != nil {
			lastErr = err
			a.log.Warn("agent produced invalid SQL", "attempt", attempt, "error", err)
			prompt = repairPrompt(schema, question, sql, err.Error())
			continue
		}

		result, err := a.cfg.Querier.Query(ctx, sql)
		if err != nil {
			lastErr = err
			a.log.Warn("agent query failed, attempting repair", "attempt", attempt, "error", err)
			prompt = repairPrompt(schema, question, sql, err.Error())
			continue
		}

		a.log.Info("agent query succeeded", "attempt", attempt, "rows", result.NumRows())
		return map[string]any{
			"result": result,
			"sql":    sql,
		}, nil
	}

	return nil, fmt.Errorf("agent failed after %d attempts: %w", a.cfg.MaxAttempts, lastErr)
}

// fencePattern matches a fenced code block with an optional language tag.
var fencePattern = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")

// ExtractSQL pulls the SQL statement out of an LLM response, stripping code
// fences and surrounding prose when the model wraps its answer.
func ExtractSQL(response string) string {
	if m := fencePattern.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(response)
}

// validateSQL gates generated statements to read-only queries.
func validateSQL(sql string) error {
	if sql == "" {
		return fmt.Errorf("empty SQL statement")
	}
	head := strings.ToUpper(strings.Fields(sql)[0])
	switch head {
	case "SELECT", "WITH":
		return nil
	}
	return fmt.Errorf("only SELECT statements are allowed, got %s", head)
}
