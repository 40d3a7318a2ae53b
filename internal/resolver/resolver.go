// Package resolver orchestrates question resolution: template matching,
// query execution, normalization, plot reduction, chart rendering, and the
// generative-agent fallback when the template path fails.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fathomdata/salesdesk/internal/match"
	"github.com/fathomdata/salesdesk/internal/plot"
	"github.com/fathomdata/salesdesk/internal/table"
	"github.com/fathomdata/salesdesk/internal/templates"
)

// Querier executes a SQL string against the warehouse.
type Querier interface {
	Query(ctx context.Context, sql string) (table.Table, error)
}

// Agent resolves a free-text question when no template applies. Its output is
// either a mapping containing a "result" field or a raw result value.
type Agent interface {
	Resolve(ctx context.Context, question string) (any, error)
}

// Source marks which path produced a response.
type Source string

const (
	SourceTemplate Source = "template"
	SourceAgent    Source = "agent"
	SourceError    Source = "error"
)

// Response is the final output handed to the channel adapter. Chart is nil
// when the table was not chartable; rendering failures are non-fatal.
type Response struct {
	Text     string
	Table    table.Table
	Title    string
	Source   Source
	Chart    []byte
	Strategy string
}

// Config holds the resolver's collaborators and knobs.
type Config struct {
	Logger     *slog.Logger
	Repository *templates.Repository
	Querier    Querier
	Agent      Agent

	// Escape sanitizes dynamic values against the channel's markup-reserved
	// characters before interpolation. Defaults to the identity function.
	Escape func(string) string

	// MaxPlotItems caps chart rows (default 10).
	MaxPlotItems int

	// MinMatchScore treats lower-scoring template matches as no-match so they
	// defer to the agent. Zero keeps the always-match behavior.
	MinMatchScore float64
}

// Resolver runs the resolution pipeline. Stateless across requests; only the
// immutable template repository is shared.
type Resolver struct {
	cfg Config
	log *slog.Logger
}

// New creates a Resolver.
func New(cfg Config) (*Resolver, error) {
	if cfg.Querier == nil {
		return nil, fmt.Errorf("resolver: querier is required")
	}
	if cfg.Agent == nil {
		return nil, fmt.Errorf("resolver: agent is required")
	}
	if cfg.Repository == nil {
		cfg.Repository = &templates.Repository{}
	}
	if cfg.Escape == nil {
		cfg.Escape = func(s string) string { return s }
	}
	if cfg.MaxPlotItems <= 0 {
		cfg.MaxPlotItems = plot.DefaultMaxItems
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Resolver{cfg: cfg, log: cfg.Logger}, nil
}

// Resolve answers a question. It always returns a Response: failures on both
// paths produce an error response rather than an error return, so nothing
// escapes to crash the caller on a per-request basis.
func (r *Resolver) Resolve(ctx context.Context, question string) *Response {
	requestID := uuid.NewString()
	start := time.Now()
	log := r.log.With("request_id", requestID)
	log.Info("resolving question", "question", question)

	resp, templateErr := r.resolveTemplate(ctx, question, log)
	if templateErr == nil {
		log.Info("answered via template path", "title", resp.Title, "rows", resp.Table.NumRows(), "duration", time.Since(start))
		return resp
	}
	log.Info("template path failed, falling back to agent", "error", templateErr)

	resp, agentErr := r.resolveAgent(ctx, question, log)
	if agentErr == nil {
		log.Info("answered via agent path", "rows", resp.Table.NumRows(), "duration", time.Since(start))
		return resp
	}
	log.Error("both resolution paths failed", "template_error", templateErr, "agent_error", agentErr)

	return r.errorResponse(templateErr, agentErr)
}

// resolveTemplate runs the match-and-execute path.
func (r *Resolver) resolveTemplate(ctx context.Context, question string, log *slog.Logger) (*Response, error) {
	m, err := match.Best(question, r.cfg.Repository, match.MethodCosine)
	if err != nil {
		return nil, fmt.Errorf("matcher failed: %w", err)
	}
	if m == nil || m.Query == "" {
		return nil, fmt.Errorf("no SQL template found")
	}
	if r.cfg.MinMatchScore > 0 && m.Score < r.cfg.MinMatchScore {
		return nil, fmt.Errorf("best match %q scored %.3f, below threshold %.3f", m.Description, m.Score, r.cfg.MinMatchScore)
	}
	log.Debug("template matched", "description", m.Description, "score", m.Score)

	result, err := r.cfg.Querier.Query(ctx, m.Query)
	if err != nil {
		return nil, fmt.Errorf("template query failed: %w", err)
	}

	tbl := table.Normalize(result)
	esc := r.cfg.Escape
	text := fmt.Sprintf("🔎 Based on similar intent: %s\n\n🧾 Result:\n%s",
		esc(m.Description), FormatBody(tbl, esc))

	return r.withChart(&Response{
		Text:   text,
		Table:  tbl,
		Title:  m.Description,
		Source: SourceTemplate,
	}, log), nil
}

// resolveAgent delegates the raw question to the generative agent.
func (r *Resolver) resolveAgent(ctx context.Context, question string, log *slog.Logger) (*Response, error) {
	raw, err := r.cfg.Agent.Resolve(ctx, question)
	if err != nil {
		return nil, err
	}

	// Agent output is either a mapping with a "result" field or the result
	// value itself.
	if m, ok := raw.(map[string]any); ok {
		if inner, ok := m["result"]; ok {
			raw = inner
		}
	}

	tbl := table.Normalize(raw)
	esc := r.cfg.Escape
	text := fmt.Sprintf("💡 Generated via SQL agent:\n\n🧾 Result:\n%s", FormatBody(tbl, esc))

	return r.withChart(&Response{
		Text:   text,
		Table:  tbl,
		Title:  question,
		Source: SourceAgent,
	}, log), nil
}

// errorResponse reports both captured failures with an empty table and no
// chart attempted.
func (r *Resolver) errorResponse(templateErr, agentErr error) *Response {
	esc := r.cfg.Escape
	return &Response{
		Text: fmt.Sprintf("❌ Both retrieval and agent failed\n\nTemplate error: %s\nAgent error: %s",
			esc(templateErr.Error()), esc(agentErr.Error())),
		Table:  table.Table{},
		Source: SourceError,
	}
}

// withChart applies plot reduction and rendering. Rendering failures degrade
// to a text-only response.
func (r *Resolver) withChart(resp *Response, log *slog.Logger) *Response {
	if resp.Table.Empty() {
		return resp
	}

	spec := plot.SelectForPlot(resp.Table, r.cfg.MaxPlotItems)
	resp.Strategy = spec.Strategy

	img, err := plot.Render(spec.Table, "Results for: "+resp.Title, spec.Strategy)
	if err != nil {
		log.Warn("chart rendering failed, sending text only", "error", err)
		return resp
	}
	resp.Chart = img
	return resp
}
