// Package templates loads the repository of pre-authored query templates that
// the similarity matcher searches before falling back to the generative agent.
package templates

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Template pairs a natural-language description with a parameterless SQL
// query. Templates are immutable once loaded; identity is the index in the
// repository.
type Template struct {
	Description string `yaml:"description"`
	Query       string `yaml:"query"`
}

// Repository is the ordered, read-only set of templates loaded at startup.
type Repository struct {
	Templates []Template
}

// repositoryFile is the on-disk document shape: a top-level "queries"
// sequence. YAML is a superset of JSON, so both formats load.
type repositoryFile struct {
	Queries []Template `yaml:"queries"`
}

// Empty reports whether the repository has no templates.
func (r *Repository) Empty() bool {
	return r == nil || len(r.Templates) == 0
}

// Descriptions returns the description of every template in order.
func (r *Repository) Descriptions() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Templates))
	for _, t := range r.Templates {
		out = append(out, t.Description)
	}
	return out
}

// Load reads the template repository from path. A missing, unreadable, or
// malformed file degrades to an empty repository rather than failing startup;
// the matcher then reports no match for every question.
func Load(path string, log *slog.Logger) *Repository {
	repo, err := load(path)
	if err != nil {
		log.Warn("template repository unavailable, matcher will always defer to agent", "path", path, "error", err)
		return &Repository{}
	}
	log.Info("template repository loaded", "path", path, "templates", len(repo.Templates))
	return repo
}

func load(path string) (*Repository, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template repository: %w", err)
	}

	var doc repositoryFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse template repository: %w", err)
	}
	if doc.Queries == nil {
		return nil, fmt.Errorf("template repository has no queries sequence")
	}

	return &Repository{Templates: doc.Queries}, nil
}
