// Package loam adapts a Loam repository as a catalog source, so command
// definitions can live as versioned Markdown/YAML documents: frontmatter
// carries the command structure and the document body doubles as the reply
// text of simple commands.
package loam

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/loam"
	"github.com/aretw0/parley/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// CommandMetadata is the frontmatter shape of a command document.
type CommandMetadata struct {
	Name     string         `mapstructure:"name"`
	Kind     string         `mapstructure:"kind"`
	Samples  []string       `mapstructure:"samples"`
	Response string         `mapstructure:"response"`
	Steps    []StepMetadata `mapstructure:"steps"`
}

// StepMetadata mirrors domain.StepDefinition with frontmatter keys.
type StepMetadata struct {
	ID             string            `mapstructure:"id"`
	Prompt         string            `mapstructure:"prompt"`
	Expect         []string          `mapstructure:"expect"`
	StoreResponse  bool              `mapstructure:"store_response"`
	Responses      map[string]string `mapstructure:"responses"`
	Goto           map[string]string `mapstructure:"goto"`
	Next           string            `mapstructure:"next"`
	API            *APIMetadata      `mapstructure:"api"`
	ResponseFormat *FormatMetadata   `mapstructure:"response_format"`
	IsFinal        bool              `mapstructure:"is_final"`
}

// APIMetadata mirrors domain.APICall.
type APIMetadata struct {
	Method  string            `mapstructure:"method"`
	URL     string            `mapstructure:"url"`
	Payload map[string]any    `mapstructure:"payload"`
	Headers map[string]string `mapstructure:"headers"`
}

// FormatMetadata mirrors domain.ResponseFormat.
type FormatMetadata struct {
	SuccessMessage string                  `mapstructure:"success_message"`
	ErrorMessage   string                  `mapstructure:"error_message"`
	FormatRules    map[string]RuleMetadata `mapstructure:"format_rules"`
}

// RuleMetadata mirrors domain.FormatRule.
type RuleMetadata struct {
	Template string `mapstructure:"template"`
	JoinWith string `mapstructure:"join_with"`
}

// Source implements ports.CatalogSource over a Loam repository.
type Source struct {
	Repo *loam.TypedRepository[CommandMetadata]
}

// New creates a Loam-backed catalog source.
func New(repo *loam.TypedRepository[CommandMetadata]) *Source {
	return &Source{Repo: repo}
}

// Open initializes a read-only Loam repository at path and wraps it as a
// catalog source.
func Open(path string) (*Source, error) {
	repo, err := loam.Init(path,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[CommandMetadata](repo)), nil
}

// Commands lists every document in the repository as a command definition,
// sorted by name for a deterministic matcher tie-break order.
func (s *Source) Commands(ctx context.Context) ([]domain.CommandDefinition, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	defs := make([]domain.CommandDefinition, 0, len(docs))
	for _, doc := range docs {
		def, err := convert(doc.ID, doc.Data, doc.Content)
		if err != nil {
			return nil, fmt.Errorf("command document %s: %w", doc.ID, err)
		}
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs, nil
}

func convert(docID string, meta CommandMetadata, content string) (domain.CommandDefinition, error) {
	name := meta.Name
	if name == "" {
		name = trimExtension(docID)
	}

	def := domain.CommandDefinition{
		Name:     name,
		Kind:     domain.CommandKind(meta.Kind),
		Samples:  meta.Samples,
		Response: meta.Response,
	}

	// The markdown body is the reply of a simple command when the
	// frontmatter does not set one.
	if def.Response == "" {
		def.Response = strings.TrimSpace(content)
	}

	for _, sm := range meta.Steps {
		step := domain.StepDefinition{
			ID:            sm.ID,
			Prompt:        sm.Prompt,
			Expect:        sm.Expect,
			StoreResponse: sm.StoreResponse,
			Responses:     sm.Responses,
			Goto:          sm.Goto,
			Next:          sm.Next,
			IsFinal:       sm.IsFinal,
		}
		if sm.API != nil {
			step.API = &domain.APICall{
				Method:  sm.API.Method,
				URL:     sm.API.URL,
				Payload: sm.API.Payload,
				Headers: sm.API.Headers,
			}
		}
		if sm.ResponseFormat != nil {
			format := &domain.ResponseFormat{
				SuccessMessage: sm.ResponseFormat.SuccessMessage,
				ErrorMessage:   sm.ResponseFormat.ErrorMessage,
			}
			if len(sm.ResponseFormat.FormatRules) > 0 {
				format.FormatRules = make(map[string]domain.FormatRule, len(sm.ResponseFormat.FormatRules))
				for key, rule := range sm.ResponseFormat.FormatRules {
					format.FormatRules[key] = domain.FormatRule{
						Template: rule.Template,
						JoinWith: rule.JoinWith,
					}
				}
			}
			step.ResponseFormat = format
		}
		def.Steps = append(def.Steps, step)
	}
	return def, nil
}

// Decode decodes a raw frontmatter map into CommandMetadata. Exposed for
// callers that read documents outside a typed repository.
func Decode(raw map[string]any) (CommandMetadata, error) {
	var meta CommandMetadata
	if err := mapstructure.Decode(raw, &meta); err != nil {
		return CommandMetadata{}, fmt.Errorf("failed to decode command metadata: %w", err)
	}
	return meta, nil
}

func trimExtension(id string) string {
	if idx := strings.LastIndex(id, "."); idx > 0 {
		return id[:idx]
	}
	return id
}
