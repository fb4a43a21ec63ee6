package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
)

// Catalog is the immutable, validated index of command definitions. It is
// loaded once and shared read-only across all identities.
type Catalog struct {
	byName map[string]*domain.CommandDefinition // keyed lower-case
	order  []*domain.CommandDefinition          // registration order
}

// Load merges the given sources into one catalog and validates every
// definition. Any malformed record fails the whole load with *Error.
func Load(ctx context.Context, sources ...ports.CatalogSource) (*Catalog, error) {
	c := &Catalog{byName: make(map[string]*domain.CommandDefinition)}

	for _, src := range sources {
		defs, err := src.Commands(ctx)
		if err != nil {
			return nil, fmt.Errorf("catalog source failed: %w", err)
		}
		for i := range defs {
			def := defs[i]
			if err := validate(&def); err != nil {
				return nil, err
			}
			key := strings.ToLower(def.Name)
			if _, dup := c.byName[key]; dup {
				return nil, &Error{Intent: def.Name, Reason: "duplicate intent name"}
			}
			c.byName[key] = &def
			c.order = append(c.order, &def)
		}
	}

	return c, nil
}

// Lookup resolves an intent by name, case-insensitively.
func (c *Catalog) Lookup(name string) (*domain.CommandDefinition, bool) {
	def, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return def, ok
}

// Intents returns all definitions in registration order. The slice is shared;
// callers must not mutate it.
func (c *Catalog) Intents() []*domain.CommandDefinition {
	return c.order
}

// Len returns the number of registered intents.
func (c *Catalog) Len() int {
	return len(c.order)
}

func validate(def *domain.CommandDefinition) error {
	if strings.TrimSpace(def.Name) == "" {
		return &Error{Reason: "intent name is required"}
	}
	if !def.Kind.Valid() {
		return &Error{Intent: def.Name, Reason: fmt.Sprintf("unknown kind %q", def.Kind)}
	}

	switch def.Kind {
	case domain.KindSimple:
		if def.Response == "" {
			return &Error{Intent: def.Name, Reason: "simple command requires a response"}
		}
		if len(def.Steps) > 0 {
			return &Error{Intent: def.Name, Reason: "simple command must not define steps"}
		}
		return nil
	case domain.KindConversation, domain.KindAPIRequest:
		if len(def.Steps) == 0 {
			return &Error{Intent: def.Name, Reason: "step-driven command requires steps"}
		}
	}

	ids := make(map[string]bool, len(def.Steps))
	hasAPI := false
	for i := range def.Steps {
		step := &def.Steps[i]
		if step.ID == "" {
			return &Error{Intent: def.Name, Reason: "step is missing an id"}
		}
		if ids[step.ID] {
			return &Error{Intent: def.Name, Step: step.ID, Reason: "duplicate step id"}
		}
		ids[step.ID] = true
		if step.API != nil {
			hasAPI = true
		}
	}

	for i := range def.Steps {
		if err := validateStep(def, &def.Steps[i], ids); err != nil {
			return err
		}
	}

	if def.Kind == domain.KindAPIRequest && !hasAPI {
		return &Error{Intent: def.Name, Reason: "api_request command requires at least one api step"}
	}
	if def.Kind == domain.KindConversation && hasAPI {
		return &Error{Intent: def.Name, Reason: "conversation command must not define api steps (use kind api_request)"}
	}

	return validateReachability(def)
}

func validateStep(def *domain.CommandDefinition, step *domain.StepDefinition, ids map[string]bool) error {
	for token, target := range step.Goto {
		if !ids[target] {
			return &Error{Intent: def.Name, Step: step.ID,
				Reason: fmt.Sprintf("goto %q targets unknown step %q", token, target)}
		}
	}
	if step.Next != "" && !ids[step.Next] {
		return &Error{Intent: def.Name, Step: step.ID,
			Reason: fmt.Sprintf("next targets unknown step %q", step.Next)}
	}
	if step.API == nil {
		if step.Prompt == "" {
			return &Error{Intent: def.Name, Step: step.ID, Reason: "non-api step requires a prompt"}
		}
		return nil
	}
	if step.API.Method == "" || step.API.URL == "" {
		return &Error{Intent: def.Name, Step: step.ID, Reason: "api step requires method and url"}
	}
	if step.ResponseFormat == nil {
		return &Error{Intent: def.Name, Step: step.ID, Reason: "api step requires a response_format"}
	}
	if step.ResponseFormat.SuccessMessage == "" || step.ResponseFormat.ErrorMessage == "" {
		return &Error{Intent: def.Name, Step: step.ID,
			Reason: "response_format requires success_message and error_message"}
	}
	return nil
}

// validateReachability walks the step graph from the first step. Every step
// must be reachable, and from every step a terminal (final or
// end-of-sequence) must remain reachable, so no forced cycle can trap a
// conversation without a user-chosen exit.
func validateReachability(def *domain.CommandDefinition) error {
	first := def.FirstStep()

	reachable := make(map[string]bool)
	queue := []string{first.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if reachable[id] {
			continue
		}
		reachable[id] = true
		for _, next := range successors(def, id) {
			if !reachable[next] {
				queue = append(queue, next)
			}
		}
	}

	terminating := terminatingSet(def)
	for i := range def.Steps {
		step := &def.Steps[i]
		if !reachable[step.ID] {
			return &Error{Intent: def.Name, Step: step.ID, Reason: "step is unreachable from the first step"}
		}
		if !terminating[step.ID] {
			return &Error{Intent: def.Name, Step: step.ID, Reason: "no terminal step reachable (forced cycle)"}
		}
	}
	return nil
}

func successors(def *domain.CommandDefinition, id string) []string {
	step, ok := def.Step(id)
	if !ok {
		return nil
	}
	var out []string
	if next, ok := def.StepAfter(id); ok {
		out = append(out, next.ID)
	}
	for _, target := range step.Goto {
		out = append(out, target)
	}
	return out
}

// terminatingSet computes, by fixpoint, the steps from which a terminal is
// reachable. Terminals are final steps and steps with no successor at all
// (the conversation completes by falling off the sequence).
func terminatingSet(def *domain.CommandDefinition) map[string]bool {
	set := make(map[string]bool, len(def.Steps))
	for i := range def.Steps {
		step := &def.Steps[i]
		if step.IsFinal || len(successors(def, step.ID)) == 0 {
			set[step.ID] = true
		}
	}
	for changed := true; changed; {
		changed = false
		for i := range def.Steps {
			id := def.Steps[i].ID
			if set[id] {
				continue
			}
			for _, next := range successors(def, id) {
				if set[next] {
					set[id] = true
					changed = true
					break
				}
			}
		}
	}
	return set
}
