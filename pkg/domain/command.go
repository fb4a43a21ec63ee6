package domain

import "strings"

// CommandKind discriminates the three command shapes the catalog accepts.
type CommandKind string

const (
	// KindSimple replies with a canned response and keeps no state.
	KindSimple CommandKind = "simple"
	// KindConversation walks a step graph collecting free-form answers.
	KindConversation CommandKind = "conversation"
	// KindAPIRequest is a conversation that ends in at least one outbound API call.
	KindAPIRequest CommandKind = "api_request"
)

// Valid reports whether the kind is one of the closed set.
func (k CommandKind) Valid() bool {
	switch k {
	case KindSimple, KindConversation, KindAPIRequest:
		return true
	}
	return false
}

// CommandDefinition is one user-invocable intent. Definitions are immutable
// after catalog load and shared read-only across all identities.
type CommandDefinition struct {
	// Name is the intent identity, unique case-insensitively within a catalog.
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	Kind CommandKind `json:"kind" yaml:"kind"`

	// Samples are the phrases the fuzzy matcher scores incoming text
	// against. The name itself is always an implicit sample.
	Samples []string `json:"samples,omitempty" yaml:"samples,omitempty"`

	// Response is the canned reply for simple commands.
	Response string `json:"response,omitempty" yaml:"response,omitempty"`

	// Steps is the ordered step graph for conversation/api_request commands.
	Steps []StepDefinition `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Step returns the step with the given id.
func (c *CommandDefinition) Step(id string) (*StepDefinition, bool) {
	for i := range c.Steps {
		if c.Steps[i].ID == id {
			return &c.Steps[i], true
		}
	}
	return nil, false
}

// StepAfter returns the default successor of the step with the given id:
// its Next override when set, otherwise the following step in definition
// order. It returns false when no successor exists.
func (c *CommandDefinition) StepAfter(id string) (*StepDefinition, bool) {
	for i := range c.Steps {
		if c.Steps[i].ID == id {
			if next := c.Steps[i].Next; next != "" {
				return c.Step(next)
			}
			if i+1 < len(c.Steps) {
				return &c.Steps[i+1], true
			}
			return nil, false
		}
	}
	return nil, false
}

// FirstStep returns the entry step, or nil for simple commands.
func (c *CommandDefinition) FirstStep() *StepDefinition {
	if len(c.Steps) == 0 {
		return nil
	}
	return &c.Steps[0]
}

// StepDefinition is one question/action unit inside a command.
type StepDefinition struct {
	// ID is unique within the owning command.
	ID string `json:"id" yaml:"id"`

	// Prompt is the template shown when the step becomes active. It may be
	// empty for pure API steps.
	Prompt string `json:"prompt,omitempty" yaml:"prompt,omitempty"`

	// Expect restricts valid replies to these literal tokens. Empty means
	// free-form input is accepted. The tokens double as the option labels
	// handed to the presentation layer.
	Expect []string `json:"expect,omitempty" yaml:"expect,omitempty"`

	// StoreResponse retains the raw reply under this step's id.
	StoreResponse bool `json:"store_response,omitempty" yaml:"store_response,omitempty"`

	// Responses maps a reply token to display text echoed back instead of
	// the raw input.
	Responses map[string]string `json:"responses,omitempty" yaml:"responses,omitempty"`

	// Goto maps a normalized reply token to the next step id, overriding
	// the default successor.
	Goto map[string]string `json:"goto,omitempty" yaml:"goto,omitempty"`

	// Next overrides the definition-order default successor.
	Next string `json:"next,omitempty" yaml:"next,omitempty"`

	// API describes the outbound call executed when this step activates.
	API *APICall `json:"api,omitempty" yaml:"api,omitempty"`

	// ResponseFormat shapes API results into user-facing text.
	ResponseFormat *ResponseFormat `json:"response_format,omitempty" yaml:"response_format,omitempty"`

	// IsFinal ends the conversation once this step completes successfully.
	IsFinal bool `json:"is_final,omitempty" yaml:"is_final,omitempty"`
}

// Accepts reports whether the (already normalized) input satisfies the
// step's expectation set.
func (s *StepDefinition) Accepts(input string) bool {
	if len(s.Expect) == 0 {
		return true
	}
	for _, opt := range s.Expect {
		if strings.EqualFold(strings.TrimSpace(opt), input) {
			return true
		}
	}
	return false
}

// APICall describes an outbound request: method, URL and a payload whose
// string leaves are templates rendered against the collected responses.
type APICall struct {
	Method  string            `json:"method" yaml:"method"`
	URL     string            `json:"url" yaml:"url"`
	Payload map[string]any    `json:"payload,omitempty" yaml:"payload,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// ResponseFormat holds the message templates for an API step.
type ResponseFormat struct {
	SuccessMessage string                `json:"success_message" yaml:"success_message"`
	ErrorMessage   string                `json:"error_message" yaml:"error_message"`
	FormatRules    map[string]FormatRule `json:"format_rules,omitempty" yaml:"format_rules,omitempty"`
}

// FormatRule renders a collection-valued API result: Template is applied
// per item and the rendered items are joined with JoinWith.
type FormatRule struct {
	Template string `json:"template" yaml:"template"`
	JoinWith string `json:"join_with" yaml:"join_with"`
}
