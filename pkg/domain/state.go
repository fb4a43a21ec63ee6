package domain

// ConversationState is the per-identity snapshot of an active conversation.
// At most one exists per identity at any time; it is owned by the
// conversation store and only mutated under the per-identity lock.
type ConversationState struct {
	// Intent names the CommandDefinition being walked.
	Intent string `json:"intent"`

	// CurrentStep is the id of the active step. Invariant: it always names
	// a step that exists in the intent's step sequence.
	CurrentStep string `json:"current_step"`

	// Collected maps step id to the stored raw response.
	Collected map[string]string `json:"collected"`

	// Retries counts consecutive rejected replies at the current step.
	Retries int `json:"retries,omitempty"`
}

// NewConversationState starts a conversation at the given step.
func NewConversationState(intent, firstStep string) *ConversationState {
	return &ConversationState{
		Intent:      intent,
		CurrentStep: firstStep,
		Collected:   make(map[string]string),
	}
}

// MoveTo advances the conversation to a step and resets the retry counter.
func (s *ConversationState) MoveTo(stepID string) {
	s.CurrentStep = stepID
	s.Retries = 0
}

// Store records a collected response under the step id.
func (s *ConversationState) Store(stepID, value string) {
	if s.Collected == nil {
		s.Collected = make(map[string]string)
	}
	s.Collected[stepID] = value
}
