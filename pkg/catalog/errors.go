package catalog

import "fmt"

// Error describes a malformed command definition. Catalog errors are fatal:
// they are raised at load time and block startup, never at conversation time.
type Error struct {
	Source string // originating source label (file path, document id)
	Intent string // offending intent name, if known
	Step   string // offending step id, if known
	Reason string
}

func (e *Error) Error() string {
	msg := "catalog: " + e.Reason
	if e.Intent != "" {
		msg += fmt.Sprintf(" (intent %q", e.Intent)
		if e.Step != "" {
			msg += fmt.Sprintf(", step %q", e.Step)
		}
		msg += ")"
	}
	if e.Source != "" {
		msg += " in " + e.Source
	}
	return msg
}
