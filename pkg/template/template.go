// Package template renders {name} placeholder templates against collected
// conversation data: prompts, outbound API payloads and API response
// formatting.
package template

import (
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{"
	endTag   = "}"
)

// Error reports an unresolved placeholder or a malformed template. It is a
// config defect, not a user error: the step fails with a generic message and
// the details go to the operator log.
type Error struct {
	Name     string // missing placeholder, if that is the cause
	Template string
	Err      error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("template: unresolved placeholder %q in %q", e.Name, e.Template)
	}
	return fmt.Sprintf("template: %v in %q", e.Err, e.Template)
}

func (e *Error) Unwrap() error { return e.Err }

// Render substitutes {name} placeholders from ctx. A placeholder absent from
// ctx fails with *Error rather than emitting an empty string, so a missing
// collected field can never silently produce a broken payload or prompt.
func Render(tmpl string, ctx map[string]any) (string, error) {
	out, err := fasttemplate.ExecuteFuncStringWithErr(tmpl, startTag, endTag,
		func(w io.Writer, tag string) (int, error) {
			val, ok := ctx[tag]
			if !ok {
				return 0, &Error{Name: tag, Template: tmpl}
			}
			return fmt.Fprintf(w, "%v", val)
		})
	if err != nil {
		var terr *Error
		if errors.As(err, &terr) {
			return "", terr
		}
		return "", &Error{Template: tmpl, Err: err}
	}
	return out, nil
}

// RenderStrings is Render over a string-valued context.
func RenderStrings(tmpl string, ctx map[string]string) (string, error) {
	generic := make(map[string]any, len(ctx))
	for k, v := range ctx {
		generic[k] = v
	}
	return Render(tmpl, generic)
}

// RenderPayload renders every string leaf of a (possibly nested) payload
// mapping against ctx. Non-string leaves pass through untouched.
func RenderPayload(payload map[string]any, ctx map[string]string) (map[string]any, error) {
	generic := make(map[string]any, len(ctx))
	for k, v := range ctx {
		generic[k] = v
	}
	rendered, err := renderValue(payload, generic)
	if err != nil {
		return nil, err
	}
	return rendered.(map[string]any), nil
}

func renderValue(value any, ctx map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		return Render(v, ctx)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			rendered, err := renderValue(inner, ctx)
			if err != nil {
				return nil, err
			}
			out[key] = rendered
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, inner := range v {
			rendered, err := renderValue(inner, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil
	default:
		return value, nil
	}
}

// FormatResponse renders an API result into display text using the step's
// response format. Each format rule is evaluated against the result
// collection (the "data" key of a document, or the document itself), item
// templates joined with the rule's separator; the rendered parts then fill
// the success message template.
func FormatResponse(data any, format *domain.ResponseFormat) (string, error) {
	parts := make(map[string]any, len(format.FormatRules))

	for name, rule := range format.FormatRules {
		part, err := formatRule(data, rule, format)
		if err != nil {
			return "", err
		}
		parts[name] = part
	}

	return Render(format.SuccessMessage, parts)
}

func formatRule(data any, rule domain.FormatRule, format *domain.ResponseFormat) (string, error) {
	items := data
	doc, isDoc := data.(map[string]any)
	if isDoc {
		if inner, ok := doc["data"]; ok {
			items = inner
		}
	}

	switch v := items.(type) {
	case []any:
		if len(v) == 0 {
			return emptyFallback(doc, format), nil
		}
		rendered := make([]byte, 0, 64)
		for i, item := range v {
			var line string
			if m, ok := item.(map[string]any); ok {
				var err error
				line, err = Render(rule.Template, m)
				if err != nil {
					return "", err
				}
			} else {
				line = fmt.Sprintf("%v", item)
			}
			if i > 0 {
				rendered = append(rendered, rule.JoinWith...)
			}
			rendered = append(rendered, line...)
		}
		return string(rendered), nil
	case map[string]any:
		return Render(rule.Template, v)
	default:
		if msg := messageOf(doc); msg != "" {
			return msg, nil
		}
		return fmt.Sprintf("%v", items), nil
	}
}

func emptyFallback(doc map[string]any, format *domain.ResponseFormat) string {
	if msg := messageOf(doc); msg != "" {
		return msg
	}
	if format.ErrorMessage != "" {
		return format.ErrorMessage
	}
	return "No data returned."
}

func messageOf(doc map[string]any) string {
	if doc == nil {
		return ""
	}
	if msg, ok := doc["message"].(string); ok {
		return msg
	}
	return ""
}
