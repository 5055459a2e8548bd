// Package humastar bridges Huma (REST/OpenAPI) with Datastar (SSE/hypermedia).
//
// It provides:
//   - SSE: Huma streaming → Datastar SSE protocol via [SSE] and [Stream]
//   - Signals: lenient Datastar signal parsing via [Signals] and [SignalsInput]
//   - Rendering: template list/select helpers via [RenderList] and [RenderSelect]
//
// Usage:
//
//	func (h *Handler) Select(ctx context.Context, in *humastar.SignalsInput) (*huma.StreamResponse, error) {
//	    signals, err := in.MustParse()
//	    if err != nil {
//	        return nil, err
//	    }
//	    return humastar.Stream(func(sse humastar.SSE) {
//	        sse.Patch(humastar.RenderList(h.renderer, "site-card", items, "Empty", "Nothing here"), "#site-list")
//	    }), nil
//	}
package humastar

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"
)

// Renderer executes named HTML templates.
type Renderer interface {
	RenderToBuffer(buf *bytes.Buffer, name string, data any) error
}

// Stream returns a Huma StreamResponse that calls fn with a ready SSE helper.
func Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			fn(NewSSE(humaCtx))
		},
	}
}

// ---------------------------------------------------------------------------
// SSE: Huma ↔ Datastar bridge
// ---------------------------------------------------------------------------

// SSE wraps a Datastar SSE generator with convenience methods for inner
// element patching and the page's error signal.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE creates a Datastar SSE helper from a Huma streaming context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch sends HTML to replace inner content at a CSS selector.
func (s SSE) Patch(html, selector string) error {
	return s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
		datastar.WithViewTransitions(),
	)
}

// Error sends an error signal to the UI.
func (s SSE) Error(msg string) error {
	return s.MarshalAndPatchSignals(map[string]any{"error": msg})
}

// Signals sends arbitrary signals to the UI.
func (s SSE) Signals(signals map[string]any) error {
	return s.MarshalAndPatchSignals(signals)
}

// Event dispatches a DOM CustomEvent carrying detail as JSON.
func (s SSE) Event(name string, detail any) error {
	return s.DispatchCustomEvent(name, detail)
}

// ---------------------------------------------------------------------------
// Signals: Datastar signal parsing
// ---------------------------------------------------------------------------

// Signals provides typed access to Datastar signal values. Datastar sends
// all signals as a JSON object in the request body; bound text inputs arrive
// as strings, so the numeric and boolean accessors also parse strings.
type Signals map[string]any

// ParseSignals parses Datastar signals from a raw request body.
func ParseSignals(body []byte) (Signals, error) {
	signals := Signals{}
	if len(bytes.TrimSpace(body)) == 0 {
		return signals, nil
	}
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// String returns a string signal value, or empty string if not found.
func (s Signals) String(key string) string {
	switch v := s[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// IntOK returns an int signal value and whether it was numeric.
// Fractions are truncated.
func (s Signals) IntOK(key string) (int, bool) {
	f, ok := s.FloatOK(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// Int returns an int signal value, or 0 if not found.
func (s Signals) Int(key string) int {
	n, _ := s.IntOK(key)
	return n
}

// FloatOK returns a float64 signal value and whether it was numeric.
func (s Signals) FloatOK(key string) (float64, bool) {
	switch v := s[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

// Float returns a float64 signal value, or 0 if not found.
func (s Signals) Float(key string) float64 {
	f, _ := s.FloatOK(key)
	return f
}

// Bool returns a bool signal value, or false if not found.
func (s Signals) Bool(key string) bool {
	switch v := s[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b || v == "on"
	}
	return false
}

// Has returns true if the signal key exists (even if zero-valued).
func (s Signals) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// ---------------------------------------------------------------------------
// Input types
// ---------------------------------------------------------------------------

// EmptyInput is a shared input struct for handlers with no parameters.
type EmptyInput struct{}

// SignalsInput is an input struct for handlers that receive Datastar signals.
type SignalsInput struct {
	RawBody []byte
}

// MustParse parses signals or returns a Huma 400 error.
func (i *SignalsInput) MustParse() (Signals, error) {
	signals, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	return signals, nil
}

// ---------------------------------------------------------------------------
// Rendering helpers
// ---------------------------------------------------------------------------

// SelectOptionData holds data for rendering a <select> option template.
type SelectOptionData struct {
	Value    string
	Label    string
	Selected bool
}

// RenderList renders items with a named template, or an empty state if none.
func RenderList[T any](r Renderer, tmpl string, items []T, emptyTitle, emptyMsg string) (string, error) {
	var buf bytes.Buffer
	if len(items) == 0 {
		err := r.RenderToBuffer(&buf, "empty-state", map[string]string{
			"Title": emptyTitle, "Message": emptyMsg,
		})
		return buf.String(), err
	}
	for _, item := range items {
		if err := r.RenderToBuffer(&buf, tmpl, item); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// RenderSelect renders <option> elements, with an optional placeholder first.
func RenderSelect(r Renderer, placeholder string, options []SelectOptionData) (string, error) {
	var buf bytes.Buffer
	if placeholder != "" {
		if err := r.RenderToBuffer(&buf, "select-option", SelectOptionData{Label: placeholder}); err != nil {
			return "", err
		}
	}
	for _, opt := range options {
		if err := r.RenderToBuffer(&buf, "select-option", opt); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
