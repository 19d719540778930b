// File: api/schemas/plan.go
package schemas

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ActionType names an action variant on the wire.
type ActionType string

const (
	ActionClick      ActionType = "click"
	ActionFill       ActionType = "fill"
	ActionSelect     ActionType = "select"
	ActionSubmit     ActionType = "submit"
	ActionExtract    ActionType = "extract"
	ActionWait       ActionType = "wait"
	ActionNavigate   ActionType = "navigate"
	ActionScreenshot ActionType = "screenshot"
)

// PageTarget is the literal target used by actions that apply to the whole page.
const PageTarget = "page"

const (
	extractListValue = "list"
	waitVisibleValue = "visible"
	defaultWaitDelay = time.Second
	defaultShotLabel = "action"
)

// Action is one step of an ActionPlan. The set of implementations is closed;
// callers switch on the concrete type.
type Action interface {
	Type() ActionType
	Target() string
	Describe() string
	wire() wireAction
}

// ClickAction clicks the first element matching Selector.
type ClickAction struct {
	Selector    string
	Description string
}

// FillAction types Value into the element matching Selector.
type FillAction struct {
	Selector    string
	Value       string
	Description string
}

// SelectAction chooses Value in a select element.
type SelectAction struct {
	Selector    string
	Value       string
	Description string
}

// SubmitAction submits the form matching Selector.
type SubmitAction struct {
	Selector    string
	Description string
}

// ExtractAction reads content. Mode "list" collects every match as a search
// result; any other mode reads the text of the first match.
type ExtractAction struct {
	Selector    string
	Mode        string
	Description string
}

// IsList reports whether the extraction collects a list of results.
func (a ExtractAction) IsList() bool { return strings.EqualFold(a.Mode, extractListValue) }

// WaitAction either waits for Selector to become visible or sleeps for Delay.
type WaitAction struct {
	Selector    string
	Visible     bool
	Delay       time.Duration
	Description string
}

// NavigateAction loads URL in the current tab.
type NavigateAction struct {
	Selector    string
	URL         string
	Description string
}

// ScreenshotAction captures full-page evidence tagged with Label.
type ScreenshotAction struct {
	Selector    string
	Label       string
	Description string
}

// UnknownAction preserves an action type the executor does not support.
type UnknownAction struct {
	RawType     string
	Selector    string
	Value       string
	HasValue    bool
	Description string
}

func (ClickAction) Type() ActionType      { return ActionClick }
func (FillAction) Type() ActionType       { return ActionFill }
func (SelectAction) Type() ActionType     { return ActionSelect }
func (SubmitAction) Type() ActionType     { return ActionSubmit }
func (ExtractAction) Type() ActionType    { return ActionExtract }
func (WaitAction) Type() ActionType       { return ActionWait }
func (NavigateAction) Type() ActionType   { return ActionNavigate }
func (ScreenshotAction) Type() ActionType { return ActionScreenshot }
func (a UnknownAction) Type() ActionType  { return ActionType(a.RawType) }

func (a ClickAction) Target() string      { return a.Selector }
func (a FillAction) Target() string       { return a.Selector }
func (a SelectAction) Target() string     { return a.Selector }
func (a SubmitAction) Target() string     { return a.Selector }
func (a ExtractAction) Target() string    { return a.Selector }
func (a WaitAction) Target() string       { return a.Selector }
func (a NavigateAction) Target() string   { return a.Selector }
func (a ScreenshotAction) Target() string { return a.Selector }
func (a UnknownAction) Target() string    { return a.Selector }

func (a ClickAction) Describe() string      { return a.Description }
func (a FillAction) Describe() string       { return a.Description }
func (a SelectAction) Describe() string     { return a.Description }
func (a SubmitAction) Describe() string     { return a.Description }
func (a ExtractAction) Describe() string    { return a.Description }
func (a WaitAction) Describe() string       { return a.Description }
func (a NavigateAction) Describe() string   { return a.Description }
func (a ScreenshotAction) Describe() string { return a.Description }
func (a UnknownAction) Describe() string    { return a.Description }

// ScreenshotID is the evidence id for the capture. It falls back to "action".
func (a ScreenshotAction) ScreenshotID() string {
	if strings.TrimSpace(a.Label) == "" {
		return defaultShotLabel
	}
	return a.Label
}

// -- Wire format --

// wireValue is the loosely typed "value" field. The reasoning service emits
// strings, numbers or null.
type wireValue struct {
	text string
	set  bool
}

func stringValue(s string) wireValue { return wireValue{text: s, set: true} }

func (v *wireValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = wireValue{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = stringValue(s)
		return nil
	}
	// Numbers, booleans and structured values are kept as their raw text.
	*v = stringValue(string(b))
	return nil
}

func (v wireValue) MarshalJSON() ([]byte, error) {
	if !v.set {
		return []byte("null"), nil
	}
	return json.Marshal(v.text)
}

func (v wireValue) MarshalYAML() (interface{}, error) {
	if !v.set {
		return nil, nil
	}
	return v.text, nil
}

type wireAction struct {
	Type        string    `json:"type" yaml:"type"`
	Target      string    `json:"target" yaml:"target"`
	Value       wireValue `json:"value" yaml:"value"`
	Description string    `json:"description" yaml:"description"`
}

func (a ClickAction) wire() wireAction {
	return wireAction{Type: string(ActionClick), Target: a.Selector, Description: a.Description}
}

func (a FillAction) wire() wireAction {
	return wireAction{Type: string(ActionFill), Target: a.Selector, Value: stringValue(a.Value), Description: a.Description}
}

func (a SelectAction) wire() wireAction {
	return wireAction{Type: string(ActionSelect), Target: a.Selector, Value: stringValue(a.Value), Description: a.Description}
}

func (a SubmitAction) wire() wireAction {
	return wireAction{Type: string(ActionSubmit), Target: a.Selector, Description: a.Description}
}

func (a ExtractAction) wire() wireAction {
	w := wireAction{Type: string(ActionExtract), Target: a.Selector, Description: a.Description}
	if a.Mode != "" {
		w.Value = stringValue(a.Mode)
	}
	return w
}

func (a WaitAction) wire() wireAction {
	w := wireAction{Type: string(ActionWait), Target: a.Selector, Description: a.Description}
	if a.Visible {
		w.Value = stringValue(waitVisibleValue)
	} else {
		w.Value = stringValue(strconv.FormatInt(a.Delay.Milliseconds(), 10))
	}
	return w
}

func (a NavigateAction) wire() wireAction {
	return wireAction{Type: string(ActionNavigate), Target: a.Selector, Value: stringValue(a.URL), Description: a.Description}
}

func (a ScreenshotAction) wire() wireAction {
	w := wireAction{Type: string(ActionScreenshot), Target: a.Selector, Description: a.Description}
	if a.Label != "" {
		w.Value = stringValue(a.Label)
	}
	return w
}

func (a UnknownAction) wire() wireAction {
	w := wireAction{Type: a.RawType, Target: a.Selector, Description: a.Description}
	if a.HasValue {
		w.Value = stringValue(a.Value)
	}
	return w
}

// decode maps a wire action onto its variant. It never fails: unsupported
// types become UnknownAction.
func (w wireAction) decode() Action {
	target := strings.TrimSpace(w.Target)
	value := strings.TrimSpace(w.Value.text)

	switch ActionType(strings.ToLower(strings.TrimSpace(w.Type))) {
	case ActionClick:
		return ClickAction{Selector: target, Description: w.Description}
	case ActionFill:
		// Keep the literal value; leading or trailing spaces may be intentional.
		return FillAction{Selector: target, Value: w.Value.text, Description: w.Description}
	case ActionSelect:
		return SelectAction{Selector: target, Value: value, Description: w.Description}
	case ActionSubmit:
		return SubmitAction{Selector: target, Description: w.Description}
	case ActionExtract:
		return ExtractAction{Selector: target, Mode: strings.ToLower(value), Description: w.Description}
	case ActionWait:
		if strings.EqualFold(value, waitVisibleValue) {
			return WaitAction{Selector: target, Visible: true, Description: w.Description}
		}
		return WaitAction{Selector: target, Delay: parseDelay(value), Description: w.Description}
	case ActionNavigate:
		url := value
		if url == "" && target != PageTarget {
			url = target
		}
		return NavigateAction{Selector: target, URL: url, Description: w.Description}
	case ActionScreenshot:
		return ScreenshotAction{Selector: target, Label: value, Description: w.Description}
	default:
		return UnknownAction{
			RawType:     w.Type,
			Selector:    target,
			Value:       w.Value.text,
			HasValue:    w.Value.set,
			Description: w.Description,
		}
	}
}

// parseDelay reads a millisecond delay, falling back to one second.
func parseDelay(value string) time.Duration {
	if value == "" {
		return defaultWaitDelay
	}
	ms, err := strconv.ParseFloat(value, 64)
	if err != nil || ms < 0 {
		return defaultWaitDelay
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// ActionList is an ordered list of actions with wire-format encoding.
type ActionList []Action

// UnmarshalJSON decodes wire actions, tolerating unknown types.
func (l *ActionList) UnmarshalJSON(b []byte) error {
	var raw []wireAction
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decoding actions: %w", err)
	}
	out := make(ActionList, 0, len(raw))
	for _, w := range raw {
		out = append(out, w.decode())
	}
	*l = out
	return nil
}

func (l ActionList) toWire() []wireAction {
	out := make([]wireAction, 0, len(l))
	for _, a := range l {
		if a == nil {
			continue
		}
		out = append(out, a.wire())
	}
	return out
}

// MarshalJSON encodes the list in wire form.
func (l ActionList) MarshalJSON() ([]byte, error) { return json.Marshal(l.toWire()) }

// MarshalYAML encodes the list in wire form.
func (l ActionList) MarshalYAML() (interface{}, error) { return l.toWire(), nil }

// ActionPlan is the reasoning service's translation of instructions into
// browser steps. It is untrusted input.
type ActionPlan struct {
	Interpretation  string     `json:"interpretation" yaml:"interpretation"`
	Actions         ActionList `json:"actions" yaml:"actions"`
	ExpectedOutcome string     `json:"expectedOutcome" yaml:"expected_outcome"`
}

// MarshalAction returns the wire form of a single action.
func MarshalAction(a Action) ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	return json.Marshal(a.wire())
}

// UnmarshalAction decodes a single wire action.
func UnmarshalAction(b []byte) (Action, error) {
	var w wireAction
	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("decoding action: %w", err)
	}
	return w.decode(), nil
}
