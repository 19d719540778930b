// File: api/schemas/report.go
package schemas

import (
	"encoding/json"
	"time"
)

// ActionStatus is the outcome of a single action.
type ActionStatus string

const (
	StatusSuccess ActionStatus = "success"
	StatusFailed  ActionStatus = "failed"
	StatusSkipped ActionStatus = "skipped"
)

// ActionResult records what happened when one action ran.
type ActionResult struct {
	Action Action
	Status ActionStatus
	// Data holds the extracted payload: a string for single reads, a
	// []SearchResult for list extraction, or the evidence path for screenshots.
	Data  interface{}
	Error string
}

type actionResultView struct {
	Action wireAction   `json:"action" yaml:"action"`
	Status ActionStatus `json:"status" yaml:"status"`
	Data   interface{}  `json:"data,omitempty" yaml:"data,omitempty"`
	Error  string       `json:"error,omitempty" yaml:"error,omitempty"`
}

func (r ActionResult) view() actionResultView {
	v := actionResultView{Status: r.Status, Data: r.Data, Error: r.Error}
	if r.Action != nil {
		v.Action = r.Action.wire()
	}
	return v
}

// MarshalJSON encodes the result with its action in wire form.
func (r ActionResult) MarshalJSON() ([]byte, error) { return json.Marshal(r.view()) }

// MarshalYAML encodes the result with its action in wire form.
func (r ActionResult) MarshalYAML() (interface{}, error) { return r.view(), nil }

// Succeeded reports whether the action completed successfully.
func (r ActionResult) Succeeded() bool { return r.Status == StatusSuccess }

// Evidence is a captured screenshot tied to a run checkpoint.
type Evidence struct {
	ID          string    `json:"id" yaml:"id"`
	Description string    `json:"description" yaml:"description"`
	Timestamp   time.Time `json:"timestamp" yaml:"timestamp"`
	Path        string    `json:"path" yaml:"path"`
}

// VerificationResult is the verdict for a run.
type VerificationResult struct {
	Success bool   `json:"success" yaml:"success"`
	Message string `json:"message" yaml:"message"`
}

// RunStatus is the terminal status of a run.
type RunStatus string

const (
	RunSuccess RunStatus = "success"
	RunFailed  RunStatus = "failed"
	RunError   RunStatus = "error"
)

// Viewport is the effective page size.
type Viewport struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// SessionMetadata describes the browser a run used.
type SessionMetadata struct {
	Viewport      Viewport      `json:"viewport" yaml:"viewport"`
	UserAgent     string        `json:"userAgent" yaml:"user_agent"`
	DeviceProfile DeviceProfile `json:"deviceProfile" yaml:"device_profile"`
}

// ErrorRecord is the diagnostic attached to a run that ended in an error.
type ErrorRecord struct {
	Kind    string `json:"kind" yaml:"kind"`
	Message string `json:"message" yaml:"message"`
	Stack   string `json:"stack,omitempty" yaml:"stack,omitempty"`
}

// RunReport is the terminal artifact of a run.
type RunReport struct {
	RunID        string              `json:"runId" yaml:"run_id"`
	URL          string              `json:"url" yaml:"url"`
	Instructions string              `json:"instructions" yaml:"instructions"`
	Timestamp    time.Time           `json:"timestamp" yaml:"timestamp"`
	Status       RunStatus           `json:"status" yaml:"status"`
	Message      string              `json:"message" yaml:"message"`
	PageTitle    string              `json:"pageTitle" yaml:"page_title"`
	Snapshot     *PageSnapshot       `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Plan         *ActionPlan         `json:"plan,omitempty" yaml:"plan,omitempty"`
	Results      []ActionResult      `json:"results" yaml:"results"`
	SuccessRate  float64             `json:"successRate" yaml:"success_rate"`
	Evidence     []Evidence          `json:"evidence" yaml:"evidence"`
	Verification *VerificationResult `json:"verification,omitempty" yaml:"verification,omitempty"`
	Session      SessionMetadata     `json:"session" yaml:"session"`
	Duration     time.Duration       `json:"durationNs" yaml:"duration"`
	Error        *ErrorRecord        `json:"error,omitempty" yaml:"error,omitempty"`
}

// SuccessRate is the fraction of results that succeeded, or zero for an
// empty plan.
func SuccessRate(results []ActionResult) float64 {
	if len(results) == 0 {
		return 0
	}
	ok := 0
	for _, r := range results {
		if r.Succeeded() {
			ok++
		}
	}
	return float64(ok) / float64(len(results))
}
