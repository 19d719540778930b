package schemas

import (
	"context"
	"time"
)

// -- Reasoning Service --

// ModelTier selects a model class from the router.
type ModelTier string

const (
	TierFast     ModelTier = "fast"
	TierPowerful ModelTier = "powerful"
)

// GenerationOptions tunes a single generation call. A nil Temperature keeps
// the model default; zero is a valid deterministic setting.
type GenerationOptions struct {
	Temperature     *float64
	ForceJSONFormat bool
	TopP            float64
	TopK            int
}

// Temperature returns a pointer for GenerationOptions.Temperature.
func Temperature(v float64) *float64 { return &v }

// GenerationRequest is one request to the reasoning service.
type GenerationRequest struct {
	SystemPrompt string
	UserPrompt   string
	Tier         ModelTier
	Options      GenerationOptions
}

// LLMClient is the reasoning service boundary. One call is one
// request/response exchange.
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
	Close() error
}

// -- Browser --

// Page is the set of DOM primitives the pipeline runs against. Selectors are
// standard CSS selectors.
type Page interface {
	// HTML returns the serialized document.
	HTML(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	// BodyText returns the rendered text of the document body.
	BodyText(ctx context.Context) (string, error)

	WaitPresent(ctx context.Context, selector string, timeout time.Duration) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	SelectOption(ctx context.Context, selector, value string) error
	// SubmitForm submits the form matching selector, or the form that
	// contains it, without clicking anything.
	SubmitForm(ctx context.Context, selector string) error
	// TextContent reads the text of the first match. found is false when no
	// element matches.
	TextContent(ctx context.Context, selector string) (text string, found bool, err error)

	Navigate(ctx context.Context, url string) error
	// URL returns the address of the current document after redirects.
	URL(ctx context.Context) (string, error)
	// Screenshot captures the full page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	Metadata(ctx context.Context) (SessionMetadata, error)
}

// Session is an exclusive browser bound to one run. Close is safe to call
// more than once and never fails loudly.
type Session interface {
	Page
	ID() string
	Close(ctx context.Context)
}

// SessionOpener launches a browser, prepares the page and navigates to the
// request's target.
type SessionOpener interface {
	Open(ctx context.Context, req RunRequest) (Session, error)
}

// -- Job Registry --

// JobStatus is the lifecycle state of a submitted run.
type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobSuccess JobStatus = "success"
	JobFailed  JobStatus = "failed"
	JobError   JobStatus = "error"
)

// JobRecord is what the status boundary returns for a run id.
type JobRecord struct {
	ID        string       `json:"jobId"`
	Status    JobStatus    `json:"status"`
	Request   RunRequest   `json:"request"`
	Report    *RunReport   `json:"report,omitempty"`
	Error     *ErrorRecord `json:"error,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// JobRegistry stores job records keyed by run id.
type JobRegistry interface {
	Put(record JobRecord)
	// Get returns false for an unknown id.
	Get(id string) (JobRecord, bool)
}
