// File: api/schemas/errors.go
package schemas

import "errors"

// Error categories of a run. Components wrap these with %w so callers can
// classify failures with errors.Is.
var (
	// ErrConfiguration is a missing credential or invalid setting detected
	// before any browser is launched.
	ErrConfiguration = errors.New("configuration error")
	// ErrSession is a browser launch or navigation failure.
	ErrSession = errors.New("session error")
	// ErrExtraction is a failure to snapshot the page structure.
	ErrExtraction = errors.New("page analysis error")
	// ErrPlanning is an unreachable or unparsable reasoning service response.
	ErrPlanning = errors.New("planning error")
	// ErrAction is a single action failure. It is recorded, never propagated.
	ErrAction = errors.New("action error")
	// ErrVerification is a failure inside the verifier. It is converted into a
	// failed verdict.
	ErrVerification = errors.New("verification error")
)

var errorKinds = []struct {
	err  error
	name string
}{
	{ErrConfiguration, "ConfigurationError"},
	{ErrSession, "SessionError"},
	{ErrExtraction, "ExtractionError"},
	{ErrPlanning, "PlanningError"},
	{ErrAction, "ActionError"},
	{ErrVerification, "VerificationError"},
}

// ErrorKind names the category of err, or "InternalError" when it matches
// none of the sentinels.
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "InternalError"
}

// IsFatal reports whether err aborts a run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrAction) && !errors.Is(err, ErrVerification)
}
