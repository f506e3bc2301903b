package workflow

import "fmt"

// ErrorKind classifies workflow failures by their recovery path.
type ErrorKind string

const (
	// KindUpstreamUnavailable: the league authority is unreachable or
	// unparseable. No decision is produced; squad data is never fabricated.
	KindUpstreamUnavailable ErrorKind = "UPSTREAM_UNAVAILABLE"
	// KindSourceDegraded: one intelligence source failed. The run continues
	// without it; this kind only appears in warnings, never aborts.
	KindSourceDegraded ErrorKind = "SOURCE_DEGRADED"
	// KindClassificationAmbiguous: a signal's player name could not be
	// matched above threshold. The signal is dropped.
	KindClassificationAmbiguous ErrorKind = "CLASSIFICATION_AMBIGUOUS"
	// KindValidationFailure: the rules engine rejected a squad or transfer
	// that should have been legal. A bug condition.
	KindValidationFailure ErrorKind = "VALIDATION_FAILURE"
	// KindPredictionGap: the predictor did not cover every squad member.
	// The run refuses to emit a decision.
	KindPredictionGap ErrorKind = "PREDICTION_GAP"
	// KindRepositoryConflict: a concurrent run holds the gameweek lock or a
	// transactional retry failed.
	KindRepositoryConflict ErrorKind = "REPOSITORY_CONFLICT"
	// KindChipUnavailable: a chip was requested outside its window.
	KindChipUnavailable ErrorKind = "CHIP_UNAVAILABLE"
)

// Error is the structured workflow failure surfaced to callers.
type Error struct {
	Kind      ErrorKind
	Component string
	Context   map[string]interface{}
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s in %s", e.Kind, e.Component)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind ErrorKind, component string, err error, kv ...interface{}) *Error {
	context := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		context[key] = kv[i+1]
	}
	return &Error{Kind: kind, Component: component, Context: context, Err: err}
}
