package scenario

import (
	"time"
)

// State is a position in the scenario chain.
type State int

const (
	Registering State = iota
	LoggingIn
	AddingProduct
	UpdatingQuantity
	ListingProducts
	Done
	Aborted
)

func (s State) String() string {
	switch s {
	case Registering:
		return "registering"
	case LoggingIn:
		return "logging_in"
	case AddingProduct:
		return "adding_product"
	case UpdatingQuantity:
		return "updating_quantity"
	case ListingProducts:
		return "listing_products"
	case Done:
		return "done"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further step follows s.
func (s State) Terminal() bool {
	return s == Done || s == Aborted
}

// FailureKind classifies why a step failed.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailurePreconditionMissing
	FailureUnexpectedStatus
	FailureMissingField
	FailureMalformedBody
	FailureNotFound
	FailureValueMismatch
	// FailureTransport covers connection errors and timeouts: no HTTP response was read.
	FailureTransport
	// FailureRequestBuild means the request payload could not be encoded.
	FailureRequestBuild
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailurePreconditionMissing:
		return "precondition missing"
	case FailureUnexpectedStatus:
		return "unexpected status"
	case FailureMissingField:
		return "missing field"
	case FailureMalformedBody:
		return "malformed body"
	case FailureNotFound:
		return "not found"
	case FailureValueMismatch:
		return "value mismatch"
	case FailureTransport:
		return "transport error"
	case FailureRequestBuild:
		return "request build error"
	default:
		return "unknown"
	}
}

// StepResult records the outcome of one step.
type StepResult struct {
	Name   string
	State  State
	Passed bool
	// Failure is FailureNone when Passed.
	Failure  FailureKind
	Expected string
	Got      string
	// RequestBody is the exact JSON sent, nil for requests without a body.
	RequestBody  []byte
	ResponseBody string
	// StatusCode is zero when no response was received.
	StatusCode int
	Detail     string
	Duration   time.Duration
}

// Session carries precondition values between steps of one run.
type Session struct {
	AccessToken string
	ProductID   string
}

// Outcome is the full record of one run.
type Outcome struct {
	RunID      string
	BaseURL    string
	Results    []StepResult
	Final      State
	Session    Session
	StartedAt  time.Time
	FinishedAt time.Time
}

// Passed reports whether the scenario reached Done with every step passing.
func (o *Outcome) Passed() bool {
	if o == nil || o.Final != Done || len(o.Results) == 0 {
		return false
	}
	for _, r := range o.Results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// Failed returns the failed results in execution order.
func (o *Outcome) Failed() []StepResult {
	var out []StepResult
	for _, r := range o.Results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// Last returns the most recent result, or false when nothing ran.
func (o *Outcome) Last() (StepResult, bool) {
	if len(o.Results) == 0 {
		return StepResult{}, false
	}
	return o.Results[len(o.Results)-1], true
}

// Observer receives scenario progress as it happens.
type Observer interface {
	Started(o *Outcome)
	Step(res StepResult)
	Finished(o *Outcome)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) Started(*Outcome)  {}
func (NopObserver) Step(StepResult)   {}
func (NopObserver) Finished(*Outcome) {}
