package scenario

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/loykin/apismoke/internal/common"
	"github.com/loykin/apismoke/internal/httpc"
)

// Runner executes the fixed scenario against one service.
type Runner struct {
	client   *httpc.Httpc
	fixture  Fixture
	observer Observer
	runID    func() string
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithObserver sets the observer that receives progress events.
func WithObserver(o Observer) Option {
	return func(r *Runner) {
		if o != nil {
			r.observer = o
		}
	}
}

// WithRunID fixes the run id instead of generating a random UUID.
func WithRunID(id string) Option {
	return func(r *Runner) {
		r.runID = func() string { return id }
	}
}

// NewRunner returns a Runner that sends fixture values through client.
func NewRunner(client *httpc.Httpc, fixture Fixture, opts ...Option) *Runner {
	r := &Runner{
		client:   client,
		fixture:  fixture,
		observer: NopObserver{},
		runID:    uuid.NewString,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run is the mutable state of one Run call.
type run struct {
	*Runner
	out     *Outcome
	session Session
	plain   *resty.Client
	authed  *resty.Client
	logger  *common.Logger
}

// Run executes every step in order and returns the outcome. It never fails:
// transport and decoding problems end up as failed StepResults.
func (r *Runner) Run(ctx context.Context) *Outcome {
	return r.runFrom(ctx, Registering, Session{})
}

func (r *Runner) runFrom(ctx context.Context, from State, session Session) *Outcome {
	if ctx == nil {
		ctx = context.Background()
	}
	out := &Outcome{RunID: r.runID(), BaseURL: r.client.BaseURL, StartedAt: r.now()}
	rn := &run{
		Runner: r,
		out:    out,
		plain:  r.client.New(),
		logger: common.GetLogger().WithComponent("scenario").WithRun(out.RunID),
	}
	if session.AccessToken != "" {
		rn.setToken(ctx, session.AccessToken)
	}
	rn.session.ProductID = session.ProductID

	r.observer.Started(out)
	rn.logger.Info("scenario started", "base_url", out.BaseURL)

	state := from
	for !state.Terminal() {
		l, ok := linkFor(state)
		if !ok {
			state = Aborted
			break
		}
		stepLogger := rn.logger.WithStep(l.name)

		if err := l.guard(&rn.session); err != nil {
			res := fail(begin(l, nil, "precondition values present"), FailurePreconditionMissing, "missing", err.Error())
			rn.record(res)
			stepLogger.Error("step precondition missing", "error", err)
			state = Aborted
			break
		}

		start := r.now()
		res := elapsed(l.step(rn, ctx, l), start)
		rn.record(res)
		if res.Passed {
			stepLogger.Info("step passed", "status_code", res.StatusCode, "duration", res.Duration)
		} else {
			stepLogger.Warn("step failed",
				"failure", res.Failure.String(),
				"status_code", res.StatusCode,
				"detail", res.Detail,
				"duration", res.Duration)
		}
		state = Next(state, res.Passed)
	}

	out.Final = state
	out.Session = rn.session
	out.FinishedAt = r.now()
	rn.logger.Info("scenario finished", "final_state", state.String(), "passed", out.Passed(), "steps", len(out.Results))
	r.observer.Finished(out)
	return out
}

func (rn *run) record(res StepResult) {
	rn.out.Results = append(rn.out.Results, res)
	rn.observer.Step(res)
}

// setToken stores the access token and builds the bearer client that presents
// it, unchanged, on every later request.
func (rn *run) setToken(ctx context.Context, token string) {
	rn.session.AccessToken = token
	rn.authed = rn.client.NewWithBearer(ctx, token)
}
