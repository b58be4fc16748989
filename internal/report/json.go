package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/loykin/apismoke/internal/common"
	"github.com/loykin/apismoke/internal/scenario"
)

// event is one JSON line. Fields not relevant to the event kind are omitted.
type event struct {
	Event        string     `json:"event"`
	RunID        string     `json:"run_id,omitempty"`
	BaseURL      string     `json:"base_url,omitempty"`
	Time         *time.Time `json:"time,omitempty"`
	Name         string     `json:"name,omitempty"`
	State        string     `json:"state,omitempty"`
	Passed       *bool      `json:"passed,omitempty"`
	Failure      string     `json:"failure,omitempty"`
	Expected     string     `json:"expected,omitempty"`
	Got          string     `json:"got,omitempty"`
	StatusCode   int        `json:"status_code,omitempty"`
	DurationMS   *int64     `json:"duration_ms,omitempty"`
	Detail       string     `json:"detail,omitempty"`
	RequestBody  string     `json:"request_body,omitempty"`
	ResponseBody string     `json:"response_body,omitempty"`
	FinalState   string     `json:"final_state,omitempty"`
	Steps        *int       `json:"steps,omitempty"`
	Abort        string     `json:"abort,omitempty"`
}

// JSON writes one object per line: a "started" event, one "step" event per
// result and a closing "finished" event.
type JSON struct {
	enc    *json.Encoder
	masker *common.Masker
	runID  string
	err    error
}

// NewJSON returns a JSON lines reporter writing to w.
func NewJSON(w io.Writer, opts Options) *JSON {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSON{enc: enc, masker: opts.Masker}
}

func (j *JSON) Started(o *scenario.Outcome) {
	j.runID = o.RunID
	started := o.StartedAt
	j.write(event{Event: "started", RunID: o.RunID, BaseURL: o.BaseURL, Time: &started})
}

func (j *JSON) Step(res scenario.StepResult) {
	passed := res.Passed
	ms := res.Duration.Milliseconds()
	ev := event{
		Event:        "step",
		RunID:        j.runID,
		Name:         res.Name,
		State:        res.State.String(),
		Passed:       &passed,
		Expected:     res.Expected,
		Got:          res.Got,
		StatusCode:   res.StatusCode,
		DurationMS:   &ms,
		Detail:       mask(j.masker, res.Detail),
		RequestBody:  mask(j.masker, string(res.RequestBody)),
		ResponseBody: mask(j.masker, res.ResponseBody),
	}
	if !res.Passed {
		ev.Failure = res.Failure.String()
	}
	j.write(ev)
}

func (j *JSON) Finished(o *scenario.Outcome) {
	passed := o.Passed()
	steps := len(o.Results)
	finished := o.FinishedAt
	ev := event{
		Event:      "finished",
		RunID:      o.RunID,
		Time:       &finished,
		Passed:     &passed,
		FinalState: o.Final.String(),
		Steps:      &steps,
	}
	if o.Final == scenario.Aborted {
		if last, ok := o.Last(); ok {
			ev.Abort = scenario.AbortMessage(last.State)
		}
	}
	j.write(ev)
}

// Err returns the first encoding or write error, if any.
func (j *JSON) Err() error {
	return j.err
}

func (j *JSON) write(ev event) {
	if j.err != nil {
		return
	}
	j.err = j.enc.Encode(ev)
}
