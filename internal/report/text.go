package report

import (
	"fmt"
	"io"

	"github.com/loykin/apismoke/internal/common"
	"github.com/loykin/apismoke/internal/scenario"
)

const (
	textHeader = "--- Starting API Tests ---"
	textFooter = "--- All Tests Completed ---"
)

// Text prints the console report:
//
//	--- Starting API Tests ---
//	<step name>: PASSED
//	<step name>: FAILED
//	  Request Body: <json>
//	  Expected: <expected>, Got: <got>
//	  Reason: <failure kind>: <detail>
//	  Response Body: <raw body>
//	<abort line, aborted runs only>
//	--- All Tests Completed ---          (runs that reached the end only)
type Text struct {
	w      io.Writer
	masker *common.Masker
	color  bool
	err    error
}

// NewText returns a Text reporter writing to w.
func NewText(w io.Writer, opts Options) *Text {
	return &Text{w: w, masker: opts.Masker, color: opts.Color}
}

func (t *Text) Started(*scenario.Outcome) {
	t.println(textHeader)
}

func (t *Text) Step(res scenario.StepResult) {
	if res.Passed {
		t.println(res.Name + ": " + common.Colorize(t.color, common.Green, "PASSED"))
		return
	}
	t.println(res.Name + ": " + common.Colorize(t.color, common.Red, "FAILED"))
	if len(res.RequestBody) > 0 {
		t.println("  Request Body: " + mask(t.masker, string(res.RequestBody)))
	}
	if res.Expected != "" || res.Got != "" {
		t.println(fmt.Sprintf("  Expected: %s, Got: %s", res.Expected, res.Got))
	}
	if res.Failure != scenario.FailureNone {
		reason := res.Failure.String()
		if res.Detail != "" {
			reason += ": " + mask(t.masker, res.Detail)
		}
		t.println("  Reason: " + reason)
	}
	if res.ResponseBody != "" {
		t.println("  Response Body: " + mask(t.masker, res.ResponseBody))
	}
}

// Finished prints the abort line for an aborted run and the footer only for a
// run that reached the end of the chain.
func (t *Text) Finished(o *scenario.Outcome) {
	if o == nil {
		return
	}
	if o.Final == scenario.Aborted {
		if last, ok := o.Last(); ok {
			if msg := scenario.AbortMessage(last.State); msg != "" {
				t.println(common.Colorize(t.color, common.Yellow, msg))
			}
		}
		return
	}
	t.println(textFooter)
}

// Err returns the first write error, if any.
func (t *Text) Err() error {
	return t.err
}

func (t *Text) println(line string) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintln(t.w, line)
}
