package report

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/loykin/apismoke/internal/common"
	"github.com/loykin/apismoke/internal/httpc"
	"github.com/loykin/apismoke/internal/inventorytest"
	"github.com/loykin/apismoke/internal/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func abortedAtLogin() *scenario.Outcome {
	return &scenario.Outcome{
		RunID:   "r1",
		BaseURL: "http://localhost:3000",
		Final:   scenario.Aborted,
		Results: []scenario.StepResult{
			{Name: "User Registration", State: scenario.Registering, Passed: true, StatusCode: 409, Got: "409", Expected: "201 or 409"},
			{
				Name:         "Login Test",
				State:        scenario.LoggingIn,
				Failure:      scenario.FailureUnexpectedStatus,
				Expected:     "200 with access_token",
				Got:          "401",
				StatusCode:   401,
				RequestBody:  []byte(`{"username":"puja","password":"mypassword"}`),
				ResponseBody: `{"message":"Invalid username or password"}`,
				Detail:       "status 401 not in [200]",
				Duration:     15 * time.Millisecond,
			},
		},
	}
}

func replay(o scenario.Observer, out *scenario.Outcome) {
	o.Started(out)
	for _, r := range out.Results {
		o.Step(r)
	}
	o.Finished(out)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = ParseFormat(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestText_AbortedRun(t *testing.T) {
	var buf bytes.Buffer
	replay(NewText(&buf, Options{}), abortedAtLogin())

	want := strings.Join([]string{
		"--- Starting API Tests ---",
		"User Registration: PASSED",
		"Login Test: FAILED",
		`  Request Body: {"username":"puja","password":"mypassword"}`,
		"  Expected: 200 with access_token, Got: 401",
		"  Reason: unexpected status: status 401 not in [200]",
		`  Response Body: {"message":"Invalid username or password"}`,
		"Login failed. Skipping further tests.",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
	assert.NotContains(t, buf.String(), "--- All Tests Completed ---")
}

func TestText_MasksCredentials(t *testing.T) {
	var buf bytes.Buffer
	replay(NewText(&buf, Options{Masker: common.NewMasker()}), abortedAtLogin())

	out := buf.String()
	assert.NotContains(t, out, "mypassword")
	assert.Contains(t, out, `"password":"`+common.MaskedValue+`"`)

	cases := []struct {
		name   string
		body   string
		secret string
	}{
		{"spaces", `{"username":"puja","password":"correct horse battery"}`, "horse battery"},
		{"comma", `{"username":"puja","password":"p@,ssw0rd"}`, "ssw0rd"},
		{"escaped quote", `{"username":"puja","password":"ab\"cdSECRET"}`, "cdSECRET"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewText(&buf, Options{Masker: common.NewMasker()}).Step(scenario.StepResult{
				Name:         "Login Test",
				State:        scenario.LoggingIn,
				Failure:      scenario.FailureUnexpectedStatus,
				RequestBody:  []byte(c.body),
				ResponseBody: `{"message":"Invalid username or password"}`,
				Expected:     "200 with access_token",
				Got:          "401",
			})
			assert.NotContains(t, buf.String(), c.secret)
			assert.Contains(t, buf.String(), `  Request Body: {"username":"puja","password":"`+common.MaskedValue+`"}`)
		})
	}
}

func TestText_Colors(t *testing.T) {
	var buf bytes.Buffer
	replay(NewText(&buf, Options{Color: true}), abortedAtLogin())

	assert.Contains(t, buf.String(), "User Registration: "+common.Green+"PASSED"+common.Reset)
	assert.Contains(t, buf.String(), "Login Test: "+common.Red+"FAILED"+common.Reset)
}

func TestText_FailedListingHasNoAbortLine(t *testing.T) {
	out := &scenario.Outcome{
		Final: scenario.Done,
		Results: []scenario.StepResult{{
			Name:     "Get Products",
			State:    scenario.ListingProducts,
			Failure:  scenario.FailureNotFound,
			Expected: "Product with id abc to be found",
			Got:      "Not Found",
		}},
	}
	var buf bytes.Buffer
	replay(NewText(&buf, Options{}), out)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "  Expected: Product with id abc to be found, Got: Not Found", lines[2])
	assert.Equal(t, "  Reason: not found", lines[3])
	assert.Equal(t, "--- All Tests Completed ---", lines[len(lines)-1])
	assert.Len(t, lines, 5)
}

type failingWriter struct{ calls int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, errors.New("disk full")
}

func TestText_KeepsFirstWriteError(t *testing.T) {
	w := &failingWriter{}
	r := NewText(w, Options{})
	replay(r, abortedAtLogin())

	assert.EqualError(t, r.Err(), "disk full")
	assert.Equal(t, 1, w.calls)
}

func TestJSON_Events(t *testing.T) {
	var buf bytes.Buffer
	r, err := New(FormatJSON, &buf, Options{Masker: common.NewMasker()})
	require.NoError(t, err)
	replay(r, abortedAtLogin())
	require.NoError(t, r.Err())

	var events []map[string]any
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var ev map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 4)

	assert.Equal(t, "started", events[0]["event"])
	assert.Equal(t, "http://localhost:3000", events[0]["base_url"])

	assert.Equal(t, "step", events[1]["event"])
	assert.Equal(t, true, events[1]["passed"])
	assert.NotContains(t, events[1], "failure")

	login := events[2]
	assert.Equal(t, false, login["passed"])
	assert.Equal(t, "unexpected status", login["failure"])
	assert.Equal(t, "logging_in", login["state"])
	assert.Equal(t, float64(401), login["status_code"])
	assert.Equal(t, float64(15), login["duration_ms"])
	assert.NotContains(t, login["request_body"], "mypassword")

	assert.Equal(t, "finished", events[3]["event"])
	assert.Equal(t, "aborted", events[3]["final_state"])
	assert.Equal(t, false, events[3]["passed"])
	assert.Equal(t, float64(2), events[3]["steps"])
	assert.Equal(t, "Login failed. Skipping further tests.", events[3]["abort"])
}

func TestText_LiveScenario(t *testing.T) {
	srv := inventorytest.New()
	defer srv.Close()

	var buf bytes.Buffer
	runner := scenario.NewRunner(
		&httpc.Httpc{BaseURL: srv.URL, Timeout: 5 * time.Second},
		scenario.DefaultFixture(),
		scenario.WithObserver(NewText(&buf, Options{})),
	)
	out := runner.Run(context.Background())
	require.True(t, out.Passed())

	assert.Equal(t, strings.Join([]string{
		"--- Starting API Tests ---",
		"User Registration: PASSED",
		"Login Test: PASSED",
		"Add Product: PASSED",
		"Update Quantity: PASSED",
		"Get Products: PASSED",
		"--- All Tests Completed ---",
		"",
	}, "\n"), buf.String())
}
