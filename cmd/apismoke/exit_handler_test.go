package main

import (
	"errors"
	"fmt"
	"testing"
)

type recordingExit struct {
	codes  []int
	logged []string
}

func (r *recordingExit) Exit(code int) { r.codes = append(r.codes, code) }

func (r *recordingExit) LogFatalError(err error, msg string, keyvals ...any) {
	r.logged = append(r.logged, msg+": "+err.Error())
	r.Exit(exitFailed)
}

func TestExitFor(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		codes  int
		logged int
	}{
		{"success", nil, 0, 0},
		{"scenario failed", errScenarioFailed, 1, 0},
		{"wrapped scenario failure", fmt.Errorf("run: %w", errScenarioFailed), 1, 0},
		{"config error", errors.New("invalid configuration"), 1, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			h := &recordingExit{}
			exitFor(h, c.err)
			if len(h.codes) != c.codes {
				t.Fatalf("expected %d exits, got %v", c.codes, h.codes)
			}
			if c.codes > 0 && h.codes[0] != exitFailed {
				t.Fatalf("expected exit code %d, got %d", exitFailed, h.codes[0])
			}
			if len(h.logged) != c.logged {
				t.Fatalf("expected %d logged errors, got %v", c.logged, h.logged)
			}
		})
	}
}
