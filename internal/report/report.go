// Package report renders scenario progress for humans (text) and machines
// (JSON lines). Both reporters implement scenario.Observer and write each
// step as soon as it finishes.
package report

import (
	"fmt"
	"io"

	"github.com/loykin/apismoke/internal/common"
	"github.com/loykin/apismoke/internal/scenario"
	"github.com/loykin/apismoke/internal/util"
)

// Format selects a reporter.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text" (the default for an empty string) and "json".
func ParseFormat(s string) (Format, error) {
	switch Format(util.TrimAndLower(s)) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text or json)", s)
	}
}

// Options tune how results are written.
type Options struct {
	// Masker hides credentials in request and response bodies. Nil prints them as is.
	Masker *common.Masker
	// Color enables ANSI colours on PASSED/FAILED in the text format.
	Color bool
}

// Reporter is an Observer that remembers the first write error.
type Reporter interface {
	scenario.Observer
	Err() error
}

// New returns the reporter for format writing to w.
func New(format Format, w io.Writer, opts Options) (Reporter, error) {
	switch format {
	case FormatText, "":
		return NewText(w, opts), nil
	case FormatJSON:
		return NewJSON(w, opts), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

func mask(m *common.Masker, s string) string {
	if m == nil {
		return s
	}
	return m.MaskString(s)
}
