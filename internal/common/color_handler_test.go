package common

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewColorHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := NewColorHandler(&buf, nil)

	if handler.writer != &buf {
		t.Error("Writer not set correctly")
	}
	if handler.masker == nil {
		t.Error("Masker not initialized")
	}
	if handler.useColor {
		t.Error("a bytes.Buffer is not a terminal; colour must be off")
	}
}

func TestColorHandler_Enabled(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorHandler(&buf, nil)
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be disabled with the default info level")
	}
	h = NewColorHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled with a debug level")
	}
}

func TestColorHandler_Handle(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorHandler(&buf, nil)
	h.SetColorEnabled(true)

	r := slog.NewRecord(time.Now(), slog.LevelError, "step failed", 0)
	r.AddAttrs(slog.String("step", "Login Test"), slog.String("password", "mypassword"), slog.Int("status_code", 401))
	if err := h.WithGroup("scenario").Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"[ERROR]", "[scenario]", "step failed", MaskedValue, Red} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in %q", want, out)
		}
	}
	if strings.Contains(out, "mypassword") {
		t.Errorf("password leaked: %q", out)
	}
}

func TestColorHandler_WithAttrsDoesNotShareSlice(t *testing.T) {
	var buf bytes.Buffer
	base := NewColorHandler(&buf, nil).WithAttrs([]slog.Attr{slog.String("a", "1")}).(*ColorHandler)
	left := base.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*ColorHandler)
	right := base.WithAttrs([]slog.Attr{slog.String("c", "3")}).(*ColorHandler)
	if left.attrs[1].Key != "b" || right.attrs[1].Key != "c" {
		t.Fatalf("attrs aliased between handlers: %v %v", left.attrs, right.attrs)
	}
}

func TestColorize(t *testing.T) {
	if Colorize(false, Green, "PASSED") != "PASSED" {
		t.Fatal("disabled colour must return plain text")
	}
	if Colorize(true, Green, "PASSED") != Green+"PASSED"+Reset {
		t.Fatal("enabled colour must wrap text")
	}
}
