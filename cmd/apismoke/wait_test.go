package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/loykin/apismoke/cmd/apismoke/config"
)

func TestWait_PollsUntilAlive(t *testing.T) {
	var calls int32
	// 503 for the first 3 calls, then 200
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wc := config.WaitConfig{URL: srv.URL + "/health", Timeout: 2 * time.Second, Interval: 20 * time.Millisecond}
	if err := doWait(context.Background(), wc, config.ClientConfig{}); err != nil {
		t.Fatalf("doWait: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 4 {
		t.Fatalf("expected 4 calls, got %d", got)
	}
}

func TestWait_HeadAndCustomStatus(t *testing.T) {
	var methodGot atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methodGot.Store(r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wc := config.WaitConfig{URL: srv.URL, Method: http.MethodHead, Status: http.StatusNoContent, Timeout: time.Second, Interval: 10 * time.Millisecond}
	if err := doWait(context.Background(), wc, config.ClientConfig{}); err != nil {
		t.Fatalf("doWait: %v", err)
	}
	if methodGot.Load() != http.MethodHead {
		t.Fatalf("expected HEAD, got %v", methodGot.Load())
	}
}

func TestWait_TimesOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	wc := config.WaitConfig{URL: srv.URL, Timeout: 100 * time.Millisecond, Interval: 20 * time.Millisecond}
	err := doWait(context.Background(), wc, config.ClientConfig{})
	if err == nil || !strings.Contains(err.Error(), "last=503") {
		t.Fatalf("expected timeout with last=503, got %v", err)
	}
}

func TestWait_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	wc := config.WaitConfig{URL: srv.URL, Timeout: 10 * time.Second, Interval: time.Second}
	if err := doWait(ctx, wc, config.ClientConfig{}); err == nil {
		t.Fatal("expected error after context cancellation")
	}
}

func TestWait_NoURLIsNoop(t *testing.T) {
	if err := doWait(context.Background(), config.WaitConfig{}, config.ClientConfig{}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestParseWaitConfig_Defaults(t *testing.T) {
	p := parseWaitConfig(config.WaitConfig{URL: "http://x", Method: "POST"})
	if p.method != http.MethodGet || p.expected != http.StatusOK {
		t.Fatalf("unexpected defaults: %+v", p)
	}
	if p.timeout != 60*time.Second || p.interval != 2*time.Second {
		t.Fatalf("unexpected durations: %+v", p)
	}
}
