package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/loykin/apismoke/cmd/apismoke/config"
	"github.com/loykin/apismoke/internal/common"
	"github.com/loykin/apismoke/internal/constants"
	"github.com/loykin/apismoke/internal/httpc"
)

// waitParams holds the parsed and normalized parameters for waiting
type waitParams struct {
	url      string
	method   string
	expected int
	timeout  time.Duration
	interval time.Duration
}

// parseWaitConfig normalizes wait configuration with defaults
func parseWaitConfig(wc config.WaitConfig) waitParams {
	p := waitParams{
		url:      wc.URL,
		method:   wc.Method,
		expected: wc.Status,
		timeout:  wc.Timeout,
		interval: wc.Interval,
	}
	if p.method != http.MethodHead {
		p.method = constants.DefaultWaitMethod
	}
	if p.expected == 0 {
		p.expected = constants.DefaultWaitStatus
	}
	if p.timeout <= 0 {
		p.timeout = constants.DefaultWaitTimeout
	}
	if p.interval <= 0 {
		p.interval = constants.DefaultWaitInterval
	}
	return p
}

// performHTTPRequest executes one probe request and returns its status
func performHTTPRequest(ctx context.Context, hcfg *httpc.Httpc, method, url string) (int, error) {
	resp, err := hcfg.New().R().SetContext(ctx).Execute(method, url)
	if err != nil {
		return 0, err
	}
	return resp.StatusCode(), nil
}

// performPolling repeatedly polls the endpoint until success or timeout
func performPolling(ctx context.Context, hcfg *httpc.Httpc, params waitParams) error {
	logger := common.GetLogger().WithComponent("wait")
	deadline := time.Now().Add(params.timeout)
	var lastStatus int
	var lastErr error

	for attempt := 1; ; attempt++ {
		status, err := performHTTPRequest(ctx, hcfg, params.method, params.url)
		if err == nil && status == params.expected {
			logger.Info("service is ready", "url", params.url, "attempts", attempt)
			return nil
		}
		lastStatus, lastErr = status, err
		logger.Debug("service not ready", "url", params.url, "status", status, "error", err, "attempt", attempt)

		if time.Now().After(deadline) {
			if lastErr != nil {
				return fmt.Errorf("wait: timeout waiting for %s to return %d (last error: %w)", params.url, params.expected, lastErr)
			}
			return fmt.Errorf("wait: timeout waiting for %s to return %d (last=%d)", params.url, params.expected, lastStatus)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("wait: %w", ctx.Err())
		case <-time.After(params.interval):
		}
	}
}

// doWait polls an HTTP endpoint until it returns the expected status or timeout elapses.
//
// Behavior:
// - method defaults to GET; supports GET and HEAD
// - expected status defaults to 200
// - timeout defaults to 60s; interval defaults to 2s
// - TLS client options are shared with the scenario client
func doWait(ctx context.Context, wc config.WaitConfig, clientCfg config.ClientConfig) error {
	if wc.URL == "" {
		return nil
	}
	params := parseWaitConfig(wc)
	hcfg := &httpc.Httpc{Timeout: clientCfg.Timeout, TlsConfig: clientCfg.TLSConfig()}
	return performPolling(ctx, hcfg, params)
}
