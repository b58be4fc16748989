package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/loykin/apismoke/cmd/apismoke/config"
	"github.com/loykin/apismoke/internal/common"
	"github.com/loykin/apismoke/internal/report"
	"github.com/loykin/apismoke/internal/scenario"
	"github.com/loykin/apismoke/internal/store"
	"github.com/spf13/viper"
)

// errScenarioFailed signals exit status 1 after a completed run with failures;
// the report already explains them, so main does not log it again.
var errScenarioFailed = errors.New("one or more scenario steps failed")

// loadConfig loads, validates and applies logging settings.
func loadConfig(v *viper.Viper) (*config.ConfigDoc, error) {
	doc, err := config.Load(v)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := doc.SetupLogging(); err != nil {
		return nil, err
	}
	return doc, nil
}

func runScenario(ctx context.Context, v *viper.Viper, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	doc, err := loadConfig(v)
	if err != nil {
		return err
	}
	logger := common.GetLogger().WithComponent("run")

	if err := doWait(ctx, doc.Wait, doc.Client); err != nil {
		return err
	}

	format, opts, err := doc.ReportOptions(common.ShouldUseColor(out))
	if err != nil {
		return err
	}
	reporter, err := report.New(format, out, opts)
	if err != nil {
		return err
	}

	runner := scenario.NewRunner(doc.Httpc(), doc.Fixture(), scenario.WithObserver(reporter))
	outcome := runner.Run(ctx)
	if err := reporter.Err(); err != nil {
		logger.Error("failed to write report", "error", err)
	}

	if cfg, ok := doc.StoreConfig(); ok {
		recordHistory(ctx, cfg, outcome)
	}

	if !outcome.Passed() {
		return errScenarioFailed
	}
	return nil
}

// recordHistory persists the outcome; failures are logged and never change the exit status.
func recordHistory(ctx context.Context, cfg store.Config, outcome *scenario.Outcome) {
	logger := common.GetLogger().WithStore(cfg.Driver)
	st, err := store.Open(ctx, cfg)
	if err != nil {
		logger.Error("history store unavailable", "error", err)
		return
	}
	defer func() { _ = st.Close() }()
	if err := st.RecordOutcome(ctx, outcome); err != nil {
		logger.Error("failed to record run", "error", err, "run_id", outcome.RunID)
		return
	}
	logger.Info("run recorded", "run_id", outcome.RunID, "passed", outcome.Passed())
}
