package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/loykin/apismoke/internal/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs, or the steps of one run with --run",
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := loadConfig(viper.GetViper())
		if err != nil {
			return err
		}
		cfg, ok := doc.StoreConfig()
		if !ok {
			return errors.New("history store is disabled (set store.disabled: false)")
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		st, err := store.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		if runID, _ := cmd.Flags().GetString("run"); strings.TrimSpace(runID) != "" {
			steps, err := st.RunSteps(ctx, strings.TrimSpace(runID))
			if err != nil {
				return err
			}
			return printSteps(cmd.OutOrStdout(), steps)
		}
		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		return printRuns(cmd.OutOrStdout(), runs)
	},
}

func printRuns(w io.Writer, runs []store.Run) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "RUN ID\tSTARTED\tDURATION\tFINAL\tRESULT\tBASE URL")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RunID,
			r.StartedAt.Local().Format(time.DateTime),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
			r.FinalState,
			passedLabel(r.Passed),
			r.BaseURL)
	}
	return tw.Flush()
}

func printSteps(w io.Writer, steps []store.Step) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tSTEP\tRESULT\tSTATUS\tDURATION\tEXPECTED\tGOT\tFAILURE")
	for _, s := range steps {
		status := "-"
		if s.StatusCode != 0 {
			status = fmt.Sprint(s.StatusCode)
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%dms\t%s\t%s\t%s\n",
			s.Seq, s.Name, passedLabel(s.Passed), status, s.DurationMS, s.Expected, s.Got, s.Failure)
	}
	return tw.Flush()
}

func passedLabel(passed bool) string {
	if passed {
		return "PASSED"
	}
	return "FAILED"
}
