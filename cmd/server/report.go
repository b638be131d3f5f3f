package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rpattn/cagetrack/internal/report"

	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

type reportOptions struct {
	out       string
	from      string
	to        string
	threshold float64
}

func newReportCommand(opts *rootOptions) *cobra.Command {
	ropts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a report to stdout or a file",
	}
	cmd.PersistentFlags().StringVar(&ropts.out, "out", "", "output file; .csv and .xlsx select the expedition format")
	cmd.PersistentFlags().StringVar(&ropts.from, "from", "", "first day (YYYY-MM-DD)")
	cmd.PersistentFlags().StringVar(&ropts.to, "to", "", "last day, inclusive (YYYY-MM-DD)")

	expedition := &cobra.Command{
		Use:   "expedition",
		Short: "Expedition export with checkpoint weights and divergence per cage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts, ropts, func(svc *report.Service, env *environment, w io.Writer) error {
				from, to, err := ropts.period()
				if err != nil {
					return err
				}
				rows, err := svc.ExpeditionRows(cmd.Context(), report.ExpeditionFilter{From: from, To: to})
				if err != nil {
					return err
				}
				switch strings.ToLower(filepath.Ext(ropts.out)) {
				case ".csv":
					return report.WriteCSV(w, rows)
				case ".xlsx":
					return report.WriteXLSX(w, rows)
				default:
					return writeJSON(w, rows)
				}
			})
		},
	}

	divergences := &cobra.Command{
		Use:   "divergences",
		Short: "Cages whose departure/dispatch divergence reaches the threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts, ropts, func(svc *report.Service, env *environment, w io.Writer) error {
				threshold := env.cfg.Tracking.DivergenceThreshold
				if cmd.Flags().Changed("threshold") {
					threshold = ropts.threshold
				}
				rows, err := svc.DivergenceReport(cmd.Context(), threshold)
				if err != nil {
					return err
				}
				return writeJSON(w, rows)
			})
		},
	}
	divergences.Flags().Float64Var(&ropts.threshold, "threshold", 0, "minimum divergence in percent (default tracking.divergence_threshold)")

	productivity := &cobra.Command{
		Use:   "productivity",
		Short: "Cage counts, dispatched weight and step durations for a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts, ropts, func(svc *report.Service, env *environment, w io.Writer) error {
				from, to, err := ropts.period()
				if err != nil {
					return err
				}
				summary, err := svc.Productivity(cmd.Context(), report.PeriodFilter{From: from, To: to})
				if err != nil {
					return err
				}
				return writeJSON(w, summary)
			})
		},
	}

	cmd.AddCommand(expedition, divergences, productivity)
	return cmd
}

func runReport(cmd *cobra.Command, opts *rootOptions, ropts *reportOptions, render func(*report.Service, *environment, io.Writer) error) error {
	env, err := openEnvironment(cmd.Context(), opts, false)
	if err != nil {
		return err
	}
	defer env.Close()

	svc := report.NewService(env.store)
	if ropts.out == "" {
		return render(svc, env, cmd.OutOrStdout())
	}

	f, err := os.Create(ropts.out)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", ropts.out, err)
	}
	if err := render(svc, env, f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (o *reportOptions) period() (*time.Time, *time.Time, error) {
	from, err := parseDay(o.from)
	if err != nil {
		return nil, nil, err
	}
	to, err := parseDay(o.to)
	if err != nil {
		return nil, nil, err
	}
	return from, to, nil
}

func parseDay(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return &t, nil
}

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
