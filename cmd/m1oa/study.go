package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/m1oa/internal/automation"
	"github.com/san-kum/m1oa/internal/optim"
	"github.com/san-kum/m1oa/internal/storage"
	"github.com/san-kum/m1oa/internal/viz"
)

var (
	gridParams []string
	sweepSteps int
	trials     int
	spread     float64
	sigma      float64
	seed       int64
	threshold  float64
)

// parseGrid reads "name=v1,v2,..." entries.
func parseGrid(entries []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(entries))
	ranges := make([][]float64, 0, len(entries))
	for _, e := range entries {
		name, list, ok := strings.Cut(e, "=")
		if !ok || list == "" {
			return nil, nil, fmt.Errorf("grid entry %q: expected name=v1,v2,...", e)
		}
		var vals []float64
		for _, s := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid entry %q: %w", e, err)
			}
			vals = append(vals, v)
		}
		names = append(names, strings.TrimSpace(name))
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}

func tuneCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tune",
		Short:   "grid search over tunables minimizing a run metric",
		Example: "  m1oa tune --grid Kp=0.2,0.5,0.8 --grid Ki=0.5,1,2 --metric equilibrium_residual",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Run.Record = 0
			cfg.Telemetry.Enabled = false

			names, ranges, err := parseGrid(gridParams)
			if err != nil {
				return err
			}
			if len(names) == 0 {
				return fmt.Errorf("at least one --grid entry is required")
			}

			best, val, err := optim.NewGridSearch(names, ranges, slog.Default()).Search(cmd.Context(), cfg, metricName)
			if err != nil {
				return err
			}
			best[metricName] = val
			fmt.Println(viz.Summary("best point", best))
			return nil
		},
	}
	addRunFlags(cmd)
	cmd.Flags().StringArrayVar(&gridParams, "grid", nil, "tunable and its values, name=v1,v2,... (repeatable)")
	cmd.Flags().StringVar(&metricName, "metric", "control_effort", "metric to minimize")
	return cmd
}

func sweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep [param] [min] [max]",
		Short: "run the cell across a linear range of one tunable",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Run.Record = 0
			cfg.Telemetry.Enabled = false

			lo, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return err
			}
			hi, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return err
			}

			results, err := automation.RunSweep(cmd.Context(), &automation.Sweep{
				Base: cfg, Param: args[0], Min: lo, Max: hi, Steps: sweepSteps,
			}, slog.Default())
			if err != nil {
				return err
			}

			var names []string
			for _, r := range results {
				if r.Err == nil {
					for k := range r.Metrics {
						names = append(names, k)
					}
					break
				}
			}
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\n", strings.ToUpper(args[0]), strings.ToUpper(strings.Join(names, "\t")))
			for _, r := range results {
				if r.Err != nil {
					fmt.Fprintf(w, "%.4g\terror: %v\n", r.Value, r.Err)
					continue
				}
				row := make([]string, len(names))
				for i, n := range names {
					row[i] = fmt.Sprintf("%.4g", r.Metrics[n])
				}
				fmt.Fprintf(w, "%.4g\t%s\n", r.Value, strings.Join(row, "\t"))
			}
			return w.Flush()
		},
	}
	addRunFlags(cmd)
	cmd.Flags().IntVar(&sweepSteps, "steps", 10, "number of sweep points")
	return cmd
}

func batchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "batch [file]",
		Short: "run a YAML batch of runs and store each one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := automation.LoadBatch(args[0])
			if err != nil {
				return err
			}
			results, runErr := automation.RunBatch(cmd.Context(), b, slog.Default())

			st := storage.New(dataDir)
			if err := st.Init(); err != nil {
				return err
			}
			for i, r := range results {
				step := b.Steps[i]
				cfg, err := step.Config()
				if err != nil {
					return err
				}
				runID, err := st.Save(cfg.Name, cfg.Ts, r)
				if err != nil {
					return err
				}
				fmt.Printf("step %d: run id %s\n", i+1, runID)
			}
			return runErr
		},
	}
}

func monteCarloCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "randomize compensator gains under noise and count bounded trials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Run.Ticks = ticks
			cfg.Run.Record = 0
			cfg.Telemetry.Enabled = false

			results, err := automation.RunMonteCarlo(cmd.Context(), &automation.MonteCarlo{
				Base:      cfg,
				Spread:    spread,
				Sigma:     sigma,
				Trials:    trials,
				Seed:      seed,
				Threshold: threshold,
			}, slog.Default())
			if err != nil {
				return err
			}

			bounded, unbounded := automation.MonteCarloStats(results)
			peak := 0.0
			for _, r := range results {
				peak = max(peak, r.Peak)
			}
			fmt.Println(viz.Summary("monte carlo", map[string]float64{
				"trials":     float64(len(results)),
				"bounded":    float64(bounded),
				"unbounded":  float64(unbounded),
				"worst_peak": peak,
			}))
			return nil
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 2000, "number of control ticks per trial")
	cmd.Flags().IntVar(&trials, "trials", 50, "number of trials")
	cmd.Flags().Float64Var(&spread, "spread", 0.2, "relative gain spread")
	cmd.Flags().Float64Var(&sigma, "sigma", 1, "load noise standard deviation")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().Float64Var(&threshold, "threshold", 1e3, "peak force bound")
	return cmd
}
