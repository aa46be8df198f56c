package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/m1oa/internal/dynamo"
	"github.com/san-kum/m1oa/internal/experiment"
	"github.com/san-kum/m1oa/internal/metrics"
	"github.com/san-kum/m1oa/internal/sim"
	"github.com/san-kum/m1oa/internal/storage"
	"github.com/san-kum/m1oa/internal/viz"
)

var period time.Duration

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "run the cell against a scenario and store the trace",
		Args:  cobra.NoArgs,
		RunE:  runCell,
	}
	addRunFlags(cmd)
	cmd.Flags().DurationVar(&period, "period", 0, "pace ticks in real time (0 runs free)")
	cmd.Flags().IntVar(&segments, "segments", 1, "number of independent segment cells")
	cmd.Flags().BoolVar(&telemetry, "telemetry", false, "publish frames over MQTT")
	cmd.Flags().StringVar(&broker, "broker", "", "MQTT broker URL")
	return cmd
}

func runCell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("period") {
		cfg.Run.Period = period
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exp := experiment.New(cfg, slog.Default())

	if cfg.Run.Segments > 1 {
		slog.Info("running fleet", "segments", cfg.Run.Segments, "scenario", cfg.Run.Scenario, "ticks", cfg.Run.Ticks)
		results, err := exp.RunFleet(ctx)
		if err != nil {
			return err
		}
		for i, r := range results {
			runID, err := st.Save(fmt.Sprintf("%s-seg%d", cfg.Name, i), cfg.Ts, r)
			if err != nil {
				return err
			}
			fmt.Printf("segment %d: run id %s\n", i, runID)
		}
		fmt.Println(viz.Summary("segment 0", results[0].Metrics))
		return nil
	}

	if err := exp.Setup(); err != nil {
		return err
	}
	defer func() {
		if err := exp.Close(); err != nil {
			slog.Warn("terminate", "err", err)
		}
	}()

	slog.Info("running cell", "config", cfg.Name, "scenario", cfg.Run.Scenario, "ticks", cfg.Run.Ticks)
	result, err := exp.Run(ctx)
	if result == nil {
		return err
	}
	if err != nil {
		slog.Warn("run stopped early", "ticks", result.Ticks, "err", err)
	}

	runID, serr := st.Save(cfg.Name, cfg.Ts, result)
	if serr != nil {
		return serr
	}

	fmt.Printf("completed %d ticks in %v (max step %v, overruns %d)\n", result.Ticks, result.Wall, result.MaxStep, result.Overruns)
	fmt.Printf("run id: %s\n", runID)
	fmt.Println(viz.Summary("metrics", result.Metrics))
	return err
}

func listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := storage.New(dataDir).List()
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Println("no runs found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSCENARIO\tTICKS\tPEAK FORCE\tTIME")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%.4g\t%s\n", r.ID, r.Scenario, r.Ticks, r.Metrics["peak_force"], r.Timestamp.Format(time.DateTime))
			}
			return w.Flush()
		},
	}
}

func plotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot the load, correction, and actuator forces of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := storage.New(dataDir)
			meta, err := st.Load(args[0])
			if err != nil {
				return err
			}
			tr, err := st.LoadTrace(args[0])
			if err != nil {
				return err
			}

			axis, err := dynamo.ParseAxis(axisName)
			if err != nil {
				return err
			}
			n := len(tr.Times)

			fmt.Println(viz.Plot(viz.AxisSeries(tr.Loads, axis), viz.Caption("load "+axis.String(), n, meta.Ts), 80, 8))
			fmt.Println()
			fmt.Println(viz.Plot(viz.AxisSeries(tr.Corrections, axis), viz.Caption("correction "+axis.String(), n, meta.Ts), 80, 10))
			fmt.Println()

			series := make([][]float64, len(tr.Actuators))
			for k := range tr.Actuators {
				series[k] = viz.Column(tr.Forces, k)
			}
			fmt.Println(viz.PlotMany(series, fmt.Sprintf("actuators %v", tr.Actuators), 80, 12))
			return nil
		},
	}
	cmd.Flags().StringVar(&axisName, "axis", "Fx", "load axis to plot")
	return cmd
}

func exportJSONCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).Export(os.Stdout, args[0])
		},
	}
}

func benchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "measure step latency of the configured cell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Run.Ticks = ticks
			cfg.Run.Scenario = scenario
			cfg.Run.Record = 0
			cfg.Run.Period = 0
			cfg.Telemetry.Enabled = false

			exp := experiment.New(cfg, slog.Default())
			if err := exp.Setup(); err != nil {
				return err
			}
			defer exp.Close()

			lat := metrics.NewStepLatency()
			loop := sim.New(exp.Cell(), exp.Scenario(), slog.Default())
			loop.AddMetric(lat)
			res, err := loop.Run(cmd.Context(), exp.SimConfig())
			if err != nil {
				return err
			}

			perTick := res.Wall / time.Duration(max(res.Ticks, 1))
			fmt.Printf("ticks:      %d\n", res.Ticks)
			fmt.Printf("wall:       %v\n", res.Wall)
			fmt.Printf("per tick:   %v (loop)\n", perTick)
			fmt.Printf("step mean:  %.3f µs\n", lat.Value())
			fmt.Printf("step max:   %v\n", lat.Max())
			fmt.Printf("rate:       %.0f ticks/s\n", float64(res.Ticks)/res.Wall.Seconds())
			return nil
		},
	}
	cmd.Flags().IntVar(&ticks, "ticks", 100000, "number of control ticks")
	cmd.Flags().StringVar(&scenario, "scenario", "noise:sigma=1,seed=1", "input scenario")
	return cmd
}
