package main

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/m1oa/internal/analysis"
	"github.com/san-kum/m1oa/internal/balance"
	"github.com/san-kum/m1oa/internal/cell"
	"github.com/san-kum/m1oa/internal/config"
	"github.com/san-kum/m1oa/internal/dynamo"
	"github.com/san-kum/m1oa/internal/experiment"
	"github.com/san-kum/m1oa/internal/storage"
	"github.com/san-kum/m1oa/internal/viz"
)

func analyzeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "step response and spectrum of a correction trace",
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
			if len(tr.Times) < 2 {
				return fmt.Errorf("run %s has too few samples", args[0])
			}
			axis, err := dynamo.ParseAxis(axisName)
			if err != nil {
				return err
			}

			ts := tr.Times[1] - tr.Times[0]
			y := viz.AxisSeries(tr.Corrections, axis)
			info := analysis.StepInfo(y, ts, 0.02)
			fmt.Println(viz.Summary("correction "+axis.String(), map[string]float64{
				"final":           info.Final,
				"peak":            info.Peak,
				"overshoot":       info.Overshoot,
				"rise_time_s":     info.RiseTime,
				"settling_time_s": info.SettlingTime,
			}))

			freqs, amp := analysis.Spectrum(y, ts)
			f, a := analysis.Dominant(freqs, amp)
			fmt.Printf("dominant component: %.3f Hz (amplitude %.4g), sample time %g s\n", f, a, meta.Ts)
			if len(amp) > 1 {
				fmt.Println(viz.Plot(amp[1:], "amplitude spectrum", 80, 10))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&axisName, "axis", "Fx", "load axis to analyze")
	return cmd
}

func matrixCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "inspect, write, or check the gain distribution matrix",
	}

	writeCmd := &cobra.Command{
		Use:   "write [file]",
		Short: "write the built-in matrix as CSV (335 rows, 6 columns)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := balance.SaveFile(args[0], balance.Default()); err != nil {
				return err
			}
			slog.Info("matrix written", "file", args[0])
			return nil
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check [file]",
		Short: "check a matrix against the built-in actuator layout",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m := balance.Default()
			if len(args) == 1 {
				var err error
				if m, err = balance.LoadFile(args[0]); err != nil {
					return err
				}
			}
			l := balance.DefaultGeometry()

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "AXIS\tΣK\tMAX |K|\tNET LOAD OF COLUMN")
			for _, a := range dynamo.Axes() {
				col := m.Column(a)
				net := balance.NetLoad(l, &col)
				parts := make([]string, len(net))
				for j, v := range net {
					parts[j] = fmt.Sprintf("%+.3g", v)
				}
				fmt.Fprintf(w, "%s\t%.4g\t%.4g\t[%s]\n", a, col.Sum(), col.MaxAbs(), strings.Join(parts, " "))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			residual := balance.EquilibriumError(l, m)
			fmt.Printf("\nmax |D·K − I| = %.3g\n", residual)
			if residual > 1e-6 {
				return fmt.Errorf("matrix does not balance the layout (residual %.3g)", residual)
			}
			return nil
		},
	}

	cmd.AddCommand(writeCmd, checkCmd)
	return cmd
}

func presetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTS\tKP\tKI\tKD\tACTUATOR POLE")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				pid := cfg.Compensator.Default
				fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%g\t%.4f\n", name, cfg.Ts, pid.Kp, pid.Ki, pid.Kd, cfg.ActuatorPole())
			}
			return w.Flush()
		},
	}
}

func snapshotCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "run the cell and write its inputs, outputs, and state as JSON",
		Long: "Runs the configured scenario for --ticks ticks and writes the cell snapshot.\n" +
			"With --from, the cell is first restored from an earlier snapshot so runs can be chained.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			cfg.Run.Record = 0

			exp := experiment.New(cfg, slog.Default())
			if err := exp.Setup(); err != nil {
				return err
			}
			defer exp.Close()

			if fromFile != "" {
				f, err := os.Open(fromFile)
				if err != nil {
					return err
				}
				snap, err := cell.ReadSnapshot(f)
				f.Close()
				if err != nil {
					return err
				}
				if err := exp.Cell().Restore(snap); err != nil {
					return err
				}
				slog.Info("restored snapshot", "file", fromFile, "ticks", snap.Ticks)
			}

			if _, err := exp.Run(cmd.Context()); err != nil {
				return err
			}

			out := os.Stdout
			if outFile != "" {
				f, err := os.Create(outFile)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return cell.WriteSnapshot(out, exp.Cell().Snapshot())
		},
	}
	addRunFlags(cmd)
	cmd.Flags().StringVarP(&outFile, "out", "o", "", "write the snapshot to a file instead of stdout")
	cmd.Flags().StringVar(&fromFile, "from", "", "restore this snapshot before running")
	return cmd
}

func bodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bode",
		Short: "frequency response of one compensator channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			axis, err := dynamo.ParseAxis(axisName)
			if err != nil {
				return err
			}
			params, err := cfg.Params()
			if err != nil {
				return err
			}
			ch := params.Compensators[axis]

			nyquist := 0.5 / cfg.Ts
			freqs := analysis.LogSpace(nyquist/1e4, nyquist*0.99, 60)
			gain, phase := analysis.Bode(analysis.FrequencyResponse(ch, freqs, cfg.Ts))

			fmt.Println(viz.Plot(gain, fmt.Sprintf("%s gain [dB], %.3g to %.3g Hz", axis, freqs[0], freqs[len(freqs)-1]), 80, 10))
			fmt.Println()
			fmt.Println(viz.Plot(phase, fmt.Sprintf("%s phase [deg]", axis), 80, 8))

			if dc, err := ch.DCGain(); err == nil {
				fmt.Printf("\nDC gain %.4g (%.2f dB), spectral radius %.6f\n", dc, 20*math.Log10(math.Abs(dc)), ch.SpectralRadius())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&axisName, "axis", "Fx", "compensator axis")
	return cmd
}

func liveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "live",
		Short: "step a cell interactively with a live terminal view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			gain, err := cfg.Gain()
			if err != nil {
				return err
			}
			params, err := cfg.Params()
			if err != nil {
				return err
			}
			c, err := cell.New(gain, params)
			if err != nil {
				return err
			}
			c.Initialize()
			defer c.Terminate()

			frame := time.Second / time.Duration(max(frameRate, 1))
			m := viz.NewMonitor(c, balance.DefaultGeometry(), frame, perFrame, cfg.Ts)
			_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().IntVar(&frameRate, "fps", 30, "frames per second")
	cmd.Flags().IntVar(&perFrame, "ticks-per-frame", 4, "control ticks per frame")
	return cmd
}

