package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/m1oa/internal/config"
	"github.com/san-kum/m1oa/internal/experiment"
	"github.com/san-kum/m1oa/internal/sim"
)

// Batch is a scripted sequence of runs read from YAML.
type Batch struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Steps       []RunStep `yaml:"steps"`
}

// RunStep starts from a preset and applies overrides through config.Set.
type RunStep struct {
	Preset   string             `yaml:"preset"`
	Scenario string             `yaml:"scenario"`
	Ticks    int                `yaml:"ticks"`
	Params   map[string]float64 `yaml:"params"`
	SaveAs   string             `yaml:"save_as"`
}

func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var b Batch
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(b.Steps) == 0 {
		return nil, fmt.Errorf("%s: batch has no steps", path)
	}
	return &b, nil
}

// Config builds the configuration of one step.
func (s RunStep) Config() (*config.Config, error) {
	name := s.Preset
	if name == "" {
		name = "nominal"
	}
	cfg := config.GetPreset(name)
	if cfg == nil {
		return nil, fmt.Errorf("unknown preset: %s", name)
	}
	if s.SaveAs != "" {
		cfg.Name = s.SaveAs
	}
	if s.Scenario != "" {
		cfg.Run.Scenario = s.Scenario
	}
	if s.Ticks > 0 {
		cfg.Run.Ticks = s.Ticks
	}
	for k, v := range s.Params {
		if err := cfg.Set(k, v); err != nil {
			return nil, err
		}
	}
	return cfg, cfg.Validate()
}

func runOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sim.Result, error) {
	exp := experiment.New(cfg, logger)
	if err := exp.Setup(); err != nil {
		return nil, err
	}
	result, err := exp.Run(ctx)
	if cerr := exp.Close(); err == nil {
		err = cerr
	}
	return result, err
}

// RunBatch executes every step in order and stops at the first failure.
func RunBatch(ctx context.Context, b *Batch, logger *slog.Logger) ([]*sim.Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]*sim.Result, 0, len(b.Steps))

	for i, step := range b.Steps {
		cfg, err := step.Config()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		logger.Info("batch step", "step", i+1, "of", len(b.Steps), "config", cfg.Name, "scenario", cfg.Run.Scenario)

		result, err := runOnce(ctx, cfg, logger)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// Sweep varies one tunable linearly between Min and Max.
type Sweep struct {
	Base     *config.Config
	Param    string
	Min, Max float64
	Steps    int
}

type SweepResult struct {
	Value   float64
	Metrics map[string]float64
	Err     error
}

// RunSweep records a failed point in its SweepResult and carries on.
func RunSweep(ctx context.Context, sw *Sweep, logger *slog.Logger) ([]SweepResult, error) {
	if sw.Steps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sw.Steps)
	}
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]SweepResult, 0, sw.Steps)
	step := (sw.Max - sw.Min) / float64(sw.Steps-1)

	for i := 0; i < sw.Steps; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		val := sw.Min + float64(i)*step
		res := SweepResult{Value: val}

		cfg := sw.Base.Clone()
		if err := cfg.Set(sw.Param, val); err != nil {
			return nil, err
		}
		result, err := runOnce(ctx, cfg, logger)
		if err != nil {
			res.Err = err
		} else {
			res.Metrics = result.Metrics
		}
		results = append(results, res)

		logger.Debug("sweep point", "param", sw.Param, "value", val, "err", res.Err)
	}

	return results, nil
}

// MonteCarlo scales each compensator gain by an independent uniform factor
// in [1-Spread, 1+Spread] and drives every trial with seeded noise.
type MonteCarlo struct {
	Base      *config.Config
	Spread    float64
	Sigma     float64
	Trials    int
	Seed      int64
	Threshold float64
}

type MonteCarloResult struct {
	Trial   int
	Kp, Ki  float64
	Peak    float64
	Bounded bool
}

func RunMonteCarlo(ctx context.Context, mc *MonteCarlo, logger *slog.Logger) ([]MonteCarloResult, error) {
	if mc.Trials < 0 {
		return nil, fmt.Errorf("monte carlo trials must not be negative, got %d", mc.Trials)
	}
	if logger == nil {
		logger = slog.Default()
	}
	rng := rand.New(rand.NewSource(mc.Seed))
	results := make([]MonteCarloResult, 0, mc.Trials)

	for trial := 0; trial < mc.Trials; trial++ {
		cfg := mc.Base.Clone()
		pid := &cfg.Compensator.Default
		pid.Kp *= 1 + (rng.Float64()*2-1)*mc.Spread
		pid.Ki *= 1 + (rng.Float64()*2-1)*mc.Spread
		// Scenario values are parsed as float64, so seeds stay within 31 bits.
		cfg.Run.Scenario = fmt.Sprintf("noise:sigma=%g,seed=%d", mc.Sigma, rng.Int31())

		result, err := runOnce(ctx, cfg, logger)
		if err != nil {
			return results, fmt.Errorf("trial %d: %w", trial, err)
		}

		peak := result.Metrics["peak_force"]
		results = append(results, MonteCarloResult{
			Trial:   trial,
			Kp:      pid.Kp,
			Ki:      pid.Ki,
			Peak:    peak,
			Bounded: peak <= mc.Threshold,
		})

		if (trial+1)%10 == 0 {
			logger.Info("monte carlo progress", "done", trial+1, "of", mc.Trials)
		}
	}

	return results, nil
}

func MonteCarloStats(results []MonteCarloResult) (bounded int, unbounded int) {
	for _, r := range results {
		if r.Bounded {
			bounded++
		} else {
			unbounded++
		}
	}
	return
}
