package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/m1oa/internal/cell"
	"github.com/san-kum/m1oa/internal/dynamo"
)

// Loop is the host scheduler: it feeds a cell once per tick and records what
// comes out. The cell itself never sees the clock.
type Loop struct {
	cell      *cell.Cell
	scenario  Scenario
	metrics   []Metric
	observers []Observer
	log       *slog.Logger
}

func New(c *cell.Cell, sc Scenario, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		cell:      c,
		scenario:  sc,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		log:       logger,
	}
}

func (l *Loop) AddMetric(m Metric)     { l.metrics = append(l.metrics, m) }
func (l *Loop) AddObserver(o Observer) { l.observers = append(l.observers, o) }

// Run steps the cell cfg.Ticks times. Cancelling ctx stops the loop between
// ticks and returns what was recorded so far together with ctx.Err().
func (l *Loop) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	kept := 0
	if cfg.Record > 0 {
		kept = cfg.Ticks/cfg.Record + 1
	}
	result := &Result{
		Scenario:    l.scenario.Name(),
		Times:       make([]float64, 0, kept),
		Loads:       make([]dynamo.Load, 0, kept),
		Corrections: make([]dynamo.Load, 0, kept),
		Forces:      make([][]float64, 0, kept),
		Actuators:   append([]int(nil), cfg.Actuators...),
		Metrics:     make(map[string]float64),
	}

	for _, m := range l.metrics {
		m.Reset()
	}

	var ticker *time.Ticker
	if cfg.Period > 0 {
		ticker = time.NewTicker(cfg.Period)
		defer ticker.Stop()
	}

	var (
		load   dynamo.Load
		offset dynamo.Forces
		forces dynamo.Forces
	)

	l.log.Debug("loop starting", "scenario", result.Scenario, "ticks", cfg.Ticks, "period", cfg.Period)
	start := time.Now()

	var runErr error
	for i := 0; i < cfg.Ticks; i++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				runErr = ctx.Err()
			case <-ticker.C:
			}
		} else {
			select {
			case <-ctx.Done():
				runErr = ctx.Err()
			default:
			}
		}
		if runErr != nil {
			break
		}

		t := float64(i) * cfg.Ts
		l.scenario.Inputs(i, t, &load, &offset)

		stepStart := time.Now()
		if err := l.cell.Step(load[:], offset[:], forces[:]); err != nil {
			return result, SimError{Tick: i, Time: t, Message: err.Error(), Err: err}
		}
		elapsed := time.Since(stepStart)

		if elapsed > result.MaxStep {
			result.MaxStep = elapsed
		}
		if cfg.Period > 0 && elapsed > cfg.Period {
			result.Overruns++
			l.log.Warn("step overran its period", "tick", i, "elapsed", elapsed, "period", cfg.Period)
		}

		s := Sample{
			Tick:       i,
			Time:       t,
			Load:       &load,
			Offset:     &offset,
			Correction: l.cell.Correction(),
			Forces:     &forces,
			Elapsed:    elapsed,
		}
		for _, m := range l.metrics {
			m.Observe(&s)
		}
		for _, obs := range l.observers {
			obs.OnStep(&s)
		}

		if cfg.Record > 0 && i%cfg.Record == 0 {
			result.Times = append(result.Times, t)
			result.Loads = append(result.Loads, load)
			result.Corrections = append(result.Corrections, s.Correction)
			row := make([]float64, len(cfg.Actuators))
			for k, idx := range cfg.Actuators {
				row[k] = forces[idx]
			}
			result.Forces = append(result.Forces, row)
		}

		result.Ticks++
	}

	result.Wall = time.Since(start)
	result.Final = forces
	for _, m := range l.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	l.log.Debug("loop finished", "ticks", result.Ticks, "wall", result.Wall, "max_step", result.MaxStep)
	return result, runErr
}

func validateConfig(cfg Config) error {
	if cfg.Ticks <= 0 {
		return fmt.Errorf("ticks must be positive, got %d", cfg.Ticks)
	}
	if cfg.Ts <= 0 {
		return fmt.Errorf("ts must be positive, got %f", cfg.Ts)
	}
	if cfg.Period < 0 {
		return fmt.Errorf("period must not be negative, got %v", cfg.Period)
	}
	if cfg.Record < 0 {
		return fmt.Errorf("record must not be negative, got %d", cfg.Record)
	}
	for _, idx := range cfg.Actuators {
		if idx < 0 || idx >= dynamo.NumActuators {
			return fmt.Errorf("actuator index %d out of range [0, %d)", idx, dynamo.NumActuators)
		}
	}
	return nil
}
