package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/m1oa/internal/cell"
	"github.com/san-kum/m1oa/internal/config"
	"github.com/san-kum/m1oa/internal/metrics"
	"github.com/san-kum/m1oa/internal/sim"
	"github.com/san-kum/m1oa/internal/telemetry"
)

// DefaultThreshold is the force magnitude above which a tick counts against
// boundedness.
const DefaultThreshold = 1e4

// Experiment binds a configuration to a running cell: it builds the gain
// matrix and parameters, attaches metrics and telemetry, and runs the loop.
type Experiment struct {
	cfg       *config.Config
	log       *slog.Logger
	cell      *cell.Cell
	loop      *sim.Loop
	scenario  sim.Scenario
	publisher *telemetry.Publisher
	observers []sim.Observer
}

func New(cfg *config.Config, logger *slog.Logger) *Experiment {
	if logger == nil {
		logger = slog.Default()
	}
	return &Experiment{
		cfg: cfg,
		log: logger.With("config", cfg.Name),
	}
}

// AddObserver registers an observer before Setup.
func (e *Experiment) AddObserver(o sim.Observer) {
	e.observers = append(e.observers, o)
}

func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	gain, err := e.cfg.Gain()
	if err != nil {
		return fmt.Errorf("gain matrix: %w", err)
	}
	params, err := e.cfg.Params()
	if err != nil {
		return fmt.Errorf("parameters: %w", err)
	}
	sc, err := sim.ParseScenario(e.cfg.Run.Scenario)
	if err != nil {
		return err
	}

	c, err := cell.New(gain, params)
	if err != nil {
		return err
	}
	c.Initialize()

	loop := sim.New(c, sc, e.log)
	for _, m := range metrics.Defaults(DefaultThreshold) {
		loop.AddMetric(m)
	}
	for _, o := range e.observers {
		loop.AddObserver(o)
	}

	if e.cfg.Telemetry.Enabled {
		pub, err := telemetry.Dial(telemetry.Options{
			Broker:   e.cfg.Telemetry.Broker,
			Topic:    e.cfg.Telemetry.Topic,
			ClientID: e.cfg.Telemetry.ClientID,
			Every:    e.cfg.Telemetry.Every,
		}, e.log)
		if err != nil {
			return err
		}
		c.AddCloser(pub)
		loop.AddObserver(pub)
		e.publisher = pub
		e.log.Info("telemetry connected", "broker", e.cfg.Telemetry.Broker, "topic", e.cfg.Telemetry.Topic)
	}

	e.cell = c
	e.loop = loop
	e.scenario = sc
	return nil
}

func (e *Experiment) SimConfig() sim.Config {
	cfg := sim.DefaultConfig()
	cfg.Ticks = e.cfg.Run.Ticks
	cfg.Ts = e.cfg.Ts
	cfg.Period = e.cfg.Run.Period
	cfg.Record = e.cfg.Run.Record
	return cfg
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.loop == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.loop.Run(ctx, e.SimConfig())
}

// RunFleet runs Run.Segments independent cells concurrently on the same
// scenario and gain matrix. Telemetry is not attached to fleet cells.
func (e *Experiment) RunFleet(ctx context.Context) ([]*sim.Result, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	gain, err := e.cfg.Gain()
	if err != nil {
		return nil, err
	}
	params, err := e.cfg.Params()
	if err != nil {
		return nil, err
	}
	if _, err := sim.ParseScenario(e.cfg.Run.Scenario); err != nil {
		return nil, err
	}

	fleet := sim.NewFleet(gain, params, e.cfg.Run.Segments, func(int) sim.Scenario {
		sc, _ := sim.ParseScenario(e.cfg.Run.Scenario)
		return sc
	}, e.log)
	fleet.WithMetrics(func() []sim.Metric { return metrics.Defaults(DefaultThreshold) })
	return fleet.Run(ctx, e.SimConfig())
}

// Cell returns the cell built by Setup.
func (e *Experiment) Cell() *cell.Cell { return e.cell }

func (e *Experiment) Scenario() sim.Scenario { return e.scenario }

// Close terminates the cell, which also closes the telemetry publisher.
func (e *Experiment) Close() error {
	if e.cell == nil {
		return nil
	}
	return e.cell.Terminate()
}
