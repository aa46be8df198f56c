package sim

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/san-kum/m1oa/internal/balance"
	"github.com/san-kum/m1oa/internal/cell"
	"github.com/san-kum/m1oa/internal/control"
	"github.com/san-kum/m1oa/internal/dynamo"
)

func newCell(t *testing.T) *cell.Cell {
	t.Helper()
	c, err := cell.New(balance.Default(), cell.DefaultParams())
	if err != nil {
		t.Fatalf("cell: %v", err)
	}
	c.Initialize()
	return c
}

type testMetric struct {
	count int
	sum   float64
}

func (m *testMetric) Name() string { return "test" }
func (m *testMetric) Observe(s *Sample) {
	m.count++
	m.sum += s.Correction[dynamo.Fx]
}
func (m *testMetric) Value() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}
func (m *testMetric) Reset() {
	m.count = 0
	m.sum = 0
}

type countingObserver struct{ ticks []int }

func (o *countingObserver) OnStep(s *Sample) { o.ticks = append(o.ticks, s.Tick) }

func TestLoopRun(t *testing.T) {
	loop := New(newCell(t), StepInput{Load: dynamo.Load{1}}, nil)

	cfg := DefaultConfig()
	cfg.Ticks = 10
	result, err := loop.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.Ticks != 10 {
		t.Errorf("expected 10 ticks, got %d", result.Ticks)
	}
	if len(result.Times) != 10 || len(result.Forces) != 10 {
		t.Errorf("expected 10 samples, got %d times / %d forces", len(result.Times), len(result.Forces))
	}
	if math.Abs(result.Times[9]-0.09) > 1e-12 {
		t.Errorf("time of tick 9 = %v", result.Times[9])
	}

	d0 := control.DefaultPID().FirstResponse()
	if result.Corrections[0][dynamo.Fx] != d0 {
		t.Errorf("first correction = %v, want %v", result.Corrections[0][dynamo.Fx], d0)
	}
	if len(result.Forces[0]) != len(cfg.Actuators) {
		t.Errorf("trace width = %d", len(result.Forces[0]))
	}
}

func TestLoopRecordDecimation(t *testing.T) {
	loop := New(newCell(t), Zero{}, nil)
	cfg := DefaultConfig()
	cfg.Ticks = 100
	cfg.Record = 10

	result, err := loop.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Times) != 10 {
		t.Errorf("expected 10 recorded samples, got %d", len(result.Times))
	}

	cfg.Record = 0
	result, err = loop.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(result.Times) != 0 {
		t.Errorf("expected no samples, got %d", len(result.Times))
	}
}

func TestLoopInvalidConfig(t *testing.T) {
	loop := New(newCell(t), Zero{}, nil)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero ticks", func(c *Config) { c.Ticks = 0 }},
		{"zero ts", func(c *Config) { c.Ts = 0 }},
		{"negative period", func(c *Config) { c.Period = -time.Second }},
		{"negative record", func(c *Config) { c.Record = -1 }},
		{"actuator out of range", func(c *Config) { c.Actuators = []int{dynamo.NumActuators} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := loop.Run(context.Background(), cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoopMetricsAndObservers(t *testing.T) {
	loop := New(newCell(t), Constant{Load: dynamo.Load{2}}, nil)
	metric := &testMetric{}
	obs := &countingObserver{}
	loop.AddMetric(metric)
	loop.AddObserver(obs)

	cfg := DefaultConfig()
	cfg.Ticks = 10
	result, err := loop.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}
	if metric.count != 10 {
		t.Errorf("expected 10 observations, got %d", metric.count)
	}
	if len(obs.ticks) != 10 || obs.ticks[9] != 9 {
		t.Errorf("observer saw %v", obs.ticks)
	}
}

func TestLoopCancel(t *testing.T) {
	loop := New(newCell(t), Zero{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := DefaultConfig()
	result, err := loop.Run(ctx, cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Ticks != 0 {
		t.Errorf("expected no ticks, got %d", result.Ticks)
	}
}

func TestLoopPaced(t *testing.T) {
	loop := New(newCell(t), Zero{}, nil)
	cfg := DefaultConfig()
	cfg.Ticks = 5
	cfg.Period = time.Millisecond

	start := time.Now()
	result, err := loop.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.Ticks != 5 {
		t.Errorf("expected 5 ticks, got %d", result.Ticks)
	}
	if time.Since(start) < 4*time.Millisecond {
		t.Error("paced loop finished too quickly")
	}
}

func TestLoopUninitializedCell(t *testing.T) {
	c, err := cell.New(balance.Default(), cell.DefaultParams())
	if err != nil {
		t.Fatalf("cell: %v", err)
	}
	loop := New(c, Zero{}, nil)
	_, err = loop.Run(context.Background(), DefaultConfig())

	var se SimError
	if !errors.As(err, &se) || se.Tick != 0 {
		t.Fatalf("expected SimError at tick 0, got %v", err)
	}
	if !errors.Is(err, dynamo.ErrNotInitialized) {
		t.Errorf("cell error lost: %v", err)
	}

	c.Initialize()
	if err := c.Terminate(); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	_, err = loop.Run(context.Background(), DefaultConfig())
	if !errors.Is(err, dynamo.ErrTerminated) {
		t.Errorf("expected ErrTerminated through SimError, got %v", err)
	}
}

func TestFleetSharesMatrix(t *testing.T) {
	fleet := NewFleet(balance.Default(), cell.DefaultParams(), 4,
		func(seg int) Scenario { return NewNoise(10, 1, int64(seg%2)) }, nil)
	fleet.WithMetrics(func() []Metric { return []Metric{&testMetric{}} })

	cfg := DefaultConfig()
	cfg.Ticks = 200
	results, err := fleet.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("fleet: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	// Segments 0 and 2 see the same seed, so their outputs must match exactly.
	if results[0].Final != results[2].Final {
		t.Error("segments with identical inputs diverged")
	}
	if results[0].Final == results[1].Final {
		t.Error("segments with different inputs should differ")
	}
	if _, ok := results[3].Metrics["test"]; !ok {
		t.Error("per-segment metrics missing")
	}
}

func TestFleetRejectsZeroSegments(t *testing.T) {
	fleet := NewFleet(balance.Default(), cell.DefaultParams(), 0, func(int) Scenario { return Zero{} }, nil)
	if _, err := fleet.Run(context.Background(), DefaultConfig()); err == nil {
		t.Error("expected error")
	}
}

func TestSimError(t *testing.T) {
	err := SimError{Time: 1.5, Tick: 150, Message: "test error"}
	expected := "tick 150 (t=1.5000): test error"
	if err.Error() != expected {
		t.Errorf("SimError.Error() = %q, want %q", err.Error(), expected)
	}
}
