package metrics

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/san-kum/m1oa/internal/balance"
	"github.com/san-kum/m1oa/internal/cell"
	"github.com/san-kum/m1oa/internal/dynamo"
	"github.com/san-kum/m1oa/internal/sim"
)

func sample(forces *dynamo.Forces) *sim.Sample {
	return &sim.Sample{
		Load:   &dynamo.Load{},
		Offset: &dynamo.Forces{},
		Forces: forces,
	}
}

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()
	var f dynamo.Forces
	f[0], f[1] = 2, -3
	m.Observe(sample(&f))
	m.Observe(sample(&dynamo.Forces{}))

	if got := m.Value(); got != 2.5 {
		t.Errorf("expected 2.5, got %f", got)
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestPeakForce(t *testing.T) {
	m := NewPeakForce()
	var f dynamo.Forces
	f[100] = -7
	m.Observe(sample(&f))
	f[100] = 1
	m.Observe(sample(&f))
	if m.Value() != 7 {
		t.Errorf("expected 7, got %f", m.Value())
	}
}

func TestBoundedness(t *testing.T) {
	m := NewBoundedness(10)
	if m.Value() != 1 {
		t.Error("empty boundedness should be 1")
	}

	var f dynamo.Forces
	m.Observe(sample(&f))
	f[3] = 11
	m.Observe(sample(&f))
	f[3] = math.NaN()
	m.Observe(sample(&f))
	f[3] = 0
	m.Observe(sample(&f))

	if got := m.Value(); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
}

func TestStepLatency(t *testing.T) {
	m := NewStepLatency()
	m.Observe(&sim.Sample{Elapsed: 2 * time.Microsecond})
	m.Observe(&sim.Sample{Elapsed: 4 * time.Microsecond})
	if m.Value() != 3 {
		t.Errorf("expected 3us mean, got %f", m.Value())
	}
	if m.Max() != 4*time.Microsecond {
		t.Errorf("expected 4us max, got %v", m.Max())
	}
}

func TestEquilibriumResidualSettles(t *testing.T) {
	c, err := cell.New(balance.Default(), cell.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	c.Initialize()

	eq := NewEquilibriumResidual(nil)
	loop := sim.New(c, sim.Constant{Load: dynamo.Load{0, 0, 1}}, nil)
	loop.AddMetric(eq)

	cfg := sim.DefaultConfig()
	cfg.Ticks = 5
	if _, err := loop.Run(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	early := eq.Value()
	if early <= 1e-6 {
		t.Fatalf("expected lag residual after 5 ticks, got %g", early)
	}

	// The leaky integrator settles within a few 1/(1-leak) time constants.
	cfg.Ticks = 20000
	cfg.Record = 0
	if _, err := loop.Run(context.Background(), cfg); err != nil {
		t.Fatal(err)
	}
	if late := eq.Value(); late > 1e-6 {
		t.Errorf("residual did not settle: early %g, late %g", early, late)
	}
}

func TestDefaults(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Defaults(1e3) {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %q", m.Name())
		}
		seen[m.Name()] = true
	}
	if len(seen) != 5 {
		t.Errorf("expected 5 metrics, got %d", len(seen))
	}
}
