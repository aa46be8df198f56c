package control

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/m1oa/internal/dynamo"
)

func TestNone(t *testing.T) {
	ch := NewNone()
	var x ChannelState
	for i := 0; i < 10; i++ {
		if y := ch.Step(3.0, &x); y != 0 {
			t.Fatalf("step %d: expected 0, got %f", i, y)
		}
	}
}

func TestStatic(t *testing.T) {
	ch := NewStatic(2.5)
	var x ChannelState
	if y := ch.Step(2.0, &x); y != 5.0 {
		t.Errorf("expected 5, got %f", y)
	}
	if x != (ChannelState{}) {
		t.Errorf("static channel should keep zero state, got %v", x)
	}
}

func TestPIDFirstResponse(t *testing.T) {
	p := DefaultPID()
	ch := p.Channel()
	var x ChannelState

	y := ch.Step(1.0, &x)
	want := p.Kp*(1-p.Rolloff) + p.Kd*p.N
	if math.Abs(y-want) > 1e-15 {
		t.Errorf("first response = %v, want %v", y, want)
	}
	if y != p.FirstResponse() {
		t.Errorf("FirstResponse() = %v, step gave %v", p.FirstResponse(), y)
	}

	wantState := ChannelState{p.Ts, p.N * p.Ts, 1 - p.Rolloff}
	for i := range x {
		if math.Abs(x[i]-wantState[i]) > 1e-15 {
			t.Errorf("x[%d] = %v, want %v", i, x[i], wantState[i])
		}
	}
}

func TestPIDConvergesToDCGain(t *testing.T) {
	p := DefaultPID()
	ch := p.Channel()

	dc, err := ch.DCGain()
	if err != nil {
		t.Fatalf("dc gain: %v", err)
	}
	wantDC := p.Kp + p.Ki*p.Ts/(1-p.Leak)
	if math.Abs(dc-wantDC) > 1e-9 {
		t.Fatalf("DCGain = %v, want %v", dc, wantDC)
	}

	var x ChannelState
	var y float64
	for i := 0; i < 50000; i++ {
		y = ch.Step(1.0, &x)
	}
	if math.Abs(y-dc) > 1e-6*math.Abs(dc) {
		t.Errorf("output after convergence = %v, want %v", y, dc)
	}

	xs, err := ch.SteadyState(1.0)
	if err != nil {
		t.Fatalf("steady state: %v", err)
	}
	for i := range x {
		if math.Abs(x[i]-xs[i]) > 1e-6*math.Max(1, math.Abs(xs[i])) {
			t.Errorf("x[%d] = %v, want %v", i, x[i], xs[i])
		}
	}
}

func TestPIDStability(t *testing.T) {
	p := DefaultPID()
	ch := p.Channel()
	if !ch.Stable() {
		t.Fatalf("default PID should be stable, rho=%f", ch.SpectralRadius())
	}

	p.Leak = 1.001
	ch = p.Channel()
	if ch.Stable() {
		t.Error("growing integrator should not be stable")
	}
}

func TestPIDValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PID)
	}{
		{"zero ts", func(p *PID) { p.Ts = 0 }},
		{"fast derivative", func(p *PID) { p.N = 250 }},
		{"negative n", func(p *PID) { p.N = -1 }},
		{"unfiltered derivative", func(p *PID) { p.N = 0 }},
		{"integrator", func(p *PID) { p.Leak = 1 }},
		{"rolloff", func(p *PID) { p.Rolloff = 1.2 }},
	}

	if err := DefaultPID().Validate(); err != nil {
		t.Fatalf("default PID invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPID()
			tt.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestPIDWithoutDerivative(t *testing.T) {
	p := DefaultPID()
	p.Kd, p.N = 0, 0
	if err := p.Validate(); err != nil {
		t.Fatalf("kd=0 n=0 should validate: %v", err)
	}
	ch := p.Channel()
	if !ch.Stable() {
		t.Errorf("spectral radius %v, want < 1", ch.SpectralRadius())
	}
	if want := p.Kp * (1 - p.Rolloff); ch.D != want {
		t.Errorf("feed-through %v, want %v", ch.D, want)
	}
	if _, err := NewBank(UniformPID(p)); err != nil {
		t.Errorf("bank rejected a validated PID: %v", err)
	}
}

func TestPIDSetParam(t *testing.T) {
	p := DefaultPID()
	if err := p.SetParam("Kp", 2.0); err != nil {
		t.Fatalf("SetParam: %v", err)
	}
	if p.GetParams()["Kp"] != 2.0 {
		t.Errorf("Kp not updated: %v", p.GetParams())
	}
	if err := p.SetParam("bogus", 1); err == nil {
		t.Error("expected error for unknown parameter")
	}
}

func TestNewBankRejectsUnstable(t *testing.T) {
	ch := UniformPID(DefaultPID())
	ch[dynamo.My].A[0][0] = 1.01

	_, err := NewBank(ch)
	if !errors.Is(err, dynamo.ErrUnstable) {
		t.Fatalf("expected ErrUnstable, got %v", err)
	}
}

func TestBankChannelsIndependent(t *testing.T) {
	bank, err := NewBank(UniformPID(DefaultPID()))
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	var st BankState
	var out dynamo.Load
	load := dynamo.Load{1, 0, 0, 0, 0, 0}
	for i := 0; i < 20; i++ {
		bank.Compute(&load, &st, &out)
		for a := 1; a < dynamo.NumAxes; a++ {
			if out[a] != 0 {
				t.Fatalf("cycle %d: axis %s leaked %v", i, dynamo.Axis(a), out[a])
			}
			if st[a] != (ChannelState{}) {
				t.Fatalf("cycle %d: axis %s state moved %v", i, dynamo.Axis(a), st[a])
			}
		}
	}

	st.Reset()
	if st != (BankState{}) {
		t.Error("Reset did not zero the state")
	}
}

func TestBankPropagatesNaN(t *testing.T) {
	bank, err := NewBank(UniformPID(DefaultPID()))
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	var st BankState
	var out dynamo.Load
	load := dynamo.Load{math.NaN(), 0, 0, 0, 0, 0}
	bank.Compute(&load, &st, &out)

	if !math.IsNaN(out[dynamo.Fx]) {
		t.Errorf("expected NaN on Fx, got %v", out[dynamo.Fx])
	}
	if out[dynamo.Fy] != 0 {
		t.Errorf("NaN leaked into Fy: %v", out[dynamo.Fy])
	}
}

func BenchmarkBankCompute(b *testing.B) {
	bank, _ := NewBank(UniformPID(DefaultPID()))
	var st BankState
	var out dynamo.Load
	load := dynamo.Load{1, 2, 3, 4, 5, 6}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bank.Compute(&load, &st, &out)
	}
}
