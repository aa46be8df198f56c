package cell_test

import (
	"bytes"
	"errors"
	"math"
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/m1oa/internal/actuator"
	"github.com/san-kum/m1oa/internal/balance"
	"github.com/san-kum/m1oa/internal/cell"
	"github.com/san-kum/m1oa/internal/control"
	"github.com/san-kum/m1oa/internal/dynamo"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newCell(opts ...cell.Option) *cell.Cell {
	c, err := cell.New(balance.Default(), cell.DefaultParams(), opts...)
	Expect(err).NotTo(HaveOccurred())
	c.Initialize()
	return c
}

func randomInputs(rng *rand.Rand) (dynamo.Load, dynamo.Forces) {
	var l dynamo.Load
	var o dynamo.Forces
	for i := range l {
		l[i] = rng.NormFloat64() * 50
	}
	for i := range o {
		o[i] = rng.NormFloat64()
	}
	return l, o
}

// sameValues treats NaN as equal to NaN.
func sameValues(a, b dynamo.Vector) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && !(math.IsNaN(a[i]) && math.IsNaN(b[i])) {
			return false
		}
	}
	return true
}

var _ = Describe("Cell", func() {
	var (
		c      *cell.Cell
		load   []float64
		offset []float64
		out    []float64
	)

	BeforeEach(func() {
		c = newCell()
		load = make([]float64, dynamo.NumAxes)
		offset = make([]float64, dynamo.NumActuators)
		out = make([]float64, dynamo.NumActuators)
	})

	Describe("lifecycle", func() {
		It("refuses to step before Initialize", func() {
			fresh, err := cell.New(balance.Default(), cell.DefaultParams())
			Expect(err).NotTo(HaveOccurred())
			Expect(fresh.Step(load, offset, out)).To(MatchError(dynamo.ErrNotInitialized))
		})

		It("rejects a nil matrix", func() {
			_, err := cell.New(nil, cell.DefaultParams())
			Expect(err).To(HaveOccurred())
		})

		It("rejects unstable compensators", func() {
			p := cell.DefaultParams()
			p.Compensators[dynamo.Fz].A[1][1] = -1.5
			_, err := cell.New(balance.Default(), p)
			Expect(errors.Is(err, dynamo.ErrUnstable)).To(BeTrue())
		})

		It("rejects an actuator pole outside the unit interval", func() {
			p := cell.DefaultParams()
			p.ActuatorPoles[200] = 1
			_, err := cell.New(balance.Default(), p)
			Expect(errors.Is(err, dynamo.ErrUnstable)).To(BeTrue())
		})

		It("closes registered resources on Terminate and stops stepping", func() {
			closed := 0
			boom := errors.New("boom")
			c = newCell(
				cell.WithCloser(closerFunc(func() error { closed++; return nil })),
				cell.WithCloser(closerFunc(func() error { closed++; return boom })),
			)
			err := c.Terminate()
			Expect(closed).To(Equal(2))
			Expect(errors.Is(err, boom)).To(BeTrue())
			Expect(c.Step(load, offset, out)).To(MatchError(dynamo.ErrTerminated))

			Expect(c.Terminate()).To(Succeed())
			Expect(closed).To(Equal(2))
		})

		It("resets to the same baseline regardless of history", func() {
			baseline := c.Snapshot()
			rng := rand.New(rand.NewSource(1))
			for k := 0; k < 100; k++ {
				l, o := randomInputs(rng)
				var f dynamo.Forces
				c.StepArrays(&l, &o, &f)
			}
			Expect(c.Ticks()).To(Equal(uint64(100)))
			Expect(c.Snapshot()).NotTo(Equal(baseline))

			c.Initialize()
			Expect(c.Snapshot()).To(Equal(baseline))
			Expect(c.CompensatorState()).To(Equal(control.BankState{}))
			Expect(c.ActuatorState()).To(Equal(actuator.State{}))

			c.Initialize()
			Expect(c.Snapshot()).To(Equal(baseline))
		})
	})

	Describe("shape contract", func() {
		DescribeTable("fails fast without touching state",
			func(nl, no, nf int) {
				l := []float64{1, 2, 3, 4, 5, 6}
				Expect(c.Step(l, offset, out)).To(Succeed())
				before := c.Snapshot()

				err := c.Step(make([]float64, nl), make([]float64, no), make([]float64, nf))
				Expect(errors.Is(err, dynamo.ErrShape)).To(BeTrue())
				var se *dynamo.ShapeError
				Expect(errors.As(err, &se)).To(BeTrue())
				Expect(c.Snapshot()).To(Equal(before))
			},
			Entry("short load", 5, dynamo.NumActuators, dynamo.NumActuators),
			Entry("long load", 7, dynamo.NumActuators, dynamo.NumActuators),
			Entry("empty load", 0, dynamo.NumActuators, dynamo.NumActuators),
			Entry("short offset", dynamo.NumAxes, 334, dynamo.NumActuators),
			Entry("long offset", dynamo.NumAxes, 336, dynamo.NumActuators),
			Entry("short output", dynamo.NumAxes, dynamo.NumActuators, 10),
		)
	})

	Describe("numerics", func() {
		It("keeps the zero fixed point", func() {
			for k := 0; k < 50; k++ {
				Expect(c.Step(load, offset, out)).To(Succeed())
				for _, v := range out {
					Expect(v).To(BeZero())
				}
			}
		})

		It("answers a unit Fx load with the scaled first gain column", func() {
			load[dynamo.Fx] = 1
			Expect(c.Step(load, offset, out)).To(Succeed())

			d0 := control.DefaultPID().FirstResponse()
			a := actuator.PoleFromBandwidth(cell.DefaultBandwidth, control.DefaultPID().Ts)
			col := balance.Default().Column(dynamo.Fx)

			nonzero := 0
			for i, v := range out {
				want := (1 - a) * (col[i] * d0)
				Expect(v).To(BeNumerically("~", want, 1e-12*math.Max(1, math.Abs(want))))
				if v != 0 {
					nonzero++
				}
			}
			Expect(nonzero).To(BeNumerically(">", 0))
			Expect(c.Correction()[dynamo.Fx]).To(Equal(d0))
		})

		It("converges under a constant load", func() {
			l := dynamo.Load{10, -5, 200, 1, -2, 0.5}
			var o, f, prev dynamo.Forces
			for k := 0; k < 20000; k++ {
				prev = f
				c.StepArrays(&l, &o, &f)
				Expect(f.IsFinite()).To(BeTrue())
			}

			st := c.CompensatorState()
			for i := range l {
				ch := control.DefaultPID().Channel()
				want, err := ch.SteadyState(l[i])
				Expect(err).NotTo(HaveOccurred())
				for j := range want {
					Expect(st[i][j]).To(BeNumerically("~", want[j], 1e-6*math.Max(1, math.Abs(want[j]))))
				}
			}

			for i := range f {
				Expect(math.Abs(f[i]-prev[i])).To(BeNumerically("<", 1e-6*math.Max(1, math.Abs(f[i]))))
			}
		})

		It("reproduces a cycle sequence bit for bit", func() {
			other := newCell()
			rng := rand.New(rand.NewSource(42))
			for k := 0; k < 500; k++ {
				l, o := randomInputs(rng)
				var a, b dynamo.Forces
				c.StepArrays(&l, &o, &a)
				other.StepArrays(&l, &o, &b)
				Expect(a).To(Equal(b))
			}
		})

		It("propagates non-finite input without clamping", func() {
			load[dynamo.Mz] = math.Inf(1)
			Expect(c.Step(load, offset, out)).To(Succeed())
			f := dynamo.Forces(out)
			Expect(f.IsFinite()).To(BeFalse())
		})

		It("passes the offset command through the actuator response", func() {
			for i := range offset {
				offset[i] = 1
			}
			Expect(c.Step(load, offset, out)).To(Succeed())
			a := actuator.PoleFromBandwidth(cell.DefaultBandwidth, control.DefaultPID().Ts)
			Expect(out[0]).To(BeNumerically("~", 1-a, 1e-15))
		})

		It("tolerates aliased input and output buffers", func() {
			shared := make([]float64, dynamo.NumActuators)
			for i := range shared {
				shared[i] = 2
			}
			ref := newCell()
			want := make([]float64, dynamo.NumActuators)
			Expect(ref.Step(load, shared, want)).To(Succeed())

			Expect(c.Step(load, shared, shared)).To(Succeed())
			Expect(shared).To(Equal(want))
		})
	})

	Describe("snapshots", func() {
		It("round-trips through JSON and resumes identically", func() {
			rng := rand.New(rand.NewSource(9))
			for k := 0; k < 25; k++ {
				l, o := randomInputs(rng)
				var f dynamo.Forces
				c.StepArrays(&l, &o, &f)
			}

			var buf bytes.Buffer
			Expect(cell.WriteSnapshot(&buf, c.Snapshot())).To(Succeed())
			snap, err := cell.ReadSnapshot(&buf)
			Expect(err).NotTo(HaveOccurred())

			resumed := newCell()
			Expect(resumed.Restore(snap)).To(Succeed())
			Expect(resumed.Ticks()).To(Equal(c.Ticks()))

			for k := 0; k < 25; k++ {
				l, o := randomInputs(rng)
				var a, b dynamo.Forces
				c.StepArrays(&l, &o, &a)
				resumed.StepArrays(&l, &o, &b)
				Expect(a).To(Equal(b))
			}
		})

		It("round-trips non-finite state", func() {
			var l dynamo.Load
			var o, f dynamo.Forces
			l[dynamo.Fx] = math.Inf(1)
			l[dynamo.Mz] = math.Inf(-1)
			o[7] = math.NaN()
			c.StepArrays(&l, &o, &f)
			Expect(f.IsFinite()).To(BeFalse())

			var buf bytes.Buffer
			Expect(cell.WriteSnapshot(&buf, c.Snapshot())).To(Succeed())
			Expect(buf.String()).To(ContainSubstring(`"NaN"`))
			Expect(buf.String()).To(ContainSubstring(`"+Inf"`))

			snap, err := cell.ReadSnapshot(&buf)
			Expect(err).NotTo(HaveOccurred())
			resumed := newCell()
			Expect(resumed.Restore(snap)).To(Succeed())

			want, got := c.Snapshot(), resumed.Snapshot()
			Expect(sameValues(got.Outputs.Forces, want.Outputs.Forces)).To(BeTrue())
			Expect(sameValues(got.States.Actuator, want.States.Actuator)).To(BeTrue())
			for i := range want.States.Compensator {
				Expect(sameValues(got.States.Compensator[i], want.States.Compensator[i])).To(BeTrue())
			}
			Expect(math.IsInf(got.Inputs.Load[dynamo.Fx], 1)).To(BeTrue())
			Expect(math.IsInf(got.Inputs.Load[dynamo.Mz], -1)).To(BeTrue())
			Expect(math.IsNaN(got.Inputs.Offset[7])).To(BeTrue())
		})

		It("rejects snapshots with wrong vector lengths", func() {
			snap := c.Snapshot()
			snap.States.Actuator = snap.States.Actuator[:100]
			before := c.Snapshot()
			Expect(errors.Is(c.Restore(snap), dynamo.ErrShape)).To(BeTrue())
			Expect(c.Snapshot()).To(Equal(before))

			snap = c.Snapshot()
			snap.States.Compensator[2] = []float64{1, 2}
			Expect(errors.Is(c.Restore(snap), dynamo.ErrShape)).To(BeTrue())
		})

		It("rejects malformed JSON", func() {
			_, err := cell.ReadSnapshot(bytes.NewBufferString(`{"inputs":{"load":[1,2]}}`))
			Expect(err).To(HaveOccurred())

			_, err = cell.ReadSnapshot(bytes.NewBufferString(`{"bogus":1}`))
			Expect(err).To(HaveOccurred())
		})
	})
})
