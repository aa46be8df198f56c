package cell

import (
	"errors"
	"fmt"
	"io"

	"github.com/san-kum/m1oa/internal/actuator"
	"github.com/san-kum/m1oa/internal/balance"
	"github.com/san-kum/m1oa/internal/control"
	"github.com/san-kum/m1oa/internal/dynamo"
)

// Cell is the control step for one actuated segment.
type Cell struct {
	gain  *balance.Matrix
	bank  *control.Bank
	stage *actuator.Stage

	comp control.BankState
	act  actuator.State

	load        dynamo.Load
	offset      dynamo.Forces
	correction  dynamo.Load
	distributed dynamo.Forces
	out         dynamo.Forces

	ticks       uint64
	initialized bool
	terminated  bool
	closers     []io.Closer
}

type Option func(*Cell)

// WithCloser registers a resource released by Terminate.
func WithCloser(c io.Closer) Option {
	return func(cl *Cell) {
		cl.closers = append(cl.closers, c)
	}
}

// New binds the shared gain matrix and the coefficients. The cell must be
// initialized before it can step.
func New(gain *balance.Matrix, p Params, opts ...Option) (*Cell, error) {
	if gain == nil {
		return nil, errors.New("cell: nil gain matrix")
	}
	bank, err := control.NewBank(p.Compensators)
	if err != nil {
		return nil, fmt.Errorf("cell: compensators: %w", err)
	}
	stage, err := actuator.NewStageWithPoles(p.ActuatorPoles)
	if err != nil {
		return nil, fmt.Errorf("cell: actuator dynamics: %w", err)
	}

	c := &Cell{gain: gain, bank: bank, stage: stage}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// AddCloser registers a resource released by Terminate.
func (c *Cell) AddCloser(cl io.Closer) {
	c.closers = append(c.closers, cl)
}

// Initialize zeroes all persistent state. Calling it again resets the cell to
// the same baseline regardless of history.
func (c *Cell) Initialize() {
	c.comp.Reset()
	c.act.Reset()
	c.load = dynamo.Load{}
	c.offset = dynamo.Forces{}
	c.correction = dynamo.Load{}
	c.distributed = dynamo.Forces{}
	c.out = dynamo.Forces{}
	c.ticks = 0
	c.initialized = true
	c.terminated = false
}

// Step validates the caller's slices and runs one control cycle, writing the
// resultant forces into out. On error no state is touched.
func (c *Cell) Step(load, offset, out []float64) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := dynamo.CheckLen("load", dynamo.NumAxes, len(load)); err != nil {
		return err
	}
	if err := dynamo.CheckLen("offset command", dynamo.NumActuators, len(offset)); err != nil {
		return err
	}
	if err := dynamo.CheckLen("resultant force", dynamo.NumActuators, len(out)); err != nil {
		return err
	}

	l := (*dynamo.Load)(load)
	o := (*dynamo.Forces)(offset)
	f := (*dynamo.Forces)(out)
	c.StepArrays(l, o, f)
	return nil
}

// StepArrays runs compensator bank, distribution and actuator dynamics in
// that order. The caller guarantees the cell is initialized.
func (c *Cell) StepArrays(load *dynamo.Load, offset *dynamo.Forces, out *dynamo.Forces) {
	c.load = *load
	c.offset = *offset

	c.bank.Compute(&c.load, &c.comp, &c.correction)
	c.gain.Distribute(&c.correction, &c.distributed)
	c.stage.Advance(&c.distributed, &c.offset, &c.act, &c.out)

	*out = c.out
	c.ticks++
}

func (c *Cell) ready() error {
	if c.terminated {
		return dynamo.ErrTerminated
	}
	if !c.initialized {
		return dynamo.ErrNotInitialized
	}
	return nil
}

// Terminate releases the registered resources. The numeric state is left as
// is; Initialize revives the cell.
func (c *Cell) Terminate() error {
	c.terminated = true
	var errs []error
	for _, cl := range c.closers {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}

// Correction is the six-axis compensator output of the last cycle.
func (c *Cell) Correction() dynamo.Load { return c.correction }

// Distributed is the per-actuator correction of the last cycle.
func (c *Cell) Distributed() dynamo.Forces { return c.distributed }

// Ticks counts cycles since the last Initialize.
func (c *Cell) Ticks() uint64 { return c.ticks }

// Gain returns the shared matrix the cell was bound to.
func (c *Cell) Gain() *balance.Matrix { return c.gain }

func (c *Cell) CompensatorState() control.BankState { return c.comp }

func (c *Cell) ActuatorState() actuator.State { return c.act }
