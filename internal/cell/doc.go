// Package cell sequences the compensator bank, the gain distribution matrix
// and the actuator dynamics into one control step.
//
// A [Cell] owns the persistent state of one mirror segment and references a
// shared, read-only [balance.Matrix]. Lifecycle follows the generated-code
// convention of the surrounding system:
//
//	c, _ := cell.New(balance.Default(), cell.DefaultParams())
//	c.Initialize()
//	for tick := range ticks {
//	    if err := c.Step(load, offset, forces); err != nil { ... }
//	}
//	c.Terminate()
//
// # Timing
//
// [Cell.StepArrays] performs a fixed number of floating-point operations,
// never allocates and never blocks. [Cell.Step] adds a shape check on
// caller-owned slices and otherwise does the same work.
//
// # Thread Safety
//
// A Cell is NOT safe for concurrent use. Run one Cell per goroutine; many
// cells may share the same matrix.
package cell
