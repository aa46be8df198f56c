// Package control provides the per-axis compensators of the force-control
// cell.
//
// Each axis of the load vector runs through an independent third-order
// discrete compensator:
//
//   - [Channel]: state-space realization y = C·x + D·u, x ← A·x + B·u
//   - [PID]: parameter block realized as a Channel (leaky integral,
//     filtered derivative, rolled-off proportional path)
//   - [Bank]: six channels, one per axis, with no cross-axis terms
//
// # Usage
//
//	bank, _ := control.NewBank(control.UniformPID(control.DefaultPID()))
//	var st control.BankState
//	bank.Compute(&load, &st, &correction)
//
// Channels do not clamp. NaN or Inf inputs propagate through the state.
package control
