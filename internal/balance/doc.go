// Package balance provides the gain distribution matrix that spreads a
// six-axis correction over the segment actuators.
//
//   - [Matrix]: immutable 335×6 table, shared read-only by every cell
//   - [Layout]: actuator positions and force directions
//   - [Influence]: 6×335 map from actuator forces to loads at the CG
//   - [Synthesize]: minimum-norm balancing matrix with D·K = I
//
// # Distribution
//
//	k := balance.Default()
//	k.Distribute(&correction, &distributed)
//
// Each output row is summed in increasing axis order so results are
// reproducible bit for bit.
//
// The matrix may also be externalized as CSV with [WriteCSV] and [ReadCSV].
package balance
