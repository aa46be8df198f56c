// Package viz renders cell runs in the terminal.
//
//   - [Plot], [PlotMany]: asciigraph line charts of recorded traces
//   - [Footprint]: Braille map of actuator forces over the segment
//   - [Monitor]: Bubble Tea live view that steps a cell in real time
//
// # Key Bindings
//
//	Space - Pause/Resume stepping
//	R     - Re-initialize the cell
//	Tab   - Cycle the load axis being driven
//	Up/K  - Increase the driven load
//	Down/J- Decrease the driven load
//	T     - Cycle color themes
//	?     - Show help overlay
package viz
