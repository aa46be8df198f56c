// Package dynamo defines the fixed-size vectors shared by every stage of the
// outer-segment force-control cell.
//
// The cell works on two vector shapes:
//
//   - [Load]: six values ordered [Fx, Fy, Fz, Mx, My, Mz] at the segment
//     center of gravity
//   - [Forces]: one value per actuator ([NumActuators] of them)
//
// Both are plain arrays so they can be passed by pointer through the step
// path without allocating. Conversion from caller-owned slices happens once,
// at the boundary, through [LoadFromSlice] and [ForcesFromSlice], which report
// a [ShapeError] when the length is wrong.
//
// # Thread Safety
//
// Values of these types carry no synchronization. A vector written by one
// control cell must not be read concurrently by another goroutine.
package dynamo
