// Package analysis characterizes recorded runs and compensator channels.
//
//   - [Spectrum]: one-sided amplitude spectrum of a sampled trace
//   - [StepInfo]: overshoot and settling of a step response
//   - [FrequencyResponse]: gain and phase of a compensator channel
//
// A settled step response of the default bank:
//
//	info := analysis.StepInfo(viz.AxisSeries(res.Corrections, dynamo.Fx), ts, 0.02)
//	fmt.Println(info.SettlingTime)
package analysis
