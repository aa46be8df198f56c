package sim

import (
	"fmt"
	"time"

	"github.com/san-kum/m1oa/internal/dynamo"
)

// Scenario supplies the cell inputs for one tick.
type Scenario interface {
	Name() string
	Inputs(tick int, t float64, load *dynamo.Load, offset *dynamo.Forces)
}

// Sample is the view of one tick handed to metrics and observers. The
// pointers reference loop-owned buffers valid only during the callback.
type Sample struct {
	Tick       int
	Time       float64
	Load       *dynamo.Load
	Offset     *dynamo.Forces
	Correction dynamo.Load
	Forces     *dynamo.Forces
	Elapsed    time.Duration
}

type Metric interface {
	Name() string
	Observe(s *Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s *Sample)
}

type Config struct {
	Ticks int
	Ts    float64
	// Period paces the loop with a ticker; zero runs free.
	Period time.Duration
	// Record keeps every n-th tick in the result; zero keeps none.
	Record int
	// Actuators selects which actuator forces are kept in the trace.
	Actuators []int
}

func DefaultConfig() Config {
	return Config{
		Ticks:     1000,
		Ts:        0.01,
		Record:    1,
		Actuators: []int{0, 1, 2, 3},
	}
}

type Result struct {
	Scenario    string
	Times       []float64
	Loads       []dynamo.Load
	Corrections []dynamo.Load
	Forces      [][]float64
	Actuators   []int
	Final       dynamo.Forces
	Metrics     map[string]float64
	Ticks       int
	Overruns    int
	MaxStep     time.Duration
	Wall        time.Duration
}

// SimError reports the tick a run stopped at. Err, when set, is the cell
// error and is reachable through errors.Is and errors.As.
type SimError struct {
	Tick    int
	Time    float64
	Message string
	Err     error
}

func (e SimError) Error() string {
	return fmt.Sprintf("tick %d (t=%.4f): %s", e.Tick, e.Time, e.Message)
}

func (e SimError) Unwrap() error { return e.Err }
