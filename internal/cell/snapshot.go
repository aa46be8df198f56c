package cell

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/san-kum/m1oa/internal/dynamo"
)

// Snapshot captures the last inputs, the last outputs and the persistent state
// of a cell. Non-finite values survive the JSON form (see dynamo.Vector).
type Snapshot struct {
	Inputs  SnapshotInputs  `json:"inputs"`
	Outputs SnapshotOutputs `json:"outputs"`
	States  SnapshotStates  `json:"states"`
	Ticks   uint64          `json:"ticks"`
}

type SnapshotInputs struct {
	Load   dynamo.Vector `json:"load"`
	Offset dynamo.Vector `json:"offset_command"`
}

type SnapshotOutputs struct {
	Forces dynamo.Vector `json:"resultant_force"`
}

type SnapshotStates struct {
	Compensator []dynamo.Vector `json:"compensator"`
	Actuator    dynamo.Vector   `json:"actuator"`
}

// Snapshot copies the cell contents.
func (c *Cell) Snapshot() Snapshot {
	s := Snapshot{
		Inputs: SnapshotInputs{
			Load:   append(dynamo.Vector(nil), c.load[:]...),
			Offset: append(dynamo.Vector(nil), c.offset[:]...),
		},
		Outputs: SnapshotOutputs{Forces: append(dynamo.Vector(nil), c.out[:]...)},
		States: SnapshotStates{
			Compensator: make([]dynamo.Vector, dynamo.NumAxes),
			Actuator:    append(dynamo.Vector(nil), c.act[:]...),
		},
		Ticks: c.ticks,
	}
	for i := range c.comp {
		s.States.Compensator[i] = append(dynamo.Vector(nil), c.comp[i][:]...)
	}
	return s
}

// Validate checks every vector length.
func (s *Snapshot) Validate() error {
	checks := []struct {
		name string
		want int
		got  int
	}{
		{"snapshot load", dynamo.NumAxes, len(s.Inputs.Load)},
		{"snapshot offset command", dynamo.NumActuators, len(s.Inputs.Offset)},
		{"snapshot resultant force", dynamo.NumActuators, len(s.Outputs.Forces)},
		{"snapshot compensator state", dynamo.NumAxes, len(s.States.Compensator)},
		{"snapshot actuator state", dynamo.NumActuators, len(s.States.Actuator)},
	}
	for _, ck := range checks {
		if err := dynamo.CheckLen(ck.name, ck.want, ck.got); err != nil {
			return err
		}
	}
	for i, row := range s.States.Compensator {
		name := fmt.Sprintf("snapshot %s compensator state", dynamo.Axis(i))
		if err := dynamo.CheckLen(name, dynamo.CompensatorOrder, len(row)); err != nil {
			return err
		}
	}
	return nil
}

// Restore loads a snapshot into an initialized cell. The cell is unchanged
// when the snapshot is malformed.
func (c *Cell) Restore(s Snapshot) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}

	copy(c.load[:], s.Inputs.Load)
	copy(c.offset[:], s.Inputs.Offset)
	copy(c.out[:], s.Outputs.Forces)
	for i := range c.comp {
		copy(c.comp[i][:], s.States.Compensator[i])
	}
	copy(c.act[:], s.States.Actuator)
	c.ticks = s.Ticks
	return nil
}

func WriteSnapshot(w io.Writer, s Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// ReadSnapshot decodes and validates a snapshot.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var s Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return Snapshot{}, fmt.Errorf("cell: decode snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
