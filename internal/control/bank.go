package control

import (
	"fmt"

	"github.com/san-kum/m1oa/internal/dynamo"
)

// BankState holds the persistent state of all six channels.
type BankState [dynamo.NumAxes]ChannelState

// Reset zeroes every channel state.
func (s *BankState) Reset() {
	*s = BankState{}
}

// Bank runs one independent channel per load axis.
type Bank struct {
	channels [dynamo.NumAxes]Channel
}

// NewBank rejects channels whose state recursion is not strictly stable.
func NewBank(channels [dynamo.NumAxes]Channel) (*Bank, error) {
	for i := range channels {
		if rho := channels[i].SpectralRadius(); rho >= 1 {
			return nil, fmt.Errorf("%w: %s channel spectral radius %.6f",
				dynamo.ErrUnstable, dynamo.Axis(i), rho)
		}
	}
	return &Bank{channels: channels}, nil
}

// UniformPID realizes the same PID block on every axis.
func UniformPID(p PID) [dynamo.NumAxes]Channel {
	var ch [dynamo.NumAxes]Channel
	for i := range ch {
		ch[i] = p.Channel()
	}
	return ch
}

// Channel returns a copy of the channel driving axis a.
func (b *Bank) Channel(a dynamo.Axis) Channel {
	return b.channels[a]
}

// Compute maps the load vector to the six-axis correction, advancing st.
func (b *Bank) Compute(load *dynamo.Load, st *BankState, out *dynamo.Load) {
	for i := 0; i < dynamo.NumAxes; i++ {
		out[i] = b.channels[i].Step(load[i], &st[i])
	}
}
