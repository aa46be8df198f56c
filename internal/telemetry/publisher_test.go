package telemetry

import (
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/san-kum/m1oa/internal/dynamo"
	"github.com/san-kum/m1oa/internal/sim"
)

type fakeToken struct{ err error }

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }

func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type fakeClient struct {
	mu           sync.Mutex
	topics       []string
	payloads     [][]byte
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	c.payloads = append(c.payloads, payload.([]byte))
	return fakeToken{err: c.err}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	c.disconnected = true
	c.mu.Unlock()
}

func step(p *Publisher, tick int, fx float64) {
	load := dynamo.Load{fx}
	var offset, forces dynamo.Forces
	forces[334] = fx * 2
	p.OnStep(&sim.Sample{Tick: tick, Load: &load, Offset: &offset, Forces: &forces, Correction: load})
}

func TestPublisherDecimates(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, Options{Topic: "seg/1", Every: 5}, nil)

	for i := 0; i < 20; i++ {
		step(p, i, float64(i))
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if len(client.payloads) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(client.payloads))
	}
	if !client.disconnected {
		t.Error("client not disconnected")
	}
	if client.topics[0] != "seg/1" {
		t.Errorf("topic = %q", client.topics[0])
	}

	var f Frame
	if err := json.Unmarshal(client.payloads[3], &f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if f.Tick != 15 || f.Load[dynamo.Fx] != 15 || f.Forces[334] != 30 {
		t.Errorf("unexpected frame %d %v %v", f.Tick, f.Load[0], f.Forces[334])
	}
}

func TestPublisherReportsError(t *testing.T) {
	client := &fakeClient{err: errors.New("broker gone")}
	p := NewPublisher(client, Options{}, nil)
	step(p, 0, 1)

	if err := p.Close(); err == nil {
		t.Error("expected publish error from Close")
	}
	if err := p.Close(); err == nil {
		t.Error("second Close should report the same error")
	}
}

func TestPublisherNonFiniteFrame(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, Options{}, nil)
	step(p, 0, math.NaN())
	step(p, 1, math.Inf(-1))
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if sent, _ := p.Stats(); sent != 2 {
		t.Fatalf("expected 2 frames sent, got %d", sent)
	}

	var f Frame
	if err := json.Unmarshal(client.payloads[0], &f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !math.IsNaN(f.Load[dynamo.Fx]) || !math.IsNaN(f.Forces[334]) {
		t.Errorf("NaN lost: %v %v", f.Load[dynamo.Fx], f.Forces[334])
	}
	if err := json.Unmarshal(client.payloads[1], &f); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !math.IsInf(f.Correction[dynamo.Fx], -1) {
		t.Errorf("expected -Inf correction, got %v", f.Correction[dynamo.Fx])
	}
}

func TestPublisherIgnoresStepsAfterClose(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, Options{}, nil)
	step(p, 0, 1)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	step(p, 1, 2)
	step(p, 2, 3)

	if len(client.payloads) != 1 {
		t.Errorf("expected 1 frame, got %d", len(client.payloads))
	}
}

func TestDialRequiresBroker(t *testing.T) {
	if _, err := Dial(Options{}, nil); err == nil {
		t.Error("expected error without broker")
	}
}
