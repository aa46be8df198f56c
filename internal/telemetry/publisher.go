// Package telemetry publishes decimated cell frames to an MQTT broker.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/san-kum/m1oa/internal/dynamo"
	"github.com/san-kum/m1oa/internal/sim"
)

// Frame is the JSON payload of one published tick.
type Frame struct {
	Tick       int           `json:"tick"`
	Time       float64       `json:"time"`
	Load       dynamo.Load   `json:"load"`
	Correction dynamo.Load   `json:"correction"`
	Forces     dynamo.Forces `json:"forces"`
}

// Client is the part of mqtt.Client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

type Options struct {
	Broker   string
	Topic    string
	ClientID string
	// Every publishes one frame per n ticks.
	Every int
	// Queue bounds the frames waiting to be sent; further frames are dropped.
	Queue   int
	Timeout time.Duration
}

// Publisher is a sim.Observer. OnStep copies the tick into a bounded queue
// and never waits on the network; a background goroutine does the sending.
type Publisher struct {
	client  Client
	opts    Options
	log     *slog.Logger
	frames  chan Frame
	done    chan struct{}
	once    sync.Once
	mu      sync.Mutex
	closed  bool
	dropped int
	sent    int
	lastErr error
}

var _ sim.Observer = (*Publisher)(nil)

// Dial connects to opts.Broker and returns a running publisher.
func Dial(opts Options, logger *slog.Logger) (*Publisher, error) {
	if opts.Broker == "" {
		return nil, errors.New("telemetry: broker is required")
	}
	mo := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetConnectTimeout(timeoutOrDefault(opts.Timeout))

	client := mqtt.NewClient(mo)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: connect %s: %w", opts.Broker, token.Error())
	}
	return NewPublisher(client, opts, logger), nil
}

func NewPublisher(client Client, opts Options, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Every <= 0 {
		opts.Every = 1
	}
	if opts.Queue <= 0 {
		opts.Queue = 64
	}
	if opts.Topic == "" {
		opts.Topic = "m1oa/cell"
	}
	p := &Publisher{
		client: client,
		opts:   opts,
		log:    logger.With("topic", opts.Topic),
		frames: make(chan Frame, opts.Queue),
		done:   make(chan struct{}),
	}
	go p.send()
	return p
}

func (p *Publisher) OnStep(s *sim.Sample) {
	if s.Tick%p.opts.Every != 0 {
		return
	}
	f := Frame{
		Tick:       s.Tick,
		Time:       s.Time,
		Load:       *s.Load,
		Correction: s.Correction,
		Forces:     *s.Forces,
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.frames <- f:
	default:
		p.dropped++
	}
}

func (p *Publisher) send() {
	defer close(p.done)
	timeout := timeoutOrDefault(p.opts.Timeout)
	for f := range p.frames {
		payload, err := json.Marshal(f)
		if err != nil {
			p.fail(f.Tick, err)
			continue
		}
		token := p.client.Publish(p.opts.Topic, 0, false, payload)
		if !token.WaitTimeout(timeout) {
			p.fail(f.Tick, errors.New("publish timed out"))
			continue
		}
		if err := token.Error(); err != nil {
			p.fail(f.Tick, err)
			continue
		}
		p.mu.Lock()
		p.sent++
		p.mu.Unlock()
	}
}

func (p *Publisher) fail(tick int, err error) {
	p.log.Warn("telemetry publish failed", "tick", tick, "err", err)
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}

// Stats reports frames sent and frames dropped because the queue was full.
func (p *Publisher) Stats() (sent, dropped int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent, p.dropped
}

// Close drains queued frames, disconnects, and returns the last publish
// error, if any. It is safe to call more than once; steps after Close are
// ignored.
func (p *Publisher) Close() error {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.frames)
		p.mu.Unlock()
		<-p.done
		p.client.Disconnect(250)
		sent, dropped := p.Stats()
		p.log.Info("telemetry closed", "sent", sent, "dropped", dropped)
	})
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 2 * time.Second
	}
	return d
}
