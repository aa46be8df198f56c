package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/m1oa/internal/actuator"
	"github.com/san-kum/m1oa/internal/balance"
	"github.com/san-kum/m1oa/internal/cell"
	"github.com/san-kum/m1oa/internal/control"
	"github.com/san-kum/m1oa/internal/dynamo"
)

const (
	DefaultTs        = 0.01
	DefaultBandwidth = cell.DefaultBandwidth
	DefaultTicks     = 1000
	DefaultTopic     = "m1/oa/forces"
	DefaultBroker    = "tcp://localhost:1883"
	DefaultClientID  = "m1oa-cell"
	DefaultScenario  = "step:fx=1"
)

type Config struct {
	Name        string            `yaml:"name"`
	Ts          float64           `yaml:"ts"`
	Compensator CompensatorConfig `yaml:"compensator"`
	Actuator    ActuatorConfig    `yaml:"actuator"`
	Matrix      MatrixConfig      `yaml:"matrix"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Run         RunConfig         `yaml:"run"`
}

type CompensatorConfig struct {
	Default control.PID             `yaml:"default"`
	Axes    map[string]AxisOverride `yaml:"axes,omitempty"`
}

// AxisOverride replaces selected PID fields on one axis.
type AxisOverride struct {
	Kp       *float64 `yaml:"kp,omitempty"`
	Ki       *float64 `yaml:"ki,omitempty"`
	Kd       *float64 `yaml:"kd,omitempty"`
	N        *float64 `yaml:"n,omitempty"`
	Leak     *float64 `yaml:"leak,omitempty"`
	Rolloff  *float64 `yaml:"rolloff,omitempty"`
	Disabled bool     `yaml:"disabled,omitempty"`
}

type ActuatorConfig struct {
	BandwidthHz float64 `yaml:"bandwidth_hz"`
	// Pole, when set, wins over BandwidthHz. 0 is a pass-through actuator.
	Pole *float64 `yaml:"pole,omitempty"`
}

type MatrixConfig struct {
	File string `yaml:"file,omitempty"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	Every    int    `yaml:"every"`
}

type RunConfig struct {
	Ticks    int           `yaml:"ticks"`
	Period   time.Duration `yaml:"period,omitempty"`
	Scenario string        `yaml:"scenario"`
	Record   int           `yaml:"record"`
	Segments int           `yaml:"segments"`
}

func DefaultConfig() *Config {
	pid := control.DefaultPID()
	pid.Ts = DefaultTs
	return &Config{
		Name:        "nominal",
		Ts:          DefaultTs,
		Compensator: CompensatorConfig{Default: pid},
		Actuator:    ActuatorConfig{BandwidthHz: DefaultBandwidth},
		Telemetry: TelemetryConfig{
			Broker:   DefaultBroker,
			Topic:    DefaultTopic,
			ClientID: DefaultClientID,
			Every:    10,
		},
		Run: RunConfig{
			Ticks:    DefaultTicks,
			Scenario: DefaultScenario,
			Record:   1,
			Segments: 1,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Ts <= 0 {
		return fmt.Errorf("config: ts must be positive, got %g", c.Ts)
	}
	for name := range c.Compensator.Axes {
		if _, err := dynamo.ParseAxis(name); err != nil {
			return fmt.Errorf("config: compensator.axes: %w", err)
		}
	}
	if _, err := c.Params(); err != nil {
		return err
	}
	if c.Run.Ticks < 0 {
		return fmt.Errorf("config: run.ticks must not be negative, got %d", c.Run.Ticks)
	}
	if c.Run.Record < 0 {
		return fmt.Errorf("config: run.record must not be negative, got %d", c.Run.Record)
	}
	if c.Telemetry.Enabled && c.Telemetry.Topic == "" {
		return fmt.Errorf("config: telemetry.topic is required when telemetry is enabled")
	}
	return nil
}

// PID returns the effective parameters of one axis; the bool is false when
// the axis is disabled.
func (c *Config) PID(a dynamo.Axis) (control.PID, bool) {
	p := c.Compensator.Default
	p.Ts = c.Ts

	for name, o := range c.Compensator.Axes {
		if !strings.EqualFold(name, a.String()) {
			continue
		}
		if o.Disabled {
			return p, false
		}
		set(&p.Kp, o.Kp)
		set(&p.Ki, o.Ki)
		set(&p.Kd, o.Kd)
		set(&p.N, o.N)
		set(&p.Leak, o.Leak)
		set(&p.Rolloff, o.Rolloff)
	}
	return p, true
}

func set(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

// ActuatorPole resolves the actuator pole from the pole or the bandwidth.
func (c *Config) ActuatorPole() float64 {
	if c.Actuator.Pole != nil {
		return *c.Actuator.Pole
	}
	return actuator.PoleFromBandwidth(c.Actuator.BandwidthHz, c.Ts)
}

// Params converts the document to cell coefficients.
func (c *Config) Params() (cell.Params, error) {
	var p cell.Params
	for _, a := range dynamo.Axes() {
		pid, enabled := c.PID(a)
		if !enabled {
			p.Compensators[a] = control.NewNone()
			continue
		}
		if err := pid.Validate(); err != nil {
			return p, fmt.Errorf("config: %s compensator: %w", a, err)
		}
		p.Compensators[a] = pid.Channel()
	}

	pole := c.ActuatorPole()
	if !(pole >= 0 && pole < 1) {
		return p, fmt.Errorf("config: actuator pole %g outside [0, 1)", pole)
	}
	p.ActuatorPoles = cell.UniformPoles(pole)
	return p, nil
}

// Gain loads the configured matrix file or falls back to the built-in one.
func (c *Config) Gain() (*balance.Matrix, error) {
	if c.Matrix.File == "" {
		return balance.Default(), nil
	}
	m, err := balance.LoadFile(c.Matrix.File)
	if err != nil {
		return nil, fmt.Errorf("config: matrix %s: %w", c.Matrix.File, err)
	}
	return m, nil
}

// AxisNames lists the override keys in a stable order.
func (c *Config) AxisNames() []string {
	names := make([]string, 0, len(c.Compensator.Axes))
	for n := range c.Compensator.Axes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Set assigns one tunable by name: a default PID field (Kp, Ki, Kd, N, Leak,
// Rolloff), bandwidth_hz, or pole.
func (c *Config) Set(name string, v float64) error {
	switch name {
	case "bandwidth_hz":
		c.Actuator.BandwidthHz = v
		c.Actuator.Pole = nil
		return nil
	case "pole":
		c.Actuator.Pole = &v
		return nil
	}
	return c.Compensator.Default.SetParam(name, v)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	if c.Actuator.Pole != nil {
		pole := *c.Actuator.Pole
		out.Actuator.Pole = &pole
	}
	if c.Compensator.Axes != nil {
		out.Compensator.Axes = make(map[string]AxisOverride, len(c.Compensator.Axes))
		for k, v := range c.Compensator.Axes {
			out.Compensator.Axes[k] = v
		}
	}
	return &out
}
