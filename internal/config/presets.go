package config

import (
	"sort"

	"github.com/san-kum/m1oa/internal/control"
)

func preset(name string, kp, ki float64, bandwidth float64) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Compensator.Default.Kp = kp
	cfg.Compensator.Default.Ki = ki
	cfg.Actuator.BandwidthHz = bandwidth
	return cfg
}

var Presets = map[string]func() *Config{
	"nominal": DefaultConfig,
	"stiff": func() *Config {
		cfg := preset("stiff", 0.8, 2.0, 20)
		cfg.Compensator.Default.Rolloff = 0.3
		return cfg
	},
	"soft": func() *Config {
		cfg := preset("soft", 0.2, 0.5, 5)
		cfg.Compensator.Default.Leak = 0.995
		return cfg
	},
	"forces-only": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "forces-only"
		cfg.Compensator.Axes = map[string]AxisOverride{
			"Mx": {Disabled: true},
			"My": {Disabled: true},
			"Mz": {Disabled: true},
		}
		return cfg
	},
	"fast": func() *Config {
		cfg := DefaultConfig()
		cfg.Name = "fast"
		cfg.Ts = 0.001
		pid := control.DefaultPID()
		pid.Ts = cfg.Ts
		pid.Leak = 0.9999
		cfg.Compensator.Default = pid
		return cfg
	},
}

func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
