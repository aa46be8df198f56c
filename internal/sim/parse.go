package sim

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/m1oa/internal/dynamo"
)

type scenarioArgs struct {
	load   dynamo.Load
	extra  map[string]float64
	source string
}

func (a scenarioArgs) get(key string, def float64) float64 {
	if v, ok := a.extra[key]; ok {
		return v
	}
	return def
}

var scenarios = map[string]func(a scenarioArgs) (Scenario, error){
	"zero": func(scenarioArgs) (Scenario, error) { return Zero{}, nil },
	"const": func(a scenarioArgs) (Scenario, error) {
		return Constant{Load: a.load, Offset: a.get("offset", 0)}, nil
	},
	"step": func(a scenarioArgs) (Scenario, error) {
		at := a.get("at", 0)
		if at < 0 {
			return nil, fmt.Errorf("%s: at must not be negative", a.source)
		}
		return StepInput{Load: a.load, At: int(at)}, nil
	},
	"sine": func(a scenarioArgs) (Scenario, error) {
		hz := a.get("hz", 1)
		if hz <= 0 {
			return nil, fmt.Errorf("%s: hz must be positive", a.source)
		}
		return Sine{Amplitude: a.load, Hz: hz}, nil
	},
	"noise": func(a scenarioArgs) (Scenario, error) {
		return NewNoise(a.get("sigma", 1), a.get("offset", 0), int64(a.get("seed", 1))), nil
	},
}

// ParseScenario builds a scenario from "kind[:key=value,...]", for example
// "step:fx=1,at=50" or "sine:mz=2,hz=0.5". Axis keys set the load vector;
// other keys are kind-specific.
func ParseScenario(def string) (Scenario, error) {
	kind, rest, _ := strings.Cut(strings.TrimSpace(def), ":")
	kind = strings.ToLower(kind)
	build, ok := scenarios[kind]
	if !ok {
		return nil, fmt.Errorf("unknown scenario: %q (available: %s)", kind, strings.Join(ListScenarios(), ", "))
	}

	args := scenarioArgs{extra: make(map[string]float64), source: def}
	if rest != "" {
		for _, kv := range strings.Split(rest, ",") {
			key, val, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("%s: expected key=value, got %q", def, kv)
			}
			key = strings.TrimSpace(key)
			v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
			if err != nil {
				return nil, fmt.Errorf("%s: %s: %w", def, key, err)
			}
			if axis, err := dynamo.ParseAxis(key); err == nil {
				args.load[axis] = v
				continue
			}
			args.extra[strings.ToLower(key)] = v
		}
	}
	return build(args)
}

func ListScenarios() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
