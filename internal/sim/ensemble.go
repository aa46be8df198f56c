package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/san-kum/m1oa/internal/balance"
	"github.com/san-kum/m1oa/internal/cell"
)

// Fleet runs one private cell per segment; all cells share one gain matrix.
type Fleet struct {
	gain     *balance.Matrix
	params   cell.Params
	segments int
	scenario func(segment int) Scenario
	metrics  func() []Metric
	log      *slog.Logger
}

func NewFleet(gain *balance.Matrix, params cell.Params, segments int, scenario func(int) Scenario, logger *slog.Logger) *Fleet {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fleet{
		gain:     gain,
		params:   params,
		segments: segments,
		scenario: scenario,
		metrics:  func() []Metric { return nil },
		log:      logger,
	}
}

// WithMetrics sets a factory called once per segment.
func (f *Fleet) WithMetrics(fn func() []Metric) *Fleet {
	f.metrics = fn
	return f
}

func (f *Fleet) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	if f.segments <= 0 {
		return nil, fmt.Errorf("segments must be positive, got %d", f.segments)
	}
	results := make([]*Result, f.segments)
	errs := make([]error, f.segments)

	var wg sync.WaitGroup
	for i := 0; i < f.segments; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			c, err := cell.New(f.gain, f.params)
			if err != nil {
				errs[idx] = err
				return
			}
			c.Initialize()
			defer c.Terminate()

			loop := New(c, f.scenario(idx), f.log.With("segment", idx))
			for _, m := range f.metrics() {
				loop.AddMetric(m)
			}
			results[idx], errs[idx] = loop.Run(ctx, cfg)
		}(i)
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
	}

	return results, nil
}
