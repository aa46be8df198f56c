package optim

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/m1oa/internal/config"
	"github.com/san-kum/m1oa/internal/experiment"
)

// GridSearch runs one experiment per point of the Cartesian product of the
// parameter ranges and keeps the point that minimizes a metric.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	log        *slog.Logger
}

func NewGridSearch(params []string, ranges [][]float64, logger *slog.Logger) *GridSearch {
	if logger == nil {
		logger = slog.Default()
	}
	return &GridSearch{paramNames: params, ranges: ranges, log: logger}
}

// Search applies each point to a clone of base with config.Set. Points whose
// configuration is invalid or whose run fails are skipped.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, metricName string) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("optim: %d names for %d ranges", len(g.paramNames), len(g.ranges))
	}

	best := math.Inf(1)
	var bestParams map[string]float64

	err := g.searchRecursive(ctx, 0, make(map[string]float64), base, metricName, &best, &bestParams)
	if err != nil {
		return nil, 0, err
	}
	if bestParams == nil {
		return nil, 0, fmt.Errorf("optim: no grid point produced %q", metricName)
	}
	return bestParams, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	metricName string,
	best *float64,
	bestParams *map[string]float64,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		val, err := g.evaluate(ctx, current, base, metricName)
		if err != nil {
			g.log.Debug("grid point skipped", "params", current, "err", err)
			return nil
		}
		if val < *best {
			*best = val
			*bestParams = make(map[string]float64, len(current))
			for k, v := range current {
				(*bestParams)[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[paramName] = val
		if err := g.searchRecursive(ctx, depth+1, current, base, metricName, best, bestParams); err != nil {
			return err
		}
	}
	delete(current, paramName)
	return nil
}

func (g *GridSearch) evaluate(ctx context.Context, params map[string]float64, base *config.Config, metricName string) (float64, error) {
	cfg := base.Clone()
	for k, v := range params {
		if err := cfg.Set(k, v); err != nil {
			return 0, err
		}
	}

	exp := experiment.New(cfg, g.log)
	if err := exp.Setup(); err != nil {
		return 0, err
	}
	defer exp.Close()

	result, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}
	val, ok := result.Metrics[metricName]
	if !ok {
		return 0, fmt.Errorf("metric %q not recorded", metricName)
	}
	if math.IsNaN(val) {
		return 0, fmt.Errorf("metric %q is NaN", metricName)
	}
	return val, nil
}
