// Package scoring turns a material-count snapshot into an island level and a
// human-readable report.
package scoring

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/skybound-club/isle-level/app/modules/level/domain/formula"
	sharedtypes "github.com/skybound-club/isle-level/app/shared/types"
)

const (
	defaultPointsPerLevel = 100

	// Upper bound for the points-to-next-level search. Beyond this the
	// configured formula is effectively flat and the divisor fallback is
	// reported instead.
	maxSearchSpan = int64(1) << 40
)

// Config holds the scoring knobs read from the level section of the config
// file.
type Config struct {
	// Formula maps the net point total to a score; "points" is the
	// placeholder. Empty or invalid formulas degrade to points divided by
	// PointsPerLevel.
	Formula string

	// PointsPerLevel is the divisor of the fallback formula.
	PointsPerLevel int64

	// Weights assigns a point value per material identifier. Unlisted
	// materials score zero.
	Weights map[string]int64

	// DeathPenalty is subtracted from the raw total once per counted death.
	DeathPenalty int64

	// MaxDeaths caps how many deaths are counted; zero means uncapped.
	MaxDeaths int
}

// Calculator computes Results from material counts. Immutable after
// construction and safe for concurrent use.
type Calculator struct {
	cfg      Config
	expr     *formula.Expression
	fallback bool
	logger   *slog.Logger
}

// NewCalculator parses the configured formula once. A formula that does not
// parse is logged and replaced by the divisor fallback; construction never
// fails on user configuration.
func NewCalculator(cfg Config, logger *slog.Logger) *Calculator {
	if cfg.PointsPerLevel <= 0 {
		cfg.PointsPerLevel = defaultPointsPerLevel
	}
	c := &Calculator{cfg: cfg, logger: logger}
	if cfg.Formula == "" {
		c.fallback = true
		return c
	}
	expr, err := formula.Parse(cfg.Formula)
	if err != nil {
		logger.Warn("configured level formula does not parse, using divisor fallback",
			slog.String("formula", cfg.Formula),
			slog.Int64("points_per_level", cfg.PointsPerLevel),
			slog.Any("error", err),
		)
		c.fallback = true
		return c
	}
	c.expr = expr
	return c
}

// FormulaSource returns the formula actually in effect.
func (c *Calculator) FormulaSource() string {
	if c.fallback {
		return fmt.Sprintf("%s / %d", formula.Placeholder, c.cfg.PointsPerLevel)
	}
	return c.expr.String()
}

// Compute aggregates counts into Results. Pure with respect to its inputs.
func (c *Calculator) Compute(counts sharedtypes.MaterialCounts, deaths int, initialLevel sharedtypes.Level) sharedtypes.Results {
	materials := make([]string, 0, len(counts))
	for id := range counts {
		materials = append(materials, id)
	}
	sort.Strings(materials)

	var raw int64
	var unscored int
	lines := make([]string, 0, len(materials)+4)
	for _, id := range materials {
		count := counts[id]
		weight := c.cfg.Weights[id]
		points := count * weight
		if points == 0 {
			if count > 0 {
				unscored++
			}
			continue
		}
		raw += points
		lines = append(lines, fmt.Sprintf("%s: %d x %d = %d", id, count, weight, points))
	}
	if unscored > 0 {
		lines = append(lines, fmt.Sprintf("%d material types have no configured point value", unscored))
	}

	counted := deaths
	if c.cfg.MaxDeaths > 0 && counted > c.cfg.MaxDeaths {
		counted = c.cfg.MaxDeaths
	}
	if counted < 0 {
		counted = 0
	}
	handicap := int64(counted) * c.cfg.DeathPenalty
	if handicap < 0 {
		handicap = 0
	}

	net := raw - handicap
	if net < 0 {
		net = 0
	}

	level := c.levelAt(net)
	toNext := c.pointsToNextLevel(net, level)

	lines = append(lines,
		fmt.Sprintf("raw total: %d points", raw),
		fmt.Sprintf("death handicap: -%d (%d deaths)", handicap, counted),
		fmt.Sprintf("formula: %s", c.FormulaSource()),
		fmt.Sprintf("final level: %d", level),
	)

	return sharedtypes.Results{
		Level:             level,
		InitialLevel:      initialLevel,
		PointsToNextLevel: toNext,
		DeathHandicap:     handicap,
		Report:            lines,
	}
}

// levelAt evaluates the formula at the given point total and floors the
// score. Evaluation failures (division by zero in a user formula, overflow to
// NaN/Inf) degrade to the divisor fallback; a calculation never fails
// outright on a bad formula.
func (c *Calculator) levelAt(points int64) sharedtypes.Level {
	if !c.fallback {
		score, err := c.expr.Evaluate(float64(points))
		if err == nil && !math.IsNaN(score) && !math.IsInf(score, 0) {
			return sharedtypes.Level(math.Floor(score))
		}
		if err != nil {
			c.logger.Warn("level formula evaluation failed, using divisor fallback",
				slog.String("formula", c.expr.String()),
				slog.Int64("points", points),
				slog.Any("error", err),
			)
		}
	}
	return sharedtypes.Level(points / c.cfg.PointsPerLevel)
}

// pointsToNextLevel finds the smallest additional point total that crosses
// level+1. The formula is assumed non-decreasing in points, so an
// exponential probe followed by a binary search is enough; if no crossing is
// found within the search span the divisor fallback's closed form is used.
func (c *Calculator) pointsToNextLevel(net int64, level sharedtypes.Level) int64 {
	target := level + 1
	closedForm := (int64(target) * c.cfg.PointsPerLevel) - net
	if closedForm < 0 {
		closedForm = 0
	}
	if c.fallback {
		return closedForm
	}

	hi := int64(1)
	for c.levelAt(net+hi) < target {
		if hi >= maxSearchSpan {
			return closedForm
		}
		hi *= 2
	}
	lo := hi / 2
	for lo < hi {
		mid := lo + (hi-lo)/2
		if c.levelAt(net+mid) >= target {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return hi
}
