package builtin

import (
	"context"
	"math"

	"github.com/pkg/errors"

	"go.viam.com/reach/plugins"
	"go.viam.com/reach/registry"
)

// ConstantEvaluatorConfig configures the constant evaluator.
type ConstantEvaluatorConfig struct {
	Score float64 `json:"score"`
}

// ConstantEvaluator gives every solution the same score.
type ConstantEvaluator struct {
	score float64
}

// NewConstantEvaluator returns an evaluator always scoring cfg.Score.
func NewConstantEvaluator(cfg ConstantEvaluatorConfig) (*ConstantEvaluator, error) {
	if math.IsNaN(cfg.Score) || math.IsInf(cfg.Score, 0) {
		return nil, errors.Errorf("score must be finite, got %v", cfg.Score)
	}
	return &ConstantEvaluator{score: cfg.Score}, nil
}

func newConstantEvaluator(env registry.Env, attrs registry.Attributes) (plugins.Evaluator, error) {
	cfg := ConstantEvaluatorConfig{Score: 1}
	if err := registry.DecodeAttributes(attrs, &cfg); err != nil {
		return nil, err
	}
	return NewConstantEvaluator(cfg)
}

// CalculateScore returns the configured score.
func (e *ConstantEvaluator) CalculateScore(ctx context.Context, jointPositions map[string]float64) (float64, error) {
	return e.score, nil
}

// JointLimit bounds a single joint.
type JointLimit struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// JointLimitsEvaluatorConfig configures the joint limits evaluator.
type JointLimitsEvaluatorConfig struct {
	Limits map[string]JointLimit `json:"limits"`
}

// JointLimitsEvaluator favors solutions far from joint limits. The score is the smallest
// normalized distance of any limited joint to its nearest limit: 1 at the middle of every range,
// 0 at or beyond a limit. Joints without limits are ignored.
type JointLimitsEvaluator struct {
	limits map[string]JointLimit
}

// NewJointLimitsEvaluator returns a joint limits evaluator for cfg.
func NewJointLimitsEvaluator(cfg JointLimitsEvaluatorConfig) (*JointLimitsEvaluator, error) {
	limits := make(map[string]JointLimit, len(cfg.Limits))
	for name, limit := range cfg.Limits {
		if !(limit.Max > limit.Min) || math.IsInf(limit.Min, 0) || math.IsInf(limit.Max, 0) {
			return nil, errors.Errorf("joint %q needs finite min < max, got [%v, %v]", name, limit.Min, limit.Max)
		}
		limits[name] = limit
	}
	return &JointLimitsEvaluator{limits: limits}, nil
}

func newJointLimitsEvaluator(env registry.Env, attrs registry.Attributes) (plugins.Evaluator, error) {
	var cfg JointLimitsEvaluatorConfig
	if err := registry.DecodeAttributes(attrs, &cfg); err != nil {
		return nil, err
	}
	return NewJointLimitsEvaluator(cfg)
}

// CalculateScore scores the solution by its margin to the joint limits.
func (e *JointLimitsEvaluator) CalculateScore(ctx context.Context, jointPositions map[string]float64) (float64, error) {
	score := 1.0
	for name, limit := range e.limits {
		v, ok := jointPositions[name]
		if !ok {
			return 0, errors.Errorf("no value for limited joint %q", name)
		}
		halfRange := (limit.Max - limit.Min) / 2
		margin := math.Min(v-limit.Min, limit.Max-v) / halfRange
		score = math.Min(score, math.Max(margin, 0))
	}
	return score, nil
}
