// Package autoscale computes target replica counts from observed load
// against a per-function scaling policy.
package autoscale

import "math"

// ScalingPolicy bounds and tunes replica calculation for one function.
type ScalingPolicy struct {
	MinReplicas                int
	MaxReplicas                int
	TargetConcurrency          float64
	ScaleUpStabilizationWindowSeconds   int
	ScaleDownStabilizationWindowSeconds int
}

// DefaultScalingPolicy mirrors the orchestrator's built-in defaults.
func DefaultScalingPolicy() ScalingPolicy {
	return ScalingPolicy{
		MinReplicas:                         1,
		MaxReplicas:                         10,
		TargetConcurrency:                   50.0,
		ScaleUpStabilizationWindowSeconds:   0,
		ScaleDownStabilizationWindowSeconds: 30,
	}
}

// Autoscaler computes desired replica counts under a ScalingPolicy.
type Autoscaler struct {
	policy ScalingPolicy
}

// New creates an Autoscaler bound to policy.
func New(policy ScalingPolicy) *Autoscaler {
	return &Autoscaler{policy: policy}
}

// CalculateReplicas returns the desired replica count for totalLoad given
// the policy's target concurrency per replica, clamped to
// [MinReplicas, MaxReplicas]. Non-positive load always yields MinReplicas.
func (a *Autoscaler) CalculateReplicas(currentReplicas int, totalLoad float64) int {
	if totalLoad <= 0 {
		return a.policy.MinReplicas
	}

	desired := int(math.Ceil(totalLoad / a.policy.TargetConcurrency))

	if desired < a.policy.MinReplicas {
		desired = a.policy.MinReplicas
	}
	if desired > a.policy.MaxReplicas {
		desired = a.policy.MaxReplicas
	}
	return desired
}

// Policy returns the autoscaler's bound policy.
func (a *Autoscaler) Policy() ScalingPolicy {
	return a.policy
}
