package domain

import (
	"fmt"
	"math"
)

// WeightSumTolerance is the allowed drift of TaskWeight+PeerWeight+CodeWeight from 1.0.
const WeightSumTolerance = 0.001

// WeightConfig holds the per-project scoring coefficients, all in fraction space.
// LatePenaltyWeight is not part of the 100% split; it is subtracted per late task.
type WeightConfig struct {
	TaskWeight         float64 `json:"taskWeight"`
	PeerWeight         float64 `json:"peerWeight"`
	CodeWeight         float64 `json:"codeWeight"`
	LatePenaltyWeight  float64 `json:"latePenaltyWeight"`
	FreeriderThreshold float64 `json:"freeriderThreshold"`
	PressureThreshold  float64 `json:"pressureThreshold"`
}

// DefaultWeights returns the weights a new project starts with.
func DefaultWeights() WeightConfig {
	return WeightConfig{
		TaskWeight:         0.5,
		PeerWeight:         0.3,
		CodeWeight:         0.2,
		LatePenaltyWeight:  0.1,
		FreeriderThreshold: 0.3,
		PressureThreshold:  15,
	}
}

// Sum returns the total of the three contribution weights.
func (w WeightConfig) Sum() float64 {
	return w.TaskWeight + w.PeerWeight + w.CodeWeight
}

// Validate checks the 100% split and the ranges of every field.
// Every failure wraps ErrInvalidConfiguration.
func (w WeightConfig) Validate() error {
	fractions := []struct {
		name  string
		value float64
	}{
		{"task weight", w.TaskWeight},
		{"peer weight", w.PeerWeight},
		{"code weight", w.CodeWeight},
		{"late penalty weight", w.LatePenaltyWeight},
		{"free-rider threshold", w.FreeriderThreshold},
	}
	for _, f := range fractions {
		if math.IsNaN(f.value) || f.value < 0 || f.value > 1 {
			return fmt.Errorf("%w: %s must be between 0 and 1, got %.4f", ErrInvalidConfiguration, f.name, f.value)
		}
	}

	if math.Abs(w.Sum()-1.0) > WeightSumTolerance {
		return fmt.Errorf("%w: task + peer + code weights sum to %.4f, must sum to 1.0",
			ErrInvalidConfiguration, w.Sum())
	}

	if math.IsNaN(w.PressureThreshold) || w.PressureThreshold <= 0 {
		return fmt.Errorf("%w: pressure threshold must be positive, got %.4f",
			ErrInvalidConfiguration, w.PressureThreshold)
	}

	return nil
}
