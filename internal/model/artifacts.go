package model

import (
	"fmt"
	"log/slog"

	"climaroute/internal/config"
)

// ArtifactSet bundles the two inference artifacts. It is constructed once at
// startup and passed by reference into request handlers; there is no ambient
// global artifact state.
//
// An ArtifactSet with nil members is the well-defined "not loaded" state: the
// service still serves weather-derived fields with a zero rain probability,
// and readiness probes report not-ready.
type ArtifactSet struct {
	Scaler     *Scaler
	Classifier *Classifier
}

// Load reads both artifacts from their configured paths. Either both load or
// neither does: a partially loaded set would silently skip scaling or
// classification, which is worse than the explicit degraded mode.
func Load(cfg config.ModelConfig, logger *slog.Logger) (*ArtifactSet, error) {
	scaler, err := LoadScaler(cfg.ScalerPath, logger)
	if err != nil {
		return nil, fmt.Errorf("loading scaler: %w", err)
	}

	classifier, err := LoadClassifier(cfg.ModelPath, logger)
	if err != nil {
		return nil, fmt.Errorf("loading classifier: %w", err)
	}

	return &ArtifactSet{
		Scaler:     scaler,
		Classifier: classifier,
	}, nil
}

// Empty returns the not-loaded artifact state.
func Empty() *ArtifactSet {
	return &ArtifactSet{}
}

// Loaded reports whether both artifacts are available for inference.
func (a *ArtifactSet) Loaded() bool {
	return a != nil && a.Scaler != nil && a.Classifier != nil
}
