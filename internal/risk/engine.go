package risk

import (
	"context"
	"log/slog"
	"math"

	"climaroute/internal/model"
	"climaroute/internal/types"
)

// Inference path labels carried into logs and history records so fallback-path
// (lower-fidelity) predictions stay distinguishable from sequence predictions.
const (
	PathSequence = "sequence"
	PathFlat     = "flat"
	PathDegraded = "degraded"
)

// Engine turns a feature window plus current conditions into a RiskAssessment.
// It holds the shared read-only artifacts; it is stateless per call and safe
// for concurrent use.
type Engine struct {
	artifacts *model.ArtifactSet
	logger    *slog.Logger
}

// NewEngine creates an inference engine over the given artifact set. The set
// may be in the not-loaded state, in which case every assessment is produced
// in degraded mode (zero rain probability, weather-derived fields only).
func NewEngine(artifacts *model.ArtifactSet, logger *slog.Logger) *Engine {
	if artifacts == nil {
		artifacts = model.Empty()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		artifacts: artifacts,
		logger:    logger,
	}
}

// Loaded reports whether the engine has both artifacts available.
func (e *Engine) Loaded() bool {
	return e.artifacts.Loaded()
}

// Path returns the inference path label the engine uses for assessments.
func (e *Engine) Path() string {
	if !e.artifacts.Loaded() {
		return PathDegraded
	}
	if e.artifacts.Classifier.InputRank() == 3 {
		return PathSequence
	}
	return PathFlat
}

// Assess scales every row of the window, classifies it per the input strategy
// selected at artifact load time, and reduces the output to a rain
// probability, safety score, and condition label.
//
// With unloaded artifacts the rain probability defaults to 0 rather than
// hard-failing: condition and temperature remain derivable from raw weather
// data alone.
func (e *Engine) Assess(ctx context.Context, window types.FeatureWindow, current types.CurrentConditions) (*types.RiskAssessment, error) {
	rainProb := 0.0

	if e.artifacts.Loaded() {
		scaled := e.artifacts.Scaler.TransformWindow(window)

		input := flattenWindow(scaled)
		if e.artifacts.Classifier.InputRank() == 2 {
			// Flat path: only the final (most recent) scaled row.
			last := scaled[len(scaled)-1]
			input = last[:]
		}

		probs, err := e.artifacts.Classifier.Predict(input)
		if err != nil {
			return nil, err
		}

		switch e.artifacts.Classifier.Kind() {
		case model.OutputThreeClass:
			// Rain probability is the mass on the non-zero classes.
			rainProb = (probs[1] + probs[2]) * 100
		case model.OutputScalar:
			rainProb = probs[0] * 100
		}

		e.logger.DebugContext(ctx, "risk inference complete",
			"inference_path", e.Path(),
			"rain_probability", rainProb,
		)
	} else {
		e.logger.WarnContext(ctx, "artifacts not loaded; serving degraded assessment",
			"inference_path", PathDegraded,
		)
	}

	rainProb = clampProbability(round2(rainProb))

	return &types.RiskAssessment{
		RainProbability: rainProb,
		SafetyScore:     round1(math.Max(0, 100-rainProb)),
		Temperature:     current.Temperature,
		Humidity:        current.Humidity,
		WindSpeed:       current.WindSpeed,
		Condition:       ConditionLabel(current.WeatherCode),
	}, nil
}

// flattenWindow lays the window out row-major as one sequence sample.
func flattenWindow(w types.FeatureWindow) []float64 {
	out := make([]float64, 0, len(w)*types.FeatureCount)
	for _, row := range w {
		out = append(out, row[:]...)
	}
	return out
}

// clampProbability bounds a probability to [0, 100]. Softmax and sigmoid
// outputs are already bounded; this guards against float rounding at the
// edges.
func clampProbability(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
