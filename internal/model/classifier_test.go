package model

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"climaroute/internal/types"
)

// zeroLayer builds a dense layer of the given shape with all-zero weights and
// biases. Useful for shape tests where the numerics do not matter.
func zeroLayer(in, out int, activation string) layerSpec {
	w := make([][]float64, in)
	for i := range w {
		w[i] = make([]float64, out)
	}
	return layerSpec{
		Weights:    w,
		Biases:     make([]float64, out),
		Activation: activation,
	}
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNewClassifier_SequenceArtifact(t *testing.T) {
	seqDim := types.WindowSize * types.FeatureCount
	art := modelArtifact{
		InputRank: 3,
		Layers: []layerSpec{
			zeroLayer(seqDim, 16, "relu"),
			zeroLayer(16, 3, "softmax"),
		},
	}

	c, err := newClassifier(art, discard())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if c.InputRank() != 3 {
		t.Errorf("expected sequence rank 3, got %d", c.InputRank())
	}
	if c.UsesFallback() {
		t.Error("sequence artifact must not report fallback")
	}
	if c.Kind() != OutputThreeClass {
		t.Errorf("expected three_class output, got %s", c.Kind())
	}
}

func TestNewClassifier_FlatArtifact(t *testing.T) {
	art := modelArtifact{
		InputRank: 2,
		Layers: []layerSpec{
			zeroLayer(types.FeatureCount, 8, "relu"),
			zeroLayer(8, 3, "softmax"),
		},
	}

	c, err := newClassifier(art, discard())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if c.InputRank() != 2 {
		t.Errorf("expected flat rank 2, got %d", c.InputRank())
	}
	if c.UsesFallback() {
		t.Error("declared flat artifact must not report fallback")
	}
}

func TestNewClassifier_SequenceDeclarationWithFlatWeights(t *testing.T) {
	// Declared as a sequence model but the weights only accept one row:
	// artifact-type drift, resolved once at load as the flat fallback.
	art := modelArtifact{
		InputRank: 3,
		Layers: []layerSpec{
			zeroLayer(types.FeatureCount, 3, "softmax"),
		},
	}

	c, err := newClassifier(art, discard())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if c.InputRank() != 2 {
		t.Errorf("expected fallback to flat rank 2, got %d", c.InputRank())
	}
	if !c.UsesFallback() {
		t.Error("expected fallback flag to be set")
	}
}

func TestNewClassifier_ScalarOutput(t *testing.T) {
	art := modelArtifact{
		InputRank: 2,
		Layers: []layerSpec{
			zeroLayer(types.FeatureCount, 1, "sigmoid"),
		},
	}

	c, err := newClassifier(art, discard())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if c.Kind() != OutputScalar {
		t.Errorf("expected scalar output, got %s", c.Kind())
	}
}

func TestNewClassifier_RejectsBadShapes(t *testing.T) {
	cases := []struct {
		name string
		art  modelArtifact
	}{
		{"no layers", modelArtifact{InputRank: 2}},
		{"unsupported output width", modelArtifact{
			InputRank: 2,
			Layers:    []layerSpec{zeroLayer(types.FeatureCount, 5, "softmax")},
		}},
		{"unrecognized input width", modelArtifact{
			InputRank: 2,
			Layers:    []layerSpec{zeroLayer(7, 3, "softmax")},
		}},
		{"mismatched layer chain", modelArtifact{
			InputRank: 2,
			Layers: []layerSpec{
				zeroLayer(types.FeatureCount, 8, "relu"),
				zeroLayer(9, 3, "softmax"),
			},
		}},
		{"bias width mismatch", modelArtifact{
			InputRank: 2,
			Layers: []layerSpec{{
				Weights:    zeroLayer(types.FeatureCount, 3, "").Weights,
				Biases:     []float64{0},
				Activation: "softmax",
			}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := newClassifier(tc.art, discard()); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestPredict_ForwardPass(t *testing.T) {
	// One linear layer with hand-checkable weights: each output column sums
	// one input at weight 1 and the next at weight 2.
	art := modelArtifact{
		InputRank: 2,
		Layers: []layerSpec{
			{
				Weights: [][]float64{
					{1, 0, 0}, {2, 0, 0}, {0, 1, 0}, {0, 2, 0},
					{0, 0, 1}, {0, 0, 2}, {0, 0, 0}, {0, 0, 0},
				},
				Biases:     []float64{0.5, 0, 0},
				Activation: "linear",
			},
		},
	}

	c, err := newClassifier(art, discard())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	out, err := c.Predict([]float64{1, 1, 1, 1, 1, 1, 0, 0})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	want := []float64{3.5, 3, 3}
	for i, w := range want {
		if math.Abs(out[i]-w) > 1e-9 {
			t.Errorf("output %d: expected %v, got %v", i, w, out[i])
		}
	}
}

func TestPredict_SoftmaxDistribution(t *testing.T) {
	art := modelArtifact{
		InputRank: 2,
		Layers: []layerSpec{
			{
				Weights:    zeroLayer(types.FeatureCount, 3, "").Weights,
				Biases:     []float64{0, 1, 2},
				Activation: "softmax",
			},
		},
	}

	c, err := newClassifier(art, discard())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	out, err := c.Predict(make([]float64, types.FeatureCount))
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	var sum float64
	for _, p := range out {
		if p <= 0 || p >= 1 {
			t.Errorf("softmax output outside (0,1): %v", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("softmax outputs must sum to 1, got %v", sum)
	}
	if !(out[2] > out[1] && out[1] > out[0]) {
		t.Errorf("expected monotone distribution from biases, got %v", out)
	}
}

func TestPredict_InputWidthMismatch(t *testing.T) {
	art := modelArtifact{
		InputRank: 2,
		Layers:    []layerSpec{zeroLayer(types.FeatureCount, 3, "softmax")},
	}
	c, err := newClassifier(art, discard())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if _, err := c.Predict([]float64{1, 2, 3}); err == nil {
		t.Fatal("expected error for wrong input width, got nil")
	}
}

func TestPredict_UnknownActivation(t *testing.T) {
	art := modelArtifact{
		InputRank: 2,
		Layers:    []layerSpec{zeroLayer(types.FeatureCount, 3, "gelu")},
	}
	c, err := newClassifier(art, discard())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if _, err := c.Predict(make([]float64, types.FeatureCount)); err == nil {
		t.Fatal("expected error for unknown activation, got nil")
	}
}

func TestLoadClassifier_FromFile(t *testing.T) {
	art := modelArtifact{
		InputRank: 2,
		Layers:    []layerSpec{zeroLayer(types.FeatureCount, 3, "softmax")},
	}
	data, err := json.Marshal(art)
	if err != nil {
		t.Fatalf("marshaling fixture: %v", err)
	}

	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	c, err := LoadClassifier(path, discard())
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if c.Kind() != OutputThreeClass {
		t.Errorf("expected three_class output, got %s", c.Kind())
	}
}

func TestLoadClassifier_MissingFile(t *testing.T) {
	if _, err := LoadClassifier(filepath.Join(t.TempDir(), "nope.json"), discard()); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}
