package model

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"

	"climaroute/internal/types"
)

// OutputKind is the classifier's output contract, determined once at load
// time. It is an explicit tagged variant rather than a per-call guess from
// the output array length.
type OutputKind string

const (
	// OutputThreeClass is a softmax distribution over
	// {0 = no rain, 1 = light rain, 2 = heavy rain}.
	OutputThreeClass OutputKind = "three_class"
	// OutputScalar is a single sigmoid P(rain) from a binary-classifier
	// artifact. A compatibility seam, not an error condition.
	OutputScalar OutputKind = "scalar"
)

// Input ranks as declared by the artifact. Rank 3 means one sequence sample
// (one batch, WindowSize timesteps, FeatureCount features); rank 2 means one
// flat sample (one batch, FeatureCount features).
const (
	inputRankSequence = 3
	inputRankFlat     = 2
)

// layerSpec is one dense layer of the serialized network.
// Weights are row-major: Weights[i][j] connects input i to output j.
type layerSpec struct {
	Weights    [][]float64 `json:"weights"`
	Biases     []float64   `json:"biases"`
	Activation string      `json:"activation"`
}

// modelArtifact is the serialized form of the trained classifier.
type modelArtifact struct {
	InputRank int         `json:"input_rank"`
	Layers    []layerSpec `json:"layers"`
}

// Classifier is the loaded rainfall classifier. It is immutable after load
// and safe for concurrent use.
type Classifier struct {
	layers     []layerSpec
	inputRank  int
	inputDim   int
	outputKind OutputKind
	fallback   bool
}

// LoadClassifier reads a classifier artifact from path and probes its input
// capability once, so per-request inference never has to guess the tensor
// shape by trial and error.
func LoadClassifier(path string, logger *slog.Logger) (*Classifier, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model artifact %s: %w", path, err)
	}

	var art modelArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parsing model artifact %s: %w", path, err)
	}

	c, err := newClassifier(art, logger)
	if err != nil {
		return nil, fmt.Errorf("model artifact %s: %w", path, err)
	}

	logger.Info("rainfall classifier loaded",
		"path", path,
		"layers", len(c.layers),
		"input_rank", c.inputRank,
		"output_kind", string(c.outputKind),
		"fallback", c.fallback,
	)

	return c, nil
}

// newClassifier validates the artifact's layer dimensions and resolves the
// input and output contracts.
func newClassifier(art modelArtifact, logger *slog.Logger) (*Classifier, error) {
	if len(art.Layers) == 0 {
		return nil, fmt.Errorf("artifact has no layers")
	}

	// Validate layer chaining: each layer's output width must match the next
	// layer's input width, and biases must match the output width.
	for i, l := range art.Layers {
		if len(l.Weights) == 0 || len(l.Weights[0]) == 0 {
			return nil, fmt.Errorf("layer %d has empty weights", i)
		}
		out := len(l.Weights[0])
		for _, row := range l.Weights {
			if len(row) != out {
				return nil, fmt.Errorf("layer %d has ragged weight rows", i)
			}
		}
		if len(l.Biases) != out {
			return nil, fmt.Errorf("layer %d has %d biases, want %d", i, len(l.Biases), out)
		}
		if i > 0 && len(l.Weights) != len(art.Layers[i-1].Weights[0]) {
			return nil, fmt.Errorf("layer %d input width %d does not match layer %d output width %d",
				i, len(l.Weights), i-1, len(art.Layers[i-1].Weights[0]))
		}
	}

	firstIn := len(art.Layers[0].Weights)
	lastOut := len(art.Layers[len(art.Layers)-1].Weights[0])

	var outputKind OutputKind
	switch lastOut {
	case 3:
		outputKind = OutputThreeClass
	case 1:
		outputKind = OutputScalar
	default:
		return nil, fmt.Errorf("unsupported output width %d, want 3 or 1", lastOut)
	}

	c := &Classifier{
		layers:     art.Layers,
		outputKind: outputKind,
		inputDim:   firstIn,
	}

	// Capability probe: resolve the effective input rank once, here, instead
	// of rediscovering it by failed inference attempts on every request.
	sequenceDim := types.WindowSize * types.FeatureCount
	switch {
	case art.InputRank == inputRankSequence && firstIn == sequenceDim:
		c.inputRank = inputRankSequence
	case firstIn == types.FeatureCount:
		// Either a declared flat artifact, or a sequence declaration whose
		// weights only accept a single row (artifact-type drift between what
		// was trained and what was deployed). The flat path discards the
		// sequential context and produces lower-fidelity predictions.
		c.inputRank = inputRankFlat
		if art.InputRank == inputRankSequence {
			c.fallback = true
			logger.Warn("classifier rejected sequence input shape; using flat single-row fallback",
				"declared_rank", art.InputRank,
				"input_dim", firstIn,
			)
		}
	default:
		return nil, fmt.Errorf("input width %d matches neither sequence (%d) nor flat (%d) shape",
			firstIn, sequenceDim, types.FeatureCount)
	}

	return c, nil
}

// InputRank returns the effective input rank selected at load time: 3 for the
// sequence path, 2 for the flat path.
func (c *Classifier) InputRank() int {
	return c.inputRank
}

// UsesFallback reports whether the flat path was selected because the
// artifact rejected the primary sequence shape.
func (c *Classifier) UsesFallback() bool {
	return c.fallback
}

// Kind returns the classifier's output contract.
func (c *Classifier) Kind() OutputKind {
	return c.outputKind
}

// Predict runs a forward pass over the network for one sample.
// For the sequence path the input is the flattened scaled window
// (WindowSize x FeatureCount values, row-major); for the flat path it is a
// single scaled feature vector.
func (c *Classifier) Predict(input []float64) ([]float64, error) {
	if len(input) != c.inputDim {
		return nil, types.NewAppError(
			types.ErrCodeInternalInference,
			fmt.Sprintf("classifier input has %d values, want %d", len(input), c.inputDim),
			nil,
		)
	}

	activations := input
	for i, l := range c.layers {
		out := make([]float64, len(l.Biases))
		copy(out, l.Biases)
		for in, row := range l.Weights {
			x := activations[in]
			if x == 0 {
				continue
			}
			for j, w := range row {
				out[j] += x * w
			}
		}
		if err := applyActivation(out, l.Activation); err != nil {
			return nil, types.NewAppError(
				types.ErrCodeInternalInference,
				fmt.Sprintf("layer %d: %v", i, err),
				err,
			)
		}
		activations = out
	}

	return activations, nil
}

// applyActivation applies the named activation in place.
func applyActivation(v []float64, name string) error {
	switch name {
	case "", "linear":
		// identity
	case "relu":
		for i, x := range v {
			if x < 0 {
				v[i] = 0
			}
		}
	case "tanh":
		for i, x := range v {
			v[i] = math.Tanh(x)
		}
	case "sigmoid":
		for i, x := range v {
			v[i] = 1 / (1 + math.Exp(-x))
		}
	case "softmax":
		// Shift by the max for numerical stability.
		max := v[0]
		for _, x := range v[1:] {
			if x > max {
				max = x
			}
		}
		var sum float64
		for i, x := range v {
			v[i] = math.Exp(x - max)
			sum += v[i]
		}
		for i := range v {
			v[i] /= sum
		}
	default:
		return fmt.Errorf("unknown activation %q", name)
	}
	return nil
}
