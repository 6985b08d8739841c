// Package model loads the two artifacts produced by the external training
// process -- a fitted min-max feature scaler and a trained rainfall
// classifier -- and runs inference against them in-process. Both artifacts are
// loaded exactly once at startup and are immutable for the process lifetime,
// so they are safe to share across concurrent requests.
package model

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"climaroute/internal/types"
)

// scalerArtifact is the serialized form of the fitted scaler: the per-column
// data minima and maxima captured at training time.
type scalerArtifact struct {
	DataMin []float64 `json:"data_min"`
	DataMax []float64 `json:"data_max"`
}

// Scaler applies the fixed per-column min-max transform fitted at training
// time. It must be applied identically at training and inference time; a
// mismatch silently degrades prediction quality without raising an error.
type Scaler struct {
	min [types.FeatureCount]float64
	max [types.FeatureCount]float64
}

// LoadScaler reads a scaler artifact from path. Artifacts with a .gz suffix
// (or a gzip magic header) are decompressed first; the training process writes
// the scaler as gzip-compressed JSON.
//
// The fitted range bounds are logged at load time: a scaler/model mismatch is
// a known silent-degradation risk, and the bounds are the only diagnostic.
func LoadScaler(path string, logger *slog.Logger) (*Scaler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scaler artifact %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("decompressing scaler artifact %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	var art scalerArtifact
	if err := json.NewDecoder(r).Decode(&art); err != nil {
		return nil, fmt.Errorf("parsing scaler artifact %s: %w", path, err)
	}

	if len(art.DataMin) != types.FeatureCount || len(art.DataMax) != types.FeatureCount {
		return nil, fmt.Errorf(
			"scaler artifact %s has %d/%d columns, want %d",
			path, len(art.DataMin), len(art.DataMax), types.FeatureCount,
		)
	}

	s := &Scaler{}
	for i := 0; i < types.FeatureCount; i++ {
		if art.DataMax[i] < art.DataMin[i] {
			return nil, fmt.Errorf("scaler artifact %s column %d has max < min", path, i)
		}
		s.min[i] = art.DataMin[i]
		s.max[i] = art.DataMax[i]
	}

	logger.Info("feature scaler loaded",
		"path", path,
		"data_min", art.DataMin,
		"data_max", art.DataMax,
	)

	return s, nil
}

// Transform applies the fitted min-max transform to a single feature vector:
// (x - min) / (max - min) per column. Columns with zero fitted span map to 0.
func (s *Scaler) Transform(v types.FeatureVector) types.FeatureVector {
	var out types.FeatureVector
	for i := 0; i < types.FeatureCount; i++ {
		span := s.max[i] - s.min[i]
		if span == 0 {
			out[i] = 0
			continue
		}
		out[i] = (v[i] - s.min[i]) / span
	}
	return out
}

// TransformWindow applies Transform to every row of a window independently.
func (s *Scaler) TransformWindow(w types.FeatureWindow) types.FeatureWindow {
	out := make(types.FeatureWindow, len(w))
	for i, row := range w {
		out[i] = s.Transform(row)
	}
	return out
}
