//go:build integration

// Package test contains integration tests that exercise the full API stack:
// real artifact loading, the weather client against a stub Open-Meteo server,
// the inference engine, and the complete middleware chain. They are skipped
// during plain `go test ./...` and run explicitly:
//
//	go test -v -tags integration ./test/
//
// No external services are required; the weather provider is stubbed with
// httptest and the history database stays disabled.
package test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"climaroute/internal/api/handlers"
	"climaroute/internal/config"
	"climaroute/internal/core"
	"climaroute/internal/model"
	"climaroute/internal/risk"
	"climaroute/internal/weather"
)

// writeArtifacts produces a deterministic artifact pair: an identity scaler
// over [0,1] and a bias-only softmax classifier emitting [0.5, 0.3, 0.2],
// so every assessment yields a 50% rain probability.
func writeArtifacts(t *testing.T, dir string) config.ModelConfig {
	t.Helper()

	scaler := `{"data_min":[0,0,0,0,0,0,0,0],"data_max":[1,1,1,1,1,1,1,1]}`
	scalerPath := filepath.Join(dir, "scaler.json")
	if err := os.WriteFile(scalerPath, []byte(scaler), 0o644); err != nil {
		t.Fatalf("writing scaler: %v", err)
	}

	weights := make([][]float64, 8)
	for i := range weights {
		weights[i] = make([]float64, 3)
	}
	artifact := map[string]any{
		"input_rank": 2,
		"layers": []map[string]any{{
			"weights":    weights,
			"biases":     []float64{math.Log(0.5), math.Log(0.3), math.Log(0.2)},
			"activation": "softmax",
		}},
	}
	data, err := json.Marshal(artifact)
	if err != nil {
		t.Fatalf("marshaling model: %v", err)
	}
	modelPath := filepath.Join(dir, "model.json")
	if err := os.WriteFile(modelPath, data, 0o644); err != nil {
		t.Fatalf("writing model: %v", err)
	}

	return config.ModelConfig{ModelPath: modelPath, ScalerPath: scalerPath}
}

// stubOpenMeteo serves a fixed forecast with hourly rows ending now.
func stubOpenMeteo(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now().UTC().Truncate(time.Hour)
		times := make([]string, 0, 24)
		temps := make([]float64, 0, 24)
		for i := 23; i >= 0; i-- {
			times = append(times, now.Add(-time.Duration(i)*time.Hour).Format("2006-01-02T15:04"))
			temps = append(temps, 20)
		}
		filled := func(v float64) []float64 {
			out := make([]float64, 24)
			for i := range out {
				out[i] = v
			}
			return out
		}
		codes := make([]int, 24)

		resp := map[string]any{
			"hourly": map[string]any{
				"time":                 times,
				"temperature_2m":       temps,
				"relative_humidity_2m": filled(70),
				"dew_point_2m":         filled(14),
				"surface_pressure":     filled(1010),
				"cloud_cover":          filled(50),
				"wind_speed_10m":       filled(9),
				"weather_code":         codes,
			},
			"current": map[string]any{
				"temperature_2m":       21.5,
				"relative_humidity_2m": 68,
				"wind_speed_10m":       10.2,
				"weather_code":         61,
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

// buildStack assembles the full server the way cmd/api does, minus the
// process lifecycle.
func buildStack(t *testing.T, weatherURL string, modelCfg config.ModelConfig) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := &config.Config{
		Environment: "local",
		Weather: config.WeatherConfig{
			BaseURL:      weatherURL,
			FetchTimeout: 5 * time.Second,
			PastDays:     1,
			ForecastDays: 1,
			UserAgent:    "ClimaRoute-Integration/1.0",
		},
		Model: modelCfg,
		Risk:  config.RiskConfig{SegmentConcurrency: 3},
	}

	artifacts, err := model.Load(cfg.Model, logger)
	if err != nil {
		t.Fatalf("loading artifacts: %v", err)
	}

	client := weather.NewClient(&http.Client{Timeout: 5 * time.Second}, cfg.Weather, logger)
	engine := risk.NewEngine(artifacts, logger)
	svc := risk.NewService(client, engine, nil, cfg.Risk.SegmentConcurrency, logger)

	srv, err := core.NewServer(cfg, artifacts, logger)
	if err != nil {
		t.Fatalf("creating server: %v", err)
	}
	riskHandler := handlers.NewRiskHandler(svc, srv.Validator, logger)
	srv.RouteRegistrars = append(srv.RouteRegistrars, riskHandler.RegisterRoutes)
	srv.MountRoutes()

	return srv.Handler()
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFullStack_PredictScore(t *testing.T) {
	provider := stubOpenMeteo(t)
	defer provider.Close()

	h := buildStack(t, provider.URL, writeArtifacts(t, t.TempDir()))

	rec := postJSON(t, h, "/predict_score", `{"latitude": 14.6, "longitude": 121.0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		SafetyScore float64 `json:"safety_score"`
		Condition   string  `json:"condition"`
		RainProb    float64 `json:"rain_prob"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.RainProb != 50 {
		t.Errorf("expected rain_prob 50 from the fixed artifact, got %v", resp.RainProb)
	}
	if resp.SafetyScore != 50 {
		t.Errorf("expected safety_score 50, got %v", resp.SafetyScore)
	}
	if resp.Condition != "Rain" {
		t.Errorf("expected condition Rain from current code 61, got %q", resp.Condition)
	}
}

func TestFullStack_WeatherDetails(t *testing.T) {
	provider := stubOpenMeteo(t)
	defer provider.Close()

	h := buildStack(t, provider.URL, writeArtifacts(t, t.TempDir()))

	rec := postJSON(t, h, "/weather_details", `{"latitude": 14.6, "longitude": 121.0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Prediction struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"prediction"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Prediction.Status != "Caution" {
		t.Errorf("expected Caution at 50%%, got %q", resp.Prediction.Status)
	}
	want := "AI Risk Analysis: 50.0% chance of rain. Caution driving conditions."
	if resp.Prediction.Message != want {
		t.Errorf("expected %q, got %q", want, resp.Prediction.Message)
	}
}

func TestFullStack_SegmentWeather(t *testing.T) {
	provider := stubOpenMeteo(t)
	defer provider.Close()

	h := buildStack(t, provider.URL, writeArtifacts(t, t.TempDir()))

	body := `{"segments": [
		{"name": "EDSA North", "lat": 14.65, "lon": 121.03},
		{"name": "Ortigas", "lat": 14.59, "lon": 121.06}
	]}`
	rec := postJSON(t, h, "/segment_weather", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Segments []struct {
			Name             string  `json:"name"`
			RecommendedSpeed int     `json:"recommended_speed"`
			RainProbability  float64 `json:"rain_probability"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(resp.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(resp.Segments))
	}
	if resp.Segments[0].Name != "EDSA North" || resp.Segments[1].Name != "Ortigas" {
		t.Errorf("segment order not preserved: %+v", resp.Segments)
	}
	// 50% rain probability lands in the 40-70 speed band.
	if resp.Segments[0].RecommendedSpeed != 65 {
		t.Errorf("expected recommended speed 65, got %d", resp.Segments[0].RecommendedSpeed)
	}
}

func TestFullStack_HealthAndReady(t *testing.T) {
	provider := stubOpenMeteo(t)
	defer provider.Close()

	h := buildStack(t, provider.URL, writeArtifacts(t, t.TempDir()))

	for _, path := range []string{"/health", "/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestFullStack_ProviderDownIs500(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"reason":"maintenance"}`)
	}))
	defer provider.Close()

	h := buildStack(t, provider.URL, writeArtifacts(t, t.TempDir()))

	rec := postJSON(t, h, "/predict_score", `{"latitude": 1, "longitude": 1}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when the provider is down, got %d", rec.Code)
	}
}
