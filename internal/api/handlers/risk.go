// Package handlers contains the HTTP handler implementations for the
// ClimaRoute risk API: single-location scoring, the weather detail view, and
// batch segment scoring for route planning.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"climaroute/internal/core"
	"climaroute/internal/risk"
	"climaroute/internal/types"
)

// RiskServiceInterface defines the service contract for the risk handler.
// Matches *risk.Service but is defined locally to keep the handler decoupled
// and mockable.
type RiskServiceInterface interface {
	AssessLocation(ctx context.Context, lat, lon float64) (*types.RiskAssessment, error)
	ScoreSegments(ctx context.Context, segments []risk.SegmentRequest) []types.SegmentResult
}

// RiskHandler maps HTTP requests to the risk inference pipeline.
type RiskHandler struct {
	service   RiskServiceInterface
	validator *core.Validator
	logger    *slog.Logger
}

// NewRiskHandler creates a RiskHandler with the provided dependencies.
func NewRiskHandler(svc RiskServiceInterface, val *core.Validator, logger *slog.Logger) *RiskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RiskHandler{
		service:   svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the prediction endpoints onto the mux. The paths are
// a fixed public contract consumed by the route-planning frontend.
func (h *RiskHandler) RegisterRoutes(r chi.Router) {
	r.Post("/predict_score", h.HandlePredictScore)
	r.Post("/weather_details", h.HandleWeatherDetails)
	r.Post("/segment_weather", h.HandleSegmentWeather)
}

// locationRequest is the body of the single-location endpoints. Coordinates
// are pointers so a missing field is distinguishable from zero.
type locationRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,latitude"`
	Longitude *float64 `json:"longitude" validate:"required,longitude"`
}

// predictScoreResponse is the path-scoring payload.
type predictScoreResponse struct {
	SafetyScore float64 `json:"safety_score"`
	Condition   string  `json:"condition"`
	RainProb    float64 `json:"rain_prob"`
}

// predictionDetail is the advisory block of the detail-view payload.
type predictionDetail struct {
	Status      string  `json:"status"`
	Message     string  `json:"message"`
	Probability float64 `json:"probability"`
}

// weatherDetailsResponse is the detail-view payload.
type weatherDetailsResponse struct {
	Current    types.RiskAssessment `json:"current"`
	Prediction predictionDetail     `json:"prediction"`
}

// segmentWeatherRequest is the body of the batch segment endpoint.
type segmentWeatherRequest struct {
	Segments []risk.SegmentRequest `json:"segments" validate:"dive"`
}

// segmentWeatherResponse is the batch segment payload. Unreachable segments
// are omitted, so the array may be shorter than the request.
type segmentWeatherResponse struct {
	Segments []types.SegmentResult `json:"segments"`
}

// HandlePredictScore handles POST /predict_score: the compact scoring payload
// used by route path scoring.
func (h *RiskHandler) HandlePredictScore(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeLocation(w, r)
	if !ok {
		return
	}

	assessment, err := h.service.AssessLocation(r.Context(), *req.Latitude, *req.Longitude)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, predictScoreResponse{
		SafetyScore: assessment.SafetyScore,
		Condition:   assessment.Condition,
		RainProb:    assessment.RainProbability,
	})
}

// HandleWeatherDetails handles POST /weather_details: the full current
// conditions plus the driving-condition advisory shown in the frontend.
func (h *RiskHandler) HandleWeatherDetails(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeLocation(w, r)
	if !ok {
		return
	}

	assessment, err := h.service.AssessLocation(r.Context(), *req.Latitude, *req.Longitude)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	prob := assessment.RainProbability
	status := risk.StatusForProbability(prob)

	core.JSON(w, r, http.StatusOK, weatherDetailsResponse{
		Current: *assessment,
		Prediction: predictionDetail{
			Status:      status,
			Message:     advisoryMessage(prob, status),
			Probability: prob,
		},
	})
}

// HandleSegmentWeather handles POST /segment_weather: batch scoring of named
// route segments. An empty segment list is rejected before any external call;
// individually unfetchable segments are dropped, not failed.
func (h *RiskHandler) HandleSegmentWeather(w http.ResponseWriter, r *http.Request) {
	var req segmentWeatherRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}

	if len(req.Segments) == 0 {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeValidationEmptySegments,
			"no segments provided",
			nil,
		))
		return
	}

	if err := h.validator.ValidateStruct(&req); err != nil {
		core.Error(w, r, err)
		return
	}

	results := h.service.ScoreSegments(r.Context(), req.Segments)

	core.JSON(w, r, http.StatusOK, segmentWeatherResponse{
		Segments: results,
	})
}

// decodeLocation decodes and validates the shared single-location body,
// writing the error response itself on failure.
func (h *RiskHandler) decodeLocation(w http.ResponseWriter, r *http.Request) (*locationRequest, bool) {
	var req locationRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return nil, false
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		core.Error(w, r, err)
		return nil, false
	}
	return &req, true
}

// advisoryMessage renders the human-facing advisory line for the detail view.
// The wording is part of the frontend contract: integral probabilities keep a
// trailing ".0" ("50.0%", not "50%").
func advisoryMessage(prob float64, status string) string {
	s := strconv.FormatFloat(prob, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return "AI Risk Analysis: " + s + "% chance of rain. " + status + " driving conditions."
}
