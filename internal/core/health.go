package core

import "net/http"

// healthResponse is the JSON body for GET /health. The endpoint always
// returns 200: liveness is about the process, not the artifacts. Missing
// artifacts surface as "degraded" here and as 503 on /ready.
type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Message     string `json:"message"`
}

// readyResponse is the JSON body for GET /ready.
type readyResponse struct {
	Status string `json:"status"`
}

// HandleHealth reports process liveness plus the artifact state.
// Public, unauthenticated, always 200.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	loaded := s.Artifacts.Loaded()

	resp := healthResponse{
		Status:      "healthy",
		ModelLoaded: loaded,
		Message:     "model and scaler loaded",
	}
	if !loaded {
		resp.Status = "degraded"
		resp.Message = "model artifacts not loaded; predictions default to zero rain probability"
	}

	JSON(w, r, http.StatusOK, resp)
}

// HandleReady reports readiness: 200 only once both inference artifacts are
// loaded, 503 otherwise. Orchestrators use this to hold traffic instead of
// crash-looping the process on a missing artifact.
func (s *Server) HandleReady(w http.ResponseWriter, r *http.Request) {
	if !s.Artifacts.Loaded() {
		JSON(w, r, http.StatusServiceUnavailable, readyResponse{Status: "not_ready"})
		return
	}
	JSON(w, r, http.StatusOK, readyResponse{Status: "ready"})
}
