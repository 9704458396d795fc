package api

import (
	"encoding/json"
	"net/http"
)

type insightRequest struct {
	PageKey string `json:"page_key"`
}

type insightResponse struct {
	Insights string `json:"insights,omitempty"`
	Error    string `json:"error,omitempty"`
}

// handleDashboardInsights serves all three dashboard endpoints; only the
// dashboard identity differs. Aggregation or model failures are reported in
// the body, never as a transport error.
func handleDashboardInsights(deps Dependencies, name string, w http.ResponseWriter, r *http.Request) {
	if deps.Dashboards == nil || deps.Insights == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "DASHBOARDS_NOT_CONFIGURED", "dashboard dependencies are not configured")
		return
	}

	var request insightRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid insight request body")
		return
	}

	bundle, err := deps.Dashboards.Build(r.Context(), name)
	if err != nil {
		writeJSON(w, http.StatusOK, insightResponse{Error: err.Error()})
		return
	}
	insights, err := deps.Insights.Compose(r.Context(), bundle)
	if err != nil {
		writeJSON(w, http.StatusOK, insightResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, insightResponse{Insights: insights})
}
