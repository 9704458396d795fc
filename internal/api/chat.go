package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type chatRequest struct {
	Prompt string `json:"prompt"`
}

type tableEntry struct {
	DisplayName string `json:"display_name"`
	ID          string `json:"id"`
}

func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Chat == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat pipeline is not configured")
		return
	}

	var request chatRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid chat request body")
		return
	}
	if strings.TrimSpace(request.Prompt) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "PROMPT_REQUIRED", "prompt is required")
		return
	}

	// The pipeline reports its own failures in the response body, so the
	// status is always 200 once the request parses.
	writeJSON(w, http.StatusOK, deps.Chat.Ask(r.Context(), request.Prompt))
}

func handleListTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Registry == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "TABLES_NOT_CONFIGURED", "table registry is not configured")
		return
	}
	descriptors := deps.Registry.All()
	entries := make([]tableEntry, 0, len(descriptors))
	for _, descriptor := range descriptors {
		entries = append(entries, tableEntry{DisplayName: descriptor.DisplayName, ID: descriptor.ID})
	}
	writeJSON(w, http.StatusOK, entries)
}
