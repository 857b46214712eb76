package internal

import (
	"encoding/json"
	"net/http"
	"strings"

	"hardware-inventory/internal/models"
)

// listParams holds the query parameters of the group listing.
type listParams struct {
	q string
}

func parseListParams(r *http.Request) listParams {
	return listParams{q: strings.TrimSpace(r.URL.Query().Get("q"))}
}

func sendListResponse(w http.ResponseWriter, groups models.Groups, params listParams) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data": groups,
		"meta": map[string]any{
			"groups": len(groups),
			"items":  groups.ItemCount(),
			"q":      params.q,
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// apiError is the error envelope of the JSON endpoints.
type apiError struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, field, details string) {
	writeJSON(w, status, apiError{Error: code, Field: field, Details: details})
}
