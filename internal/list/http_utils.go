package list

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"severity": "error",
		"error":    msg,
	})
}

// writeInfo reports an informational outcome (duplicate add, nothing to
// copy, like toggled off). These are not errors and always answer 200.
func writeInfo(w http.ResponseWriter, msg string, extra map[string]any) {
	body := map[string]any{
		"severity": "info",
		"message":  msg,
	}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}
