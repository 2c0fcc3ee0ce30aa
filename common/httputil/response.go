package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// WriteJSON writes data as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// WriteError writes {"error": message}.
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// Result is the envelope returned by ingestion and admin endpoints.
type Result struct {
	OK     bool        `json:"ok"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// WriteOK writes {"ok": true, "result": result} with status 200.
func WriteOK(w http.ResponseWriter, result interface{}) {
	WriteJSON(w, http.StatusOK, Result{OK: true, Result: result})
}

// WriteFailure writes {"ok": false, "error": message}.
func WriteFailure(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Result{OK: false, Error: message})
}
