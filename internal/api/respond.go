package api

import (
	"encoding/json"
	"net/http"
)

// respondWithJSON writes payload as a JSON response with the given status.
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// respondWithError sends an error response in JSON format.
func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithErrorDetails sends an error response with an extra details field.
func respondWithErrorDetails(w http.ResponseWriter, statusCode int, message, details string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error":   message,
		"details": details,
	})
}
