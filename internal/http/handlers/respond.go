package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/emify/backend/internal/weberr"
)

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondWithError(w http.ResponseWriter, err *weberr.Error) {
	weberr.WriteJSON(w, err)
}

func respondWithValidationError(w http.ResponseWriter, fields map[string]string) {
	weberr.WriteValidation(w, fields)
}
