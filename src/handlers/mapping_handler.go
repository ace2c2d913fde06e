package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/notafolio/backend/src/database"
	"github.com/username/notafolio/backend/src/logger"
	"github.com/username/notafolio/backend/src/model"
	"github.com/username/notafolio/backend/src/models"
	"github.com/username/notafolio/backend/src/security/validation"
	"github.com/username/notafolio/backend/src/services"
	"github.com/username/notafolio/backend/src/utils"
)

type MappingHandler struct{}

func NewMappingHandler() *MappingHandler {
	return &MappingHandler{}
}

// HandleGetMappings lists the user's learned name-to-ticker mappings.
func (h *MappingHandler) HandleGetMappings(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	mappings, err := model.ListTickerMappings(database.DB, userID)
	if err != nil {
		logger.L.Error("Failed to list ticker mappings", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to list ticker mappings", http.StatusInternalServerError)
		return
	}
	if mappings == nil {
		mappings = []models.TickerMapping{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(mappings)
}

// HandlePutMapping saves or overwrites one mapping. The name is
// normalized the same way the import pipeline normalizes instrument
// names, so a mapping saved here is found on the next upload.
func (h *MappingHandler) HandlePutMapping(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	var body struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.SendJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	normalized := services.NormalizeName(body.Name)
	if normalized == "" {
		utils.SendJSONError(w, "Name is required", http.StatusBadRequest)
		return
	}
	symbol, err := validation.SanitizeTickerAnswer(body.Symbol)
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if symbol == "" {
		utils.SendJSONError(w, "Symbol is required", http.StatusBadRequest)
		return
	}

	if err := model.PutTickerMapping(database.DB, userID, normalized, symbol); err != nil {
		logger.L.Error("Failed to save ticker mapping", "userID", userID, "name", normalized, "error", err)
		utils.SendJSONError(w, "Failed to save ticker mapping", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"name":   normalized,
		"symbol": symbol,
	})
}
