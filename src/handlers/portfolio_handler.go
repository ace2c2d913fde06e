package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/username/notafolio/backend/src/logger"
	"github.com/username/notafolio/backend/src/models"
	"github.com/username/notafolio/backend/src/services"
	"github.com/username/notafolio/backend/src/utils"
)

type PortfolioHandler struct {
	importService services.ImportService
}

func NewPortfolioHandler(importService services.ImportService) *PortfolioHandler {
	return &PortfolioHandler{importService: importService}
}

// HandleGetPositions serves the derived position report. With ?quotes=true
// the open positions are enriched with current market prices. Responses
// carry an ETag so unchanged reports cost a 304.
func (h *PortfolioHandler) HandleGetPositions(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	withQuotes := r.URL.Query().Get("quotes") == "true"
	positions, err := h.importService.GetPositions(r.Context(), userID, withQuotes)
	if err != nil {
		logger.L.Error("Failed to compute positions", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to compute positions", http.StatusInternalServerError)
		return
	}
	if positions == nil {
		positions = []models.Position{}
	}

	etag, err := utils.GenerateETag(positions)
	if err == nil {
		if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(positions)
}
