package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/username/notafolio/backend/src/logger"
	"github.com/username/notafolio/backend/src/models"
	"github.com/username/notafolio/backend/src/services"
	"github.com/username/notafolio/backend/src/utils"
)

type NoteHandler struct {
	importService services.ImportService
}

func NewNoteHandler(importService services.ImportService) *NoteHandler {
	return &NoteHandler{importService: importService}
}

// HandleGetNotes lists the user's imported notes, newest first.
func (h *NoteHandler) HandleGetNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	notes, err := h.importService.GetNotes(userID)
	if err != nil {
		logger.L.Error("Failed to list notes", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to list notes", http.StatusInternalServerError)
		return
	}
	if notes == nil {
		notes = []models.BrokerageNote{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(notes)
}

// HandleGetNoteOperations returns one note's operations in row order.
func (h *NoteHandler) HandleGetNoteOperations(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	noteID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		utils.SendJSONError(w, "Invalid note id", http.StatusBadRequest)
		return
	}

	operations, err := h.importService.GetOperations(userID, noteID)
	if err != nil {
		logger.L.Error("Failed to get note operations", "userID", userID, "noteID", noteID, "error", err)
		utils.SendJSONError(w, "Failed to get note operations", http.StatusInternalServerError)
		return
	}
	if operations == nil {
		operations = []models.Operation{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(operations)
}

// HandleDeleteAllNotes wipes every note and operation for the user.
func (h *NoteHandler) HandleDeleteAllNotes(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	if err := h.importService.DeleteAllNotes(userID); err != nil {
		logger.L.Error("Failed to delete notes", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to delete notes", http.StatusInternalServerError)
		return
	}

	logger.L.Info("All notes deleted", "userID", userID)
	w.WriteHeader(http.StatusNoContent)
}
