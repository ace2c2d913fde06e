package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/username/notafolio/backend/src/logger"
	"github.com/username/notafolio/backend/src/models"
	"github.com/username/notafolio/backend/src/security/validation"
	"github.com/username/notafolio/backend/src/services"
	"github.com/username/notafolio/backend/src/utils"
)

type UploadHandler struct {
	importService services.ImportService
	maxUploadSize int64
}

func NewUploadHandler(importService services.ImportService, maxUploadSize int64) *UploadHandler {
	return &UploadHandler{
		importService: importService,
		maxUploadSize: maxUploadSize,
	}
}

// HandleUpload imports one brokerage note PDF. The multipart form carries
// the document under "file" and, optionally, an "answers" JSON object
// mapping instrument names to tickers; answers stand in for the
// interactive prompt, so a rejected upload can be retried with the
// missing names filled in.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "User not authenticated", http.StatusUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		utils.SendJSONError(w, "File too large or malformed form data", http.StatusRequestEntityTooLarge)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.SendJSONError(w, "Missing 'file' form field", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if contentType := header.Header.Get("Content-Type"); contentType != "" {
		if err := validation.ValidateClientContentType(contentType); err != nil {
			utils.SendJSONError(w, err.Error(), http.StatusUnsupportedMediaType)
			return
		}
	}
	if err := validation.ValidatePDFMagicBytes(file); err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		logger.L.Error("Failed to read uploaded file", "userID", userID, "error", err)
		utils.SendJSONError(w, "Failed to read uploaded file", http.StatusInternalServerError)
		return
	}

	prompt, err := promptFromAnswers(r.FormValue("answers"))
	if err != nil {
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	note, err := h.importService.ProcessImport(
		r.Context(), bytes.NewReader(fileBytes), int64(len(fileBytes)),
		header.Filename, userID, prompt)
	if err != nil {
		h.sendImportError(w, userID, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(note)
}

// promptFromAnswers turns the optional answers object into a prompt. A
// name without an answer is treated as a declined prompt, which the
// pipeline records as a skip.
func promptFromAnswers(answersJSON string) (services.TickerPrompt, error) {
	answers := make(map[string]string)
	if answersJSON != "" {
		if err := json.Unmarshal([]byte(answersJSON), &answers); err != nil {
			return nil, errors.New("'answers' must be a JSON object of name to ticker")
		}
	}

	normalized := make(map[string]string, len(answers))
	for name, ticker := range answers {
		cleaned, err := validation.SanitizeTickerAnswer(ticker)
		if err != nil {
			return nil, err
		}
		if cleaned == "" {
			continue
		}
		normalized[services.NormalizeName(name)] = cleaned
	}

	return services.PromptFunc(func(ctx context.Context, rawName string, candidate models.TradeCandidate) (string, error) {
		if ticker, found := normalized[services.NormalizeName(rawName)]; found {
			return ticker, nil
		}
		return "", services.ErrPromptCancelled
	}), nil
}

func (h *UploadHandler) sendImportError(w http.ResponseWriter, userID int64, err error) {
	var rejection *services.ImportRejection
	if errors.As(err, &rejection) {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, services.ErrDuplicateNote) {
			status = http.StatusConflict
		}
		logger.L.Info("Note import rejected", "userID", userID, "reason", rejection.Message, "skips", len(rejection.Skips))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": rejection.Message,
			"skips": rejection.Skips,
		})
		return
	}

	logger.L.Error("Note import failed", "userID", userID, "error", err)
	utils.SendJSONError(w, "Failed to import brokerage note", http.StatusInternalServerError)
}
