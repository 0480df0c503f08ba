package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oakvale/ledgermap/internal/common"
	"github.com/oakvale/ledgermap/internal/ingest"
	"github.com/oakvale/ledgermap/internal/llm"
	"github.com/oakvale/ledgermap/internal/mapper"
	"github.com/oakvale/ledgermap/internal/model"
	"github.com/oakvale/ledgermap/internal/storage"
)

// mappingRequest is the /map-accounts request body.
type mappingRequest struct {
	MappingContext      string          `json:"mapping_context"`
	SourceAccounts      []model.Account `json:"source_accounts"`
	TargetAccounts      []model.Account `json:"target_accounts"`
	ConfidenceThreshold int             `json:"confidence_threshold"`
}

// mappingResponse is the /map-accounts response body.
type mappingResponse struct {
	SessionID string                `json:"session_id"`
	Status    string                `json:"status"`
	Results   []model.MappingResult `json:"results"`
	Summary   model.BatchSummary    `json:"summary"`
}

// chatRequest is the /chat request body.
type chatRequest struct {
	Context      json.RawMessage `json:"context"`
	Message      string          `json:"message"`
	SessionID    string          `json:"session_id"`
	Conversation []llm.Message   `json:"conversation"`
}

func (s *Server) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"message": "Account Mapping API",
		"version": Version,
		"status":  "running",
	})
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":             "healthy",
		"timestamp":          time.Now().Format(time.RFC3339),
		"api_key_configured": s.cfg.APIKeyConfigured,
	})
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "No file uploaded. Use form field 'file'.")
	}

	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		return apiError(c, fiber.StatusBadRequest, "Unsupported file format. Use CSV.")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, fmt.Sprintf("File processing error: %v", err))
	}
	defer func() { _ = f.Close() }()

	parsed, err := ingest.ParseCSV(f)
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, fmt.Sprintf("File processing error: %v", err))
	}

	session := &model.Session{
		ID:           storage.NewSessionID(),
		Filename:     fileHeader.Filename,
		Accounts:     parsed.Accounts,
		UploadTime:   time.Now(),
		AccountCount: len(parsed.Accounts),
		Columns:      parsed.Columns,
		RawSample:    parsed.RawSample,
	}

	if err := s.store.PutSession(c.Context(), session); err != nil {
		return apiError(c, fiber.StatusInternalServerError, fmt.Sprintf("File processing error: %v", err))
	}

	s.logger.Info("ledger uploaded",
		"session_id", session.ID,
		"filename", session.Filename,
		"accounts", session.AccountCount)

	return c.JSON(fiber.Map{
		"status":         "success",
		"session_id":     session.ID,
		"accounts_count": session.AccountCount,
		"accounts":       session.Accounts,
	})
}

func (s *Server) handleMapAccounts(c *fiber.Ctx) error {
	var req mappingRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if req.ConfidenceThreshold == 0 {
		req.ConfidenceThreshold = 80
	}

	sessionID := storage.NewSessionID()
	status := &model.BatchStatus{
		Status:        model.BatchProcessing,
		StartTime:     time.Now(),
		TotalAccounts: len(req.SourceAccounts),
		Results:       []model.MappingResult{},
	}
	if err := s.store.PutBatch(c.Context(), sessionID, status); err != nil {
		return apiError(c, fiber.StatusInternalServerError, fmt.Sprintf("Mapping process failed: %v", err))
	}

	ctx := c.Context()
	results, summary, err := s.mapper.MapBatch(ctx, mapper.Batch{
		Sources: req.SourceAccounts,
		Targets: req.TargetAccounts,
		Context: req.MappingContext,
		OnResult: func(r model.MappingResult) {
			status.ProcessedAccounts++
			status.Results = append(status.Results, r)
			_ = s.store.PutBatch(ctx, sessionID, status)
		},
	})
	if err != nil {
		status.Status = model.BatchFailed
		status.Error = err.Error()
		_ = s.store.PutBatch(ctx, sessionID, status)
		s.logger.Error("mapping batch failed", "session_id", sessionID, "error", err)
		return apiError(c, fiber.StatusInternalServerError, fmt.Sprintf("Mapping process failed: %v", err))
	}

	// Override the summary's threshold with the caller's when it differs
	// from the mapper's configured default.
	summary.ConfidenceThreshold = req.ConfidenceThreshold
	summary.HighConfidence = 0
	for _, r := range results {
		if r.Confidence >= req.ConfidenceThreshold {
			summary.HighConfidence++
		}
	}

	status.Status = model.BatchCompleted
	status.Summary = &summary
	_ = s.store.PutBatch(ctx, sessionID, status)

	return c.JSON(mappingResponse{
		SessionID: sessionID,
		Results:   results,
		Summary:   summary,
		Status:    model.BatchCompleted,
	})
}

func (s *Server) handleMappingStatus(c *fiber.Ctx) error {
	status, err := s.store.GetBatch(c.Context(), c.Params("session_id"))
	if errors.Is(err, common.ErrSessionNotFound) {
		return apiError(c, fiber.StatusNotFound, "Session not found")
	}
	if err != nil {
		return apiError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(status)
}

// fileAnalysisKeywords route chat messages about an uploaded ledger through
// the specialized analysis prompt instead of generic chat.
var fileAnalysisKeywords = []string{"map", "mapping", "analyze", "analysis", "suggest", "recommend", "accounts", "data"}

func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}

	if strings.TrimSpace(req.Message) == "" {
		return apiError(c, fiber.StatusBadRequest, "Message cannot be empty")
	}

	ctx := c.Context()

	var session *model.Session
	if req.SessionID != "" {
		var err error
		session, err = s.store.GetSession(ctx, req.SessionID)
		if err != nil && !errors.Is(err, common.ErrSessionNotFound) {
			return apiError(c, fiber.StatusInternalServerError, fmt.Sprintf("Chat processing failed: %v", err))
		}
		if session == nil {
			s.logger.Warn("no uploaded file data for session", "session_id", req.SessionID)
		}
	}

	var response string
	var err error
	if session != nil && containsKeyword(req.Message) {
		response, err = s.mapper.AnalyzeUpload(ctx, session, req.Message)
	} else {
		contextJSON := ""
		if len(req.Context) > 0 && string(req.Context) != "null" {
			contextJSON = string(req.Context)
		}
		system := s.ref.SystemPrompt(session, contextJSON)
		messages := append(append([]llm.Message{}, req.Conversation...), llm.Message{Role: "user", Content: req.Message})
		response, err = s.mapper.Chat(ctx, messages, system)
	}
	if err != nil {
		s.logger.Error("chat failed", "error", err)
		return apiError(c, fiber.StatusInternalServerError, fmt.Sprintf("Chat processing failed: %v", err))
	}

	return c.JSON(fiber.Map{"response": response, "status": "success"})
}

func containsKeyword(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range fileAnalysisKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (s *Server) handleFeedback(c *fiber.Ctx) error {
	var req struct {
		Timestamp string            `json:"timestamp"`
		Changes   []json.RawMessage `json:"changes"`
	}
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}

	s.logger.Info("received feedback", "changes", len(req.Changes), "timestamp", req.Timestamp)

	return c.JSON(fiber.Map{
		"status":        "received",
		"changes_count": len(req.Changes),
	})
}
