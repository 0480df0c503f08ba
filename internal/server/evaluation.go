package server

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/oakvale/ledgermap/internal/mapper"
	"github.com/oakvale/ledgermap/internal/model"
	"github.com/oakvale/ledgermap/internal/storage"
)

// evaluationRequest carries test cases and their expected mappings.
type evaluationRequest struct {
	TestCases []struct {
		SourceAccount     string `json:"Source_Account"`
		SourceDescription string `json:"Source_Description"`
		AccountType       string `json:"Account_Type"`
		TestCategory      string `json:"Test_Category"`
	} `json:"test_cases"`
	GroundTruth []struct {
		SourceAccount string `json:"Source_Account"`
		TargetAccount string `json:"Target_Account"`
	} `json:"ground_truth"`
}

// handleEvaluation maps the supplied test cases against the configured
// target chart and scores target-code agreement with the ground truth.
func (s *Server) handleEvaluation(c *fiber.Ctx) error {
	var req evaluationRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if len(req.TestCases) == 0 {
		return apiError(c, fiber.StatusBadRequest, "No test cases provided")
	}

	targets := s.ref.TargetAccounts()
	if len(targets) == 0 {
		return apiError(c, fiber.StatusBadRequest, "No target account reference configured")
	}

	sources := make([]model.Account, 0, len(req.TestCases))
	for _, tc := range req.TestCases {
		sources = append(sources, model.Account{
			Code:        tc.SourceAccount,
			Description: tc.SourceDescription,
			Type:        tc.AccountType,
			Category:    tc.TestCategory,
		})
	}

	expected := make(map[string]string, len(req.GroundTruth))
	for _, gt := range req.GroundTruth {
		expected[gt.SourceAccount] = gt.TargetAccount
	}

	evalID := storage.NewSessionID()
	start := time.Now()

	results, summary, err := s.mapper.MapBatch(c.Context(), mapper.Batch{
		Sources: sources,
		Targets: targets,
		Context: "Evaluation test mapping",
	})
	if err != nil {
		s.logger.Error("evaluation failed", "evaluation_id", evalID, "error", err)
		return apiError(c, fiber.StatusInternalServerError, fmt.Sprintf("Evaluation failed: %v", err))
	}

	correct := 0
	scored := 0
	for _, r := range results {
		want, ok := expected[r.SourceCode]
		if !ok {
			continue
		}
		scored++
		if strings.EqualFold(r.TargetCode, want) {
			correct++
		}
	}

	accuracy := 0.0
	if scored > 0 {
		accuracy = math.Round(float64(correct)/float64(scored)*100) / 100
	}

	return c.JSON(fiber.Map{
		"evaluation_id": evalID,
		"status":        "completed",
		"summary": fiber.Map{
			"status":          "completed",
			"accuracy":        accuracy,
			"avg_confidence":  summary.AverageConfidence,
			"test_cases":      len(req.TestCases),
			"processing_time": math.Round(time.Since(start).Seconds()*100) / 100,
		},
	})
}
