// Package mapper drives batches of source accounts through the completion
// client and assembles structured results and summary statistics.
package mapper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oakvale/ledgermap/internal/common"
	"github.com/oakvale/ledgermap/internal/llm"
	"github.com/oakvale/ledgermap/internal/model"
)

// Options configures batch behavior.
type Options struct {
	// ConfidenceThreshold is the score at or above which a result counts
	// as high confidence in the batch summary. Default 80.
	ConfidenceThreshold int
	// CallDelay is the fixed pause between consecutive upstream calls,
	// honoring the API's rate limits. Default 3s.
	CallDelay time.Duration
	// ContinueOnError records a zero-confidence placeholder result for
	// accounts whose upstream call fails instead of aborting the batch.
	ContinueOnError bool
}

// Batch is one unit of mapping work: every source account is matched
// against the same candidate target list.
type Batch struct {
	// OnResult, if set, is invoked after each account completes, in
	// input order. Used for progress reporting.
	OnResult func(model.MappingResult)
	Context  string
	Sources  []model.Account
	Targets  []model.Account
}

// Mapper maps source accounts onto a target chart of accounts using an LLM
// completion client. Accounts are processed strictly sequentially.
type Mapper struct {
	client llm.Client
	logger *slog.Logger
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
	opts   Options
}

// New creates a Mapper. A nil logger falls back to slog.Default.
func New(client llm.Client, logger *slog.Logger, opts Options) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ConfidenceThreshold == 0 {
		opts.ConfidenceThreshold = 80
	}
	if opts.CallDelay == 0 {
		opts.CallDelay = 3 * time.Second
	}

	return &Mapper{
		client: client,
		logger: logger,
		opts:   opts,
		sleep:  sleepContext,
		now:    time.Now,
	}
}

// MapBatch maps every source account in order, producing one MappingResult
// per account and a summary over the whole batch. By default a single
// upstream failure aborts the batch with a MappingError and no results;
// with ContinueOnError the failing account degrades to an UNKNOWN result
// instead.
func (m *Mapper) MapBatch(ctx context.Context, batch Batch) ([]model.MappingResult, model.BatchSummary, error) {
	start := m.now()
	results := make([]model.MappingResult, 0, len(batch.Sources))

	for i, source := range batch.Sources {
		m.logger.Info("mapping account",
			"position", i+1,
			"total", len(batch.Sources),
			"source_code", source.Code)

		accountStart := m.now()
		result, err := m.mapOne(ctx, source, batch.Targets, batch.Context)
		if err != nil {
			if !m.opts.ContinueOnError {
				return nil, model.BatchSummary{}, &common.MappingError{AccountCode: source.Code, Err: err}
			}
			m.logger.Warn("account mapping failed, continuing",
				"source_code", source.Code,
				"error", err)
			result = model.MappingResult{
				SourceCode:   source.Code,
				TargetCode:   "UNKNOWN",
				Reasoning:    fmt.Sprintf("Mapping failed: %v", err),
				Alternatives: []string{},
			}
		}
		result.ProcessingTime = m.now().Sub(accountStart).Seconds()

		results = append(results, result)
		if batch.OnResult != nil {
			batch.OnResult(result)
		}

		// Pause between calls, not after the last one.
		if i < len(batch.Sources)-1 {
			if err := m.sleep(ctx, m.opts.CallDelay); err != nil {
				return nil, model.BatchSummary{}, err
			}
		}
	}

	summary := model.Summarize(results, m.opts.ConfidenceThreshold, m.now().Sub(start).Seconds())

	m.logger.Info("batch completed",
		"total_mappings", summary.TotalMappings,
		"high_confidence", summary.HighConfidence,
		"average_confidence", summary.AverageConfidence)

	return results, summary, nil
}

func (m *Mapper) mapOne(ctx context.Context, source model.Account, targets []model.Account, mappingContext string) (model.MappingResult, error) {
	prompt := buildMappingPrompt(source, targets, mappingContext)

	text, err := m.client.Complete(ctx, llm.UserMessage(prompt), "")
	if err != nil {
		return model.MappingResult{}, err
	}

	parsed := llm.ParseMapping(text)

	m.logger.Debug("account mapped",
		"source_code", source.Code,
		"target_code", parsed.Mapping,
		"confidence", parsed.Confidence)

	return model.MappingResult{
		SourceCode:   source.Code,
		TargetCode:   parsed.Mapping,
		Confidence:   parsed.Confidence,
		Reasoning:    parsed.Reasoning,
		Alternatives: parsed.Alternatives,
	}, nil
}

// buildMappingPrompt enumerates every candidate target account and requests
// the four-line response format the parser understands.
func buildMappingPrompt(source model.Account, targets []model.Account, mappingContext string) string {
	var targetList strings.Builder
	for _, target := range targets {
		targetList.WriteString(target.PromptLine())
		targetList.WriteString("\n")
	}

	contextBlock := ""
	if mappingContext != "" {
		contextBlock = fmt.Sprintf("Additional Context: %s\n\n", mappingContext)
	}

	return fmt.Sprintf(`As an expert accountant, map this source account to the most appropriate target account.

Source Account: %s - %s
Account Type: %s
Category: %s

Available Target Accounts:
%s
%sPlease provide your response in this exact format:
MAPPING: [target_account_code]
CONFIDENCE: [0-100]
REASONING: [brief explanation of why this mapping is appropriate]
ALTERNATIVES: [comma-separated list of alternative account codes, or "None"]

Consider account functionality, business purpose, and financial statement classification.`,
		source.Code,
		source.Description,
		source.TypeOrUnknown(),
		source.CategoryOrUnknown(),
		targetList.String(),
		contextBlock)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
