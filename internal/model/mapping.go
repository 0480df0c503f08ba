package model

import "math"

// MappingResult is the structured outcome of mapping one source account to
// the target chart. Confidence is the model's self-reported integer score in
// [0, 100]; it is parsed and clamped, never trusted to be well-formed.
type MappingResult struct {
	SourceCode     string   `json:"source_account_code"`
	TargetCode     string   `json:"target_account_code"`
	Reasoning      string   `json:"reasoning"`
	Alternatives   []string `json:"alternatives"`
	Confidence     int      `json:"confidence_score"`
	ProcessingTime float64  `json:"processing_time"`
}

// BatchSummary aggregates a completed batch of mapping results. It is
// recomputed fresh for every batch and never persisted on its own.
type BatchSummary struct {
	TotalMappings       int     `json:"total_mappings"`
	HighConfidence      int     `json:"high_confidence_mappings"`
	AverageConfidence   float64 `json:"average_confidence"`
	ProcessingTime      float64 `json:"processing_time"`
	ConfidenceThreshold int     `json:"confidence_threshold"`
}

// Summarize computes the batch summary for a slice of results. An empty
// batch yields an average confidence of 0, not NaN.
func Summarize(results []MappingResult, threshold int, elapsedSeconds float64) BatchSummary {
	summary := BatchSummary{
		TotalMappings:       len(results),
		ProcessingTime:      math.Round(elapsedSeconds*100) / 100,
		ConfidenceThreshold: threshold,
	}

	if len(results) == 0 {
		return summary
	}

	total := 0
	for _, r := range results {
		total += r.Confidence
		if r.Confidence >= threshold {
			summary.HighConfidence++
		}
	}
	summary.AverageConfidence = math.Round(float64(total)/float64(len(results))*10) / 10

	return summary
}
