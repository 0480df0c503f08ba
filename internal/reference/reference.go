// Package reference loads the target chart-of-accounts reference and the
// historical mapping patterns used to seed chat system prompts.
package reference

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/oakvale/ledgermap/internal/model"
)

// Chart is the target chart-of-accounts reference structure.
type Chart struct {
	AccountClasses map[string]AccountClass `json:"account_classes"`
	TotalAccounts  int                     `json:"total_accounts"`
}

// AccountClass groups target accounts under a class (Asset, Liability, ...).
type AccountClass struct {
	SubClasses map[string][]ChartAccount `json:"sub_classes"`
}

// ChartAccount is one target account in the reference chart.
type ChartAccount struct {
	Code        string `json:"account_code"`
	Description string `json:"description"`
}

// Pattern is one historical source→target mapping, used as a worked example
// in the chat system prompt.
type Pattern struct {
	SourceCode        string
	TargetCode        string
	Confidence        string
	SourceDescription string
	TargetDescription string
	Type              string
	Notes             string
}

// Reference bundles the optional chart and pattern data. Either may be
// empty when the files are absent; the service degrades to prompts without
// reference context.
type Reference struct {
	Chart    *Chart
	Patterns []Pattern
}

// Load reads the chart JSON and pattern CSV. Missing or unreadable files
// log a warning and yield empty data rather than failing startup, since the
// service is usable without them.
func Load(chartPath, patternsPath string, logger *slog.Logger) *Reference {
	if logger == nil {
		logger = slog.Default()
	}

	ref := &Reference{}

	if chartPath != "" {
		chart, err := loadChart(chartPath)
		if err != nil {
			logger.Warn("could not load account reference", "path", chartPath, "error", err)
		} else {
			ref.Chart = chart
			logger.Info("loaded account reference", "total_accounts", chart.TotalAccounts)
		}
	}

	if patternsPath != "" {
		patterns, err := loadPatterns(patternsPath)
		if err != nil {
			logger.Warn("could not load mapping patterns", "path", patternsPath, "error", err)
		} else {
			ref.Patterns = patterns
			logger.Info("loaded mapping patterns", "count", len(patterns))
		}
	}

	return ref
}

func loadChart(path string) (*Chart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var chart Chart
	if err := json.Unmarshal(data, &chart); err != nil {
		return nil, fmt.Errorf("failed to parse chart reference: %w", err)
	}
	return &chart, nil
}

func loadPatterns(path string) ([]Pattern, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	var patterns []Pattern
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read pattern row: %w", err)
		}

		patterns = append(patterns, Pattern{
			SourceCode:        field(record, "Source_Account_Code"),
			TargetCode:        field(record, "Target_Account_Code"),
			Confidence:        field(record, "Mapping_Confidence"),
			SourceDescription: field(record, "Source_Description"),
			TargetDescription: field(record, "Target_Description"),
			Type:              field(record, "Mapping_Type"),
			Notes:             field(record, "Notes"),
		})
	}

	return patterns, nil
}

// TargetAccounts flattens the reference chart into an account list suitable
// for a mapping batch. Classes and sub-classes are walked in sorted order
// so the output is deterministic.
func (r *Reference) TargetAccounts() []model.Account {
	if r.Chart == nil {
		return nil
	}

	var accounts []model.Account
	for _, className := range sortedKeys(r.Chart.AccountClasses) {
		class := r.Chart.AccountClasses[className]
		for _, subName := range sortedKeys(class.SubClasses) {
			for _, acc := range class.SubClasses[subName] {
				accounts = append(accounts, model.Account{
					Code:        acc.Code,
					Description: acc.Description,
					Type:        className,
					Category:    subName,
				})
			}
		}
	}
	return accounts
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
