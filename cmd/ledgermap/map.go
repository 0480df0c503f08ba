package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oakvale/ledgermap/internal/ingest"
	"github.com/oakvale/ledgermap/internal/llm"
	"github.com/oakvale/ledgermap/internal/mapper"
	"github.com/oakvale/ledgermap/internal/model"
)

func mapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map a source ledger CSV against a target chart CSV",
		Long: `Reads source and target account CSVs, maps every source account via the
completion API, and writes the results to stdout. Failed accounts are
reported as UNKNOWN with the error in the reasoning column rather than
aborting the run.`,
		RunE: runMap,
	}

	cmd.Flags().String("source", "", "source ledger CSV (required)")
	cmd.Flags().String("targets", "", "target chart CSV (required)")
	cmd.Flags().String("context", "", "free-text mapping context")
	cmd.Flags().Int("threshold", 80, "high-confidence threshold")
	cmd.Flags().String("format", "json", "output format (json, csv)")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("targets")

	return cmd
}

func runMap(cmd *cobra.Command, _ []string) error {
	sourcePath, _ := cmd.Flags().GetString("source")
	targetPath, _ := cmd.Flags().GetString("targets")
	mappingContext, _ := cmd.Flags().GetString("context")
	threshold, _ := cmd.Flags().GetInt("threshold")
	format, _ := cmd.Flags().GetString("format")

	sources, err := readAccountsCSV(sourcePath)
	if err != nil {
		return fmt.Errorf("failed to read source ledger: %w", err)
	}
	targets, err := readAccountsCSV(targetPath)
	if err != nil {
		return fmt.Errorf("failed to read target chart: %w", err)
	}

	client, err := llm.NewClient(llm.Config{
		APIKey:     viper.GetString("llm.api_key"),
		Model:      viper.GetString("llm.model"),
		MaxRetries: viper.GetInt("llm.max_retries"),
	})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	m := mapper.New(client, slog.Default(), mapper.Options{
		ConfidenceThreshold: threshold,
		ContinueOnError:     true,
	})

	bar := progressbar.NewOptions(len(sources),
		progressbar.OptionSetDescription("Mapping accounts"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	results, summary, err := m.MapBatch(cmd.Context(), mapper.Batch{
		Sources: sources,
		Targets: targets,
		Context: mappingContext,
		OnResult: func(model.MappingResult) {
			_ = bar.Add(1)
		},
	})
	if err != nil {
		return err
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	switch format {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"results": results,
			"summary": summary,
		})
	case "csv":
		return writeResultsCSV(cmd, results)
	default:
		return fmt.Errorf("invalid output format: %s", format)
	}
}

func readAccountsCSV(path string) ([]model.Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	parsed, err := ingest.ParseCSV(f)
	if err != nil {
		return nil, err
	}
	return parsed.Accounts, nil
}

func writeResultsCSV(cmd *cobra.Command, results []model.MappingResult) error {
	w := csv.NewWriter(cmd.OutOrStdout())
	if err := w.Write([]string{"source_account_code", "target_account_code", "confidence_score", "reasoning", "alternatives"}); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{
			r.SourceCode,
			r.TargetCode,
			strconv.Itoa(r.Confidence),
			r.Reasoning,
			strings.Join(r.Alternatives, "; "),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
