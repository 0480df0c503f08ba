// Package ingest parses uploaded ledger files into accounts.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/oakvale/ledgermap/internal/model"
)

// sampleSize is how many raw rows a session keeps for later chat analysis.
const sampleSize = 10

// Ledger exports recognize a handful of header spellings per field; the
// first present column wins.
var (
	codeColumns        = []string{"Account_Code", "GL_Account"}
	descriptionColumns = []string{"Account_Description", "GL_Description"}
	typeColumns        = []string{"Account_Type", "Account_Class"}
	categoryColumns    = []string{"Account_Category", "Sub_Class"}
)

// Result holds a parsed ledger: the accounts plus the raw header and sample
// rows kept on the upload session.
type Result struct {
	Accounts  []model.Account
	Columns   []string
	RawSample []map[string]string
}

// ParseCSV reads a ledger CSV. Account fields come from well-known columns
// with fallbacks; every other column lands in the account's metadata.
func ParseCSV(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	reserved := make(map[string]bool)
	for _, cols := range [][]string{codeColumns, descriptionColumns, typeColumns, categoryColumns} {
		for _, col := range cols {
			reserved[col] = true
		}
	}

	result := &Result{Columns: header}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = strings.TrimSpace(record[i])
			}
		}

		metadata := make(map[string]string)
		for _, col := range header {
			if !reserved[col] && row[col] != "" {
				metadata[col] = row[col]
			}
		}
		if len(metadata) == 0 {
			metadata = nil
		}

		result.Accounts = append(result.Accounts, model.Account{
			Code:        firstValue(row, codeColumns),
			Description: firstValue(row, descriptionColumns),
			Type:        firstValue(row, typeColumns),
			Category:    firstValue(row, categoryColumns),
			Metadata:    metadata,
		})

		if len(result.RawSample) < sampleSize {
			result.RawSample = append(result.RawSample, row)
		}
	}

	return result, nil
}

func firstValue(row map[string]string, columns []string) string {
	for _, col := range columns {
		if v := row[col]; v != "" {
			return v
		}
	}
	return ""
}
