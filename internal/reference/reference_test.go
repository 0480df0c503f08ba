package reference

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakvale/ledgermap/internal/model"
)

const testChartJSON = `{
  "total_accounts": 4,
  "account_classes": {
    "Asset": {
      "sub_classes": {
        "Cash": [
          {"account_code": "101000", "description": "Cash - Operating Account"},
          {"account_code": "101100", "description": "Cash - Payroll Account"},
          {"account_code": "102000", "description": "Cash - Money Market"}
        ]
      }
    },
    "Liability": {
      "sub_classes": {
        "Payables": [
          {"account_code": "201000", "description": "Accounts Payable - Trade"}
        ]
      }
    }
  }
}`

const testPatternsCSV = `Source_Account_Code,Target_Account_Code,Mapping_Confidence,Source_Description,Target_Description,Mapping_Type,Notes
1010,101000,95,Operating Cash,Cash - Operating Account,Direct,Primary cash account
1020,101100,92,Payroll Cash,Cash - Payroll Account,Semantic,Dedicated payroll account
`

func writeTestReference(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	chartPath := filepath.Join(dir, "chart.json")
	require.NoError(t, os.WriteFile(chartPath, []byte(testChartJSON), 0o600))

	patternsPath := filepath.Join(dir, "patterns.csv")
	require.NoError(t, os.WriteFile(patternsPath, []byte(testPatternsCSV), 0o600))

	return chartPath, patternsPath
}

func TestLoad(t *testing.T) {
	chartPath, patternsPath := writeTestReference(t)

	ref := Load(chartPath, patternsPath, nil)

	require.NotNil(t, ref.Chart)
	assert.Equal(t, 4, ref.Chart.TotalAccounts)

	require.Len(t, ref.Patterns, 2)
	assert.Equal(t, "1010", ref.Patterns[0].SourceCode)
	assert.Equal(t, "101000", ref.Patterns[0].TargetCode)
	assert.Equal(t, "Direct", ref.Patterns[0].Type)
}

func TestLoadMissingFilesYieldsEmptyReference(t *testing.T) {
	ref := Load("/nonexistent/chart.json", "/nonexistent/patterns.csv", nil)

	assert.Nil(t, ref.Chart)
	assert.Empty(t, ref.Patterns)
	assert.Nil(t, ref.TargetAccounts())
}

func TestLoadEmptyPathsSkipLoading(t *testing.T) {
	ref := Load("", "", nil)
	assert.Nil(t, ref.Chart)
	assert.Empty(t, ref.Patterns)
}

func TestTargetAccounts(t *testing.T) {
	chartPath, _ := writeTestReference(t)
	ref := Load(chartPath, "", nil)

	accounts := ref.TargetAccounts()
	require.Len(t, accounts, 4)

	// Classes walk in sorted order: Asset before Liability.
	assert.Equal(t, model.Account{
		Code:        "101000",
		Description: "Cash - Operating Account",
		Type:        "Asset",
		Category:    "Cash",
	}, accounts[0])
	assert.Equal(t, "201000", accounts[3].Code)
	assert.Equal(t, "Liability", accounts[3].Type)
}

func TestSystemPromptWithoutSession(t *testing.T) {
	chartPath, patternsPath := writeTestReference(t)
	ref := Load(chartPath, patternsPath, nil)

	prompt := ref.SystemPrompt(nil, "")

	assert.Contains(t, prompt, "accounting cross-reference mapping")
	assert.Contains(t, prompt, "Total Available Accounts: 4")
	assert.Contains(t, prompt, "Asset Accounts:")
	assert.Contains(t, prompt, "- Cash: 3 accounts")
	// Only two sample accounts per sub-class.
	assert.Contains(t, prompt, "101000: Cash - Operating Account")
	assert.Contains(t, prompt, "101100: Cash - Payroll Account")
	assert.NotContains(t, prompt, "102000: Cash - Money Market")

	assert.Contains(t, prompt, "ESTABLISHED MAPPING PATTERNS")
	assert.Contains(t, prompt, "1010 -> 101000 (95%)")
	assert.NotContains(t, prompt, "UPLOADED SOURCE FILE CONTEXT")
}

func TestSystemPromptWithSession(t *testing.T) {
	chartPath, patternsPath := writeTestReference(t)
	ref := Load(chartPath, patternsPath, nil)

	session := &model.Session{
		Filename:     "ledger.csv",
		AccountCount: 42,
		UploadTime:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Columns:      []string{"Account_Code", "Account_Description"},
		RawSample: []map[string]string{
			{"Account_Code": "1010", "Account_Description": "Operating Cash"},
		},
	}

	prompt := ref.SystemPrompt(session, `{"phase":"migration"}`)

	assert.Contains(t, prompt, "UPLOADED SOURCE FILE CONTEXT")
	assert.Contains(t, prompt, "Filename: ledger.csv")
	assert.Contains(t, prompt, "Total accounts: 42")
	assert.Contains(t, prompt, "Account_Code, Account_Description")
	assert.Contains(t, prompt, "Operating Cash")
	assert.Contains(t, prompt, `Current mapping context: {"phase":"migration"}`)
}

func TestSystemPromptEmptyReference(t *testing.T) {
	ref := &Reference{}
	prompt := ref.SystemPrompt(nil, "")

	assert.Contains(t, prompt, "accounting cross-reference mapping")
	assert.NotContains(t, prompt, "TARGET ACCOUNT STRUCTURE")
	assert.NotContains(t, prompt, "ESTABLISHED MAPPING PATTERNS")
}

func TestSystemPromptLimitsPatterns(t *testing.T) {
	ref := &Reference{}
	for i := 0; i < 8; i++ {
		ref.Patterns = append(ref.Patterns, Pattern{
			SourceCode: string(rune('A' + i)),
			TargetCode: "101000",
			Confidence: "90",
		})
	}

	prompt := ref.SystemPrompt(nil, "")
	assert.Contains(t, prompt, "E -> 101000")
	assert.NotContains(t, prompt, "F -> 101000")
}
