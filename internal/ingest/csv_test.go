package ingest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	input := `Account_Code,Account_Description,Account_Type,Account_Category,Currency
1010,Operating Cash,Asset,Current Assets,USD
2010,Trade Payables,Liability,Current Liabilities,USD
`

	result, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"Account_Code", "Account_Description", "Account_Type", "Account_Category", "Currency"}, result.Columns)
	require.Len(t, result.Accounts, 2)

	first := result.Accounts[0]
	assert.Equal(t, "1010", first.Code)
	assert.Equal(t, "Operating Cash", first.Description)
	assert.Equal(t, "Asset", first.Type)
	assert.Equal(t, "Current Assets", first.Category)
	assert.Equal(t, map[string]string{"Currency": "USD"}, first.Metadata)
}

func TestParseCSVFallbackColumns(t *testing.T) {
	input := `GL_Account,GL_Description,Account_Class,Sub_Class
1010,Operating Cash,Asset,Cash
`

	result, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Accounts, 1)

	account := result.Accounts[0]
	assert.Equal(t, "1010", account.Code)
	assert.Equal(t, "Operating Cash", account.Description)
	assert.Equal(t, "Asset", account.Type)
	assert.Equal(t, "Cash", account.Category)
	assert.Nil(t, account.Metadata)
}

func TestParseCSVPrimaryColumnWinsOverFallback(t *testing.T) {
	input := `Account_Code,GL_Account,Account_Description
1010,9999,Operating Cash
`

	result, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "1010", result.Accounts[0].Code)
}

func TestParseCSVSampleLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("Account_Code,Account_Description\n")
	for i := 0; i < 15; i++ {
		fmt.Fprintf(&b, "10%02d,Account %d\n", i, i)
	}

	result, err := ParseCSV(strings.NewReader(b.String()))
	require.NoError(t, err)

	assert.Len(t, result.Accounts, 15)
	assert.Len(t, result.RawSample, 10)
	assert.Equal(t, "1000", result.RawSample[0]["Account_Code"])
}

func TestParseCSVMissingOptionalFields(t *testing.T) {
	input := `Account_Code,Account_Description
1010,Operating Cash
`

	result, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	account := result.Accounts[0]
	assert.Empty(t, account.Type)
	assert.Empty(t, account.Category)
	assert.Equal(t, "Unknown", account.TypeOrUnknown())
}

func TestParseCSVEmptyFile(t *testing.T) {
	_, err := ParseCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestParseCSVHeaderOnly(t *testing.T) {
	result, err := ParseCSV(strings.NewReader("Account_Code,Account_Description\n"))
	require.NoError(t, err)
	assert.Empty(t, result.Accounts)
	assert.Empty(t, result.RawSample)
}
