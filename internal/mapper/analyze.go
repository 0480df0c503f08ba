package mapper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oakvale/ledgermap/internal/llm"
	"github.com/oakvale/ledgermap/internal/model"
)

// AnalyzeUpload answers a free-text query about an uploaded ledger by
// sending the session's column list and a sample of accounts to the model.
func (m *Mapper) AnalyzeUpload(ctx context.Context, session *model.Session, query string) (string, error) {
	sample := session.Accounts
	if len(sample) > 10 {
		sample = sample[:10]
	}

	sampleJSON, err := json.MarshalIndent(sample, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode account sample: %w", err)
	}

	prompt := fmt.Sprintf(`Based on the uploaded file '%s' with %d accounts, please analyze the data and respond to: %s

ACCOUNT DATA STRUCTURE:
Columns: %s

SAMPLE ACCOUNTS (first %d):
%s

Please provide a comprehensive analysis including:
1. Data quality assessment
2. Account categorization insights
3. Potential mapping challenges
4. Specific recommendations based on the user's query

If the user is asking for mappings, provide detailed mapping suggestions with confidence levels.`,
		session.Filename,
		session.AccountCount,
		query,
		strings.Join(session.Columns, ", "),
		len(sample),
		string(sampleJSON))

	return m.client.Complete(ctx, llm.UserMessage(prompt), "")
}

// Chat forwards a conversation to the completion client under the given
// system prompt.
func (m *Mapper) Chat(ctx context.Context, messages []llm.Message, system string) (string, error) {
	return m.client.Complete(ctx, messages, system)
}
