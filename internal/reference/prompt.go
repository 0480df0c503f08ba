package reference

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/oakvale/ledgermap/internal/model"
)

const basePrompt = `You are an AI assistant specialized in accounting cross-reference mapping between source general-ledger accounts and a target chart of accounts.

MAPPING CONTEXT:
You are helping map accounts FROM an uploaded source ledger TO the target chart of accounts.

KEY CAPABILITIES:
- Analyze source accounts and suggest appropriate target mappings
- Provide confidence scores (85-98% for direct matches, 70-84% for semantic matches)
- Explain mapping logic based on account functions and industry standards
- Follow established mapping patterns from historical data
- Handle bulk operations and data validation

MAPPING GUIDELINES:
1. DIRECT MATCHES (95-98% confidence): Exact functional equivalents
2. SEMANTIC MATCHES (85-94% confidence): Similar function, different naming
3. CONSOLIDATED MATCHES (70-84% confidence): Multiple source accounts to one target

RESPONSE FORMAT for mapping requests:
Always provide mappings in this exact format:
1. [SOURCE_CODE] -> [TARGET_CODE] (confidence%)
   Reasoning: [detailed explanation]

Be conversational but professional, and always prioritize accuracy in accounting mappings.`

// SystemPrompt assembles the chat system prompt: base guidelines, the
// target chart outline, the first historical patterns, the uploaded-file
// context when a session is supplied, and any free-form context JSON.
func (r *Reference) SystemPrompt(session *model.Session, contextJSON string) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if r.Chart != nil {
		b.WriteString(fmt.Sprintf("\n\nTARGET ACCOUNT STRUCTURE:\nTotal Available Accounts: %d\n\nAccount Classes Available:\n", r.Chart.TotalAccounts))
		for _, className := range sortedKeys(r.Chart.AccountClasses) {
			class := r.Chart.AccountClasses[className]
			b.WriteString(fmt.Sprintf("\n%s Accounts:", className))
			for _, subName := range sortedKeys(class.SubClasses) {
				accounts := class.SubClasses[subName]
				b.WriteString(fmt.Sprintf("\n  - %s: %d accounts", subName, len(accounts)))
				// Two sample accounts per sub-class keep the prompt bounded.
				for i, acc := range accounts {
					if i >= 2 {
						break
					}
					b.WriteString(fmt.Sprintf("\n    * %s: %s", acc.Code, acc.Description))
				}
			}
		}
	}

	if len(r.Patterns) > 0 {
		b.WriteString("\n\nESTABLISHED MAPPING PATTERNS (use as reference):\n")
		for i, p := range r.Patterns {
			if i >= 5 {
				break
			}
			b.WriteString(fmt.Sprintf("\n%s -> %s (%s%%)\n  Source: %s\n  Target: %s\n  Type: %s - %s",
				p.SourceCode, p.TargetCode, p.Confidence,
				p.SourceDescription, p.TargetDescription,
				p.Type, p.Notes))
		}
	}

	if session != nil {
		sample, _ := json.MarshalIndent(session.RawSample, "", "  ")
		b.WriteString(fmt.Sprintf(`

UPLOADED SOURCE FILE CONTEXT:
- Filename: %s
- Total accounts: %d
- Columns: %s
- Upload time: %s
- Sample data: %s

You have full access to both the uploaded source accounts AND the complete target account structure. You can:
1. Analyze source accounts and suggest specific target mappings
2. Provide exact target account codes and descriptions
3. Use established mapping patterns as reference
4. Explain confidence levels based on account function similarity

When providing mappings, always reference specific account codes from the target structure above.`,
			session.Filename,
			session.AccountCount,
			strings.Join(session.Columns, ", "),
			session.UploadTime.Format("2006-01-02 15:04:05"),
			string(sample)))
	}

	if contextJSON != "" {
		b.WriteString("\n\nCurrent mapping context: ")
		b.WriteString(contextJSON)
	}

	return b.String()
}
