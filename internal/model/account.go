// Package model defines the core domain types shared across the application.
package model

import "fmt"

// Account is a single entry in a chart of accounts, either from an uploaded
// source ledger or from the target chart being mapped into. Accounts are
// value types and are never mutated after construction.
type Account struct {
	Metadata    map[string]string `json:"metadata,omitempty"`
	Code        string            `json:"account_code"`
	Description string            `json:"account_description"`
	Type        string            `json:"account_type,omitempty"`
	Category    string            `json:"account_category,omitempty"`
}

// TypeOrUnknown returns the account type, or "Unknown" when the ledger did
// not carry one. Prompts always show a type so the model doesn't invent one.
func (a Account) TypeOrUnknown() string {
	if a.Type == "" {
		return "Unknown"
	}
	return a.Type
}

// CategoryOrUnknown returns the account category or "Unknown".
func (a Account) CategoryOrUnknown() string {
	if a.Category == "" {
		return "Unknown"
	}
	return a.Category
}

// PromptLine renders the account as a single candidate line for the mapping
// prompt, e.g. "101000: Cash - Operating Account (Asset)".
func (a Account) PromptLine() string {
	return fmt.Sprintf("%s: %s (%s)", a.Code, a.Description, a.TypeOrUnknown())
}
