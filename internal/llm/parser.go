package llm

import (
	"regexp"
	"strconv"
	"strings"
)

// ParsedMapping holds the fields extracted from a completion. The requested
// format is four labeled lines (MAPPING, CONFIDENCE, REASONING,
// ALTERNATIVES) but the upstream never guarantees it, so every field has a
// default and parsing never fails.
type ParsedMapping struct {
	Mapping      string
	Reasoning    string
	Raw          string
	Alternatives []string
	Confidence   int
}

const unknownMapping = "UNKNOWN"

var digitsRe = regexp.MustCompile(`\d+`)

// ParseMapping extracts a mapping record from completion text. Labels match
// case-insensitively at the start of a line; REASONING may span multiple
// lines until the next recognized label. Missing fields degrade to defaults
// rather than errors.
func ParseMapping(text string) ParsedMapping {
	out := ParsedMapping{
		Mapping:      unknownMapping,
		Reasoning:    "No reasoning provided",
		Alternatives: []string{},
		Raw:          text,
	}

	var reasoning []string
	inReasoning := false

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)

		switch {
		case strings.HasPrefix(upper, "MAPPING:"):
			inReasoning = false
			if v := strings.TrimSpace(trimmed[len("MAPPING:"):]); v != "" {
				out.Mapping = v
			}
		case strings.HasPrefix(upper, "CONFIDENCE:"):
			inReasoning = false
			out.Confidence = parseConfidence(trimmed[len("CONFIDENCE:"):])
		case strings.HasPrefix(upper, "REASONING:"):
			inReasoning = true
			if v := strings.TrimSpace(trimmed[len("REASONING:"):]); v != "" {
				reasoning = append(reasoning, v)
			}
		case strings.HasPrefix(upper, "ALTERNATIVES:"):
			inReasoning = false
			out.Alternatives = parseAlternatives(trimmed[len("ALTERNATIVES:"):])
		case inReasoning && trimmed != "":
			reasoning = append(reasoning, trimmed)
		}
	}

	if len(reasoning) > 0 {
		out.Reasoning = strings.Join(reasoning, "\n")
	}

	return out
}

// parseConfidence pulls the first run of digits out of the value and clamps
// it to [0, 100]. Anything unparseable is 0.
func parseConfidence(value string) int {
	digits := digitsRe.FindString(value)
	if digits == "" {
		return 0
	}

	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// parseAlternatives splits a comma-separated list of account codes,
// dropping empties and the literal "None" placeholder in any case.
func parseAlternatives(value string) []string {
	alternatives := []string{}
	for _, part := range strings.Split(value, ",") {
		alt := strings.TrimSpace(part)
		if alt == "" || strings.EqualFold(alt, "none") {
			continue
		}
		alternatives = append(alternatives, alt)
	}
	return alternatives
}
