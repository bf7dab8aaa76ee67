package search

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Citation renders a result's provenance in the bracket format the model is
// instructed to echo, e.g. "[29 CFR 1910 §1910.132 - Personal Protective
// Equipment]". Missing fields collapse cleanly.
func Citation(r Result) string {
	var b strings.Builder
	b.WriteString(r.Regulation)
	if r.Section != "" {
		b.WriteString(" §")
		b.WriteString(r.Section)
	}
	if r.Title != "" {
		b.WriteString(" - ")
		b.WriteString(r.Title)
	}
	return "[" + b.String() + "]"
}

// BuildContext concatenates retrieved passages into the context block
// injected into the system prompt. Each passage is preceded by its citation
// so the model can attribute claims to sources.
func BuildContext(results []Result) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s\n%s", Citation(r), strings.TrimSpace(r.Content))
	}
	return b.String()
}

// SystemPrompt builds the system message for a chat completion. siteName
// identifies the assistant; contextBlock may be empty, in which case the
// model is told to decline rather than guess.
func SystemPrompt(siteName, contextBlock string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the %s assistant, answering questions about United States federal regulations.\n", siteName)
	b.WriteString("Answer only from the reference excerpts below. ")
	b.WriteString("Cite every claim with the bracketed reference exactly as given, e.g. [29 CFR 1910 §1910.132 - Personal Protective Equipment]. ")
	b.WriteString("If the excerpts do not contain the answer, say so plainly instead of guessing. ")
	b.WriteString("Regulatory text is not legal advice; remind the user of that when they ask for advice.\n")
	if contextBlock == "" {
		b.WriteString("\nNo reference excerpts were retrieved for this question.")
	} else {
		b.WriteString("\nReference excerpts:\n\n")
		b.WriteString(contextBlock)
	}
	return b.String()
}

// cases.Caser is stateful and not safe for concurrent use, so DisplayName
// builds a fresh one per call.
var titleLang = language.AmericanEnglish

// DisplayName renders a stored regulation key as a human-readable name for
// the regulations summary, e.g. "osha-1910" → "Osha 1910".
func DisplayName(regulation string) string {
	s := strings.NewReplacer("-", " ", "_", " ").Replace(regulation)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return regulation
	}
	return cases.Title(titleLang, cases.NoLower).String(s)
}
