package prompt

import "regexp"

// Injection pattern classes recorded on flags and audits.
const (
	ClassDelimiter      = "delimiter"
	ClassMarkup         = "markup"
	ClassRoleEscalation = "role_escalation"
	ClassEncodedEscape  = "encoded_escape"
	ClassStructuredRole = "structured_role"
)

type screenPattern struct {
	class string
	regex *regexp.Regexp
}

// screenPatterns are checked in order; the first match names the class.
var screenPatterns = []screenPattern{
	{ClassDelimiter, regexp.MustCompile(`(?i)<<<|>>>|traveler_text|\[/?inst\]|<\|im_(start|end)\|>|<\|endoftext\|>|#{3,}\s*(system|instruction|assistant)|-{5,}|={5,}`)},
	{ClassMarkup, regexp.MustCompile("(?i)```|<\\s*/?\\s*(script|iframe|img|svg|style|object|embed|html|body|form|input|a)\\b|javascript:|\\bon[a-z]+\\s*=|\\{\\{.*\\}\\}|\\$\\{[^}]*\\}")},
	{ClassRoleEscalation, regexp.MustCompile(`(?i)\b(ignore|disregard|forget|override)\b.{0,40}\b(previous|prior|above|earlier|all|your)\b.{0,30}\b(instructions?|rules|prompts?|directions)\b|\byou are now\b|\bact as (an? )?(admin|administrator|developer|system|root|dan)\b|\b(system|developer|god)\s+(prompt|mode|message)\b|\bjailbreak\b|\bnew instructions\b`)},
	{ClassEncodedEscape, regexp.MustCompile(`(?i)\\u[0-9a-f]{4}|\\x[0-9a-f]{2}|%[0-9a-f]{2}|&#x?[0-9a-f]+;|[a-z0-9+/]{40,}={0,2}`)},
	{ClassStructuredRole, regexp.MustCompile(`(?im)"\s*role\s*"\s*:|\brole\s*[:=]\s*"?(system|assistant|developer|tool)\b|^\s*(system|assistant|developer)\s*:`)},
}

// Screen returns the first injection class text matches, or "" when clean.
func Screen(text string) string {
	for _, p := range screenPatterns {
		if p.regex.MatchString(text) {
			return p.class
		}
	}
	return ""
}
