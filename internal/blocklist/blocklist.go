// Package blocklist compiles plain-text pattern files into matchable rules.
//
// Each non-blank, non-comment line is one rule. Lines containing regex
// metacharacters compile as regular expressions and match anywhere in a
// candidate; all other lines are literal prefixes.
package blocklist

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind distinguishes how a rule matches candidates.
type Kind string

const (
	// KindLiteral matches when the candidate starts with the pattern text.
	KindLiteral Kind = "literal"
	// KindRegex matches when the expression is found anywhere in the candidate.
	KindRegex Kind = "regex"
)

// metaChars are the characters whose presence classifies a line as a regex.
const metaChars = `()[]{}.*+?^$|\`

// Rule is one compiled blocklist line.
type Rule struct {
	// Raw is the pattern exactly as written in the file. Rejection
	// reasons quote it verbatim.
	Raw  string
	Kind Kind

	prefix string
	re     *regexp.Regexp
}

// Compile builds a Rule from one trimmed blocklist line. When
// normalizePrefix is set, literal patterns have whitespace runs collapsed
// so they compare against normalized candidates.
func Compile(line string, normalizePrefix bool) (Rule, error) {
	r := Rule{Raw: line}
	if strings.ContainsAny(line, metaChars) {
		re, err := regexp.Compile(line)
		if err != nil {
			return Rule{}, fmt.Errorf("compile pattern %q: %w", line, err)
		}
		r.Kind = KindRegex
		r.re = re
		return r, nil
	}
	r.Kind = KindLiteral
	r.prefix = line
	if normalizePrefix {
		r.prefix = Normalize(line)
	}
	return r, nil
}

// Match reports whether the candidate violates the rule.
func (r Rule) Match(candidate string) bool {
	if r.Kind == KindRegex {
		return r.re.MatchString(candidate)
	}
	return strings.HasPrefix(candidate, r.prefix)
}

// Parse compiles every rule in a blocklist file. Blank lines and lines
// starting with # are skipped. A malformed regex fails the whole parse;
// an unmatchable pattern is never dropped silently.
func Parse(data []byte, normalizePrefix bool) ([]Rule, error) {
	var rules []Rule
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r, err := Compile(line, normalizePrefix)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Normalize collapses whitespace runs into single spaces and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
