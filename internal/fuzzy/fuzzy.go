// Package fuzzy implements the fuzzy text matcher (C7): it turns a free-form
// query into an ordered list of LIKE/CONTAINS-compatible patterns with
// weights, using suffix-stemming and morphological re-expansion rather than
// vector similarity (ranking stays lexical, per the engine's non-goals).
package fuzzy

import (
	"strings"

	"github.com/orsinium-labs/stopwords"
)

// Mode selects how aggressively the query is expanded.
type Mode string

const (
	// ModeStrict uses only the full-query pattern (rule 1).
	ModeStrict Mode = "strict"
	// ModeNormal applies stemming and morphological re-expansion (rules 1-4).
	ModeNormal Mode = "normal"
	// ModeFuzzy is defined identically to ModeNormal today; it reserves room
	// for trigram similarity in a future implementation (open question,
	// SPEC_FULL.md §9) rather than silently diverging from normal mode.
	ModeFuzzy Mode = "fuzzy"
)

// Pattern is a single LIKE/CONTAINS-compatible substring template with its
// relative weight in (0,1].
type Pattern struct {
	Template string
	Weight   float64
}

var suffixes = []string{"ies", "ied", "es", "ing", "ed", "s"}

var english = stopwords.MustGet("en")

// stem removes at most one suffix from the ordered, most-specific-first list
// {ies, ied, es, ing, ed, s}, restoring a trailing "y" when the removed
// suffix was "ies" or "ied", and rejects results shorter than 3 characters.
// Returns the original token and false if no suffix rule applied usefully.
func stem(token string) (string, bool) {
	for _, suf := range suffixes {
		if !strings.HasSuffix(token, suf) || len(token) <= len(suf) {
			continue
		}
		stripped := token[:len(token)-len(suf)]
		if suf == "ies" || suf == "ied" {
			stripped += "y"
		}
		if len(stripped) < 3 {
			return token, false
		}
		return stripped, true
	}
	return token, false
}

// morphologicalVariants generates the common inflections of a stemmed token
// (e.g. "retry" -> retries, retrying, retried) used by rule 3 to re-expand
// short stems into patterns whose own stem equals the original's.
func morphologicalVariants(token string) []string {
	var variants []string
	base := token
	if strings.HasSuffix(base, "y") && len(base) > 1 {
		root := base[:len(base)-1]
		variants = append(variants, root+"ies", root+"ied")
	}
	variants = append(variants, base+"s", base+"ing", base+"ed")
	if strings.HasSuffix(base, "e") {
		root := base[:len(base)-1]
		variants = append(variants, root+"ing", root+"ed")
	} else {
		// double final consonant for short CVC tokens (e.g. stop -> stopping)
		if isShortCVC(base) {
			variants = append(variants, base+string(base[len(base)-1])+"ing", base+string(base[len(base)-1])+"ed")
		}
	}
	return variants
}

func isShortCVC(s string) bool {
	if len(s) < 3 {
		return false
	}
	isVowel := func(b byte) bool { return strings.ContainsRune("aeiou", rune(b)) }
	n := len(s)
	return !isVowel(s[n-1]) && isVowel(s[n-2]) && !isVowel(s[n-3])
}

// GeneratePatterns implements §4.5.2's four rules and returns the
// de-duplicated pattern list (first occurrence wins), preserving generation
// order: full query, then per-token stems, then per-token re-expansions.
func GeneratePatterns(query string, mode Mode) []Pattern {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var out []Pattern
	add := func(template string, weight float64) {
		if _, ok := seen[template]; ok {
			return
		}
		seen[template] = struct{}{}
		out = append(out, Pattern{Template: template, Weight: weight})
	}

	add("%"+query+"%", 1.0)
	if mode == ModeStrict {
		return out
	}

	tokens := strings.Fields(query)
	for _, token := range tokens {
		if len(token) < 3 {
			continue
		}
		if english.Contains(token) {
			continue
		}
		stemmed, changed := stem(token)
		if changed && stemmed != token {
			add("%"+stemmed+"%", 0.8)
		}
		if len(token) >= 4 {
			root := token
			if changed {
				root = stemmed
			}
			for _, variant := range morphologicalVariants(root) {
				if variant == token {
					continue
				}
				variantStem, variantChanged := stem(variant)
				if !variantChanged {
					variantStem = variant
				}
				originalStem := token
				if changed {
					originalStem = stemmed
				}
				if variantStem == originalStem {
					add("%"+variant+"%", 0.9)
				}
			}
		}
	}
	return out
}
