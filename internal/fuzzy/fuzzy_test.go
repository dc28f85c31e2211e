package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func templates(patterns []Pattern) []string {
	out := make([]string, len(patterns))
	for i, p := range patterns {
		out[i] = p.Template
	}
	return out
}

func TestGeneratePatternsFullQuery(t *testing.T) {
	p := GeneratePatterns("Retry", ModeNormal)
	assert.Contains(t, templates(p), "%retry%")
	assert.Equal(t, 1.0, p[0].Weight)
}

func TestGeneratePatternsRetryVariants(t *testing.T) {
	p := GeneratePatterns("retry", ModeNormal)
	tpl := templates(p)
	assert.Contains(t, tpl, "%retry%")
	assert.Contains(t, tpl, "%retries%")
	assert.Contains(t, tpl, "%retried%")
	assert.Contains(t, tpl, "%retrying%")
}

func TestGeneratePatternsStrictModeOnlyFullQuery(t *testing.T) {
	p := GeneratePatterns("retrying", ModeStrict)
	assert.Len(t, p, 1)
	assert.Equal(t, "%retrying%", p[0].Template)
}

func TestGeneratePatternsDedup(t *testing.T) {
	p := GeneratePatterns("retry retry", ModeNormal)
	seen := make(map[string]int)
	for _, pat := range p {
		seen[pat.Template]++
	}
	for tpl, count := range seen {
		assert.Equal(t, 1, count, "pattern %s should appear once", tpl)
	}
}

func TestGeneratePatternsEmptyQuery(t *testing.T) {
	assert.Empty(t, GeneratePatterns("   ", ModeNormal))
}

func TestGeneratePatternsSkipsStopwords(t *testing.T) {
	p := GeneratePatterns("the fix", ModeNormal)
	tpl := templates(p)
	assert.NotContains(t, tpl, "%thee%")
	assert.Contains(t, tpl, "%the fix%")
}

func TestStemShortSuffixRejected(t *testing.T) {
	stemmed, ok := stem("as")
	assert.False(t, ok)
	assert.Equal(t, "as", stemmed)
}
