package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"Redis", " Timeout ", "redis", "", "TIMEOUT"})
	assert.Equal(t, []string{"redis", "timeout"}, got)
}

func TestMemoryPrepareAssignsIDAndTimestamps(t *testing.T) {
	m := &Memory{Type: MemoryTypeSolution, Title: "  Fixed Redis timeout  ", Content: "Raised timeout to 30s"}
	m.Prepare(true)

	require.NotEmpty(t, m.ID)
	assert.Equal(t, "Fixed Redis timeout", m.Title)
	assert.False(t, m.CreatedAt.IsZero())
	assert.False(t, m.UpdatedAt.Before(m.CreatedAt))
}

func TestMemoryPrepareClampsNumerics(t *testing.T) {
	m := &Memory{Type: MemoryTypeGeneral, Title: "t", Content: "c", Importance: 5, Confidence: -2}
	m.Prepare(true)

	assert.Equal(t, 1.0, m.Importance)
	assert.Equal(t, 0.0, m.Confidence)
}

func TestMemoryValidateRequiresTitleAndContent(t *testing.T) {
	m := &Memory{Type: MemoryTypeGeneral}
	err := m.Validate()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
}

func TestMemoryValidateRejectsUnknownType(t *testing.T) {
	m := &Memory{Type: "bogus", Title: "t", Content: "c"}
	err := m.Validate()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindValidation))
}

func TestIsValidMemoryType(t *testing.T) {
	assert.True(t, IsValidMemoryType("solution"))
	assert.False(t, IsValidMemoryType("nonsense"))
}
