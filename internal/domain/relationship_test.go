package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelationshipTypeCount(t *testing.T) {
	assert.Len(t, RelationshipTypes, 35)
}

func TestBidirectionalTypes(t *testing.T) {
	bidir := []RelationshipType{
		RelSimilarTo, RelRelatedTo, RelAlternativeTo, RelWorksWith,
		RelContradicts, RelParallelTo, RelOppositeOf,
	}
	count := 0
	for _, t2 := range RelationshipTypes {
		if IsBidirectional(t2) {
			count++
		}
	}
	assert.Equal(t, len(bidir), count)
	for _, b := range bidir {
		assert.True(t, IsBidirectional(b), "%s should be bidirectional", b)
	}
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategorySolution, CategoryOf(RelSolves))
	assert.Equal(t, CategoryCausal, CategoryOf(RelCauses))
}

func TestRelationshipValidateRejectsSelfLoop(t *testing.T) {
	r := &Relationship{FromMemoryID: "a", ToMemoryID: "a", Type: RelSolves}
	err := r.Validate()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindRelationshipError))
}

func TestRelationshipValidateRejectsUnknownType(t *testing.T) {
	r := &Relationship{FromMemoryID: "a", ToMemoryID: "b", Type: "NOT_A_TYPE"}
	err := r.Validate()
	require.Error(t, err)
}

func TestParseContext(t *testing.T) {
	pc := ParseContext("scope:partial;conditions:timeout,retry;evidence:log1|components:db,cache")
	assert.Equal(t, "partial", pc.Scope)
	assert.ElementsMatch(t, []string{"timeout", "retry"}, pc.Conditions)
	assert.ElementsMatch(t, []string{"log1"}, pc.Evidence)
	assert.ElementsMatch(t, []string{"db", "cache"}, pc.Components)
}

func TestRelationshipPrepareClampsAndDefaults(t *testing.T) {
	r := &Relationship{FromMemoryID: "a", ToMemoryID: "b", Type: RelSolves}
	r.Prepare(true)
	assert.Equal(t, 0.5, r.Properties.Strength)
	assert.Equal(t, 0.8, r.Properties.Confidence)
	assert.False(t, r.Properties.CreatedAt.IsZero())
}
