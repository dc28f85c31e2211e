package domain

import (
	"strings"
	"time"
)

// RelationshipType is one of the 35 fixed edge types, partitioned into 7
// semantic categories.
type RelationshipType string

const (
	// Causal
	RelCauses    RelationshipType = "CAUSES"
	RelTriggers  RelationshipType = "TRIGGERS"
	RelLeadsTo   RelationshipType = "LEADS_TO"
	RelPrevents  RelationshipType = "PREVENTS"
	RelBreaks    RelationshipType = "BREAKS"

	// Solution
	RelSolves        RelationshipType = "SOLVES"
	RelAddresses     RelationshipType = "ADDRESSES"
	RelAlternativeTo RelationshipType = "ALTERNATIVE_TO"
	RelImproves      RelationshipType = "IMPROVES"
	RelReplaces      RelationshipType = "REPLACES"

	// Context
	RelOccursIn  RelationshipType = "OCCURS_IN"
	RelAppliesTo RelationshipType = "APPLIES_TO"
	RelWorksWith RelationshipType = "WORKS_WITH"
	RelRequires  RelationshipType = "REQUIRES"
	RelUsedIn    RelationshipType = "USED_IN"

	// Learning
	RelBuildsOn    RelationshipType = "BUILDS_ON"
	RelContradicts RelationshipType = "CONTRADICTS"
	RelConfirms    RelationshipType = "CONFIRMS"
	RelGeneralizes RelationshipType = "GENERALIZES"
	RelSpecializes RelationshipType = "SPECIALIZES"

	// Similarity
	RelSimilarTo   RelationshipType = "SIMILAR_TO"
	RelVariantOf   RelationshipType = "VARIANT_OF"
	RelRelatedTo   RelationshipType = "RELATED_TO"
	RelAnalogyTo   RelationshipType = "ANALOGY_TO"
	RelOppositeOf  RelationshipType = "OPPOSITE_OF"

	// Workflow
	RelFollows    RelationshipType = "FOLLOWS"
	RelDependsOn  RelationshipType = "DEPENDS_ON"
	RelEnables    RelationshipType = "ENABLES"
	RelBlocks     RelationshipType = "BLOCKS"
	RelParallelTo RelationshipType = "PARALLEL_TO"

	// Quality
	RelEffectiveFor   RelationshipType = "EFFECTIVE_FOR"
	RelIneffectiveFor RelationshipType = "INEFFECTIVE_FOR"
	RelPreferredOver  RelationshipType = "PREFERRED_OVER"
	RelDeprecatedBy   RelationshipType = "DEPRECATED_BY"
	RelValidatedBy    RelationshipType = "VALIDATED_BY"
)

// RelationshipCategory groups the 35 types into their 7 semantic families.
type RelationshipCategory string

const (
	CategoryCausal     RelationshipCategory = "causal"
	CategorySolution   RelationshipCategory = "solution"
	CategoryContext    RelationshipCategory = "context"
	CategoryLearning   RelationshipCategory = "learning"
	CategorySimilarity RelationshipCategory = "similarity"
	CategoryWorkflow   RelationshipCategory = "workflow"
	CategoryQuality    RelationshipCategory = "quality"
)

// relationshipMeta captures the static metadata known about a relationship
// type: which category it belongs to, and whether it is intrinsically
// symmetric (treated as undirected for traversal and reinforcement).
type relationshipMeta struct {
	category      RelationshipCategory
	bidirectional bool
}

var relationshipRegistry = map[RelationshipType]relationshipMeta{
	RelCauses:   {CategoryCausal, false},
	RelTriggers: {CategoryCausal, false},
	RelLeadsTo:  {CategoryCausal, false},
	RelPrevents: {CategoryCausal, false},
	RelBreaks:   {CategoryCausal, false},

	RelSolves:        {CategorySolution, false},
	RelAddresses:     {CategorySolution, false},
	RelAlternativeTo: {CategorySolution, true},
	RelImproves:      {CategorySolution, false},
	RelReplaces:      {CategorySolution, false},

	RelOccursIn:  {CategoryContext, false},
	RelAppliesTo: {CategoryContext, false},
	RelWorksWith: {CategoryContext, true},
	RelRequires:  {CategoryContext, false},
	RelUsedIn:    {CategoryContext, false},

	RelBuildsOn:    {CategoryLearning, false},
	RelContradicts: {CategoryLearning, true},
	RelConfirms:    {CategoryLearning, false},
	RelGeneralizes: {CategoryLearning, false},
	RelSpecializes: {CategoryLearning, false},

	RelSimilarTo:  {CategorySimilarity, true},
	RelVariantOf:  {CategorySimilarity, false},
	RelRelatedTo:  {CategorySimilarity, true},
	RelAnalogyTo:  {CategorySimilarity, false},
	RelOppositeOf: {CategorySimilarity, true},

	RelFollows:    {CategoryWorkflow, false},
	RelDependsOn:  {CategoryWorkflow, false},
	RelEnables:    {CategoryWorkflow, false},
	RelBlocks:     {CategoryWorkflow, false},
	RelParallelTo: {CategoryWorkflow, true},

	RelEffectiveFor:   {CategoryQuality, false},
	RelIneffectiveFor: {CategoryQuality, false},
	RelPreferredOver:  {CategoryQuality, false},
	RelDeprecatedBy:   {CategoryQuality, false},
	RelValidatedBy:    {CategoryQuality, false},
}

// RelationshipTypes is the ordered set of all 35 valid relationship types.
var RelationshipTypes = func() []RelationshipType {
	out := make([]RelationshipType, 0, len(relationshipRegistry))
	for _, t := range []RelationshipType{
		RelCauses, RelTriggers, RelLeadsTo, RelPrevents, RelBreaks,
		RelSolves, RelAddresses, RelAlternativeTo, RelImproves, RelReplaces,
		RelOccursIn, RelAppliesTo, RelWorksWith, RelRequires, RelUsedIn,
		RelBuildsOn, RelContradicts, RelConfirms, RelGeneralizes, RelSpecializes,
		RelSimilarTo, RelVariantOf, RelRelatedTo, RelAnalogyTo, RelOppositeOf,
		RelFollows, RelDependsOn, RelEnables, RelBlocks, RelParallelTo,
		RelEffectiveFor, RelIneffectiveFor, RelPreferredOver, RelDeprecatedBy, RelValidatedBy,
	} {
		out = append(out, t)
	}
	return out
}()

// IsValidRelationshipType reports whether t is one of the 35 fixed values.
func IsValidRelationshipType(t string) bool {
	_, ok := relationshipRegistry[RelationshipType(t)]
	return ok
}

// CategoryOf returns the semantic category of a relationship type.
func CategoryOf(t RelationshipType) RelationshipCategory {
	return relationshipRegistry[t].category
}

// IsBidirectional reports whether t is one of the seven intrinsically
// symmetric relationship types (invariant 7).
func IsBidirectional(t RelationshipType) bool {
	return relationshipRegistry[t].bidirectional
}

// Solving is the set of relationship types that mark a problem as resolved,
// used by the unsolved-problem detector in the activity summary.
var Solving = map[RelationshipType]bool{
	RelSolves:    true,
	RelAddresses: true,
}

// RelationshipProperties is the mutable, reinforceable property bag on an edge.
type RelationshipProperties struct {
	Strength             float64    `json:"strength"`
	Confidence           float64    `json:"confidence"`
	Context              string     `json:"context,omitempty"`
	EvidenceCount        int        `json:"evidence_count"`
	SuccessRate          *float64   `json:"success_rate,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	LastValidated        *time.Time `json:"last_validated,omitempty"`
	ValidationCount      int        `json:"validation_count"`
	CounterEvidenceCount int        `json:"counter_evidence_count"`
}

// Relationship is a directed, typed, weighted edge between two Memories.
type Relationship struct {
	ID           string                  `json:"id"`
	FromMemoryID string                  `json:"from_memory_id"`
	ToMemoryID   string                  `json:"to_memory_id"`
	Type         RelationshipType        `json:"type"`
	Properties   RelationshipProperties  `json:"properties"`
}

// Bidirectional reports whether this edge is treated as undirected.
func (r *Relationship) Bidirectional() bool {
	return IsBidirectional(r.Type)
}

// Prepare assigns defaults and clamps numeric properties, per invariants 4 and 6.
func (r *Relationship) Prepare(isNew bool) {
	if r.Properties.Strength == 0 && isNew {
		r.Properties.Strength = 0.5
	}
	r.Properties.Strength = clamp01(r.Properties.Strength)
	if r.Properties.Confidence == 0 && isNew {
		r.Properties.Confidence = 0.8
	}
	r.Properties.Confidence = clamp01(r.Properties.Confidence)
	if r.Properties.SuccessRate != nil {
		v := clamp01(*r.Properties.SuccessRate)
		r.Properties.SuccessRate = &v
	}
	if r.Properties.EvidenceCount < 0 {
		r.Properties.EvidenceCount = 0
	}
	if r.Properties.ValidationCount < 0 {
		r.Properties.ValidationCount = 0
	}
	if r.Properties.CounterEvidenceCount < 0 {
		r.Properties.CounterEvidenceCount = 0
	}
	now := time.Now().UTC()
	if isNew && r.Properties.CreatedAt.IsZero() {
		r.Properties.CreatedAt = now
	}
}

// Validate enforces the structural invariants on an edge before it is
// persisted: non-empty, distinct endpoints and a recognized type.
func (r *Relationship) Validate() error {
	if r.FromMemoryID == "" || r.ToMemoryID == "" {
		return NewError(KindRelationshipError, "relationship endpoints must not be empty", nil)
	}
	if r.FromMemoryID == r.ToMemoryID {
		return NewError(KindRelationshipError, "relationship endpoints must differ", nil)
	}
	if !IsValidRelationshipType(string(r.Type)) {
		return NewError(KindRelationshipError, "invalid relationship type: "+string(r.Type), nil)
	}
	return nil
}

// ParsedContext is the semi-structured view of a Relationship's free-form
// Context string, per §4.5.7.
type ParsedContext struct {
	Scope      string
	Conditions []string
	Evidence   []string
	Components []string
	Temporal   string
}

// ParseContext extracts the semi-structured "scope:/conditions:/evidence:/
// components:/temporal:" segments a Relationship's context string may carry.
// Segments are separated by ';' or '|'; each is "key:value[,value...]".
func ParseContext(raw string) ParsedContext {
	var pc ParsedContext
	if raw == "" {
		return pc
	}
	segments := strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == '|' })
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		parts := strings.SplitN(seg, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(parts[0]))
		values := splitCSV(parts[1])
		switch key {
		case "scope":
			if len(values) > 0 {
				pc.Scope = values[0]
			}
		case "conditions":
			pc.Conditions = values
		case "evidence":
			pc.Evidence = values
		case "components":
			pc.Components = values
		case "temporal":
			if len(values) > 0 {
				pc.Temporal = values[0]
			}
		}
	}
	return pc
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
