package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/kgstore/kgstore/internal/domain"
)

// decodeArgs round-trips the raw arguments map through JSON into a typed
// struct, the standard way to turn a loosely-typed tool call's arguments
// into something callers can work with directly.
func decodeArgs(raw map[string]interface{}, out interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

func memoryTypesOf(raw []string) []domain.MemoryType {
	out := make([]domain.MemoryType, len(raw))
	for i, t := range raw {
		out[i] = domain.MemoryType(t)
	}
	return out
}

func relationshipTypesOf(raw []string) []domain.RelationshipType {
	out := make([]domain.RelationshipType, len(raw))
	for i, t := range raw {
		out[i] = domain.RelationshipType(t)
	}
	return out
}

// recallMemoriesArgs is the natural-language, stemmed-fuzzy entry point
// (§4.7, scenario 1/3).
type recallMemoriesArgs struct {
	Query   string `json:"query"`
	Project string `json:"project,omitempty"`
	Limit   *int   `json:"limit,omitempty"`
}

// storeMemoryArgs mirrors domain.Memory's settable fields.
type storeMemoryArgs struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Summary     string   `json:"summary,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Importance  *float64 `json:"importance,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	Project     string   `json:"project,omitempty"`
}

type getMemoryArgs struct {
	ID string `json:"id"`
}

// searchMemoriesArgs is the advanced, precise entry point exposing the full
// conjunctive predicate set of §4.5.3.
type searchMemoriesArgs struct {
	Query                string   `json:"query,omitempty"`
	Terms                []string `json:"terms,omitempty"`
	MatchAll             bool     `json:"match_all,omitempty"`
	MemoryTypes          []string `json:"memory_types,omitempty"`
	Tags                 []string `json:"tags,omitempty"`
	Project              string   `json:"project,omitempty"`
	MinImportance        *float64 `json:"min_importance,omitempty"`
	MinConfidence        *float64 `json:"min_confidence,omitempty"`
	CreatedAfter         string   `json:"created_after,omitempty"`
	CreatedBefore        string   `json:"created_before,omitempty"`
	Limit                *int     `json:"limit,omitempty"`
	Offset               int      `json:"offset,omitempty"`
	IncludeRelationships bool     `json:"include_relationships,omitempty"`
	RelationshipTypes    []string `json:"relationship_types,omitempty"`
}

type updateMemoryArgs struct {
	ID         string   `json:"id"`
	Title      *string  `json:"title,omitempty"`
	Content    *string  `json:"content,omitempty"`
	Summary    *string  `json:"summary,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Importance *float64 `json:"importance,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type deleteMemoryArgs struct {
	ID string `json:"id"`
}

type createRelationshipArgs struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Type       string  `json:"type"`
	Strength   float64 `json:"strength,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Context    string  `json:"context,omitempty"`
}

type getRelatedMemoriesArgs struct {
	ID                string   `json:"id"`
	RelationshipTypes []string `json:"relationship_types,omitempty"`
	MaxDepth          int      `json:"max_depth,omitempty"`
}

type getRecentActivityArgs struct {
	Days    int    `json:"days,omitempty"`
	Project string `json:"project,omitempty"`
}

type searchRelationshipsByContextArgs struct {
	MemoryID   string   `json:"memory_id,omitempty"`
	Scope      string   `json:"scope,omitempty"`
	Conditions []string `json:"conditions,omitempty"`
	Evidence   []string `json:"evidence,omitempty"`
	Components []string `json:"components,omitempty"`
	Temporal   string   `json:"temporal,omitempty"`
	Limit      int      `json:"limit,omitempty"`
}
