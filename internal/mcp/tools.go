package mcp

import "github.com/kgstore/kgstore/internal/domain"

// toolGroup names the three registries the dispatcher merges before
// filtering by profile (§4.7): the core memory/relationship/search/activity
// operations, advanced relationship analytics, and migration. Only the
// basic group currently has members named in either profile; the other two
// exist as registries a future profile could opt into.
type toolGroup string

const (
	groupBasic     toolGroup = "basic"
	groupAdvanced  toolGroup = "advanced"
	groupMigration toolGroup = "migration"
)

// registeredTool pairs a Tool definition with the group it belongs to.
type registeredTool struct {
	def   Tool
	group toolGroup
}

func memoryTypeEnum() []string {
	out := make([]string, len(domain.MemoryTypes))
	for i, t := range domain.MemoryTypes {
		out[i] = string(t)
	}
	return out
}

func relationshipTypeEnum() []string {
	return []string{
		string(domain.RelCauses), string(domain.RelTriggers), string(domain.RelLeadsTo), string(domain.RelPrevents), string(domain.RelBreaks),
		string(domain.RelSolves), string(domain.RelAddresses), string(domain.RelAlternativeTo), string(domain.RelImproves), string(domain.RelReplaces),
		string(domain.RelOccursIn), string(domain.RelAppliesTo), string(domain.RelWorksWith), string(domain.RelRequires), string(domain.RelUsedIn),
		string(domain.RelBuildsOn), string(domain.RelContradicts), string(domain.RelConfirms), string(domain.RelGeneralizes), string(domain.RelSpecializes),
		string(domain.RelSimilarTo), string(domain.RelVariantOf), string(domain.RelRelatedTo), string(domain.RelAnalogyTo), string(domain.RelOppositeOf),
		string(domain.RelFollows), string(domain.RelDependsOn), string(domain.RelEnables), string(domain.RelBlocks), string(domain.RelParallelTo),
		string(domain.RelEffectiveFor), string(domain.RelIneffectiveFor), string(domain.RelPreferredOver), string(domain.RelDeprecatedBy), string(domain.RelValidatedBy),
	}
}

func strProp(desc string) Property   { return Property{Type: "string", Description: desc} }
func boolProp(desc string) Property  { return Property{Type: "boolean", Description: desc} }
func intProp(desc string) Property   { return Property{Type: "integer", Description: desc} }
func numProp(desc string) Property   { return Property{Type: "number", Description: desc} }
func strArrProp(desc string) Property {
	return Property{Type: "array", Description: desc, Items: &Property{Type: "string"}}
}

// registeredTools builds the union of tool definitions from the three
// registries (§4.7); toolDefinitionsForProfile filters by profile afterwards.
func registeredTools() []registeredTool {
	return []registeredTool{
		{group: groupBasic, def: Tool{
			Name:        "recall_memories",
			Description: "Recall memories matching a natural-language query, using stemmed fuzzy matching.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"query":   strProp("Natural-language search text"),
					"project": strProp("Project scope; auto-detected from git when omitted"),
					"limit":   intProp("Maximum results (default 20)"),
				},
				Required: []string{"query"},
			},
		}},
		{group: groupBasic, def: Tool{
			Name:        "store_memory",
			Description: "Store a new typed knowledge item.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"type":       {Type: "string", Description: "Memory type", Enum: memoryTypeEnum()},
					"title":      strProp("Short title"),
					"content":    strProp("Full content"),
					"summary":    strProp("Optional summary"),
					"tags":       strArrProp("Tags"),
					"importance": numProp("0.0-1.0, default 0.5"),
					"confidence": numProp("0.0-1.0, default 0.8"),
					"project":    strProp("Project scope; auto-detected from git when omitted"),
				},
				Required: []string{"type", "title", "content"},
			},
		}},
		{group: groupBasic, def: Tool{
			Name:        "get_memory",
			Description: "Fetch a memory by id.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"id": strProp("Memory id")},
				Required:   []string{"id"},
			},
		}},
		{group: groupBasic, def: Tool{
			Name:        "search_memories",
			Description: "Search memories with the full predicate set: type, tags, project, importance/confidence floors, date range.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"query":                 strProp("Exact-substring search text"),
					"terms":                 strArrProp("Multiple search terms"),
					"match_all":             boolProp("Require all terms to match (default: any)"),
					"memory_types":          {Type: "array", Description: "Restrict to these memory types", Items: &Property{Type: "string", Enum: memoryTypeEnum()}},
					"tags":                  strArrProp("Restrict to memories carrying any of these tags"),
					"project":               strProp("Project scope"),
					"min_importance":        numProp("Importance floor"),
					"min_confidence":        numProp("Confidence floor"),
					"created_after":         strProp("RFC3339 timestamp"),
					"created_before":        strProp("RFC3339 timestamp"),
					"limit":                 intProp("Maximum results (default 20, max 1000)"),
					"offset":                intProp("Pagination offset"),
					"include_relationships": boolProp("Include one-hop relationship summaries"),
					"relationship_types":    {Type: "array", Description: "Keep only memories with an incident edge of one of these types", Items: &Property{Type: "string", Enum: relationshipTypeEnum()}},
				},
			},
		}},
		{group: groupBasic, def: Tool{
			Name:        "update_memory",
			Description: "Update fields on an existing memory.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"id":         strProp("Memory id"),
					"title":      strProp("New title"),
					"content":    strProp("New content"),
					"summary":    strProp("New summary"),
					"tags":       strArrProp("New tags"),
					"importance": numProp("New importance"),
					"confidence": numProp("New confidence"),
				},
				Required: []string{"id"},
			},
		}},
		{group: groupBasic, def: Tool{
			Name:        "delete_memory",
			Description: "Delete a memory and cascade its relationships.",
			InputSchema: InputSchema{
				Type:       "object",
				Properties: map[string]Property{"id": strProp("Memory id")},
				Required:   []string{"id"},
			},
		}},
		{group: groupBasic, def: Tool{
			Name:        "create_relationship",
			Description: "Create a typed, weighted edge between two memories.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"from":       strProp("Source memory id"),
					"to":         strProp("Target memory id"),
					"type":       {Type: "string", Description: "Relationship type", Enum: relationshipTypeEnum()},
					"strength":   numProp("0.0-1.0, default 0.5"),
					"confidence": numProp("0.0-1.0, default 0.8"),
					"context":    strProp("Free-form or semi-structured context string"),
				},
				Required: []string{"from", "to", "type"},
			},
		}},
		{group: groupBasic, def: Tool{
			Name:        "get_related_memories",
			Description: "Fetch the 1..max_depth undirected neighbourhood of a memory.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"id":                 strProp("Memory id"),
					"relationship_types": {Type: "array", Description: "Restrict to these edge types", Items: &Property{Type: "string", Enum: relationshipTypeEnum()}},
					"max_depth":          intProp("Traversal depth, default 1"),
				},
				Required: []string{"id"},
			},
		}},
		{group: groupBasic, def: Tool{
			Name:        "get_recent_activity",
			Description: "Summarize the last N days of memory activity, including unsolved problems.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"days":    intProp("Lookback window in days, default 7"),
					"project": strProp("Project scope; auto-detected from git when omitted"),
				},
			},
		}},
		{group: groupBasic, def: Tool{
			Name:        "get_memory_statistics",
			Description: "Aggregate counts and averages across the whole store.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		}},
		{group: groupBasic, def: Tool{
			Name:        "search_relationships_by_context",
			Description: "Filter relationships by their structured context fields (scope, conditions, evidence, components, temporal).",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"memory_id":  strProp("Scope candidates to this memory's incident edges; omit to scan up to 500 memories, highest importance first"),
					"scope":      strProp("partial | full | conditional substring match"),
					"conditions": strArrProp("Any of these condition substrings"),
					"evidence":   strArrProp("Any of these evidence substrings"),
					"components": strArrProp("Any of these component substrings"),
					"temporal":   strProp("Temporal marker substring"),
					"limit":      intProp("Maximum results, default 20"),
				},
			},
		}},
	}
}

// corePermitted is the exact 9-tool core profile (§4.7).
var corePermitted = map[string]bool{
	"recall_memories":      true,
	"store_memory":         true,
	"get_memory":           true,
	"search_memories":      true,
	"update_memory":        true,
	"delete_memory":        true,
	"create_relationship":  true,
	"get_related_memories": true,
	"get_recent_activity":  true,
}

// extendedPermitted is the 11-tool extended profile: core plus
// get_memory_statistics and search_relationships_by_context.
var extendedPermitted = map[string]bool{
	"get_memory_statistics":           true,
	"search_relationships_by_context": true,
}

func isPermitted(profile, name string) bool {
	if corePermitted[name] {
		return true
	}
	if profile == "extended" {
		return extendedPermitted[name]
	}
	return false
}

// toolDefinitionsForProfile filters the merged registry down to the
// visible set for the given profile.
func toolDefinitionsForProfile(profile string) []Tool {
	var out []Tool
	for _, rt := range registeredTools() {
		if rt.group != groupBasic {
			continue
		}
		if isPermitted(profile, rt.def.Name) {
			out = append(out, rt.def)
		}
	}
	return out
}
