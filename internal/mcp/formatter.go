package mcp

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kgstore/kgstore/internal/backend"
	"github.com/kgstore/kgstore/internal/domain"
	"github.com/kgstore/kgstore/internal/repository"
)

// Formatter renders tool results as UX-friendly markdown, falling back to
// raw JSON for any shape it doesn't recognize.
type Formatter struct{}

// NewFormatter creates a new formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

// FormatToolResponse formats a tool response with rich UX elements
func (f *Formatter) FormatToolResponse(toolName string, result interface{}, duration time.Duration) string {
	var sb strings.Builder

	icon := f.getToolIcon(toolName)
	sb.WriteString(fmt.Sprintf("\n%s **%s**\n", icon, f.formatToolName(toolName)))
	sb.WriteString(f.getToolTagline(toolName))
	sb.WriteString("\n")
	sb.WriteString("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

	switch toolName {
	case "store_memory":
		sb.WriteString(f.formatStoredMemory(result))
	case "get_memory":
		sb.WriteString(f.formatMemory(result))
	case "update_memory":
		sb.WriteString(f.formatUpdatedMemory(result))
	case "delete_memory":
		sb.WriteString(f.formatDeleteMemory(result))
	case "recall_memories", "search_memories":
		sb.WriteString(f.formatSearch(result))
	case "create_relationship":
		sb.WriteString(f.formatCreatedRelationship(result))
	case "get_related_memories":
		sb.WriteString(f.formatRelatedMemories(result))
	case "get_recent_activity":
		sb.WriteString(f.formatRecentActivity(result))
	case "get_memory_statistics":
		sb.WriteString(f.formatStatistics(result))
	case "search_relationships_by_context":
		sb.WriteString(f.formatContextRelationships(result))
	default:
		sb.WriteString(f.fallbackJSON(result))
	}

	sb.WriteString("\n\n")
	sb.WriteString(f.formatPerformance(duration))

	suggestions := f.getSuggestions(toolName)
	if len(suggestions) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString("💡 **Next Steps**\n")
		for _, s := range suggestions {
			sb.WriteString(fmt.Sprintf("   → %s\n", s))
		}
	}

	sb.WriteString("\n\n")
	sb.WriteString("<details>\n<summary>📋 Raw JSON Response</summary>\n\n```json\n")
	sb.WriteString(f.fallbackJSON(result))
	sb.WriteString("\n```\n</details>")

	return sb.String()
}

func (f *Formatter) getToolIcon(toolName string) string {
	icons := map[string]string{
		"recall_memories":                 "🧠",
		"store_memory":                    "💾",
		"get_memory":                      "📖",
		"search_memories":                 "🔍",
		"update_memory":                   "✏️",
		"delete_memory":                   "🗑️",
		"create_relationship":             "🔗",
		"get_related_memories":            "🕸️",
		"get_recent_activity":             "📊",
		"get_memory_statistics":           "📈",
		"search_relationships_by_context": "🧭",
	}
	if icon, ok := icons[toolName]; ok {
		return icon
	}
	return "⚡"
}

func (f *Formatter) formatToolName(name string) string {
	parts := strings.Split(name, "_")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

func (f *Formatter) getToolTagline(toolName string) string {
	taglines := map[string]string{
		"recall_memories":                 "Quick fuzzy recall across your knowledge base",
		"store_memory":                    "Persisting knowledge for future recall",
		"get_memory":                      "Retrieving specific memory details",
		"search_memories":                 "Precise, filterable search across your knowledge base",
		"update_memory":                   "Evolving your stored knowledge",
		"delete_memory":                   "Removing outdated information",
		"create_relationship":             "Connecting two memories in your knowledge graph",
		"get_related_memories":            "Walking the knowledge graph's neighbourhood",
		"get_recent_activity":             "What changed recently, and what's still unsolved",
		"get_memory_statistics":           "System-wide counts and averages",
		"search_relationships_by_context": "Filtering relationships by structured context",
	}
	if tagline, ok := taglines[toolName]; ok {
		return fmt.Sprintf("*%s*", tagline)
	}
	return ""
}

func (f *Formatter) formatStoredMemory(result interface{}) string {
	m, ok := result.(*domain.Memory)
	if !ok {
		return f.fallbackJSON(result)
	}
	var sb strings.Builder
	sb.WriteString("✅ **Memory Stored Successfully**\n\n")
	sb.WriteString(fmt.Sprintf("```\n%s\n```\n\n", f.truncateContent(m.Content, 300)))
	sb.WriteString("┌─────────────────────────────────────┐\n")
	sb.WriteString(fmt.Sprintf("│ 🆔 ID: `%s`\n", f.truncateID(m.ID)))
	sb.WriteString(fmt.Sprintf("│ 🏷️  Type: %s\n", m.Type))
	sb.WriteString(fmt.Sprintf("│ ⭐ Importance: %s\n", f.makeProgressBar(m.Importance, 10)))
	sb.WriteString(fmt.Sprintf("│ 📅 Created: %s\n", f.formatTime(m.CreatedAt)))
	sb.WriteString("└─────────────────────────────────────┘")
	return sb.String()
}

func (f *Formatter) formatMemory(result interface{}) string {
	m, ok := result.(*domain.Memory)
	if !ok {
		return f.fallbackJSON(result)
	}
	var sb strings.Builder
	sb.WriteString("📖 **Memory Details**\n\n")
	sb.WriteString(fmt.Sprintf("**ID:** `%s`\n\n", m.ID))
	sb.WriteString(fmt.Sprintf("**Title:** %s\n\n", m.Title))
	sb.WriteString("**Content:**\n")
	sb.WriteString(fmt.Sprintf("```\n%s\n```\n\n", m.Content))

	sb.WriteString("┌──────────────── Metadata ────────────────┐\n")
	sb.WriteString(fmt.Sprintf("│ 🏷️  Type: %s\n", m.Type))
	sb.WriteString(fmt.Sprintf("│ ⭐ Importance: %s\n", f.makeProgressBar(m.Importance, 10)))
	sb.WriteString(fmt.Sprintf("│ 🎯 Confidence: %s\n", f.makeProgressBar(m.Confidence, 10)))
	if len(m.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("│ 🔖 Tags: %s\n", strings.Join(m.Tags, ", ")))
	}
	if m.Context != nil && m.Context.ProjectPath != "" {
		sb.WriteString(fmt.Sprintf("│ 📁 Project: %s\n", m.Context.ProjectPath))
	}
	sb.WriteString(fmt.Sprintf("│ 📅 Created: %s\n", f.formatTime(m.CreatedAt)))
	sb.WriteString(fmt.Sprintf("│ 🔄 Updated: %s\n", f.formatTime(m.UpdatedAt)))
	sb.WriteString("└──────────────────────────────────────────┘")
	return sb.String()
}

func (f *Formatter) formatUpdatedMemory(result interface{}) string {
	m, ok := result.(*domain.Memory)
	if !ok {
		return f.fallbackJSON(result)
	}
	var sb strings.Builder
	sb.WriteString("✅ **Memory Updated Successfully**\n\n")
	sb.WriteString(fmt.Sprintf("**ID:** `%s`\n\n", m.ID))
	sb.WriteString("```yaml\n")
	sb.WriteString(fmt.Sprintf("content: \"%s\"\n", f.truncateContent(m.Content, 100)))
	sb.WriteString(fmt.Sprintf("importance: %.2f\n", m.Importance))
	if len(m.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("tags: [%s]\n", strings.Join(m.Tags, ", ")))
	}
	sb.WriteString(fmt.Sprintf("updated_at: %s\n", f.formatTime(m.UpdatedAt)))
	sb.WriteString("```")
	return sb.String()
}

func (f *Formatter) formatDeleteMemory(result interface{}) string {
	data, ok := result.(map[string]interface{})
	if !ok {
		return f.fallbackJSON(result)
	}
	var sb strings.Builder
	if deleted, _ := data["deleted"].(bool); deleted {
		sb.WriteString("🗑️ **Memory Deleted**\n\n")
		sb.WriteString(fmt.Sprintf("```\nid: %v\n```", data["id"]))
	} else {
		sb.WriteString("❌ **Memory Not Found**\n\n")
		sb.WriteString(fmt.Sprintf("```\nid: %v\n```", data["id"]))
	}
	return sb.String()
}

func (f *Formatter) formatSearch(result interface{}) string {
	data, ok := result.(repository.SearchResult)
	if !ok {
		return f.fallbackJSON(result)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 **Found %d result(s)** (total matching: %d)\n", len(data.Results), data.TotalCount))

	if len(data.Results) == 0 {
		sb.WriteString("\n```\nNo memories match your search criteria.\n```\n")
		sb.WriteString("\n💡 Try broadening your search terms or lowering the importance/confidence floors.")
		return sb.String()
	}

	sb.WriteString("\n")
	for i, r := range data.Results {
		sb.WriteString(f.formatSearchResult(i+1, r))
	}

	if data.HasMore {
		sb.WriteString(fmt.Sprintf("\n📦 More results available — pass offset=%d to continue.\n", *data.NextOffset))
	}

	return sb.String()
}

func (f *Formatter) formatSearchResult(num int, r repository.EnrichedMemory) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %d. `%s` — %s\n", num, f.truncateID(r.Memory.ID), r.Memory.Title))
	if r.MatchInfo != nil {
		sb.WriteString(fmt.Sprintf("**Match quality:** %s", r.MatchInfo.MatchQuality))
		if len(r.MatchInfo.MatchedTerms) > 0 {
			sb.WriteString(fmt.Sprintf(" (%s)", strings.Join(r.MatchInfo.MatchedTerms, ", ")))
		}
		sb.WriteString("\n\n")
	}
	sb.WriteString(fmt.Sprintf("> %s\n\n", f.truncateContent(r.Memory.Content, 200)))

	sb.WriteString("```yaml\n")
	sb.WriteString(fmt.Sprintf("type: %s\n", r.Memory.Type))
	sb.WriteString(fmt.Sprintf("importance: %.2f\n", r.Memory.Importance))
	if len(r.Memory.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("tags: [%s]\n", strings.Join(r.Memory.Tags, ", ")))
	}
	sb.WriteString(fmt.Sprintf("created: %s\n", f.formatTime(r.Memory.CreatedAt)))
	sb.WriteString("```\n")
	if r.ContextSummary != "" {
		sb.WriteString(fmt.Sprintf("*%s*\n", r.ContextSummary))
	}
	sb.WriteString("\n")

	return sb.String()
}

func (f *Formatter) formatCreatedRelationship(result interface{}) string {
	rel, ok := result.(*domain.Relationship)
	if !ok {
		return f.fallbackJSON(result)
	}
	var sb strings.Builder
	sb.WriteString("✅ **Relationship Created**\n\n")
	sb.WriteString(fmt.Sprintf("**Type:** %s\n", rel.Type))
	sb.WriteString(fmt.Sprintf("**Strength:** %s %.0f%%\n\n", f.makeProgressBar(rel.Properties.Strength, 8), rel.Properties.Strength*100))

	sb.WriteString("```yaml\n")
	sb.WriteString(fmt.Sprintf("from: %s\n", f.truncateID(rel.FromMemoryID)))
	sb.WriteString(fmt.Sprintf("to: %s\n", f.truncateID(rel.ToMemoryID)))
	if rel.Properties.Context != "" {
		sb.WriteString(fmt.Sprintf("context: \"%s\"\n", f.truncateContent(rel.Properties.Context, 60)))
	}
	sb.WriteString("```")
	return sb.String()
}

func (f *Formatter) formatRelatedMemories(result interface{}) string {
	data, ok := result.([]backend.RelatedMemory)
	if !ok {
		return f.fallbackJSON(result)
	}
	var sb strings.Builder
	sb.WriteString("🕸️ **Related Memories**\n\n")
	if len(data) == 0 {
		sb.WriteString("```\nNo related memories found.\n```")
		return sb.String()
	}
	sb.WriteString(fmt.Sprintf("Found **%d** related memories:\n\n", len(data)))
	for i, rm := range data {
		strengthBar := f.makeProgressBar(rm.Relationship.Properties.Strength, 8)
		sb.WriteString(fmt.Sprintf("%d. **%s** via `%s` %s\n", i+1, f.truncateContent(rm.Memory.Content, 60), rm.Relationship.Type, strengthBar))
		sb.WriteString(fmt.Sprintf("   `%s`\n\n", f.truncateID(rm.Memory.ID)))
	}
	return sb.String()
}

func (f *Formatter) formatRecentActivity(result interface{}) string {
	data, ok := result.(repository.ActivitySummary)
	if !ok {
		return f.fallbackJSON(result)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 **Activity since %s**\n\n", f.formatTime(data.Cutoff)))
	sb.WriteString(fmt.Sprintf("**Total:** %d memories\n\n", data.TotalCount))

	if len(data.CountsByType) > 0 {
		sb.WriteString("```yaml\n")
		for t, c := range data.CountsByType {
			sb.WriteString(fmt.Sprintf("%s: %d\n", t, c))
		}
		sb.WriteString("```\n\n")
	}

	if len(data.Recent) > 0 {
		sb.WriteString("### Recent\n")
		for i, m := range data.Recent {
			if i >= 10 {
				sb.WriteString(fmt.Sprintf("\n*...and %d more*", len(data.Recent)-10))
				break
			}
			sb.WriteString(fmt.Sprintf("  • `%s` %s\n", f.truncateID(m.ID), f.truncateContent(m.Content, 60)))
		}
		sb.WriteString("\n")
	}

	if len(data.UnsolvedProblems) > 0 {
		sb.WriteString(fmt.Sprintf("### ⚠️ Unsolved Problems (%d)\n", len(data.UnsolvedProblems)))
		for _, m := range data.UnsolvedProblems {
			sb.WriteString(fmt.Sprintf("  • `%s` %s\n", f.truncateID(m.ID), f.truncateContent(m.Content, 60)))
		}
	}

	return sb.String()
}

func (f *Formatter) formatStatistics(result interface{}) string {
	data, ok := result.(backend.Statistics)
	if !ok {
		return f.fallbackJSON(result)
	}
	var sb strings.Builder
	sb.WriteString("📈 **Memory Store Statistics**\n\n")
	sb.WriteString("┌────────────────────────────────────────┐\n")
	sb.WriteString(fmt.Sprintf("│  📝 Memories:      %6d              │\n", data.TotalMemories))
	sb.WriteString(fmt.Sprintf("│  🔗 Relationships: %6d              │\n", data.TotalRelationships))
	sb.WriteString(fmt.Sprintf("│  ⭐ Avg Importance: %.2f                │\n", data.AvgImportance))
	sb.WriteString(fmt.Sprintf("│  🎯 Avg Confidence: %.2f                │\n", data.AvgConfidence))
	sb.WriteString("└────────────────────────────────────────┘\n")

	if len(data.MemoriesByType) > 0 {
		sb.WriteString("\n**By Type:**\n```yaml\n")
		for t, c := range data.MemoriesByType {
			sb.WriteString(fmt.Sprintf("%s: %d\n", t, c))
		}
		sb.WriteString("```")
	}
	return sb.String()
}

func (f *Formatter) formatContextRelationships(result interface{}) string {
	data, ok := result.([]domain.Relationship)
	if !ok {
		return f.fallbackJSON(result)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🧭 **%d matching relationship(s)**\n\n", len(data)))
	for i, rel := range data {
		sb.WriteString(fmt.Sprintf("%d. `%s` —(%s)→ `%s`\n", i+1, f.truncateID(rel.FromMemoryID), rel.Type, f.truncateID(rel.ToMemoryID)))
		if rel.Properties.Context != "" {
			sb.WriteString(fmt.Sprintf("   *%s*\n", f.truncateContent(rel.Properties.Context, 80)))
		}
	}
	return sb.String()
}

func (f *Formatter) formatPerformance(duration time.Duration) string {
	ms := duration.Milliseconds()
	var speedIcon string
	switch {
	case ms < 100:
		speedIcon = "⚡"
	case ms < 500:
		speedIcon = "🚀"
	case ms < 1000:
		speedIcon = "✓"
	default:
		speedIcon = "🐢"
	}
	return fmt.Sprintf("%s *Completed in %dms*", speedIcon, ms)
}

func (f *Formatter) getSuggestions(toolName string) []string {
	suggestions := map[string][]string{
		"store_memory": {
			"Use `recall_memories` to verify the memory was indexed",
			"Use `create_relationship` to connect it to related knowledge",
		},
		"recall_memories": {
			"Use `get_memory` for full details on a result",
			"Use `get_related_memories` to explore connections",
		},
		"search_memories": {
			"Use `get_memory` for full details on a result",
			"Use `search_relationships_by_context` to narrow by structured context",
		},
		"create_relationship": {
			"Use `get_related_memories` to confirm the new edge",
		},
	}
	if s, ok := suggestions[toolName]; ok {
		return s
	}
	return nil
}

// Helper functions

func (f *Formatter) makeProgressBar(value float64, width int) string {
	if value < 0 {
		value = 0
	}
	if value > 1 {
		value = 1
	}
	filled := int(value * float64(width))
	empty := width - filled
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", empty) + "]"
}

func (f *Formatter) truncateID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:8] + "..."
}

func (f *Formatter) truncateContent(content string, maxLen int) string {
	content = strings.ReplaceAll(content, "\n", " ")
	if len(content) <= maxLen {
		return content
	}
	return content[:maxLen-3] + "..."
}

func (f *Formatter) formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.Format("Jan 02, 2006 15:04")
}

func (f *Formatter) fallbackJSON(result interface{}) string {
	jsonBytes, _ := json.MarshalIndent(result, "", "  ")
	return string(jsonBytes)
}
