package cypher

import (
	"time"

	"github.com/kgstore/kgstore/internal/domain"
)

// memoryToProps projects a Memory onto a native graph property map: unlike
// the embedded backend's flat-JSON column, a Cypher-capable server stores
// properties directly on the node, so nested context fields are flattened
// with the same context_ prefix convention for parity with the internal
// dialect (§4.3), not because the remote store requires it.
func memoryToProps(m *domain.Memory) map[string]interface{} {
	p := map[string]interface{}{
		"type":        string(m.Type),
		"title":       m.Title,
		"content":     m.Content,
		"summary":     m.Summary,
		"tags":        m.Tags,
		"importance":  m.Importance,
		"confidence":  m.Confidence,
		"usage_count": m.UsageCount,
		"created_at":  m.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at":  m.UpdatedAt.UTC().Format(time.RFC3339),
		"version":     m.Version,
		"updated_by":  m.UpdatedBy,
	}
	if m.Effectiveness != nil {
		p["effectiveness"] = *m.Effectiveness
	}
	if m.LastAccessed != nil {
		p["last_accessed"] = m.LastAccessed.UTC().Format(time.RFC3339)
	}
	if m.Context != nil && !m.Context.IsEmpty() {
		c := m.Context
		p["context_project_path"] = c.ProjectPath
		p["context_files"] = c.Files
		p["context_languages"] = c.Languages
		p["context_frameworks"] = c.Frameworks
		p["context_technologies"] = c.Technologies
		p["context_git_commit"] = c.GitCommit
		p["context_git_branch"] = c.GitBranch
		p["context_working_directory"] = c.WorkingDirectory
	}
	return p
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	}
	return 0
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func asStrings(v interface{}) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []interface{}:
		out := make([]string, 0, len(vs))
		for _, e := range vs {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func parseTimeField(v interface{}) (time.Time, bool) {
	s := asString(v)
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// memoryFromNode reconstructs a Memory from a returned node record, whose
// "id" field and property map arrive merged in one map[string]interface{}
// (the shape a driver's node value unmarshals to).
func memoryFromNode(node map[string]interface{}) *domain.Memory {
	m := &domain.Memory{
		ID:         asString(node["id"]),
		Type:       domain.MemoryType(asString(node["type"])),
		Title:      asString(node["title"]),
		Content:    asString(node["content"]),
		Summary:    asString(node["summary"]),
		Tags:       asStrings(node["tags"]),
		Importance: asFloat(node["importance"]),
		Confidence: asFloat(node["confidence"]),
		UsageCount: asInt(node["usage_count"]),
		Version:    asInt(node["version"]),
		UpdatedBy:  asString(node["updated_by"]),
	}
	if v, ok := node["effectiveness"]; ok {
		f := asFloat(v)
		m.Effectiveness = &f
	}
	if t, ok := parseTimeField(node["created_at"]); ok {
		m.CreatedAt = t
	}
	if t, ok := parseTimeField(node["updated_at"]); ok {
		m.UpdatedAt = t
	}
	if t, ok := parseTimeField(node["last_accessed"]); ok {
		m.LastAccessed = &t
	}
	ctx := &domain.Context{
		ProjectPath:      asString(node["context_project_path"]),
		Files:            asStrings(node["context_files"]),
		Languages:        asStrings(node["context_languages"]),
		Frameworks:       asStrings(node["context_frameworks"]),
		Technologies:     asStrings(node["context_technologies"]),
		GitCommit:        asString(node["context_git_commit"]),
		GitBranch:        asString(node["context_git_branch"]),
		WorkingDirectory: asString(node["context_working_directory"]),
	}
	if !ctx.IsEmpty() {
		m.Context = ctx
	}
	return m
}

func relPropsToMap(p domain.RelationshipProperties) map[string]interface{} {
	out := map[string]interface{}{
		"strength":               p.Strength,
		"confidence":             p.Confidence,
		"context":                p.Context,
		"evidence_count":         p.EvidenceCount,
		"validation_count":       p.ValidationCount,
		"counter_evidence_count": p.CounterEvidenceCount,
		"created_at":             p.CreatedAt.UTC().Format(time.RFC3339),
	}
	if p.SuccessRate != nil {
		out["success_rate"] = *p.SuccessRate
	}
	if p.LastValidated != nil {
		out["last_validated"] = p.LastValidated.UTC().Format(time.RFC3339)
	}
	return out
}

func relPropsFromMap(raw map[string]interface{}) domain.RelationshipProperties {
	p := domain.RelationshipProperties{
		Strength:             asFloat(raw["strength"]),
		Confidence:           asFloat(raw["confidence"]),
		Context:              asString(raw["context"]),
		EvidenceCount:        asInt(raw["evidence_count"]),
		ValidationCount:      asInt(raw["validation_count"]),
		CounterEvidenceCount: asInt(raw["counter_evidence_count"]),
	}
	if v, ok := raw["success_rate"]; ok {
		f := asFloat(v)
		p.SuccessRate = &f
	}
	if t, ok := parseTimeField(raw["created_at"]); ok {
		p.CreatedAt = t
	}
	if t, ok := parseTimeField(raw["last_validated"]); ok {
		p.LastValidated = &t
	}
	return p
}
