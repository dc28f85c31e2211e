package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MemoryType is the fixed enum of knowledge-item kinds the store recognizes.
type MemoryType string

const (
	MemoryTypeTask        MemoryType = "task"
	MemoryTypeCodePattern MemoryType = "code_pattern"
	MemoryTypeProblem     MemoryType = "problem"
	MemoryTypeSolution    MemoryType = "solution"
	MemoryTypeProject     MemoryType = "project"
	MemoryTypeTechnology  MemoryType = "technology"
	MemoryTypeError       MemoryType = "error"
	MemoryTypeFix         MemoryType = "fix"
	MemoryTypeCommand     MemoryType = "command"
	MemoryTypeFileContext MemoryType = "file_context"
	MemoryTypeWorkflow    MemoryType = "workflow"
	MemoryTypeGeneral     MemoryType = "general"
)

// MemoryTypes is the ordered set of all valid memory types.
var MemoryTypes = []MemoryType{
	MemoryTypeTask, MemoryTypeCodePattern, MemoryTypeProblem, MemoryTypeSolution,
	MemoryTypeProject, MemoryTypeTechnology, MemoryTypeError, MemoryTypeFix,
	MemoryTypeCommand, MemoryTypeFileContext, MemoryTypeWorkflow, MemoryTypeGeneral,
}

// IsValidMemoryType reports whether t is one of the fixed enum values.
func IsValidMemoryType(t string) bool {
	for _, mt := range MemoryTypes {
		if string(mt) == t {
			return true
		}
	}
	return false
}

// Context carries optional situational metadata about where a Memory came from.
type Context struct {
	ProjectPath        string                 `json:"project_path,omitempty"`
	Files              []string               `json:"files,omitempty"`
	Languages          []string               `json:"languages,omitempty"`
	Frameworks         []string               `json:"frameworks,omitempty"`
	Technologies       []string               `json:"technologies,omitempty"`
	GitCommit          string                 `json:"git_commit,omitempty"`
	GitBranch          string                 `json:"git_branch,omitempty"`
	WorkingDirectory   string                 `json:"working_directory,omitempty"`
	AdditionalMetadata map[string]interface{} `json:"additional_metadata,omitempty"`
}

// IsEmpty reports whether the context carries no information at all.
func (c *Context) IsEmpty() bool {
	if c == nil {
		return true
	}
	return c.ProjectPath == "" && len(c.Files) == 0 && len(c.Languages) == 0 &&
		len(c.Frameworks) == 0 && len(c.Technologies) == 0 && c.GitCommit == "" &&
		c.GitBranch == "" && c.WorkingDirectory == "" && len(c.AdditionalMetadata) == 0
}

// Memory is a typed, content-addressed knowledge item.
type Memory struct {
	ID            string     `json:"id"`
	Type          MemoryType `json:"type"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	Summary       string     `json:"summary,omitempty"`
	Tags          []string   `json:"tags"`
	Importance    float64    `json:"importance"`
	Confidence    float64    `json:"confidence"`
	Effectiveness *float64   `json:"effectiveness,omitempty"`
	UsageCount    int        `json:"usage_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastAccessed  *time.Time `json:"last_accessed,omitempty"`
	Context       *Context   `json:"context,omitempty"`
	Version       int        `json:"version,omitempty"`
	UpdatedBy     string     `json:"updated_by,omitempty"`
}

const (
	maxTitleLen   = 200
	maxSummaryLen = 500
)

// clamp01 keeps a value in [0,1], per invariant 4.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NormalizeTags lowercases, trims and de-duplicates a tag list, per invariant 5.
// Order of first occurrence is preserved; insertion order is otherwise irrelevant.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		nt := strings.ToLower(strings.TrimSpace(t))
		if nt == "" {
			continue
		}
		if _, ok := seen[nt]; ok {
			continue
		}
		seen[nt] = struct{}{}
		out = append(out, nt)
	}
	return out
}

// Prepare assigns an id if absent, normalizes tags, clamps numeric fields, and
// stamps created_at/updated_at per invariants 4, 5, 6, 8. isNew indicates
// whether created_at should be set (true) or preserved (false, on update).
func (m *Memory) Prepare(isNew bool) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Title = strings.TrimSpace(m.Title)
	if len(m.Title) > maxTitleLen {
		m.Title = m.Title[:maxTitleLen]
	}
	m.Content = strings.TrimSpace(m.Content)
	m.Summary = strings.TrimSpace(m.Summary)
	if len(m.Summary) > maxSummaryLen {
		m.Summary = m.Summary[:maxSummaryLen]
	}
	m.Tags = NormalizeTags(m.Tags)
	m.Importance = clamp01(m.Importance)
	m.Confidence = clamp01(m.Confidence)
	if m.Effectiveness != nil {
		e := clamp01(*m.Effectiveness)
		m.Effectiveness = &e
	}
	if m.UsageCount < 0 {
		m.UsageCount = 0
	}
	now := time.Now().UTC()
	if isNew && m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	if m.UpdatedAt.Before(m.CreatedAt) {
		m.UpdatedAt = m.CreatedAt
	}
}

// Validate enforces the non-structural invariants that Prepare cannot silently
// fix: a title and content must be present, and the type must be one of the
// fixed enum values.
func (m *Memory) Validate() error {
	if m.Title == "" {
		return NewError(KindValidation, "title is required", nil)
	}
	if m.Content == "" {
		return NewError(KindValidation, "content is required", nil)
	}
	if !IsValidMemoryType(string(m.Type)) {
		return NewError(KindValidation, "invalid memory type: "+string(m.Type), nil)
	}
	return nil
}

// DefaultImportance and DefaultConfidence are applied by callers constructing
// a new Memory before Prepare is invoked, matching spec defaults of 0.5/0.8.
const (
	DefaultImportance = 0.5
	DefaultConfidence = 0.8
)
