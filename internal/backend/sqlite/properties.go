package sqlite

import (
	"encoding/json"
	"time"

	"github.com/kgstore/kgstore/internal/domain"
)

// flatProperties is the on-disk JSON shape described in §4.3's "Properties
// layout": scalar fields at the top level, tags as an array, every context
// sub-field prefixed with context_, and additional_metadata serialized as a
// JSON string (a string-valued field, to keep the document itself flat).
type flatProperties struct {
	Type          string   `json:"type"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Summary       string   `json:"summary,omitempty"`
	Tags          []string `json:"tags"`
	Importance    float64  `json:"importance"`
	Confidence    float64  `json:"confidence"`
	Effectiveness *float64 `json:"effectiveness,omitempty"`
	UsageCount    int      `json:"usage_count"`
	LastAccessed  *string  `json:"last_accessed,omitempty"`
	Version       int      `json:"version,omitempty"`
	UpdatedBy     string   `json:"updated_by,omitempty"`

	ContextProjectPath      string `json:"context_project_path,omitempty"`
	ContextFiles            string `json:"context_files,omitempty"`       // JSON-array-as-string
	ContextLanguages        string `json:"context_languages,omitempty"`   // JSON-array-as-string
	ContextFrameworks       string `json:"context_frameworks,omitempty"`  // JSON-array-as-string
	ContextTechnologies     string `json:"context_technologies,omitempty"` // JSON-array-as-string
	ContextGitCommit        string `json:"context_git_commit,omitempty"`
	ContextGitBranch        string `json:"context_git_branch,omitempty"`
	ContextWorkingDirectory string `json:"context_working_directory,omitempty"`
	ContextAdditionalMeta   string `json:"context_additional_metadata,omitempty"` // serialized JSON object
}

func marshalStrings(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

func unmarshalStrings(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

// toProperties projects a Memory into its flat JSON document.
func toProperties(m *domain.Memory) ([]byte, error) {
	fp := flatProperties{
		Type:          string(m.Type),
		Title:         m.Title,
		Content:       m.Content,
		Summary:       m.Summary,
		Tags:          m.Tags,
		Importance:    m.Importance,
		Confidence:    m.Confidence,
		Effectiveness: m.Effectiveness,
		UsageCount:    m.UsageCount,
		Version:       m.Version,
		UpdatedBy:     m.UpdatedBy,
	}
	if m.LastAccessed != nil {
		s := m.LastAccessed.UTC().Format(time.RFC3339)
		fp.LastAccessed = &s
	}
	if m.Context != nil && !m.Context.IsEmpty() {
		c := m.Context
		fp.ContextProjectPath = c.ProjectPath
		fp.ContextFiles = marshalStrings(c.Files)
		fp.ContextLanguages = marshalStrings(c.Languages)
		fp.ContextFrameworks = marshalStrings(c.Frameworks)
		fp.ContextTechnologies = marshalStrings(c.Technologies)
		fp.ContextGitCommit = c.GitCommit
		fp.ContextGitBranch = c.GitBranch
		fp.ContextWorkingDirectory = c.WorkingDirectory
		if len(c.AdditionalMetadata) > 0 {
			b, err := json.Marshal(c.AdditionalMetadata)
			if err == nil {
				fp.ContextAdditionalMeta = string(b)
			}
		}
	}
	return json.Marshal(fp)
}

// fromProperties reconstructs a Memory from its id, timestamps, and flat
// JSON document.
func fromProperties(id string, createdAt, updatedAt time.Time, raw []byte) (*domain.Memory, error) {
	var fp flatProperties
	if err := json.Unmarshal(raw, &fp); err != nil {
		return nil, err
	}
	m := &domain.Memory{
		ID:            id,
		Type:          domain.MemoryType(fp.Type),
		Title:         fp.Title,
		Content:       fp.Content,
		Summary:       fp.Summary,
		Tags:          fp.Tags,
		Importance:    fp.Importance,
		Confidence:    fp.Confidence,
		Effectiveness: fp.Effectiveness,
		UsageCount:    fp.UsageCount,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
		Version:       fp.Version,
		UpdatedBy:     fp.UpdatedBy,
	}
	if fp.LastAccessed != nil {
		if t, err := time.Parse(time.RFC3339, *fp.LastAccessed); err == nil {
			m.LastAccessed = &t
		}
	}
	ctx := &domain.Context{
		ProjectPath:      fp.ContextProjectPath,
		Files:            unmarshalStrings(fp.ContextFiles),
		Languages:        unmarshalStrings(fp.ContextLanguages),
		Frameworks:       unmarshalStrings(fp.ContextFrameworks),
		Technologies:     unmarshalStrings(fp.ContextTechnologies),
		GitCommit:        fp.ContextGitCommit,
		GitBranch:        fp.ContextGitBranch,
		WorkingDirectory: fp.ContextWorkingDirectory,
	}
	if fp.ContextAdditionalMeta != "" {
		var meta map[string]interface{}
		if err := json.Unmarshal([]byte(fp.ContextAdditionalMeta), &meta); err == nil {
			ctx.AdditionalMetadata = meta
		}
	}
	if !ctx.IsEmpty() {
		m.Context = ctx
	}
	return m, nil
}

// relProperties is the flat JSON document persisted for a Relationship's
// property bag.
type relProperties struct {
	Strength             float64  `json:"strength"`
	Confidence           float64  `json:"confidence"`
	Context              string   `json:"context,omitempty"`
	EvidenceCount        int      `json:"evidence_count"`
	SuccessRate          *float64 `json:"success_rate,omitempty"`
	LastValidated        *string  `json:"last_validated,omitempty"`
	ValidationCount      int      `json:"validation_count"`
	CounterEvidenceCount int      `json:"counter_evidence_count"`
}

func toRelProperties(p domain.RelationshipProperties) ([]byte, error) {
	rp := relProperties{
		Strength:             p.Strength,
		Confidence:           p.Confidence,
		Context:              p.Context,
		EvidenceCount:        p.EvidenceCount,
		SuccessRate:          p.SuccessRate,
		ValidationCount:      p.ValidationCount,
		CounterEvidenceCount: p.CounterEvidenceCount,
	}
	if p.LastValidated != nil {
		s := p.LastValidated.UTC().Format(time.RFC3339)
		rp.LastValidated = &s
	}
	return json.Marshal(rp)
}

func fromRelProperties(createdAt time.Time, raw []byte) (domain.RelationshipProperties, error) {
	var rp relProperties
	if err := json.Unmarshal(raw, &rp); err != nil {
		return domain.RelationshipProperties{}, err
	}
	p := domain.RelationshipProperties{
		Strength:             rp.Strength,
		Confidence:           rp.Confidence,
		Context:              rp.Context,
		EvidenceCount:        rp.EvidenceCount,
		SuccessRate:          rp.SuccessRate,
		CreatedAt:            createdAt,
		ValidationCount:      rp.ValidationCount,
		CounterEvidenceCount: rp.CounterEvidenceCount,
	}
	if rp.LastValidated != nil {
		if t, err := time.Parse(time.RFC3339, *rp.LastValidated); err == nil {
			p.LastValidated = &t
		}
	}
	return p, nil
}
