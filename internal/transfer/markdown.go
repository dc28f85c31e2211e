package transfer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatter is the YAML header rendered at the top of each exported
// memory's Markdown file.
type frontMatter struct {
	ID         string   `yaml:"id"`
	Type       string   `yaml:"type"`
	Importance float64  `yaml:"importance"`
	Confidence float64  `yaml:"confidence"`
	Tags       []string `yaml:"tags,omitempty"`
	CreatedAt  string   `yaml:"created_at"`
}

// WriteMarkdown renders one file per memory into dir: YAML-style front
// matter plus sections for summary, content, and outgoing relationships as a
// bulleted list, the Markdown export sibling of §4.6.
func WriteMarkdown(dir string, env *Envelope) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create markdown export directory: %w", err)
	}

	outgoing := make(map[string][]RelationshipRecord)
	for _, r := range env.Relationships {
		outgoing[r.FromMemoryID] = append(outgoing[r.FromMemoryID], r)
	}
	byID := make(map[string]MemoryRecord, len(env.Memories))
	for _, m := range env.Memories {
		byID[m.ID] = m
	}

	for _, m := range env.Memories {
		path := filepath.Join(dir, m.ID+".md")
		if err := os.WriteFile(path, []byte(renderMemoryMarkdown(m, outgoing[m.ID], byID)), 0o644); err != nil {
			return fmt.Errorf("write markdown for memory %s: %w", m.ID, err)
		}
	}
	return nil
}

func renderMemoryMarkdown(m MemoryRecord, rels []RelationshipRecord, byID map[string]MemoryRecord) string {
	var b strings.Builder

	front, err := yaml.Marshal(frontMatter{
		ID:         m.ID,
		Type:       m.Type,
		Importance: m.Importance,
		Confidence: m.Confidence,
		Tags:       m.Tags,
		CreatedAt:  m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
	if err != nil {
		// yaml.Marshal on a plain struct of strings/floats never fails in
		// practice; fall back to an empty header rather than losing the
		// memory body over a front-matter rendering error.
		front = nil
	}
	b.WriteString("---\n")
	b.Write(front)
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# %s\n\n", m.Title)
	if m.Summary != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(m.Summary)
		b.WriteString("\n\n")
	}
	b.WriteString("## Content\n\n")
	b.WriteString(m.Content)
	b.WriteString("\n")

	if len(rels) > 0 {
		b.WriteString("\n## Relationships\n\n")
		for _, r := range rels {
			target := r.ToMemoryID
			if tm, ok := byID[r.ToMemoryID]; ok {
				target = tm.Title
			}
			fmt.Fprintf(&b, "- %s → %s (strength %.2f)\n", r.Type, target, r.Properties.Strength)
		}
	}
	return b.String()
}
