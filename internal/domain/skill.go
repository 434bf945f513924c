package domain

import (
	"strconv"
	"strings"
)

// SkillType distinguishes what a course says about a skill: an outcome it
// teaches or an entry requirement it expects.
type SkillType string

const (
	SkillTypeOutcome SkillType = "outcome"
	SkillTypeEntry   SkillType = "entry"
)

func (t SkillType) Valid() bool {
	return t == SkillTypeOutcome || t == SkillTypeEntry
}

// TaxonomyEntry is one canonical skill definition from the taxonomy snapshot.
// Entries are loaded once per run and read-only thereafter.
type TaxonomyEntry struct {
	SkillID         string   `json:"skill_id"`
	PreferredLabel  string   `json:"preferred_label"`
	Description     string   `json:"description"`
	SkillType       string   `json:"skill_type"`
	AlternateLabels []string `json:"alternative_labels"`
	BroaderSkillIDs []string `json:"broader_skill_ids"`
}

// EmbeddingText composes the text that represents this entry for both
// indexing and rerank scoring: label, description, then alternate labels.
func (e TaxonomyEntry) EmbeddingText() string {
	parts := make([]string, 0, 3)
	if e.PreferredLabel != "" {
		parts = append(parts, e.PreferredLabel)
	}
	if e.Description != "" {
		parts = append(parts, e.Description)
	}
	if len(e.AlternateLabels) > 0 {
		parts = append(parts, strings.Join(e.AlternateLabels, "; "))
	}
	return strings.Join(parts, ". ")
}

// SkillQuery is one free-text skill mention extracted from a course catalog.
type SkillQuery struct {
	CourseID           string    `json:"course_id"`
	CourseTitle        string    `json:"course_title"`
	SkillName          string    `json:"skill_name"`
	SkillType          SkillType `json:"skill_type"`
	Description        string    `json:"description"`
	Category           string    `json:"category"`
	ProficiencyLevel   *int      `json:"proficiency_level"`
	BloomTaxonomyLevel string    `json:"bloom_taxonomy_level"`
	SourceFile         string    `json:"source_file"`
}

// EmbeddingPayload synthesizes the query string handed to the encoder and the
// pair scorer. Field order matters for reproducibility.
func (q SkillQuery) EmbeddingPayload() string {
	fragments := make([]string, 0, 6)
	fragments = append(fragments, q.SkillName)
	if q.Description != "" {
		fragments = append(fragments, q.Description)
	}
	if q.Category != "" {
		fragments = append(fragments, "Category: "+q.Category)
	}
	if q.BloomTaxonomyLevel != "" {
		fragments = append(fragments, "Bloom level: "+q.BloomTaxonomyLevel)
	}
	if q.ProficiencyLevel != nil {
		fragments = append(fragments, "Proficiency: "+strconv.Itoa(*q.ProficiencyLevel))
	}
	if q.CourseTitle != "" {
		fragments = append(fragments, "Course: "+q.CourseTitle)
	}
	out := fragments[:0]
	for _, f := range fragments {
		if strings.TrimSpace(f) != "" {
			out = append(out, f)
		}
	}
	return strings.Join(out, ". ")
}
