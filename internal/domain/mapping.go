package domain

import "time"

// MappingCandidate is one taxonomy entry under consideration for a single
// query. It lives only for the duration of that query's decision.
type MappingCandidate struct {
	// Index is the candidate's position in the taxonomy snapshot; the
	// metadata record and the embedding row share it.
	Index int
	// RawSimilarity is the cosine similarity from dense retrieval, in [-1, 1].
	RawSimilarity float64
	// RerankScore is set only when a pair scorer ran for this query.
	RerankScore *float64
}

// MappedSkill is the mapping decision for one query. ResolvedIndex is nil for
// an unmapped query; RawSimilarity is retained either way for diagnostics.
type MappedSkill struct {
	Query         SkillQuery
	ResolvedIndex *int
	RawSimilarity *float64
	RerankScore   *float64
	// DegradedRerank marks queries where the scorer failed and ordering fell
	// back to raw similarity.
	DegradedRerank bool
}

// MappingRecord is the flat line-delimited output record, also persisted to
// the relational mapping table.
type MappingRecord struct {
	ID                 int64     `gorm:"column:id;primaryKey;autoIncrement:true" json:"-"`
	CourseID           string    `gorm:"column:course_id;not null;index" json:"course_id"`
	CourseTitle        string    `gorm:"column:course_title;not null" json:"course_title"`
	SkillName          string    `gorm:"column:skill_name;not null" json:"skill_name"`
	SkillType          string    `gorm:"column:skill_type;not null" json:"skill_type"`
	Description        string    `gorm:"column:description" json:"description"`
	Category           string    `gorm:"column:category" json:"category"`
	ProficiencyLevel   *int      `gorm:"column:proficiency_level" json:"proficiency_level"`
	BloomTaxonomyLevel string    `gorm:"column:bloom_taxonomy_level" json:"bloom_taxonomy_level"`
	SourceFile         string    `gorm:"column:source_file" json:"source_file"`
	EscoSkillID        *string   `gorm:"column:esco_skill_id;index" json:"esco_skill_id"`
	EscoPreferredLabel *string   `gorm:"column:esco_preferred_label" json:"esco_preferred_label"`
	EscoDescription    *string   `gorm:"column:esco_description" json:"esco_description"`
	SimilarityScore    *float64  `gorm:"column:similarity_score" json:"similarity_score"`
	RerankScore        *float64  `gorm:"column:rerank_score" json:"rerank_score,omitempty"`
	DegradedRerank     bool      `gorm:"column:degraded_rerank;not null;default:false" json:"degraded_rerank,omitempty"`
	CreatedAt          time.Time `gorm:"not null;default:now()" json:"-"`
}

func (MappingRecord) TableName() string { return "course_skill_mapping" }

// Record flattens a mapping decision against the taxonomy snapshot it was
// made over. The caller guarantees entries is the same slice the matcher ran
// against, so ResolvedIndex stays positionally valid.
func (m MappedSkill) Record(entries []TaxonomyEntry) MappingRecord {
	rec := MappingRecord{
		CourseID:           m.Query.CourseID,
		CourseTitle:        m.Query.CourseTitle,
		SkillName:          m.Query.SkillName,
		SkillType:          string(m.Query.SkillType),
		Description:        m.Query.Description,
		Category:           m.Query.Category,
		ProficiencyLevel:   m.Query.ProficiencyLevel,
		BloomTaxonomyLevel: m.Query.BloomTaxonomyLevel,
		SourceFile:         m.Query.SourceFile,
		SimilarityScore:    m.RawSimilarity,
		RerankScore:        m.RerankScore,
		DegradedRerank:     m.DegradedRerank,
	}
	if m.ResolvedIndex != nil && *m.ResolvedIndex >= 0 && *m.ResolvedIndex < len(entries) {
		entry := entries[*m.ResolvedIndex]
		rec.EscoSkillID = &entry.SkillID
		rec.EscoPreferredLabel = &entry.PreferredLabel
		rec.EscoDescription = &entry.Description
	}
	return rec
}
