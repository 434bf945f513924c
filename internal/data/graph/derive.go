package graph

import (
	"github.com/hungdynguyen/skillgraph-backend/internal/domain"
)

const mappingProvenance = "embedding+rerank"

// DeriveTaxonomyGraph converts taxonomy entries into skill nodes and BROADER
// edges for the graph store.
func DeriveTaxonomyGraph(entries []domain.TaxonomyEntry) ([]domain.SkillNode, []domain.BroaderEdge) {
	nodes := make([]domain.SkillNode, 0, len(entries))
	var edges []domain.BroaderEdge
	for _, e := range entries {
		nodes = append(nodes, domain.SkillNode{
			SkillID:         e.SkillID,
			PreferredLabel:  e.PreferredLabel,
			Description:     e.Description,
			SkillType:       e.SkillType,
			AlternateLabels: e.AlternateLabels,
		})
		for _, parentID := range e.BroaderSkillIDs {
			edges = append(edges, domain.BroaderEdge{ChildID: e.SkillID, ParentID: parentID})
		}
	}
	return nodes, edges
}

// DeriveCourseGraph extracts course nodes and TEACHES/REQUIRES edges from
// mapping records. Only resolved mappings produce edges: outcome skills
// become TEACHES, entry skills become REQUIRES. Courses dedupe on first
// occurrence, keeping input order.
func DeriveCourseGraph(records []domain.MappingRecord) ([]domain.CourseNode, []domain.TeachesEdge, []domain.RequiresEdge) {
	var courses []domain.CourseNode
	seen := make(map[string]bool)
	var teaches []domain.TeachesEdge
	var requires []domain.RequiresEdge

	for _, rec := range records {
		if rec.CourseID == "" {
			continue
		}
		if !seen[rec.CourseID] {
			seen[rec.CourseID] = true
			courses = append(courses, domain.CourseNode{
				CourseID:    rec.CourseID,
				CourseTitle: rec.CourseTitle,
				Category:    rec.Category,
				SourceFile:  rec.SourceFile,
			})
		}
		if rec.EscoSkillID == nil || *rec.EscoSkillID == "" {
			continue
		}

		switch domain.SkillType(rec.SkillType) {
		case domain.SkillTypeOutcome:
			teaches = append(teaches, domain.TeachesEdge{
				CourseID:        rec.CourseID,
				SkillID:         *rec.EscoSkillID,
				SimilarityScore: rec.SimilarityScore,
				SkillType:       rec.SkillType,
				Source:          mappingProvenance,
			})
		case domain.SkillTypeEntry:
			requires = append(requires, domain.RequiresEdge{
				CourseID:  rec.CourseID,
				SkillID:   *rec.EscoSkillID,
				SkillType: rec.SkillType,
				Source:    mappingProvenance,
			})
		}
	}
	return courses, teaches, requires
}
