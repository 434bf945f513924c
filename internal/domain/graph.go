package domain

// Graph node and edge records as they are merged into the graph store. All
// merges are keyed by natural IDs so re-running a batch is idempotent.

type SkillNode struct {
	SkillID         string
	PreferredLabel  string
	Description     string
	SkillType       string
	AlternateLabels []string
}

type CourseNode struct {
	CourseID    string
	CourseTitle string
	Category    string
	SourceFile  string
}

// BroaderEdge links a skill to a broader (parent) skill in the taxonomy.
type BroaderEdge struct {
	ChildID  string
	ParentID string
}

// TeachesEdge marks that a course teaches a skill (skill_type=outcome).
type TeachesEdge struct {
	CourseID        string
	SkillID         string
	SimilarityScore *float64
	SkillType       string
	Source          string
}

// RequiresEdge marks that a course expects a skill on entry (skill_type=entry).
type RequiresEdge struct {
	CourseID  string
	SkillID   string
	SkillType string
	Source    string
}
