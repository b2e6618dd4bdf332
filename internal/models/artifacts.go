package models

type Requirement struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Domain      string `json:"domain"`
	CreatedBy   string `json:"created_by"`
	Iteration   int    `json:"iteration"`
}

type UserStory struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	ReqIDs             []string `json:"req_ids"`
	Domain             string   `json:"domain"`
	Priority           string   `json:"priority"`
	StoryPoints        int      `json:"story_points"`
	CreatedBy          string   `json:"created_by"`
	Iteration          int      `json:"iteration"`
}

type TestCase struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// FileRef is a generated file without its content, as listed in the
// artifacts payload.
type FileRef struct {
	Path      string   `json:"path"`
	USIDs     []string `json:"us_ids"`
	CreatedBy string   `json:"created_by"`
}

// FileEntry is a generated file with content, from GET /runs/{id}/files
// or the single-file endpoint.
type FileEntry struct {
	Path      string   `json:"path"`
	Content   string   `json:"content"`
	USIDs     []string `json:"us_ids"`
	CreatedBy string   `json:"created_by"`
	Lines     int      `json:"lines"`
}

type IntegrationIssue struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
	File        string `json:"file"`
}

// Artifacts is the full artifact bundle for a run. Sub-documents the
// console only displays verbatim (tech spec, per-team specs) stay as raw
// maps rather than growing mirror types of the backend's schemas.
type Artifacts struct {
	Requirements      []Requirement      `json:"requirements"`
	Inception         map[string]any     `json:"inception"`
	UserStories       []UserStory        `json:"user_stories"`
	TechSpec          map[string]any     `json:"tech_spec"`
	BackendSpec       map[string]any     `json:"backend_spec"`
	FrontendSpec      map[string]any     `json:"frontend_spec"`
	QASpec            map[string]any     `json:"qa_spec"`
	DevOpsSpec        map[string]any     `json:"devops_spec"`
	TestCases         []TestCase         `json:"test_cases"`
	IntegrationScore  int                `json:"integration_score"`
	IntegrationIssues []IntegrationIssue `json:"integration_issues"`
	GeneratedFiles    []FileRef          `json:"generated_files"`
}
