package models

// ActivityEntry is one line of the agent activity feed. The feed is
// append-only on the backend; entries arrive in emission order and are
// never re-sorted here.
type ActivityEntry struct {
	Timestamp string `json:"timestamp"`
	Agent     string `json:"agent"`
	Icon      string `json:"icon"`
	Message   string `json:"message"`
	Detail    string `json:"detail"`
}

// DecisionEntry is one record of the pipeline's decision log. Historical
// and read-only: the console never mutates these.
type DecisionEntry struct {
	Timestamp         string   `json:"timestamp"`
	Agent             string   `json:"agent"`
	Phase             string   `json:"phase"`
	Decision          string   `json:"decision"`
	Justification     string   `json:"justification"`
	ArtifactsAffected []string `json:"artifacts_affected"`
	Iteration         int      `json:"iteration"`
}
