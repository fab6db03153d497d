package model

const (
	ReportArtifact                = "report-path"
	ResultsArtifact               = "results-path"
	StudentImplementationArtifact = "student-implementation-path"
)

type Artifact struct {
	Kind string `json:"kind" msgpack:"kind"`
	Path string `json:"path" msgpack:"path"`
}

type CompletedCheckEvent struct {
	RunID      string     `json:"runId"`
	Submission string     `json:"submission"`
	References []string   `json:"references"`
	Artifacts  []Artifact `json:"artifacts"`
}
