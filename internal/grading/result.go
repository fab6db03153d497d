package grading

import (
	"fmt"
	"strings"
)

type ReferenceResult struct {
	Name      string   `json:"name" msgpack:"name"`
	Satisfied bool     `json:"satisfied" msgpack:"satisfied"`
	Messages  []string `json:"messages" msgpack:"messages"`
}

// CheckResult is the result produced by the sandbox engine. The grader in the
// sandbox writes it as JSON to the result path.
type CheckResult struct {
	Submission string            `json:"submission" msgpack:"submission"`
	References []ReferenceResult `json:"references" msgpack:"references"`
	Logs       string            `json:"-" msgpack:"logs"`
}

func (r *CheckResult) Satisfied() bool {
	for _, ref := range r.References {
		if !ref.Satisfied {
			return false
		}
	}
	return len(r.References) > 0
}

func renderReport(r *CheckResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SUBMISSION: %s\n", r.Submission)
	for _, ref := range r.References {
		b.WriteString("\n")
		fmt.Fprintf(&b, "REFERENCE: %s\n", ref.Name)
		fmt.Fprintf(&b, "SATISFIED: %t\n", ref.Satisfied)
		if len(ref.Messages) == 0 {
			continue
		}
		b.WriteString("MESSAGES:\n")
		for _, msg := range ref.Messages {
			fmt.Fprintf(&b, "  - %s\n", msg)
		}
	}
	return b.String()
}
