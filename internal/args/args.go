// Package args turns the raw string flags of a run into validated values.
package args

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/t3m8ch/checkrunner/internal/model"
)

type InvalidArgumentError struct {
	Name    string
	Value   string
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid --%s %q: %s", e.Name, e.Value, e.Message)
}

// Raw holds the flag values exactly as they were given.
type Raw struct {
	AdditionalFiles string
	References      string
	Submission      string
	Timeout         string
}

type Normalized struct {
	AdditionalFiles []string
	References      []string
	Submission      string
	Timeout         model.Timeout
}

// ParseList splits a newline-delimited value into trimmed, non-empty entries.
func ParseList(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

func ParseTimeout(s string) (model.Timeout, error) {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return model.DefaultTimeout(), nil
	case strings.EqualFold(s, "none"):
		return model.NoTimeout(), nil
	case isDigits(s):
		seconds, err := strconv.Atoi(s)
		if err != nil {
			return model.Timeout{}, &InvalidArgumentError{Name: "timeout", Value: s, Message: err.Error()}
		}
		return model.TimeoutSeconds(seconds), nil
	default:
		return model.Timeout{}, &InvalidArgumentError{
			Name:    "timeout",
			Value:   s,
			Message: "timeout must be a positive integer, 'none', or unspecified",
		}
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// AbsPaths resolves each path against base, the directory the process was
// invoked from.
func AbsPaths(paths []string, base string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if filepath.IsAbs(p) {
			out = append(out, filepath.Clean(p))
			continue
		}
		out = append(out, filepath.Join(base, p))
	}
	return out
}

func Normalize(raw Raw, cwd string) (*Normalized, error) {
	timeout, err := ParseTimeout(raw.Timeout)
	if err != nil {
		return nil, err
	}

	submission := strings.TrimSpace(raw.Submission)
	if submission == "" {
		return nil, &InvalidArgumentError{Name: "subm", Value: raw.Submission, Message: "a submission path is required"}
	}

	references := ParseList(raw.References)
	if len(references) == 0 {
		return nil, &InvalidArgumentError{Name: "references", Value: raw.References, Message: "at least one reference is required"}
	}

	return &Normalized{
		AdditionalFiles: AbsPaths(ParseList(raw.AdditionalFiles), cwd),
		References:      references,
		Submission:      submission,
		Timeout:         timeout,
	}, nil
}

// WorkspacePath resolves a repository-relative path against the workspace
// root. The current directory plays no part.
func WorkspacePath(workspace, repoPath string) string {
	return filepath.Join(workspace, repoPath)
}
