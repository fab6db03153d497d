// Package gradingtest provides a recording grading.Engine for tests.
package gradingtest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/t3m8ch/checkrunner/internal/grading"
	"github.com/t3m8ch/checkrunner/internal/model"
)

type Reference struct {
	RefName string
}

func (r Reference) Name() string {
	return r.RefName
}

// Outcome is the default result returned by Check.
type Outcome struct {
	Passed     bool     `msgpack:"passed"`
	References []string `msgpack:"references"`
}

// Engine loads reference files as plain text: one reference name per line, a
// file with more than one line loads as a list.
type Engine struct {
	mu sync.Mutex

	SupportsTimeout bool
	CheckErr        error
	LoadErr         error

	searchPath  []string
	searchCalls int
	loaded      []string
	submissions []*Submission
	checks      int
}

func New() *Engine {
	return &Engine{SupportsTimeout: true}
}

func (e *Engine) Load(path string) (model.Loaded, error) {
	e.mu.Lock()
	e.loaded = append(e.loaded, path)
	loadErr := e.LoadErr
	e.mu.Unlock()

	if loadErr != nil {
		return model.Loaded{}, loadErr
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Loaded{}, err
	}

	var refs []model.Reference
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			refs = append(refs, Reference{RefName: line})
		}
	}
	switch len(refs) {
	case 0:
		return model.Loaded{}, fmt.Errorf("%s: no references", path)
	case 1:
		return model.Single(refs[0]), nil
	default:
		return model.Many(refs), nil
	}
}

func (e *Engine) PrependSearchPath(dir string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.searchCalls++
	e.searchPath = append([]string{dir}, e.searchPath...)
}

func (e *Engine) SearchPath() ([]string, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.searchPath...), e.searchCalls
}

func (e *Engine) Loaded() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.loaded...)
}

func (e *Engine) Submissions() []*Submission {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Submission(nil), e.submissions...)
}

func (e *Engine) Checks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checks
}

func (e *Engine) Capabilities() grading.Capabilities {
	return grading.Capabilities{Timeout: e.SupportsTimeout}
}

func (e *Engine) NewSubmission(path string, additionalFiles []string, opts ...grading.SubmissionOption) (grading.Submission, error) {
	if !e.SupportsTimeout && grading.ApplyOptions(opts...).HasTimeout {
		return nil, fmt.Errorf("engine does not accept a timeout")
	}
	sub := &Submission{
		engine:          e,
		Path:            path,
		AdditionalFiles: additionalFiles,
		Options:         grading.ApplyOptions(opts...),
	}
	e.mu.Lock()
	e.submissions = append(e.submissions, sub)
	e.mu.Unlock()
	return sub, nil
}

func (e *Engine) GenerateReport(result grading.Result) (string, error) {
	out, ok := result.(*Outcome)
	if !ok {
		return "", fmt.Errorf("unsupported result type %T", result)
	}
	return fmt.Sprintf("passed: %t\nreferences: %s\n", out.Passed, strings.Join(out.References, ", ")), nil
}

type Submission struct {
	engine *Engine

	Path            string
	AdditionalFiles []string
	Options         grading.SubmissionOptions
	Checked         []string
	Dumped          string
}

func (s *Submission) Check(ctx context.Context, refs []model.Reference) (grading.Result, error) {
	s.engine.mu.Lock()
	s.engine.checks++
	checkErr := s.engine.CheckErr
	s.engine.mu.Unlock()

	if checkErr != nil {
		return nil, checkErr
	}
	s.Checked = model.ReferenceNames(refs)
	return &Outcome{Passed: true, References: s.Checked}, nil
}

func (s *Submission) Dump(path string) error {
	s.Dumped = path
	return os.WriteFile(path, []byte(s.Path+"\n"), 0644)
}
