// Package job turns the loosely formatted console output of a submitted
// MapReduce job into a JobResult.
package job

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/cuemby/clusterscope/pkg/types"
)

const (
	errorMarker   = "Exception"
	successMarker = "successfully"
)

var completedPattern = regexp.MustCompile(`^.*Job .* completed.*$`)

// ErrInvalidBuild is matched by every BuildError
var ErrInvalidBuild = errors.New("invalid job result")

// BuildError reports a job result that cannot be finalized
type BuildError struct {
	Name   string
	Reason string
}

func (e *BuildError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("invalid job result: %s", e.Reason)
	}
	return fmt.Sprintf("invalid result for job %s: %s", e.Name, e.Reason)
}

func (e *BuildError) Is(target error) bool {
	return target == ErrInvalidBuild
}

// Builder accumulates the fields of a job result. Build validates them.
type Builder struct {
	name      string
	success   bool
	completed bool
	errors    []string
}

// NewBuilder starts a result for the named job
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// WithError appends an error line
func (b *Builder) WithError(line string) *Builder {
	b.errors = append(b.errors, line)
	return b
}

// WithSuccess records the completion verdict. The last call wins.
func (b *Builder) WithSuccess(success bool) *Builder {
	b.success = success
	b.completed = true
	return b
}

// Build returns the finalized result. A result needs a name and a
// completion line.
func (b *Builder) Build() (types.JobResult, error) {
	if strings.TrimSpace(b.name) == "" {
		return types.JobResult{}, &BuildError{Reason: "job name is required"}
	}
	if !b.completed {
		return types.JobResult{}, &BuildError{Name: b.name, Reason: "no job completion line found in output"}
	}

	alerts := make([]string, len(b.errors))
	copy(alerts, b.errors)
	return types.JobResult{
		Name:    b.name,
		Success: b.success,
		Alerts:  alerts,
	}, nil
}

// Parse folds stdout and the trimmed stderr of a job run into a result.
// Lines containing "Exception" become alerts; a "Job ... completed" line
// sets success when it also says "successfully".
func Parse(name, stdout, stderr string) (types.JobResult, error) {
	b := NewBuilder(name)

	for _, line := range strings.Split(stdout+strings.TrimSpace(stderr), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, errorMarker) {
			b.WithError(line)
		}
		if completedPattern.MatchString(line) {
			b.WithSuccess(strings.Contains(line, successMarker))
		}
	}

	return b.Build()
}

// Failed creates the placeholder result of a job that could not run or
// whose output could not be understood
func Failed(name, alert string) types.JobResult {
	return types.JobResult{
		Name:    name,
		Success: false,
		Alerts:  []string{alert},
	}
}

// ParseOrFail parses output and substitutes a failed result carrying the
// parse error as its only alert
func ParseOrFail(name, stdout, stderr string) types.JobResult {
	result, err := Parse(name, stdout, stderr)
	if err != nil {
		return Failed(name, err.Error())
	}
	return result
}
