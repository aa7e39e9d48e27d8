package util

import (
	"errors"
	"fmt"
)

// PipelineError standardizes fatal pipeline errors.
type PipelineError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// NewPipelineError constructs a PipelineError.
func NewPipelineError(code, message string, details map[string]any) *PipelineError {
	return &PipelineError{Code: code, Message: message, Details: details}
}

// NewTaxonomyLoadError marks an unreadable or structurally invalid taxonomy source.
func NewTaxonomyLoadError(source string, err error) error {
	return &PipelineError{
		Code:    "TAXONOMY_LOAD_FAILED",
		Message: fmt.Sprintf("cannot load taxonomy from %s", source),
		Details: map[string]any{"source": source},
		Err:     err,
	}
}

// NewNoInputFilesError marks an input glob that matched nothing.
func NewNoInputFilesError(pattern string) error {
	return &PipelineError{
		Code:    "NO_INPUT_FILES",
		Message: fmt.Sprintf("no files matched: %s", pattern),
		Details: map[string]any{"pattern": pattern},
	}
}

// NewOutputWriteError wraps a failure to produce an output artifact.
func NewOutputWriteError(path string, err error) error {
	return &PipelineError{
		Code:    "OUTPUT_WRITE_FAILED",
		Message: fmt.Sprintf("cannot write output %s", path),
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// ToPipelineError converts generic errors to PipelineError.
func ToPipelineError(err error) *PipelineError {
	if err == nil {
		return nil
	}
	var pipelineErr *PipelineError
	if errors.As(err, &pipelineErr) {
		return pipelineErr
	}
	return &PipelineError{
		Code:    "INTERNAL_ERROR",
		Message: "internal pipeline error",
		Err:     err,
	}
}
