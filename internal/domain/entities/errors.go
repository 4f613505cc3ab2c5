package entities

import (
	"errors"
	"fmt"
)

var (
	ErrRetrieval            = errors.New("retrieval failed")
	ErrGenerationTimeout    = errors.New("generation timed out")
	ErrGenerationConnection = errors.New("generation endpoint unreachable")
	ErrEndpoint             = errors.New("generation endpoint error")
	ErrPipelineHalted       = errors.New("pipeline failed")
	ErrFileNotFound         = errors.New("file not found")
	ErrUnsupportedFileType  = errors.New("unsupported file type")
	ErrInvalidFileName      = errors.New("invalid file name")
)

// GenerationError is a classified generator failure.
type GenerationError struct {
	Kind error // one of ErrGenerationTimeout, ErrGenerationConnection, ErrEndpoint
	Err  error
}

func (e *GenerationError) Error() string {
	if e.Err == nil {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

// Is lets errors.Is match the kind sentinel.
func (e *GenerationError) Is(target error) bool { return target == e.Kind }

func (e *GenerationError) Unwrap() error { return e.Err }
