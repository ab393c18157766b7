package repair

import (
	"errors"
	"fmt"
)

var (
	// ErrNotApplicable means the selected technique cannot operate on
	// the artifact as damaged, e.g. a segment strip with no scan data
	// left to keep.
	ErrNotApplicable = errors.New("technique not applicable")

	// ErrVerificationFailed means a technique produced output that did
	// not classify as valid on re-validation. The output is discarded.
	ErrVerificationFailed = errors.New("repaired output failed re-validation")

	// ErrUnrecoverable means repair was requested for an artifact the
	// classifier ruled out. The engine refuses rather than guessing.
	ErrUnrecoverable = errors.New("artifact is not repairable")
)

// TechniqueError wraps a failure inside one technique attempt.
type TechniqueError struct {
	Technique  string
	ArtifactID string
	Message    string
	Cause      error
}

func (e *TechniqueError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s on %s: %s: %v", e.Technique, e.ArtifactID, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s on %s: %s", e.Technique, e.ArtifactID, e.Message)
}

func (e *TechniqueError) Unwrap() error { return e.Cause }
