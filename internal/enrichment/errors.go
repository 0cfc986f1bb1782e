package enrichment

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBatchFailed is matched by every *BatchError.
var ErrBatchFailed = errors.New("batch enrichment failed")

// ErrService marks a failure reported by the description service itself.
// Describers wrap service-side failures with it so the orchestrator can tell
// them apart from transport problems.
var ErrService = errors.New("enrichment service error")

// Kind classifies a per-lot failure for logging.
type Kind string

const (
	// KindTransport covers network failures, deadlines and cancellation.
	KindTransport Kind = "transport"
	// KindService covers non-success responses and unusable output.
	KindService Kind = "service"
)

// GroupError is the failure of one lot's description call.
type GroupError struct {
	GroupIndex int
	Kind       Kind
	Err        error
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("lot %d: %s: %v", e.GroupIndex+1, e.Kind, e.Err)
}

func (e *GroupError) Unwrap() error {
	return e.Err
}

// BatchError reports that at least one lot of a confirmation failed.
type BatchError struct {
	Total    int
	Failures []*GroupError
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("enrichment failed for %d of %d lots: %s", len(e.Failures), e.Total, strings.Join(parts, "; "))
}

// Is lets errors.Is match ErrBatchFailed.
func (e *BatchError) Is(target error) bool {
	return target == ErrBatchFailed
}

// Unwrap exposes the per-lot failures.
func (e *BatchError) Unwrap() []error {
	out := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		out[i] = f
	}
	return out
}

func classify(err error) Kind {
	if errors.Is(err, ErrService) {
		return KindService
	}
	return KindTransport
}
