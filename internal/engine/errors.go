package engine

import (
	"fmt"
	"strings"

	"datasetgen/internal/domain"
)

// SubmissionError carries the engine's rejection of a job description.
type SubmissionError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SubmissionError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("engine: submission rejected: status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
	}
	if e.Err != nil {
		return "engine: submission failed: " + e.Err.Error()
	}
	return "engine: submission failed"
}

func (e *SubmissionError) Unwrap() []error {
	if e.Err == nil {
		return []error{domain.ErrSubmission}
	}
	return []error{domain.ErrSubmission, e.Err}
}

// TrackingError reports a job whose completion was never confirmed.
type TrackingError struct {
	PromptID string
	Reason   string
	Err      error
}

func (e *TrackingError) Error() string {
	msg := fmt.Sprintf("engine: tracking %s incomplete: %s", e.PromptID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TrackingError) Unwrap() []error {
	if e.Err == nil {
		return []error{domain.ErrTracking}
	}
	return []error{domain.ErrTracking, e.Err}
}
