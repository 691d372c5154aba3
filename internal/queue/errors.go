package queue

// FailureStatus maps a stage error classification, as produced by
// services.Classify, to the status the workflow manager should persist after
// the stage fails.
//
// Configuration, validation, and not-found problems need operator attention
// before a retry can succeed, so they land in StatusReview. Everything else
// is treated as retryable and lands in StatusFailed.
func FailureStatus(kind string) Status {
	switch kind {
	case "configuration", "validation", "not_found":
		return StatusReview
	}
	return StatusFailed
}
