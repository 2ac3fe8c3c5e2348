package payment

// Classifier maps a raw status to a UI state. It must be pure.
type Classifier func(Status) UIState

// Classify is the default classifier. FAILED is terminal for every flow.
func Classify(status Status) UIState {
	switch status {
	case StatusCompleted:
		return StateSuccess
	case StatusCancelled, StatusFailed:
		return StateFailed
	default:
		return StatePending
	}
}

// ClassifyIgnoringFailed keeps FAILED in the pending bucket, matching flows
// that only ever distinguished COMPLETED and CANCELLED.
func ClassifyIgnoringFailed(status Status) UIState {
	if status == StatusFailed {
		return StatePending
	}
	return Classify(status)
}
