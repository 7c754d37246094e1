package errors

import "fmt"

var (
	// ErrConnectivity covers channel subscribe, snapshot fetch and persist
	// failures. Sessions survive it on stale local state.
	ErrConnectivity = fmt.Errorf("connectivity failure")

	// ErrSubmissionRejected means the judge refused or never received a
	// submission. Terminal for that run only.
	ErrSubmissionRejected = fmt.Errorf("submission rejected")

	// ErrPollTimeout means a run exhausted its polling budget without the
	// judge reaching a terminal status.
	ErrPollTimeout = fmt.Errorf("poll timeout")

	// ErrMalformedEvent marks an inbound change event with an unexpected
	// shape. Such events are dropped, never fatal.
	ErrMalformedEvent = fmt.Errorf("malformed change event")

	ErrUnsupportedLanguage = fmt.Errorf("unsupported language id")
	ErrSessionClosed       = fmt.Errorf("session closed")
	ErrWorkerPanic         = fmt.Errorf("worker panic")
)
