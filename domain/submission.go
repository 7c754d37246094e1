package domain

// SubmissionStatus is the local lifecycle of one remote execution job.
type SubmissionStatus string

const (
	SubmissionQueued     SubmissionStatus = "queued"
	SubmissionProcessing SubmissionStatus = "processing"
	SubmissionDone       SubmissionStatus = "done"
	SubmissionErrored    SubmissionStatus = "errored"
)

// Submission is one code-execution job, identified by the opaque token the
// judge service returned at creation. Status transitions only via polling.
type Submission struct {
	Token      string
	SourceCode string
	LanguageID int
	Stdin      string
	Status     SubmissionStatus
}

// StatusSnapshot is the judge-side view of a submission at one poll.
// A status id of 2 or below means the job is not finished yet; anything
// above is terminal. Output fields are empty when the judge omitted them.
type StatusSnapshot struct {
	StatusID          int
	StatusDescription string
	Stdout            string
	Stderr            string
	CompileOutput     string
	Message           string
}

// Terminal reports whether the snapshot will never change again.
func (s StatusSnapshot) Terminal() bool {
	return s.StatusID > 2
}
