package execution

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"codecollab/contract"
	"codecollab/domain"
	cerr "codecollab/errors"

	"github.com/cenkalti/backoff"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// errNotFinished drives the retry loop while the judge reports a
// non-terminal status (id 2 or below).
var errNotFinished = fmt.Errorf("submission not finished")

// RunRequest is one code-run submission as triggered by the UI.
type RunRequest struct {
	SourceCode string `json:"source_code" validate:"required"`
	LanguageID int    `json:"language_id" validate:"required"`
	Stdin      string `json:"stdin"`
}

// RunResult is the normalized outcome of one run.
type RunResult struct {
	Submission domain.Submission
	Snapshot   domain.StatusSnapshot
	Output     string
}

// Dispatcher submits a run to the judge and drives a bounded polling loop
// until the job reaches a terminal state. Each run owns its token; nothing
// is shared across concurrent runs.
type Dispatcher struct {
	log          *slog.Logger
	judge        contract.JudgeClient
	pollInterval time.Duration
	maxPolls     uint64
}

// NewDispatcher bounds the poll loop at maxPolls attempts spaced
// pollInterval apart. The bound is deliberate: an unbounded wait on a judge
// that never terminates is an availability hazard.
func NewDispatcher(log *slog.Logger, judge contract.JudgeClient, pollInterval time.Duration, maxPolls uint64) *Dispatcher {
	return &Dispatcher{
		log:          log,
		judge:        judge,
		pollInterval: pollInterval,
		maxPolls:     maxPolls,
	}
}

// Run executes one submit-poll-aggregate cycle. Cancelling ctx abandons the
// loop immediately; the stale token is simply never polled again.
func (d *Dispatcher) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	if err := d.validateRequest(req); err != nil {
		return RunResult{}, err
	}

	token, err := d.judge.CreateSubmission(ctx, req.SourceCode, req.LanguageID, req.Stdin)
	if err != nil {
		return RunResult{}, err
	}
	d.log.Info("Submission created", "token", token, "language", req.LanguageID)

	sub := domain.Submission{
		Token:      token,
		SourceCode: req.SourceCode,
		LanguageID: req.LanguageID,
		Stdin:      req.Stdin,
		Status:     domain.SubmissionQueued,
	}

	snap, err := d.poll(ctx, token)
	if err != nil {
		sub.Status = domain.SubmissionErrored
		return RunResult{Submission: sub}, err
	}

	sub.Status = statusOf(snap)
	return RunResult{
		Submission: sub,
		Snapshot:   snap,
		Output:     Aggregate(snap),
	}, nil
}

func (d *Dispatcher) validateRequest(req RunRequest) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", cerr.ErrSubmissionRejected, err)
	}
	if !slices.Contains(SupportedLanguages(), req.LanguageID) {
		return fmt.Errorf("%w: %d", cerr.ErrUnsupportedLanguage, req.LanguageID)
	}
	return nil
}

// poll fetches the judge status at a fixed interval until the job turns
// terminal, the attempt budget runs out, or ctx is cancelled.
func (d *Dispatcher) poll(ctx context.Context, token string) (domain.StatusSnapshot, error) {
	var snap domain.StatusSnapshot

	operation := func() error {
		current, err := d.judge.GetSubmission(ctx, token)
		if err != nil {
			// Transient poll failure: retry within the same budget.
			return err
		}
		snap = current
		if !snap.Terminal() {
			return errNotFinished
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(d.pollInterval), d.maxPolls),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		if ctx.Err() != nil {
			return domain.StatusSnapshot{}, ctx.Err()
		}
		d.log.Warn("Polling gave up", "token", token, "error", err)
		if errors.Is(err, errNotFinished) {
			return domain.StatusSnapshot{}, fmt.Errorf("%w: token %s", cerr.ErrPollTimeout, token)
		}
		return domain.StatusSnapshot{}, err
	}
	return snap, nil
}

// statusOf collapses the judge's status table into the local lifecycle:
// id 3 is an accepted run, anything else terminal is an error of some kind.
func statusOf(snap domain.StatusSnapshot) domain.SubmissionStatus {
	switch {
	case !snap.Terminal():
		if snap.StatusID <= 1 {
			return domain.SubmissionQueued
		}
		return domain.SubmissionProcessing
	case snap.StatusID == 3:
		return domain.SubmissionDone
	default:
		return domain.SubmissionErrored
	}
}
