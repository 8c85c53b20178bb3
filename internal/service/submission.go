package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"techbar/internal/models"
	"techbar/internal/platform"
	"techbar/internal/poller"
)

// SubmissionSource fetches a submission by id. *platform.Client satisfies it.
type SubmissionSource interface {
	Submission(ctx context.Context, id string) (*models.Submission, error)
}

// AwaitSubmission polls a submission on the catalog's ramp until it
// reaches state (Submitted when empty) and returns it. Cancelling ctx
// stops polling and returns the context error.
func (c *Catalog) AwaitSubmission(ctx context.Context, id string, state models.CoreState) (*models.Submission, error) {
	if c.submissions == nil {
		return nil, fmt.Errorf("await submission: %w", ErrUnavailable)
	}
	if state == "" {
		state = models.CoreStateSubmitted
	}
	switch state {
	case models.CoreStateDraft, models.CoreStateSubmitted, models.CoreStateClosed:
	default:
		return nil, invalid("unknown core state %q", state)
	}

	var latest *models.Submission
	err := poller.Poll(ctx, c.ramp, func(ctx context.Context) (bool, error) {
		sub, err := c.submissions.Submission(ctx, id)
		if platform.IsNotFound(err) {
			return false, fmt.Errorf("submission %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return false, &SourceError{Op: "submission", Err: err}
		}
		latest = sub
		zap.S().Debugw("submission polled", "id", id, "state", sub.CoreState, "want", state)
		return sub.Reached(state), nil
	})
	if err != nil {
		return latest, err
	}
	return latest, nil
}
