package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Outcome is the result of waiting on the login surface after a submission.
type Outcome int

const (
	// OutcomeRejected means the credential form reported an error.
	OutcomeRejected Outcome = iota + 1
	// OutcomeAuthorizationPending means an OAuth consent control is shown.
	OutcomeAuthorizationPending
	// OutcomeAuthenticated means the service origin was reached logged in.
	OutcomeAuthenticated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeAuthorizationPending:
		return "authorization_pending"
	case OutcomeAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

type watchResult struct {
	outcome Outcome
	err     error
}

// awaitOutcome races the three watchers of s. The first to return decides
// the outcome; the others are cancelled and drained before returning, so no
// watcher touches the surface afterwards. A positive timeout bounds the
// wait; hitting it yields errOutcomeTimeout.
func awaitOutcome(parent context.Context, s Surface, timeout time.Duration) (Outcome, error) {
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, timeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	defer cancel()

	watchers := []struct {
		outcome Outcome
		wait    func(context.Context) error
	}{
		{OutcomeRejected, s.WaitRejected},
		{OutcomeAuthorizationPending, s.WaitAuthorizationPrompt},
		{OutcomeAuthenticated, s.WaitAuthenticated},
	}

	results := make(chan watchResult, len(watchers))
	for _, w := range watchers {
		go func() {
			results <- watchResult{outcome: w.outcome, err: w.wait(ctx)}
		}()
	}

	first := <-results
	cancel()
	for range len(watchers) - 1 {
		<-results
	}

	if first.err != nil {
		if errors.Is(first.err, context.DeadlineExceeded) && parent.Err() == nil {
			return 0, fmt.Errorf("%w within %s", errOutcomeTimeout, timeout)
		}
		return 0, first.err
	}
	return first.outcome, nil
}
