package runtime

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Subject is one person to evaluate.
type Subject struct {
	ID    string                 `json:"id"`
	Facts map[string]interface{} `json:"facts"`
}

// BatchResult pairs a subject with its verdict or input error.
type BatchResult struct {
	SubjectID string
	Verdict   *Verdict
	Err       error
}

// EvaluateBatch evaluates subjects concurrently, each in its own run. Results
// keep the order of subjects. Input errors are reported per subject; only
// context cancellation fails the batch.
func (e *Engine) EvaluateBatch(ctx context.Context, subjects []Subject) ([]BatchResult, error) {
	results := make([]BatchResult, len(subjects))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, subject := range subjects {
		i, subject := i, subject
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := e.Evaluate(subject.Facts)
			results[i] = BatchResult{SubjectID: subject.ID, Verdict: v, Err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
