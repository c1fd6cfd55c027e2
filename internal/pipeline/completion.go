package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
)

// NewCompletion builds the terminal envelope for a job. Status is failed
// when jobErr is set or no image produced valid text; the top-level error is
// populated iff status is failed, so the envelope always satisfies the v1
// completion invariants.
func NewCompletion(job *domain.JobEnvelope, results []domain.ImageResult, jobErr *domain.ErrorInfo, now time.Time, completionID string) domain.CompletionEnvelope {
	sorted := make([]domain.ImageResult, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Index < sorted[j].Index })

	status := domain.StatusFailed
	if jobErr == nil {
		for _, r := range sorted {
			if r.Meta.IsValid {
				status = domain.StatusSuccess
				break
			}
		}
		if status == domain.StatusFailed {
			jobErr = &domain.ErrorInfo{
				Code:    domain.CodeAllImagesFailed,
				Message: "no image produced validator-accepted text",
			}
		}
	}

	parentJobID := job.JobID
	return domain.CompletionEnvelope{
		SchemaVersion: domain.SchemaVersion,
		JobID:         completionID,
		WorkflowID:    job.WorkflowID,
		JobType:       domain.JobTypeOCRCompleted,
		Source:        domain.ServiceSource,
		Target:        job.Source,
		CreatedAt:     now.UTC().Format(time.RFC3339),
		Attempt:       1,
		ReplyTo:       nil,
		Payload: domain.CompletionPayload{
			Status:      status,
			Results:     sorted,
			ArtifactRef: nil,
			Error:       jobErr,
		},
		Trace: domain.Trace{
			RequestID:   job.Trace.RequestID,
			ParentJobID: &parentJobID,
		},
	}
}

// complete emits the completion envelope to the job's reply queue. A push
// failure is job-level transient: the caller never sees a dropped job while
// the reply queue is reachable.
func (p *Pipeline) complete(ctx context.Context, job *domain.JobEnvelope, results []domain.ImageResult) error {
	env := NewCompletion(job, results, nil, p.now(), p.newID())
	if err := p.queue.Push(ctx, job.ReplyTo, env); err != nil {
		return domain.Transient(fmt.Errorf("emit completion for %s: %w", job.JobID, err))
	}
	p.logger.Info().
		Str("job_id", job.JobID).
		Str("completion_id", env.JobID).
		Str("status", string(env.Payload.Status)).
		Str("reply_to", job.ReplyTo).
		Msg("job completed")
	return nil
}

// Fail emits a terminal failed completion with the given job-level error.
// The worker uses it for fail-fast and retry-exhausted outcomes.
func (p *Pipeline) Fail(ctx context.Context, job *domain.JobEnvelope, results []domain.ImageResult, jobErr domain.ErrorInfo) error {
	env := NewCompletion(job, results, &jobErr, p.now(), p.newID())
	if err := p.queue.Push(ctx, job.ReplyTo, env); err != nil {
		return domain.Transient(fmt.Errorf("emit failed completion for %s: %w", job.JobID, err))
	}
	p.logger.Info().
		Str("job_id", job.JobID).
		Str("completion_id", env.JobID).
		Str("error_code", jobErr.Code).
		Msg("job failed")
	return nil
}
