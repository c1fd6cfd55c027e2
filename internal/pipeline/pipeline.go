// Package pipeline drives the tiered OCR cascade with asynchronous
// validation. Execution is an explicit per-job state machine: a job suspends
// after each validator enqueue, its cursor persisted in the state store, and
// resumes on whichever worker receives the callback.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alexberardi/jarvis-ocr-service/internal/domain"
	"github.com/alexberardi/jarvis-ocr-service/internal/providers"
	"github.com/alexberardi/jarvis-ocr-service/internal/state"
	"github.com/alexberardi/jarvis-ocr-service/internal/textutil"
	"github.com/alexberardi/jarvis-ocr-service/internal/validator"
)

// Queue pushes envelopes onto named queues.
type Queue interface {
	Push(ctx context.Context, queueName string, v any) error
}

// StateStore persists and takes suspended job cursors.
type StateStore interface {
	Save(ctx context.Context, p *state.Pending) error
	Take(ctx context.Context, correlationID string) (*state.Pending, error)
}

// Validation enqueues candidates for the external verdict.
type Validation interface {
	EnqueueValidation(ctx context.Context, candidateText, callbackURL, correlationID string) error
}

// ImageResolver fetches image bytes for a reference.
type ImageResolver interface {
	Resolve(ctx context.Context, ref domain.ImageRef) ([]byte, string, error)
}

// DriverSet exposes the boot-probed drivers.
type DriverSet interface {
	Driver(tier domain.Tier) (providers.Driver, bool)
	Active(enabled []domain.Tier) []domain.Tier
}

// Config carries the pipeline knobs.
type Config struct {
	EnabledTiers    []domain.Tier
	MaxTextBytes    int
	MinConfidence   *float64
	LanguageDefault string
	TierTimeout     time.Duration
	CallbackURL     string
}

// Pipeline is the per-job state machine shared by the worker loop and the
// callback endpoint.
type Pipeline struct {
	cfg        Config
	queue      Queue
	store      StateStore
	validation Validation
	resolver   ImageResolver
	drivers    DriverSet
	logger     zerolog.Logger

	now   func() time.Time
	newID func() string
}

// New assembles a pipeline.
func New(cfg Config, q Queue, s StateStore, v Validation, r ImageResolver, d DriverSet, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		queue:      q,
		store:      s,
		validation: v,
		resolver:   r,
		drivers:    d,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Start begins executing a schema-valid job. It returns nil both when the
// job suspended awaiting a verdict and when a completion was emitted;
// a non-nil error is job-level and classified via domain.IsTransient.
func (p *Pipeline) Start(ctx context.Context, job *domain.JobEnvelope) error {
	tiers := p.drivers.Active(p.cfg.EnabledTiers)
	if len(tiers) == 0 {
		return domain.Transient(errors.New("no active OCR tiers"))
	}
	p.logger.Info().
		Str("job_id", job.JobID).
		Str("workflow_id", job.WorkflowID).
		Int("attempt", job.Attempt).
		Int("images", job.Payload.ImageCount).
		Msg("job started")
	return p.run(ctx, job, tiers, nil, 0, 0, noRejection())
}

// Resume applies a validator verdict to a suspended job. It returns
// domain.ErrStateNotFound when the correlation id has no pending state
// (duplicate callback or TTL expiry).
func (p *Pipeline) Resume(ctx context.Context, correlationID string, verdict validator.Verdict) error {
	pending, err := p.store.Take(ctx, correlationID)
	if err != nil {
		return err
	}
	job := &pending.OriginalJob
	tier := pending.Tier()

	p.logger.Info().
		Str("job_id", job.JobID).
		Str("correlation_id", correlationID).
		Str("tier", string(tier)).
		Bool("is_valid", verdict.IsValid).
		Msg("verdict received")

	if p.accepted(verdict) {
		res := p.acceptedResult(pending, verdict)
		results := append(pending.Results, res)
		return p.run(ctx, job, pending.Tiers, results, pending.ImageIndex+1, 0, noRejection())
	}

	// Rejected: advance the cascade on the same image.
	return p.run(ctx, job, pending.Tiers, pending.Results, pending.ImageIndex, pending.TierIndex+1, rejection(tier, verdict))
}

func (p *Pipeline) accepted(v validator.Verdict) bool {
	if !v.IsValid {
		return false
	}
	if p.cfg.MinConfidence != nil {
		return v.Confidence != nil && *v.Confidence >= *p.cfg.MinConfidence
	}
	return true
}

// lastRejection carries the context of a validator rejection into the rest
// of the image's cascade, so exhaustion reports the right code and reason.
type lastRejection struct {
	happened bool
	tier     domain.Tier
	reason   string
}

func noRejection() lastRejection { return lastRejection{} }

func rejection(tier domain.Tier, v validator.Verdict) lastRejection {
	return lastRejection{happened: true, tier: tier, reason: v.Reason}
}

// run advances the job from image imageIdx / tier tierIdx until it suspends,
// completes, or hits a job-level error.
func (p *Pipeline) run(ctx context.Context, job *domain.JobEnvelope, tiers []domain.Tier, results []domain.ImageResult, imageIdx, tierIdx int, reject lastRejection) error {
	lang := textutil.NormalizeLanguage(job.Language(p.cfg.LanguageDefault), p.cfg.LanguageDefault)

	for i := imageIdx; i < job.Payload.ImageCount; i++ {
		startTier := 0
		priorReject := noRejection()
		if i == imageIdx {
			startTier = tierIdx
			priorReject = reject
		}

		res, suspended, err := p.attemptImage(ctx, job, tiers, results, i, startTier, lang, priorReject)
		if err != nil {
			return err
		}
		if suspended {
			return nil
		}
		results = append(results, *res)
	}

	return p.complete(ctx, job, results)
}

// attemptImage resolves image i and walks the tier cascade from startTier.
// It returns a finalized per-image result, or suspended=true after a
// candidate was handed to the validator.
func (p *Pipeline) attemptImage(ctx context.Context, job *domain.JobEnvelope, tiers []domain.Tier, priorResults []domain.ImageResult, i, startTier int, lang string, reject lastRejection) (*domain.ImageResult, bool, error) {
	ref, ok := findRef(job.Payload.ImageRefs, i)
	if !ok {
		res := failedResult(i, lang, "", domain.CodeImageNotFound, "image reference missing")
		return &res, false, nil
	}

	if startTier >= len(tiers) {
		// The rejected candidate came from the final tier; nothing left to try.
		reason := reject.reason
		if reason == "" {
			reason = "candidate rejected by validator"
		}
		res := failedResult(i, lang, reject.tier, domain.CodeNoValidOutput, reason)
		return &res, false, nil
	}

	img, _, err := p.resolver.Resolve(ctx, ref)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnsupportedMedia):
			res := failedResult(i, lang, "", domain.CodeUnsupportedMedia, trim(err.Error()))
			return &res, false, nil
		case domain.IsTransient(err):
			return nil, false, err
		default:
			res := failedResult(i, lang, "", domain.CodeImageNotFound, trim(err.Error()))
			return &res, false, nil
		}
	}

	lastTier := reject.tier
	lastFailure := reject.reason
	hadCandidate := reject.happened

	for k := startTier; k < len(tiers); k++ {
		tier := tiers[k]
		driver, ok := p.drivers.Driver(tier)
		if !ok {
			continue
		}
		lastTier = tier

		candidate, err := p.extract(ctx, driver, img, lang)
		if err != nil {
			p.logger.Debug().Str("job_id", job.JobID).Str("tier", string(tier)).Err(err).Msg("tier failed")
			lastFailure = trim(err.Error())
			continue
		}

		text := textutil.Normalize(candidate.Text)
		if text == "" {
			lastFailure = "engine produced no text"
			continue
		}

		if err := p.suspend(ctx, job, tiers, priorResults, i, k, text, candidate.Confidence); err != nil {
			return nil, false, err
		}
		return nil, true, nil
	}

	// Cascade exhausted without a pending verdict.
	code := domain.CodeOCREngineError
	if hadCandidate {
		code = domain.CodeNoValidOutput
	}
	if lastFailure == "" {
		lastFailure = "all tiers failed"
	}
	res := failedResult(i, lang, lastTier, code, lastFailure)
	return &res, false, nil
}

// extract runs one tier attempt under its wall-clock budget.
func (p *Pipeline) extract(ctx context.Context, driver providers.Driver, img []byte, lang string) (providers.Candidate, error) {
	tctx := ctx
	if p.cfg.TierTimeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, p.cfg.TierTimeout)
		defer cancel()
	}
	return driver.Extract(tctx, img, lang)
}

// suspend persists the cursor and enqueues the validator call. The state is
// written first: a crash after the enqueue leaves a resumable key, a crash
// before it leaves a key the TTL sweep reclaims.
func (p *Pipeline) suspend(ctx context.Context, job *domain.JobEnvelope, tiers []domain.Tier, results []domain.ImageResult, imageIdx, tierIdx int, text string, nativeConf *float64) error {
	textLen := len(text)
	emitText, _ := textutil.Truncate(text, p.cfg.MaxTextBytes)

	correlationID := "val-" + p.newID()
	pending := &state.Pending{
		CorrelationID:    correlationID,
		OriginalJob:      *job,
		ImageIndex:       imageIdx,
		TierIndex:        tierIdx,
		Tiers:            tiers,
		CandidateText:    emitText,
		CandidateLen:     textLen,
		NativeConfidence: nativeConf,
		Results:          results,
		Attempt:          job.Attempt,
		CreatedAt:        p.now().UTC().Format(time.RFC3339),
	}

	if err := p.store.Save(ctx, pending); err != nil {
		return domain.Transient(err)
	}

	if err := p.validation.EnqueueValidation(ctx, emitText, p.cfg.CallbackURL, correlationID); err != nil {
		// Reclaim the orphaned state so the retry starts clean.
		if _, takeErr := p.store.Take(ctx, correlationID); takeErr != nil && !errors.Is(takeErr, domain.ErrStateNotFound) {
			p.logger.Warn().Err(takeErr).Str("correlation_id", correlationID).Msg("failed to reclaim state after enqueue failure")
		}
		return err
	}

	p.logger.Debug().
		Str("job_id", job.JobID).
		Str("correlation_id", correlationID).
		Str("tier", string(tiers[tierIdx])).
		Int("image_index", imageIdx).
		Msg("awaiting validation")
	return nil
}

// acceptedResult finalizes the suspended candidate as the image's winning
// result. Reported confidence is native when the engine gave one, else the
// validator's, else a length heuristic.
func (p *Pipeline) acceptedResult(pending *state.Pending, verdict validator.Verdict) domain.ImageResult {
	confidence := 0.0
	switch {
	case pending.NativeConfidence != nil:
		confidence = *pending.NativeConfidence
	case verdict.Confidence != nil:
		confidence = *verdict.Confidence
	default:
		confidence = min(1.0, float64(pending.CandidateLen)/200.0)
	}

	lang := textutil.NormalizeLanguage(pending.OriginalJob.Language(p.cfg.LanguageDefault), p.cfg.LanguageDefault)
	truncated := pending.CandidateLen > len(pending.CandidateText)

	var reason *string
	if verdict.Reason != "" {
		r := trim(verdict.Reason)
		reason = &r
	}

	return domain.ImageResult{
		Index:     pending.ImageIndex,
		OCRText:   pending.CandidateText,
		Truncated: truncated,
		Meta: domain.ResultMeta{
			Language:         lang,
			Confidence:       confidence,
			TextLen:          pending.CandidateLen,
			IsValid:          true,
			Tier:             pending.Tier(),
			ValidationReason: reason,
		},
	}
}

func failedResult(index int, lang string, tier domain.Tier, code, message string) domain.ImageResult {
	message = trim(message)
	reason := message
	return domain.ImageResult{
		Index:   index,
		OCRText: "",
		Meta: domain.ResultMeta{
			Language:         lang,
			Confidence:       0,
			TextLen:          0,
			IsValid:          false,
			Tier:             tier,
			ValidationReason: &reason,
		},
		Error: &domain.ErrorInfo{Code: code, Message: message},
	}
}

func findRef(refs []domain.ImageRef, index int) (domain.ImageRef, bool) {
	for _, ref := range refs {
		if ref.Index == index {
			return ref, true
		}
	}
	return domain.ImageRef{}, false
}

// trim caps operator-facing strings at the 200-char contract limit.
func trim(s string) string {
	const maxLen = 200
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut]
}
