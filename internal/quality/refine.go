package quality

import (
	"context"

	"github.com/rs/zerolog"
)

const (
	// minImprovedLength is the floor below which an improvement attempt is
	// considered to have produced no usable output.
	minImprovedLength = 100

	// shrinkRatio guards against an improve call truncating content instead
	// of enhancing it: improved text shorter than this fraction of the
	// current text is discarded.
	shrinkRatio = 0.7
)

// Log field names.
const (
	logFieldProfile   = "profile"
	logFieldIteration = "iteration"
	logFieldScore     = "score"
	logFieldTarget    = "target"
	logFieldOutcome   = "outcome"
)

// Outcome describes how a refinement run terminated.
type Outcome string

const (
	// OutcomeConverged means the local score reached the target.
	OutcomeConverged Outcome = "converged"
	// OutcomeExhausted means the iteration budget ran out below target.
	OutcomeExhausted Outcome = "exhausted"
	// OutcomeRejected means an improvement attempt produced unusable output
	// or a length regression, and the loop stopped on the best prior text.
	OutcomeRejected Outcome = "rejected"
	// OutcomeCanceled means the caller's context was canceled between
	// iterations.
	OutcomeCanceled Outcome = "canceled"
)

// ImproveFunc regenerates a candidate text given its scoring breakdown, so
// the rewrite prompt can name the concrete gaps without rescoring. It
// typically performs one or more outbound LLM calls.
type ImproveFunc func(ctx context.Context, text string, breakdown Breakdown) (string, error)

// RefineResult pairs the returned text with the score actually computed for
// it, plus run telemetry.
type RefineResult struct {
	Text       string
	Score      float64
	Breakdown  Breakdown
	Iterations int
	Outcome    Outcome
}

// Refiner drives candidate text toward a target local score by repeatedly
// scoring and invoking an improve capability. Instances are stateless across
// runs and safe for concurrent use; all loop state is local to Refine.
type Refiner struct {
	profile       *Profile
	target        float64
	maxIterations int
	logger        *zerolog.Logger
}

// NewRefiner creates a refiner for one scoring profile.
func NewRefiner(profile *Profile, target float64, maxIterations int, logger *zerolog.Logger) *Refiner {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Refiner{
		profile:       profile,
		target:        target,
		maxIterations: maxIterations,
		logger:        logger,
	}
}

// Refine runs the score -> improve -> rescore loop.
//
// Termination: the target score is met (converged), the iteration budget is
// exhausted, an improvement is rejected as unusable or regressive, or the
// context is canceled. The returned text is always the best-scoring text
// seen across the run, paired with the score computed for exactly that text;
// improve is not assumed to be monotonic. Errors from improve are logged and
// end the run on the best prior text instead of propagating.
func (r *Refiner) Refine(ctx context.Context, text string, improve ImproveFunc) RefineResult {
	current := text
	breakdown := ComputeScore(current, r.profile)

	best := RefineResult{Text: current, Score: breakdown.Score, Breakdown: breakdown}

	iteration := 0

	for {
		r.logger.Debug().
			Str(logFieldProfile, r.profile.Name).
			Int(logFieldIteration, iteration).
			Float64(logFieldScore, breakdown.Score).
			Float64(logFieldTarget, r.target).
			Msg("refinement scoring pass")

		if breakdown.Score >= r.target {
			return r.finish(RefineResult{Text: current, Score: breakdown.Score, Breakdown: breakdown, Iterations: iteration}, OutcomeConverged)
		}

		if iteration >= r.maxIterations {
			best.Iterations = iteration

			return r.finish(best, OutcomeExhausted)
		}

		if err := ctx.Err(); err != nil {
			best.Iterations = iteration

			return r.finish(best, OutcomeCanceled)
		}

		improved, err := improve(ctx, current, breakdown)
		if err != nil {
			r.logger.Warn().Err(err).
				Str(logFieldProfile, r.profile.Name).
				Int(logFieldIteration, iteration).
				Msg("improve call failed, keeping best text")

			best.Iterations = iteration

			return r.finish(best, OutcomeRejected)
		}

		if !r.acceptImprovement(current, improved, iteration) {
			best.Iterations = iteration

			return r.finish(best, OutcomeRejected)
		}

		current = improved
		iteration++
		breakdown = ComputeScore(current, r.profile)

		if breakdown.Score > best.Score {
			best = RefineResult{Text: current, Score: breakdown.Score, Breakdown: breakdown}
		}
	}
}

// acceptImprovement applies the usability and regression guards to an
// improve call's output.
func (r *Refiner) acceptImprovement(current, improved string, iteration int) bool {
	if len([]rune(improved)) < minImprovedLength {
		r.logger.Warn().
			Str(logFieldProfile, r.profile.Name).
			Int(logFieldIteration, iteration).
			Int("length", len([]rune(improved))).
			Msg("improvement too short, rejecting")

		return false
	}

	if float64(len(improved)) < float64(len(current))*shrinkRatio {
		r.logger.Warn().
			Str(logFieldProfile, r.profile.Name).
			Int(logFieldIteration, iteration).
			Int("current_length", len(current)).
			Int("improved_length", len(improved)).
			Msg("improvement shrank content, rejecting")

		return false
	}

	return true
}

func (r *Refiner) finish(result RefineResult, outcome Outcome) RefineResult {
	result.Outcome = outcome

	r.logger.Info().
		Str(logFieldProfile, r.profile.Name).
		Int(logFieldIteration, result.Iterations).
		Float64(logFieldScore, result.Score).
		Str(logFieldOutcome, string(outcome)).
		Msg("refinement finished")

	return result
}
