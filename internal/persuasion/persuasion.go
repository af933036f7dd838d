// Package persuasion implements the Persuasion Evaluator: a weighted scalar
// score over an agent's honesty, trust, public reputation, the target's
// loyalty and commitment penalty, and a shared-culture bonus, banded into a
// Succeeded/PartialSuccess/Failed outcome.
//
// Grounded on original_source/crates/emergence-agents/src/persuasion.rs for
// the exact weights (20/30/15/20/15/10) and threshold bands, and on the
// teacher's internal/economy/goods.go (Market.ResolvePrice) for the
// clamp-after-weighted-sum idiom this scoring function follows.
package persuasion

import "github.com/talgya/crossroads/internal/fixedpoint"

// Input holds the normalized [0, 1] factors the persuasion score is
// computed from. SharedCultureBonus is a raw bonus points value (not a
// [0,1] factor) capped at 10 before being added.
type Input struct {
	Honesty            float64 // speaker's honesty reputation, [0, 1]
	Trust              float64 // listener's trust in speaker, [0, 1]
	Reputation         float64 // speaker's public reputation, [0, 1]
	Loyalty            float64 // listener's loyalty to a conflicting faction/cause, [0, 1]
	CommitmentPenalty  float64 // cost of reneging on a standing commitment, [0, 1]
	SharedCultureBonus float64 // raw bonus points from shared cultural items, capped at 10
}

// Outcome is the closed set of persuasion results.
type Outcome uint8

const (
	Failed Outcome = iota
	PartialSuccess
	Succeeded
)

func (o Outcome) String() string {
	switch o {
	case Failed:
		return "Failed"
	case PartialSuccess:
		return "PartialSuccess"
	case Succeeded:
		return "Succeeded"
	default:
		return "Unknown"
	}
}

const (
	weightHonesty    = 20.0
	weightTrust      = 30.0
	weightReputation = 15.0
	weightLoyalty    = 20.0
	weightCommitment = 15.0
	cultureBonusCap  = 10.0

	scoreFloor   = 0.0
	scoreCeiling = 100.0

	succeedThreshold = 60.0
	partialThreshold = 40.0
)

// Score is a clamped [0, 100] fixed-point persuasion score.
type Score = fixedpoint.Fixed

// Evaluate computes the persuasion score for Input and bands it into an
// Outcome.
func Evaluate(in Input) (Score, Outcome) {
	bonus := in.SharedCultureBonus
	if bonus > cultureBonusCap {
		bonus = cultureBonusCap
	}
	if bonus < 0 {
		bonus = 0
	}

	raw := in.Honesty*weightHonesty +
		in.Trust*weightTrust +
		in.Reputation*weightReputation -
		in.Loyalty*weightLoyalty -
		in.CommitmentPenalty*weightCommitment +
		bonus

	clamped := raw
	if clamped < scoreFloor {
		clamped = scoreFloor
	}
	if clamped > scoreCeiling {
		clamped = scoreCeiling
	}

	score := fixedpoint.FromFloat(clamped)
	return score, band(clamped)
}

func band(score float64) Outcome {
	switch {
	case score >= succeedThreshold:
		return Succeeded
	case score >= partialThreshold:
		return PartialSuccess
	default:
		return Failed
	}
}
