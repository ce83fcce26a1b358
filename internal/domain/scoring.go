package domain

import (
	"math"
	"sort"
)

// ScoringMode selects what the proposer of a word is rewarded for
type ScoringMode string

const (
	// ModeMaximize rewards words that split the room
	ModeMaximize ScoringMode = "maximize"
	// ModeMinimize rewards words the room agrees on
	ModeMinimize ScoringMode = "minimize"
)

// ModeFromMinimumVariance maps the client's minimumVariance flag to a mode
func ModeFromMinimumVariance(minimumVariance bool) ScoringMode {
	if minimumVariance {
		return ModeMinimize
	}
	return ModeMaximize
}

const (
	// MaxVariance is the largest population variance of scores in [1,10]:
	// half the votes at 1, half at 10.
	MaxVariance = 20.25

	// MaxRoundPoints is the delta awarded for a perfectly split (maximize) or
	// perfectly unanimous (minimize) round.
	MaxRoundPoints = 100.0
)

// RoundResult is the scored outcome of a completed voting round
type RoundResult struct {
	VoteCount      int         `json:"voteCount"`
	AverageScore   float64     `json:"averageScore"`
	RoundedAverage int         `json:"roundedAverage"`
	Variance       float64     `json:"variance"`
	Delta          float64     `json:"delta"`
	Mode           ScoringMode `json:"mode"`
}

// ScoreRound computes the result of a round's votes under mode.
//
// The average is sum/count, 0 for an empty round. Variance is the population
// variance. The proposer's delta is
//
//	maximize: 100 * variance / MaxVariance
//	minimize: 100 * (1 - variance/MaxVariance)
//
// and 0 in both modes when nobody voted. Deltas are unrounded; only
// RoundedAverage is rounded, half away from zero.
func ScoreRound(scores []int, mode ScoringMode) RoundResult {
	result := RoundResult{
		VoteCount: len(scores),
		Mode:      mode,
	}

	if len(scores) == 0 {
		return result
	}

	n := float64(len(scores))
	sum := 0.0
	for _, s := range scores {
		sum += float64(s)
	}
	mean := sum / n

	squares := 0.0
	for _, s := range scores {
		d := float64(s) - mean
		squares += d * d
	}
	variance := squares / n

	result.AverageScore = mean
	result.RoundedAverage = int(math.Round(mean))
	result.Variance = variance

	normalized := math.Min(variance/MaxVariance, 1)
	switch mode {
	case ModeMinimize:
		result.Delta = MaxRoundPoints * (1 - normalized)
	default:
		result.Delta = MaxRoundPoints * normalized
	}

	return result
}

// Leaderboard returns copies of players ordered by score, highest first.
// Ties keep join order.
func Leaderboard(players []*Player) []*Player {
	board := make([]*Player, 0, len(players))
	for _, p := range players {
		board = append(board, p.Clone())
	}
	sort.SliceStable(board, func(i, j int) bool {
		return board[i].Score > board[j].Score
	})
	return board
}
