package domain

import (
	"time"

	"github.com/google/uuid"
)

// CompletionReason records which path closed a voting round
type CompletionReason string

const (
	CompletedByQuorum       CompletionReason = "quorum"
	CompletedByTimeout      CompletionReason = "timeout"
	CompletedByProposerLeft CompletionReason = "proposer-left"
	CompletedByPlayersLeft  CompletionReason = "players-left"
)

// VotingRound is the timed window during which a proposed word is rated
type VotingRound struct {
	ID           string           `json:"id"`
	Number       int              `json:"number"`
	Word         *ProposedWord    `json:"word"`
	Votes        []*Vote          `json:"votes"`
	VoteTimer    int              `json:"voteTimer"` // Window length in seconds
	VoteDeadline time.Time        `json:"voteDeadline"`
	IsComplete   bool             `json:"isComplete"`
	CompletedBy  CompletionReason `json:"completedBy,omitempty"`
	CompletedAt  time.Time        `json:"completedAt,omitempty"`
	Result       *RoundResult     `json:"result,omitempty"`
}

// NewVotingRound opens a round for word with a deadline of now+window
func NewVotingRound(number int, word *ProposedWord, window time.Duration, now time.Time) *VotingRound {
	return &VotingRound{
		ID:           uuid.NewString(),
		Number:       number,
		Word:         word,
		Votes:        make([]*Vote, 0),
		VoteTimer:    int(window.Seconds()),
		VoteDeadline: now.Add(window),
	}
}

// AddVote records a vote. The round must be open, the voter must not be the
// proposer and may vote only once.
func (r *VotingRound) AddVote(voter *Player, score int, now time.Time) (*Vote, error) {
	if r.IsComplete {
		return nil, ErrNotInVotingPhase
	}

	if voter.ID == r.Word.ProposedBy {
		return nil, ErrSelfVote
	}

	if r.HasVoted(voter.ID) {
		return nil, ErrAlreadyVoted
	}

	if !ValidScore(score) {
		return nil, ErrInvalidScore
	}

	vote := NewVote(voter, r.Word.ID, score, now)
	r.Votes = append(r.Votes, vote)

	return vote, nil
}

// RemoveVote drops a voter's vote from an open round
func (r *VotingRound) RemoveVote(playerID string) bool {
	if r.IsComplete {
		return false
	}
	for i, v := range r.Votes {
		if v.PlayerID == playerID {
			r.Votes = append(r.Votes[:i], r.Votes[i+1:]...)
			return true
		}
	}
	return false
}

// HasVoted checks if a player has already voted
func (r *VotingRound) HasVoted(playerID string) bool {
	for _, v := range r.Votes {
		if v.PlayerID == playerID {
			return true
		}
	}
	return false
}

// VoteCount returns the number of votes collected so far
func (r *VotingRound) VoteCount() int {
	return len(r.Votes)
}

// Scores returns the raw vote scores in arrival order
func (r *VotingRound) Scores() []int {
	scores := make([]int, 0, len(r.Votes))
	for _, v := range r.Votes {
		scores = append(scores, v.Score)
	}
	return scores
}

// Complete closes the round. It fails if the round was already closed, so a
// round can complete exactly once.
func (r *VotingRound) Complete(reason CompletionReason, result RoundResult, now time.Time) error {
	if r.IsComplete {
		return ErrRoundAlreadyComplete
	}
	r.IsComplete = true
	r.CompletedBy = reason
	r.CompletedAt = now
	r.Result = &result
	return nil
}

// Clone deep-copies the round for snapshots
func (r *VotingRound) Clone() *VotingRound {
	if r == nil {
		return nil
	}
	c := *r
	if r.Word != nil {
		w := *r.Word
		c.Word = &w
	}
	c.Votes = make([]*Vote, 0, len(r.Votes))
	for _, v := range r.Votes {
		vc := *v
		c.Votes = append(c.Votes, &vc)
	}
	if r.Result != nil {
		res := *r.Result
		c.Result = &res
	}
	return &c
}
