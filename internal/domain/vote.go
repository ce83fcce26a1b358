package domain

import "time"

// Vote score bounds
const (
	MinVoteScore = 1
	MaxVoteScore = 10
)

// Vote represents one player's rating of the word under vote
type Vote struct {
	PlayerID       string    `json:"playerId"`
	PlayerNickname string    `json:"playerNickname"`
	WordID         string    `json:"wordId"`
	Score          int       `json:"score"`
	VotedAt        time.Time `json:"votedAt"`
}

// NewVote creates a new vote
func NewVote(player *Player, wordID string, score int, votedAt time.Time) *Vote {
	return &Vote{
		PlayerID:       player.ID,
		PlayerNickname: player.Nickname,
		WordID:         wordID,
		Score:          score,
		VotedAt:        votedAt,
	}
}

// ValidScore reports whether score is an accepted rating
func ValidScore(score int) bool {
	return score >= MinVoteScore && score <= MaxVoteScore
}
