package domain

// GameState is the full snapshot broadcast to clients. It is a read-only
// projection built under the session lock and shares no mutable data with
// the game.
type GameState struct {
	RoomID             string         `json:"roomId"`
	State              Phase          `json:"state"`
	HostID             string         `json:"hostId"`
	Players            []*Player      `json:"players"`
	Topics             []*Topic       `json:"topics"`
	CurrentPlayerTurn  string         `json:"currentPlayerTurn"` // Nickname, as the client compares it to its username
	CurrentPlayerID    string         `json:"currentPlayerId"`
	CurrentVotingRound *VotingRound   `json:"currentVotingRound"`
	CompletedRounds    []*VotingRound `json:"completedRounds"`
	Round              int            `json:"round"`
	MaxRounds          int            `json:"maxRounds"`
	MinimumVariance    bool           `json:"minimumVariance"`
}

// Snapshot returns the current game state. Once the game is finished the
// players are listed in leaderboard order.
func (g *Game) Snapshot() *GameState {
	state := &GameState{
		RoomID:             g.room.ID,
		State:              g.phase,
		HostID:             g.room.HostID,
		Topics:             append(make([]*Topic, 0, len(g.topics)), g.topics...),
		CurrentVotingRound: g.currentRound.Clone(),
		CompletedRounds:    append(make([]*VotingRound, 0, len(g.completedRounds)), g.completedRounds...),
		Round:              g.round,
		MaxRounds:          g.config.MaxRounds,
		MinimumVariance:    g.config.Mode == ModeMinimize,
	}

	if g.phase == PhaseFinished {
		state.Players = Leaderboard(g.room.Players())
	} else {
		state.Players = g.room.PlayerList()
	}

	if turn := g.CurrentTurn(); turn != "" {
		if p, err := g.room.GetPlayer(turn); err == nil {
			state.CurrentPlayerID = p.ID
			state.CurrentPlayerTurn = p.Nickname
		}
	}

	return state
}

// Leaderboard returns the final standings of the room
func (g *Game) Leaderboard() []*Player {
	return Leaderboard(g.room.Players())
}
