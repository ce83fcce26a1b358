package domain

// Phase represents the current phase of a game
type Phase string

const (
	PhaseLobby            Phase = "lobby"             // Waiting for players to join
	PhaseCollectingTopics Phase = "collecting-topics" // Each player proposes one topic in turn
	PhasePlaying          Phase = "playing"           // Current player proposes a word
	PhaseVoting           Phase = "voting"            // Everyone else rates the word
	PhaseVotingResults    Phase = "voting_results"    // Round result is on display
	PhaseFinished         Phase = "finished"          // Leaderboard
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// Lifecycle maps a phase onto the coarse room lifecycle (lobby, in-progress, finished)
func (p Phase) Lifecycle() RoomState {
	switch p {
	case PhaseLobby:
		return RoomStateLobby
	case PhaseFinished:
		return RoomStateFinished
	default:
		return RoomStateInProgress
	}
}

// CanTransitionTo checks if a transition from current phase to target phase is valid
func (p Phase) CanTransitionTo(target Phase) bool {
	validTransitions := map[Phase][]Phase{
		PhaseLobby:            {PhaseCollectingTopics},
		PhaseCollectingTopics: {PhasePlaying, PhaseFinished},
		PhasePlaying:          {PhaseVoting, PhaseFinished},
		PhaseVoting:           {PhaseVotingResults, PhaseFinished},
		PhaseVotingResults:    {PhasePlaying, PhaseFinished},
		PhaseFinished:         {PhaseLobby}, // Play again
	}

	allowed, ok := validTransitions[p]
	if !ok {
		return false
	}

	for _, phase := range allowed {
		if phase == target {
			return true
		}
	}
	return false
}

// RoomState is the coarse lifecycle of a room
type RoomState string

const (
	RoomStateLobby      RoomState = "lobby"
	RoomStateInProgress RoomState = "in-progress"
	RoomStateFinished   RoomState = "finished"
)
