package domain

import "errors"

// Domain errors
var (
	// Room membership
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is full")
	ErrInvalidNickname   = errors.New("nickname must be between 1 and 20 characters")
	ErrDuplicateNickname = errors.New("nickname already taken in this room")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrNotHost           = errors.New("only host can perform this action")

	// Game lifecycle
	ErrAlreadyStarted      = errors.New("game already started")
	ErrInsufficientPlayers = errors.New("at least 2 connected players are required")
	ErrInvalidSettings     = errors.New("invalid game settings")
	ErrInvalidPhase        = errors.New("invalid action for current phase")
	ErrInvalidTransition   = errors.New("invalid phase transition")

	// Proposals
	ErrNotYourTurn     = errors.New("not your turn")
	ErrEmptyText       = errors.New("topic cannot be empty")
	ErrEmptyWord       = errors.New("word cannot be empty")
	ErrTooLong         = errors.New("text is too long")
	ErrAlreadyProposed = errors.New("already proposed a topic")
	ErrUnknownTopic    = errors.New("related topic was not proposed in this room")

	// Voting
	ErrNotInVotingPhase     = errors.New("no word is being voted on")
	ErrSelfVote             = errors.New("cannot vote on your own word")
	ErrAlreadyVoted         = errors.New("already voted this round")
	ErrInvalidScore         = errors.New("score must be an integer between 1 and 10")
	ErrRoundAlreadyComplete = errors.New("voting round already complete")
)
