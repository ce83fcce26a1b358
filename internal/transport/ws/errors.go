package ws

import (
	"errors"

	"github.com/marcypotter16/Variance/internal/domain"
)

// Transport errors
var (
	ErrNotInRoom      = errors.New("join a room first")
	ErrAlreadyInRoom  = errors.New("already in a room")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrRateLimited    = errors.New("too many commands, slow down")
)

// Error codes
const (
	ErrCodeInvalidMessage      = "INVALID_MESSAGE"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeNotInRoom           = "NOT_IN_ROOM"
	ErrCodeAlreadyInRoom       = "ALREADY_IN_ROOM"
	ErrCodeRoomNotFound        = "ROOM_NOT_FOUND"
	ErrCodeRoomFull            = "ROOM_FULL"
	ErrCodeInvalidNickname     = "INVALID_NICKNAME"
	ErrCodeDuplicateNickname   = "DUPLICATE_NICKNAME"
	ErrCodePlayerNotFound      = "PLAYER_NOT_FOUND"
	ErrCodeNotHost             = "NOT_HOST"
	ErrCodeAlreadyStarted      = "ALREADY_STARTED"
	ErrCodeInsufficientPlayers = "INSUFFICIENT_PLAYERS"
	ErrCodeInvalidSettings     = "INVALID_SETTINGS"
	ErrCodeInvalidPhase        = "INVALID_PHASE"
	ErrCodeNotYourTurn         = "NOT_YOUR_TURN"
	ErrCodeEmptyText           = "EMPTY_TEXT"
	ErrCodeTooLong             = "TOO_LONG"
	ErrCodeAlreadyProposed     = "ALREADY_PROPOSED"
	ErrCodeUnknownTopic        = "UNKNOWN_TOPIC"
	ErrCodeNotInVotingPhase    = "NOT_IN_VOTING_PHASE"
	ErrCodeSelfVote            = "SELF_VOTE"
	ErrCodeAlreadyVoted        = "ALREADY_VOTED"
	ErrCodeInvalidScore        = "INVALID_SCORE"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidPayload, ErrCodeInvalidMessage},
	{ErrRateLimited, ErrCodeRateLimited},
	{ErrNotInRoom, ErrCodeNotInRoom},
	{ErrAlreadyInRoom, ErrCodeAlreadyInRoom},
	{domain.ErrRoomNotFound, ErrCodeRoomNotFound},
	{domain.ErrRoomFull, ErrCodeRoomFull},
	{domain.ErrInvalidNickname, ErrCodeInvalidNickname},
	{domain.ErrDuplicateNickname, ErrCodeDuplicateNickname},
	{domain.ErrPlayerNotFound, ErrCodePlayerNotFound},
	{domain.ErrNotHost, ErrCodeNotHost},
	{domain.ErrAlreadyStarted, ErrCodeAlreadyStarted},
	{domain.ErrInsufficientPlayers, ErrCodeInsufficientPlayers},
	{domain.ErrInvalidSettings, ErrCodeInvalidSettings},
	{domain.ErrInvalidPhase, ErrCodeInvalidPhase},
	{domain.ErrInvalidTransition, ErrCodeInvalidPhase},
	{domain.ErrNotYourTurn, ErrCodeNotYourTurn},
	{domain.ErrEmptyText, ErrCodeEmptyText},
	{domain.ErrEmptyWord, ErrCodeEmptyText},
	{domain.ErrTooLong, ErrCodeTooLong},
	{domain.ErrAlreadyProposed, ErrCodeAlreadyProposed},
	{domain.ErrUnknownTopic, ErrCodeUnknownTopic},
	{domain.ErrNotInVotingPhase, ErrCodeNotInVotingPhase},
	{domain.ErrRoundAlreadyComplete, ErrCodeNotInVotingPhase},
	{domain.ErrSelfVote, ErrCodeSelfVote},
	{domain.ErrAlreadyVoted, ErrCodeAlreadyVoted},
	{domain.ErrInvalidScore, ErrCodeInvalidScore},
}

// ErrorCode maps an error to its stable wire code
func ErrorCode(err error) string {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return ErrCodeInternalError
}

// failure builds the ack status for a rejected command
func failure(err error) AckStatus {
	return AckStatus{
		Success: false,
		Error:   err.Error(),
		Code:    ErrorCode(err),
	}
}
