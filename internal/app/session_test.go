package app

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/marcypotter16/Variance/internal/domain"
)

func TestSession_TwoPlayerGame(t *testing.T) {
	clock := newFakeClock()
	hub := newTestHub(t, clock)
	session, seats := newTestRoom(t, hub, "Alice", "Bob")
	alice, bob := seats[0], seats[1]

	require.NoError(t, session.StartGame(alice.player.ID, 1, false))

	_, err := session.ProposeTopic(alice.player.ID, "Animals")
	require.NoError(t, err)
	_, err = session.ProposeTopic(bob.player.ID, "Food")
	require.NoError(t, err)
	assert.Equal(t, domain.PhasePlaying, session.GetPhase())

	word, err := session.ProposeWord(alice.player.ID, "Lion", "Animals")
	require.NoError(t, err)
	assert.Equal(t, "Lion", word.Word)
	assert.Equal(t, domain.PhaseVoting, session.GetPhase())

	vote, err := session.CastVote(bob.player.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, vote.Score)
	assert.Equal(t, domain.PhaseVotingResults, session.GetPhase())
	assert.Equal(t, 1, clock.pending(), "only the results timer remains")

	clock.Advance(domain.DefaultGameSettings().ResultsDisplay)

	state := session.GetGameState()
	assert.Equal(t, domain.PhaseFinished, state.State)
	assert.Len(t, state.Players, 2)
	require.Len(t, state.CompletedRounds, 1)
	assert.Equal(t, domain.CompletedByQuorum, state.CompletedRounds[0].CompletedBy)

	want := []domain.EventType{
		domain.EventGameStarted,
		domain.EventNextPlayerTurn,
		domain.EventTopicProposed,
		domain.EventNextPlayerTurn,
		domain.EventTopicProposed,
		domain.EventAllTopicsProposed,
		domain.EventNextPlayerTurn,
		domain.EventWordProposed,
		domain.EventNextPlayerTurn,
		domain.EventVoteCast,
		domain.EventVotingCompleted,
		domain.EventNextPlayerTurn,
		domain.EventNextPlayerTurn,
		domain.EventGameEnded,
	}

	bob.client.waitForEvents(t, len(want))
	assert.Equal(t, want, bob.client.types())

	alice.client.waitForEvents(t, len(want)+1)
	assert.Equal(t, append([]domain.EventType{domain.EventPlayerJoined}, want...), alice.client.types())

	ended := alice.client.last(domain.EventGameEnded)
	require.NotNil(t, ended)
	payload, ok := ended.Payload.(*domain.GameEndedPayload)
	require.True(t, ok)
	assert.Len(t, payload.Leaderboard, 2)
	assert.Equal(t, session.ID(), ended.RoomID)
}

func TestSession_VoteDeadlineCompletesRound(t *testing.T) {
	clock := newFakeClock()
	hub := newTestHub(t, clock)
	session, seats := newTestRoom(t, hub, "Alice", "Bob", "Carol")
	startPlaying(t, session, seats, 2, false)

	_, err := session.ProposeWord(seats[0].player.ID, "Lion", "topic-Bob")
	require.NoError(t, err)
	_, err = session.CastVote(seats[1].player.ID, 3)
	require.NoError(t, err)

	clock.Advance(29 * time.Second)
	assert.Equal(t, domain.PhaseVoting, session.GetPhase())

	clock.Advance(time.Second)
	state := session.GetGameState()
	assert.Equal(t, domain.PhaseVotingResults, state.State)
	require.NotNil(t, state.CurrentVotingRound)
	assert.True(t, state.CurrentVotingRound.IsComplete)
	assert.Equal(t, domain.CompletedByTimeout, state.CurrentVotingRound.CompletedBy)
	assert.Equal(t, 1, state.CurrentVotingRound.Result.VoteCount)

	_, err = session.CastVote(seats[2].player.ID, 5)
	assert.ErrorIs(t, err, domain.ErrNotInVotingPhase, "late votes are rejected")

	clock.Advance(5 * time.Second)
	state = session.GetGameState()
	assert.Equal(t, domain.PhasePlaying, state.State)
	assert.Equal(t, 2, state.Round)
	assert.Equal(t, "Bob", state.CurrentPlayerTurn)
}

func TestSession_DeadlineWithNoVotes(t *testing.T) {
	clock := newFakeClock()
	hub := newTestHub(t, clock)
	session, seats := newTestRoom(t, hub, "Alice", "Bob")
	startPlaying(t, session, seats, 1, false)

	_, err := session.ProposeWord(seats[0].player.ID, "Lion", "topic-Alice")
	require.NoError(t, err)

	clock.Advance(domain.DefaultGameSettings().VotingDuration)

	state := session.GetGameState()
	require.NotNil(t, state.CurrentVotingRound)
	result := state.CurrentVotingRound.Result
	assert.Zero(t, result.VoteCount)
	assert.Zero(t, result.AverageScore)
	assert.Zero(t, result.Delta)
}

func TestSession_StaleDeadlineIsIgnored(t *testing.T) {
	clock := newFakeClock()
	hub := newTestHub(t, clock)
	session, seats := newTestRoom(t, hub, "Alice", "Bob")
	startPlaying(t, session, seats, 3, false)

	_, err := session.ProposeWord(seats[0].player.ID, "Lion", "topic-Alice")
	require.NoError(t, err)
	roundID := session.GetGameState().CurrentVotingRound.ID

	_, err = session.CastVote(seats[1].player.ID, 7)
	require.NoError(t, err)
	before := session.GetGameState()

	session.onVoteDeadline(roundID)
	session.onVoteDeadline("some-other-round")

	after := session.GetGameState()
	assert.Equal(t, before.State, after.State)
	assert.Len(t, after.CompletedRounds, 1)
	assert.Equal(t, domain.CompletedByQuorum, after.CurrentVotingRound.CompletedBy)
	require.Eventually(t, func() bool {
		return seats[0].client.count(domain.EventVotingCompleted) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSession_ConcurrentVotesAndDeadline(t *testing.T) {
	clock := newFakeClock()
	hub := NewGameHub(HubOptions{
		Clock:             clock,
		Logger:            discardLogger(),
		CleanupInterval:   -1,
		DefaultMaxPlayers: domain.MaxRoomPlayers,
		Game: domain.GameSettings{
			VotingDuration: 30 * time.Second,
			ResultsDisplay: time.Minute,
		},
	})
	t.Cleanup(hub.Close)

	nicknames := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9"}
	session, seats := newTestRoom(t, hub, nicknames...)
	startPlaying(t, session, seats, 1, false)

	_, err := session.ProposeWord(seats[0].player.ID, "Lion", "topic-p0")
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i, s := range seats[1:] {
		wg.Add(1)
		go func(playerID string, score int) {
			defer wg.Done()
			if _, err := session.CastVote(playerID, score); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(s.player.ID, i%10+1)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		clock.Advance(30 * time.Second)
	}()
	wg.Wait()

	// Results stay up longer than the voting window, so whichever of quorum
	// and deadline won, the game is still showing this round.
	state := session.GetGameState()
	assert.Equal(t, domain.PhaseVotingResults, state.State)
	require.Len(t, state.CompletedRounds, 1)
	assert.Equal(t, accepted, state.CompletedRounds[0].Result.VoteCount)
	require.Eventually(t, func() bool {
		return seats[0].client.count(domain.EventVotingCompleted) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, seats[0].client.count(domain.EventVotingCompleted))

	require.Eventually(t, func() bool {
		return seats[0].client.count(domain.EventVotingCompleted) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSession_RejectedVoteDoesNotBroadcast(t *testing.T) {
	clock := newFakeClock()
	hub := newTestHub(t, clock)
	session, seats := newTestRoom(t, hub, "Alice", "Bob", "Carol")
	startPlaying(t, session, seats, 1, false)

	_, err := session.ProposeWord(seats[0].player.ID, "Lion", "topic-Alice")
	require.NoError(t, err)

	_, err = session.CastVote(seats[1].player.ID, 6)
	require.NoError(t, err)
	_, err = session.CastVote(seats[1].player.ID, 2)
	assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

	assert.Equal(t, 1, session.GetGameState().CurrentVotingRound.VoteCount())

	// Carol's vote flushes the queue past both calls
	_, err = session.CastVote(seats[2].player.ID, 6)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return seats[1].client.count(domain.EventVotingCompleted) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, seats[1].client.count(domain.EventVoteCast))
}

func TestSession_ProposerLeavesDuringVoting(t *testing.T) {
	clock := newFakeClock()
	hub := newTestHub(t, clock)
	session, seats := newTestRoom(t, hub, "Alice", "Bob", "Carol")
	startPlaying(t, session, seats, 2, false)

	_, err := session.ProposeWord(seats[0].player.ID, "Lion", "topic-Alice")
	require.NoError(t, err)

	require.NoError(t, hub.LeaveRoom(session.ID(), seats[0].player.ID))

	state := session.GetGameState()
	assert.Equal(t, domain.PhaseVotingResults, state.State)
	assert.Equal(t, domain.CompletedByProposerLeft, state.CurrentVotingRound.CompletedBy)
	assert.Equal(t, seats[1].player.ID, state.HostID, "host passes to the earliest remaining joiner")
	assert.Equal(t, 1, clock.pending(), "vote timer stopped, results timer armed")

	clock.Advance(5 * time.Second)
	state = session.GetGameState()
	assert.Equal(t, domain.PhasePlaying, state.State)
	assert.Equal(t, "Bob", state.CurrentPlayerTurn)

	require.Eventually(t, func() bool {
		return seats[1].client.count(domain.EventPlayerLeft) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSession_GameEndsWhenTooFewPlayersRemain(t *testing.T) {
	clock := newFakeClock()
	hub := newTestHub(t, clock)
	session, seats := newTestRoom(t, hub, "Alice", "Bob")
	startPlaying(t, session, seats, 3, false)

	_, err := session.ProposeWord(seats[0].player.ID, "Lion", "topic-Alice")
	require.NoError(t, err)

	require.NoError(t, hub.LeaveRoom(session.ID(), seats[1].player.ID))

	assert.Equal(t, domain.PhaseFinished, session.GetPhase())
	assert.Zero(t, clock.pending())

	require.Eventually(t, func() bool {
		return seats[0].client.count(domain.EventGameEnded) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, seats[1].client.count(domain.EventGameEnded), "departed player is no longer addressed")
}

func TestSession_PlayAgain(t *testing.T) {
	clock := newFakeClock()
	hub := newTestHub(t, clock)
	session, seats := newTestRoom(t, hub, "Alice", "Bob")
	startPlaying(t, session, seats, 1, true)

	_, err := session.ProposeWord(seats[0].player.ID, "Lion", "topic-Alice")
	require.NoError(t, err)
	_, err = session.CastVote(seats[1].player.ID, 5)
	require.NoError(t, err)
	clock.Advance(5 * time.Second)
	require.Equal(t, domain.PhaseFinished, session.GetPhase())

	assert.ErrorIs(t, session.PlayAgain(seats[1].player.ID), domain.ErrNotHost)
	require.NoError(t, session.PlayAgain(seats[0].player.ID))
	assert.Equal(t, domain.PhaseLobby, session.GetPhase())

	for _, p := range session.Players() {
		assert.Zero(t, p.Score)
	}

	_, _, _, err = hub.JoinRoom(session.ID(), "Carol", nil)
	assert.NoError(t, err, "lobby is open again")
}

func TestSession_JoinExcludesJoiner(t *testing.T) {
	clock := newFakeClock()
	hub := newTestHub(t, clock)
	session, seats := newTestRoom(t, hub, "Alice", "Bob")

	seats[0].client.waitForEvents(t, 1)
	joined := seats[0].client.last(domain.EventPlayerJoined)
	require.NotNil(t, joined)
	payload := joined.Payload.(*domain.PlayerJoinedPayload)
	assert.Equal(t, "Bob", payload.Player.Nickname)
	assert.Equal(t, 2, payload.Room.PlayerCount)

	// A later broadcast reaches Bob, and it is his first event
	require.NoError(t, session.StartGame(seats[0].player.ID, 1, false))
	seats[1].client.waitForEvents(t, 1)
	assert.Equal(t, domain.EventGameStarted, seats[1].client.types()[0])
}

func TestSession_JoinerSeesOnlyLaterEvents(t *testing.T) {
	clock := newFakeClock()
	hub := newTestHub(t, clock)
	_, seats := newTestRoom(t, hub, "Alice", "Bob", "Carol")
	alice, bob, carol := seats[0].client, seats[1].client, seats[2].client

	require.Eventually(t, func() bool {
		return alice.count(domain.EventPlayerJoined) == 2 && bob.count(domain.EventPlayerJoined) == 1
	}, time.Second, 5*time.Millisecond)

	// Bob only hears about Carol, with a snapshot that already contains him
	joined := bob.last(domain.EventPlayerJoined)
	payload := joined.Payload.(*domain.PlayerJoinedPayload)
	assert.Equal(t, "Carol", payload.Player.Nickname)
	assert.Len(t, payload.GameState.Players, 3)

	latest := alice.last(domain.EventPlayerJoined).Payload.(*domain.PlayerJoinedPayload)
	assert.Len(t, latest.GameState.Players, 3)

	assert.Empty(t, carol.types())
}

func TestSession_CloseClosesClients(t *testing.T) {
	clock := newFakeClock()
	hub := newTestHub(t, clock)
	session, seats := newTestRoom(t, hub, "Alice")

	client := &MockClient{}
	client.On("Send", mock.Anything).Return(nil).Maybe()
	client.On("Close").Return(nil).Once()
	session.RegisterClient(seats[0].player.ID, client)

	session.Close()
	session.Close()

	client.AssertExpectations(t)

	_, _, err := session.Join("Late", nil)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}
