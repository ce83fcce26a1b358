package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Text limits, in characters
const (
	MaxTopicLength = 100
	MaxWordLength  = 50
)

// Topic is a category proposed once per player before play begins
type Topic struct {
	ID               string `json:"id"`
	Text             string `json:"text"`
	ProposedBy       string `json:"proposedBy"`
	ProposerNickname string `json:"proposerNickname"`
}

// ProposedWord is the word under vote in one voting round
type ProposedWord struct {
	ID               string    `json:"id"`
	Word             string    `json:"word"`
	ProposedBy       string    `json:"proposedBy"`
	ProposerNickname string    `json:"proposerNickname"`
	RelatedTopic     string    `json:"relatedTopic"`
	ProposedAt       time.Time `json:"proposedAt"`
}

// ProposeTopic records the current turn holder's topic and passes the turn.
// When every connected player has proposed, the game moves to playing and
// allProposed is true.
func (g *Game) ProposeTopic(playerID, text string) (topic *Topic, allProposed bool, err error) {
	player, err := g.room.GetPlayer(playerID)
	if err != nil {
		return nil, false, err
	}

	if g.phase != PhaseCollectingTopics {
		return nil, false, ErrInvalidPhase
	}

	if g.topicTurn != playerID {
		return nil, false, ErrNotYourTurn
	}

	text, err = validateText(text, MaxTopicLength, ErrEmptyText)
	if err != nil {
		return nil, false, err
	}

	if player.HasProposed {
		return nil, false, ErrAlreadyProposed
	}

	topic = &Topic{
		ID:               uuid.NewString(),
		Text:             text,
		ProposedBy:       player.ID,
		ProposerNickname: player.Nickname,
	}
	g.topics = append(g.topics, topic)
	player.HasProposed = true
	g.topicTurn = Advance(g.room.Players(), playerID)

	if g.allTopicsProposed() {
		if err := g.beginPlay(); err != nil {
			return nil, false, err
		}
		return topic, true, nil
	}

	return topic, false, nil
}

// ProposeWord opens a voting round for the current word proposer's word
func (g *Game) ProposeWord(playerID, word, relatedTopic string, now time.Time) (*ProposedWord, error) {
	player, err := g.room.GetPlayer(playerID)
	if err != nil {
		return nil, err
	}

	if g.phase != PhasePlaying {
		return nil, ErrInvalidPhase
	}

	if g.wordTurn != playerID {
		return nil, ErrNotYourTurn
	}

	word, err = validateText(word, MaxWordLength, ErrEmptyWord)
	if err != nil {
		return nil, err
	}

	topic := g.findTopic(relatedTopic)
	if topic == nil {
		return nil, ErrUnknownTopic
	}

	proposed := &ProposedWord{
		ID:               uuid.NewString(),
		Word:             word,
		ProposedBy:       player.ID,
		ProposerNickname: player.Nickname,
		RelatedTopic:     topic.Text,
		ProposedAt:       now,
	}

	if err := g.transition(PhaseVoting); err != nil {
		return nil, err
	}
	g.currentRound = NewVotingRound(g.round, proposed, g.settings.VotingDuration, now)

	return proposed, nil
}

// allTopicsProposed reports whether every connected player has a topic
func (g *Game) allTopicsProposed() bool {
	connected := 0
	for _, p := range g.room.Players() {
		if !p.IsConnected() {
			continue
		}
		connected++
		if !p.HasProposed {
			return false
		}
	}
	return connected > 0
}

// beginPlay leaves the topic phase and hands the first word turn to the
// earliest-joined connected player
func (g *Game) beginPlay() error {
	if err := g.transition(PhasePlaying); err != nil {
		return err
	}
	g.topicTurn = ""
	g.round = 1
	g.wordTurn = FirstConnected(g.room.Players())
	return nil
}

func (g *Game) findTopic(text string) *Topic {
	text = strings.TrimSpace(text)
	for _, t := range g.topics {
		if strings.EqualFold(t.Text, text) {
			return t
		}
	}
	return nil
}

func validateText(text string, max int, errEmpty error) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errEmpty
	}
	if utf8.RuneCountInString(text) > max {
		return "", ErrTooLong
	}
	return text, nil
}
