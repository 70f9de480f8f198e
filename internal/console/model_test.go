package console

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telepoker/telepoker/internal/game"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input string
		want  game.Action
	}{
		{"fold", game.Action{Command: "fold"}},
		{"f", game.Action{Command: "fold"}},
		{"check", game.Action{Command: "check"}},
		{"x", game.Action{Command: "check"}},
		{"call", game.Action{Command: "call"}},
		{"allin", game.Action{Command: "all_in"}},
		{"all-in", game.Action{Command: "all_in"}},
		{"shove", game.Action{Command: "all_in"}},
		{"bet 50", game.Action{Command: "bet", Amount: 50}},
		{"b 50", game.Action{Command: "bet", Amount: 50}},
		{"raise 120", game.Action{Command: "raise", Amount: 120}},
		{"r 120", game.Action{Command: "raise", Amount: 120}},
		{"say good game", game.Action{Command: "chat", Message: "good game"}},
		{"show", game.Action{Command: "show_cards", Show: true}},
		{"muck", game.Action{Command: "show_cards", Show: false}},
		{"deal", game.Action{Command: "start_hand"}},
		{"start", game.Action{Command: "start_hand"}},
		{"rebuy", game.Action{Command: "rebuy"}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCommand(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, input := range []string{"bet", "bet zero", "bet -5", "raise 0", "say", "jump"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseCommand(input)
			assert.Error(t, err)
		})
	}
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	logger := log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
	return NewModel(nil, "u1", logger)
}

func TestDescribeAction(t *testing.T) {
	m := newTestModel(t)
	m.names["u1"] = "Ana"
	m.names["u2"] = "Bo"

	tests := []struct {
		ev   game.Event
		want string
	}{
		{game.Event{Type: game.EventTypeAction, UserID: "u1", Action: game.ActionFold}, "Ana folds"},
		{game.Event{Type: game.EventTypeAction, UserID: "u1", Action: game.ActionAutoFold}, "Ana folds (timed out)"},
		{game.Event{Type: game.EventTypeAction, UserID: "u2", Action: game.ActionCheck}, "Bo checks"},
		{game.Event{Type: game.EventTypeAction, UserID: "u2", Action: game.ActionCall, Amount: 20}, "Bo calls 20"},
		{game.Event{Type: game.EventTypeAction, UserID: "u1", Action: game.ActionBet, Amount: 50}, "Ana bets 50"},
		{game.Event{Type: game.EventTypeAction, UserID: "u1", Action: game.ActionRaise, Amount: 120}, "Ana raises to 120"},
		{game.Event{Type: game.EventTypeAction, UserID: "u2", Action: game.ActionAllIn, Amount: 980}, "Bo goes all in for 980"},
		{game.Event{Type: game.EventTypeAction, UserID: "u1", Action: game.ActionSmallBlind, Amount: 10}, "Ana posts small blind 10"},
		{game.Event{Type: game.EventTypeAction, UserID: "u2", Action: game.ActionBigBlind, Amount: 20}, "Bo posts big blind 20"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.describeAction(tt.ev))
	}

	// Unseated players fall back to their id.
	got := m.describeAction(game.Event{Type: game.EventTypeAction, UserID: "u9", Action: game.ActionFold})
	assert.Equal(t, "u9 folds", got)
}

func TestApplyLogsOnlyNewEvents(t *testing.T) {
	m := newTestModel(t)

	first := &game.Snapshot{
		Players: []game.PlayerView{{UserID: "u1", DisplayName: "Ana"}},
		Events: []game.Event{
			{Type: game.EventTypeAction, UserID: "u1", Action: game.ActionSmallBlind, Amount: 10, Timestamp: 1},
		},
	}
	m.apply(first)
	require.Len(t, m.lines, 1)
	assert.Contains(t, m.lines[0], "posts small blind 10")

	second := &game.Snapshot{
		Players: []game.PlayerView{{UserID: "u1", DisplayName: "Ana"}},
		Events: []game.Event{
			{Type: game.EventTypeAction, UserID: "u1", Action: game.ActionSmallBlind, Amount: 10, Timestamp: 1},
			{Type: game.EventTypeAction, UserID: "u1", Action: game.ActionFold, Timestamp: 2},
		},
	}
	m.apply(second)
	require.Len(t, m.lines, 2)
	assert.Contains(t, m.lines[1], "Ana folds")

	// Replaying the same snapshot adds nothing.
	m.apply(second)
	assert.Len(t, m.lines, 2)
}

func TestDescribeHandComplete(t *testing.T) {
	m := newTestModel(t)
	m.names["u1"] = "Ana"
	m.names["u2"] = "Bo"

	solo := m.describeHandComplete(game.HandCompleteMessage{
		Winners: []string{"u1"}, PotAmount: 30, WinType: game.WinTypeFold,
	})
	assert.Equal(t, "Ana wins 30 uncontested", solo)

	chop := m.describeHandComplete(game.HandCompleteMessage{
		Winners: []string{"u1", "u2"}, PotAmount: 200, WinType: game.WinTypeShowdown,
	})
	assert.Equal(t, "Ana, Bo split 200 at showdown", chop)
}

func TestChatAndSystemEvents(t *testing.T) {
	m := newTestModel(t)
	m.names["u1"] = "Ana"

	chat := m.formatEvent(game.Event{Type: game.EventTypeChat, UserID: "u1", Message: "nice hand"})
	assert.Contains(t, chat, "Ana: nice hand")

	system := m.formatEvent(game.Event{Type: game.EventTypeSystem, Message: "hand started"})
	assert.Contains(t, system, "hand started")
}
