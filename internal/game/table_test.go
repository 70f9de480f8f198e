package game

import (
	"context"
	"io"
	rand "math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telepoker/telepoker/internal/deck"
	"github.com/telepoker/telepoker/internal/randutil"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// recordingBroadcaster captures table output for assertions. State pushes
// are only counted; typed messages are kept.
type recordingBroadcaster struct {
	mu       sync.Mutex
	states   int
	messages []any
}

func (r *recordingBroadcaster) BroadcastState(tableID string, build func(viewerID string) Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states++
}

func (r *recordingBroadcaster) BroadcastMessage(tableID string, message any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
}

func (r *recordingBroadcaster) handCompletes() []HandCompleteMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []HandCompleteMessage
	for _, m := range r.messages {
		if hc, ok := m.(HandCompleteMessage); ok {
			out = append(out, hc)
		}
	}
	return out
}

func (r *recordingBroadcaster) showdownCompletes() []ShowdownCompleteMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ShowdownCompleteMessage
	for _, m := range r.messages {
		if sc, ok := m.(ShowdownCompleteMessage); ok {
			out = append(out, sc)
		}
	}
	return out
}

func (r *recordingBroadcaster) visibilities() []CardsVisibilityMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []CardsVisibilityMessage
	for _, m := range r.messages {
		if v, ok := m.(CardsVisibilityMessage); ok {
			out = append(out, v)
		}
	}
	return out
}

func newTestTable(t *testing.T, cfg Config) (*Table, *quartz.Mock, *recordingBroadcaster) {
	t.Helper()
	clock := quartz.NewMock(t)
	rec := &recordingBroadcaster{}
	tbl := New("t1", Options{
		Config:      cfg,
		Clock:       clock,
		Logger:      testLogger(),
		RNG:         randutil.New(42),
		Broadcaster: rec,
	})
	return tbl, clock, rec
}

// advanceBy walks the mock clock forward by d in steps, stopping at every
// pending timer on the way; Advance refuses to leap past one.
func advanceBy(t *testing.T, ctx context.Context, clock *quartz.Mock, d time.Duration) {
	t.Helper()
	for d > 0 {
		step := d
		if next, ok := clock.Peek(); ok && next < step {
			step = next
		}
		clock.Advance(step).MustWait(ctx)
		d -= step
	}
}

// liveChips sums every seated player's stack plus the display pot, which
// already includes bets in front of players.
func liveChips(tbl *Table) int {
	snap := tbl.Snapshot("")
	total := snap.Pot
	for _, p := range snap.Players {
		total += p.Stack
	}
	return total
}

func hasEvent(snap Snapshot, match func(Event) bool) bool {
	for _, ev := range snap.Events {
		if match(ev) {
			return true
		}
	}
	return false
}

func TestFirstHandStartsWhenSecondPlayerJoins(t *testing.T) {
	tbl, _, _ := newTestTable(t, DefaultConfig())

	require.NoError(t, tbl.AddPlayer("a", "Alice"))
	snap := tbl.Snapshot("a")
	require.Equal(t, StagePreflop, snap.Stage)
	require.Empty(t, snap.Players[0].Cards)
	require.Equal(t, 0, snap.Pot)

	require.NoError(t, tbl.AddPlayer("b", "Bob"))
	snap = tbl.Snapshot("a")

	require.Equal(t, StagePreflop, snap.Stage)
	// The button rotates off the first joiner, so Bob posts the small
	// blind and acts first heads-up.
	assert.Equal(t, "b", snap.ButtonUserID)
	assert.Equal(t, "b", snap.ActiveUserID)
	assert.Equal(t, 20, snap.CurrentBet)
	assert.Equal(t, 10, snap.PlayerBets["b"])
	assert.Equal(t, 20, snap.PlayerBets["a"])
	assert.Equal(t, 30, snap.Pot)
	assert.Equal(t, 20, snap.MinRaiseIncrement)
	assert.Equal(t, 40, snap.MinRaiseTotal)
	assert.Positive(t, snap.TurnDeadlineMs)
	assert.True(t, hasEvent(snap, func(ev Event) bool {
		return ev.Action == ActionSmallBlind && ev.UserID == "b" && ev.Amount == 10
	}))
	assert.True(t, hasEvent(snap, func(ev Event) bool {
		return ev.Action == ActionBigBlind && ev.UserID == "a" && ev.Amount == 20
	}))

	for _, p := range snap.Players {
		assert.Equal(t, 2, p.CardCount)
	}
	assert.Equal(t, 2000, liveChips(tbl))
}

func TestHoleCardVisibility(t *testing.T) {
	tbl, _, _ := newTestTable(t, DefaultConfig())
	require.NoError(t, tbl.AddPlayer("a", "Alice"))
	require.NoError(t, tbl.AddPlayer("b", "Bob"))

	viewA := tbl.Snapshot("a")
	viewB := tbl.Snapshot("b")
	spectator := tbl.Snapshot("watcher")

	for _, p := range viewA.Players {
		if p.UserID == "a" {
			assert.Len(t, p.Cards, 2)
		} else {
			assert.Empty(t, p.Cards)
			assert.Equal(t, 2, p.CardCount)
		}
	}
	for _, p := range viewB.Players {
		if p.UserID == "b" {
			assert.Len(t, p.Cards, 2)
		} else {
			assert.Empty(t, p.Cards)
		}
	}
	for _, p := range spectator.Players {
		assert.Empty(t, p.Cards)
	}
}

func TestFoldEndsHeadsUpHand(t *testing.T) {
	ctx := testCtx(t)
	tbl, clock, rec := newTestTable(t, DefaultConfig())
	require.NoError(t, tbl.AddPlayer("a", "Alice"))
	require.NoError(t, tbl.AddPlayer("b", "Bob"))

	tbl.HandleAction("b", Action{Command: "fold"})

	snap := tbl.Snapshot("")
	assert.Equal(t, StageShowdown, snap.Stage)
	assert.Empty(t, snap.ActiveUserID)
	assert.Equal(t, 0, snap.Pot)

	stacks := tbl.PlayerStacks()
	assert.Equal(t, 1010, stacks["a"])
	assert.Equal(t, 990, stacks["b"])
	assert.Equal(t, 2000, liveChips(tbl))

	completes := rec.handCompletes()
	require.Len(t, completes, 1)
	assert.Equal(t, WinTypeFold, completes[0].WinType)
	assert.Equal(t, []string{"a"}, completes[0].Winners)
	assert.Equal(t, 30, completes[0].PotAmount)

	// Next hand deals automatically after the showdown delay.
	clock.Advance(5 * time.Second).MustWait(ctx)
	snap = tbl.Snapshot("")
	assert.Equal(t, StagePreflop, snap.Stage)
	assert.Equal(t, "a", snap.ButtonUserID)
	assert.Equal(t, 30, snap.Pot)
	assert.Equal(t, 2000, liveChips(tbl))
}

func TestBigBlindOptionHeadsUp(t *testing.T) {
	ctx := testCtx(t)
	tbl, clock, _ := newTestTable(t, DefaultConfig())
	require.NoError(t, tbl.AddPlayer("a", "Alice"))
	require.NoError(t, tbl.AddPlayer("b", "Bob"))

	// Small blind limps. The big blind still has the option, so the
	// street must not advance yet.
	tbl.HandleAction("b", Action{Command: "call"})
	snap := tbl.Snapshot("")
	require.Equal(t, "a", snap.ActiveUserID)

	clock.Advance(1500 * time.Millisecond).MustWait(ctx)
	snap = tbl.Snapshot("")
	assert.Equal(t, StagePreflop, snap.Stage, "street advanced before the big blind acted")

	tbl.HandleAction("a", Action{Command: "check"})
	clock.Advance(1500 * time.Millisecond).MustWait(ctx)
	snap = tbl.Snapshot("")
	assert.Equal(t, StageFlop, snap.Stage)
	assert.Len(t, snap.CommunityCards, 3)
	assert.Equal(t, 0, snap.CurrentBet)
	// Heads-up the big blind acts first after the flop.
	assert.Equal(t, "a", snap.ActiveUserID)
}

func TestCheckRejectedWhenFacingBet(t *testing.T) {
	tbl, _, _ := newTestTable(t, DefaultConfig())
	require.NoError(t, tbl.AddPlayer("a", "Alice"))
	require.NoError(t, tbl.AddPlayer("b", "Bob"))

	// Small blind owes 10 more, checking is not an option.
	tbl.HandleAction("b", Action{Command: "check"})
	snap := tbl.Snapshot("")
	assert.Equal(t, "b", snap.ActiveUserID, "invalid check consumed the turn")
	assert.Equal(t, 10, snap.PlayerBets["b"])
}

func TestAutoFoldAfterTimeout(t *testing.T) {
	ctx := testCtx(t)
	tbl, clock, rec := newTestTable(t, DefaultConfig())
	require.NoError(t, tbl.AddPlayer("a", "Alice"))
	require.NoError(t, tbl.AddPlayer("b", "Bob"))

	clock.Advance(30 * time.Second).MustWait(ctx)

	snap := tbl.Snapshot("")
	assert.True(t, hasEvent(snap, func(ev Event) bool {
		return ev.Action == ActionAutoFold && ev.UserID == "b"
	}))
	assert.Equal(t, StageShowdown, snap.Stage)

	completes := rec.handCompletes()
	require.Len(t, completes, 1)
	assert.Equal(t, []string{"a"}, completes[0].Winners)
	assert.Equal(t, 2000, liveChips(tbl))
}

func TestActingResetsActionClock(t *testing.T) {
	ctx := testCtx(t)
	tbl, clock, _ := newTestTable(t, DefaultConfig())
	require.NoError(t, tbl.AddPlayer("a", "Alice"))
	require.NoError(t, tbl.AddPlayer("b", "Bob"))

	before := tbl.Snapshot("").TurnDeadlineMs
	clock.Advance(20 * time.Second).MustWait(ctx)
	tbl.HandleAction("b", Action{Command: "call"})

	snap := tbl.Snapshot("")
	require.Equal(t, "a", snap.ActiveUserID)
	assert.Greater(t, snap.TurnDeadlineMs, before)

	// The previous player's expiry must not fold the new actor.
	clock.Advance(10 * time.Second).MustWait(ctx)
	snap = tbl.Snapshot("")
	assert.Equal(t, "a", snap.ActiveUserID)
	assert.Equal(t, StagePreflop, snap.Stage)
}

func TestStartHandIgnoredMidHand(t *testing.T) {
	tbl, _, _ := newTestTable(t, DefaultConfig())
	require.NoError(t, tbl.AddPlayer("a", "Alice"))
	require.NoError(t, tbl.AddPlayer("b", "Bob"))

	before := tbl.Snapshot("a")
	require.Equal(t, 2, before.Players[0].CardCount)

	tbl.HandleAction("a", Action{Command: "start_hand"})

	after := tbl.Snapshot("a")
	assert.Equal(t, before.PlayerBets, after.PlayerBets)
	assert.Equal(t, before.Pot, after.Pot)
	for i := range before.Players {
		assert.Equal(t, before.Players[i].Cards, after.Players[i].Cards)
	}
	assert.Equal(t, 2000, liveChips(tbl))
}

func TestLeaveTableMidHandAwardsPot(t *testing.T) {
	tbl, _, _ := newTestTable(t, DefaultConfig())
	require.NoError(t, tbl.AddPlayer("a", "Alice"))
	require.NoError(t, tbl.AddPlayer("b", "Bob"))

	tbl.HandleAction("b", Action{Command: "leave_table"})

	assert.Equal(t, 1, tbl.PlayerCount())
	assert.False(t, tbl.HasPlayer("b"))
	snap := tbl.Snapshot("")
	assert.Equal(t, StageShowdown, snap.Stage)
	stacks := tbl.PlayerStacks()
	// Alice collects both blinds; Bob walked away without his small blind.
	assert.Equal(t, 1010, stacks["a"])
}

func TestAdvanceStageCommandWalksStreets(t *testing.T) {
	tbl, _, _ := newTestTable(t, DefaultConfig())
	require.NoError(t, tbl.AddPlayer("a", "Alice"))
	require.NoError(t, tbl.AddPlayer("b", "Bob"))

	tbl.HandleAction("a", Action{Command: "advance_stage"})
	snap := tbl.Snapshot("")
	assert.Equal(t, StageFlop, snap.Stage)
	assert.Len(t, snap.CommunityCards, 3)
	assert.True(t, hasEvent(snap, func(ev Event) bool {
		return ev.Type == EventTypeSystem && ev.Message == "Stage -> flop"
	}))

	tbl.HandleAction("a", Action{Command: "advance_stage"})
	snap = tbl.Snapshot("")
	assert.Equal(t, StageTurn, snap.Stage)
	assert.Len(t, snap.CommunityCards, 4)
}

func TestChatAppendsEvent(t *testing.T) {
	tbl, _, _ := newTestTable(t, DefaultConfig())
	require.NoError(t, tbl.AddPlayer("a", "Alice"))

	tbl.HandleAction("a", Action{Command: "chat", Message: "gl all"})
	snap := tbl.Snapshot("")
	assert.True(t, hasEvent(snap, func(ev Event) bool {
		return ev.Type == EventTypeChat && ev.UserID == "a" && ev.Message == "gl all"
	}))

	tbl.HandleAction("a", Action{Command: "chat"})
	count := 0
	for _, ev := range tbl.Snapshot("").Events {
		if ev.Type == EventTypeChat {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestTableFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPlayers = 2
	cfg.AutoStart = false
	tbl, _, _ := newTestTable(t, cfg)

	require.NoError(t, tbl.AddPlayer("a", "Alice"))
	require.NoError(t, tbl.AddPlayer("b", "Bob"))
	require.ErrorIs(t, tbl.AddPlayer("c", "Carol"), ErrTableFull)

	// Rejoining an occupied seat is a no-op, not an error.
	require.NoError(t, tbl.AddPlayer("a", "Alice"))
	assert.Equal(t, 2, tbl.PlayerCount())
}

func TestChipConservationUnderRandomPlay(t *testing.T) {
	ctx := testCtx(t)
	tbl, clock, _ := newTestTable(t, DefaultConfig())
	require.NoError(t, tbl.AddPlayer("a", "Alice"))
	require.NoError(t, tbl.AddPlayer("b", "Bob"))
	require.NoError(t, tbl.AddPlayer("c", "Carol"))

	rng := rand.New(rand.NewPCG(7, 11))
	commands := []string{"fold", "check", "call", "bet", "raise", "all_in"}

	for i := 0; i < 250; i++ {
		snap := tbl.Snapshot("")
		if snap.ActiveUserID != "" {
			cmd := commands[rng.IntN(len(commands))]
			action := Action{Command: cmd}
			if cmd == "bet" || cmd == "raise" {
				action.Amount = rng.IntN(400)
			}
			tbl.HandleAction(snap.ActiveUserID, action)
		}
		advanceBy(t, ctx, clock, 2*time.Second)
		require.Equal(t, 3000, liveChips(tbl), "chips leaked at iteration %d", i)
	}
}

func TestManagerGetOrCreate(t *testing.T) {
	m := NewManager(DefaultConfig(), quartz.NewMock(t), testLogger(), nil)

	tbl := m.GetOrCreate("alpha")
	require.NotNil(t, tbl)
	assert.Same(t, tbl, m.GetOrCreate("alpha"))
	assert.Equal(t, 1, m.Count())

	got, ok := m.Get("alpha")
	require.True(t, ok)
	assert.Same(t, tbl, got)

	_, ok = m.Get("missing")
	assert.False(t, ok)

	m.Remove("alpha")
	assert.Equal(t, 0, m.Count())
}

func TestDeckDealsUniqueCardsPerHand(t *testing.T) {
	tbl, _, _ := newTestTable(t, DefaultConfig())
	require.NoError(t, tbl.AddPlayer("a", "Alice"))
	require.NoError(t, tbl.AddPlayer("b", "Bob"))

	tbl.HandleAction("a", Action{Command: "advance_stage"})
	tbl.HandleAction("a", Action{Command: "advance_stage"})
	tbl.HandleAction("a", Action{Command: "advance_stage"})

	seen := make(map[deck.Card]bool)
	snapA := tbl.Snapshot("a")
	snapB := tbl.Snapshot("b")
	var all []deck.Card
	for _, p := range snapA.Players {
		all = append(all, p.Cards...)
	}
	for _, p := range snapB.Players {
		all = append(all, p.Cards...)
	}
	all = append(all, snapA.CommunityCards...)
	for _, c := range all {
		assert.False(t, seen[c], "card %s dealt twice", c)
		seen[c] = true
	}
	assert.Len(t, snapA.CommunityCards, 5)
}
