package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telepoker/telepoker/internal/deck"
)

type seatSpec struct {
	userID string
	name   string
	stack  int
}

func seatPlayers(t *testing.T, tbl *Table, seats []seatSpec) {
	t.Helper()
	for _, s := range seats {
		require.NoError(t, tbl.SeatPlayer(s.userID, s.name, s.stack))
	}
}

// rigFlop puts the table mid-hand on the flop with a clean betting round:
// no bets, nobody has acted, firstActor on the clock.
func rigFlop(t *testing.T, tbl *Table, firstActor string) {
	t.Helper()
	tbl.mu.Lock()
	defer tbl.mu.Unlock()
	tbl.deck = deck.NewShuffled(tbl.rng)
	tbl.stage = StageFlop
	tbl.communityCards = tbl.deck.DealN(3)
	tbl.pot = 0
	tbl.currentBet = 0
	tbl.lastRaise = tbl.cfg.BigBlind
	tbl.playerBets = make(map[string]int)
	tbl.handContributions = make(map[string]int)
	tbl.pendingAutoShowdown = false
	for _, p := range tbl.orderedPlayersLocked() {
		p.Cards = tbl.deck.DealN(2)
		p.HasFolded = false
		p.HasActed = false
		p.IsAllIn = false
	}
	tbl.setActiveUserLocked(firstActor)
}

func noAutoStart() Config {
	cfg := DefaultConfig()
	cfg.AutoStart = false
	return cfg
}

func TestOpeningBetMustReachBigBlind(t *testing.T) {
	tbl, _, _ := newTestTable(t, noAutoStart())
	seatPlayers(t, tbl, []seatSpec{{"a", "Alice", 1000}, {"b", "Bob", 1000}, {"c", "Carol", 1000}})
	rigFlop(t, tbl, "a")

	tbl.HandleAction("a", Action{Command: "bet", Amount: 15})
	snap := tbl.Snapshot("")
	assert.Equal(t, 0, snap.CurrentBet)
	assert.Equal(t, "a", snap.ActiveUserID, "undersized bet consumed the turn")

	tbl.HandleAction("a", Action{Command: "bet", Amount: 20})
	snap = tbl.Snapshot("")
	assert.Equal(t, 20, snap.CurrentBet)
	assert.Equal(t, 20, snap.PlayerBets["a"])
	assert.Equal(t, "b", snap.ActiveUserID)
}

func TestRaiseMustMeetLastRaiseIncrement(t *testing.T) {
	tbl, _, _ := newTestTable(t, noAutoStart())
	seatPlayers(t, tbl, []seatSpec{{"a", "Alice", 1000}, {"b", "Bob", 1000}, {"c", "Carol", 1000}})
	rigFlop(t, tbl, "a")

	tbl.HandleAction("a", Action{Command: "bet", Amount: 100})
	snap := tbl.Snapshot("")
	require.Equal(t, 100, snap.CurrentBet)
	require.Equal(t, 200, snap.MinRaiseTotal)

	tbl.HandleAction("b", Action{Command: "raise", Amount: 150})
	snap = tbl.Snapshot("")
	assert.Equal(t, 100, snap.CurrentBet, "undersized raise was accepted")
	assert.Equal(t, "b", snap.ActiveUserID)

	tbl.HandleAction("b", Action{Command: "raise", Amount: 200})
	snap = tbl.Snapshot("")
	assert.Equal(t, 200, snap.CurrentBet)
	assert.Equal(t, 100, snap.MinRaiseIncrement)
	assert.Equal(t, 300, snap.MinRaiseTotal)
}

// A raise target is the player's total street contribution, so moving from
// a 60 bet to 400 costs 340 more, not 400.
func TestRaiseTargetIsTotalStreetContribution(t *testing.T) {
	tbl, _, _ := newTestTable(t, noAutoStart())
	seatPlayers(t, tbl, []seatSpec{{"a", "Alice", 1000}, {"b", "Bob", 1000}})
	rigFlop(t, tbl, "a")

	tbl.HandleAction("a", Action{Command: "bet", Amount: 60})
	tbl.HandleAction("b", Action{Command: "raise", Amount: 180})
	tbl.HandleAction("a", Action{Command: "raise", Amount: 400})

	snap := tbl.Snapshot("")
	stacks := tbl.PlayerStacks()
	assert.Equal(t, 400, snap.PlayerBets["a"])
	assert.Equal(t, 600, stacks["a"])
	assert.Equal(t, 180, snap.PlayerBets["b"])
	assert.Equal(t, 820, stacks["b"])
	assert.Equal(t, 400, snap.CurrentBet)
}

func TestShortAllInDoesNotReopenBetting(t *testing.T) {
	ctx := testCtx(t)
	tbl, clock, _ := newTestTable(t, noAutoStart())
	seatPlayers(t, tbl, []seatSpec{{"a", "Alice", 1000}, {"b", "Bob", 150}, {"c", "Carol", 1000}})
	rigFlop(t, tbl, "a")

	tbl.HandleAction("a", Action{Command: "bet", Amount: 100})
	tbl.HandleAction("b", Action{Command: "all_in"})

	snap := tbl.Snapshot("")
	assert.Equal(t, 150, snap.CurrentBet)
	// The 50-chip shove falls short of the 100 raise increment, so the
	// minimum stays anchored on the original bet and Alice's action is
	// not reopened.
	assert.Equal(t, 100, snap.MinRaiseIncrement)
	assert.Equal(t, 250, snap.MinRaiseTotal)

	tbl.mu.Lock()
	aliceActed := tbl.players["a"].HasActed
	bobAllIn := tbl.players["b"].IsAllIn
	tbl.mu.Unlock()
	assert.True(t, aliceActed)
	assert.True(t, bobAllIn)

	tbl.HandleAction("c", Action{Command: "fold"})
	tbl.HandleAction("a", Action{Command: "call"})

	clock.Advance(1500 * time.Millisecond).MustWait(ctx)
	assert.Equal(t, StageTurn, tbl.Stage())
}

func TestFullRaiseAllInReopensBetting(t *testing.T) {
	tbl, _, _ := newTestTable(t, noAutoStart())
	seatPlayers(t, tbl, []seatSpec{{"a", "Alice", 1000}, {"b", "Bob", 400}, {"c", "Carol", 1000}})
	rigFlop(t, tbl, "a")

	tbl.HandleAction("a", Action{Command: "bet", Amount: 100})
	tbl.HandleAction("b", Action{Command: "all_in"})

	snap := tbl.Snapshot("")
	assert.Equal(t, 400, snap.CurrentBet)
	assert.Equal(t, 300, snap.MinRaiseIncrement)
	assert.Equal(t, 700, snap.MinRaiseTotal)

	tbl.mu.Lock()
	aliceActed := tbl.players["a"].HasActed
	tbl.mu.Unlock()
	assert.False(t, aliceActed, "full raise must reopen action for earlier bettors")
}

func TestAllInForLessThanCallIsAllowed(t *testing.T) {
	ctx := testCtx(t)
	tbl, clock, _ := newTestTable(t, noAutoStart())
	seatPlayers(t, tbl, []seatSpec{{"a", "Alice", 1000}, {"b", "Bob", 40}, {"c", "Carol", 1000}})
	rigFlop(t, tbl, "a")

	tbl.HandleAction("a", Action{Command: "bet", Amount: 100})
	tbl.HandleAction("b", Action{Command: "all_in"})

	snap := tbl.Snapshot("")
	assert.Equal(t, 100, snap.CurrentBet, "short call must not lower the bet")
	assert.Equal(t, 40, snap.PlayerBets["b"])

	tbl.HandleAction("c", Action{Command: "call"})
	clock.Advance(1500 * time.Millisecond).MustWait(ctx)
	assert.Equal(t, StageTurn, tbl.Stage())
}

func TestBetBeyondStackClampsToAllIn(t *testing.T) {
	tbl, _, _ := newTestTable(t, noAutoStart())
	seatPlayers(t, tbl, []seatSpec{{"a", "Alice", 1000}, {"b", "Bob", 1000}})
	rigFlop(t, tbl, "a")

	tbl.HandleAction("a", Action{Command: "bet", Amount: 5000})

	snap := tbl.Snapshot("")
	assert.Equal(t, 1000, snap.CurrentBet)
	assert.Equal(t, 1000, snap.PlayerBets["a"])
	tbl.mu.Lock()
	assert.True(t, tbl.players["a"].IsAllIn)
	tbl.mu.Unlock()
}

func TestOutOfTurnActionIgnored(t *testing.T) {
	tbl, _, _ := newTestTable(t, noAutoStart())
	seatPlayers(t, tbl, []seatSpec{{"a", "Alice", 1000}, {"b", "Bob", 1000}})
	rigFlop(t, tbl, "a")

	tbl.HandleAction("b", Action{Command: "bet", Amount: 100})

	snap := tbl.Snapshot("")
	assert.Equal(t, 0, snap.CurrentBet)
	assert.Equal(t, 0, snap.PlayerBets["b"])
	assert.Equal(t, "a", snap.ActiveUserID)
	assert.Equal(t, 1000, tbl.PlayerStacks()["b"])
}

// A big blind too short to post in full goes all-in for what they have and
// the bet to match is what was actually posted.
func TestShortBigBlindPostsAllIn(t *testing.T) {
	ctx := testCtx(t)
	tbl, clock, rec := newTestTable(t, DefaultConfig())
	require.NoError(t, tbl.SeatPlayer("a", "Alice", 5))
	require.NoError(t, tbl.SeatPlayer("b", "Bob", 1000))

	// Button rotated onto Bob, so Alice posts the big blind all-in.
	snap := tbl.Snapshot("")
	require.Equal(t, "b", snap.ButtonUserID)
	require.Equal(t, 5, snap.CurrentBet)
	require.Equal(t, "b", snap.ActiveUserID)

	// Calling costs Bob nothing beyond his small blind. Alice is all-in,
	// so Bob checks the hand down to showdown.
	tbl.HandleAction("b", Action{Command: "call"})
	clock.Advance(1500 * time.Millisecond).MustWait(ctx)
	require.Equal(t, StageFlop, tbl.Stage())
	for _, want := range []Stage{StageTurn, StageRiver, StageShowdown} {
		tbl.HandleAction("b", Action{Command: "check"})
		clock.Advance(1500 * time.Millisecond).MustWait(ctx)
		require.Equal(t, want, tbl.Stage())
	}

	snap = tbl.Snapshot("")
	require.Len(t, snap.SidePotSummary, 2)
	assert.Equal(t, 10, snap.SidePotSummary[0].Amount)
	assert.Equal(t, 5, snap.SidePotSummary[1].Amount)

	completes := rec.handCompletes()
	require.Len(t, completes, 1)
	assert.Equal(t, 15, completes[0].PotAmount)
	assert.Equal(t, WinTypeShowdown, completes[0].WinType)
	assert.Equal(t, 1005, liveChips(tbl))
}

func TestFoldedPlayersSkippedForAction(t *testing.T) {
	tbl, _, _ := newTestTable(t, noAutoStart())
	seatPlayers(t, tbl, []seatSpec{{"a", "Alice", 1000}, {"b", "Bob", 1000}, {"c", "Carol", 1000}})
	rigFlop(t, tbl, "a")

	tbl.HandleAction("a", Action{Command: "bet", Amount: 50})
	tbl.HandleAction("b", Action{Command: "fold"})
	tbl.HandleAction("c", Action{Command: "raise", Amount: 150})

	// Action returns to Alice, skipping the folded Bob.
	snap := tbl.Snapshot("")
	assert.Equal(t, "a", snap.ActiveUserID)

	tbl.HandleAction("a", Action{Command: "fold"})
	snap = tbl.Snapshot("")
	assert.Equal(t, StageShowdown, snap.Stage)
	// Carol put in 150 and collects the 200 pot.
	assert.Equal(t, 1050, tbl.PlayerStacks()["c"])
	assert.Equal(t, 3000, liveChips(tbl))
}
