package game

import (
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/telepoker/telepoker/internal/deck"
	"github.com/telepoker/telepoker/internal/evaluator"
	"github.com/telepoker/telepoker/internal/randutil"
)

// ErrTableFull is returned when every seat is taken.
var ErrTableFull = errors.New("table is full")

// Wire commands accepted by HandleAction.
const (
	cmdStartHand    = "start_hand"
	cmdAdvanceStage = "advance_stage"
	cmdChat         = "chat"
	cmdShowCards    = "show_cards"
	cmdShowCardsAlt = "showcards"
	cmdLeaveTable   = "leave_table"
	cmdFold         = "fold"
	cmdCheck        = "check"
	cmdCall         = "call"
	cmdBet          = "bet"
	cmdRaise        = "raise"
	cmdAllIn        = "all_in"
	cmdRebuy        = "rebuy"
)

// Action is a decoded client command addressed to a table. For bet and
// raise, Amount is the total street contribution the player is moving to,
// not the delta on top of their current bet.
type Action struct {
	Command string `json:"command"`
	Amount  int    `json:"amount,omitempty"`
	Message string `json:"message,omitempty"`
	Show    bool   `json:"show,omitempty"`
}

// Options configures a new table. Zero-value fields fall back to real
// clock, discard logger, crypto-seeded shuffles and DefaultConfig values.
type Options struct {
	Config         Config
	Clock          quartz.Clock
	Logger         *log.Logger
	RNG            *rand.Rand
	Broadcaster    Broadcaster
	OnHandComplete HandCompleteFunc
}

// Table runs a single poker table: seating, the hand state machine, the
// action clock and state fan-out. One mutex guards all state. Timer
// callbacks re-acquire it and re-check generation guards, so a callback
// that lost a cancellation race becomes a no-op.
type Table struct {
	mu     sync.Mutex
	id     string
	cfg    Config
	clock  quartz.Clock
	logger *log.Logger
	rng    *rand.Rand
	reseed bool // rng is table-owned, redrawn from the OS each hand

	broadcaster    Broadcaster
	onHandComplete HandCompleteFunc

	players map[string]*Player
	deck    *deck.Deck

	stage             Stage
	communityCards    []deck.Card
	pot               int
	currentBet        int
	lastRaise         int
	playerBets        map[string]int
	handContributions map[string]int
	pots              []Pot
	sidePotSummary    []SidePotView

	buttonUserID        string
	activeUserID        string
	turnDeadlineMs      int64
	pendingAutoShowdown bool

	eventLog []Event

	showdownDecisions  map[string]bool
	showdownSavedCards map[string][]deck.Card

	actionTimer   *quartz.Timer
	actionGen     uint64
	roundTimer    *quartz.Timer
	roundGen      uint64
	newHandTimer  *quartz.Timer
	newHandGen    uint64
	bustoutTimers map[string]*quartz.Timer
}

// New creates an idle table. No hand is dealt until enough players join.
func New(id string, opts Options) *Table {
	cfg := opts.Config.withDefaults()
	clock := opts.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	rng := opts.RNG
	reseed := false
	if rng == nil {
		rng = randutil.NewCrypto()
		reseed = true
	}
	return &Table{
		id:                 id,
		cfg:                cfg,
		clock:              clock,
		logger:             logger.WithPrefix("table").With("table", id),
		rng:                rng,
		reseed:             reseed,
		broadcaster:        opts.Broadcaster,
		onHandComplete:     opts.OnHandComplete,
		players:            make(map[string]*Player),
		stage:              StagePreflop,
		lastRaise:          cfg.BigBlind,
		playerBets:         make(map[string]int),
		handContributions:  make(map[string]int),
		showdownDecisions:  make(map[string]bool),
		showdownSavedCards: make(map[string][]deck.Card),
		bustoutTimers:      make(map[string]*quartz.Timer),
	}
}

// ID returns the table identifier.
func (t *Table) ID() string { return t.id }

// Rules reports whether this table plays cash or tournament rules. Fixed
// at construction.
func (t *Table) Rules() Rules { return t.cfg.Rules }

// PlayerCount returns the number of seated players.
func (t *Table) PlayerCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.players)
}

// HasPlayer reports whether userID is seated at the table.
func (t *Table) HasPlayer(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.players[userID]
	return ok
}

// PlayerStacks returns a copy of every seated player's stack.
func (t *Table) PlayerStacks() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	stacks := make(map[string]int, len(t.players))
	for uid, p := range t.players {
		stacks[uid] = p.Stack
	}
	return stacks
}

// PlayerIDs returns the seated user IDs in seat order.
func (t *Table) PlayerIDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.players))
	for _, p := range t.orderedPlayersLocked() {
		ids = append(ids, p.UserID)
	}
	return ids
}

// Stage returns the current hand stage.
func (t *Table) Stage() Stage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stage
}

// SetStakes updates blinds and ante. The new stakes apply from the next
// hand; the hand in progress finishes at the old ones.
func (t *Table) SetStakes(smallBlind, bigBlind, ante int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if smallBlind > 0 {
		t.cfg.SmallBlind = smallBlind
	}
	if bigBlind > 0 {
		t.cfg.BigBlind = bigBlind
	}
	if ante >= 0 {
		t.cfg.Ante = ante
	}
	if t.cfg.Ante > 0 {
		t.appendSystemEventLocked(fmt.Sprintf("Blinds now %d/%d (ante %d)", t.cfg.SmallBlind, t.cfg.BigBlind, t.cfg.Ante))
	} else {
		t.appendSystemEventLocked(fmt.Sprintf("Blinds now %d/%d", t.cfg.SmallBlind, t.cfg.BigBlind))
	}
	t.logger.Info("stakes updated", "smallBlind", t.cfg.SmallBlind, "bigBlind", t.cfg.BigBlind, "ante", t.cfg.Ante)
	t.broadcastStateLocked()
}

// AddPlayer seats a new player with the table's starting balance. Joining
// with an already-seated user ID is a reconnect and leaves state untouched.
func (t *Table) AddPlayer(userID, displayName string) error {
	return t.SeatPlayer(userID, displayName, 0)
}

// SeatPlayer seats a player with an explicit stack, used by tournament
// controllers when moving players between tables. A stack of zero or less
// means the configured starting balance.
func (t *Table) SeatPlayer(userID, displayName string, stack int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.players[userID]; ok {
		return nil
	}
	if len(t.players) >= t.cfg.MaxPlayers {
		return ErrTableFull
	}
	if stack <= 0 {
		stack = t.cfg.StartBalance
	}

	seat := t.nextSeatLocked()
	if t.cfg.Rules == RulesTournament {
		seat = t.randomSeatLocked()
	}
	player := &Player{
		UserID:      userID,
		DisplayName: displayName,
		Seat:        seat,
		Stack:       stack,
	}
	if t.handInProgressLocked() {
		// Joiners sit out the hand already underway.
		player.HasFolded = true
	}
	t.players[userID] = player
	if len(t.players) == 1 {
		t.buttonUserID = userID
		t.activeUserID = userID
	}
	t.logger.Info("player joined", "user", userID, "seat", player.Seat, "stack", stack)

	if t.cfg.AutoStart && t.shouldAutoStartLocked() {
		t.resetRoundLocked()
		t.appendSystemEventLocked("New hand started")
	}
	t.maybeTriggerRoundCompletionLocked()
	t.broadcastStateLocked()
	return nil
}

// RemovePlayer unseats a player and returns their remaining stack. Their
// chips in the current pot stay contested by the players left in the hand.
func (t *Table) RemovePlayer(userID string) (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	removed, ok := t.players[userID]
	if !ok {
		return 0, false
	}
	delete(t.players, userID)
	t.cancelBustoutLocked(userID)

	if t.buttonUserID == userID {
		t.buttonUserID = ""
		if next := t.nextFromSeatLocked(removed.Seat, func(p *Player) bool { return !p.IsBusted }); next != nil {
			t.buttonUserID = next.UserID
		}
	}
	if t.activeUserID == userID {
		active := ""
		if next := t.nextFromSeatLocked(removed.Seat, (*Player).CanAct); next != nil {
			active = next.UserID
		}
		t.setActiveUserLocked(active)
	}
	t.logger.Info("player left", "user", userID, "stack", removed.Stack)

	t.maybeTriggerRoundCompletionLocked()
	t.broadcastStateLocked()
	return removed.Stack, true
}

// StartHand deals a fresh hand if none is in progress and at least two
// players have chips. Tournament controllers call this at launch and after
// moving players; afterwards hands chain on the showdown timer.
func (t *Table) StartHand() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handInProgressLocked() {
		return
	}
	if t.livePlayersLocked() < 2 {
		return
	}
	t.resetRoundLocked()
	t.appendSystemEventLocked("New hand started")
	t.broadcastStateLocked()
}

// HandInProgress reports whether a hand is currently being played.
// Tournament controllers only move players between tables that are idle.
func (t *Table) HandInProgress() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.handInProgressLocked()
}

// HandleAction applies a client command. Invalid or out-of-turn commands
// are ignored without error, the client UI is expected to prevent them.
func (t *Table) HandleAction(userID string, action Action) {
	command := strings.ToLower(action.Command)
	if command == cmdLeaveTable {
		t.RemovePlayer(userID)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch command {
	case cmdStartHand:
		if t.handInProgressLocked() || t.livePlayersLocked() < 2 {
			return
		}
		t.resetRoundLocked()
		t.appendSystemEventLocked("New hand started")
		t.broadcastStateLocked()
		return
	case cmdAdvanceStage:
		t.advanceStageLocked()
		t.appendSystemEventLocked("Stage -> " + string(t.stage))
		t.broadcastStateLocked()
		return
	case cmdChat:
		if action.Message == "" {
			return
		}
		t.appendEventLocked(Event{
			Type:      EventTypeChat,
			UserID:    userID,
			Message:   action.Message,
			Timestamp: t.nowMs(),
		})
		t.broadcastStateLocked()
		return
	case cmdShowCards, cmdShowCardsAlt:
		t.handleShowCardsLocked(userID, action.Show)
		return
	case cmdRebuy:
		t.handleRebuyLocked(userID)
		return
	}

	player, ok := t.players[userID]
	if !ok || player.HasFolded || t.stage == StageShowdown {
		return
	}
	if t.activeUserID != userID {
		return
	}

	switch command {
	case cmdFold:
		t.processFoldLocked(player)
	case cmdCheck:
		t.processCheckLocked(player)
	case cmdCall:
		t.processCallLocked(player)
	case cmdBet, cmdRaise, cmdAllIn:
		target := action.Amount
		if command == cmdAllIn {
			target = t.playerBets[userID] + player.Stack
		}
		t.processBetOrRaiseLocked(player, target, command)
	default:
		return
	}

	t.maybeTriggerRoundCompletionLocked()
	t.broadcastStateLocked()
}

// handleShowCardsLocked records a show/muck decision after a showdown and
// broadcasts it. Hole cards are read from the saved copy because player
// cards are cleared when the showdown resolves.
func (t *Table) handleShowCardsLocked(userID string, show bool) {
	player, ok := t.players[userID]
	if !ok {
		return
	}
	t.showdownDecisions[userID] = show
	var cards []deck.Card
	if show {
		if saved := t.showdownSavedCards[userID]; len(saved) > 0 {
			cards = make([]deck.Card, len(saved))
			copy(cards, saved)
		}
	}
	t.broadcastMessageLocked(CardsVisibilityMessage{
		Type:     MessageTypeCardsVisibility,
		PlayerID: userID,
		Nickname: player.DisplayName,
		Show:     show,
		Cards:    cards,
	})
}

// handleRebuyLocked restores a busted player's stack on cash tables and
// cancels their pending auto-kick. They are dealt in from the next hand.
func (t *Table) handleRebuyLocked(userID string) {
	if t.cfg.Rules != RulesCash {
		return
	}
	player, ok := t.players[userID]
	if !ok || !player.IsBusted {
		return
	}
	t.cancelBustoutLocked(userID)
	player.Stack = t.cfg.StartBalance
	player.IsBusted = false
	player.BustDeadlineMs = 0
	t.appendSystemEventLocked(player.DisplayName + " re-bought")
	t.logger.Info("player re-bought", "user", userID, "stack", player.Stack)
	t.maybeTriggerRoundCompletionLocked()
	t.broadcastStateLocked()
}

func (t *Table) processFoldLocked(p *Player) {
	p.HasFolded = true
	t.recordActionLocked(p.UserID, false)
	t.appendActionEventLocked(p.UserID, ActionFold, 0)
	t.advanceActiveLocked()
	t.maybeAutoShowdownLocked()
}

func (t *Table) processCheckLocked(p *Player) {
	if t.playerBets[p.UserID] < t.currentBet {
		return
	}
	t.recordActionLocked(p.UserID, false)
	t.appendActionEventLocked(p.UserID, ActionCheck, 0)
	t.advanceActiveLocked()
}

func (t *Table) processCallLocked(p *Player) {
	toCall := max(0, t.currentBet-t.playerBets[p.UserID])
	paid := t.deductStackLocked(p, toCall)
	t.recordActionLocked(p.UserID, false)
	t.appendActionEventLocked(p.UserID, ActionCall, paid)
	t.advanceActiveLocked()
	t.maybeAutoShowdownLocked()
}

// processBetOrRaiseLocked moves the player's street contribution to
// target. A raise below the minimum increment is rejected unless it puts
// the player all-in; an all-in short of a full raise does not reopen
// betting for players who already acted.
func (t *Table) processBetOrRaiseLocked(p *Player, target int, command string) {
	contribution := t.playerBets[p.UserID]
	pay := min(target-contribution, p.Stack)
	if pay <= 0 {
		return
	}
	newTotal := contribution + pay
	allIn := pay == p.Stack
	minIncrement := t.minRaiseIncrementLocked()
	if !allIn {
		if t.currentBet > 0 {
			if newTotal < t.currentBet+minIncrement {
				return
			}
		} else if newTotal < t.cfg.BigBlind {
			return
		}
	}

	previousHigh := t.currentBet
	paid := t.deductStackLocked(p, pay)
	newTotal = t.playerBets[p.UserID]

	reopened := false
	if newTotal > t.currentBet {
		t.currentBet = newTotal
		if increase := newTotal - previousHigh; increase >= minIncrement {
			t.lastRaise = increase
			reopened = true
		}
	}

	t.appendActionEventLocked(p.UserID, command, paid)
	t.recordActionLocked(p.UserID, reopened)
	t.advanceActiveLocked()
	t.maybeAutoShowdownLocked()
}

// deductStackLocked moves up to amount chips from the player's stack into
// their street bet and hand total. Emptying the stack marks them all-in.
func (t *Table) deductStackLocked(p *Player, amount int) int {
	if amount <= 0 {
		return 0
	}
	actual := min(amount, p.Stack)
	if actual <= 0 {
		return 0
	}
	p.Stack -= actual
	if p.Stack == 0 {
		p.IsAllIn = true
	}
	t.playerBets[p.UserID] += actual
	t.handContributions[p.UserID] += actual
	return actual
}

func (t *Table) recordActionLocked(actorID string, resetsOthers bool) {
	p, ok := t.players[actorID]
	if !ok {
		return
	}
	p.HasActed = true
	if resetsOthers {
		for _, other := range t.activePlayersLocked() {
			if other.UserID != actorID {
				other.HasActed = false
			}
		}
	}
}

// resetRoundLocked starts a fresh hand: new shuffled deck, cleared pots
// and bets, rotated button, blinds posted and hole cards dealt.
func (t *Table) resetRoundLocked() {
	t.cancelRoundTransitionLocked()
	t.cancelNewHandLocked()
	t.cancelActionTimerLocked()

	if t.reseed {
		t.rng = randutil.NewCrypto()
	}
	t.deck = deck.NewShuffled(t.rng)
	t.communityCards = nil
	t.pot = 0
	t.stage = StagePreflop
	t.currentBet = 0
	t.playerBets = make(map[string]int)
	t.handContributions = make(map[string]int)
	t.pots = nil
	t.sidePotSummary = nil
	t.lastRaise = t.cfg.BigBlind
	t.pendingAutoShowdown = false
	t.showdownDecisions = make(map[string]bool)
	t.showdownSavedCards = make(map[string][]deck.Card)

	for _, p := range t.players {
		p.Cards = nil
		p.HasFolded = false
		p.HasActed = false
		p.IsSmallBlind = false
		p.IsBigBlind = false
		p.BlindAmount = 0
		p.IsAllIn = false
		if p.Stack <= 0 {
			p.IsBusted = true
		}
		p.BustDeadlineMs = 0
	}

	t.rotateButtonLocked()
	t.postBlindsLocked()
	t.dealHoleCardsLocked()
	t.logger.Info("hand started", "players", len(t.players), "button", t.buttonUserID)
}

// rotateButtonLocked moves the button to the next seat clockwise, skipping
// players who are sitting out busted.
func (t *Table) rotateButtonLocked() {
	ordered := t.orderedPlayersLocked()
	if len(ordered) == 0 {
		t.buttonUserID = ""
		return
	}
	start := 0
	if _, ok := t.players[t.buttonUserID]; ok {
		start = indexOf(ordered, t.buttonUserID) + 1
	}
	for offset := 0; offset < len(ordered); offset++ {
		candidate := ordered[(start+offset)%len(ordered)]
		if candidate.IsBusted {
			continue
		}
		t.buttonUserID = candidate.UserID
		return
	}
	t.buttonUserID = ordered[start%len(ordered)].UserID
}

// postBlindsLocked collects antes and blinds and picks the first actor.
// Heads-up the button posts the small blind and acts first preflop; with
// three or more players the blinds sit clockwise from the button and the
// player after the big blind opens.
func (t *Table) postBlindsLocked() {
	ordered := t.dealtPlayersLocked()
	if len(ordered) < 2 {
		t.setActiveUserLocked(t.buttonUserID)
		return
	}

	buttonIdx := indexOf(ordered, t.buttonUserID)
	total := len(ordered)
	var smallIdx, bigIdx, firstIdx int
	if total == 2 {
		smallIdx = buttonIdx
		bigIdx = (buttonIdx + 1) % total
		firstIdx = smallIdx
	} else {
		smallIdx = (buttonIdx + 1) % total
		bigIdx = (smallIdx + 1) % total
		firstIdx = (bigIdx + 1) % total
	}

	for _, p := range ordered {
		p.IsSmallBlind = false
		p.IsBigBlind = false
		p.BlindAmount = 0
	}

	if t.cfg.Ante > 0 {
		t.postAntesLocked(ordered)
	}

	small := ordered[smallIdx]
	big := ordered[bigIdx]
	sbAmount := t.deductStackLocked(small, t.cfg.SmallBlind)
	bbAmount := t.deductStackLocked(big, t.cfg.BigBlind)
	small.IsSmallBlind = true
	big.IsBigBlind = true
	small.BlindAmount = sbAmount
	big.BlindAmount = bbAmount

	if sbAmount > 0 {
		t.appendActionEventLocked(small.UserID, ActionSmallBlind, sbAmount)
	}
	if bbAmount > 0 {
		t.appendActionEventLocked(big.UserID, ActionBigBlind, bbAmount)
	}

	// A short all-in blind sets the bet to what was actually posted.
	t.currentBet = t.playerBets[big.UserID]
	t.lastRaise = t.cfg.BigBlind

	for offset := 0; offset < total; offset++ {
		candidate := ordered[(firstIdx+offset)%total]
		if !candidate.CanAct() {
			continue
		}
		t.setActiveUserLocked(candidate.UserID)
		return
	}
	t.setActiveUserLocked("")
}

// postAntesLocked moves antes straight into the pot. Antes count toward
// hand contributions for side-pot purposes but never toward the street
// bet, so they do not affect the amount to call.
func (t *Table) postAntesLocked(ordered []*Player) {
	for _, p := range ordered {
		if p.Stack <= 0 {
			continue
		}
		ante := min(t.cfg.Ante, p.Stack)
		p.Stack -= ante
		if p.Stack == 0 {
			p.IsAllIn = true
		}
		t.pot += ante
		t.handContributions[p.UserID] += ante
		t.appendActionEventLocked(p.UserID, ActionAnte, ante)
	}
}

func (t *Table) dealHoleCardsLocked() {
	for _, p := range t.orderedPlayersLocked() {
		if p.IsBusted {
			continue
		}
		for len(p.Cards) < 2 {
			card, ok := t.deck.Deal()
			if !ok {
				return
			}
			p.Cards = append(p.Cards, card)
		}
	}
}

func (t *Table) dealCommunityLocked(count int) {
	for i := 0; i < count; i++ {
		card, ok := t.deck.Deal()
		if !ok {
			return
		}
		t.communityCards = append(t.communityCards, card)
	}
}

// collectBetsLocked sweeps street bets into the central pot.
func (t *Table) collectBetsLocked() {
	for _, amount := range t.playerBets {
		t.pot += amount
	}
	t.playerBets = make(map[string]int)
}

// advanceStageLocked moves to the next street, dealing community cards and
// resetting street state. Entering showdown resolves the hand and queues
// the next one.
func (t *Table) advanceStageLocked() {
	if t.stage == StageShowdown {
		return
	}
	next := t.stage.Next()
	t.stage = next
	switch next {
	case StageFlop:
		t.dealCommunityLocked(3)
	case StageTurn, StageRiver:
		t.dealCommunityLocked(1)
	}

	t.collectBetsLocked()
	t.currentBet = 0
	t.lastRaise = t.cfg.BigBlind
	for _, p := range t.players {
		if p.HasFolded {
			continue
		}
		p.HasActed = p.IsAllIn
	}

	if next == StageShowdown {
		t.activeUserID = ""
		t.cancelActionTimerLocked()
		t.resolveShowdownLocked()
		t.scheduleNewHandLocked()
		return
	}
	t.setActiveUserLocked(t.firstToActPostflopLocked())
}

// maybeAutoShowdownLocked runs the board out when the pot is still
// contested but nobody left in the hand can act. A single player left is
// not a showdown, they win on the fold instead.
func (t *Table) maybeAutoShowdownLocked() {
	if t.stage == StageShowdown || t.pendingAutoShowdown {
		return
	}
	if len(t.activePlayersLocked()) < 2 {
		return
	}
	if len(t.actionablePlayersLocked()) > 0 {
		return
	}
	t.pendingAutoShowdown = true
	t.runOutBoardLocked()
}

func (t *Table) runOutBoardLocked() {
	for t.stage != StageShowdown {
		t.advanceStageLocked()
	}
}

// maybeTriggerRoundCompletionLocked is called after every state change
// that could end a betting round: it ends the hand when at most one player
// remains, otherwise schedules the next street once betting is settled.
func (t *Table) maybeTriggerRoundCompletionLocked() {
	active := t.activePlayersLocked()
	if len(active) <= 1 {
		if t.stage != StageShowdown && t.handInProgressLocked() {
			t.finishFoldWinLocked(active)
		}
		t.scheduleNewHandLocked()
		return
	}
	if t.stage == StageShowdown {
		t.scheduleNewHandLocked()
		return
	}
	if t.bettingRoundCompleteLocked(active) {
		t.scheduleRoundTransitionLocked()
	} else {
		t.cancelRoundTransitionLocked()
	}
}

// finishFoldWinLocked awards the whole pot to the last player in the hand
// without a showdown.
func (t *Table) finishFoldWinLocked(active []*Player) {
	t.collectBetsLocked()
	potAmount := t.pot
	var winner *Player
	if len(active) > 0 {
		winner = active[0]
	}
	if winner != nil {
		winner.Stack += potAmount
		t.appendSystemEventLocked(winner.DisplayName + " wins the pot")
		t.broadcastMessageLocked(HandCompleteMessage{
			Type:         MessageTypeHandComplete,
			Winners:      []string{winner.UserID},
			PotAmount:    potAmount,
			PotPerWinner: potAmount,
			WinType:      WinTypeFold,
		})
		t.logger.Info("hand won uncontested", "user", winner.UserID, "pot", potAmount)
	} else {
		t.appendSystemEventLocked("Hand ended")
	}

	t.pot = 0
	t.handContributions = make(map[string]int)
	t.playerBets = make(map[string]int)
	t.pots = nil
	t.sidePotSummary = nil
	t.stage = StageShowdown
	t.activeUserID = ""
	t.cancelActionTimerLocked()

	if winner != nil && t.onHandComplete != nil {
		result := HandResult{
			TableID:   t.id,
			Winners:   []string{winner.UserID},
			PotAmount: potAmount,
			WinType:   WinTypeFold,
		}
		go t.onHandComplete(result)
	}
}

// bettingRoundCompleteLocked reports whether the street is finished: bets
// settled, everyone who can still act has acted, and preflop the big blind
// got their option when nobody raised.
func (t *Table) bettingRoundCompleteLocked(active []*Player) bool {
	if len(active) == 0 {
		return true
	}
	if !t.allBetsSettledLocked(active) {
		return false
	}
	for _, p := range active {
		if !p.CanAct() {
			continue
		}
		if !p.HasActed {
			return false
		}
	}
	if t.stage == StagePreflop {
		bb := t.bigBlindPlayerLocked()
		if bb != nil && bb.CanAct() && bb.BlindAmount >= t.cfg.BigBlind &&
			t.currentBet <= t.cfg.BigBlind && !bb.HasActed {
			return false
		}
	}
	return true
}

func (t *Table) allBetsSettledLocked(active []*Player) bool {
	if len(active) == 0 {
		return false
	}
	for _, p := range active {
		if p.IsAllIn || p.Stack == 0 {
			continue
		}
		if t.playerBets[p.UserID] < t.currentBet {
			return false
		}
	}
	return true
}

// resolveShowdownLocked builds the pots, evaluates every live hand and
// pays each pot to its best eligible hand. Ties split evenly with any odd
// chip going to the first winner clockwise from the button. Hole cards
// are saved for the show/muck prompt, then cleared.
func (t *Table) resolveShowdownLocked() {
	if t.stage != StageShowdown {
		return
	}
	t.buildPotsLocked()

	evaluations := make(map[string]evaluator.Value)
	var contenders []*Player
	for _, p := range t.orderedPlayersLocked() {
		if p.HasFolded || len(p.Cards) == 0 {
			continue
		}
		contenders = append(contenders, p)
		hand := make([]deck.Card, 0, len(p.Cards)+len(t.communityCards))
		hand = append(hand, p.Cards...)
		hand = append(hand, t.communityCards...)
		evaluations[p.UserID] = evaluator.Evaluate(hand)
	}

	winnings := make(map[string]int)
	seenWinner := make(map[string]bool)
	var winnerIDs []string
	totalPot := 0
	for _, pot := range t.pots {
		totalPot += pot.Amount
	}

	for _, pot := range t.pots {
		var eligible []string
		for _, uid := range pot.Eligible {
			if _, ok := evaluations[uid]; ok {
				eligible = append(eligible, uid)
			}
		}
		if len(eligible) == 0 {
			continue
		}
		best := eligible[0]
		for _, uid := range eligible[1:] {
			if evaluations[uid].Compare(evaluations[best]) > 0 {
				best = uid
			}
		}
		var winners []string
		for _, uid := range eligible {
			if evaluations[uid].Compare(evaluations[best]) == 0 {
				winners = append(winners, uid)
			}
		}
		for _, uid := range winners {
			if !seenWinner[uid] {
				seenWinner[uid] = true
				winnerIDs = append(winnerIDs, uid)
			}
		}
		share := pot.Amount / len(winners)
		for _, uid := range winners {
			winnings[uid] += share
		}
		if remainder := pot.Amount - share*len(winners); remainder > 0 {
			winnings[winners[0]] += remainder
		}
	}

	for uid, amount := range winnings {
		if p, ok := t.players[uid]; ok {
			p.Stack += amount
		}
	}
	t.pot = 0

	t.showdownSavedCards = make(map[string][]deck.Card)
	for _, p := range t.players {
		if len(p.Cards) > 0 {
			saved := make([]deck.Card, len(p.Cards))
			copy(saved, p.Cards)
			t.showdownSavedCards[p.UserID] = saved
		}
	}

	var busted []*Player
	for _, p := range t.orderedPlayersLocked() {
		p.Cards = nil
		if p.Stack <= 0 && !p.IsBusted {
			p.IsBusted = true
			busted = append(busted, p)
		}
	}
	// When one hand busts several players, the shorter starting stack
	// finishes behind the larger one.
	sort.SliceStable(busted, func(i, j int) bool {
		return t.handContributions[busted[i].UserID] < t.handContributions[busted[j].UserID]
	})
	t.handContributions = make(map[string]int)
	t.playerBets = make(map[string]int)

	bustedIDs := make([]string, 0, len(busted))
	for _, p := range busted {
		t.appendEventLocked(Event{
			Type:      EventTypeSystem,
			Message:   p.DisplayName + " busted out",
			UserID:    p.UserID,
			Timestamp: t.nowMs(),
		})
		bustedIDs = append(bustedIDs, p.UserID)
		if t.cfg.Rules == RulesCash {
			t.scheduleBustoutLocked(p)
		}
	}

	if len(winnerIDs) > 0 && totalPot > 0 {
		t.broadcastMessageLocked(HandCompleteMessage{
			Type:         MessageTypeHandComplete,
			Winners:      winnerIDs,
			PotAmount:    totalPot,
			PotPerWinner: totalPot / len(winnerIDs),
			WinType:      WinTypeShowdown,
		})
		t.logger.Info("showdown resolved", "winners", winnerIDs, "pot", totalPot)
	}

	var losers []ShowdownLoser
	for _, p := range contenders {
		if seenWinner[p.UserID] {
			continue
		}
		// Cards stay hidden until the player opts to show them.
		losers = append(losers, ShowdownLoser{
			PlayerID:  p.UserID,
			Nickname:  p.DisplayName,
			Cards:     make([]deck.Card, 0),
			ShowCards: false,
		})
	}
	if len(losers) > 0 {
		winnerID := ""
		if len(winnerIDs) > 0 {
			winnerID = winnerIDs[0]
		}
		t.broadcastMessageLocked(ShowdownCompleteMessage{
			Type:     MessageTypeShowdownComplete,
			WinnerID: winnerID,
			Winners:  winnerIDs,
			Losers:   losers,
		})
	}

	if t.onHandComplete != nil && (len(winnerIDs) > 0 || len(bustedIDs) > 0) {
		result := HandResult{
			TableID:   t.id,
			Winners:   winnerIDs,
			PotAmount: totalPot,
			WinType:   WinTypeShowdown,
			Busted:    bustedIDs,
		}
		go t.onHandComplete(result)
	}
}

// handInProgressLocked reports whether cards or chips are in flight for
// the current hand.
func (t *Table) handInProgressLocked() bool {
	if t.stage == StageShowdown {
		return false
	}
	if len(t.communityCards) > 0 || t.pot > 0 {
		return true
	}
	for _, p := range t.players {
		if len(p.Cards) > 0 {
			return true
		}
	}
	for _, amount := range t.playerBets {
		if amount > 0 {
			return true
		}
	}
	return false
}

func (t *Table) shouldAutoStartLocked() bool {
	if t.livePlayersLocked() < 2 || t.stage != StagePreflop || len(t.communityCards) > 0 {
		return false
	}
	for _, p := range t.players {
		if len(p.Cards) > 0 {
			return false
		}
	}
	return true
}

func (t *Table) advanceActiveLocked() {
	ordered := t.orderedPlayersLocked()
	if len(ordered) == 0 {
		t.setActiveUserLocked("")
		return
	}
	if _, ok := t.players[t.activeUserID]; !ok {
		t.setActiveUserLocked(ordered[0].UserID)
		return
	}
	start := indexOf(ordered, t.activeUserID)
	for offset := 1; offset <= len(ordered); offset++ {
		candidate := ordered[(start+offset)%len(ordered)]
		if !candidate.CanAct() {
			continue
		}
		t.setActiveUserLocked(candidate.UserID)
		return
	}
	// Nobody can act; keep the seat pointer but stop the clock.
	t.activeUserID = ordered[start].UserID
	t.cancelActionTimerLocked()
}

// nextFromSeatLocked returns the first player clockwise after the given
// seat for whom keep returns true, wrapping around the table. The seat
// itself does not need to be occupied.
func (t *Table) nextFromSeatLocked(seat int, keep func(*Player) bool) *Player {
	ordered := t.orderedPlayersLocked()
	for _, p := range ordered {
		if p.Seat > seat && keep(p) {
			return p
		}
	}
	for _, p := range ordered {
		if keep(p) {
			return p
		}
	}
	return nil
}

func (t *Table) firstToActPostflopLocked() string {
	ordered := t.orderedPlayersLocked()
	if len(ordered) == 0 {
		return ""
	}
	buttonIdx := indexOf(ordered, t.buttonUserID)
	for offset := 1; offset <= len(ordered); offset++ {
		candidate := ordered[(buttonIdx+offset)%len(ordered)]
		if candidate.CanAct() {
			return candidate.UserID
		}
	}
	return ""
}

func (t *Table) setActiveUserLocked(userID string) {
	t.activeUserID = userID
	t.restartActionTimerLocked()
}

func (t *Table) restartActionTimerLocked() {
	t.cancelActionTimerLocked()
	activeID := t.activeUserID
	if activeID == "" || t.stage == StageShowdown {
		return
	}
	player, ok := t.players[activeID]
	if !ok || player.HasFolded {
		return
	}
	deadline := t.clock.Now().Add(t.cfg.ActionTimeout).UnixMilli()
	t.turnDeadlineMs = deadline
	t.actionGen++
	gen := t.actionGen
	t.actionTimer = t.clock.AfterFunc(t.cfg.ActionTimeout, func() {
		t.autoFoldAfterTimeout(gen, activeID, deadline)
	})
}

func (t *Table) cancelActionTimerLocked() {
	if t.actionTimer != nil {
		t.actionTimer.Stop()
		t.actionTimer = nil
	}
	t.actionGen++
	t.turnDeadlineMs = 0
}

// autoFoldAfterTimeout folds the active player when their clock runs out.
// The generation and deadline guards make a stale timer a no-op.
func (t *Table) autoFoldAfterTimeout(gen uint64, userID string, deadlineMs int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.actionGen || t.activeUserID != userID || t.turnDeadlineMs != deadlineMs {
		return
	}
	player, ok := t.players[userID]
	if !ok || player.HasFolded {
		return
	}
	player.HasFolded = true
	t.recordActionLocked(userID, false)
	t.appendEventLocked(Event{
		Type:      EventTypeAction,
		UserID:    userID,
		Action:    ActionAutoFold,
		Timestamp: t.nowMs(),
	})
	t.logger.Info("player timed out, auto-folding", "user", userID)
	t.advanceActiveLocked()
	t.maybeTriggerRoundCompletionLocked()
	t.broadcastStateLocked()
}

func (t *Table) scheduleRoundTransitionLocked() {
	if t.roundTimer != nil || t.stage == StageShowdown {
		return
	}
	t.roundGen++
	gen := t.roundGen
	stageSnapshot := t.stage
	t.roundTimer = t.clock.AfterFunc(t.cfg.RoundDelay, func() {
		t.advanceAfterDelay(gen, stageSnapshot)
	})
}

func (t *Table) cancelRoundTransitionLocked() {
	if t.roundTimer != nil {
		t.roundTimer.Stop()
		t.roundTimer = nil
	}
	t.roundGen++
}

func (t *Table) advanceAfterDelay(gen uint64, stageSnapshot Stage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.roundGen || t.stage != stageSnapshot {
		return
	}
	t.roundTimer = nil
	t.advanceStageLocked()
	t.appendSystemEventLocked("Stage -> " + string(t.stage))
	t.maybeTriggerRoundCompletionLocked()
	t.broadcastStateLocked()
}

func (t *Table) scheduleNewHandLocked() {
	if t.newHandTimer != nil {
		return
	}
	if t.stage != StageShowdown || t.livePlayersLocked() < 2 {
		return
	}
	t.newHandGen++
	gen := t.newHandGen
	t.newHandTimer = t.clock.AfterFunc(t.cfg.ShowdownDelay, func() {
		t.startNewHandAfterDelay(gen)
	})
}

func (t *Table) cancelNewHandLocked() {
	if t.newHandTimer != nil {
		t.newHandTimer.Stop()
		t.newHandTimer = nil
	}
	t.newHandGen++
}

func (t *Table) startNewHandAfterDelay(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.newHandGen {
		return
	}
	t.newHandTimer = nil
	if t.stage != StageShowdown || t.livePlayersLocked() < 2 {
		return
	}
	t.resetRoundLocked()
	t.appendSystemEventLocked("New hand started")
	t.broadcastStateLocked()
}

// scheduleBustoutLocked starts the auto-kick countdown for a busted player
// on a cash table. A re-buy cancels it.
func (t *Table) scheduleBustoutLocked(p *Player) {
	t.cancelBustoutLocked(p.UserID)
	p.BustDeadlineMs = t.clock.Now().Add(t.cfg.BustoutTimeout).UnixMilli()
	userID := p.UserID
	t.bustoutTimers[userID] = t.clock.AfterFunc(t.cfg.BustoutTimeout, func() {
		t.mu.Lock()
		player, ok := t.players[userID]
		shouldRemove := ok && player.IsBusted
		t.mu.Unlock()
		if shouldRemove {
			t.logger.Info("removing busted player", "user", userID)
			t.RemovePlayer(userID)
		}
	})
}

func (t *Table) cancelBustoutLocked(userID string) {
	if timer, ok := t.bustoutTimers[userID]; ok {
		timer.Stop()
		delete(t.bustoutTimers, userID)
	}
}

func (t *Table) orderedPlayersLocked() []*Player {
	ordered := make([]*Player, 0, len(t.players))
	for _, p := range t.players {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Seat < ordered[j].Seat })
	return ordered
}

func (t *Table) activePlayersLocked() []*Player {
	var active []*Player
	for _, p := range t.orderedPlayersLocked() {
		if p.InHand() {
			active = append(active, p)
		}
	}
	return active
}

func (t *Table) actionablePlayersLocked() []*Player {
	var actionable []*Player
	for _, p := range t.orderedPlayersLocked() {
		if p.CanAct() {
			actionable = append(actionable, p)
		}
	}
	return actionable
}

// dealtPlayersLocked returns seat-ordered players who take part in the
// current hand, excluding busted players waiting on a re-buy or kick.
func (t *Table) dealtPlayersLocked() []*Player {
	var dealt []*Player
	for _, p := range t.orderedPlayersLocked() {
		if p.IsBusted {
			continue
		}
		dealt = append(dealt, p)
	}
	return dealt
}

// livePlayersLocked counts players who can be dealt into the next hand.
func (t *Table) livePlayersLocked() int {
	live := 0
	for _, p := range t.players {
		if p.Stack > 0 {
			live++
		}
	}
	return live
}

func (t *Table) bigBlindPlayerLocked() *Player {
	for _, p := range t.players {
		if p.IsBigBlind {
			return p
		}
	}
	return nil
}

func (t *Table) minRaiseIncrementLocked() int {
	return max(t.lastRaise, t.cfg.BigBlind)
}

func (t *Table) minRaiseTotalLocked() int {
	increment := t.minRaiseIncrementLocked()
	if t.currentBet <= 0 {
		return increment
	}
	return t.currentBet + increment
}

func (t *Table) nextSeatLocked() int {
	taken := make(map[int]bool, len(t.players))
	for _, p := range t.players {
		taken[p.Seat] = true
	}
	for seat := 1; seat <= t.cfg.MaxPlayers; seat++ {
		if !taken[seat] {
			return seat
		}
	}
	return len(t.players) + 1
}

// randomSeatLocked picks a uniformly random free seat. Tournament tables
// use it so table draws do not cluster players by join order.
func (t *Table) randomSeatLocked() int {
	taken := make(map[int]bool, len(t.players))
	for _, p := range t.players {
		taken[p.Seat] = true
	}
	var free []int
	for seat := 1; seat <= t.cfg.MaxPlayers; seat++ {
		if !taken[seat] {
			free = append(free, seat)
		}
	}
	if len(free) == 0 {
		return len(t.players) + 1
	}
	return free[t.rng.IntN(len(free))]
}

func (t *Table) nowMs() int64 {
	return t.clock.Now().UnixMilli()
}

func indexOf(ordered []*Player, userID string) int {
	for i, p := range ordered {
		if p.UserID == userID {
			return i
		}
	}
	return 0
}
