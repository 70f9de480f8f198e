package tournament

import (
	"errors"
	"fmt"
	rand "math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/telepoker/telepoker/internal/game"
)

var (
	// ErrNotFound is returned for unknown tournament IDs.
	ErrNotFound = errors.New("tournament not found")
	// ErrRegistrationClosed is returned when the registration window is over.
	ErrRegistrationClosed = errors.New("registration is closed")
	// ErrTournamentFull is returned when the field is at capacity.
	ErrTournamentFull = errors.New("tournament is full")
	// ErrNotRegistered is returned when unregistering a player who never
	// registered.
	ErrNotRegistered = errors.New("player is not registered")
	// ErrAlreadyStarted is returned when starting or cancelling a tournament
	// that already left the registering state.
	ErrAlreadyStarted = errors.New("tournament already started")
	// ErrTooFewPlayers is returned when starting below the minimum field.
	ErrTooFewPlayers = errors.New("not enough players registered")
)

// PayoutFunc receives every credit a tournament issues: finishing payouts,
// bounty cash and buy-in refunds. It is called with the tournament lock
// held and must not call back into the tournament.
type PayoutFunc func(userID string, amount int, reason string)

// Credit reasons passed to PayoutFunc.
const (
	ReasonPayout = "payout"
	ReasonBounty = "bounty"
	ReasonRefund = "refund"
)

// Tournament is a single multi-table event: a registration window, a field
// of players, the tables they play on and the blind clock that drives
// stakes up. Tables live in the shared game manager so websocket clients
// attach to them the same way they attach to cash tables.
//
// One mutex guards all state. The blind clock and the hand-completion hook
// re-acquire it; lock ordering is always tournament before table.
type Tournament struct {
	mu sync.Mutex

	id       string
	settings Settings
	levels   []Level

	status         Status
	currentLevel   int
	levelStartedAt time.Time
	createdAt      time.Time
	startedAt      time.Time
	finishedAt     time.Time

	prizePool int
	payouts   map[int]int
	players   map[string]*Player
	positions map[int]string

	tableSeq int
	tableIDs []string

	tables   *game.Manager
	clock    quartz.Clock
	logger   *log.Logger
	rng      *rand.Rand
	onPayout PayoutFunc

	levelGen   uint64
	levelTimer *quartz.Timer
}

func newTournament(id string, settings Settings, tables *game.Manager, clock quartz.Clock, logger *log.Logger, rng *rand.Rand, onPayout PayoutFunc) *Tournament {
	settings = settings.withDefaults()
	levels, _ := StructureByName(settings.Structure)
	return &Tournament{
		id:        id,
		settings:  settings,
		levels:    levels,
		status:    StatusRegistering,
		createdAt: clock.Now(),
		payouts:   make(map[int]int),
		players:   make(map[string]*Player),
		positions: make(map[int]string),
		tables:    tables,
		clock:     clock,
		logger:    logger.With("tournament", id),
		rng:       rng,
		onPayout:  onPayout,
	}
}

// ID returns the tournament identifier.
func (t *Tournament) ID() string { return t.id }

// Mode returns the tournament variant.
func (t *Tournament) Mode() Mode { return t.settings.Mode }

// Name returns the display name.
func (t *Tournament) Name() string { return t.settings.Name }

// Status returns the current lifecycle state.
func (t *Tournament) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Settings returns the (defaulted) settings the tournament was created with.
func (t *Tournament) Settings() Settings { return t.settings }

// HasPlayer reports whether userID is registered.
func (t *Tournament) HasPlayer(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.players[userID]
	return ok
}

// Register enters a player into the field and adds their buy-in to the
// prize pool. Registering twice is a no-op. During late registration the
// player is seated immediately with a full starting stack.
func (t *Tournament) Register(userID, username, displayName string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.status.Open() {
		return ErrRegistrationClosed
	}
	if _, ok := t.players[userID]; ok {
		return nil
	}
	if len(t.players) >= t.settings.MaxPlayers {
		return ErrTournamentFull
	}
	if displayName == "" {
		displayName = username
	}

	p := &Player{
		UserID:         userID,
		Username:       username,
		DisplayName:    displayName,
		Chips:          t.settings.StartingChips,
		RegisteredAtMs: t.clock.Now().UnixMilli(),
	}
	if t.settings.Mode == ModeBounty {
		// The head is carved from the rake-netted buy-in so the heads and
		// the ladder together pay out exactly the collected pool.
		bounty := t.settings.BuyIn * (100 - t.settings.RakePercent) / 100 * t.settings.BountyPercent / 100
		p.Bounty = bounty
		p.StartingBounty = bounty
	}
	t.players[userID] = p
	t.prizePool += t.settings.BuyIn
	t.logger.Info("player registered", "user", userID, "field", len(t.players), "prizePool", t.prizePool)

	if t.status == StatusLateReg {
		t.seatLateEntrantLocked(p)
		t.payouts = computePayouts(t.settings, t.prizePool, len(t.players))
	}
	if t.settings.Mode == ModeSitAndGo && len(t.players) == t.settings.MaxPlayers {
		return t.startLocked()
	}
	return nil
}

// Unregister withdraws a player before the tournament starts and refunds
// the buy-in through the payout hook.
func (t *Tournament) Unregister(userID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusRegistering {
		return ErrRegistrationClosed
	}
	if _, ok := t.players[userID]; !ok {
		return ErrNotRegistered
	}
	delete(t.players, userID)
	t.prizePool -= t.settings.BuyIn
	t.creditLocked(userID, t.settings.BuyIn, ReasonRefund)
	t.logger.Info("player unregistered", "user", userID, "field", len(t.players))
	return nil
}

// Start launches the tournament: payouts are fixed, the field is drawn
// across tables and the blind clock starts. With late registration levels
// configured the tournament opens in late_reg, otherwise it goes straight
// to running.
func (t *Tournament) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.startLocked()
}

func (t *Tournament) startLocked() error {
	if t.status != StatusRegistering {
		return ErrAlreadyStarted
	}
	if len(t.players) < t.settings.MinPlayers {
		return ErrTooFewPlayers
	}

	now := t.clock.Now()
	t.startedAt = now
	t.levelStartedAt = now
	t.currentLevel = 0
	if t.settings.LateRegLevels > 0 {
		t.status = StatusLateReg
	} else {
		t.status = StatusRunning
	}
	t.payouts = computePayouts(t.settings, t.prizePool, len(t.players))
	t.seatPlayersLocked()
	t.armLevelTimerLocked()
	t.logger.Info("tournament started",
		"mode", t.settings.Mode,
		"players", len(t.players),
		"tables", len(t.tableIDs),
		"prizePool", t.prizePool)
	return nil
}

// Cancel aborts a tournament that never started and refunds every buy-in.
func (t *Tournament) Cancel() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != StatusRegistering {
		return ErrAlreadyStarted
	}
	t.status = StatusCancelled
	t.finishedAt = t.clock.Now()
	for uid := range t.players {
		t.creditLocked(uid, t.settings.BuyIn, ReasonRefund)
	}
	t.prizePool = 0
	t.logger.Info("tournament cancelled", "refunded", len(t.players))
	return nil
}

// seatPlayersLocked draws the field across the minimum number of tables.
// The draw is a shuffle over a sorted ID list so a seeded RNG reproduces
// it exactly.
func (t *Tournament) seatPlayersLocked() {
	ids := make([]string, 0, len(t.players))
	for uid := range t.players {
		ids = append(ids, uid)
	}
	sort.Strings(ids)
	t.rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })

	numTables := (len(ids) + t.settings.PlayersPerTable - 1) / t.settings.PlayersPerTable
	if numTables < 1 {
		numTables = 1
	}
	tables := make([]*game.Table, 0, numTables)
	for i := 0; i < numTables; i++ {
		tables = append(tables, t.createTableLocked())
	}
	for i, uid := range ids {
		tbl := tables[i%numTables]
		p := t.players[uid]
		if err := tbl.SeatPlayer(uid, p.DisplayName, t.settings.StartingChips); err != nil {
			t.logger.Error("seating failed", "user", uid, "table", tbl.ID(), "err", err)
			continue
		}
		p.TableID = tbl.ID()
		p.Chips = t.settings.StartingChips
	}
	for _, tbl := range tables {
		tbl.StartHand()
	}
}

// seatLateEntrantLocked puts a late registration on the table with the
// fewest players, opening a fresh table when every seat is taken.
func (t *Tournament) seatLateEntrantLocked(p *Player) {
	dest := t.fewestWithRoomLocked(nil)
	if dest == nil {
		dest = t.createTableLocked()
	}
	if err := dest.SeatPlayer(p.UserID, p.DisplayName, t.settings.StartingChips); err != nil {
		t.logger.Error("late seating failed", "user", p.UserID, "table", dest.ID(), "err", err)
		return
	}
	p.TableID = dest.ID()
	t.logger.Info("late entrant seated", "user", p.UserID, "table", dest.ID())
	dest.StartHand()
}

func (t *Tournament) createTableLocked() *game.Table {
	level := levelAt(t.levels, t.currentLevel)
	t.tableSeq++
	id := fmt.Sprintf("%s-table-%d", t.id, t.tableSeq)
	cfg := game.Config{
		SmallBlind:   level.SmallBlind,
		BigBlind:     level.BigBlind,
		Ante:         level.Ante,
		StartBalance: t.settings.StartingChips,
		MaxPlayers:   t.settings.PlayersPerTable,
		Rules:        game.RulesTournament,
		AutoStart:    false,
	}
	tbl := t.tables.Create(id, cfg, t.handleHandResult)
	t.tableIDs = append(t.tableIDs, id)
	return tbl
}

// handleHandResult is the per-table hook: it refreshes chip counts,
// processes bust-outs and keeps the tables balanced. It runs on its own
// goroutine whenever any tournament table finishes a hand.
func (t *Tournament) handleHandResult(res game.HandResult) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.status.Live() {
		return
	}
	if tbl, ok := t.tables.Get(res.TableID); ok {
		for uid, stack := range tbl.PlayerStacks() {
			if p := t.players[uid]; p != nil && !p.Eliminated() {
				p.Chips = stack
			}
		}
	}
	eliminator := ""
	if len(res.Winners) > 0 {
		eliminator = res.Winners[0]
	}
	for _, uid := range res.Busted {
		if !t.status.Live() {
			return
		}
		t.eliminateLocked(uid, eliminator)
	}
	if !t.status.Live() {
		return
	}
	if t.status == StatusFinalTable {
		t.consolidateLocked()
	} else {
		t.rebalanceLocked()
	}
}

// eliminateLocked records a bust-out: finishing position, bounty transfer,
// removal from the table and any payout due. Position is the number of
// players still in before this elimination.
func (t *Tournament) eliminateLocked(userID, eliminatorID string) {
	p := t.players[userID]
	if p == nil || p.Eliminated() {
		return
	}

	remaining := t.remainingLocked()
	p.EliminatedAtMs = t.clock.Now().UnixMilli()
	p.EliminatedBy = eliminatorID
	p.Position = remaining
	p.Chips = 0
	t.positions[remaining] = userID

	if t.settings.Mode == ModeBounty && p.Bounty > 0 && eliminatorID != "" && eliminatorID != userID {
		if hunter := t.players[eliminatorID]; hunter != nil {
			cash := p.Bounty / 2
			hunter.TotalBountyWon += cash
			hunter.Bounty += p.Bounty - cash
			t.creditLocked(eliminatorID, cash, ReasonBounty)
			t.logger.Info("bounty claimed",
				"hunter", eliminatorID,
				"eliminated", userID,
				"cash", cash,
				"newBounty", hunter.Bounty)
		}
	}

	if p.TableID != "" {
		if tbl, ok := t.tables.Get(p.TableID); ok {
			tbl.RemovePlayer(userID)
		}
		p.TableID = ""
	}
	if amount := t.payouts[remaining]; amount > 0 {
		t.creditLocked(userID, amount, ReasonPayout)
	}
	t.logger.Info("player eliminated", "user", userID, "position", remaining, "by", eliminatorID)

	left := remaining - 1
	switch {
	case left <= 1:
		t.finishLocked()
	case left <= t.settings.PlayersPerTable && t.status != StatusFinalTable:
		t.status = StatusFinalTable
		t.logger.Info("final table reached", "players", left)
		t.consolidateLocked()
	}
}

func (t *Tournament) remainingLocked() int {
	n := 0
	for _, p := range t.players {
		if !p.Eliminated() {
			n++
		}
	}
	return n
}

// rebalanceLocked keeps table sizes even: short-handed tables break first,
// then players move off the fullest table until the spread is at most one.
// Only idle tables give up players; a table in the middle of a hand is
// left alone until its next hand completes.
func (t *Tournament) rebalanceLocked() {
	for _, tbl := range t.activeTablesLocked() {
		if len(t.tableIDs) <= 1 {
			return
		}
		if tbl.PlayerCount() < 3 {
			t.closeTableLocked(tbl, nil)
		}
	}
	for {
		active := t.activeTablesLocked()
		if len(active) <= 1 {
			return
		}
		fullest, emptiest := active[0], active[0]
		for _, tbl := range active[1:] {
			if tbl.PlayerCount() > fullest.PlayerCount() {
				fullest = tbl
			}
			if tbl.PlayerCount() < emptiest.PlayerCount() {
				emptiest = tbl
			}
		}
		if fullest.PlayerCount()-emptiest.PlayerCount() <= 1 {
			return
		}
		if fullest.HandInProgress() {
			return
		}
		ids := fullest.PlayerIDs()
		if len(ids) == 0 {
			return
		}
		t.movePlayerLocked(ids[0], fullest, emptiest)
	}
}

// consolidateLocked merges everything onto a single final table. Tables
// still playing a hand are merged when that hand completes.
func (t *Tournament) consolidateLocked() {
	active := t.activeTablesLocked()
	if len(active) <= 1 {
		return
	}
	final := active[0]
	for _, tbl := range active[1:] {
		if tbl.PlayerCount() > final.PlayerCount() {
			final = tbl
		}
	}
	for _, tbl := range active {
		if tbl == final {
			continue
		}
		t.closeTableLocked(tbl, final)
	}
	final.StartHand()
}

// closeTableLocked empties a table into the rest of the field and drops
// it. A nil target sends each player to whichever table has the fewest.
func (t *Tournament) closeTableLocked(tbl *game.Table, target *game.Table) {
	if tbl.HandInProgress() {
		return
	}
	for _, uid := range tbl.PlayerIDs() {
		dest := target
		if dest == nil {
			dest = t.fewestWithRoomLocked(tbl)
		}
		if dest == nil {
			return
		}
		t.movePlayerLocked(uid, tbl, dest)
	}
	if tbl.PlayerCount() == 0 {
		t.dropTableLocked(tbl.ID())
	}
}

func (t *Tournament) movePlayerLocked(userID string, from, to *game.Table) {
	stack, ok := from.RemovePlayer(userID)
	if !ok {
		return
	}
	p := t.players[userID]
	name := userID
	if p != nil {
		name = p.DisplayName
	}
	if err := to.SeatPlayer(userID, name, stack); err != nil {
		from.SeatPlayer(userID, name, stack)
		return
	}
	if p != nil {
		p.TableID = to.ID()
	}
	t.logger.Info("player moved", "user", userID, "from", from.ID(), "to", to.ID(), "stack", stack)
	to.StartHand()
}

// fewestWithRoomLocked returns the active table with the fewest players
// that still has an open seat, excluding the given table.
func (t *Tournament) fewestWithRoomLocked(exclude *game.Table) *game.Table {
	var best *game.Table
	for _, tbl := range t.activeTablesLocked() {
		if tbl == exclude {
			continue
		}
		if tbl.PlayerCount() >= t.settings.PlayersPerTable {
			continue
		}
		if best == nil || tbl.PlayerCount() < best.PlayerCount() {
			best = tbl
		}
	}
	return best
}

func (t *Tournament) dropTableLocked(tableID string) {
	t.tables.Remove(tableID)
	for i, id := range t.tableIDs {
		if id == tableID {
			t.tableIDs = append(t.tableIDs[:i], t.tableIDs[i+1:]...)
			break
		}
	}
	t.logger.Info("table closed", "table", tableID)
}

func (t *Tournament) finishLocked() {
	if t.status == StatusFinished {
		return
	}
	t.status = StatusFinished
	t.finishedAt = t.clock.Now()
	t.stopLevelTimerLocked()

	for _, p := range t.players {
		if p.Eliminated() {
			continue
		}
		p.Position = 1
		p.TableID = ""
		t.positions[1] = p.UserID
		if amount := t.payouts[1]; amount > 0 {
			t.creditLocked(p.UserID, amount, ReasonPayout)
		}
		// The champion cannot be knocked out, so they claim their own head.
		if t.settings.Mode == ModeBounty && p.Bounty > 0 {
			p.TotalBountyWon += p.Bounty
			t.creditLocked(p.UserID, p.Bounty, ReasonBounty)
			p.Bounty = 0
		}
		t.logger.Info("tournament won", "user", p.UserID, "payout", t.payouts[1])
	}
	for _, id := range append([]string(nil), t.tableIDs...) {
		t.tables.Remove(id)
	}
	t.tableIDs = nil
}

// armLevelTimerLocked schedules the next blind increase. The generation
// guard turns a timer that lost a cancellation race into a no-op.
func (t *Tournament) armLevelTimerLocked() {
	level := levelAt(t.levels, t.currentLevel)
	t.levelGen++
	gen := t.levelGen
	t.levelTimer = t.clock.AfterFunc(level.Duration(), func() {
		t.advanceLevel(gen)
	})
}

func (t *Tournament) stopLevelTimerLocked() {
	t.levelGen++
	if t.levelTimer != nil {
		t.levelTimer.Stop()
		t.levelTimer = nil
	}
}

func (t *Tournament) advanceLevel(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gen != t.levelGen || !t.status.Live() {
		return
	}
	t.currentLevel++
	t.levelStartedAt = t.clock.Now()
	if t.status == StatusLateReg && t.currentLevel >= t.settings.LateRegLevels {
		t.status = StatusRunning
		t.logger.Info("late registration closed", "level", t.currentLevel)
	}
	level := levelAt(t.levels, t.currentLevel)
	for _, tbl := range t.activeTablesLocked() {
		tbl.SetStakes(level.SmallBlind, level.BigBlind, level.Ante)
	}
	t.logger.Info("blinds up",
		"level", t.currentLevel+1,
		"sb", level.SmallBlind,
		"bb", level.BigBlind,
		"ante", level.Ante)
	t.armLevelTimerLocked()
}

func (t *Tournament) activeTablesLocked() []*game.Table {
	tables := make([]*game.Table, 0, len(t.tableIDs))
	for _, id := range t.tableIDs {
		if tbl, ok := t.tables.Get(id); ok {
			tables = append(tables, tbl)
		}
	}
	return tables
}

func (t *Tournament) creditLocked(userID string, amount int, reason string) {
	if t.onPayout == nil || amount <= 0 {
		return
	}
	t.onPayout(userID, amount, reason)
}

func (t *Tournament) timeToNextLevelLocked() int {
	if t.startedAt.IsZero() || !t.status.Live() {
		return 0
	}
	level := levelAt(t.levels, t.currentLevel)
	left := level.Duration() - t.clock.Now().Sub(t.levelStartedAt)
	if left < 0 {
		left = 0
	}
	return int(left / time.Second)
}
