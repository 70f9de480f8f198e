package lobby

import (
	"context"
	"errors"
	"fmt"
	"io"
	rand "math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/telepoker/telepoker/internal/randutil"
)

var (
	// ErrNotFound is returned for unknown lobby codes.
	ErrNotFound = errors.New("lobby not found")
	// ErrExpired is returned for lobbies past their 24 hour lifetime.
	ErrExpired = errors.New("lobby has expired")
	// ErrAlreadyStarted is returned when joining or starting a lobby whose
	// game is already underway.
	ErrAlreadyStarted = errors.New("game has already started")
	// ErrFull is returned when every seat is taken.
	ErrFull = errors.New("lobby is full")
	// ErrNotInLobby is returned for operations on players who never joined.
	ErrNotInLobby = errors.New("player is not in the lobby")
	// ErrNotHost is returned when someone other than the host starts the game.
	ErrNotHost = errors.New("only the host can start the game")
	// ErrTooFewPlayers is returned when starting with a single player.
	ErrTooFewPlayers = errors.New("need at least 2 players")
	// ErrMaxPlayers is returned for table sizes outside 2..9.
	ErrMaxPlayers = errors.New("max players must be between 2 and 9")
	// ErrBuyIn is returned for buy-ins under the table minimum.
	ErrBuyIn = errors.New("buy-in must be at least 10")
)

// Invite codes avoid characters that read ambiguously in chat messages
// (0/O, 1/I/L).
const (
	codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

const (
	defaultBuyIn      = 100
	defaultMaxPlayers = 6
	defaultGameMode   = "cash"
	sweepEvery        = 10 * time.Minute
)

// CreateParams are the host-chosen settings for a new lobby. Zero values
// fall back to a 100 chip buy-in, six seats and a cash game named after
// the host.
type CreateParams struct {
	Name       string
	BuyIn      int
	MaxPlayers int
	GameMode   string
}

// Options configures a registry. Zero-value fields fall back to a real
// clock, a discard logger and crypto-seeded RNG.
type Options struct {
	Clock  quartz.Clock
	Logger *log.Logger
	RNG    *rand.Rand
}

// Registry is the directory of live lobbies. One mutex guards every lobby;
// operations are quick map-and-field updates so contention is not a
// concern at lobby scale.
type Registry struct {
	mu     sync.Mutex
	byID   map[string]*lobby
	byCode map[string]string

	clock  quartz.Clock
	logger *log.Logger
	rng    *rand.Rand
}

// NewRegistry creates an empty lobby registry.
func NewRegistry(opts Options) *Registry {
	if opts.Clock == nil {
		opts.Clock = quartz.NewReal()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.RNG == nil {
		opts.RNG = randutil.NewCrypto()
	}
	return &Registry{
		byID:   make(map[string]*lobby),
		byCode: make(map[string]string),
		clock:  opts.Clock,
		logger: opts.Logger.WithPrefix("lobby"),
		rng:    opts.RNG,
	}
}

// Create opens a new lobby with the host seated at seat 1 and ready.
func (r *Registry) Create(hostID, username, firstName string, params CreateParams) (View, error) {
	if params.BuyIn == 0 {
		params.BuyIn = defaultBuyIn
	}
	if params.MaxPlayers == 0 {
		params.MaxPlayers = defaultMaxPlayers
	}
	if params.GameMode == "" {
		params.GameMode = defaultGameMode
	}
	if params.Name == "" {
		params.Name = firstName + "'s Game"
	}
	if params.MaxPlayers < 2 || params.MaxPlayers > 9 {
		return View{}, ErrMaxPlayers
	}
	if params.BuyIn < 10 {
		return View{}, ErrBuyIn
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.generateCodeLocked()
	if err != nil {
		return View{}, err
	}
	now := r.clock.Now()
	l := &lobby{
		id:         uuid.NewString(),
		code:       code,
		hostID:     hostID,
		name:       params.Name,
		maxPlayers: params.MaxPlayers,
		buyIn:      params.BuyIn,
		gameMode:   params.GameMode,
		status:     StatusWaiting,
		createdAt:  now,
		expiresAt:  now.Add(lifetime),
		players: map[string]*member{
			hostID: {
				userID:    hostID,
				username:  username,
				firstName: firstName,
				seat:      1,
				joinedAt:  now,
				ready:     true,
			},
		},
	}
	r.byID[l.id] = l
	r.byCode[code] = l.id
	r.logger.Info("lobby created", "code", code, "host", hostID, "seats", l.maxPlayers)
	return l.view(), nil
}

// Get returns the lobby with the given code. Codes are case-insensitive.
func (r *Registry) Get(code string) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return View{}, err
	}
	if l.expired(r.clock.Now()) {
		return View{}, ErrExpired
	}
	return l.view(), nil
}

// Join seats a player in the lobby. Joining a lobby you are already in is
// a no-op that returns the current view.
func (r *Registry) Join(code, userID, username, firstName string) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return View{}, err
	}
	if l.expired(r.clock.Now()) {
		return View{}, ErrExpired
	}
	if l.status != StatusWaiting {
		return View{}, ErrAlreadyStarted
	}
	if _, ok := l.players[userID]; ok {
		return l.view(), nil
	}
	if l.full() {
		return View{}, ErrFull
	}

	seat := l.nextSeat()
	if seat == 0 {
		return View{}, ErrFull
	}
	l.players[userID] = &member{
		userID:    userID,
		username:  username,
		firstName: firstName,
		seat:      seat,
		joinedAt:  r.clock.Now(),
	}
	r.logger.Info("player joined", "code", l.code, "user", userID, "seat", seat)
	return l.view(), nil
}

// Leave removes a player. When the host leaves the whole lobby is deleted;
// the returned flag tells the caller whether that happened.
func (r *Registry) Leave(code, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return false, err
	}
	if _, ok := l.players[userID]; !ok {
		return false, ErrNotInLobby
	}
	if userID == l.hostID {
		r.dropLocked(l)
		r.logger.Info("lobby deleted, host left", "code", l.code)
		return true, nil
	}
	delete(l.players, userID)
	r.logger.Info("player left", "code", l.code, "user", userID)
	return false, nil
}

// SetReady flips a player's ready flag and returns the updated view.
func (r *Registry) SetReady(code, userID string, ready bool) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return View{}, err
	}
	m, ok := l.players[userID]
	if !ok {
		return View{}, ErrNotInLobby
	}
	m.ready = ready
	return l.view(), nil
}

// Start moves the lobby to playing and mints the game session ID the
// table will be created under. Only the host may start, and only with at
// least two seated players.
func (r *Registry) Start(code, hostID string) (View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return View{}, err
	}
	if l.hostID != hostID {
		return View{}, ErrNotHost
	}
	if len(l.players) < 2 {
		return View{}, ErrTooFewPlayers
	}
	if l.status != StatusWaiting {
		return View{}, ErrAlreadyStarted
	}

	l.status = StatusPlaying
	l.startedAt = r.clock.Now()
	l.gameSessionID = fmt.Sprintf("game_%s_%d", l.code, l.startedAt.Unix())
	r.logger.Info("game started", "code", l.code, "session", l.gameSessionID, "players", len(l.players))
	return l.view(), nil
}

// FinishGame marks a playing lobby finished so the sweeper reclaims it.
func (r *Registry) FinishGame(code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, err := r.lookupLocked(code)
	if err != nil {
		return err
	}
	l.status = StatusFinished
	l.finishedAt = r.clock.Now()
	r.logger.Info("game finished", "code", l.code)
	return nil
}

// ByPlayer returns every unexpired lobby the player is seated in.
func (r *Registry) ByPlayer(userID string) []View {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	views := make([]View, 0)
	for _, l := range r.byID {
		if l.expired(now) {
			continue
		}
		if _, ok := l.players[userID]; ok {
			views = append(views, l.view())
		}
	}
	return views
}

// Count returns the number of live lobbies.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// Sweep drops expired and finished lobbies and returns how many went.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	removed := 0
	for _, l := range r.byID {
		if l.expired(now) || l.status == StatusFinished {
			r.dropLocked(l)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Info("swept lobbies", "removed", removed, "remaining", len(r.byID))
	}
	return removed
}

// Run sweeps on a fixed interval until the context is cancelled.
func (r *Registry) Run(ctx context.Context) error {
	err := r.clock.TickerFunc(ctx, sweepEvery, func() error {
		r.Sweep()
		return nil
	}, "lobby-sweep").Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (r *Registry) lookupLocked(code string) (*lobby, error) {
	id, ok := r.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, ErrNotFound
	}
	l, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return l, nil
}

func (r *Registry) dropLocked(l *lobby) {
	delete(r.byID, l.id)
	delete(r.byCode, l.code)
}

func (r *Registry) generateCodeLocked() (string, error) {
	for attempt := 0; attempt < 100; attempt++ {
		buf := make([]byte, codeLength)
		for i := range buf {
			buf[i] = codeAlphabet[r.rng.IntN(len(codeAlphabet))]
		}
		code := string(buf)
		if _, taken := r.byCode[code]; !taken {
			return code, nil
		}
	}
	return "", errors.New("could not generate a unique lobby code")
}
