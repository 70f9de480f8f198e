package tournament

import (
	"io"
	rand "math/rand/v2"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/telepoker/telepoker/internal/game"
	"github.com/telepoker/telepoker/internal/randutil"
)

// Options configures a controller. Zero-value fields fall back to a real
// clock, a discard logger, crypto-seeded RNG and a private table manager.
type Options struct {
	Tables   *game.Manager
	Clock    quartz.Clock
	Logger   *log.Logger
	RNG      *rand.Rand
	OnPayout PayoutFunc
}

// Controller is the directory of tournaments. It owns creation and lookup;
// per-tournament operations live on Tournament itself.
type Controller struct {
	mu          sync.Mutex
	tournaments map[string]*Tournament

	tables   *game.Manager
	clock    quartz.Clock
	logger   *log.Logger
	rng      *rand.Rand
	onPayout PayoutFunc
}

// NewController creates an empty tournament directory.
func NewController(opts Options) *Controller {
	clock := opts.Clock
	if clock == nil {
		clock = quartz.NewReal()
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	rng := opts.RNG
	if rng == nil {
		rng = randutil.NewCrypto()
	}
	tables := opts.Tables
	if tables == nil {
		tables = game.NewManager(game.Config{}, clock, logger, nil)
	}
	return &Controller{
		tournaments: make(map[string]*Tournament),
		tables:      tables,
		clock:       clock,
		logger:      logger.WithPrefix("tournament"),
		rng:         rng,
		onPayout:    opts.OnPayout,
	}
}

// Create registers a new tournament from the given settings.
func (c *Controller) Create(settings Settings) *Tournament {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := "t-" + uuid.NewString()
	t := newTournament(id, settings, c.tables, c.clock, c.logger, c.rng, c.onPayout)
	c.tournaments[id] = t
	c.logger.Info("tournament created",
		"tournament", id,
		"name", t.settings.Name,
		"mode", t.settings.Mode,
		"buyIn", t.settings.BuyIn)
	return t
}

// CreateSitAndGo creates a single-table tournament that starts itself when
// the last seat fills.
func (c *Controller) CreateSitAndGo(buyIn, playersPerTable int, format SnGFormat) *Tournament {
	return c.Create(SitAndGoSettings(buyIn, playersPerTable, format))
}

// CreateBounty creates a progressive knockout tournament.
func (c *Controller) CreateBounty(name string, buyIn int) *Tournament {
	return c.Create(BountySettings(name, buyIn))
}

// Get returns a tournament by ID.
func (c *Controller) Get(id string) (*Tournament, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tournaments[id]
	return t, ok
}

// Register enters a player into a tournament.
func (c *Controller) Register(id, userID, username, displayName string) error {
	t, ok := c.Get(id)
	if !ok {
		return ErrNotFound
	}
	return t.Register(userID, username, displayName)
}

// Unregister withdraws a player before the start.
func (c *Controller) Unregister(id, userID string) error {
	t, ok := c.Get(id)
	if !ok {
		return ErrNotFound
	}
	return t.Unregister(userID)
}

// Start launches a tournament by ID.
func (c *Controller) Start(id string) error {
	t, ok := c.Get(id)
	if !ok {
		return ErrNotFound
	}
	return t.Start()
}

// Cancel aborts an unstarted tournament and refunds its field.
func (c *Controller) Cancel(id string) error {
	t, ok := c.Get(id)
	if !ok {
		return ErrNotFound
	}
	return t.Cancel()
}

// Active returns tournaments that have not finished, newest first.
func (c *Controller) Active() []*Tournament {
	c.mu.Lock()
	defer c.mu.Unlock()
	var active []*Tournament
	for _, t := range c.tournaments {
		switch t.Status() {
		case StatusFinished, StatusCancelled:
		default:
			active = append(active, t)
		}
	}
	sortNewestFirst(active)
	return active
}

// Registering returns tournaments still accepting players, optionally
// filtered by mode, newest first.
func (c *Controller) Registering(mode Mode) []*Tournament {
	c.mu.Lock()
	defer c.mu.Unlock()
	var open []*Tournament
	for _, t := range c.tournaments {
		if !t.Status().Open() {
			continue
		}
		if mode != "" && t.Mode() != mode {
			continue
		}
		open = append(open, t)
	}
	sortNewestFirst(open)
	return open
}

// ByPlayer returns every tournament the player is registered in, newest
// first.
func (c *Controller) ByPlayer(userID string) []*Tournament {
	c.mu.Lock()
	defer c.mu.Unlock()
	var mine []*Tournament
	for _, t := range c.tournaments {
		if t.HasPlayer(userID) {
			mine = append(mine, t)
		}
	}
	sortNewestFirst(mine)
	return mine
}

// Count returns the number of known tournaments, finished ones included.
func (c *Controller) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tournaments)
}

func sortNewestFirst(ts []*Tournament) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].createdAt.Equal(ts[j].createdAt) {
			return ts[i].createdAt.After(ts[j].createdAt)
		}
		return ts[i].id > ts[j].id
	})
}
