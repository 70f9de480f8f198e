package game

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

// Manager owns all live tables. Cash tables are created on first join;
// tournament controllers create their tables explicitly with Create.
type Manager struct {
	mu          sync.Mutex
	defaults    Config
	clock       quartz.Clock
	logger      *log.Logger
	broadcaster Broadcaster
	tables      map[string]*Table
}

// NewManager creates a table manager. The defaults apply to tables created
// via GetOrCreate.
func NewManager(defaults Config, clock quartz.Clock, logger *log.Logger, broadcaster Broadcaster) *Manager {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Manager{
		defaults:    defaults.withDefaults(),
		clock:       clock,
		logger:      logger,
		broadcaster: broadcaster,
		tables:      make(map[string]*Table),
	}
}

// GetOrCreate returns the table with the given ID, creating a cash table
// with default settings if it does not exist yet.
func (m *Manager) GetOrCreate(tableID string) *Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	if table, ok := m.tables[tableID]; ok {
		return table
	}
	table := New(tableID, Options{
		Config:      m.defaults,
		Clock:       m.clock,
		Logger:      m.logger,
		Broadcaster: m.broadcaster,
	})
	m.tables[tableID] = table
	m.logger.Info("table created", "table", tableID)
	return table
}

// Create registers a table with explicit settings and an optional hand
// completion hook. If the ID is already taken the existing table is
// returned unchanged.
func (m *Manager) Create(tableID string, cfg Config, onHandComplete HandCompleteFunc) *Table {
	m.mu.Lock()
	defer m.mu.Unlock()
	if table, ok := m.tables[tableID]; ok {
		return table
	}
	table := New(tableID, Options{
		Config:         cfg,
		Clock:          m.clock,
		Logger:         m.logger,
		Broadcaster:    m.broadcaster,
		OnHandComplete: onHandComplete,
	})
	m.tables[tableID] = table
	m.logger.Info("table created", "table", tableID, "rules", cfg.Rules)
	return table
}

// Get returns the table with the given ID if it exists.
func (m *Manager) Get(tableID string) (*Table, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.tables[tableID]
	return table, ok
}

// Remove drops a table from the manager. Connected clients are the
// caller's responsibility.
func (m *Manager) Remove(tableID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tables, tableID)
}

// Count returns the number of live tables.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables)
}

// Range calls fn for every live table until fn returns false. The manager
// lock is not held during the calls.
func (m *Manager) Range(fn func(*Table) bool) {
	m.mu.Lock()
	tables := make([]*Table, 0, len(m.tables))
	for _, table := range m.tables {
		tables = append(tables, table)
	}
	m.mu.Unlock()
	for _, table := range tables {
		if !fn(table) {
			return
		}
	}
}
