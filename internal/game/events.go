package game

// EventType classifies entries in a table's event log.
type EventType string

const (
	EventTypeAction EventType = "action"
	EventTypeSystem EventType = "system"
	EventTypeChat   EventType = "chat"
)

// Event is a single event-log entry. Action events carry the acting user
// and the action name; system and chat events carry a message.
type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"userId,omitempty"`
	Action    string    `json:"action,omitempty"`
	Message   string    `json:"message,omitempty"`
	Amount    int       `json:"amount,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// Action names recorded in action events.
const (
	ActionFold       = "fold"
	ActionCheck      = "check"
	ActionCall       = "call"
	ActionBet        = "bet"
	ActionRaise      = "raise"
	ActionAllIn      = "all_in"
	ActionAutoFold   = "auto_fold"
	ActionSmallBlind = "post_small_blind"
	ActionBigBlind   = "post_big_blind"
	ActionAnte       = "post_ante"
)

// maxEventLog bounds the retained log; snapshots expose the most recent
// snapshotEvents entries.
const (
	maxEventLog    = 100
	snapshotEvents = 30
)

func (t *Table) appendEventLocked(ev Event) {
	t.eventLog = append(t.eventLog, ev)
	if len(t.eventLog) > maxEventLog {
		t.eventLog = t.eventLog[len(t.eventLog)-maxEventLog:]
	}
}

func (t *Table) appendSystemEventLocked(message string) {
	t.appendEventLocked(Event{
		Type:      EventTypeSystem,
		Message:   message,
		Timestamp: t.nowMs(),
	})
}

func (t *Table) appendActionEventLocked(userID, action string, amount int) {
	t.appendEventLocked(Event{
		Type:      EventTypeAction,
		UserID:    userID,
		Action:    action,
		Amount:    amount,
		Timestamp: t.nowMs(),
	})
}
