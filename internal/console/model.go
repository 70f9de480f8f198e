package console

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/telepoker/telepoker/internal/game"
)

// Model is the bubbletea model: a table pane on top, the hand log in the
// middle and a command prompt at the bottom.
type Model struct {
	client *Client
	logger *log.Logger
	styles Styles
	userID string

	viewport viewport.Model
	input    textinput.Model

	snapshot   *game.Snapshot
	prevEvents map[game.Event]struct{}
	names      map[string]string
	lines      []string
	tableID    string

	width    int
	height   int
	ready    bool
	quitting bool
}

// NewModel builds the UI around an open client connection.
func NewModel(client *Client, userID string, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)

	ti := textinput.New()
	ti.Placeholder = "fold, check, call, bet 50, raise 120, allin, say <msg>, show, muck, quit"
	ti.Focus()
	ti.CharLimit = 200
	ti.Prompt = "> "

	return &Model{
		client:     client,
		logger:     logger.WithPrefix("console"),
		styles:     NewStyles(),
		userID:     userID,
		viewport:   vp,
		input:      ti,
		prevEvents: map[game.Event]struct{}{},
		names:      map[string]string{},
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitFrame())
}

func (m *Model) waitFrame() tea.Cmd {
	return func() tea.Msg { return m.client.WaitFrame() }
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m.leave()
		case "enter":
			return m, m.submit()
		case "pgup":
			m.viewport.HalfPageUp()
			return m, nil
		case "pgdown":
			m.viewport.HalfPageDown()
			return m, nil
		}
		// Remaining keys are typing. The viewport must not see them or
		// its j/k/u/d bindings would scroll the log mid-word.
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd

	case StateMsg:
		snap := game.Snapshot(msg)
		m.apply(&snap)
		return m, m.waitFrame()

	case WelcomeMsg:
		m.tableID = msg.TableID
		m.push(m.styles.System.Render("connected to table " + msg.TableID))
		return m, m.waitFrame()

	case HandCompleteMsg:
		m.push(m.styles.Pot.Render(m.describeHandComplete(game.HandCompleteMessage(msg))))
		return m, m.waitFrame()

	case ShowdownMsg:
		for _, loser := range msg.Losers {
			if loser.ShowCards && len(loser.Cards) > 0 {
				m.push(fmt.Sprintf("%s shows %s", loser.Nickname, m.styles.FormatCards(loser.Cards)))
			}
		}
		return m, m.waitFrame()

	case VisibilityMsg:
		if msg.Show {
			m.push(fmt.Sprintf("%s shows %s", msg.Nickname, m.styles.FormatCards(msg.Cards)))
		} else {
			m.push(m.styles.System.Render(msg.Nickname + " mucks"))
		}
		return m, m.waitFrame()

	case ErrorMsg:
		m.logger.Warn("server rejected request", "message", msg.Message)
		m.push(m.styles.Error.Render("server: " + msg.Message))
		return m, m.waitFrame()

	case DisconnectedMsg:
		m.logger.Info("connection closed", "error", msg.Err)
		m.quitting = true
		return m, tea.Sequence(tea.ClearScreen, tea.Quit)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// leave stands up from the table and quits the UI.
func (m *Model) leave() (tea.Model, tea.Cmd) {
	m.quitting = true
	_ = m.client.Act(game.Action{Command: "leave_table"})
	m.client.Close()
	return m, tea.Sequence(tea.ClearScreen, tea.Quit)
}

func (m *Model) submit() tea.Cmd {
	raw := strings.TrimSpace(m.input.Value())
	m.input.SetValue("")
	if raw == "" {
		return nil
	}
	if raw == "quit" || raw == "q" || raw == "exit" {
		_, cmd := m.leave()
		return cmd
	}
	action, err := ParseCommand(raw)
	if err != nil {
		m.push(m.styles.Error.Render(err.Error()))
		return nil
	}
	if err := m.client.Act(action); err != nil {
		m.push(m.styles.Error.Render("send failed: " + err.Error()))
	}
	return nil
}

// ParseCommand turns prompt input into a table action.
func ParseCommand(raw string) (game.Action, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return game.Action{}, fmt.Errorf("empty command")
	}
	verb := strings.ToLower(fields[0])
	switch verb {
	case "fold", "f":
		return game.Action{Command: "fold"}, nil
	case "check", "x":
		return game.Action{Command: "check"}, nil
	case "call", "c":
		return game.Action{Command: "call"}, nil
	case "allin", "all-in", "all_in", "shove":
		return game.Action{Command: "all_in"}, nil
	case "bet", "b", "raise", "r":
		if len(fields) < 2 {
			return game.Action{}, fmt.Errorf("usage: %s <amount>", verb)
		}
		amount, err := strconv.Atoi(fields[1])
		if err != nil || amount <= 0 {
			return game.Action{}, fmt.Errorf("bad amount %q", fields[1])
		}
		command := "bet"
		if verb == "raise" || verb == "r" {
			command = "raise"
		}
		return game.Action{Command: command, Amount: amount}, nil
	case "say":
		if len(fields) < 2 {
			return game.Action{}, fmt.Errorf("usage: say <message>")
		}
		return game.Action{Command: "chat", Message: strings.TrimSpace(raw[len(fields[0]):])}, nil
	case "show":
		return game.Action{Command: "show_cards", Show: true}, nil
	case "muck":
		return game.Action{Command: "show_cards", Show: false}, nil
	case "deal", "start":
		return game.Action{Command: "start_hand"}, nil
	case "rebuy":
		return game.Action{Command: "rebuy"}, nil
	default:
		return game.Action{}, fmt.Errorf("unknown command %q", verb)
	}
}

// apply folds a fresh snapshot into the UI state and logs its new events.
func (m *Model) apply(snap *game.Snapshot) {
	m.snapshot = snap
	for _, p := range snap.Players {
		m.names[p.UserID] = p.DisplayName
	}

	next := make(map[game.Event]struct{}, len(snap.Events))
	for _, ev := range snap.Events {
		next[ev] = struct{}{}
		if _, seen := m.prevEvents[ev]; !seen {
			m.push(m.formatEvent(ev))
		}
	}
	m.prevEvents = next
}

func (m *Model) push(line string) {
	m.lines = append(m.lines, line)
	m.viewport.SetContent(strings.Join(m.lines, "\n"))
	m.viewport.GotoBottom()
}

func (m *Model) name(userID string) string {
	if name, ok := m.names[userID]; ok && name != "" {
		return name
	}
	return userID
}

func (m *Model) formatEvent(ev game.Event) string {
	switch ev.Type {
	case game.EventTypeChat:
		return m.styles.Chat.Render(fmt.Sprintf("%s: %s", m.name(ev.UserID), ev.Message))
	case game.EventTypeAction:
		return m.describeAction(ev)
	default:
		return m.styles.System.Render(ev.Message)
	}
}

func (m *Model) describeAction(ev game.Event) string {
	who := m.name(ev.UserID)
	switch ev.Action {
	case game.ActionFold:
		return who + " folds"
	case game.ActionAutoFold:
		return who + " folds (timed out)"
	case game.ActionCheck:
		return who + " checks"
	case game.ActionCall:
		return fmt.Sprintf("%s calls %d", who, ev.Amount)
	case game.ActionBet:
		return fmt.Sprintf("%s bets %d", who, ev.Amount)
	case game.ActionRaise:
		return fmt.Sprintf("%s raises to %d", who, ev.Amount)
	case game.ActionAllIn:
		return fmt.Sprintf("%s goes all in for %d", who, ev.Amount)
	case game.ActionSmallBlind:
		return fmt.Sprintf("%s posts small blind %d", who, ev.Amount)
	case game.ActionBigBlind:
		return fmt.Sprintf("%s posts big blind %d", who, ev.Amount)
	case game.ActionAnte:
		return fmt.Sprintf("%s posts ante %d", who, ev.Amount)
	default:
		return fmt.Sprintf("%s %s %d", who, ev.Action, ev.Amount)
	}
}

func (m *Model) describeHandComplete(msg game.HandCompleteMessage) string {
	names := make([]string, len(msg.Winners))
	for i, id := range msg.Winners {
		names[i] = m.name(id)
	}
	how := "at showdown"
	if msg.WinType == game.WinTypeFold {
		how = "uncontested"
	}
	if len(names) == 1 {
		return fmt.Sprintf("%s wins %d %s", names[0], msg.PotAmount, how)
	}
	return fmt.Sprintf("%s split %d %s", strings.Join(names, ", "), msg.PotAmount, how)
}

func (m *Model) resize() {
	tableHeight := lipgloss.Height(m.renderTable())
	inputHeight := 3
	logHeight := m.height - tableHeight - inputHeight - 2
	if logHeight < 3 {
		logHeight = 3
	}
	m.viewport.Width = max(m.width-2, 10)
	m.viewport.Height = logHeight
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "connecting..."
	}

	table := m.renderTable()
	m.resize()
	logPane := m.styles.Blurred.Width(max(m.width-2, 10)).Render(m.viewport.View())
	inputPane := m.styles.Focused.Width(max(m.width-2, 10)).Render(m.input.View())
	return lipgloss.JoinVertical(lipgloss.Left, table, logPane, inputPane)
}

func (m *Model) renderTable() string {
	var b strings.Builder
	title := " telepoker "
	if m.tableID != "" {
		title = fmt.Sprintf(" telepoker · table %s ", m.tableID)
	}
	b.WriteString(m.styles.Header.Render(title))
	b.WriteString("\n")

	snap := m.snapshot
	if snap == nil {
		b.WriteString(m.styles.System.Render("waiting for state..."))
		return b.String()
	}

	stage := string(snap.Stage)
	if stage == "" {
		stage = "waiting"
	}
	b.WriteString(fmt.Sprintf("%s  %s  blinds %d/%d\n",
		stage,
		m.styles.Pot.Render(fmt.Sprintf("pot %d", snap.Pot)),
		snap.SmallBlind, snap.BigBlind))
	if len(snap.CommunityCards) > 0 {
		b.WriteString("board " + m.styles.FormatCards(snap.CommunityCards) + "\n")
	}

	players := make([]game.PlayerView, len(snap.Players))
	copy(players, snap.Players)
	sort.Slice(players, func(i, j int) bool { return players[i].Seat < players[j].Seat })

	for _, p := range players {
		marker := "  "
		if p.UserID == snap.ActiveUserID {
			marker = m.styles.Turn.Render("->")
		}
		line := fmt.Sprintf("%s %-12s %6d", marker, p.DisplayName, p.Stack)
		if bet := snap.PlayerBets[p.UserID]; bet > 0 {
			line += fmt.Sprintf("  bet %d", bet)
		}
		if p.HasFolded {
			line += m.styles.System.Render("  folded")
		}
		if p.UserID == m.userID && len(p.Cards) > 0 {
			line += "  " + m.styles.FormatCards(p.Cards)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
