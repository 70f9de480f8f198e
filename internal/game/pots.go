package game

// Pot is a main or side pot built from hand contributions. Eligible lists
// the user IDs that can win it, ordered clockwise from the button so that
// odd-chip remainders are awarded deterministically.
type Pot struct {
	Level    int
	Amount   int
	Eligible []string
}

// SidePotView is the wire form of a pot carried in state snapshots.
type SidePotView struct {
	Amount   int      `json:"amount"`
	Eligible []string `json:"eligible"`
}

// buildPotsLocked layers hand contributions into a main pot and side pots.
// Each level is capped at the smallest remaining contribution among the
// eligible (unfolded, still seated) players; every contributor pays into a
// level up to its cap, so folded and departed players' chips are spread
// across the pots they helped build without ever being eligible to win.
func (t *Table) buildPotsLocked() {
	remaining := make(map[string]int, len(t.handContributions))
	for uid, amt := range t.handContributions {
		if amt > 0 {
			remaining[uid] = amt
		}
	}

	t.pots = nil
	order := t.seatOrderFromButtonLocked()
	level := 0
	for len(remaining) > 0 {
		var eligible []string
		levelCap := 0
		for _, p := range order {
			amt, ok := remaining[p.UserID]
			if !ok || p.HasFolded {
				continue
			}
			eligible = append(eligible, p.UserID)
			if levelCap == 0 || amt < levelCap {
				levelCap = amt
			}
		}
		if len(eligible) == 0 {
			break
		}

		amount := 0
		for uid, amt := range remaining {
			paid := min(amt, levelCap)
			amount += paid
			if amt-paid <= 0 {
				delete(remaining, uid)
			} else {
				remaining[uid] = amt - paid
			}
		}

		t.pots = append(t.pots, Pot{Level: level, Amount: amount, Eligible: eligible})
		level++
	}

	t.sidePotSummary = make([]SidePotView, 0, len(t.pots))
	for _, pot := range t.pots {
		view := SidePotView{Amount: pot.Amount, Eligible: make([]string, len(pot.Eligible))}
		copy(view.Eligible, pot.Eligible)
		t.sidePotSummary = append(t.sidePotSummary, view)
	}
}

// seatOrderFromButtonLocked returns seated players rotated so the first
// entry sits immediately clockwise of the button.
func (t *Table) seatOrderFromButtonLocked() []*Player {
	ordered := t.orderedPlayersLocked()
	if len(ordered) == 0 {
		return ordered
	}
	buttonIdx := 0
	for i, p := range ordered {
		if p.UserID == t.buttonUserID {
			buttonIdx = i
			break
		}
	}
	rotated := make([]*Player, 0, len(ordered))
	for offset := 1; offset <= len(ordered); offset++ {
		rotated = append(rotated, ordered[(buttonIdx+offset)%len(ordered)])
	}
	return rotated
}
