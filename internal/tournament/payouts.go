package tournament

// computePayouts builds the payout table for a prize pool. The rake comes
// off the top; knockout tournaments then carve out the bounty share before
// the ladder is applied. Every ladder pays out exactly the net pool: the
// lower places take fixed integer shares and first place absorbs whatever
// rounding leaves over.
func computePayouts(s Settings, prizePool, entrants int) map[int]int {
	net := prizePool * (100 - s.RakePercent) / 100
	if s.Mode == ModeBounty {
		net = net * (100 - s.BountyPercent) / 100
	}
	if entrants <= 0 || net <= 0 {
		return map[int]int{}
	}
	if entrants <= 6 {
		return smallFieldPayouts(s.SnGFormat, net, entrants)
	}
	itm := entrants * 15 / 100
	if itm < 1 {
		itm = 1
	}
	return ladderPayouts(net, itm)
}

// smallFieldPayouts covers single-table fields. The format defaults to
// top-three when unset, which also covers small scheduled tournaments.
func smallFieldPayouts(format SnGFormat, net, entrants int) map[int]int {
	switch format {
	case SnGWinnerTakesAll:
		return map[int]int{1: net}
	case SnGTopTwo:
		second := net * 35 / 100
		return map[int]int{1: net - second, 2: second}
	case SnGDoubleOrNothing:
		half := entrants / 2
		if half < 1 {
			half = 1
		}
		each := net / half
		payouts := make(map[int]int, half)
		for pos := 1; pos <= half; pos++ {
			payouts[pos] = each
		}
		payouts[1] += net - each*half
		return payouts
	default:
		// Heads-up fields have no third place to pay.
		if entrants <= 2 {
			return smallFieldPayouts(SnGTopTwo, net, entrants)
		}
		second := net * 30 / 100
		third := net * 20 / 100
		return map[int]int{1: net - second - third, 2: second, 3: third}
	}
}

// ladderPayouts pays roughly the top 15% of the field. Places two and down
// take fixed percentage bands of the net pool, the positions past the last
// band split a shared tail band, and first place gets the remainder.
func ladderPayouts(net, itm int) map[int]int {
	switch {
	case itm >= 15:
		payouts := map[int]int{
			2: net * 17 / 100,
			3: net * 12 / 100,
		}
		for pos := 4; pos <= 6; pos++ {
			payouts[pos] = net * 6 / 100
		}
		for pos := 7; pos <= 9; pos++ {
			payouts[pos] = net * 4 / 100
		}
		if each := net * 10 / 100 / (itm - 9); each > 0 {
			for pos := 10; pos <= itm; pos++ {
				payouts[pos] = each
			}
		}
		payouts[1] = net - allocated(payouts)
		return payouts
	case itm >= 9:
		payouts := map[int]int{
			2: net * 20 / 100,
			3: net * 14 / 100,
		}
		for pos := 4; pos <= 6; pos++ {
			payouts[pos] = net * 7 / 100
		}
		if each := net * 12 / 100 / (itm - 6); each > 0 {
			for pos := 7; pos <= itm; pos++ {
				payouts[pos] = each
			}
		}
		payouts[1] = net - allocated(payouts)
		return payouts
	case itm >= 3:
		second := net * 30 / 100
		third := net * 20 / 100
		return map[int]int{1: net - second - third, 2: second, 3: third}
	default:
		return map[int]int{1: net}
	}
}

func allocated(payouts map[int]int) int {
	total := 0
	for _, amount := range payouts {
		total += amount
	}
	return total
}
