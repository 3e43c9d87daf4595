package inventory

import "math"

// Pure ledger arithmetic shared by the service and the event replayer. Every
// mutation funnels through these so that replaying the event log reproduces
// the live ledger exactly.

// applyInbound folds a received quantity into the entry at the given rate and
// recomputes the weighted average price. New quantity lands in the good
// bucket pending QA disposition.
func applyInbound(entry LedgerEntry, qty, rate float64) LedgerEntry {
	entry.GoodQty += qty
	entry.TotalValue += qty * rate
	if entry.GoodQty > 0 {
		entry.WeightedAvgPrice = entry.TotalValue / entry.GoodQty
	} else {
		entry.WeightedAvgPrice = 0
	}
	return entry
}

// applyReclassify re-partitions the entry after a QA disposition. The whole
// entry value is reallocated proportionally to the pass fraction; this is the
// lot-blind behaviour of the source system and assumes a single undisposed
// lot per item code.
func applyReclassify(entry LedgerEntry, passQty, damagedQty float64) LedgerEntry {
	total := passQty + damagedQty
	passFraction := 0.0
	if total > 0 {
		passFraction = passQty / total
	}
	entry.GoodQty = passQty
	entry.DamagedQty = damagedQty
	entry.TotalValue = clampValue(entry.TotalValue * passFraction)
	if entry.GoodQty > 0 {
		entry.WeightedAvgPrice = entry.TotalValue / entry.GoodQty
	} else {
		entry.WeightedAvgPrice = 0
	}
	return entry
}

// applyIssue debits good stock at the current weighted average price. The
// average itself is the cost basis of what remains and does not move.
func applyIssue(entry LedgerEntry, qty float64) LedgerEntry {
	entry.GoodQty -= qty
	entry.TotalValue = clampValue(entry.TotalValue - qty*entry.WeightedAvgPrice)
	if entry.GoodQty <= epsilon {
		entry.GoodQty = 0
		entry.TotalValue = 0
	}
	return entry
}

const epsilon = 1e-9

func clampValue(v float64) float64 {
	return math.Max(v, 0)
}
