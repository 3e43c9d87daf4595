package inventory

import (
	"encoding/json"

	"github.com/stockpilot-erp/stockpilot/internal/shared"
)

// Replay folds receipt, disposition and issue events into a fresh ledger.
// Events are applied in the order given; the result must equal the live
// snapshot when the log is complete.
func Replay(events []shared.Event) []LedgerEntry {
	ledger := make(map[string]LedgerEntry)
	for _, evt := range events {
		switch evt.Kind {
		case shared.EventGRPosted:
			lines, _ := evt.Payload["lines"].([]any)
			for _, raw := range lines {
				line, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				itemCode := asString(line["item_code"])
				unit := asString(line["unit"])
				key := entryKey(itemCode, unit)
				entry, ok := ledger[key]
				if !ok {
					entry = LedgerEntry{ItemCode: itemCode, Description: asString(line["description"]), Unit: unit}
				}
				ledger[key] = applyInbound(entry, asFloat(line["qty"]), asFloat(line["rate"]))
			}
		case shared.EventQADisposed:
			key := entryKey(asString(evt.Payload["item_code"]), asString(evt.Payload["unit"]))
			entry, ok := ledger[key]
			if !ok {
				continue
			}
			ledger[key] = applyReclassify(entry, asFloat(evt.Payload["pass_qty"]), asFloat(evt.Payload["damaged_qty"]))
		case shared.EventStockIssued:
			key := entryKey(asString(evt.Payload["item_code"]), asString(evt.Payload["unit"]))
			entry, ok := ledger[key]
			if !ok {
				continue
			}
			ledger[key] = applyIssue(entry, asFloat(evt.Payload["qty"]))
		}
	}
	out := make([]LedgerEntry, 0, len(ledger))
	for _, entry := range ledger {
		out = append(out, entry)
	}
	sortEntries(out)
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// asFloat tolerates the numeric shapes a payload can take after a JSON
// round trip through the Postgres event log.
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	default:
		return 0
	}
}
