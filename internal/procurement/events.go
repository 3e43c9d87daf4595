package procurement

// receiptEventPayload shapes a posted receipt for the event log. The line
// schema is what the ledger replay reads back.
func receiptEventPayload(gr GoodsReceipt, poItems map[string]POItem) map[string]any {
	lines := make([]any, 0, len(gr.Items))
	for _, item := range gr.Items {
		lines = append(lines, map[string]any{
			"item_code":   item.ItemCode,
			"description": item.Description,
			"unit":        item.Unit,
			"qty":         item.ReceivedQuantity,
			"rate":        poItems[item.POItemID].Rate,
			"lot_no":      item.LotNo,
		})
	}
	return map[string]any{"po_id": gr.POID, "lines": lines}
}
