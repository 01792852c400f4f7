package lineitem

// Status describes how an edited item relates to the session baseline.
type Status string

const (
	StatusNew       Status = "new"
	StatusModified  Status = "modified"
	StatusUnchanged Status = "unchanged"
)

// Change is the per-item classification plus field-level change flags used by
// the rendering and save paths.
type Change struct {
	Status          Status `json:"status"`
	QuantityChanged bool   `json:"quantity_changed"`
	UnitChanged     bool   `json:"unit_changed"`
	MemoChanged     bool   `json:"memo_changed"`
}

// Classify compares current against baseline and returns one Change per
// current key. Baseline items missing from current are omitted: their absence
// signals removal and is handled by the save path. Runs in O(n) via a
// baseline lookup; item counts reach the low thousands on large orders.
func Classify(baseline, current []LineItem) map[string]Change {
	base := make(map[string]LineItem, len(baseline))
	for _, item := range Normalize(baseline) {
		base[item.Key] = item
	}

	result := make(map[string]Change, len(current))
	for _, item := range Normalize(current) {
		prev, ok := base[item.Key]
		if !ok {
			result[item.Key] = Change{Status: StatusNew}
			continue
		}
		change := Change{
			Status:          StatusUnchanged,
			QuantityChanged: item.Quantity != prev.Quantity,
			UnitChanged:     item.Unit != prev.Unit,
			MemoChanged:     item.Memo != prev.Memo,
		}
		if change.QuantityChanged || change.UnitChanged || change.MemoChanged {
			change.Status = StatusModified
		}
		result[item.Key] = change
	}
	return result
}
