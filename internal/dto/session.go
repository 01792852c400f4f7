package dto

import (
	"github.com/Additional-Code/orderpad/internal/lineitem"
	serviceorder "github.com/Additional-Code/orderpad/internal/service/order"
)

// LineItemResponse represents one order line as exposed via transport layers.
type LineItemResponse struct {
	Key       string   `json:"key"`
	Name      string   `json:"name"`
	UnitPrice float64  `json:"unit_price"`
	Quantity  int      `json:"quantity"`
	Unit      string   `json:"unit"`
	Memo      string   `json:"memo,omitempty"`
	Status    string   `json:"status"`
	Changed   []string `json:"changed,omitempty"`
}

// SessionResponse represents the state of an order editing session.
type SessionResponse struct {
	Key      string             `json:"key"`
	Number   string             `json:"number,omitempty"`
	IsNew    bool               `json:"is_new"`
	Items    []LineItemResponse `json:"items"`
	Memo     string             `json:"memo,omitempty"`
	Total    int64              `json:"total"`
	HasDraft bool               `json:"has_draft"`
}

// NewSessionResponse maps a service view onto its transport shape.
func NewSessionResponse(view serviceorder.View) SessionResponse {
	items := make([]LineItemResponse, 0, len(view.Items))
	for _, item := range view.Items {
		items = append(items, newLineItemResponse(item, view.Changes[item.Key]))
	}
	return SessionResponse{
		Key:      view.Key,
		Number:   view.Number,
		IsNew:    view.IsNew,
		Items:    items,
		Memo:     view.Memo,
		Total:    view.Total,
		HasDraft: view.HasDraft,
	}
}

func newLineItemResponse(item lineitem.LineItem, change lineitem.Change) LineItemResponse {
	resp := LineItemResponse{
		Key:       item.Key,
		Name:      item.Name,
		UnitPrice: item.UnitPrice,
		Quantity:  item.Quantity,
		Unit:      string(item.Unit),
		Memo:      item.Memo,
		Status:    string(change.Status),
	}
	if change.QuantityChanged {
		resp.Changed = append(resp.Changed, "quantity")
	}
	if change.UnitChanged {
		resp.Changed = append(resp.Changed, "unit")
	}
	if change.MemoChanged {
		resp.Changed = append(resp.Changed, "memo")
	}
	return resp
}

// AddItemRequest is the payload for adding or merging a line item.
type AddItemRequest struct {
	Key       string  `json:"key"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Unit      string  `json:"unit"`
	Memo      string  `json:"memo"`
}

// UpdateItemRequest is the payload for a partial line item update. Absent
// fields are left untouched.
type UpdateItemRequest struct {
	Name      *string  `json:"name"`
	UnitPrice *float64 `json:"unit_price"`
	Quantity  *int     `json:"quantity"`
	Unit      *string  `json:"unit"`
	Memo      *string  `json:"memo"`
}

// SetMemoRequest is the payload for replacing the order memo.
type SetMemoRequest struct {
	Memo string `json:"memo"`
}

// CommitRequest is the payload for committing a session; Number and
// CustomerCode are only required for new orders.
type CommitRequest struct {
	Number       string `json:"number"`
	CustomerCode string `json:"customer_code"`
}
