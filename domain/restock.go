package domain

import "time"

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusPrepared   Status = "prepared"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
)

// statusOrder is the full forward-only lifecycle of a restock request.
var statusOrder = []Status{StatusPending, StatusProcessing, StatusPrepared, StatusShipped, StatusDelivered}

func (s Status) Valid() bool {
	for _, st := range statusOrder {
		if s == st {
			return true
		}
	}
	return false
}

// Next returns the immediate successor status. ok is false for the terminal
// status and for unknown values.
func (s Status) Next() (next Status, ok bool) {
	for i, st := range statusOrder {
		if s == st && i+1 < len(statusOrder) {
			return statusOrder[i+1], true
		}
	}
	return "", false
}

// CanAdvanceTo reports whether target is the immediate successor of s.
// Skipping ahead and moving backward are both rejected.
func (s Status) CanAdvanceTo(target Status) bool {
	next, ok := s.Next()
	return ok && next == target
}

// DeliveryTimelines is the fixed set of timeline labels a pharmacy can choose.
var DeliveryTimelines = []string{"1-2 days", "3-5 days", "1 week", "2 weeks"}

func ValidTimeline(label string) bool {
	for _, t := range DeliveryTimelines {
		if label == t {
			return true
		}
	}
	return false
}

// RequestLineItem is one medicine snapshotted into a restock request at
// submission time.
type RequestLineItem struct {
	MedicineID        string `json:"medicine_id"`
	MedicineName      string `json:"medicine_name"`
	CurrentQuantity   int    `json:"current_quantity"`
	Threshold         int    `json:"threshold"`
	RequestedQuantity int    `json:"requested_quantity"`
}

// RestockRequest is an immutable snapshot of a pharmacy's restock order.
// After creation only Status and UpdatedAt ever change.
type RestockRequest struct {
	ID                  string            `json:"id"`
	PharmacyID          string            `json:"pharmacy_id"`
	PharmacyName        string            `json:"pharmacy_name"`
	PharmacyAddress     string            `json:"pharmacy_address"`
	PharmacyPhone       string            `json:"pharmacy_phone"`
	Medicines           []RequestLineItem `json:"medicines"`
	TotalItems          int               `json:"total_items"`
	TotalQuantity       int               `json:"total_quantity"`
	Priority            Priority          `json:"priority"`
	DeliveryTimeline    string            `json:"delivery_timeline"`
	SpecialInstructions string            `json:"special_instructions,omitempty"`
	Status              Status            `json:"status"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// RecomputeTotals derives total item and quantity counts from the line items.
// The stored TotalItems/TotalQuantity fields must always equal these values.
func (r RestockRequest) RecomputeTotals() (items, quantity int) {
	for _, li := range r.Medicines {
		quantity += li.RequestedQuantity
	}
	return len(r.Medicines), quantity
}
