package domain

import "time"

// DateLayout is the calendar-date format used for expiry dates.
const DateLayout = "2006-01-02"

// ExpiryWindowDays is the default warning window for expiring medicines.
const ExpiryWindowDays = 30

type StockStatus string

const (
	OutOfStock StockStatus = "out_of_stock"
	LowStock   StockStatus = "low_stock"
	InStock    StockStatus = "in_stock"
)

type Medicine struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Quantity     int       `json:"quantity"`
	Threshold    int       `json:"threshold"`
	ExpiryDate   string    `json:"expiry_date"`
	BatchNumber  string    `json:"batch_number,omitempty"`
	Manufacturer string    `json:"manufacturer,omitempty"`
	UnitPrice    float64   `json:"unit_price"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StockStatusOf derives the stock status from quantity and threshold.
// A quantity equal to the threshold counts as low stock.
func StockStatusOf(quantity, threshold int) StockStatus {
	switch {
	case quantity == 0:
		return OutOfStock
	case quantity <= threshold:
		return LowStock
	default:
		return InStock
	}
}

func (m Medicine) StockStatus() StockStatus {
	return StockStatusOf(m.Quantity, m.Threshold)
}

// ExpiringWithin reports whether the medicine expires within the given number
// of days from asOf, inclusive of the last day. An unparseable expiry date is
// never considered expiring.
func (m Medicine) ExpiringWithin(asOf time.Time, days int) bool {
	expiry, err := time.Parse(DateLayout, m.ExpiryDate)
	if err != nil {
		return false
	}
	cutoff := asOf.AddDate(0, 0, days)
	return !expiry.After(cutoff)
}

// ExpiringSoon is ExpiringWithin using the default 30 day window.
func (m Medicine) ExpiringSoon(asOf time.Time) bool {
	return m.ExpiringWithin(asOf, ExpiryWindowDays)
}
