// Package restock turns low-stock inventory into restock requests and owns
// the request lifecycle from submission through delivery.
package restock

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"pharmtrack/m/domain"
	"pharmtrack/m/internal/ledger"
	"pharmtrack/m/internal/store"
)

// Builder derives a draft request from a pharmacy's current inventory and
// persists it as an immutable RestockRequest.
type Builder struct {
	store  store.Store
	ledger *ledger.Service
	now    func() time.Time
}

func NewBuilder(st store.Store, led *ledger.Service) *Builder {
	return &Builder{store: st, ledger: led, now: time.Now}
}

// SuggestedQuantity targets a refill to twice the threshold but never
// suggests less than the threshold itself.
func SuggestedQuantity(m domain.Medicine) int {
	q := m.Threshold*2 - m.Quantity
	if q < m.Threshold {
		q = m.Threshold
	}
	return q
}

// ClampQuantity parses a caller-edited draft quantity. Non-numeric or
// non-positive input clamps to the minimum of 1.
func ClampQuantity(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// DraftFromLowStock maps the pharmacy's low-stock medicines to draft line
// items with suggested quantities. The caller may edit quantities, drop
// items, or add medicines that are not currently low.
func (b *Builder) DraftFromLowStock(ctx context.Context, pharmacyID string) ([]domain.RequestLineItem, error) {
	low, err := b.ledger.ListLowStock(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	items := make([]domain.RequestLineItem, 0, len(low))
	for _, med := range low {
		items = append(items, domain.RequestLineItem{
			MedicineID:        med.ID,
			MedicineName:      med.Name,
			CurrentQuantity:   med.Quantity,
			Threshold:         med.Threshold,
			RequestedQuantity: SuggestedQuantity(med),
		})
	}
	return items, nil
}

// Submit validates the final line items, snapshots the pharmacy profile,
// and appends a new pending request to the global collection.
func (b *Builder) Submit(ctx context.Context, pharmacyID string, items []domain.RequestLineItem, priority domain.Priority, timeline, instructions string) (*domain.RestockRequest, error) {
	if len(items) == 0 {
		return nil, &domain.EmptySelectionError{}
	}
	var fields []string
	for _, li := range items {
		if li.RequestedQuantity < 1 {
			fields = append(fields, "requested_quantity")
			break
		}
	}
	if !priority.Valid() {
		fields = append(fields, "priority")
	}
	if !domain.ValidTimeline(timeline) {
		fields = append(fields, "delivery_timeline")
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError(fields...)
	}

	name, address, phone := b.profileSnapshot(ctx, pharmacyID)

	now := b.now().UTC()
	req := &domain.RestockRequest{
		ID:                  uuid.NewString(),
		PharmacyID:          pharmacyID,
		PharmacyName:        name,
		PharmacyAddress:     address,
		PharmacyPhone:       phone,
		Medicines:           items,
		Priority:            priority,
		DeliveryTimeline:    timeline,
		SpecialInstructions: strings.TrimSpace(instructions),
		Status:              domain.StatusPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	req.TotalItems, req.TotalQuantity = req.RecomputeTotals()

	if err := putRequest(ctx, b.store, req); err != nil {
		return nil, err
	}
	idx, err := json.Marshal(requestIndexEntry{PharmacyID: pharmacyID})
	if err != nil {
		return nil, &domain.StorageError{Op: "encode", Err: errors.Wrapf(err, "request index %s", req.ID)}
	}
	if err := b.store.Put(ctx, store.NamespaceRequestIndex, req.ID, idx); err != nil {
		return nil, err
	}
	return req, nil
}

// profileSnapshot reads the pharmacy profile and fills any missing field
// with an explicit placeholder; snapshots are never left empty.
func (b *Builder) profileSnapshot(ctx context.Context, pharmacyID string) (name, address, phone string) {
	name = "Unknown Pharmacy"
	address = "Address not provided"
	phone = "Phone not provided"

	rec, ok, err := b.store.Get(ctx, store.NamespaceProfiles, pharmacyID)
	if err != nil || !ok {
		return name, address, phone
	}
	var profile domain.PharmacyProfile
	if err := json.Unmarshal(rec, &profile); err != nil {
		return name, address, phone
	}
	if profile.PharmacyName != "" {
		name = profile.PharmacyName
	}
	address = fmt.Sprintf("%s, %s, %s", profile.Address, profile.City, profile.State)
	if profile.Phone != "" {
		phone = profile.Phone
	}
	return name, address, phone
}
