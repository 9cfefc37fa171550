// Package ledger owns the per-pharmacy medicine collections and their
// derived stock and expiry views.
package ledger

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"pharmtrack/m/domain"
	"pharmtrack/m/internal/store"
)

// Service is the inventory ledger. Mutations on one pharmacy's collection
// are serialized under a per-pharmacy lock.
type Service struct {
	store store.Store
	locks *store.KeyedMutex
	now   func() time.Time
}

func New(st store.Store) *Service {
	return &Service{store: st, locks: store.NewKeyedMutex(), now: time.Now}
}

// MedicineInput carries the caller-supplied fields for a new medicine.
// UnitPrice arrives as raw text; an unparsable value defaults to 0.
type MedicineInput struct {
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	Threshold    int    `json:"threshold"`
	ExpiryDate   string `json:"expiry_date"`
	BatchNumber  string `json:"batch_number"`
	Manufacturer string `json:"manufacturer"`
	UnitPrice    string `json:"unit_price"`
}

// MedicineUpdate carries a partial update; nil fields are left unchanged.
type MedicineUpdate struct {
	Name         *string `json:"name"`
	Quantity     *int    `json:"quantity"`
	Threshold    *int    `json:"threshold"`
	ExpiryDate   *string `json:"expiry_date"`
	BatchNumber  *string `json:"batch_number"`
	Manufacturer *string `json:"manufacturer"`
	UnitPrice    *string `json:"unit_price"`
}

// Add validates the input and appends a new medicine to the pharmacy's
// collection. All violated fields are reported in one ValidationError.
func (s *Service) Add(ctx context.Context, pharmacyID string, in MedicineInput) (*domain.Medicine, error) {
	price, bad := parsePrice(in.UnitPrice)
	var fields []string
	if strings.TrimSpace(in.Name) == "" {
		fields = append(fields, "name")
	}
	if in.Quantity < 0 {
		fields = append(fields, "quantity")
	}
	if in.Threshold < 1 {
		fields = append(fields, "threshold")
	}
	if _, err := time.Parse(domain.DateLayout, in.ExpiryDate); err != nil {
		fields = append(fields, "expiry_date")
	}
	if bad {
		fields = append(fields, "unit_price")
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError(fields...)
	}

	now := s.now().UTC()
	med := &domain.Medicine{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Quantity:     in.Quantity,
		Threshold:    in.Threshold,
		ExpiryDate:   in.ExpiryDate,
		BatchNumber:  strings.TrimSpace(in.BatchNumber),
		Manufacturer: strings.TrimSpace(in.Manufacturer),
		UnitPrice:    price,
		CreatedBy:    pharmacyID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.locks.Lock(pharmacyID)
	defer s.locks.Unlock(pharmacyID)
	if err := s.put(ctx, pharmacyID, med); err != nil {
		return nil, err
	}
	return med, nil
}

// Update merges the changed fields into an existing medicine and bumps
// updated_at. The merged record is validated as a whole.
func (s *Service) Update(ctx context.Context, pharmacyID, id string, upd MedicineUpdate) (*domain.Medicine, error) {
	s.locks.Lock(pharmacyID)
	defer s.locks.Unlock(pharmacyID)

	med, err := s.Get(ctx, pharmacyID, id)
	if err != nil {
		return nil, err
	}

	var fields []string
	if upd.Name != nil {
		med.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Quantity != nil {
		med.Quantity = *upd.Quantity
	}
	if upd.Threshold != nil {
		med.Threshold = *upd.Threshold
	}
	if upd.ExpiryDate != nil {
		med.ExpiryDate = *upd.ExpiryDate
	}
	if upd.BatchNumber != nil {
		med.BatchNumber = strings.TrimSpace(*upd.BatchNumber)
	}
	if upd.Manufacturer != nil {
		med.Manufacturer = strings.TrimSpace(*upd.Manufacturer)
	}
	if upd.UnitPrice != nil {
		price, bad := parsePrice(*upd.UnitPrice)
		if bad {
			fields = append(fields, "unit_price")
		} else {
			med.UnitPrice = price
		}
	}
	if med.Name == "" {
		fields = append(fields, "name")
	}
	if med.Quantity < 0 {
		fields = append(fields, "quantity")
	}
	if med.Threshold < 1 {
		fields = append(fields, "threshold")
	}
	if _, err := time.Parse(domain.DateLayout, med.ExpiryDate); err != nil {
		fields = append(fields, "expiry_date")
	}
	if len(fields) > 0 {
		return nil, domain.NewValidationError(fields...)
	}

	med.UpdatedAt = s.now().UTC()
	if err := s.put(ctx, pharmacyID, med); err != nil {
		return nil, err
	}
	return med, nil
}

// Delete removes a medicine. A missing id is an error, not a no-op.
func (s *Service) Delete(ctx context.Context, pharmacyID, id string) error {
	s.locks.Lock(pharmacyID)
	defer s.locks.Unlock(pharmacyID)

	ok, err := s.store.Delete(ctx, store.MedicinesNamespace(pharmacyID), id)
	if err != nil {
		return err
	}
	if !ok {
		return &domain.NotFoundError{Kind: "medicine", ID: id}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, pharmacyID, id string) (*domain.Medicine, error) {
	rec, ok, err := s.store.Get(ctx, store.MedicinesNamespace(pharmacyID), id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.NotFoundError{Kind: "medicine", ID: id}
	}
	var med domain.Medicine
	if err := json.Unmarshal(rec, &med); err != nil {
		return nil, &domain.StorageError{Op: "decode", Err: errors.Wrapf(err, "medicine %s", id)}
	}
	return &med, nil
}

// List returns the pharmacy's medicines in insertion order.
func (s *Service) List(ctx context.Context, pharmacyID string) ([]domain.Medicine, error) {
	ns := store.MedicinesNamespace(pharmacyID)
	entries, err := s.store.ScanPrefix(ctx, ns)
	if err != nil {
		return nil, err
	}
	medicines := make([]domain.Medicine, 0, len(entries))
	for _, e := range entries {
		if e.Namespace != ns {
			continue
		}
		var med domain.Medicine
		if err := json.Unmarshal(e.Record, &med); err != nil {
			return nil, &domain.StorageError{Op: "decode", Err: errors.Wrapf(err, "medicine %s", e.Key)}
		}
		medicines = append(medicines, med)
	}
	return medicines, nil
}

// ListLowStock returns medicines that are low or out of stock, in insertion
// order.
func (s *Service) ListLowStock(ctx context.Context, pharmacyID string) ([]domain.Medicine, error) {
	medicines, err := s.List(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	low := medicines[:0:0]
	for _, med := range medicines {
		if med.StockStatus() != domain.InStock {
			low = append(low, med)
		}
	}
	return low, nil
}

// ListExpiring returns medicines whose expiry date falls within the given
// window from asOf, inclusive.
func (s *Service) ListExpiring(ctx context.Context, pharmacyID string, asOf time.Time, days int) ([]domain.Medicine, error) {
	if days <= 0 {
		days = domain.ExpiryWindowDays
	}
	medicines, err := s.List(ctx, pharmacyID)
	if err != nil {
		return nil, err
	}
	expiring := medicines[:0:0]
	for _, med := range medicines {
		if med.ExpiringWithin(asOf, days) {
			expiring = append(expiring, med)
		}
	}
	return expiring, nil
}

func (s *Service) put(ctx context.Context, pharmacyID string, med *domain.Medicine) error {
	rec, err := json.Marshal(med)
	if err != nil {
		return &domain.StorageError{Op: "encode", Err: errors.Wrapf(err, "medicine %s", med.ID)}
	}
	return s.store.Put(ctx, store.MedicinesNamespace(pharmacyID), med.ID, rec)
}

// parsePrice parses a unit price. Unparsable text defaults to 0; a negative
// value is flagged for the caller's ValidationError.
func parsePrice(raw string) (price float64, negative bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false
	}
	if v < 0 {
		return 0, true
	}
	return v, false
}
