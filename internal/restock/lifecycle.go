package restock

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"pharmtrack/m/domain"
	"pharmtrack/m/internal/store"
)

// requestIndexEntry maps a request id to its owning pharmacy so requests can
// be found by id alone without scanning every pharmacy's collection.
type requestIndexEntry struct {
	PharmacyID string `json:"pharmacy_id"`
}

// Manager owns the global restock request collection and its status state
// machine. Advances on one request are serialized under a per-request lock.
type Manager struct {
	store store.Store
	locks *store.KeyedMutex
	now   func() time.Time
}

func NewManager(st store.Store) *Manager {
	return &Manager{store: st, locks: store.NewKeyedMutex(), now: time.Now}
}

// FindByID resolves a request through the request index.
func (m *Manager) FindByID(ctx context.Context, requestID string) (*domain.RestockRequest, error) {
	rec, ok, err := m.store.Get(ctx, store.NamespaceRequestIndex, requestID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.NotFoundError{Kind: "restock request", ID: requestID}
	}
	var idx requestIndexEntry
	if err := json.Unmarshal(rec, &idx); err != nil {
		return nil, &domain.StorageError{Op: "decode", Err: errors.Wrapf(err, "request index %s", requestID)}
	}

	rec, ok, err = m.store.Get(ctx, store.RequestsNamespace(idx.PharmacyID), requestID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.NotFoundError{Kind: "restock request", ID: requestID}
	}
	var req domain.RestockRequest
	if err := json.Unmarshal(rec, &req); err != nil {
		return nil, &domain.StorageError{Op: "decode", Err: errors.Wrapf(err, "request %s", requestID)}
	}
	return &req, nil
}

// Advance moves a request to the immediate successor of its current status.
// The read-validate-write sequence runs as one critical section per request
// so concurrent advances cannot race past each other. On rejection the
// stored request is untouched.
func (m *Manager) Advance(ctx context.Context, requestID string, target domain.Status) (*domain.RestockRequest, error) {
	m.locks.Lock(requestID)
	defer m.locks.Unlock(requestID)

	req, err := m.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !target.Valid() || !req.Status.CanAdvanceTo(target) {
		return nil, &domain.InvalidTransitionError{From: req.Status, To: target}
	}

	req.Status = target
	req.UpdatedAt = m.now().UTC()
	if err := putRequest(ctx, m.store, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ListByPharmacy returns one pharmacy's requests in insertion order.
func (m *Manager) ListByPharmacy(ctx context.Context, pharmacyID string) ([]domain.RestockRequest, error) {
	ns := store.RequestsNamespace(pharmacyID)
	entries, err := m.store.ScanPrefix(ctx, ns)
	if err != nil {
		return nil, err
	}
	requests := make([]domain.RestockRequest, 0, len(entries))
	for _, e := range entries {
		if e.Namespace != ns {
			continue
		}
		var req domain.RestockRequest
		if err := json.Unmarshal(e.Record, &req); err != nil {
			return nil, &domain.StorageError{Op: "decode", Err: errors.Wrapf(err, "request %s", e.Key)}
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// ListAll returns every pharmacy's requests. Ordering across pharmacies is
// unspecified; within one pharmacy insertion order is preserved.
func (m *Manager) ListAll(ctx context.Context) ([]domain.RestockRequest, error) {
	entries, err := m.store.ScanPrefix(ctx, store.RequestsPrefix)
	if err != nil {
		return nil, err
	}
	requests := make([]domain.RestockRequest, 0, len(entries))
	for _, e := range entries {
		var req domain.RestockRequest
		if err := json.Unmarshal(e.Record, &req); err != nil {
			return nil, &domain.StorageError{Op: "decode", Err: errors.Wrapf(err, "request %s", e.Key)}
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// Filter keeps requests matching the given status and priority. An empty
// value matches everything. The result is derived per call, never persisted.
func Filter(requests []domain.RestockRequest, status domain.Status, priority domain.Priority) []domain.RestockRequest {
	out := make([]domain.RestockRequest, 0, len(requests))
	for _, req := range requests {
		if status != "" && req.Status != status {
			continue
		}
		if priority != "" && req.Priority != priority {
			continue
		}
		out = append(out, req)
	}
	return out
}

func putRequest(ctx context.Context, st store.Store, req *domain.RestockRequest) error {
	rec, err := json.Marshal(req)
	if err != nil {
		return &domain.StorageError{Op: "encode", Err: errors.Wrapf(err, "request %s", req.ID)}
	}
	return st.Put(ctx, store.RequestsNamespace(req.PharmacyID), req.ID, rec)
}
