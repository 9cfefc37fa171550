// Package report computes the warehouse-facing cross-pharmacy views. Every
// result is derived on the fly; nothing here mutates or persists state.
package report

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"pharmtrack/m/domain"
	"pharmtrack/m/internal/restock"
	"pharmtrack/m/internal/store"
)

type Aggregator struct {
	store   store.Store
	manager *restock.Manager
}

func New(st store.Store, mgr *restock.Manager) *Aggregator {
	return &Aggregator{store: st, manager: mgr}
}

// SystemWideLowStock unions the low-stock medicines of every known pharmacy.
func (a *Aggregator) SystemWideLowStock(ctx context.Context) ([]domain.Medicine, error) {
	entries, err := a.store.ScanPrefix(ctx, store.MedicinesPrefix)
	if err != nil {
		return nil, err
	}
	low := make([]domain.Medicine, 0)
	for _, e := range entries {
		var med domain.Medicine
		if err := json.Unmarshal(e.Record, &med); err != nil {
			return nil, &domain.StorageError{Op: "decode", Err: errors.Wrapf(err, "medicine %s", e.Key)}
		}
		if med.StockStatus() != domain.InStock {
			low = append(low, med)
		}
	}
	return low, nil
}

// CountsByStatus is a frequency map over all requests.
func (a *Aggregator) CountsByStatus(ctx context.Context) (map[domain.Status]int, error) {
	requests, err := a.manager.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.Status]int)
	for _, req := range requests {
		counts[req.Status]++
	}
	return counts, nil
}

// CountsByPriority is a frequency map over all requests.
func (a *Aggregator) CountsByPriority(ctx context.Context) (map[domain.Priority]int, error) {
	requests, err := a.manager.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[domain.Priority]int)
	for _, req := range requests {
		counts[req.Priority]++
	}
	return counts, nil
}

// Overview is the warehouse dashboard summary.
type Overview struct {
	TotalRequests      int `json:"total_requests"`
	PendingRequests    int `json:"pending_requests"`
	ProcessingRequests int `json:"processing_requests"`
	DeliveredRequests  int `json:"delivered_requests"`
	LowStockMedicines  int `json:"low_stock_medicines"`
}

func (a *Aggregator) Overview(ctx context.Context) (*Overview, error) {
	byStatus, err := a.CountsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	low, err := a.SystemWideLowStock(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range byStatus {
		total += n
	}
	return &Overview{
		TotalRequests:      total,
		PendingRequests:    byStatus[domain.StatusPending],
		ProcessingRequests: byStatus[domain.StatusProcessing],
		DeliveredRequests:  byStatus[domain.StatusDelivered],
		LowStockMedicines:  len(low),
	}, nil
}
