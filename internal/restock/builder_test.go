package restock_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmtrack/m/domain"
	"pharmtrack/m/internal/ledger"
	"pharmtrack/m/internal/restock"
	"pharmtrack/m/internal/store"
)

const pharmacyID = "ph-1"

type fixture struct {
	store   *store.MemStore
	ledger  *ledger.Service
	builder *restock.Builder
	manager *restock.Manager
}

func newFixture() *fixture {
	st := store.NewMemStore()
	led := ledger.New(st)
	return &fixture{
		store:   st,
		ledger:  led,
		builder: restock.NewBuilder(st, led),
		manager: restock.NewManager(st),
	}
}

func (f *fixture) addMedicine(t *testing.T, name string, quantity, threshold int) *domain.Medicine {
	t.Helper()
	med, err := f.ledger.Add(context.Background(), pharmacyID, ledger.MedicineInput{
		Name:       name,
		Quantity:   quantity,
		Threshold:  threshold,
		ExpiryDate: "2026-03-01",
		UnitPrice:  "1",
	})
	require.NoError(t, err)
	return med
}

func (f *fixture) saveProfile(t *testing.T, profile domain.PharmacyProfile) {
	t.Helper()
	rec, err := json.Marshal(profile)
	require.NoError(t, err)
	require.NoError(t, f.store.Put(context.Background(), store.NamespaceProfiles, pharmacyID, rec))
}

func TestSuggestedQuantity(t *testing.T) {
	cases := []struct {
		quantity  int
		threshold int
		want      int
	}{
		{5, 10, 15},
		{0, 10, 20},
		{12, 10, 10},
		{2, 10, 18},
		{10, 10, 10},
		{0, 1, 2},
	}
	for _, tc := range cases {
		med := domain.Medicine{Quantity: tc.quantity, Threshold: tc.threshold}
		assert.Equal(t, tc.want, restock.SuggestedQuantity(med), "q=%d t=%d", tc.quantity, tc.threshold)
	}
}

func TestClampQuantity(t *testing.T) {
	assert.Equal(t, 7, restock.ClampQuantity("7"))
	assert.Equal(t, 7, restock.ClampQuantity(" 7 "))
	assert.Equal(t, 1, restock.ClampQuantity("0"))
	assert.Equal(t, 1, restock.ClampQuantity("-3"))
	assert.Equal(t, 1, restock.ClampQuantity("abc"))
	assert.Equal(t, 1, restock.ClampQuantity(""))
}

func TestDraftFromLowStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	low := f.addMedicine(t, "Paracetamol", 2, 10)
	f.addMedicine(t, "Ibuprofen", 50, 10)

	items, err := f.builder.DraftFromLowStock(ctx, pharmacyID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, low.ID, items[0].MedicineID)
	assert.Equal(t, "Paracetamol", items[0].MedicineName)
	assert.Equal(t, 2, items[0].CurrentQuantity)
	assert.Equal(t, 10, items[0].Threshold)
	assert.Equal(t, 18, items[0].RequestedQuantity)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.saveProfile(t, domain.PharmacyProfile{
		PharmacyName: "Green Cross",
		Address:      "12 Hill Rd",
		City:         "Springfield",
		State:        "IL",
		Phone:        "555-0101",
	})
	f.addMedicine(t, "Paracetamol", 2, 10)

	items, err := f.builder.DraftFromLowStock(ctx, pharmacyID)
	require.NoError(t, err)

	req, err := f.builder.Submit(ctx, pharmacyID, items, domain.PriorityHigh, "1-2 days", "leave at back door")
	require.NoError(t, err)

	assert.NotEmpty(t, req.ID)
	assert.Equal(t, pharmacyID, req.PharmacyID)
	assert.Equal(t, domain.StatusPending, req.Status)
	assert.Equal(t, 1, req.TotalItems)
	assert.Equal(t, 18, req.TotalQuantity)
	assert.Equal(t, "Green Cross", req.PharmacyName)
	assert.Equal(t, "12 Hill Rd, Springfield, IL", req.PharmacyAddress)
	assert.Equal(t, "555-0101", req.PharmacyPhone)
	assert.Equal(t, req.CreatedAt, req.UpdatedAt)

	items2, quantity := req.RecomputeTotals()
	assert.Equal(t, req.TotalItems, items2)
	assert.Equal(t, req.TotalQuantity, quantity)
}

func TestSubmitEmptySelection(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.builder.Submit(ctx, pharmacyID, nil, domain.PriorityLow, "1 week", "")
	var empty *domain.EmptySelectionError
	require.ErrorAs(t, err, &empty)

	all, err := f.manager.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all, "nothing persisted on rejection")
}

func TestSubmitValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	items := []domain.RequestLineItem{{MedicineID: "m1", MedicineName: "X", RequestedQuantity: 0}}

	_, err := f.builder.Submit(ctx, pharmacyID, items, domain.Priority("urgent"), "someday", "")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.ElementsMatch(t, []string{"requested_quantity", "priority", "delivery_timeline"}, verr.Fields)

	all, err := f.manager.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSubmitMissingProfileUsesPlaceholders(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	items := []domain.RequestLineItem{{MedicineID: "m1", MedicineName: "X", RequestedQuantity: 3}}

	req, err := f.builder.Submit(ctx, pharmacyID, items, domain.PriorityMedium, "3-5 days", "")
	require.NoError(t, err)
	assert.Equal(t, "Unknown Pharmacy", req.PharmacyName)
	assert.Equal(t, "Address not provided", req.PharmacyAddress)
	assert.Equal(t, "Phone not provided", req.PharmacyPhone)
}

func TestSubmitSnapshotSurvivesProfileEdits(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.saveProfile(t, domain.PharmacyProfile{PharmacyName: "Old Name", Phone: "111"})

	items := []domain.RequestLineItem{{MedicineID: "m1", MedicineName: "X", RequestedQuantity: 3}}
	req, err := f.builder.Submit(ctx, pharmacyID, items, domain.PriorityLow, "2 weeks", "")
	require.NoError(t, err)

	f.saveProfile(t, domain.PharmacyProfile{PharmacyName: "New Name", Phone: "222"})

	got, err := f.manager.FindByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "Old Name", got.PharmacyName)
	assert.Equal(t, "111", got.PharmacyPhone)
}

func TestOverlappingRequestsAllowed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.addMedicine(t, "Paracetamol", 2, 10)

	items, err := f.builder.DraftFromLowStock(ctx, pharmacyID)
	require.NoError(t, err)

	_, err = f.builder.Submit(ctx, pharmacyID, items, domain.PriorityLow, "1 week", "")
	require.NoError(t, err)
	_, err = f.builder.Submit(ctx, pharmacyID, items, domain.PriorityLow, "1 week", "")
	require.NoError(t, err, "the same medicine may appear in concurrent outstanding requests")

	all, err := f.manager.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
