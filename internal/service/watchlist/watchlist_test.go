package watchlist

import (
	"context"
	"testing"

	"kream_tracker/internal/config"
	"kream_tracker/internal/models"
	"kream_tracker/internal/storage"

	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	user    models.User
	entries map[int64]map[int64]struct{} // userID -> itemID set
	nextID  int64
}

func newFakeStorage(plan models.Plan) *fakeStorage {
	return &fakeStorage{
		user:    models.User{ID: 1, Email: "u@example.com", Plan: plan},
		entries: map[int64]map[int64]struct{}{},
		nextID:  1,
	}
}

func (f *fakeStorage) UserByID(ctx context.Context, userID int64) (models.User, error) {
	return f.user, nil
}

func (f *fakeStorage) CountWatchEntries(ctx context.Context, userID int64) (int64, error) {
	return int64(len(f.entries[userID])), nil
}

func (f *fakeStorage) AddWatchEntry(ctx context.Context, userID, itemID int64, jpReferencePrice *int, currency string) (int64, error) {
	if _, ok := f.entries[userID][itemID]; ok {
		return 0, storage.ErrAlreadyWatching
	}
	if f.entries[userID] == nil {
		f.entries[userID] = map[int64]struct{}{}
	}
	f.entries[userID][itemID] = struct{}{}
	f.nextID++
	return f.nextID, nil
}

func (f *fakeStorage) DeleteWatchEntry(ctx context.Context, userID, itemID int64) error {
	if _, ok := f.entries[userID][itemID]; !ok {
		return storage.ErrWatchEntryNotFound
	}
	delete(f.entries[userID], itemID)
	return nil
}

func (f *fakeStorage) WatchlistByUser(ctx context.Context, userID int64) ([]models.WatchlistRow, error) {
	return nil, nil
}

func testPlans() config.Plans {
	return config.Plans{FreeWatchLimit: 3, ProWatchLimit: 50}
}

func TestAddFreePlanLimit(t *testing.T) {
	st := newFakeStorage(models.PlanFree)
	op := New(st, testPlans())

	// entries 1..3 succeed
	for itemID := int64(1); itemID <= 3; itemID++ {
		_, err := op.Add(context.Background(), 1, itemID, nil, "")
		require.NoError(t, err)
	}

	// entry 4 is rejected with the plan limit
	_, err := op.Add(context.Background(), 1, 4, nil, "")

	var limitErr *LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	require.Equal(t, models.PlanFree, limitErr.Plan)
	require.Equal(t, 3, limitErr.Max)
}

func TestAddProPlanLimit(t *testing.T) {
	st := newFakeStorage(models.PlanPro)
	op := New(st, testPlans())

	for itemID := int64(1); itemID <= 50; itemID++ {
		_, err := op.Add(context.Background(), 1, itemID, nil, "")
		require.NoError(t, err)
	}

	_, err := op.Add(context.Background(), 1, 51, nil, "")

	var limitErr *LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	require.Equal(t, 50, limitErr.Max)
}

func TestAddDuplicateEntry(t *testing.T) {
	st := newFakeStorage(models.PlanFree)
	op := New(st, testPlans())

	_, err := op.Add(context.Background(), 1, 7, nil, "")
	require.NoError(t, err)

	_, err = op.Add(context.Background(), 1, 7, nil, "")
	require.ErrorIs(t, err, storage.ErrAlreadyWatching)
}

func TestRemoveMissingEntry(t *testing.T) {
	st := newFakeStorage(models.PlanFree)
	op := New(st, testPlans())

	err := op.Remove(context.Background(), 1, 99)
	require.ErrorIs(t, err, storage.ErrWatchEntryNotFound)
}
