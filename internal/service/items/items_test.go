package items

import (
	"context"
	"testing"
	"time"

	"kream_tracker/internal/models"
	"kream_tracker/internal/pricing"
	"kream_tracker/internal/storage"

	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	item     models.Item
	itemErr  error
	history  []models.PriceSnapshot
	askLimit int
}

func (f *fakeStorage) ItemByID(ctx context.Context, itemID int64) (models.Item, error) {
	if f.itemErr != nil {
		return models.Item{}, f.itemErr
	}
	return f.item, nil
}

func (f *fakeStorage) Snapshots(ctx context.Context, itemID int64, limit int) ([]models.PriceSnapshot, error) {
	f.askLimit = limit
	return f.history, nil
}

type fakeCache struct {
	detail models.ItemDetail
	hit    bool
	saved  *models.ItemDetail
}

func (f *fakeCache) ItemDetail(ctx context.Context, itemID int64) (models.ItemDetail, error) {
	if f.hit {
		return f.detail, nil
	}
	return models.ItemDetail{}, storage.ErrItemNotFound
}

func (f *fakeCache) SaveItemDetail(ctx context.Context, detail models.ItemDetail) error {
	f.saved = &detail
	return nil
}

func newOperator(st *fakeStorage, cache *fakeCache) *Operator {
	return New(st, cache, pricing.NewFixedRateProvider(9.5), pricing.HeuristicEstimator{})
}

func TestDetailCacheHit(t *testing.T) {
	cached := models.ItemDetail{Item: models.Item{ID: 10, Title: "cached"}}
	cache := &fakeCache{detail: cached, hit: true}
	st := &fakeStorage{}

	detail, err := newOperator(st, cache).Detail(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, "cached", detail.Item.Title)
	require.Zero(t, st.askLimit)
}

func TestDetailComputesComparison(t *testing.T) {
	now := time.Now()
	st := &fakeStorage{
		item: models.Item{ID: 10, Title: "Dunk Low"},
		history: []models.PriceSnapshot{
			{ItemID: 10, Source: models.SourceJPResale, Price: 8000, Currency: "JPY", Captured_at: now},
			{ItemID: 10, Source: models.SourceKream, Price: 100000, Currency: "KRW", Captured_at: now.Add(-time.Hour)},
		},
	}
	cache := &fakeCache{}

	detail, err := newOperator(st, cache).Detail(context.Background(), 10)
	require.NoError(t, err)

	require.Equal(t, 30, st.askLimit)
	require.NotNil(t, detail.Comparison)
	// comparison uses the latest KREAM snapshot, not the JP one
	require.Equal(t, 100000, detail.Comparison.KreamPriceKR)
	require.NotNil(t, cache.saved)
}

func TestDetailNoKreamSnapshot(t *testing.T) {
	st := &fakeStorage{
		item: models.Item{ID: 10},
		history: []models.PriceSnapshot{
			{ItemID: 10, Source: models.SourceJPRetail, Price: 8000, Currency: "JPY"},
		},
	}

	detail, err := newOperator(st, &fakeCache{}).Detail(context.Background(), 10)
	require.NoError(t, err)
	require.Nil(t, detail.Comparison)
}

func TestDetailItemNotFound(t *testing.T) {
	st := &fakeStorage{itemErr: storage.ErrItemNotFound}

	_, err := newOperator(st, &fakeCache{}).Detail(context.Background(), 10)
	require.ErrorIs(t, err, storage.ErrItemNotFound)
}
