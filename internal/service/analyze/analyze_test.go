package analyze

import (
	"context"
	"testing"

	"kream_tracker/internal/crawler"
	"kream_tracker/internal/models"
	"kream_tracker/internal/pricing"

	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	item      models.Item
	snapshots []models.PriceSnapshot
}

func (f *fakeStorage) UpsertItem(ctx context.Context, url string, data models.ExtractedProduct) (models.Item, error) {
	f.item = models.Item{ID: 10, KreamURL: url, Title: data.Title, Brand: data.Brand}
	return f.item, nil
}

func (f *fakeStorage) InsertSnapshot(ctx context.Context, itemID int64, source models.SnapshotSource, price int, currency string) error {
	f.snapshots = append(f.snapshots, models.PriceSnapshot{ItemID: itemID, Source: source, Price: price, Currency: currency})
	return nil
}

func (f *fakeStorage) Snapshots(ctx context.Context, itemID int64, limit int) ([]models.PriceSnapshot, error) {
	return f.snapshots, nil
}

type fakeCache struct{}

func (fakeCache) InvalidateItem(ctx context.Context, itemID int64) error { return nil }

type fakeCrawler struct {
	product models.ExtractedProduct
	err     error
}

func (f *fakeCrawler) Fetch(ctx context.Context, productURL string) (models.ExtractedProduct, error) {
	if f.err != nil {
		return models.ExtractedProduct{}, f.err
	}
	return f.product, nil
}

func TestAnalyze(t *testing.T) {
	st := &fakeStorage{}
	c := &fakeCrawler{product: models.ExtractedProduct{Title: "Dunk Low", Brand: "Nike", Price: 100000}}

	op := New(st, fakeCache{}, c, pricing.NewFixedRateProvider(9.5), pricing.HeuristicEstimator{})

	result, err := op.Analyze(context.Background(), "https://kream.co.kr/products/10")
	require.NoError(t, err)

	require.Equal(t, int64(10), result.ItemID)
	require.Equal(t, 100000, result.Comparison.KreamPriceKR)
	require.Len(t, result.History, 1)
	require.Equal(t, models.SourceKream, result.History[0].Source)
	require.Equal(t, 100000, result.History[0].Price)
}

func TestAnalyzeExtractionError(t *testing.T) {
	c := &fakeCrawler{err: crawler.ErrExtractionFailed}

	op := New(&fakeStorage{}, fakeCache{}, c, pricing.NewFixedRateProvider(9.5), pricing.HeuristicEstimator{})

	_, err := op.Analyze(context.Background(), "https://kream.co.kr/products/10")
	require.ErrorIs(t, err, crawler.ErrExtractionFailed)
}
