package analyze

import (
	"context"

	"kream_tracker/internal/models"
	"kream_tracker/internal/pricing"
)

type Storage interface {
	UpsertItem(ctx context.Context, url string, data models.ExtractedProduct) (models.Item, error)
	InsertSnapshot(ctx context.Context, itemID int64, source models.SnapshotSource, price int, currency string) error
	Snapshots(ctx context.Context, itemID int64, limit int) ([]models.PriceSnapshot, error)
}

type Cache interface {
	InvalidateItem(ctx context.Context, itemID int64) error
}

type Crawler interface {
	Fetch(ctx context.Context, productURL string) (models.ExtractedProduct, error)
}

// Result — ответ on-demand анализа: свежая цена, история и сравнение.
type Result struct {
	ItemID     int64                  `json:"item_id"`
	Comparison models.PriceComparison `json:"comparison"`
	History    []models.PriceSnapshot `json:"history"`
}

type Operator struct {
	storage   Storage
	cache     Cache
	crawler   Crawler
	rates     pricing.RateProvider
	estimator pricing.ReferencePriceEstimator
}

func New(
	storage Storage,
	cache Cache,
	crawler Crawler,
	rates pricing.RateProvider,
	estimator pricing.ReferencePriceEstimator,
) *Operator {
	return &Operator{
		storage:   storage,
		cache:     cache,
		crawler:   crawler,
		rates:     rates,
		estimator: estimator,
	}
}

// Analyze парсит страницу прямо сейчас, создаёт/обновляет item,
// добавляет snapshot и считает сравнение. Ошибка парсинга уходит
// вызывающему как есть (crawler.ErrExtractionFailed).
func (o *Operator) Analyze(ctx context.Context, url string) (Result, error) {
	data, err := o.crawler.Fetch(ctx, url)
	if err != nil {
		return Result{}, err
	}

	item, err := o.storage.UpsertItem(ctx, url, data)
	if err != nil {
		return Result{}, err
	}

	if err := o.storage.InsertSnapshot(ctx, item.ID, models.SourceKream, data.Price, "KRW"); err != nil {
		return Result{}, err
	}

	_ = o.cache.InvalidateItem(ctx, item.ID)

	history, err := o.storage.Snapshots(ctx, item.ID, 10)
	if err != nil {
		return Result{}, err
	}

	rate, err := o.rates.Rate(ctx)
	if err != nil {
		return Result{}, err
	}

	// японская цена — эвристическая оценка, не рыночная (см. pricing)
	jpPriceJP := o.estimator.Estimate(data.Price, rate)

	comparison, err := pricing.Compare(data.Price, jpPriceJP, rate)
	if err != nil {
		return Result{}, err
	}

	return Result{
		ItemID:     item.ID,
		Comparison: comparison,
		History:    history,
	}, nil
}
