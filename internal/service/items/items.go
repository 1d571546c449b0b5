package items

import (
	"context"
	"errors"

	"kream_tracker/internal/models"
	"kream_tracker/internal/pricing"
	"kream_tracker/internal/storage"
)

type Storage interface {
	ItemByID(ctx context.Context, itemID int64) (models.Item, error)
	Snapshots(ctx context.Context, itemID int64, limit int) ([]models.PriceSnapshot, error)
}

type Cache interface {
	ItemDetail(ctx context.Context, itemID int64) (models.ItemDetail, error)
	SaveItemDetail(ctx context.Context, detail models.ItemDetail) error
}

// historyLimit — сколько snapshot'ов отдаём в истории цен
const historyLimit = 30

type Operator struct {
	storage   Storage
	cache     Cache
	rates     pricing.RateProvider
	estimator pricing.ReferencePriceEstimator
}

func New(storage Storage, cache Cache, rates pricing.RateProvider, estimator pricing.ReferencePriceEstimator) *Operator {
	return &Operator{
		storage:   storage,
		cache:     cache,
		rates:     rates,
		estimator: estimator,
	}
}

// Detail возвращает item с историей цен и сравнением. Сравнение nil,
// если по item'у нет ни одного KREAM snapshot'а. Кэш читается первым,
// промах заполняется best-effort.
func (o *Operator) Detail(ctx context.Context, itemID int64) (models.ItemDetail, error) {
	detail, err := o.cache.ItemDetail(ctx, itemID)
	switch {
	case err == nil:
		return detail, nil

	case !errors.Is(err, storage.ErrItemNotFound):
		return models.ItemDetail{}, err
	}

	item, err := o.storage.ItemByID(ctx, itemID)
	if err != nil {
		return models.ItemDetail{}, err
	}

	history, err := o.storage.Snapshots(ctx, itemID, historyLimit)
	if err != nil {
		return models.ItemDetail{}, err
	}

	detail = models.ItemDetail{
		Item:         item,
		PriceHistory: history,
	}

	if latest, ok := latestKreamSnapshot(history); ok {
		rate, err := o.rates.Rate(ctx)
		if err != nil {
			return models.ItemDetail{}, err
		}

		jpPriceJP := o.estimator.Estimate(latest.Price, rate)

		comparison, err := pricing.Compare(latest.Price, jpPriceJP, rate)
		if err != nil {
			return models.ItemDetail{}, err
		}

		detail.Comparison = &comparison
	}

	_ = o.cache.SaveItemDetail(ctx, detail)

	return detail, nil
}

// latestKreamSnapshot находит первый KREAM snapshot в истории
// (история отсортирована по captured_at по убыванию).
func latestKreamSnapshot(history []models.PriceSnapshot) (models.PriceSnapshot, bool) {
	for _, s := range history {
		if s.Source == models.SourceKream {
			return s, true
		}
	}
	return models.PriceSnapshot{}, false
}
