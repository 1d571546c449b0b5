package sweep

import (
	"context"
	"log/slog"
	"time"

	sl "kream_tracker/internal/lib/logger"
	"kream_tracker/internal/models"
	"kream_tracker/internal/pricing"
)

type Storage interface {
	WatchTuples(ctx context.Context) ([]models.WatchTuple, error)
	InsertSnapshot(ctx context.Context, itemID int64, source models.SnapshotSource, price int, currency string) error
	UpdateItemData(ctx context.Context, itemID int64, data models.ExtractedProduct) error
	ActiveAlertsByItem(ctx context.Context, itemID int64) ([]models.PriceAlert, error)
	UserByID(ctx context.Context, userID int64) (models.User, error)
}

type Cache interface {
	InvalidateItem(ctx context.Context, itemID int64) error
}

type Crawler interface {
	Fetch(ctx context.Context, productURL string) (models.ExtractedProduct, error)
}

type Publisher interface {
	PublishJSON(ctx context.Context, msg any) error
}

// SweepLease держит эксклюзивную блокировку на время sweep'а
type SweepLease interface {
	Release(ctx context.Context)
}

type SweepLocker interface {
	AcquireSweepLock(ctx context.Context) (SweepLease, error)
}

type Summary struct {
	Processed       int `json:"processed"`
	AlertsTriggered int `json:"alerts_triggered"`
}

type Sweeper struct {
	log       *slog.Logger
	storage   Storage
	cache     Cache
	locker    SweepLocker
	crawler   Crawler
	rates     pricing.RateProvider
	estimator pricing.ReferencePriceEstimator
	publisher Publisher

	// пауза между item'ами, чтобы не долбить KREAM
	interItemWait time.Duration
}

func New(
	log *slog.Logger,
	storage Storage,
	cache Cache,
	locker SweepLocker,
	crawler Crawler,
	rates pricing.RateProvider,
	estimator pricing.ReferencePriceEstimator,
	publisher Publisher,
	interItemWait time.Duration,
) *Sweeper {
	return &Sweeper{
		log:           log,
		storage:       storage,
		cache:         cache,
		locker:        locker,
		crawler:       crawler,
		rates:         rates,
		estimator:     estimator,
		publisher:     publisher,
		interItemWait: interItemWait,
	}
}

// Run обновляет цены по всем отслеживаемым item'ам и рассылает алерты.
// Каждый item обрабатывается не более одного раза за проход. Ошибка
// по одному item'у никогда не прерывает весь проход.
func (s *Sweeper) Run(ctx context.Context) (Summary, error) {
	const op = "sweep.Run"

	log := s.log.With(slog.String("op", op))

	// защита от перекрывающихся запусков (store-level lock)
	lease, err := s.locker.AcquireSweepLock(ctx)
	if err != nil {
		return Summary{}, err
	}
	defer lease.Release(ctx)

	tuples, err := s.storage.WatchTuples(ctx)
	if err != nil {
		return Summary{}, err
	}

	if len(tuples) == 0 {
		log.Info("no items to refresh")
		return Summary{}, nil
	}

	rate, err := s.rates.Rate(ctx)
	if err != nil {
		return Summary{}, err
	}

	var summary Summary

	seen := make(map[int64]struct{}, len(tuples))

	for _, t := range tuples {
		if _, ok := seen[t.Item.ID]; ok {
			continue
		}
		seen[t.Item.ID] = struct{}{}

		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if s.refreshItem(ctx, log, t, rate, &summary) {
			summary.Processed++
		}

		if err := s.wait(ctx); err != nil {
			return summary, err
		}
	}

	log.Info("sweep finished",
		slog.Int("processed", summary.Processed),
		slog.Int("alerts_triggered", summary.AlertsTriggered),
	)

	return summary, nil
}

// refreshItem обновляет один item. Возвращает true, если snapshot
// записан и item считается обработанным.
func (s *Sweeper) refreshItem(ctx context.Context, log *slog.Logger, t models.WatchTuple, rate float64, summary *Summary) bool {
	log = log.With(slog.Int64("item_id", t.Item.ID))

	data, err := s.crawler.Fetch(ctx, t.Item.KreamURL)
	if err != nil {
		log.Warn("failed to crawl item", slog.String("url", t.Item.KreamURL), sl.Err(err))
		return false
	}

	if err := s.storage.InsertSnapshot(ctx, t.Item.ID, models.SourceKream, data.Price, "KRW"); err != nil {
		log.Error("failed to insert snapshot", sl.Err(err))
		return false
	}

	if err := s.storage.UpdateItemData(ctx, t.Item.ID, data); err != nil {
		log.Error("failed to update item", sl.Err(err))
		return false
	}

	if err := s.cache.InvalidateItem(ctx, t.Item.ID); err != nil {
		log.Warn("failed to invalidate item cache", sl.Err(err))
	}

	alerts, err := s.storage.ActiveAlertsByItem(ctx, t.Item.ID)
	if err != nil {
		log.Error("failed to load alerts", sl.Err(err))
		return true
	}

	if len(alerts) == 0 {
		return true
	}

	// референс-цена: значение пользователя, если задано, иначе
	// эвристическая оценка (синтетика, не рыночная цена)
	jpPriceJP := 0
	if t.Entry.JPReferencePrice != nil {
		jpPriceJP = *t.Entry.JPReferencePrice
	} else {
		jpPriceJP = s.estimator.Estimate(data.Price, rate)
	}

	comparison, err := pricing.Compare(data.Price, jpPriceJP, rate)
	if err != nil {
		log.Warn("failed to compute comparison", sl.Err(err))
		return true
	}

	for _, alert := range alerts {
		if !triggered(alert, comparison.DiffPercent) {
			continue
		}

		summary.AlertsTriggered++

		s.dispatch(ctx, log, alert, t.Item, comparison)
	}

	return true
}

// triggered — алерты level-triggered: срабатывают каждый проход,
// пока условие выполняется.
func triggered(alert models.PriceAlert, diffPercent float64) bool {
	switch alert.Direction {
	case models.KRMoreExpensive:
		return diffPercent >= alert.ThresholdPercent
	case models.JPMoreExpensive:
		return diffPercent <= -alert.ThresholdPercent
	default:
		return false
	}
}

// dispatch публикует уведомление. Ошибка доставки никогда не
// прерывает sweep.
func (s *Sweeper) dispatch(ctx context.Context, log *slog.Logger, alert models.PriceAlert, item models.Item, comparison models.PriceComparison) {
	user, err := s.storage.UserByID(ctx, alert.UserID)
	if err != nil {
		log.Error("failed to resolve alert user",
			slog.Int64("alert_id", alert.ID),
			sl.Err(err),
		)
		return
	}

	notification := models.AlertNotification{
		AlertID:      alert.ID,
		Email:        user.Email,
		ItemID:       item.ID,
		ItemTitle:    item.Title,
		KreamPriceKR: comparison.KreamPriceKR,
		JPPriceJP:    comparison.JPPriceJP,
		JPPriceKR:    comparison.JPPriceKR,
		DiffPercent:  comparison.DiffPercent,
	}

	if err := s.publisher.PublishJSON(ctx, notification); err != nil {
		log.Error("failed to publish notification",
			slog.Int64("alert_id", alert.ID),
			sl.Err(err),
		)
	}
}

func (s *Sweeper) wait(ctx context.Context) error {
	if s.interItemWait <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.interItemWait):
		return nil
	}
}
