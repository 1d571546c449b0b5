package watchlist

import (
	"context"
	"fmt"

	"kream_tracker/internal/config"
	"kream_tracker/internal/models"
)

type Storage interface {
	UserByID(ctx context.Context, userID int64) (models.User, error)
	CountWatchEntries(ctx context.Context, userID int64) (int64, error)
	AddWatchEntry(ctx context.Context, userID, itemID int64, jpReferencePrice *int, currency string) (int64, error)
	DeleteWatchEntry(ctx context.Context, userID, itemID int64) error
	WatchlistByUser(ctx context.Context, userID int64) ([]models.WatchlistRow, error)
}

// LimitExceededError возвращается, когда план пользователя не
// позволяет добавить ещё одну подписку.
type LimitExceededError struct {
	Plan models.Plan
	Max  int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("watchlist limit reached: plan %s allows up to %d items", e.Plan, e.Max)
}

type Operator struct {
	storage Storage
	plans   config.Plans
}

func New(storage Storage, plans config.Plans) *Operator {
	return &Operator{
		storage: storage,
		plans:   plans,
	}
}

// Add добавляет подписку с учётом лимита плана. Дубликат (user, item)
// отклоняется на уровне стораджа (storage.ErrAlreadyWatching).
func (o *Operator) Add(ctx context.Context, userID, itemID int64, jpReferencePrice *int, currency string) (int64, error) {
	user, err := o.storage.UserByID(ctx, userID)
	if err != nil {
		return 0, err
	}

	limit := o.plans.FreeWatchLimit
	if user.Plan == models.PlanPro {
		limit = o.plans.ProWatchLimit
	}

	count, err := o.storage.CountWatchEntries(ctx, userID)
	if err != nil {
		return 0, err
	}

	if count >= int64(limit) {
		return 0, &LimitExceededError{Plan: user.Plan, Max: limit}
	}

	if currency == "" {
		currency = "JPY"
	}

	return o.storage.AddWatchEntry(ctx, userID, itemID, jpReferencePrice, currency)
}

func (o *Operator) Remove(ctx context.Context, userID, itemID int64) error {
	return o.storage.DeleteWatchEntry(ctx, userID, itemID)
}

func (o *Operator) List(ctx context.Context, userID int64) ([]models.WatchlistRow, error) {
	return o.storage.WatchlistByUser(ctx, userID)
}
