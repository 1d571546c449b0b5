package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kream_tracker/internal/models"
	"kream_tracker/internal/storage"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client     *redis.Client
	DefaultTTL time.Duration
}

func New(ctx context.Context, address string, db int, defautTTL time.Duration) (*RedisRepo, error) {
	const op = "storage.redis.New"

	rdb := redis.NewClient(&redis.Options{
		Addr: address,
		DB:   db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client:     rdb,
		DefaultTTL: defautTTL,
	}, nil
}

// SaveItemDetail кэширует item с историей и сравнением
func (r *RedisRepo) SaveItemDetail(ctx context.Context, detail models.ItemDetail) error {
	const op = "storage.redis.SaveItemDetail"

	data, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	key := itemKey(detail.Item.ID)

	if err := r.client.Set(
		ctx,
		key,
		data,
		r.DefaultTTL,
	).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ItemDetail читает item из кэша
func (r *RedisRepo) ItemDetail(ctx context.Context, itemID int64) (models.ItemDetail, error) {
	const op = "storage.redis.ItemDetail"

	var detail models.ItemDetail

	data, err := r.client.Get(ctx, itemKey(itemID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return detail, storage.ErrItemNotFound
		}
		return detail, fmt.Errorf("%s: %w", op, err)
	}

	if err := json.Unmarshal(data, &detail); err != nil {
		return detail, fmt.Errorf("%s: %w", op, err)
	}

	return detail, nil
}

// InvalidateItem сбрасывает кэш после нового snapshot'а
func (r *RedisRepo) InvalidateItem(ctx context.Context, itemID int64) error {
	const op = "storage.redis.InvalidateItem"

	if err := r.client.Del(ctx, itemKey(itemID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает соединение с базой данных.
func (r *RedisRepo) Close() {
	r.client.Close()
}

func itemKey(itemID int64) string {
	return fmt.Sprintf("item:%d", itemID)
}
