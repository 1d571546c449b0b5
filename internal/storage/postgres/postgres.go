package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kream_tracker/internal/config"
	"kream_tracker/internal/models"
	"kream_tracker/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// sweepLockKey is the advisory lock key guarding the refresh sweep.
const sweepLockKey = 7201945

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%s: ping failed: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

// UpsertItem creates the item for a KREAM URL on first extraction and
// refreshes its descriptive fields on every later one.
func (r *PostgresRepo) UpsertItem(ctx context.Context, url string, data models.ExtractedProduct) (models.Item, error) {
	const op = "storage.postgres.UpsertItem"

	const query = `
		INSERT INTO items (kream_url, title, brand, model_code, image_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (kream_url) DO UPDATE
		SET title = EXCLUDED.title,
			brand = EXCLUDED.brand,
			model_code = EXCLUDED.model_code,
			image_url = EXCLUDED.image_url,
			updated_at = now()
		RETURNING id, kream_url, title, brand, model_code, image_url, created_at, updated_at
	`

	rows, err := r.pool.Query(ctx, query, url, data.Title, data.Brand, data.ModelCode, data.ImageURL)
	if err != nil {
		return models.Item{}, fmt.Errorf("%s: %w", op, err)
	}

	item, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Item])
	if err != nil {
		return models.Item{}, fmt.Errorf("%s: collect: %w", op, err)
	}

	return item, nil
}

// ItemByID возвращает item по ID
func (r *PostgresRepo) ItemByID(ctx context.Context, itemID int64) (models.Item, error) {
	const op = "storage.postgres.ItemByID"

	const query = `
		SELECT id, kream_url, title, brand, model_code, image_url, created_at, updated_at
		FROM items
		WHERE id = $1
	`

	rows, err := r.pool.Query(ctx, query, itemID)
	if err != nil {
		return models.Item{}, fmt.Errorf("%s: %w", op, err)
	}

	item, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.Item])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Item{}, storage.ErrItemNotFound
		}

		return models.Item{}, fmt.Errorf("%s: collect: %w", op, err)
	}

	return item, nil
}

// UpdateItemData обновляет описание item'а после успешного парсинга
func (r *PostgresRepo) UpdateItemData(ctx context.Context, itemID int64, data models.ExtractedProduct) error {
	const op = "storage.postgres.UpdateItemData"

	const query = `
		UPDATE items
		SET title = $1,
			brand = $2,
			model_code = $3,
			image_url = $4,
			updated_at = now()
		WHERE id = $5
	`

	cmd, err := r.pool.Exec(ctx, query, data.Title, data.Brand, data.ModelCode, data.ImageURL, itemID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmd.RowsAffected() == 0 {
		return storage.ErrItemNotFound
	}

	return nil
}

// InsertSnapshot добавляет новое наблюдение цены (append-only)
func (r *PostgresRepo) InsertSnapshot(ctx context.Context, itemID int64, source models.SnapshotSource, price int, currency string) error {
	const op = "storage.postgres.InsertSnapshot"

	const query = `
		INSERT INTO price_snapshots (item_id, source, price, currency)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.pool.Exec(ctx, query, itemID, source, price, currency)
	if err != nil {
		if pgErr := (*pgconn.PgError)(nil); errors.As(err, &pgErr) && pgErr.Code == storage.ForeignKeyViolation {
			return storage.ErrItemNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Snapshots возвращает последние наблюдения цены (descending by capture time)
func (r *PostgresRepo) Snapshots(ctx context.Context, itemID int64, limit int) ([]models.PriceSnapshot, error) {
	const op = "storage.postgres.Snapshots"

	const query = `
		SELECT id, item_id, source, price, currency, captured_at
		FROM price_snapshots
		WHERE item_id = $1
		ORDER BY captured_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	snapshots, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.PriceSnapshot])
	if err != nil {
		return nil, fmt.Errorf("%s: collect: %w", op, err)
	}

	return snapshots, nil
}

// UserByID возвращает пользователя (email + plan)
func (r *PostgresRepo) UserByID(ctx context.Context, userID int64) (models.User, error) {
	const op = "storage.postgres.UserByID"

	const query = `
		SELECT id, email, plan, created_at
		FROM users
		WHERE id = $1
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	user, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[models.User])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, fmt.Errorf("%s: collect: %w", op, err)
	}

	return user, nil
}

// AddWatchEntry добавляет (user, item) подписку
func (r *PostgresRepo) AddWatchEntry(ctx context.Context, userID, itemID int64, jpReferencePrice *int, currency string) (int64, error) {
	const op = "storage.postgres.AddWatchEntry"

	const query = `
		INSERT INTO watch_entries (user_id, item_id, jp_reference_price, currency)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	var id int64

	err := r.pool.QueryRow(ctx, query, userID, itemID, jpReferencePrice, currency).Scan(&id)
	if err != nil {
		if pgErr := (*pgconn.PgError)(nil); errors.As(err, &pgErr) {
			switch pgErr.Code {
			case storage.UniqueViolation:
				return 0, storage.ErrAlreadyWatching
			case storage.ForeignKeyViolation:
				return 0, storage.ErrItemNotFound
			}
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// DeleteWatchEntry удаляет подписку по userID и itemID
func (r *PostgresRepo) DeleteWatchEntry(ctx context.Context, userID, itemID int64) error {
	const op = "storage.postgres.DeleteWatchEntry"

	const query = `
		DELETE FROM watch_entries
		WHERE user_id = $1 AND item_id = $2
	`

	cmd, err := r.pool.Exec(ctx, query, userID, itemID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmd.RowsAffected() == 0 {
		return storage.ErrWatchEntryNotFound
	}

	return nil
}

// CountWatchEntries возвращает число подписок пользователя (plan limits)
func (r *PostgresRepo) CountWatchEntries(ctx context.Context, userID int64) (int64, error) {
	const op = "storage.postgres.CountWatchEntries"

	const query = `SELECT COUNT(*) FROM watch_entries WHERE user_id = $1`

	var count int64

	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// WatchlistByUser возвращает подписки пользователя вместе с item'ами
func (r *PostgresRepo) WatchlistByUser(ctx context.Context, userID int64) ([]models.WatchlistRow, error) {
	const op = "storage.postgres.WatchlistByUser"

	const query = `
		SELECT
			w.id, w.user_id, w.item_id, w.jp_reference_price, w.currency, w.created_at,
			i.id AS i_id, i.kream_url, i.title, i.brand, i.model_code, i.image_url,
			i.created_at AS i_created_at, i.updated_at AS i_updated_at
		FROM watch_entries w
		JOIN items i ON i.id = w.item_id
		WHERE w.user_id = $1
		ORDER BY w.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []models.WatchlistRow

	for rows.Next() {
		var row models.WatchlistRow

		err := rows.Scan(
			&row.Entry.ID,
			&row.Entry.UserID,
			&row.Entry.ItemID,
			&row.Entry.JPReferencePrice,
			&row.Entry.Currency,
			&row.Entry.Created_at,
			&row.Item.ID,
			&row.Item.KreamURL,
			&row.Item.Title,
			&row.Item.Brand,
			&row.Item.ModelCode,
			&row.Item.ImageURL,
			&row.Item.Created_at,
			&row.Item.Updated_at,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}

		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return result, nil
}

// WatchTuples возвращает рабочий набор для sweep'а:
// (watch entry, item, user) по всем активным подпискам
func (r *PostgresRepo) WatchTuples(ctx context.Context) ([]models.WatchTuple, error) {
	const op = "storage.postgres.WatchTuples"

	const query = `
		SELECT
			w.id, w.user_id, w.item_id, w.jp_reference_price, w.currency, w.created_at,
			i.id, i.kream_url, i.title, i.brand, i.model_code, i.image_url, i.created_at, i.updated_at,
			u.id, u.email, u.plan, u.created_at
		FROM watch_entries w
		JOIN items i ON i.id = w.item_id
		JOIN users u ON u.id = w.user_id
		ORDER BY w.created_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var tuples []models.WatchTuple

	for rows.Next() {
		var t models.WatchTuple

		err := rows.Scan(
			&t.Entry.ID,
			&t.Entry.UserID,
			&t.Entry.ItemID,
			&t.Entry.JPReferencePrice,
			&t.Entry.Currency,
			&t.Entry.Created_at,
			&t.Item.ID,
			&t.Item.KreamURL,
			&t.Item.Title,
			&t.Item.Brand,
			&t.Item.ModelCode,
			&t.Item.ImageURL,
			&t.Item.Created_at,
			&t.Item.Updated_at,
			&t.User.ID,
			&t.User.Email,
			&t.User.Plan,
			&t.User.Created_at,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}

		tuples = append(tuples, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}

	return tuples, nil
}

// ActiveAlertsByItem возвращает активные алерты по item'у
func (r *PostgresRepo) ActiveAlertsByItem(ctx context.Context, itemID int64) ([]models.PriceAlert, error) {
	const op = "storage.postgres.ActiveAlertsByItem"

	const query = `
		SELECT id, user_id, item_id, direction, threshold_percent, is_active, created_at
		FROM price_alerts
		WHERE item_id = $1 AND is_active = true
	`

	rows, err := r.pool.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	alerts, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.PriceAlert])
	if err != nil {
		return nil, fmt.Errorf("%s: collect: %w", op, err)
	}

	return alerts, nil
}

// AlertsByUser возвращает все алерты пользователя
func (r *PostgresRepo) AlertsByUser(ctx context.Context, userID int64) ([]models.PriceAlert, error) {
	const op = "storage.postgres.AlertsByUser"

	const query = `
		SELECT id, user_id, item_id, direction, threshold_percent, is_active, created_at
		FROM price_alerts
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	alerts, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.PriceAlert])
	if err != nil {
		return nil, fmt.Errorf("%s: collect: %w", op, err)
	}

	return alerts, nil
}

// UpsertAlert создаёт или обновляет алерт: не более одного на (user, item)
func (r *PostgresRepo) UpsertAlert(ctx context.Context, alert models.PriceAlert) (int64, error) {
	const op = "storage.postgres.UpsertAlert"

	const query = `
		INSERT INTO price_alerts (user_id, item_id, direction, threshold_percent, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, item_id) DO UPDATE
		SET direction = EXCLUDED.direction,
			threshold_percent = EXCLUDED.threshold_percent,
			is_active = EXCLUDED.is_active
		RETURNING id
	`

	var id int64

	err := r.pool.QueryRow(ctx, query,
		alert.UserID,
		alert.ItemID,
		alert.Direction,
		alert.ThresholdPercent,
		alert.IsActive,
	).Scan(&id)
	if err != nil {
		if pgErr := (*pgconn.PgError)(nil); errors.As(err, &pgErr) && pgErr.Code == storage.ForeignKeyViolation {
			return 0, storage.ErrItemNotFound
		}

		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

// DeleteAlert удаляет алерт по alertID и userID
func (r *PostgresRepo) DeleteAlert(ctx context.Context, alertID, userID int64) error {
	const op = "storage.postgres.DeleteAlert"

	const query = `
		DELETE FROM price_alerts
		WHERE id = $1 AND user_id = $2
	`

	cmd, err := r.pool.Exec(ctx, query, alertID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmd.RowsAffected() == 0 {
		return storage.ErrAlertNotFound
	}

	return nil
}

// SweepLock держит advisory lock на время sweep'а
type SweepLock struct {
	conn *pgxpool.Conn
}

// AcquireSweepLock берёт session-level advisory lock. Возвращает
// storage.ErrSweepInProgress, если sweep уже идёт.
func (r *PostgresRepo) AcquireSweepLock(ctx context.Context) (*SweepLock, error) {
	const op = "storage.postgres.AcquireSweepLock"

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: acquire conn: %w", op, err)
	}

	var locked bool

	err = conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, sweepLockKey).Scan(&locked)
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !locked {
		conn.Release()
		return nil, storage.ErrSweepInProgress
	}

	return &SweepLock{conn: conn}, nil
}

// Release отпускает advisory lock и возвращает соединение в пул
func (l *SweepLock) Release(ctx context.Context) {
	defer l.conn.Release()

	_, _ = l.conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, sweepLockKey)
}

// Close закрывает соединение с базой данных.
func (r *PostgresRepo) Close() {
	r.pool.Close()
}

// dsn формирует конфигурацию базы данных.
func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
