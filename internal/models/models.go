package models

import "time"

type Plan string

const (
	PlanFree Plan = "FREE"
	PlanPro  Plan = "PRO"
)

type SnapshotSource string

const (
	SourceKream    SnapshotSource = "KREAM"
	SourceJPRetail SnapshotSource = "JP_RETAIL"
	SourceJPResale SnapshotSource = "JP_RESALE"
)

type AlertDirection string

const (
	KRMoreExpensive AlertDirection = "KR_MORE_EXPENSIVE"
	JPMoreExpensive AlertDirection = "JP_MORE_EXPENSIVE"
)

type User struct {
	ID         int64     `json:"id" db:"id"`
	Email      string    `json:"email" db:"email"`
	Plan       Plan      `json:"plan" db:"plan"`
	Created_at time.Time `json:"created_at" db:"created_at"`
}

type Item struct {
	ID         int64     `json:"id" db:"id"`
	KreamURL   string    `json:"kream_url" db:"kream_url"`
	Title      string    `json:"title" db:"title"`
	Brand      string    `json:"brand" db:"brand"`
	ModelCode  *string   `json:"model_code" db:"model_code"`
	ImageURL   *string   `json:"image_url" db:"image_url"`
	Created_at time.Time `json:"created_at" db:"created_at"`
	Updated_at time.Time `json:"updated_at" db:"updated_at"`
}

type PriceSnapshot struct {
	ID          int64          `json:"id" db:"id"`
	ItemID      int64          `json:"item_id" db:"item_id"`
	Source      SnapshotSource `json:"source" db:"source"`
	Price       int            `json:"price" db:"price"`
	Currency    string         `json:"currency" db:"currency"`
	Captured_at time.Time      `json:"captured_at" db:"captured_at"`
}

type WatchEntry struct {
	ID               int64     `json:"id" db:"id"`
	UserID           int64     `json:"user_id" db:"user_id"`
	ItemID           int64     `json:"item_id" db:"item_id"`
	JPReferencePrice *int      `json:"jp_reference_price" db:"jp_reference_price"`
	Currency         string    `json:"currency" db:"currency"`
	Created_at       time.Time `json:"created_at" db:"created_at"`
}

type PriceAlert struct {
	ID               int64          `json:"id" db:"id"`
	UserID           int64          `json:"user_id" db:"user_id"`
	ItemID           int64          `json:"item_id" db:"item_id"`
	Direction        AlertDirection `json:"direction" db:"direction"`
	ThresholdPercent float64        `json:"threshold_percent" db:"threshold_percent"`
	IsActive         bool           `json:"is_active" db:"is_active"`
	Created_at       time.Time      `json:"created_at" db:"created_at"`
}

// ExtractedProduct — результат парсинга страницы товара KREAM
type ExtractedProduct struct {
	Title     string  `json:"title"`
	Brand     string  `json:"brand"`
	ModelCode *string `json:"model_code"`
	ImageURL  *string `json:"image_url"`
	Price     int     `json:"price"`
}

// WatchlistRow — подписка вместе с item'ом для вывода пользователю
type WatchlistRow struct {
	Entry WatchEntry `json:"entry"`
	Item  Item       `json:"item"`
}

// WatchTuple is one row of the sweep working set: a watch entry joined
// with its item and the tracking user.
type WatchTuple struct {
	Entry WatchEntry
	Item  Item
	User  User
}

// PriceComparison — производное сравнение цен, не хранится в базе
type PriceComparison struct {
	KreamPriceKR int     `json:"kream_price_kr"`
	JPPriceJP    int     `json:"jp_price_jp"`
	JPPriceKR    int     `json:"jp_price_kr"`
	Diff         int     `json:"diff"`
	DiffPercent  float64 `json:"diff_percent"`
	ExchangeRate float64 `json:"exchange_rate"`
}

// ItemDetail — item с историей цен и текущим сравнением
type ItemDetail struct {
	Item         Item             `json:"item"`
	PriceHistory []PriceSnapshot  `json:"price_history"`
	Comparison   *PriceComparison `json:"comparison"`
}

// AlertNotification is the message published to the notification queue
// when an alert fires.
type AlertNotification struct {
	AlertID      int64   `json:"alert_id"`
	Email        string  `json:"email"`
	ItemID       int64   `json:"item_id"`
	ItemTitle    string  `json:"item_title"`
	KreamPriceKR int     `json:"kream_price_kr"`
	JPPriceJP    int     `json:"jp_price_jp"`
	JPPriceKR    int     `json:"jp_price_kr"`
	DiffPercent  float64 `json:"diff_percent"`
}
