package pricing

import (
	"context"
	"errors"
	"math"

	"kream_tracker/internal/models"
)

// ErrInvalidComparisonInput возвращается, когда сконвертированная
// японская цена равна нулю и процент посчитать нельзя.
var ErrInvalidComparisonInput = errors.New("converted JP price is zero")

// Compare считает сравнение цен: KRW против JPY по курсу rate (JPY->KRW).
// Чистая функция, без side effects.
func Compare(kreamPriceKR, jpPriceJP int, rate float64) (models.PriceComparison, error) {
	jpPriceKR := int(math.Round(float64(jpPriceJP) * rate))

	if jpPriceKR == 0 {
		return models.PriceComparison{}, ErrInvalidComparisonInput
	}

	diff := kreamPriceKR - jpPriceKR
	diffPercent := math.Round(float64(diff)/float64(jpPriceKR)*1000) / 10

	return models.PriceComparison{
		KreamPriceKR: kreamPriceKR,
		JPPriceJP:    jpPriceJP,
		JPPriceKR:    jpPriceKR,
		Diff:         diff,
		DiffPercent:  diffPercent,
		ExchangeRate: rate,
	}, nil
}

// RateProvider отдаёт курс JPY->KRW. Интерфейс нужен, чтобы заменить
// фиксированный курс на живой источник, не трогая вызывающий код.
type RateProvider interface {
	Rate(ctx context.Context) (float64, error)
}

// FixedRateProvider — фиксированный курс из конфига.
type FixedRateProvider struct {
	rate float64
}

func NewFixedRateProvider(rate float64) *FixedRateProvider {
	return &FixedRateProvider{rate: rate}
}

func (p *FixedRateProvider) Rate(ctx context.Context) (float64, error) {
	return p.rate, nil
}

// ReferencePriceEstimator отдаёт японскую референс-цену в JPY, когда
// пользователь не указал свою.
type ReferencePriceEstimator interface {
	Estimate(kreamPriceKR int, rate float64) int
}

// HeuristicEstimator — ЗАГЛУШКА, а не реальная рыночная цена:
// оценивает японскую цену как 70% от корейской после конвертации.
// Алерты по этой оценке срабатывают на синтетических данных.
type HeuristicEstimator struct{}

func (HeuristicEstimator) Estimate(kreamPriceKR int, rate float64) int {
	return int(math.Round(float64(kreamPriceKR) / rate * 0.7))
}
