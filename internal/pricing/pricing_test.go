package pricing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name            string
		kreamPriceKR    int
		jpPriceJP       int
		rate            float64
		wantJPPriceKR   int
		wantDiff        int
		wantDiffPercent float64
	}{
		{
			name:            "kr more expensive",
			kreamPriceKR:    100000,
			jpPriceJP:       7000,
			rate:            9.5,
			wantJPPriceKR:   66500,
			wantDiff:        33500,
			wantDiffPercent: 50.4,
		},
		{
			name:            "jp more expensive",
			kreamPriceKR:    50000,
			jpPriceJP:       10000,
			rate:            9.5,
			wantJPPriceKR:   95000,
			wantDiff:        -45000,
			wantDiffPercent: -47.4,
		},
		{
			name:            "equal prices",
			kreamPriceKR:    9500,
			jpPriceJP:       1000,
			rate:            9.5,
			wantJPPriceKR:   9500,
			wantDiff:        0,
			wantDiffPercent: 0,
		},
		{
			name:            "converted price rounds to nearest",
			kreamPriceKR:    100,
			jpPriceJP:       3,
			rate:            9.5,
			wantJPPriceKR:   29,
			wantDiff:        71,
			wantDiffPercent: 244.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.kreamPriceKR, tt.jpPriceJP, tt.rate)
			require.NoError(t, err)

			require.Equal(t, tt.kreamPriceKR, got.KreamPriceKR)
			require.Equal(t, tt.jpPriceJP, got.JPPriceJP)
			require.Equal(t, tt.wantJPPriceKR, got.JPPriceKR)
			require.Equal(t, tt.wantDiff, got.Diff)
			require.InDelta(t, tt.wantDiffPercent, got.DiffPercent, 1e-9)
			require.Equal(t, tt.rate, got.ExchangeRate)
		})
	}
}

func TestCompareZeroConvertedPrice(t *testing.T) {
	_, err := Compare(100000, 0, 9.5)
	require.ErrorIs(t, err, ErrInvalidComparisonInput)

	// rate so small the converted price rounds to zero
	_, err = Compare(100000, 1, 0.1)
	require.ErrorIs(t, err, ErrInvalidComparisonInput)
}

func TestCompareProperties(t *testing.T) {
	cases := []struct {
		kr   int
		jp   int
		rate float64
	}{
		{100000, 7000, 9.5},
		{1, 1, 1},
		{250000, 31999, 8.73},
		{45000, 120000, 0.009},
	}

	for _, c := range cases {
		got, err := Compare(c.kr, c.jp, c.rate)
		if err != nil {
			continue
		}

		require.Equal(t, int(math.Round(float64(c.jp)*c.rate)), got.JPPriceKR)
		require.Equal(t, c.kr-got.JPPriceKR, got.Diff)

		wantPercent := math.Round(float64(got.Diff)/float64(got.JPPriceKR)*1000) / 10
		require.InDelta(t, wantPercent, got.DiffPercent, 1e-9)
	}
}

func TestHeuristicEstimator(t *testing.T) {
	est := HeuristicEstimator{}

	// 100000 KRW / 9.5 * 0.7 = 7368.4...
	require.Equal(t, 7368, est.Estimate(100000, 9.5))
	require.Equal(t, 0, est.Estimate(0, 9.5))
}

func TestFixedRateProvider(t *testing.T) {
	p := NewFixedRateProvider(9.5)

	rate, err := p.Rate(context.Background())
	require.NoError(t, err)
	require.Equal(t, 9.5, rate)
}
