package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kream_tracker/internal/config"

	"github.com/stretchr/testify/require"
)

const productPage = `<!DOCTYPE html>
<html>
<head>
	<meta property="og:title" content="Nike Dunk Low Retro Black" />
	<meta property="og:image" content="https://img.example.com/dunk.png" />
</head>
<body>
	<h1>ignored heading</h1>
	<div class="product_info_brand">Nike</div>
	<div class="product_code">DD1391-100</div>
	<div class="price">139,000원</div>
</body>
</html>`

const pageWithoutMeta = `<html><body>
	<h1>  New Balance 993  </h1>
	<span class="selling_price">₩259,000</span>
</body></html>`

const pageWithoutPrice = `<html><head>
	<meta property="og:title" content="Jordan 1 High" />
</head><body></body></html>`

func testCrawler() *KreamCrawler {
	return New(config.Crawler{
		UserAgent:      "test-agent",
		AcceptLanguage: "ko-KR,ko;q=0.9",
		RequestTimeout: 5 * time.Second,
	})
}

func TestFetch(t *testing.T) {
	var gotUA, gotLang string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		w.Write([]byte(productPage))
	}))
	defer srv.Close()

	c := testCrawler()

	product, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	require.Equal(t, "Nike Dunk Low Retro Black", product.Title)
	require.Equal(t, "Nike", product.Brand)
	require.NotNil(t, product.ModelCode)
	require.Equal(t, "DD1391-100", *product.ModelCode)
	require.NotNil(t, product.ImageURL)
	require.Equal(t, "https://img.example.com/dunk.png", *product.ImageURL)
	require.Equal(t, 139000, product.Price)

	require.Equal(t, "test-agent", gotUA)
	require.Equal(t, "ko-KR,ko;q=0.9", gotLang)
}

func TestFetchFallbackSelectors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pageWithoutMeta))
	}))
	defer srv.Close()

	c := testCrawler()

	product, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	require.Equal(t, "New Balance 993", product.Title)
	require.Equal(t, "Unknown", product.Brand)
	require.Nil(t, product.ModelCode)
	require.Nil(t, product.ImageURL)
	require.Equal(t, 259000, product.Price)
}

func TestFetchNoPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pageWithoutPrice))
	}))
	defer srv.Close()

	c := testCrawler()

	_, err := c.Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrExtractionFailed)
}

func TestFetchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := testCrawler()

	_, err := c.Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrExtractionFailed)
}

func TestFetchCustomSelectors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<div data-testid="name">ASICS Gel-Kayano 14</div>
			<div data-testid="amount">189 000</div>
		</body></html>`))
	}))
	defer srv.Close()

	c := New(config.Crawler{
		UserAgent:      "test-agent",
		AcceptLanguage: "ko-KR,ko;q=0.9",
		RequestTimeout: 5 * time.Second,
		Selectors: config.Selectors{
			Title: []string{`[data-testid="name"]`},
			Price: []string{`[data-testid="amount"]`},
		},
	})

	product, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	require.Equal(t, "ASICS Gel-Kayano 14", product.Title)
	require.Equal(t, 189000, product.Price)
}

func TestValidateKreamURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://kream.co.kr/products/12345", true},
		{"https://www.kream.co.kr/products/12345?size=270", true},
		{"https://kream.co.kr/search", false},
		{"https://example.com/products/12345", false},
		{"not a url at all ://", false},
		{"", false},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, ValidateKreamURL(tt.url), tt.url)
	}
}
