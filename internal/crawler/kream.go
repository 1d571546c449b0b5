package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"kream_tracker/internal/config"
	"kream_tracker/internal/models"

	"github.com/PuerkitoBio/goquery"
)

// ErrExtractionFailed — страница не загрузилась или из неё не удалось
// вытащить обязательные поля (title, price).
var ErrExtractionFailed = errors.New("failed to extract product data")

var nonDigits = regexp.MustCompile(`[^0-9]`)

// Селекторы по умолчанию. Переопределяются через конфиг, потому что
// вёрстка KREAM меняется без предупреждения.
var (
	defaultTitleSelectors = []string{`meta[property="og:title"]`, ".product_title", "h1"}
	defaultBrandSelectors = []string{".product_info_brand", ".brand_name"}
	defaultModelSelectors = []string{".product_code", ".model_number"}
	defaultImageSelectors = []string{`meta[property="og:image"]`, ".product_img img"}
	defaultPriceSelectors = []string{".price", ".selling_price", ".instant_price"}
)

type KreamCrawler struct {
	client         *http.Client
	userAgent      string
	acceptLanguage string
	selectors      config.Selectors
}

func New(cfg config.Crawler) *KreamCrawler {
	return &KreamCrawler{
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		userAgent:      cfg.UserAgent,
		acceptLanguage: cfg.AcceptLanguage,
		selectors:      withDefaults(cfg.Selectors),
	}
}

// ValidateKreamURL проверяет форму ссылки на товар KREAM.
func ValidateKreamURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return strings.Contains(u.Hostname(), "kream.co.kr") && strings.Contains(u.Path, "/products/")
}

// Fetch загружает страницу товара и извлекает данные по цепочкам
// селекторов: первый непустой результат побеждает.
func (c *KreamCrawler) Fetch(ctx context.Context, productURL string) (models.ExtractedProduct, error) {
	const op = "crawler.Fetch"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, productURL, nil)
	if err != nil {
		return models.ExtractedProduct{}, fmt.Errorf("%s: %w: %v", op, ErrExtractionFailed, err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept-Language", c.acceptLanguage)

	resp, err := c.client.Do(req)
	if err != nil {
		return models.ExtractedProduct{}, fmt.Errorf("%s: %w: %v", op, ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.ExtractedProduct{}, fmt.Errorf("%s: %w: status %d", op, ErrExtractionFailed, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return models.ExtractedProduct{}, fmt.Errorf("%s: %w: %v", op, ErrExtractionFailed, err)
	}

	title := firstMatch(doc, c.selectors.Title)
	if title == "" {
		return models.ExtractedProduct{}, fmt.Errorf("%s: %w: no title", op, ErrExtractionFailed)
	}

	brand := firstMatch(doc, c.selectors.Brand)
	if brand == "" {
		brand = "Unknown"
	}

	price, err := extractPrice(doc, c.selectors.Price)
	if err != nil {
		return models.ExtractedProduct{}, fmt.Errorf("%s: %w: %v", op, ErrExtractionFailed, err)
	}

	return models.ExtractedProduct{
		Title:     title,
		Brand:     brand,
		ModelCode: optional(firstMatch(doc, c.selectors.ModelCode)),
		ImageURL:  optional(firstMatch(doc, c.selectors.Image)),
		Price:     price,
	}, nil
}

// firstMatch пробует селекторы по порядку. Для meta-тегов берётся
// атрибут content, для img — src, иначе текст узла.
func firstMatch(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}

		var value string

		switch {
		case strings.HasPrefix(sel, "meta"):
			value, _ = node.Attr("content")
		case strings.HasSuffix(sel, "img"):
			value, _ = node.Attr("src")
		default:
			value = node.Text()
		}

		value = strings.TrimSpace(value)
		if value != "" {
			return value
		}
	}

	return ""
}

func extractPrice(doc *goquery.Document, selectors []string) (int, error) {
	raw := firstMatch(doc, selectors)
	if raw == "" {
		return 0, errors.New("no price")
	}

	digits := nonDigits.ReplaceAllString(raw, "")
	if digits == "" {
		return 0, fmt.Errorf("no digits in price %q", raw)
	}

	price, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}

	return price, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func withDefaults(s config.Selectors) config.Selectors {
	if len(s.Title) == 0 {
		s.Title = defaultTitleSelectors
	}
	if len(s.Brand) == 0 {
		s.Brand = defaultBrandSelectors
	}
	if len(s.ModelCode) == 0 {
		s.ModelCode = defaultModelSelectors
	}
	if len(s.Image) == 0 {
		s.Image = defaultImageSelectors
	}
	if len(s.Price) == 0 {
		s.Price = defaultPriceSelectors
	}
	return s
}
