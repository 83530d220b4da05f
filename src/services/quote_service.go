package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/net/publicsuffix"

	"github.com/Mlocoes/BolsaV2/src/database"
	"github.com/Mlocoes/BolsaV2/src/logger"
	"github.com/Mlocoes/BolsaV2/src/models"
	"github.com/Mlocoes/BolsaV2/src/utils"
)

const (
	ckRealtimePrice = "realtime_price_%s"

	yahooUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string  `json:"symbol"`
			RegularMarketPrice float64 `json:"regularMarketPrice"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

type quoteServiceImpl struct {
	httpClient *http.Client
	priceCache *cache.Cache

	// mu guards crumb; concurrent realtime fetches may both find the
	// session uninitialized and race the lazy re-init otherwise.
	mu    sync.Mutex
	crumb string

	cookieURL string
	crumbURL  string
	quoteURL  string
}

// NewQuoteService creates the quote service and primes a Yahoo Finance
// session (consent cookies plus API crumb). Session setup failures are
// logged and retried lazily on the first realtime fetch.
func NewQuoteService(priceCache *cache.Cache) QuoteService {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar for quote service", "error", err)
		jar = nil
	}
	s := &quoteServiceImpl{
		httpClient: &http.Client{Jar: jar, Timeout: 20 * time.Second},
		priceCache: priceCache,
		cookieURL:  "https://fc.yahoo.com",
		crumbURL:   "https://query1.finance.yahoo.com/v1/test/getcrumb",
		quoteURL:   "https://query1.finance.yahoo.com/v7/finance/quote",
	}
	if _, err := s.sessionCrumb(); err != nil {
		logger.L.Warn("Yahoo session initialization failed, realtime quotes degraded", "error", err)
	}
	return s
}

// sessionCrumb returns the API crumb, initializing the session under the
// lock when no crumb has been obtained yet.
func (s *quoteServiceImpl) sessionCrumb() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.crumb == "" {
		if err := s.initSession(); err != nil {
			return "", err
		}
	}
	return s.crumb, nil
}

// initSession visits fc.yahoo.com to collect cookies, then requests the
// crumb that v7 quote endpoints require alongside them. Callers must hold mu.
func (s *quoteServiceImpl) initSession() error {
	req, err := http.NewRequest(http.MethodGet, s.cookieURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", yahooUserAgent)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching yahoo cookies: %w", err)
	}
	// The endpoint 404s by design; only the Set-Cookie headers matter.
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	req, err = http.NewRequest(http.MethodGet, s.crumbURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", yahooUserAgent)
	resp, err = s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetching yahoo crumb: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading yahoo crumb: %w", err)
	}
	if resp.StatusCode != http.StatusOK || len(body) == 0 {
		return fmt.Errorf("unexpected crumb response: status %d", resp.StatusCode)
	}
	s.crumb = string(body)
	logger.L.Info("Yahoo Finance session initialized")
	return nil
}

// SaveQuote upserts a daily OHLCV row.
func (s *quoteServiceImpl) SaveQuote(q *models.Quote) error {
	return models.UpsertQuote(database.DB, q)
}

// GetQuotes returns the stored daily quotes of a symbol, optionally bounded
// by startDate/endDate (YYYY-MM-DD, inclusive).
func (s *quoteServiceImpl) GetQuotes(symbol, startDate, endDate string) ([]models.Quote, error) {
	asset, err := models.GetAssetBySymbol(database.DB, symbol)
	if err != nil {
		return nil, err
	}
	return models.ListQuotes(database.DB, asset.ID, startDate, endDate)
}

// LatestClose returns the most recent stored closing price of an asset.
func (s *quoteServiceImpl) LatestClose(assetID string) (decimal.Decimal, bool) {
	q, err := models.GetLatestQuote(database.DB, assetID)
	if err != nil {
		if err != models.ErrNotFound {
			logger.L.Error("Failed to load latest quote", "assetID", assetID, "error", err)
		}
		return decimal.Zero, false
	}
	return q.Close, true
}

// RefreshRealtime fetches the current market price of a symbol from Yahoo,
// stores it as today's quote and returns it. Results are cached briefly to
// keep repeated dashboard refreshes off the upstream API.
func (s *quoteServiceImpl) RefreshRealtime(symbol string) (*models.Quote, error) {
	asset, err := models.GetAssetBySymbol(database.DB, symbol)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf(ckRealtimePrice, asset.Symbol)
	if cached, found := s.priceCache.Get(key); found {
		if q, ok := cached.(*models.Quote); ok {
			return q, nil
		}
	}

	crumb, err := s.sessionCrumb()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteFetchFailed, err)
	}

	endpoint := fmt.Sprintf(
		"%s?symbols=%s&crumb=%s",
		s.quoteURL, url.QueryEscape(asset.Symbol), url.QueryEscape(crumb),
	)
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", yahooUserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: upstream status %d for %s", ErrQuoteFetchFailed, resp.StatusCode, asset.Symbol)
	}

	var parsed yahooQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrQuoteFetchFailed, err)
	}
	if len(parsed.QuoteResponse.Result) == 0 {
		return nil, fmt.Errorf("%w: no result for %s", ErrQuoteFetchFailed, asset.Symbol)
	}

	price := decimal.NewFromFloat(parsed.QuoteResponse.Result[0].RegularMarketPrice)
	q := &models.Quote{
		AssetID: asset.ID,
		Symbol:  asset.Symbol,
		Date:    utils.FormatDay(time.Now().UTC()),
		Open:    price,
		High:    price,
		Low:     price,
		Close:   price,
		Source:  "yahoo",
	}
	if err := models.UpsertQuote(database.DB, q); err != nil {
		return nil, err
	}

	s.priceCache.Set(key, q, cache.DefaultExpiration)
	logger.L.Debug("Fetched realtime price", "symbol", asset.Symbol, "price", price)
	return q, nil
}
