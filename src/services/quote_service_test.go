package services

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mlocoes/BolsaV2/src/database"
	"github.com/Mlocoes/BolsaV2/src/models"
)

// newTestQuoteService points the service at a local stand-in for the
// upstream quote API and returns a counter of crumb requests.
func newTestQuoteService(t *testing.T) (*quoteServiceImpl, *int32) {
	t.Helper()
	var crumbCalls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cookies":
			http.NotFound(w, r)
		case "/crumb":
			atomic.AddInt32(&crumbCalls, 1)
			fmt.Fprint(w, "test-crumb")
		case "/quote":
			assert.Equal(t, "test-crumb", r.URL.Query().Get("crumb"))
			fmt.Fprint(w, `{"quoteResponse":{"result":[{"symbol":"AAPL","regularMarketPrice":123.45}]}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	return &quoteServiceImpl{
		httpClient: srv.Client(),
		priceCache: cache.New(time.Minute, time.Minute),
		cookieURL:  srv.URL + "/cookies",
		crumbURL:   srv.URL + "/crumb",
		quoteURL:   srv.URL + "/quote",
	}, &crumbCalls
}

func TestRefreshRealtime_StoresTodaysQuote(t *testing.T) {
	_, assetID := setupTestDB(t)
	svc, _ := newTestQuoteService(t)

	q, err := svc.RefreshRealtime("AAPL")
	require.NoError(t, err)
	assert.True(t, q.Close.Equal(decimal.NewFromFloat(123.45)), "got %s", q.Close)

	stored, err := models.GetLatestQuote(database.DB, assetID)
	require.NoError(t, err)
	assert.True(t, stored.Close.Equal(q.Close))
	assert.Equal(t, "yahoo", stored.Source)
}

func TestRefreshRealtime_ConcurrentSessionInit(t *testing.T) {
	setupTestDB(t)
	svc, crumbCalls := newTestQuoteService(t)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RefreshRealtime("AAPL")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(crumbCalls), "session initializes once")
}
