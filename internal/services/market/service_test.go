package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tickerwise/internal/common"
	"github.com/bobmcallan/tickerwise/internal/interfaces"
	"github.com/bobmcallan/tickerwise/internal/models"
)

// --- Mocks ---

type mockProvider struct {
	name     string
	snap     *models.PriceSnapshot
	snapErr  error
	bars     []models.PriceBar
	barsErr  error
	info     *models.CompanyInfo
	infoErr  error
	from, to time.Time
	calls    int
}

func (m *mockProvider) Name() string { return m.name }

func (m *mockProvider) GetSnapshot(_ context.Context, _ string) (*models.PriceSnapshot, error) {
	m.calls++
	return m.snap, m.snapErr
}

func (m *mockProvider) GetHistory(_ context.Context, _ string, from, to time.Time) ([]models.PriceBar, error) {
	m.calls++
	m.from, m.to = from, to
	return m.bars, m.barsErr
}

func (m *mockProvider) GetCompanyInfo(_ context.Context, _ string) (*models.CompanyInfo, error) {
	m.calls++
	return m.info, m.infoErr
}

func ptr(v float64) *float64 { return &v }

var fixedNow = time.Date(2026, 10, 19, 16, 0, 0, 0, time.UTC)

func newTestService(primary *mockProvider, fallback interfaces.MarketDataProvider) *Service {
	svc := NewService(primary, fallback, 0, common.NewSilentLogger())
	svc.now = func() time.Time { return fixedNow }
	return svc
}

// --- Snapshot ---

func TestSnapshot_PrimaryOnly(t *testing.T) {
	primary := &mockProvider{name: "yahoo", snap: &models.PriceSnapshot{Current: ptr(10)}}
	svc := newTestService(primary, nil)

	snap, err := svc.Snapshot(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 10.0, *snap.Current)
}

func TestSnapshot_PrimaryErrorNoFallback(t *testing.T) {
	primary := &mockProvider{name: "yahoo", snapErr: errors.New("yahoo down")}
	svc := newTestService(primary, nil)

	_, err := svc.Snapshot(context.Background(), "AAPL")
	assert.EqualError(t, err, "yahoo down")
}

func TestSnapshot_FallbackOnError(t *testing.T) {
	primary := &mockProvider{name: "yahoo", snapErr: errors.New("yahoo down")}
	fallback := &mockProvider{name: "eodhd", snap: &models.PriceSnapshot{Current: ptr(11), Source: "eodhd"}}
	svc := newTestService(primary, fallback)

	snap, err := svc.Snapshot(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 11.0, *snap.Current)
	assert.Equal(t, "eodhd", snap.Source)
}

func TestSnapshot_FallbackSkippedWhenPrimaryUsable(t *testing.T) {
	primary := &mockProvider{name: "yahoo", snap: &models.PriceSnapshot{PreviousClose: ptr(9)}}
	fallback := &mockProvider{name: "eodhd"}
	svc := newTestService(primary, fallback)

	_, err := svc.Snapshot(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 0, fallback.calls)
}

func TestSnapshot_MergesMissingPrice(t *testing.T) {
	primary := &mockProvider{name: "yahoo", snap: &models.PriceSnapshot{AfterHours: ptr(12.5), Currency: "USD", Source: "yahoo"}}
	fallback := &mockProvider{name: "eodhd", snap: &models.PriceSnapshot{Current: ptr(12), PreviousClose: ptr(11.8), Source: "eodhd"}}
	svc := newTestService(primary, fallback)

	snap, err := svc.Snapshot(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 12.0, *snap.Current)
	assert.Equal(t, 12.5, *snap.AfterHours)
	assert.Equal(t, 11.8, *snap.PreviousClose)
	assert.Equal(t, "USD", snap.Currency)
	assert.Equal(t, "eodhd", snap.Source)
}

func TestSnapshot_BothFail(t *testing.T) {
	primary := &mockProvider{name: "yahoo", snapErr: errors.New("yahoo down")}
	fallback := &mockProvider{name: "eodhd", snapErr: errors.New("eodhd down")}
	svc := newTestService(primary, fallback)

	_, err := svc.Snapshot(context.Background(), "AAPL")
	assert.EqualError(t, err, "yahoo down")
}

// --- History ---

func TestBars_UsesTrailingWindow(t *testing.T) {
	primary := &mockProvider{name: "yahoo", bars: []models.PriceBar{{Close: 1}}}
	svc := newTestService(primary, nil)

	bars, err := svc.Bars(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, fixedNow, primary.to)
	assert.Equal(t, fixedNow.Add(-DefaultHistoryWindow), primary.from)
}

func TestBars_FallbackOnEmpty(t *testing.T) {
	primary := &mockProvider{name: "yahoo", bars: []models.PriceBar{}}
	fallback := &mockProvider{name: "eodhd", bars: []models.PriceBar{{Close: 2}, {Close: 3}}}
	svc := newTestService(primary, fallback)

	bars, err := svc.Bars(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}

func TestBars_EmptyWithoutFallbackIsNotAnError(t *testing.T) {
	primary := &mockProvider{name: "yahoo", bars: []models.PriceBar{}}
	svc := newTestService(primary, nil)

	series, err := svc.History(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.True(t, series.Empty())
}

func TestHistory_WrapsError(t *testing.T) {
	primary := &mockProvider{name: "yahoo", barsErr: errors.New("boom")}
	svc := newTestService(primary, nil)

	_, err := svc.History(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price history for AAPL")
}

type memoryCache struct {
	bars   map[string][]models.PriceBar
	maxAge time.Duration
	saves  int
}

func (m *memoryCache) GetBars(_ context.Context, ticker string, maxAge time.Duration) ([]models.PriceBar, bool) {
	m.maxAge = maxAge
	b, ok := m.bars[ticker]
	return b, ok
}

func (m *memoryCache) SaveBars(_ context.Context, ticker string, bars []models.PriceBar) error {
	m.saves++
	m.bars[ticker] = bars
	return nil
}

func (m *memoryCache) PurgeMarket() int {
	n := len(m.bars)
	m.bars = map[string][]models.PriceBar{}
	return n
}

func TestBars_CachesHistory(t *testing.T) {
	primary := &mockProvider{name: "yahoo", bars: []models.PriceBar{{Close: 1}, {Close: 2}}}
	cache := &memoryCache{bars: map[string][]models.PriceBar{}}
	svc := newTestService(primary, nil)
	svc.SetCache(cache, 10*time.Minute)

	_, err := svc.Bars(context.Background(), "AAPL")
	require.NoError(t, err)
	bars, err := svc.Bars(context.Background(), "AAPL")
	require.NoError(t, err)

	assert.Len(t, bars, 2)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 1, cache.saves)
	assert.Equal(t, 10*time.Minute, cache.maxAge)
}

func TestBars_EmptyHistoryNotCached(t *testing.T) {
	primary := &mockProvider{name: "yahoo", bars: []models.PriceBar{}}
	cache := &memoryCache{bars: map[string][]models.PriceBar{}}
	svc := newTestService(primary, nil)
	svc.SetCache(cache, time.Minute)

	_, err := svc.Bars(context.Background(), "ZZZZ")
	require.NoError(t, err)
	assert.Equal(t, 0, cache.saves)
}

// --- Company info ---

func TestCompanyInfo_MergesAnalystData(t *testing.T) {
	primary := &mockProvider{name: "yahoo", info: &models.CompanyInfo{
		Ticker: "AAPL", Name: "Apple Inc.", High52Week: 260, Source: "yahoo",
		Warnings: []string{"analyst ratings unavailable"},
	}}
	fallback := &mockProvider{name: "eodhd", info: &models.CompanyInfo{
		Ticker: "AAPL", Name: "Apple Inc", Sector: "Technology", AnalystRating: "Buy", AnalystCount: 40, High52Week: 255, Source: "eodhd",
	}}
	svc := newTestService(primary, fallback)

	info, err := svc.CompanyInfo(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", info.Name, "primary wins")
	assert.Equal(t, 260.0, info.High52Week)
	assert.Equal(t, "Technology", info.Sector)
	assert.Equal(t, "Buy", info.AnalystRating)
	assert.Equal(t, 40, info.AnalystCount)
	assert.Equal(t, "yahoo+eodhd", info.Source)
	assert.Empty(t, info.Warnings)
}

func TestCompanyInfo_FallbackErrorKeepsPrimary(t *testing.T) {
	primary := &mockProvider{name: "yahoo", info: &models.CompanyInfo{Name: "Apple Inc."}}
	fallback := &mockProvider{name: "eodhd", infoErr: errors.New("no key")}
	svc := newTestService(primary, fallback)

	info, err := svc.CompanyInfo(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", info.Name)
}

func TestCompanyInfo_PrimaryErrorUsesFallback(t *testing.T) {
	primary := &mockProvider{name: "yahoo", infoErr: errors.New("down")}
	fallback := &mockProvider{name: "eodhd", info: &models.CompanyInfo{Name: "Apple Inc"}}
	svc := newTestService(primary, fallback)

	info, err := svc.CompanyInfo(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc", info.Name)
}
