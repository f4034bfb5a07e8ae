// Package marketfs implements file-based caching of daily price history.
package marketfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bobmcallan/tickerwise/internal/common"
	"github.com/bobmcallan/tickerwise/internal/interfaces"
	"github.com/bobmcallan/tickerwise/internal/models"
)

// cachedBars is the on-disk record for one ticker
type cachedBars struct {
	Ticker    string            `json:"ticker"`
	FetchedAt time.Time         `json:"fetched_at"`
	Bars      []models.PriceBar `json:"bars"`
}

// Store provides file-based JSON storage for price history.
type Store struct {
	marketDir string
	logger    *common.Logger
	now       func() time.Time
}

var _ interfaces.BarStorage = (*Store)(nil)

// NewMarketStore creates a new market file store rooted at path.
func NewMarketStore(logger *common.Logger, path string) (*Store, error) {
	marketDir := filepath.Join(path, "market")
	if err := os.MkdirAll(marketDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create market store path %s: %w", marketDir, err)
	}

	logger.Info().Str("path", path).Msg("MarketFS store opened")
	return &Store{
		marketDir: marketDir,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// GetBars returns the cached bars for ticker when they were fetched within
// maxAge. A miss, a stale entry and an unreadable file all report false.
func (s *Store) GetBars(_ context.Context, ticker string, maxAge time.Duration) ([]models.PriceBar, bool) {
	var entry cachedBars
	if err := readJSON(s.marketDir, ticker, &entry); err != nil {
		return nil, false
	}
	if s.now().Sub(entry.FetchedAt) > maxAge {
		s.logger.Debug().Str("ticker", ticker).Time("fetched_at", entry.FetchedAt).Msg("Cached bars stale")
		return nil, false
	}
	return entry.Bars, true
}

// SaveBars writes bars for ticker, replacing any previous entry.
func (s *Store) SaveBars(_ context.Context, ticker string, bars []models.PriceBar) error {
	entry := cachedBars{Ticker: ticker, FetchedAt: s.now(), Bars: bars}
	if err := writeJSON(s.marketDir, ticker, &entry); err != nil {
		return fmt.Errorf("failed to save bars for %s: %w", ticker, err)
	}
	s.logger.Debug().Str("ticker", ticker).Int("bars", len(bars)).Msg("Bars cached")
	return nil
}

// PurgeMarket removes all cached history files and returns the count.
func (s *Store) PurgeMarket() int {
	return purgeDir(s.marketDir)
}

// --- helpers ---

func sanitizeKey(key string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")
	return r.Replace(key)
}

func filePath(dir, key string) string {
	return filepath.Join(dir, sanitizeKey(key)+".json")
}

func readJSON(dir, key string, dest interface{}) error {
	path := filePath(dir, key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("'%s' not found", key)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return fmt.Errorf("'%s' is empty", key)
	}
	return json.Unmarshal(data, dest)
}

// writeJSON writes through a temp file and rename so readers never see a
// partial entry.
func writeJSON(dir, key string, data interface{}) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	target := filePath(dir, key)
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	jsonData = append(jsonData, '\n')

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(jsonData); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func listKeys(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".tmp-") {
			keys = append(keys, strings.TrimSuffix(name, ".json"))
		}
	}
	return keys, nil
}

func purgeDir(dir string) int {
	keys, err := listKeys(dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, key := range keys {
		if os.Remove(filePath(dir, key)) == nil {
			count++
		}
	}
	return count
}
