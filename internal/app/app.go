// Package app wires configuration, clients and services into a runnable
// Tickerwise instance shared by the HTTP and MCP surfaces.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/tickerwise/internal/agent"
	"github.com/bobmcallan/tickerwise/internal/clients/duckduckgo"
	"github.com/bobmcallan/tickerwise/internal/clients/eodhd"
	"github.com/bobmcallan/tickerwise/internal/clients/gemini"
	"github.com/bobmcallan/tickerwise/internal/clients/yahoo"
	"github.com/bobmcallan/tickerwise/internal/common"
	"github.com/bobmcallan/tickerwise/internal/interfaces"
	"github.com/bobmcallan/tickerwise/internal/services/analysis"
	"github.com/bobmcallan/tickerwise/internal/services/market"
	"github.com/bobmcallan/tickerwise/internal/storage/marketfs"
)

// App holds all initialized services, clients, and the MCP server.
type App struct {
	Config          *common.Config
	Logger          *common.Logger
	MarketService   interfaces.MarketService
	NewsSearcher    interfaces.NewsSearcher
	BarCache        interfaces.BarStorage
	Analyst         interfaces.Analyst
	AnalysisService interfaces.AnalysisService
	MCPServer       *server.MCPServer
	StartupTime     time.Time
}

// Uptime returns how long the App has been running
func (a *App) Uptime() time.Duration {
	return time.Since(a.StartupTime)
}

// PurgeCache empties the price history cache. enabled is false when no
// cache is configured.
func (a *App) PurgeCache() (removed int, enabled bool) {
	if a.BarCache == nil {
		return 0, false
	}
	removed = a.BarCache.PurgeMarket()
	a.Logger.Info().Int("removed", removed).Msg("Price history cache purged")
	return removed, true
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// ResolveConfigPath returns the config file to load: configPath when set,
// then TICKERWISE_CONFIG, then tickerwise.toml next to the binary, then
// config/tickerwise.toml.
func ResolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("TICKERWISE_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "tickerwise.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/tickerwise.toml" // fallback for development
		}
	}
	return configPath
}

// NewApp loads configuration and initializes every client and service.
// configPath may be empty, in which case the default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	common.LoadVersionFromFile()

	config, err := common.LoadConfig(ResolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	ctx := context.Background()

	// Market data: Yahoo first, EODHD when a key is available
	yahooClient := yahoo.NewClient(
		yahoo.WithBaseURL(config.Clients.Yahoo.BaseURL),
		yahoo.WithLogger(logger),
		yahoo.WithRateLimit(config.Clients.Yahoo.RateLimit),
		yahoo.WithTimeout(config.Clients.Yahoo.GetTimeout()),
	)

	var fallback interfaces.MarketDataProvider
	if eodhdKey, err := common.ResolveAPIKey("eodhd_api_key", config.Clients.EODHD.APIKey); err == nil {
		fallback = eodhd.NewClient(eodhdKey,
			eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
			eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
		)
	} else {
		logger.Warn().Msg("EODHD API key not configured - market data fallback disabled")
	}

	marketService := market.NewService(yahooClient, fallback, config.Analysis.GetHistoryWindow(), logger)

	var barCache interfaces.BarStorage
	if config.Storage.Path != "" {
		store, err := marketfs.NewMarketStore(logger, config.Storage.Path)
		if err != nil {
			logger.Warn().Err(err).Msg("Price history cache unavailable - fetching on every request")
		} else {
			barCache = store
			marketService.SetCache(store, config.Storage.GetTTL())
		}
	}

	newsSearcher := duckduckgo.NewClient(
		duckduckgo.WithBaseURL(config.Clients.DuckDuckGo.BaseURL),
		duckduckgo.WithLogger(logger),
		duckduckgo.WithRateLimit(config.Clients.DuckDuckGo.RateLimit),
		duckduckgo.WithTimeout(config.Clients.DuckDuckGo.GetTimeout()),
		duckduckgo.WithMaxResults(config.Clients.DuckDuckGo.MaxResults),
	)

	analyst, err := newAnalyst(ctx, config, marketService, newsSearcher, logger)
	if err != nil {
		logger.Warn().Err(err).Str("provider", config.Analyst.Provider).
			Msg("Analyst not available - analysis requests will fail")
	}

	a := NewWithServices(config, logger, marketService, analyst)
	a.NewsSearcher = newsSearcher
	a.BarCache = barCache
	a.StartupTime = startupStart

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// NewWithServices assembles an App from already-built collaborators and
// registers the MCP tools. analyst may be nil.
func NewWithServices(config *common.Config, logger *common.Logger, marketService interfaces.MarketService, analyst interfaces.Analyst) *App {
	a := &App{
		Config:          config,
		Logger:          logger,
		MarketService:   marketService,
		Analyst:         analyst,
		AnalysisService: analysis.NewService(marketService, analyst, config.Analysis.StrictReport, logger),
		MCPServer: server.NewMCPServer(
			"tickerwise",
			common.GetVersion(),
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
		StartupTime: time.Now(),
	}

	a.registerTools()

	return a
}

// newAnalyst builds the configured analyst. It returns a nil Analyst (not a
// typed nil) with an error when the provider cannot be initialized.
func newAnalyst(ctx context.Context, config *common.Config, marketService interfaces.MarketService, news interfaces.NewsSearcher, logger *common.Logger) (interfaces.Analyst, error) {
	switch config.Analyst.Provider {
	case "gemini":
		key, err := common.ResolveAPIKey("gemini_api_key", config.Clients.Gemini.APIKey)
		if err != nil {
			return nil, err
		}
		client, err := gemini.NewClient(ctx, key,
			gemini.WithModel(config.Clients.Gemini.Model),
			gemini.WithInstructions(analysis.Instructions),
			gemini.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		logger.Info().Str("model", client.Model()).Msg("Gemini analyst ready")
		return client, nil

	default:
		key, err := common.ResolveAPIKey("analyst_api_key", config.Analyst.APIKey)
		if err != nil {
			return nil, err
		}
		ag, err := agent.New(config.Analyst.Model, analysis.Instructions,
			agent.WithBaseURL(config.Analyst.BaseURL),
			agent.WithAPIKey(key),
			agent.WithMaxTurns(config.Analyst.MaxTurns),
			agent.WithLogger(logger),
			agent.WithTools(
				agent.NewStockDataTool(marketService),
				agent.NewNewsSearchTool(news),
			),
		)
		if err != nil {
			return nil, fmt.Errorf("agent: %w", err)
		}
		logger.Info().Str("model", ag.Model()).Str("base_url", config.Analyst.BaseURL).Msg("Analyst agent ready")
		return ag, nil
	}
}
