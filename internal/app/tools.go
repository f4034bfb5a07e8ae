package app

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/tickerwise/internal/common"
	"github.com/bobmcallan/tickerwise/internal/interfaces"
	"github.com/bobmcallan/tickerwise/internal/models"
	"github.com/bobmcallan/tickerwise/internal/services/analysis"
	"github.com/bobmcallan/tickerwise/internal/services/chart"
)

// registerTools registers all MCP tools on the App's MCPServer.
func (a *App) registerTools() {
	s := a.MCPServer
	logger := a.Logger

	s.AddTool(createGetVersionTool(), handleGetVersion(a.Uptime))
	s.AddTool(createAnalyzeStockTool(), handleAnalyzeStock(a.AnalysisService, a.Config.Analysis.DefaultTemperature, logger))
	s.AddTool(createGetPriceChartTool(), handleGetPriceChart(a.MarketService, logger))
	s.AddTool(createPurgeCacheTool(), handlePurgeCache(a.PurgeCache))
}

// createGetVersionTool returns the get_version tool definition
func createGetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the Tickerwise server version and status. Use this to verify connectivity."),
	)
}

// createAnalyzeStockTool returns the analyze_stock tool definition
func createAnalyzeStockTool() mcp.Tool {
	return mcp.NewTool("analyze_stock",
		mcp.WithDescription("Generate an AI-written analysis of a stock: company overview, recent performance, news, analyst ratings, technical trend and a buy/hold/sell recommendation. Returns HTML."),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Stock ticker symbol (e.g., 'AAPL', 'MSFT')"),
		),
		mcp.WithNumber("temperature",
			mcp.Description("Sampling temperature for the analyst model (default: 0.2)"),
			mcp.Min(0),
			mcp.Max(2),
		),
	)
}

// createGetPriceChartTool returns the get_price_chart tool definition
func createGetPriceChartTool() mcp.Tool {
	return mcp.NewTool("get_price_chart",
		mcp.WithDescription("Render a PNG chart of the stock's closing prices over the last three months."),
		mcp.WithString("ticker",
			mcp.Required(),
			mcp.Description("Stock ticker symbol (e.g., 'AAPL')"),
		),
	)
}

// createPurgeCacheTool returns the purge_cache tool definition
func createPurgeCacheTool() mcp.Tool {
	return mcp.NewTool("purge_cache",
		mcp.WithDescription("Drop all cached price history so the next request fetches fresh data."),
	)
}

// handleGetVersion implements the get_version tool
func handleGetVersion(uptime func() time.Duration) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := fmt.Sprintf("Tickerwise Server\nVersion: %s\nBuild: %s\nCommit: %s\nUptime: %s\nStatus: OK",
			common.GetVersion(), common.GetBuild(), common.GetGitCommit(), uptime().Truncate(time.Second))
		return textResult(result), nil
	}
}

// handleAnalyzeStock implements the analyze_stock tool
func handleAnalyzeStock(svc interfaces.AnalysisService, defaultTemperature float64, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		if err != nil || analysis.NormalizeTicker(ticker) == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}

		temperature := request.GetFloat("temperature", defaultTemperature)
		if math.IsNaN(temperature) || math.IsInf(temperature, 0) {
			return errorResult("Error: temperature must be a number"), nil
		}

		req := models.AnalysisRequest{
			Ticker:      analysis.NormalizeTicker(ticker),
			Temperature: temperature,
		}

		result, err := svc.Analyze(ctx, req)
		if err != nil {
			if errors.Is(err, analysis.ErrNoData) {
				return errorResult(fmt.Sprintf("No stock data found for %s.", req.Ticker)), nil
			}
			logger.Error().Err(err).Str("ticker", req.Ticker).Msg("Analyze stock failed")
			return errorResult(fmt.Sprintf("Analysis error: %v", err)), nil
		}

		return textResult(result.Result + "\n\n" + result.Disclaimer), nil
	}
}

// handleGetPriceChart implements the get_price_chart tool
func handleGetPriceChart(marketService interfaces.MarketService, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ticker, err := request.RequireString("ticker")
		ticker = analysis.NormalizeTicker(ticker)
		if err != nil || ticker == "" {
			return errorResult("Error: ticker parameter is required"), nil
		}

		series, err := marketService.History(ctx, ticker)
		if err != nil {
			logger.Error().Err(err).Str("ticker", ticker).Msg("Price history failed")
			return errorResult(fmt.Sprintf("Error getting price history: %v", err)), nil
		}

		png, err := chart.RenderPriceChart(ticker, series)
		if err != nil {
			if errors.Is(err, chart.ErrNotEnoughData) {
				return errorResult(fmt.Sprintf("No stock data found for %s.", ticker)), nil
			}
			return errorResult(fmt.Sprintf("Chart error: %v", err)), nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(fmt.Sprintf("%s closing prices, %d sessions", ticker, series.Len())),
				mcp.NewImageContent(base64.StdEncoding.EncodeToString(png), "image/png"),
			},
		}, nil
	}
}

// handlePurgeCache implements the purge_cache tool
func handlePurgeCache(purge func() (int, bool)) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		removed, enabled := purge()
		if !enabled {
			return textResult("Price history cache is disabled"), nil
		}
		return textResult(fmt.Sprintf("Purged %d cached price histories", removed)), nil
	}
}

// Helper functions

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
