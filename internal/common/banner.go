package common

import (
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/banner"
)

// bannerRows returns the label/value pairs shown under the startup art.
func bannerRows(config *Config) [][2]string {
	analyst := fmt.Sprintf("%s (%s)", config.Analyst.Provider, config.Analyst.Model)
	if config.Analyst.Provider == "gemini" {
		analyst = fmt.Sprintf("gemini (%s)", config.Clients.Gemini.Model)
	}

	cache := "disabled"
	if config.Storage.Path != "" {
		cache = fmt.Sprintf("%s (ttl %s)", config.Storage.Path, config.Storage.GetTTL())
	}

	return [][2]string{
		{"Version", GetVersion()},
		{"Build", GetBuild()},
		{"Commit", GetGitCommit()},
		{"Environment", config.Environment},
		{"Service URL", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)},
		{"Analyst", analyst},
		{"History", config.Analysis.GetHistoryWindow().String()},
		{"Cache", cache},
	}
}

// PrintBanner writes the startup banner to stderr and logs the same
// settings.
func PrintBanner(config *Config, logger *Logger) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	hr := lineColor + strings.Repeat("═", 70) + banner.ColorReset

	art := []string{
		` _____ ___ ____ _  _______ ______        _____ ____  _____`,
		`|_   _|_ _/ ___| |/ / ____|  _ \ \      / /_ _/ ___|| ____|`,
		`  | |  | | |   | ' /|  _| | |_) \ \ /\ / / | |\___ \|  _|`,
		`  | |  | | |___| . \| |___|  _ < \ V  V /  | | ___) | |___`,
		`  |_| |___\____|_|\_\_____|_| \_\ \_/\_/  |___|____/|_____|`,
	}

	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)
	for _, line := range art {
		fmt.Fprintf(os.Stderr, "%s%s%s\n", textColor, line, banner.ColorReset)
	}
	fmt.Fprintf(os.Stderr, "\n%s  AI Stock Analysis%s\n\n%s\n\n", textColor, banner.ColorReset, hr)

	rows := bannerRows(config)
	event := logger.Info()
	for _, kv := range rows {
		fmt.Fprintf(os.Stderr, "%s  %-16s %s%s\n", textColor, kv[0], kv[1], banner.ColorReset)
		event = event.Str(strings.ReplaceAll(strings.ToLower(kv[0]), " ", "_"), kv[1])
	}
	fmt.Fprintf(os.Stderr, "\n%s\n\n", hr)

	event.Msg("Application started")
}

// PrintShutdownBanner displays the application shutdown banner to stderr.
func PrintShutdownBanner(logger *Logger) {
	lineColor := banner.ColorCyan
	textColor := banner.ColorBold + banner.ColorWhite
	width := 42
	hr := lineColor + strings.Repeat("═", width) + banner.ColorReset

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "%s\n", hr)
	fmt.Fprintf(os.Stderr, "%s  TICKERWISE — SHUTTING DOWN%s\n", textColor, banner.ColorReset)
	fmt.Fprintf(os.Stderr, "%s\n", hr)
	fmt.Fprintf(os.Stderr, "\n")

	logger.Info().Msg("Application shutting down")
}
