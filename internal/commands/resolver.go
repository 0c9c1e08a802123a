// Package commands resolves the fixed set of local chat commands before any
// model call. Resolution never returns an error; failures on outbound
// fetches degrade to static informative strings.
package commands

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/xpelch/ai-chatbot/internal/services"
)

// fetchTimeout bounds every outbound call a command makes.
const fetchTimeout = 5 * time.Second

// GasEstimator supplies live fee suggestions for the gas command.
type GasEstimator interface {
	Suggestions(ctx context.Context) (services.GasSuggestions, error)
}

// TrendingSource supplies the trending pools feed for the top gainers command.
type TrendingSource interface {
	TrendingPools(ctx context.Context, duration string, limit int) ([]services.TrendingPool, error)
}

// Resolver pattern-matches prompts against the recognized commands. The
// clock and the coin flip are injectable for tests.
type Resolver struct {
	gas      GasEstimator
	trending TrendingSource

	now  func() time.Time
	flip func() bool

	logger *slog.Logger
}

// NewResolver creates a Resolver wired to the given gas and trending sources.
func NewResolver(gas GasEstimator, trending TrendingSource, logger *slog.Logger) *Resolver {
	return &Resolver{
		gas:      gas,
		trending: trending,
		now:      time.Now,
		flip:     func() bool { return rand.IntN(2) == 0 },
		logger:   logger.With(slog.String("module", "commands")),
	}
}

// Resolve matches the prompt against the recognized commands, case
// insensitively on the trimmed input. It returns the reply and true on a
// match, or ("", false) when the caller should proceed to the model.
func (r *Resolver) Resolve(ctx context.Context, prompt string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(prompt))

	switch {
	case lower == "help":
		return r.handleHelp(), true
	case strings.HasPrefix(lower, "echo "):
		return r.handleEcho(prompt), true
	case lower == "time":
		return r.handleTime(), true
	case lower == "gas now" || lower == "gas" || lower == "gas?":
		return r.handleGas(ctx), true
	case lower == "flip" || strings.HasPrefix(lower, "flip a coin"):
		return r.handleFlip(), true
	case strings.HasPrefix(lower, "top gainers"):
		return r.handleTopGainers(ctx), true
	}

	return "", false
}

func (r *Resolver) handleHelp() string {
	return strings.Join([]string{
		"Available commands (Markdown/HTML supported):",
		"",
		"- help: Show this help",
		"- echo <text>: Echo back text",
		"- time: Show server time (local and UTC)",
		"- gas now: Current gas estimate (Base)",
		"- flip a coin: Random yes/no (for science)",
		"- top gainers: Dex trending snapshot",
	}, "\n")
}

// handleEcho returns everything after the 5-character "echo " prefix,
// verbatim. Only leading whitespace before the prefix is dropped; the echoed
// text keeps its spacing untouched.
func (r *Resolver) handleEcho(prompt string) string {
	return strings.TrimLeft(prompt, " \t\r\n")[5:]
}

func (r *Resolver) handleTime() string {
	const layout = "Monday, January 2, 2006 3:04:05 PM MST"
	now := r.now()
	return "Local: " + now.Format(layout) + "\nUTC: " + now.UTC().Format(layout)
}

func (r *Resolver) handleGas(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	s, err := r.gas.Suggestions(ctx)
	if err != nil {
		r.logger.Debug("Gas fetch failed", slog.String("err", err.Error()))
		return "Gas (Base): unable to fetch right now. Try again in a bit."
	}
	return services.FormatGasSuggestions(s)
}

func (r *Resolver) handleFlip() string {
	if r.flip() {
		return "Heads — send it."
	}
	return "Tails — maybe wait a candle."
}

func (r *Resolver) handleTopGainers(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	pools, err := r.trending.TrendingPools(ctx, "1h", 5)
	if err != nil {
		r.logger.Debug("Trending fetch failed", slog.String("err", err.Error()))
		return "Top gainers: API not reachable. Try again later."
	}
	return services.FormatTrendingPools(pools, "1h")
}
