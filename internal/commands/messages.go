package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"price-drop-tracker/internal/market"
	"price-drop-tracker/internal/types"
	"price-drop-tracker/lib/helpers"
	"price-drop-tracker/lib/translation"
)

// AlertMessage formats a price drop alert as MarkdownV2
func AlertMessage(name string, price, changePct, threshold float64) string {
	return fmt.Sprintf(
		"📉 *%s: %s*\n%s: *%s*\n%s: *%s*\n%s: %s",
		helpers.EscapeMarkdownV2(translation.Translate("Price Alert")),
		helpers.EscapeMarkdownV2(name),
		helpers.EscapeMarkdownV2(translation.Translate("Current Price")),
		helpers.FormatPriceUS(price, true),
		helpers.EscapeMarkdownV2(translation.Translate("Change")),
		helpers.FormatPercent(changePct, 4, true),
		helpers.EscapeMarkdownV2(translation.Translate("Threshold")),
		helpers.FormatPercent(threshold, 2, true),
	)
}

// CommandStatus formats the last snapshot as a MarkdownV2 status list
func CommandStatus(snapshot *types.Snapshot, now time.Time) string {
	if snapshot == nil {
		return helpers.EscapeMarkdownV2(translation.Translate("No price data available yet"))
	}

	lines := []string{
		"📊 *" + helpers.EscapeMarkdownV2(translation.Translate("Price Drop Tracker Status")) + "*",
		"_" + helpers.EscapeMarkdownV2(checkedAt(snapshot.Timestamp, now)) + "_",
		"",
	}

	if !snapshot.Success {
		lines = append(lines, "❌ "+helpers.EscapeMarkdownV2(snapshot.Error))
		return strings.Join(lines, "\n")
	}

	for _, r := range snapshot.Results {
		name := r.Name
		if name == "" {
			name = r.Symbol
		}

		if !r.Checked() {
			lines = append(lines, fmt.Sprintf("⚠️ %s: %s", helpers.EscapeMarkdownV2(name), helpers.EscapeMarkdownV2(translation.Translate("unavailable"))))
			continue
		}

		marker := "✓"
		if r.AlertSent {
			marker = "🚨"
		}
		lines = append(lines, fmt.Sprintf("%s %s: $%s \\(%s\\)",
			marker,
			helpers.EscapeMarkdownV2(name),
			helpers.FormatPriceUS(r.Price, true),
			helpers.FormatPercent(r.ChangePct, 2, true),
		))
	}
	return strings.Join(lines, "\n")
}

// checkedAt describes when a snapshot was taken. humanize only speaks
// English, so other languages get the wall time.
func checkedAt(ts, now time.Time) string {
	if translation.GetLanguage() == "en" {
		return translation.Translate("checked %s", humanize.RelTime(ts, now, "ago", "from now"))
	}
	return translation.Translate("checked at %s", ts.Format("2006-01-02 15:04"))
}

// MarketClosed is the reply to a check skipped by the market hours gate
func MarketClosed(err error) string {
	text := translation.Translate("Market is closed, check skipped")

	var closed *market.ClosedError
	if errors.As(err, &closed) {
		text += "\n" + translation.Translate("Next check at %s", closed.NextOpen.Format("Mon 2006-01-02 15:04 MST"))
	}
	return text
}

// CommandSymbols lists the tracked symbols with their display names
func CommandSymbols(symbols []types.Symbol) string {
	lines := []string{fmt.Sprintf("*%s* \\(%s\\)",
		helpers.EscapeMarkdownV2(translation.Translate("Tracked symbols")),
		humanize.Comma(int64(len(symbols))),
	)}
	for _, s := range symbols {
		lines = append(lines, fmt.Sprintf("▫️ `%s` %s", s.Symbol, helpers.EscapeMarkdownV2(s.Name)))
	}
	return strings.Join(lines, "\n")
}

func CommandHelp() string {
	return helpers.EscapeMarkdownV2(translation.Translate("Command help message"))
}
