package helpers

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func EscapeMarkdownV2(text string) string {
	charactersToEscape := []string{"\\", ".", "-", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "=", "|", "{", "}", "!"}

	for _, char := range charactersToEscape {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

func FormatPriceUS(price float64, escapeMarkdown bool) string {
	decimals := 4

	if price >= 1000 {
		decimals = 2
	} else if price < 0.01 {
		decimals = 8
	}

	p := message.NewPrinter(language.English)
	formatted := p.Sprintf("%.*f", decimals, price)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

// FormatPercent renders a signed percentage with the given precision, e.g. "-1.53%"
func FormatPercent(pct float64, decimals int, escapeMarkdown bool) string {
	p := message.NewPrinter(language.English)
	formatted := p.Sprintf("%+.*f%%", decimals, pct)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}
