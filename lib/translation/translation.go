package translation

import (
	"strings"

	"github.com/leonelquinteros/gotext"
)

// Configure loads the message catalog for lang from dir. Values such as
// "pl_PL.UTF-8" are reduced to their language part.
func Configure(dir, lang string) {
	gotext.Configure(dir, NormalizeLanguage(lang), "default")
}

func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "._@"); i >= 0 {
		lang = lang[:i]
	}
	if lang == "" || lang == "c" || lang == "posix" {
		return "en"
	}
	return lang
}

// GetLanguage returns the language part of the configured locale
func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return "en"
	}

	return NormalizeLanguage(lang)
}

func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}
