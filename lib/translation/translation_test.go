package translation

import "testing"

func TestNormalizeLanguage(t *testing.T) {
	tests := map[string]string{
		"":            "en",
		"C":           "en",
		"POSIX":       "en",
		"en":          "en",
		"pl_PL.UTF-8": "pl",
		"de_DE@euro":  "de",
		" PL ":        "pl",
	}
	for in, want := range tests {
		if got := NormalizeLanguage(in); got != want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTranslateFallsBackToMessageID(t *testing.T) {
	Configure(t.TempDir(), "en")
	if got := Translate("Price Alert"); got != "Price Alert" {
		t.Errorf("Translate = %q", got)
	}
}

func TestGetLanguage(t *testing.T) {
	defer Configure(t.TempDir(), "en")

	Configure(t.TempDir(), "pl_PL.UTF-8")
	if got := GetLanguage(); got != "pl" {
		t.Errorf("GetLanguage = %q, want pl", got)
	}
	Configure(t.TempDir(), "")
	if got := GetLanguage(); got != "en" {
		t.Errorf("GetLanguage = %q, want en", got)
	}
}
