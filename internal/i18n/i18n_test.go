package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParseAcceptLanguage(t *testing.T) {
	cases := map[string]string{
		"":                   LocaleZhCN,
		"en-US,en;q=0.9":     LocaleEnUS,
		"en":                 LocaleEnUS,
		"fa-IR":              LocaleFaIR,
		"fa;q=0.8, en;q=0.5": LocaleFaIR,
		"de-DE,fr;q=0.9":     LocaleZhCN,
		"ja-JP, en-GB;q=0.7": LocaleEnUS,
		"zh_CN":              LocaleZhCN,
	}
	for header, want := range cases {
		if got := ParseAcceptLanguage(header); got != want {
			t.Fatalf("header %q: got %s want %s", header, got, want)
		}
	}
}

func TestResolveLocalePrefersQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?lang=fa-IR", nil)
	c.Request.Header.Set("Accept-Language", "en-US")
	if got := ResolveLocale(c); got != LocaleFaIR {
		t.Fatalf("expected query locale, got %s", got)
	}
	if got := ResolveLocale(nil); got != DefaultLocale {
		t.Fatalf("nil context should use default, got %s", got)
	}
}

func TestTranslateFallbacks(t *testing.T) {
	if got := T(LocaleEnUS, "error.token_gone"); got != "QR code expired, please scan again" {
		t.Fatalf("unexpected translation: %s", got)
	}
	if got := T("xx-XX", "error.unauthorized"); got != "未授权" {
		t.Fatalf("unknown locale should fall back to default: %s", got)
	}
	if got := T(LocaleEnUS, "error.missing_key"); got != "error.missing_key" {
		t.Fatalf("missing key should fall back to key: %s", got)
	}
	if got := Sprintf(LocaleEnUS, "error.too_many_requests", 30); got != "Too many requests, retry in 30 seconds" {
		t.Fatalf("unexpected formatted message: %s", got)
	}
}

func TestLocalesShareKeys(t *testing.T) {
	for key := range messages[DefaultLocale] {
		for _, locale := range supportedLocales {
			if _, ok := messages[locale][key]; !ok {
				t.Fatalf("locale %s missing key %s", locale, key)
			}
		}
	}
}
