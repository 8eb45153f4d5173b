package i18n

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestNormalizeLocale(t *testing.T) {
	cases := map[string]string{
		"":           LocaleZH,
		"zh":         LocaleZH,
		"zh-CN":      LocaleZH,
		"zh-HK":      LocaleTW,
		"zh-Hant-TW": LocaleTW,
		"en":         LocaleEN,
		"en-GB":      LocaleEN,
		"fr-FR":      LocaleZH,
	}
	for input, want := range cases {
		if got := NormalizeLocale(input); got != want {
			t.Fatalf("NormalizeLocale(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTFallback(t *testing.T) {
	if got := T(LocaleEN, "error.not_found"); got != "Not found" {
		t.Fatalf("unexpected english message: %s", got)
	}
	// 繁体缺失的 key 回落到简体
	if got := T(LocaleTW, "email.new_request.subject"); got != catalog[LocaleZH]["email.new_request.subject"] {
		t.Fatalf("expected zh fallback, got %s", got)
	}
	if got := T(LocaleEN, "missing.key"); got != "missing.key" {
		t.Fatalf("expected key passthrough, got %s", got)
	}
	if got := Sprintf(LocaleEN, "email.request_status.body", "7", "Approved"); got != "Your parcel request #7 is now: Approved." {
		t.Fatalf("unexpected formatted message: %s", got)
	}
}

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name   string
		target string
		header string
		want   string
	}{
		{name: "query wins over header", target: "/?lang=en", header: "zh-TW", want: LocaleEN},
		{name: "first header entry", target: "/", header: "zh-TW,zh;q=0.9,en;q=0.8", want: LocaleTW},
		{name: "no hint", target: "/", want: DefaultLocale},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, tc.target, nil)
			if tc.header != "" {
				c.Request.Header.Set("Accept-Language", tc.header)
			}
			if got := ResolveLocale(c); got != tc.want {
				t.Fatalf("ResolveLocale() = %s, want %s", got, tc.want)
			}
		})
	}

	if got := ResolveLocale(nil); got != DefaultLocale {
		t.Fatalf("nil context should use default, got %s", got)
	}
}
