// Package i18n 接口提示文案的多语言支持
package i18n

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	LocaleZhCN = "zh-CN"
	LocaleEnUS = "en-US"
	LocaleFaIR = "fa-IR"

	DefaultLocale = LocaleZhCN
)

var supportedLocales = []string{LocaleZhCN, LocaleEnUS, LocaleFaIR}

// ResolveLocale 按 lang 查询参数、Accept-Language 依次解析语言
func ResolveLocale(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return DefaultLocale
	}
	if locale, ok := matchLocale(c.Query("lang")); ok {
		return locale
	}
	return ParseAcceptLanguage(c.GetHeader("Accept-Language"))
}

// ParseAcceptLanguage 取 Accept-Language 中第一个受支持的语言
func ParseAcceptLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if locale, ok := matchLocale(tag); ok {
			return locale
		}
	}
	return DefaultLocale
}

func matchLocale(tag string) (string, bool) {
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
	if tag == "" {
		return "", false
	}
	for _, locale := range supportedLocales {
		if strings.EqualFold(locale, tag) {
			return locale, true
		}
	}
	primary := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
	for _, locale := range supportedLocales {
		if strings.HasPrefix(strings.ToLower(locale), primary+"-") {
			return locale, true
		}
	}
	return "", false
}

// T 翻译文案，缺失时回退默认语言，再回退 key 本身
func T(locale, key string) string {
	if table, ok := messages[locale]; ok {
		if msg, ok := table[key]; ok {
			return msg
		}
	}
	if msg, ok := messages[DefaultLocale][key]; ok {
		return msg
	}
	return key
}

// Sprintf 翻译并格式化
func Sprintf(locale, key string, args ...interface{}) string {
	return fmt.Sprintf(T(locale, key), args...)
}
