package code

import (
	"errors"
	"slices"
)

// lang English and Chinese text of a message
// lang 消息的英文与中文文本
type lang struct {
	en    string
	zh_cn string
}

const (
	LangEN   = "en"
	LangZhCN = "zh_cn"
)

// FALLBACK_LNG language used when the configured one has no text
const FALLBACK_LNG = LangEN

// Default language is English // 默认语言为英文
var lng = LangEN

// GetMessage returns the message in the global language, falling back to English
// GetMessage 返回全局语言的消息，缺失时回退为英文
func (l lang) GetMessage() string {
	return l.In(lng)
}

// In returns the message in the given language, falling back to English
// In 返回指定语言的消息，缺失时回退为英文
func (l lang) In(language string) string {
	if language == LangZhCN && l.zh_cn != "" {
		return l.zh_cn
	}
	return l.en
}

// GetSupportedLanguages returns all supported languages
// GetSupportedLanguages 返回支持的所有语言
func GetSupportedLanguages() []string {
	return []string{LangEN, LangZhCN}
}

// SetGlobalDefaultLang sets the global default language
// SetGlobalDefaultLang 设置全局默认语言
func SetGlobalDefaultLang(language string) error {
	if slices.Contains(GetSupportedLanguages(), language) {
		lng = language
		return nil
	}
	lng = FALLBACK_LNG
	return errors.New("unsupported language type, set defaulting to " + FALLBACK_LNG)
}

// GetGlobalDefaultLang gets the global default language
// GetGlobalDefaultLang 获取全局默认语言
func GetGlobalDefaultLang() string {
	return lng
}
