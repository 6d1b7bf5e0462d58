package middleware

import (
	"slices"
	"strings"

	"github.com/haierkeys/prompt-history/pkg/app"
	"github.com/haierkeys/prompt-history/pkg/code"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
)

// LangWithTranslator 创建带翻译器的语言中间件（支持依赖注入）
// 语言来自 lang 查询参数或 lang 请求头，只作用于当前请求
func LangWithTranslator(uni *ut.UniversalTranslator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var lang string

		if s, exist := c.GetQuery("lang"); exist {
			lang = s
		} else if s = c.GetHeader("lang"); len(s) != 0 {
			lang = s
		}

		lang = strings.ToLower(strings.ReplaceAll(lang, "-", "_"))
		if !slices.Contains(code.GetSupportedLanguages(), lang) {
			lang = code.GetGlobalDefaultLang()
		}
		c.Set(app.LangKey, lang)

		if uni != nil {
			// 翻译器使用 "zh" 而非 "zh_cn"
			trans, found := uni.GetTranslator(strings.SplitN(lang, "_", 2)[0])
			if !found {
				trans, _ = uni.GetTranslator("en")
			}
			c.Set(app.TranslatorKey, trans)
		}

		c.Next()
	}
}
