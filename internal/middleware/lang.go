package middleware

import (
	"strings"

	"github.com/haierkeys/fast-backup-service/pkg/code"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	"golang.org/x/text/language"
)

// LangWithTranslator 选择校验错误的翻译器与错误码消息语言
// 优先级：?lang= 查询参数，lang 请求头，Accept-Language 首选项
func LangWithTranslator(uni *ut.UniversalTranslator) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := requestLang(c)

		trans, found := uni.GetTranslator(lang)
		if !found {
			// zh_cn 之类的区域写法回退到主语言
			trans, found = uni.GetTranslator(strings.SplitN(lang, "_", 2)[0])
		}
		if !found {
			trans, _ = uni.GetTranslator(code.FALLBACK_LNG)
		}
		c.Set("trans", trans)

		code.SetGlobalDefaultLang(lang)

		c.Next()
	}
}

func requestLang(c *gin.Context) string {
	lang, ok := c.GetQuery("lang")
	if !ok || lang == "" {
		lang = c.GetHeader("lang")
	}
	if lang == "" {
		// 按 q 值排序后取首选语言
		if tags, _, err := language.ParseAcceptLanguage(c.GetHeader("Accept-Language")); err == nil && len(tags) > 0 {
			lang = tags[0].String()
		}
	}
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lang), "-", "_"))
}
