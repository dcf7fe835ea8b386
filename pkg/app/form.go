package app

import (
	"strings"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// ValidError 单个字段的验证错误
type ValidError struct {
	Key     string
	Message string
}

type ValidErrors []*ValidError

func (v *ValidError) Error() string {
	return v.Message
}

func (v ValidErrors) Error() string {
	return strings.Join(v.ErrorsToString(), ",")
}

// ErrorsToString returns one message per failed field
func (v ValidErrors) ErrorsToString() []string {
	var errs []string
	for _, err := range v {
		errs = append(errs, err.Error())
	}
	return errs
}

// MapsToString returns failed fields keyed by field name
func (v ValidErrors) MapsToString() map[string]string {
	out := make(map[string]string, len(v))
	for _, err := range v {
		out[err.Key] = err.Message
	}
	return out
}

// BindAndValid binds the request into obj and validates it, messages are
// translated with the translator set by the language middleware
// BindAndValid 绑定并校验请求参数，错误信息使用语言中间件设置的翻译器翻译
func BindAndValid(c *gin.Context, obj any) (bool, ValidErrors) {
	var errs ValidErrors

	if err := c.ShouldBind(obj); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if !ok {
			errs = append(errs, &ValidError{Key: "body", Message: err.Error()})
			return false, errs
		}

		var trans ut.Translator
		if v, exists := c.Get("trans"); exists {
			trans, _ = v.(ut.Translator)
		}
		for _, e := range validationErrors {
			msg := e.Error()
			if trans != nil {
				msg = e.Translate(trans)
			}
			errs = append(errs, &ValidError{Key: e.Field(), Message: msg})
		}
		return false, errs
	}

	return true, nil
}
