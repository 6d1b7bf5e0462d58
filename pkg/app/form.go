package app

import (
	"strings"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// TranslatorKey gin.Context 中保存翻译器的键
const TranslatorKey = "trans"

// ValidError 单个字段的校验错误
type ValidError struct {
	Key     string
	Message string
}

// ValidErrors 校验错误集合
type ValidErrors []*ValidError

func (v *ValidError) Error() string {
	return v.Message
}

func (v ValidErrors) Error() string {
	return strings.Join(v.Errors(), ",")
}

// Errors 返回所有错误消息
func (v ValidErrors) Errors() []string {
	var errs []string
	for _, err := range v {
		errs = append(errs, err.Error())
	}
	return errs
}

// ErrorsToString 以逗号拼接所有错误消息
func (v ValidErrors) ErrorsToString() string {
	return strings.Join(v.Errors(), ",")
}

// MapsToString 以字段名为键的错误消息
func (v ValidErrors) MapsToString() map[string]string {
	maps := make(map[string]string, len(v))
	for _, err := range v {
		maps[err.Key] = err.Message
	}
	return maps
}

// BindAndValid 绑定 query / body 参数并校验，校验错误按请求语言翻译
func BindAndValid(c *gin.Context, v any) (bool, ValidErrors) {
	var errs ValidErrors

	if err := c.ShouldBind(v); err != nil {
		errs = translate(c, err)
		return false, errs
	}
	return true, nil
}

func translate(c *gin.Context, err error) ValidErrors {
	var errs ValidErrors

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		errs = append(errs, &ValidError{Key: "body", Message: err.Error()})
		return errs
	}

	trans, _ := c.Value(TranslatorKey).(ut.Translator)
	for _, verr := range verrs {
		msg := verr.Error()
		if trans != nil {
			msg = verr.Translate(trans)
		}
		errs = append(errs, &ValidError{Key: verr.Field(), Message: msg})
	}
	return errs
}
