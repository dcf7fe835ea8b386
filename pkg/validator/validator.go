package validator

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var hhmmRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// CustomValidator implements gin's binding.StructValidator on top of validator/v10
// CustomValidator 基于 validator/v10 实现 gin 的 binding.StructValidator
type CustomValidator struct {
	once     sync.Once
	validate *validator.Validate
}

var std = NewCustomValidator()

// NewCustomValidator 创建验证器
func NewCustomValidator() *CustomValidator {
	return &CustomValidator{}
}

// Default returns the process wide validator shared by gin binding and the services
// Default 返回 gin 绑定与业务层共享的验证器
func Default() *CustomValidator {
	return std
}

// Struct validates v with the shared validator
// Struct 使用共享验证器校验结构体
func Struct(v any) error {
	return std.ValidateStruct(v)
}

func (v *CustomValidator) ValidateStruct(obj any) error {
	if kindOfData(obj) != reflect.Struct {
		return nil
	}
	v.lazyinit()
	return v.validate.Struct(obj)
}

func (v *CustomValidator) Engine() any {
	v.lazyinit()
	return v.validate
}

func (v *CustomValidator) lazyinit() {
	v.once.Do(func() {
		v.validate = validator.New()
		v.validate.SetTagName("binding")
		v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.validate.RegisterValidation("hhmm", validateHHMM)
		_ = v.validate.RegisterValidation("restore_mode", validateRestoreMode)
	})
}

// validateHHMM accepts a 24 hour "HH:MM" string
func validateHHMM(fl validator.FieldLevel) bool {
	return hhmmRe.MatchString(fl.Field().String())
}

func validateRestoreMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "replace", "merge", "skip":
		return true
	}
	return false
}

// Messages flattens a validation error into one message per failed field
// Messages 把验证错误展开为每个字段一条消息
func Messages(err error) []string {
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := e.Namespace() + " failed on '" + e.Tag() + "'"
		if e.Param() != "" {
			msg += " (" + e.Param() + ")"
		}
		out = append(out, msg)
	}
	return out
}

func kindOfData(data any) reflect.Kind {
	value := reflect.ValueOf(data)
	valueType := value.Kind()
	if valueType == reflect.Ptr {
		valueType = value.Elem().Kind()
	}
	return valueType
}
