package code

import (
	"errors"
	"reflect"
	"sync/atomic"
)

// lang stores English and Chinese text of one message
// lang 存储一条消息的英文和中文文本
type lang struct {
	en    string // English // 英文
	zh_cn string // Chinese // 中文
}

const FALLBACK_LNG = "en"

// lng 在包级变量初始化阶段就会被读取，声明时写入默认值
var lng = func() (v atomic.Value) {
	v.Store(FALLBACK_LNG)
	return
}()

// GetMessage returns the message in the global language, falling back to English
// GetMessage 返回全局语言对应的消息，缺失时回退到英文
func (l lang) GetMessage() string {
	val := reflect.ValueOf(l)
	if field := val.FieldByName(GetGlobalDefaultLang()); field.IsValid() && field.String() != "" {
		return field.String()
	}
	return val.FieldByName(FALLBACK_LNG).String()
}

// GetSupportedLanguages returns the field names of lang
// GetSupportedLanguages 返回 lang 支持的语言
func GetSupportedLanguages() []string {
	var languages []string
	typ := reflect.TypeOf(lang{})
	for i := 0; i < typ.NumField(); i++ {
		languages = append(languages, typ.Field(i).Name)
	}
	return languages
}

// SetGlobalDefaultLang sets the global language, unknown values reset it to English
// SetGlobalDefaultLang 设置全局语言，无效值回退为英文
func SetGlobalDefaultLang(language string) error {
	for _, l := range GetSupportedLanguages() {
		if language == l {
			lng.Store(language)
			return nil
		}
	}
	lng.Store(FALLBACK_LNG)
	return errors.New("unsupported language type, set defaulting to " + FALLBACK_LNG)
}

// GetGlobalDefaultLang gets the global language
// GetGlobalDefaultLang 获取全局语言
func GetGlobalDefaultLang() string {
	if v, ok := lng.Load().(string); ok {
		return v
	}
	return FALLBACK_LNG
}
