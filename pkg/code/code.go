package code

import (
	"fmt"
	"net/http"
)

type Code struct {
	// 状态码
	code int
	// 状态
	status bool
	// 错误消息
	Lang lang
	// 数据
	data interface{}
	// 是否含有Data
	haveData bool
	// 错误详细信息
	details []string
	// 是否含有详情
	haveDetails bool
}

var codes = map[int]string{}
var sussCodes = map[int]string{}

// NewError registers an error code, code values must be unique
// NewError 注册错误码，错误码不可重复
func NewError(code int, l lang) *Code {
	if _, ok := codes[code]; ok {
		panic(fmt.Sprintf("错误码 %d 已经存在，请更换一个", code))
	}
	codes[code] = l.GetMessage()
	return &Code{code: code, status: false, Lang: l}
}

// NewSuss registers a success code
// NewSuss 注册成功码
func NewSuss(code int, l lang) *Code {
	if _, ok := sussCodes[code]; ok {
		panic(fmt.Sprintf("成功码 %d 已经存在，请更换一个", code))
	}
	sussCodes[code] = l.GetMessage()
	return &Code{code: code, status: true, Lang: l}
}

// Clone returns a copy without data or details so package level codes stay untouched
// Clone 创建一个不带数据和详情的副本，避免修改包级变量
func (e *Code) Clone() *Code {
	return &Code{
		code:   e.code,
		status: e.status,
		Lang:   e.Lang,
	}
}

func (e *Code) Error() string {
	if e.haveDetails && len(e.details) > 0 {
		return e.Msg() + ": " + e.details[0]
	}
	return e.Msg()
}

// Is matches codes by numeric value so cloned codes still satisfy errors.Is
// Is 按错误码数值比较，克隆后的错误码仍可通过 errors.Is 判断
func (e *Code) Is(target error) bool {
	t, ok := target.(*Code)
	if !ok {
		return false
	}
	return t.code == e.code
}

func (e *Code) Code() int {
	return e.code
}

func (e *Code) Status() bool {
	return e.status
}

func (e *Code) Msg() string {
	return e.Lang.GetMessage()
}

func (e *Code) Details() []string {
	return e.details
}

func (e *Code) Data() interface{} {
	return e.data
}

func (e *Code) HaveDetails() bool {
	return e.haveDetails
}

func (e *Code) HaveData() bool {
	return e.haveData
}

// WithData attaches response data to a copy of the code
// WithData 在副本上附加响应数据
func (e *Code) WithData(data interface{}) *Code {
	c := e.Clone()
	c.details = e.details
	c.haveDetails = e.haveDetails
	c.haveData = true
	c.data = data
	return c
}

// WithDetails attaches detail messages to a copy of the code
// WithDetails 在副本上附加详情
func (e *Code) WithDetails(details ...string) *Code {
	c := e.Clone()
	c.data = e.data
	c.haveData = e.haveData
	c.haveDetails = true
	c.details = append([]string{}, details...)
	return c
}

func (e *Code) StatusCode() int {
	switch {
	case e.status:
		return http.StatusOK
	case e.code == ErrorNotFoundAPI.code:
		return http.StatusNotFound
	case e.code == ErrorTooManyRequests.code:
		return http.StatusTooManyRequests
	case e.code == ErrorServerInternal.code:
		return http.StatusInternalServerError
	case e.code == ErrorUnhealthy.code:
		return http.StatusServiceUnavailable
	case e.code == ErrorOperationTimeout.code:
		return http.StatusRequestTimeout
	}
	return http.StatusOK
}
