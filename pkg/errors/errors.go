package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError 应用错误
// Code给客户端判断错误类型，Message是可直接展示的提示，Err只进日志
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 把底层错误（数据库、网络）包装为内部错误
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// WithCode 用指定错误码包装底层错误
func WithCode(code int, err error, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// - 4xxxx: 客户端错误
// - 5xxxx: 服务端错误

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal      = 50000 // 内部错误
	ErrCodeDatabaseError = 50001 // 数据库错误
	ErrCodeRedisError    = 50002 // Redis错误
	ErrCodeMQError       = 50003 // 消息队列错误

	// 资源错误（40400-40499）
	ErrCodeNotFound     = 40400 // 资源不存在(通用)
	ErrCodeUserNotFound = 40401 // 用户不存在
	ErrCodeBookNotFound = 40402 // 图书不存在

	// 唯一性错误
	ErrCodeDuplicateEntry = 40009 // 重复记录(通用)
	ErrCodeTitleDuplicate = 40010 // 用户头衔已存在

	// 限流（42900-42999）
	ErrCodeTooManyRequests = 42900

	// 参数错误（40900-40999）
	ErrCodeInvalidParams = 40900 // 参数错误
	ErrCodeBindError     = 40901 // 参数绑定失败
	ErrCodeInvalidUser   = 40902 // 用户字段非法
	ErrCodeInvalidBook   = 40903 // 图书字段非法
)

var (
	ErrInternal        = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError   = New(ErrCodeDatabaseError, "数据库错误")
	ErrRedisError      = New(ErrCodeRedisError, "缓存服务错误")
	ErrNotFound        = New(ErrCodeNotFound, "资源不存在")
	ErrDuplicateEntry  = New(ErrCodeDuplicateEntry, "记录已存在")
	ErrTooManyRequests = New(ErrCodeTooManyRequests, "请求过于频繁，请稍后再试")
	ErrInvalidParams   = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError       = New(ErrCodeBindError, "参数格式错误")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

// CodeOf 返回错误链上第一个AppError的错误码，没有则返回0
func CodeOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return 0
}

// IsValidation 字段校验失败（409xx）
func IsValidation(err error) bool {
	code := CodeOf(err)
	return code >= 40900 && code <= 40999
}

// IsNotFound 资源不存在（404xx）
func IsNotFound(err error) bool {
	code := CodeOf(err)
	return code >= 40400 && code <= 40499
}

// IsNotUnique 唯一性约束冲突
func IsNotUnique(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeDuplicateEntry || code == ErrCodeTitleDuplicate
}

// StatusForCode 业务错误码到HTTP状态码的映射
// 所有客户端错误统一返回400，限流返回429
func StatusForCode(code int) int {
	switch {
	case code == 0:
		return http.StatusOK
	case code >= 42900 && code <= 42999:
		return http.StatusTooManyRequests
	case code >= 40000 && code <= 49999:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HTTPStatus 错误对应的HTTP状态码
func HTTPStatus(err error) int {
	return StatusForCode(GetAppError(err).Code)
}
