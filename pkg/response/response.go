package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/xiebiao/bookshelf/pkg/errors"
)

// Response 统一响应结构
// Code是业务错误码（0表示成功），Data只在成功时返回
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
// 错误挂到c.Errors上，由请求日志中间件统一记录内部错误
func Error(c *gin.Context, err error) {
	appErr := apperrors.GetAppError(err)
	_ = c.Error(err)

	c.JSON(apperrors.StatusForCode(appErr.Code), Response{
		Code:    appErr.Code,
		Message: appErr.Message,
	})
}

// ErrorWithCode 自定义错误码和消息
func ErrorWithCode(c *gin.Context, code int, message string) {
	c.JSON(apperrors.StatusForCode(code), Response{
		Code:    code,
		Message: message,
	})
}

// AbortWithError 中间件中使用，终止后续处理
func AbortWithError(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}
