package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xiebiao/bookshelf/pkg/tracing"
)

const (
	// HeaderRequestID 请求ID头
	HeaderRequestID = "X-Request-ID"

	requestIDKey = "request_id"

	slowRequestThreshold = 3 * time.Second
)

// RequestLogger 请求日志中间件
// 复用客户端传入的X-Request-ID，没有则生成；c.Errors中的错误随访问日志一起输出
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDKey, requestID)
		c.Header(HeaderRequestID, requestID)

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if traceID := tracing.ExtractTraceID(c.Request.Context()); traceID != "" {
			fields = append(fields, zap.String("trace_id", traceID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			logger.Error("请求失败", fields...)
		case latency > slowRequestThreshold:
			logger.Warn("慢请求", fields...)
		case status >= 400:
			logger.Info("请求被拒绝", fields...)
		default:
			logger.Info("请求完成", fields...)
		}
	}
}

// GetRequestID 从Context中获取请求ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
