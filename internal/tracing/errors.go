package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorType 错误分类，写入 span 的 error.type 属性
type ErrorType string

const (
	// ErrorTypeHTTP HTTP 接口错误
	ErrorTypeHTTP ErrorType = "http"
	// ErrorTypeRedis Redis 错误
	ErrorTypeRedis ErrorType = "redis"
	// ErrorTypeObjectStore MinIO 错误
	ErrorTypeObjectStore ErrorType = "object_store"
	// ErrorTypeProvider 外部模型错误
	ErrorTypeProvider ErrorType = "answer_provider"
	// ErrorTypeEmail 邮件投递错误
	ErrorTypeEmail ErrorType = "email"
	// ErrorTypeValidation 参数校验错误
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeInternal   ErrorType = "internal"
)

// RecordError 记录错误并把 span 状态设为 Error
func RecordError(span trace.Span, err error, errorType ErrorType, attributes ...attribute.KeyValue) {
	if span == nil || err == nil {
		return
	}

	span.RecordError(err)
	span.SetAttributes(
		attribute.String("error.type", string(errorType)),
		attribute.String("error.message", TruncateString(err.Error(), DefaultMaxLength)),
	)
	if len(attributes) > 0 {
		span.SetAttributes(attributes...)
	}
	span.SetStatus(codes.Error, err.Error())
}

// RecordHTTPError 记录 HTTP 错误并按状态码分类
func RecordHTTPError(span trace.Span, err error, statusCode int) {
	category := "unknown"
	switch {
	case statusCode >= 400 && statusCode < 500:
		category = "client_error"
	case statusCode >= 500:
		category = "server_error"
	}
	RecordError(span, err, ErrorTypeHTTP,
		attribute.Int("http.status_code", statusCode),
		attribute.String("error.category", category),
	)
}
