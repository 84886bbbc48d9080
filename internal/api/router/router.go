package router

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
	"go.opentelemetry.io/otel/trace"

	"cv-assistant-go/internal/api/handler"
	"cv-assistant-go/internal/logger"
	"cv-assistant-go/internal/notify"
	"cv-assistant-go/internal/parser"
	"cv-assistant-go/internal/tracing"
	"cv-assistant-go/internal/types"
)

// APIKeyHeader 发信接口的鉴权头
const APIKeyHeader = "x-api-key"

// RegisterRoutes 注册 API 路由，apiKey 非空时 /api/send-email 需要鉴权
func RegisterRoutes(h *server.Hertz, resumeHandler *handler.ResumeHandler, apiKey string) {
	h.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, resumeHandler.Health())
	})

	api := h.Group("/api")

	api.POST("/parse", func(c context.Context, ctx *app.RequestContext) {
		var req types.ParseRequest
		if !bindJSON(ctx, &req) {
			return
		}
		resp, err := resumeHandler.Parse(c, req.Text)
		if err != nil {
			writeError(c, ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/parse/structured", func(c context.Context, ctx *app.RequestContext) {
		var req types.ParseRequest
		if !bindJSON(ctx, &req) {
			return
		}
		resp, err := resumeHandler.ParseStructured(c, req.Text)
		if err != nil {
			writeError(c, ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/upload", func(c context.Context, ctx *app.RequestContext) {
		fileHeader, err := ctx.FormFile("file")
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "file is required"})
			return
		}
		file, err := fileHeader.Open()
		if err != nil {
			ctx.JSON(consts.StatusInternalServerError, utils.H{"error": "failed to open uploaded file"})
			return
		}
		defer file.Close()

		resp, err := resumeHandler.Upload(c, file, fileHeader.Size, fileHeader.Filename)
		if err != nil {
			writeError(c, ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/chat", func(c context.Context, ctx *app.RequestContext) {
		var req types.ChatRequest
		if !bindJSON(ctx, &req) {
			return
		}
		resp, err := resumeHandler.Chat(c, &req)
		if err != nil {
			writeError(c, ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	})

	sendEmail := []app.HandlerFunc{func(c context.Context, ctx *app.RequestContext) {
		var req types.SendEmailRequest
		if !bindJSON(ctx, &req) {
			return
		}
		resp, err := resumeHandler.SendEmail(c, &req)
		if err != nil {
			writeError(c, ctx, err)
			return
		}
		ctx.JSON(consts.StatusOK, resp)
	}}
	if apiKey != "" {
		sendEmail = append([]app.HandlerFunc{APIKeyAuth(apiKey)}, sendEmail...)
	}
	api.POST("/send-email", sendEmail...)
}

// APIKeyAuth 校验 x-api-key 头，缺失或不匹配都返回 403
func APIKeyAuth(apiKey string) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+APIKeyHeader, ""),
		keyauth.WithValidator(func(_ context.Context, _ *app.RequestContext, key string) (bool, error) {
			return subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1, nil
		}),
		keyauth.WithErrorHandler(func(_ context.Context, ctx *app.RequestContext, err error) {
			logger.Warn().Err(err).Str("path", string(ctx.Path())).Msg("API key 校验失败")
			ctx.AbortWithStatusJSON(consts.StatusForbidden, utils.H{"error": "Forbidden - Invalid API key"})
		}),
	)
}

func bindJSON(ctx *app.RequestContext, v any) bool {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return true
	}
	if err := json.Unmarshal(body, v); err != nil {
		ctx.JSON(consts.StatusBadRequest, utils.H{"error": "invalid JSON body"})
		return false
	}
	return true
}

// writeError 把处理器错误映射为 HTTP 状态码和错误消息
func writeError(c context.Context, ctx *app.RequestContext, err error) {
	status, message := consts.StatusInternalServerError, err.Error()
	switch {
	case errors.Is(err, handler.ErrTextRequired):
		status, message = consts.StatusBadRequest, "Text is required"
	case errors.Is(err, handler.ErrChatFieldsRequired),
		errors.Is(err, handler.ErrEmailFieldsRequired),
		errors.Is(err, handler.ErrUnsupportedFile),
		errors.Is(err, handler.ErrEmptyFile),
		errors.Is(err, notify.ErrInvalidRecipient),
		errors.Is(err, parser.ErrUnsupportedFileType),
		errors.Is(err, parser.ErrEmptyDocument):
		status = consts.StatusBadRequest
	case errors.Is(err, handler.ErrFileTooLarge):
		status = consts.StatusRequestEntityTooLarge
	case errors.Is(err, handler.ErrParsedNotFound):
		status = consts.StatusNotFound
	}
	tracing.RecordHTTPError(trace.SpanFromContext(c), err, status)
	if status >= consts.StatusInternalServerError {
		logger.Error().Err(err).Str("path", string(ctx.Path())).Msg("请求处理失败")
	}
	ctx.JSON(status, utils.H{"error": message})
}
