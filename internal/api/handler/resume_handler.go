package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"cv-assistant-go/internal/chat"
	"cv-assistant-go/internal/config"
	"cv-assistant-go/internal/constants"
	"cv-assistant-go/internal/logger"
	"cv-assistant-go/internal/notify"
	"cv-assistant-go/internal/parser"
	"cv-assistant-go/internal/storage"
	"cv-assistant-go/internal/tracing"
	"cv-assistant-go/internal/types"
)

var (
	ErrTextRequired        = errors.New("text is required")
	ErrChatFieldsRequired  = errors.New("parsedJson and question are required")
	ErrEmailFieldsRequired = errors.New("to, subject, and body are required")
	ErrParsedNotFound      = errors.New("parsed resume not found or expired")
	ErrFileTooLarge        = errors.New("file exceeds upload size limit")
	ErrUnsupportedFile     = errors.New("unsupported file type")
	ErrEmptyFile           = errors.New("uploaded file is empty")
)

// FileExtractor 上传文件的文本提取
type FileExtractor interface {
	parser.TextExtractor
	Supports(filename string) bool
}

// Dependencies ResumeHandler 的依赖，Cache 为空时使用内存缓存，Archive 为空时不归档原件
type Dependencies struct {
	Parser      *parser.ResumeParser
	Extractor   FileExtractor
	Dispatcher  *chat.Dispatcher
	Mailer      notify.EmailSender
	Cache       storage.ResumeCache
	Archive     storage.ArchiveStore
	Upload      config.UploadConfig
	ServiceName string
}

// ResumeHandler 协调解析、问答、发信流程，HTTP 和 MCP 共用
type ResumeHandler struct {
	parser      *parser.ResumeParser
	extractor   FileExtractor
	dispatcher  *chat.Dispatcher
	mailer      notify.EmailSender
	cache       storage.ResumeCache
	archive     storage.ArchiveStore
	upload      config.UploadConfig
	serviceName string
	now         func() time.Time
}

// NewResumeHandler 创建处理器
func NewResumeHandler(deps Dependencies) *ResumeHandler {
	h := &ResumeHandler{
		parser:      deps.Parser,
		extractor:   deps.Extractor,
		dispatcher:  deps.Dispatcher,
		mailer:      deps.Mailer,
		cache:       deps.Cache,
		archive:     deps.Archive,
		upload:      deps.Upload,
		serviceName: deps.ServiceName,
		now:         time.Now,
	}
	if h.parser == nil {
		h.parser = parser.NewResumeParser()
	}
	if h.extractor == nil {
		h.extractor = parser.NewFileTextExtractor(nil)
	}
	if h.dispatcher == nil {
		h.dispatcher = chat.NewDispatcher()
	}
	if h.cache == nil {
		h.cache = storage.NewMemoryResumeCache(constants.DefaultParsedCacheTTL, constants.MemoryCacheMaxEntries)
	}
	if h.serviceName == "" {
		h.serviceName = "CV Assistant MCP Server"
	}
	return h
}

var tracer = otel.Tracer("cv-assistant-go/api")

// Health 健康检查
func (h *ResumeHandler) Health() types.HealthResponse {
	return types.HealthResponse{
		Status:    "ok",
		Service:   h.serviceName,
		Timestamp: h.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// Parse 解析纯文本简历并缓存结果
func (h *ResumeHandler) Parse(ctx context.Context, text string) (*types.ParseResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrTextRequired
	}
	ctx, span := tracer.Start(ctx, "resume.parse")
	defer span.End()
	span.SetAttributes(attribute.Int("resume.length", len(text)))

	parsed := h.parser.ParseResumeText(text)
	return &types.ParseResponse{ParsedResume: *parsed, ParsedID: h.remember(ctx, parsed)}, nil
}

// ParseStructured 解析并附带章节和统计信息
func (h *ResumeHandler) ParseStructured(ctx context.Context, text string) (*types.StructuredParseResponse, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrTextRequired
	}
	ctx, span := tracer.Start(ctx, "resume.parse_structured")
	defer span.End()

	structured := h.parser.ParseStructuredResume(text)
	parsed := structured.ParsedResume
	return &types.StructuredParseResponse{StructuredResume: *structured, ParsedID: h.remember(ctx, &parsed)}, nil
}

// Upload 读取上传文件，提取文本后解析，配置了归档时保存原件
func (h *ResumeHandler) Upload(ctx context.Context, reader io.Reader, fileSize int64, filename string) (*types.UploadResponse, error) {
	ctx, span := tracer.Start(ctx, "resume.upload")
	defer span.End()
	span.SetAttributes(
		attribute.String("upload.filename", tracing.SafeAttributeValue("upload.filename", filename, tracing.DefaultMaxLength)),
		attribute.Int64("upload.size", fileSize),
	)

	if err := h.checkUpload(filename, fileSize); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}

	limit := h.upload.MaxBytes()
	if limit > 0 {
		reader = io.LimitReader(reader, limit+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, ErrFileTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	text, err := h.extractor.ExtractText(ctx, filename, data)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeValidation)
		return nil, err
	}

	parsed := h.parser.ParseResumeText(text)
	parsedID := h.remember(ctx, parsed)
	resp := &types.UploadResponse{ParsedResume: *parsed, ParsedID: parsedID, Filename: filename}

	if h.archive != nil && parsedID != "" {
		objectKey, md5Hex, err := h.archive.ArchiveOriginal(ctx, parsedID, filename, data)
		if err != nil {
			// 归档失败不影响解析结果
			tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
			logger.Warn().Err(err).Str("parsed_id", parsedID).Msg("原始文件归档失败")
		} else {
			resp.ObjectKey = objectKey
			logger.Debug().Str("object_key", objectKey).Str("md5", md5Hex).Msg("原始文件已归档")
		}
	}
	return resp, nil
}

func (h *ResumeHandler) checkUpload(filename string, fileSize int64) error {
	if limit := h.upload.MaxBytes(); limit > 0 && fileSize > limit {
		return ErrFileTooLarge
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if len(h.upload.AllowedExtensions) > 0 && !slices.Contains(h.upload.AllowedExtensions, ext) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
	if !h.extractor.Supports(filename) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
	return nil
}

// Chat 回答关于简历的问题，parsedJson 优先，其次按 parsedId 取缓存
func (h *ResumeHandler) Chat(ctx context.Context, req *types.ChatRequest) (*types.ChatResponse, error) {
	if req == nil || strings.TrimSpace(req.Question) == "" || (req.ParsedJSON == nil && req.ParsedID == "") {
		return nil, ErrChatFieldsRequired
	}
	ctx, span := tracer.Start(ctx, "resume.chat")
	defer span.End()
	span.SetAttributes(attribute.Bool("chat.use_external", req.UseGroq))

	var parsed types.ParsedResume
	if req.ParsedJSON != nil {
		parsed = req.ParsedJSON.Normalized()
	} else {
		cached, err := h.cache.Load(ctx, req.ParsedID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, ErrParsedNotFound
			}
			tracing.RecordError(span, err, tracing.ErrorTypeRedis)
			return nil, fmt.Errorf("读取解析缓存失败: %w", err)
		}
		parsed = *cached
	}

	resp := h.dispatcher.GenerateAnswer(ctx, &parsed, req.Question, req.UseGroq)
	span.SetAttributes(attribute.String("chat.source", resp.Source), attribute.Float64("chat.confidence", resp.Confidence))
	return &resp, nil
}

// SendEmail 发送纯文本邮件
func (h *ResumeHandler) SendEmail(ctx context.Context, req *types.SendEmailRequest) (*notify.SendResult, error) {
	if req == nil || strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Subject) == "" || req.Body == "" {
		return nil, ErrEmailFieldsRequired
	}
	if h.mailer == nil {
		return nil, notify.ErrNoProvider
	}
	return h.mailer.Send(ctx, req.To, req.Subject, req.Body)
}

// remember 缓存解析结果，失败时只记录日志并返回空 ID
func (h *ResumeHandler) remember(ctx context.Context, parsed *types.ParsedResume) string {
	parsedID, err := storage.NewParseID()
	if err != nil {
		logger.Warn().Err(err).Msg("生成解析ID失败")
		return ""
	}
	if err := h.cache.Save(ctx, parsedID, parsed); err != nil {
		logger.Warn().Err(err).Str("parsed_id", parsedID).Msg("缓存解析结果失败")
		return ""
	}
	return parsedID
}

