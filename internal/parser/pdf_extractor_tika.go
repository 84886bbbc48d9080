package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"cv-assistant-go/internal/logger"
)

const maxTikaErrorBody = 1 << 10

// TikaTextExtractor 调用 Apache Tika Server 的 /tika 接口提取纯文本
type TikaTextExtractor struct {
	serverURL string
	client    *http.Client
	logger    zerolog.Logger
	// 是否提取链接注释文本
	extractAnnotations bool
}

// TikaOption Tika 提取器的配置选项
type TikaOption func(*TikaTextExtractor)

// WithTikaLogger 使用自定义日志记录器
func WithTikaLogger(l zerolog.Logger) TikaOption {
	return func(e *TikaTextExtractor) {
		e.logger = l
	}
}

// WithTikaTimeout HTTP 请求超时
func WithTikaTimeout(timeout time.Duration) TikaOption {
	return func(e *TikaTextExtractor) {
		if timeout > 0 {
			e.client.Timeout = timeout
		}
	}
}

// WithTikaHTTPClient 使用自定义 http.Client
func WithTikaHTTPClient(client *http.Client) TikaOption {
	return func(e *TikaTextExtractor) {
		if client != nil {
			e.client = client
		}
	}
}

// WithAnnotations 是否提取 PDF 链接注释文本
func WithAnnotations(extract bool) TikaOption {
	return func(e *TikaTextExtractor) {
		e.extractAnnotations = extract
	}
}

var _ TextExtractor = (*TikaTextExtractor)(nil)

// NewTikaTextExtractor serverURL 例如 http://localhost:9998
func NewTikaTextExtractor(serverURL string, options ...TikaOption) (*TikaTextExtractor, error) {
	serverURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if serverURL == "" {
		return nil, fmt.Errorf("tika server URL is required")
	}
	extractor := &TikaTextExtractor{
		serverURL:          serverURL,
		client:             &http.Client{Timeout: 60 * time.Second},
		logger:             logger.Logger.With().Str("component", "tika_extractor").Logger(),
		extractAnnotations: true,
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor, nil
}

// ExtractText 实现 TextExtractor
func (e *TikaTextExtractor) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, e.serverURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Accept", "text/plain")
	if filename != "" {
		req.Header.Set("X-Tika-Resource-Name", filename)
	}
	if !e.extractAnnotations {
		req.Header.Set("X-Tika-PDFExtractAnnotationText", "false")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("发送请求到Tika服务器失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxTikaErrorBody))
		return "", fmt.Errorf("tika服务器返回错误状态码 %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	textBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("读取Tika响应失败: %w", err)
	}
	text := string(textBytes)

	e.logger.Debug().
		Str("file", filename).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(startTime)).
		Msg("Tika提取完成")
	return text, nil
}
