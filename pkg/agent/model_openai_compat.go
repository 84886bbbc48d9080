package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"cv-assistant-go/internal/logger"
)

const (
	// DefaultGroqAPIURL Groq 的 OpenAI 兼容接口
	DefaultGroqAPIURL = "https://api.groq.com/openai/v1/chat/completions"
	// DefaultGroqModel 默认模型
	DefaultGroqModel = "llama-3.1-8b-instant"
)

// ErrEmptyCompletion 接口返回成功但没有任何选项
var ErrEmptyCompletion = errors.New("completion returned no choices")

// APIError 非 200 响应
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("chat completion API returned status %d: %s", e.StatusCode, e.Body)
}

type openAIFunction struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature *float32        `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Tools       []openAITool    `json:"tools,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string  `json:"role"`
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// OpenAICompatChatModel 对接任意 OpenAI 兼容的 chat completions 接口（默认 Groq）
type OpenAICompatChatModel struct {
	apiKey      string
	modelName   string
	apiURL      string
	temperature *float32
	maxTokens   int
	httpClient  *http.Client
	tools       []openAITool
}

// OpenAICompatOption 模型配置选项
type OpenAICompatOption func(*OpenAICompatChatModel)

// WithHTTPClient 使用自定义 HTTP 客户端
func WithHTTPClient(c *http.Client) OpenAICompatOption {
	return func(m *OpenAICompatChatModel) {
		if c != nil {
			m.httpClient = c
		}
	}
}

// WithTemperature 采样温度
func WithTemperature(t float32) OpenAICompatOption {
	return func(m *OpenAICompatChatModel) {
		m.temperature = &t
	}
}

// WithMaxTokens 单次回答的最大 token 数
func WithMaxTokens(n int) OpenAICompatOption {
	return func(m *OpenAICompatChatModel) {
		m.maxTokens = n
	}
}

// NewOpenAICompatChatModel 创建模型实例，modelName 和 apiURL 为空时使用 Groq 默认值
func NewOpenAICompatChatModel(apiKey, modelName, apiURL string, opts ...OpenAICompatOption) (*OpenAICompatChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = DefaultGroqModel
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = DefaultGroqAPIURL
	}

	m := &OpenAICompatChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(m)
	}

	logger.Info().Str("api_url", apiURL).Str("model", modelName).Msg("使用 OpenAI 兼容 LLM 客户端")
	return m, nil
}

// ModelName 当前使用的模型
func (m *OpenAICompatChatModel) ModelName() string {
	return m.modelName
}

// Generate 实现 model.BaseChatModel
func (m *OpenAICompatChatModel) Generate(ctx context.Context, messages []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	payload := chatCompletionRequest{
		Model:       m.modelName,
		Messages:    make([]openAIMessage, 0, len(messages)),
		Temperature: m.temperature,
		MaxTokens:   m.maxTokens,
		Tools:       m.tools,
	}
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		payload.Messages = append(payload.Messages, openAIMessage{Role: string(msg.Role), Content: msg.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	logger.Debug().Str("model", m.modelName).Int("messages", len(payload.Messages)).Msg("发送 chat completion 请求")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	choice := completion.Choices[0].Message
	content := ""
	if choice.Content != nil {
		content = *choice.Content
	}
	role := schema.RoleType(choice.Role)
	if role == "" {
		role = schema.Assistant
	}
	return &schema.Message{Role: role, Content: content}, nil
}

// Stream 暂不支持流式输出
func (m *OpenAICompatChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("OpenAICompatChatModel 的 Stream 方法未实现")
}

// 没有参数定义的工具按无参函数发送
var emptyToolParams = json.RawMessage(`{"type":"object","properties":{}}`)

// WithTools 返回绑定了工具的新实例，参数定义转换为 OpenAPI v3 schema
func (m *OpenAICompatChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	clone := *m
	clone.tools = make([]openAITool, 0, len(tools))
	for _, info := range tools {
		if info == nil {
			continue
		}
		params, err := toolParams(info)
		if err != nil {
			return nil, err
		}
		clone.tools = append(clone.tools, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        info.Name,
				Description: info.Desc,
				Parameters:  params,
			},
		})
	}
	return &clone, nil
}

func toolParams(info *schema.ToolInfo) (json.RawMessage, error) {
	if info.ParamsOneOf == nil {
		return emptyToolParams, nil
	}
	s, err := info.ParamsOneOf.ToOpenAPIV3()
	if err != nil {
		return nil, fmt.Errorf("转换工具 %s 的参数定义失败: %w", info.Name, err)
	}
	if s == nil {
		return emptyToolParams, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("序列化工具 %s 的参数定义失败: %w", info.Name, err)
	}
	return raw, nil
}

var _ model.ToolCallingChatModel = (*OpenAICompatChatModel)(nil)
