package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"cv-assistant-go/internal/tracing"
	"cv-assistant-go/internal/types"
)

// AnswerProvider 外部模型回答接口，可能失败或超时
type AnswerProvider interface {
	Name() string
	Answer(ctx context.Context, resumeContext, question string) (string, error)
}

// ErrEmptyAnswer 模型返回了空内容
var ErrEmptyAnswer = errors.New("provider returned an empty answer")

// ProviderError 外部模型调用失败
type ProviderError struct {
	Provider string
	BaseErr  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("answer provider %s failed: %v", e.Provider, e.BaseErr)
}

func (e *ProviderError) Unwrap() error {
	return e.BaseErr
}

const systemPrompt = `You are a helpful assistant that answers questions about a candidate's resume.
Answer only from the resume data provided. If the data does not contain the answer, say so briefly.
Address the candidate as "you" and keep answers concise.`

// 发给模型的原文最多保留的字符数
const contextRawLimit = 2000

// BuildResumeContext 把解析结果序列化为模型上下文，原文会被截断
func BuildResumeContext(parsed *types.ParsedResume) string {
	if parsed == nil {
		return "{}"
	}
	view := *parsed
	if r := []rune(view.Raw); len(r) > contextRawLimit {
		view.Raw = string(r[:contextRawLimit])
	}
	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// generator 只需要 Generate 能力
type generator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// LLMProvider 基于 eino 聊天模型的 AnswerProvider
type LLMProvider struct {
	name  string
	model generator
}

// NewLLMProvider name 会作为回答的 Source
func NewLLMProvider(name string, m generator) *LLMProvider {
	return &LLMProvider{name: name, model: m}
}

// Name 实现 AnswerProvider
func (p *LLMProvider) Name() string {
	return p.name
}

// Answer 实现 AnswerProvider
func (p *LLMProvider) Answer(ctx context.Context, resumeContext, question string) (string, error) {
	ctx, span := otel.Tracer("cv-assistant-go/chat").Start(ctx, "chat.provider.answer")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", p.name),
		attribute.String("question", tracing.TruncateString(question, 200)),
	)

	msg, err := p.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(fmt.Sprintf("Resume data:\n%s\n\nQuestion: %s", resumeContext, question)),
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeProvider)
		return "", &ProviderError{Provider: p.name, BaseErr: err}
	}
	var answer string
	if msg != nil {
		answer = strings.TrimSpace(msg.Content)
	}
	if answer == "" {
		tracing.RecordError(span, ErrEmptyAnswer, tracing.ErrorTypeProvider)
		return "", &ProviderError{Provider: p.name, BaseErr: ErrEmptyAnswer}
	}
	span.SetAttributes(attribute.Int("answer.length", len(answer)))
	return answer, nil
}
