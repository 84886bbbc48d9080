package chat

import (
	"context"
	"strings"
	"time"

	"cv-assistant-go/internal/logger"
	"cv-assistant-go/internal/types"
)

// Dispatcher 简历问答调度器
// 无状态；外部模型失败时记录日志并回退到规则回答，调用方不会收到错误
type Dispatcher struct {
	providers []AnswerProvider
	timeout   time.Duration
}

// Option Dispatcher 配置选项
type Option func(*Dispatcher)

// WithProvider 追加一个外部模型，按添加顺序依次尝试
func WithProvider(p AnswerProvider) Option {
	return func(d *Dispatcher) {
		if p != nil {
			d.providers = append(d.providers, p)
		}
	}
}

// WithTimeout 单次外部调用的超时
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher 创建调度器，不配置 provider 时只走规则回答
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HasExternalProvider 是否配置了外部模型
func (d *Dispatcher) HasExternalProvider() bool {
	return len(d.providers) > 0
}

// GenerateAnswer 回答关于简历的问题，从不返回错误
func (d *Dispatcher) GenerateAnswer(ctx context.Context, parsed *types.ParsedResume, question string, useExternalModel bool) types.ChatResponse {
	question = strings.TrimSpace(question)
	if parsed == nil || question == "" {
		return invalidInputResponse()
	}

	if useExternalModel && d.HasExternalProvider() {
		if resp, ok := d.askProviders(ctx, parsed, question); ok {
			return resp
		}
	}
	return AnswerByRules(parsed, question)
}

func (d *Dispatcher) askProviders(ctx context.Context, parsed *types.ParsedResume, question string) (types.ChatResponse, bool) {
	resumeContext := BuildResumeContext(parsed)
	for _, p := range d.providers {
		callCtx, cancel := context.WithTimeout(ctx, d.timeout)
		answer, err := p.Answer(callCtx, resumeContext, question)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("provider", p.Name()).Msg("外部模型回答失败，继续回退")
			continue
		}
		return types.ChatResponse{Text: answer, Confidence: confidenceExternal, Source: p.Name()}, true
	}
	return types.ChatResponse{}, false
}
