package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse MockChatClient 的单次预期响应
type MockResponse struct {
	Content string
	Error   error
}

// MockChatClient 用于测试的模型实现，按顺序返回预设响应，最后一个响应会被重复使用
type MockChatClient struct {
	mu        sync.Mutex
	responses []MockResponse
	calls     int
	received  [][]*schema.Message
	blockCtx  bool
}

// NewMockChatClient 创建一个返回固定响应的 MockChatClient
func NewMockChatClient(content string, err error) *MockChatClient {
	return NewMockChatClientSequential([]MockResponse{{Content: content, Error: err}})
}

// NewMockChatClientSequential 按顺序返回不同响应
func NewMockChatClientSequential(responses []MockResponse) *MockChatClient {
	if len(responses) == 0 {
		responses = []MockResponse{{Error: errors.New("mock client has no responses configured")}}
	}
	return &MockChatClient{responses: responses}
}

// BlockUntilCancelled 让 Generate 一直阻塞到 ctx 结束，用于超时测试
func (m *MockChatClient) BlockUntilCancelled() *MockChatClient {
	m.blockCtx = true
	return m
}

// Generate 返回下一条预设响应
func (m *MockChatClient) Generate(ctx context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.received = append(m.received, append([]*schema.Message(nil), input...))
	idx := min(m.calls, len(m.responses)-1)
	m.calls++
	resp := m.responses[idx]
	block := m.blockCtx
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return schema.AssistantMessage(resp.Content, nil), nil
}

// Stream 不支持
func (m *MockChatClient) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not implemented in MockChatClient")
}

// WithTools 忽略工具，返回自身
func (m *MockChatClient) WithTools([]*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// Calls 已调用次数
func (m *MockChatClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ReceivedMessages 每次调用收到的消息
func (m *MockChatClient) ReceivedMessages() [][]*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.received
}

var _ model.ToolCallingChatModel = (*MockChatClient)(nil)
