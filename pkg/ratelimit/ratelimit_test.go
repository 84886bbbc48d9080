package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-assistant-go/pkg/agent"
)

func TestTokenBucket_AllowAndRefill(t *testing.T) {
	current := time.Unix(0, 0)
	tb := NewTokenBucket(60, 2) // 每秒一个令牌
	tb.now = func() time.Time { return current }
	tb.lastRefillTime = current

	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "桶空后应拒绝")

	current = current.Add(time.Second)
	assert.True(t, tb.Allow(), "一秒后应补充一个令牌")
	assert.False(t, tb.Allow())

	current = current.Add(time.Hour)
	assert.True(t, tb.Allow())
	assert.True(t, tb.Allow())
	assert.False(t, tb.Allow(), "补充不应超过容量")
}

func TestTokenBucket_WaitRespectsContext(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	require.NoError(t, tb.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := tb.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimitedLLMModel_NoRetry(t *testing.T) {
	boom := errors.New("upstream failed")
	mock := agent.NewMockChatClient("", boom)

	limited := NewLLMWithRateLimit(mock, "m", map[string]int{"m": 100}, 0)
	_, err := limited.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, mock.Calls(), "失败时不应重试")
}

func TestRateLimitedLLMModel_Generate(t *testing.T) {
	mock := agent.NewMockChatClient("ok", nil)
	limited := NewRateLimitedLLMModel(mock, 60)

	msg, err := limited.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "ok", msg.Content)

	bound, err := limited.WithTools(nil)
	require.NoError(t, err)
	assert.Same(t, limited.rateLimiter, bound.(*RateLimitedLLMModel).rateLimiter)
}

func TestRateLimitedLLMModel_PassesThroughEachResponse(t *testing.T) {
	boom := errors.New("rate limited upstream")
	mock := agent.NewMockChatClientSequential([]agent.MockResponse{
		{Error: boom},
		{Content: "second"},
	})
	limited := NewRateLimitedLLMModel(mock, 600)
	input := []*schema.Message{schema.UserMessage("hi")}

	_, err := limited.Generate(context.Background(), input)
	assert.ErrorIs(t, err, boom)

	msg, err := limited.Generate(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "second", msg.Content)
	assert.Equal(t, 2, mock.Calls())
}
