package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"cv-assistant-go/internal/config"
	"cv-assistant-go/internal/constants"
	"cv-assistant-go/internal/tracing"
	"cv-assistant-go/internal/types"
)

// 为Redis操作定义专用tracer
var redisTracer = otel.Tracer("cv-assistant-go/storage/redis")

// Redis wraps the Redis client
type Redis struct {
	Client *redis.Client
	ttl    time.Duration
}

var _ ResumeCache = (*Redis)(nil)

// NewRedisAdapter 创建 Redis 连接并校验连通性
func NewRedisAdapter(ctx context.Context, cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
	})

	// 添加OpenTelemetry钩子, 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return NewRedisFromClient(client, cfg.ParsedTTL()), nil
}

// NewRedisFromClient 包装已有客户端
func NewRedisFromClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{Client: client, ttl: ttl}
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// Save 以 JSON 形式写入解析结果并设置过期时间
func (r *Redis) Save(ctx context.Context, parseID string, parsed *types.ParsedResume) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	if parsed == nil {
		return fmt.Errorf("parsed resume is required")
	}
	key, err := constants.FormatKey(constants.KeyParsedResume, parseID)
	if err != nil {
		return err
	}

	ctx, span := redisTracer.Start(ctx, "redis.parsed.save")
	defer span.End()
	span.SetAttributes(attribute.String("redis.key", tracing.SafeRedisKey(key)))

	data, err := json.Marshal(parsed)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return fmt.Errorf("序列化解析结果失败: %w", err)
	}
	if err := r.Client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return fmt.Errorf("写入解析结果缓存失败: %w", err)
	}
	span.SetAttributes(attribute.Int("redis.value_bytes", len(data)))
	return nil
}

// Load 读取解析结果，不存在时返回 ErrNotFound
func (r *Redis) Load(ctx context.Context, parseID string) (*types.ParsedResume, error) {
	if r.Client == nil {
		return nil, fmt.Errorf("redis client is not initialized")
	}
	key, err := constants.FormatKey(constants.KeyParsedResume, parseID)
	if err != nil {
		return nil, ErrNotFound
	}

	ctx, span := redisTracer.Start(ctx, "redis.parsed.load")
	defer span.End()
	span.SetAttributes(attribute.String("redis.key", tracing.SafeRedisKey(key)))

	data, err := r.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrNotFound
	}
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return nil, fmt.Errorf("读取解析结果缓存失败: %w", err)
	}

	var parsed types.ParsedResume
	if err := json.Unmarshal(data, &parsed); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return nil, fmt.Errorf("反序列化解析结果失败: %w", err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return &parsed, nil
}
