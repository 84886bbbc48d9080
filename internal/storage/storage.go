package storage

import (
	"context"
	"fmt"

	"cv-assistant-go/internal/config"
	"cv-assistant-go/internal/constants"
	"cv-assistant-go/internal/logger"
)

// Storage 存储管理器，聚合所有存储相关依赖
type Storage struct {
	// 解析结果缓存，Redis 不可用时为进程内实现
	Cache ResumeCache

	// 键值存储，未配置时为 nil
	Redis *Redis

	// 对象存储，未配置时为 nil
	MinIO *MinIO
}

// NewStorage 创建存储管理器
// 外部存储都是可选的：Redis 失败回退到进程内缓存，MinIO 失败则不归档
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	log := logger.Component("storage")
	s := &Storage{}

	if cfg.Redis.Address != "" {
		r, err := NewRedisAdapter(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("初始化Redis失败，使用进程内缓存")
		} else {
			s.Redis = r
			s.Cache = r
			log.Info().Str("address", cfg.Redis.Address).Msg("Redis 缓存已启用")
		}
	}
	if s.Cache == nil {
		s.Cache = NewMemoryResumeCache(constants.DefaultParsedCacheTTL, constants.MemoryCacheMaxEntries)
	}

	if cfg.MinIO.Endpoint != "" {
		m, err := NewMinIO(ctx, &cfg.MinIO, logger.Component("minio"))
		if err != nil {
			log.Warn().Err(err).Msg("初始化MinIO失败，上传文件不归档")
		} else {
			s.MinIO = m
		}
	}

	return s, nil
}

// Archive 返回可用的归档实现，没有时返回 nil
func (s *Storage) Archive() ArchiveStore {
	if s == nil || s.MinIO == nil {
		return nil
	}
	return s.MinIO
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
}
