package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"cv-assistant-go/internal/config"
	"cv-assistant-go/internal/constants"
	"cv-assistant-go/internal/tracing"
)

var minioTracer = otel.Tracer("cv-assistant-go/storage/minio")

// ArchiveStore 上传原件归档
type ArchiveStore interface {
	// ArchiveOriginal 保存原始文件，返回对象键和内容 MD5
	ArchiveOriginal(ctx context.Context, parseID, filename string, data []byte) (objectKey, md5Hex string, err error)
}

var _ ArchiveStore = (*MinIO)(nil)

// MinIO 提供对象存储功能
type MinIO struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewMinIO 创建MinIO客户端并确保存储桶存在
func NewMinIO(ctx context.Context, cfg *config.MinIOConfig, logger zerolog.Logger) (*MinIO, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("MinIO配置不能为空")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("MinIO存储桶名称不能为空")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("创建MinIO客户端失败: %w", err)
	}

	m := &MinIO{client: client, bucket: cfg.BucketName, logger: logger}
	if err := m.ensureBucketExists(ctx, cfg.Location); err != nil {
		return nil, err
	}
	m.logger.Info().Str("endpoint", cfg.Endpoint).Str("bucket", m.bucket).Msg("MinIO 客户端初始化成功")
	return m, nil
}

func (m *MinIO) ensureBucketExists(ctx context.Context, location string) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶 %s 是否存在时出错: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: location}); err != nil {
		return fmt.Errorf("创建存储桶 %s 失败: %w", m.bucket, err)
	}
	m.logger.Info().Str("bucket", m.bucket).Msg("存储桶已创建")
	return nil
}

// ArchiveOriginal 实现 ArchiveStore
func (m *MinIO) ArchiveOriginal(ctx context.Context, parseID, filename string, data []byte) (string, string, error) {
	ctx, span := minioTracer.Start(ctx, "minio.archive_original")
	defer span.End()

	ext := strings.ToLower(filepath.Ext(filename))
	objectKey := originalObjectKey(parseID, ext)
	sum := md5.Sum(data)
	md5Hex := hex.EncodeToString(sum[:])
	span.SetAttributes(
		attribute.String("minio.object", objectKey),
		attribute.Int("minio.size", len(data)),
	)

	info, err := m.client.PutObject(ctx, m.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  getContentType(ext),
		UserMetadata: map[string]string{"original-name": filepath.Base(filename), "md5": md5Hex},
	})
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeObjectStore)
		return "", "", fmt.Errorf("上传文件 %s 到存储桶 %s 失败: %w", objectKey, m.bucket, err)
	}
	m.logger.Debug().Str("object", objectKey).Str("etag", info.ETag).Int64("size", info.Size).Msg("原件已归档")
	return objectKey, md5Hex, nil
}

// originals/{parseID}/original.pdf
func originalObjectKey(parseID, ext string) string {
	return fmt.Sprintf("%s%s/original%s", constants.OriginalsObjectPrefix, parseID, ext)
}

// 获取内容类型
func getContentType(ext string) string {
	switch strings.ToLower(ext) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".md":
		return "text/markdown; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
