package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"EchoQ/config"
	"EchoQ/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	minioClient *minio.Client
	bucket      string
)

// InitMinio 初始化 MinIO 客户端
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	// 测试连接，检查存储桶是否存在
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("created MinIO bucket", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	bucket = cfg.MinioBucket
	return nil
}

// ResolveLocator 将曲库中记录的对象键转换为可播放的URL。
// 已经是绝对URL的定位符原样返回；客户端未初始化时返回空串。
func ResolveLocator(ctx context.Context, objectKey string) string {
	if objectKey == "" {
		return ""
	}
	if strings.HasPrefix(objectKey, "http://") || strings.HasPrefix(objectKey, "https://") {
		return objectKey
	}
	if minioClient == nil {
		return ""
	}

	u, err := minioClient.PresignedGetObject(ctx, bucket, objectKey, 12*time.Hour, url.Values{})
	if err != nil {
		logger.Warn("failed to presign object",
			logger.ErrorField(err),
			logger.String("object", objectKey))
		return ""
	}
	return u.String()
}
