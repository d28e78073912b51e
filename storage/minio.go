package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path"
	"strings"
	"time"

	"TuneLib/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// CoverPrefix 封面对象的前缀
const CoverPrefix = "covers/"

// ErrObjectNotFound 对象不存在
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo 读取对象时返回的元信息
type ObjectInfo struct {
	Size         int64
	ContentType  string
	LastModified time.Time
}

// CoverStore 把歌曲封面存到 MinIO
type CoverStore struct {
	client *minio.Client
	bucket string
}

// NewCoverStore 连接 MinIO，存储桶不存在时创建
func NewCoverStore(cfg *config.Config) (*CoverStore, error) {
	log.Printf("正在连接 MinIO 服务器: %s, Bucket: %s", cfg.MinioEndpoint, cfg.MinioBucket)

	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("创建存储桶失败: %w", err)
		}
		log.Printf("✅ 成功创建存储桶: %s", cfg.MinioBucket)
	}

	return newCoverStore(client, cfg.MinioBucket), nil
}

func newCoverStore(client *minio.Client, bucket string) *CoverStore {
	return &CoverStore{client: client, bucket: bucket}
}

// isNotFound 对象不存在，桶不存在不算
func isNotFound(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// CoverObjectName covers/{songID}/{uuid}{ext}，每次上传生成新名字，避免 CDN 缓存旧图
func CoverObjectName(songID int64, ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return path.Join(strings.TrimSuffix(CoverPrefix, "/"), fmt.Sprint(songID), uuid.NewString()+ext)
}

// PutCover 上传封面，返回对象名
func (s *CoverStore) PutCover(ctx context.Context, songID int64, r io.Reader, size int64, contentType, ext string) (string, error) {
	objectName := CoverObjectName(songID, ext)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=31536000",
	})
	if err != nil {
		return "", fmt.Errorf("上传封面失败: %w", err)
	}
	return objectName, nil
}

// GetObject 读取对象，调用方负责关闭
func (s *CoverStore) GetObject(ctx context.Context, objectName string) (io.ReadCloser, ObjectInfo, error) {
	stat, err := s.client.StatObject(ctx, s.bucket, objectName, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, ObjectInfo{}, ErrObjectNotFound
		}
		return nil, ObjectInfo{}, fmt.Errorf("stat object: %w", err)
	}

	object, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("get object: %w", err)
	}

	return object, ObjectInfo{
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		LastModified: stat.LastModified,
	}, nil
}

// ListCovers 列出封面对象，供命令行使用
func (s *CoverStore) ListCovers(ctx context.Context, prefix string) ([]minio.ObjectInfo, error) {
	if prefix == "" {
		prefix = CoverPrefix
	}

	var objects []minio.ObjectInfo
	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, fmt.Errorf("列出对象失败: %w", object.Err)
		}
		objects = append(objects, object)
	}
	return objects, nil
}

// DeleteCovers 删除 prefix 下的全部封面，返回删除数量
func (s *CoverStore) DeleteCovers(ctx context.Context, prefix string) (int, error) {
	if !strings.HasPrefix(prefix, CoverPrefix) {
		return 0, fmt.Errorf("prefix must start with %q", CoverPrefix)
	}

	objects, err := s.ListCovers(ctx, prefix)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, object := range objects {
		if err := s.client.RemoveObject(ctx, s.bucket, object.Key, minio.RemoveObjectOptions{}); err != nil {
			return deleted, fmt.Errorf("删除对象 %s 失败: %w", object.Key, err)
		}
		deleted++
	}
	return deleted, nil
}
