package cache

import (
	"context"
	"fmt"
	"time"

	"TuneLib/model"

	"github.com/go-redis/redis/v8"
)

const (
	memberYes = "1"
	memberNo  = "0"
)

// MembershipCache 缓存 (关系, 用户, 歌曲) 是否存在。
// 写操作成功后写入最终状态；读回源只用 SetIfAbsent 填充，不会覆盖写操作的结果。
type MembershipCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewMembershipCache 创建缓存，ttl <= 0 时使用 10 分钟
func NewMembershipCache(client *redis.Client, ttl time.Duration) *MembershipCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MembershipCache{client: client, ttl: ttl}
}

// MembershipKey 生成缓存键
func MembershipKey(rel model.Relation, userEmail string, songID int64) string {
	return fmt.Sprintf("library:%s:%s:%d", rel, userEmail, songID)
}

// Get 返回 (是否存在, 是否命中缓存, error)
func (c *MembershipCache) Get(ctx context.Context, rel model.Relation, userEmail string, songID int64) (bool, bool, error) {
	val, err := c.client.Get(ctx, MembershipKey(rel, userEmail, songID)).Result()
	if err == redis.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("get membership cache: %w", err)
	}
	return val == memberYes, true, nil
}

func flag(present bool) string {
	if present {
		return memberYes
	}
	return memberNo
}

// Set 写入存在性，覆盖已有值
func (c *MembershipCache) Set(ctx context.Context, rel model.Relation, userEmail string, songID int64, present bool) error {
	if err := c.client.Set(ctx, MembershipKey(rel, userEmail, songID), flag(present), c.ttl).Err(); err != nil {
		return fmt.Errorf("set membership cache: %w", err)
	}
	return nil
}

// SetIfAbsent 键不存在时才写入，返回是否写入
func (c *MembershipCache) SetIfAbsent(ctx context.Context, rel model.Relation, userEmail string, songID int64, present bool) (bool, error) {
	ok, err := c.client.SetNX(ctx, MembershipKey(rel, userEmail, songID), flag(present), c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx membership cache: %w", err)
	}
	return ok, nil
}

// Invalidate 删除缓存键
func (c *MembershipCache) Invalidate(ctx context.Context, rel model.Relation, userEmail string, songID int64) error {
	if err := c.client.Del(ctx, MembershipKey(rel, userEmail, songID)).Err(); err != nil {
		return fmt.Errorf("invalidate membership cache: %w", err)
	}
	return nil
}
