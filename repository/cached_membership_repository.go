package repository

import (
	"context"

	"TuneLib/cache"
	"TuneLib/logger"
	"TuneLib/model"
)

// cachedMembershipRepository 在 Exists 前加一层 Redis。
// 写操作成功后把最终状态写入缓存；Exists 回源后只在键不存在时填充，
// 这样先开始的读不会用旧结果覆盖之后写入的状态。
// 缓存不可用时只记日志，读写都回落到数据库。
type cachedMembershipRepository struct {
	inner MembershipRepository
	cache *cache.MembershipCache
}

// NewCachedMembershipRepository 包装一个 MembershipRepository
func NewCachedMembershipRepository(inner MembershipRepository, c *cache.MembershipCache) MembershipRepository {
	return &cachedMembershipRepository{inner: inner, cache: c}
}

func (r *cachedMembershipRepository) List(ctx context.Context, rel model.Relation, userEmail string) ([]*model.MembershipRecord, error) {
	return r.inner.List(ctx, rel, userEmail)
}

func (r *cachedMembershipRepository) Exists(ctx context.Context, rel model.Relation, userEmail string, songID int64) (bool, error) {
	present, found, err := r.cache.Get(ctx, rel, userEmail, songID)
	if err != nil {
		logger.Warn("[MembershipCache] 读取缓存失败", logger.ErrorField(err), logger.String("relation", string(rel)))
	} else if found {
		return present, nil
	}

	present, err = r.inner.Exists(ctx, rel, userEmail, songID)
	if err != nil {
		return false, err
	}

	if _, err := r.cache.SetIfAbsent(ctx, rel, userEmail, songID, present); err != nil {
		logger.Warn("[MembershipCache] 写入缓存失败", logger.ErrorField(err), logger.String("relation", string(rel)))
	}
	return present, nil
}

// InsertIfAbsent 无论本次是否插入，成功返回后记录一定存在
func (r *cachedMembershipRepository) InsertIfAbsent(ctx context.Context, rel model.Relation, record *model.MembershipRecord) (bool, error) {
	inserted, err := r.inner.InsertIfAbsent(ctx, rel, record)
	if err != nil {
		r.invalidate(ctx, rel, record.UserEmail, record.SongID)
		return false, err
	}
	r.store(ctx, rel, record.UserEmail, record.SongID, true)
	return inserted, nil
}

// DeleteIfPresent 成功返回后记录一定不存在
func (r *cachedMembershipRepository) DeleteIfPresent(ctx context.Context, rel model.Relation, userEmail string, songID int64) (bool, error) {
	deleted, err := r.inner.DeleteIfPresent(ctx, rel, userEmail, songID)
	if err != nil {
		r.invalidate(ctx, rel, userEmail, songID)
		return false, err
	}
	r.store(ctx, rel, userEmail, songID, false)
	return deleted, nil
}

// store 写入最终状态，失败时删除键，让下一次读回源
func (r *cachedMembershipRepository) store(ctx context.Context, rel model.Relation, userEmail string, songID int64, present bool) {
	if err := r.cache.Set(ctx, rel, userEmail, songID, present); err != nil {
		logger.Warn("[MembershipCache] 写入最终状态失败",
			logger.ErrorField(err),
			logger.String("relation", string(rel)),
			logger.Email(userEmail),
			logger.SongID(songID))
		r.invalidate(ctx, rel, userEmail, songID)
	}
}

func (r *cachedMembershipRepository) invalidate(ctx context.Context, rel model.Relation, userEmail string, songID int64) {
	if err := r.cache.Invalidate(ctx, rel, userEmail, songID); err != nil {
		logger.Warn("[MembershipCache] 删除缓存失败",
			logger.ErrorField(err),
			logger.String("relation", string(rel)),
			logger.Email(userEmail),
			logger.SongID(songID))
	}
}
