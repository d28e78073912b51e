package library

import (
	"context"
	"fmt"

	"TuneLib/logger"
	"TuneLib/model"
	"TuneLib/repository"
)

// maxToggleAttempts 删除和插入都没有生效说明有并发 toggle 插入后又被删除，重来
const maxToggleAttempts = 3

// LikeService 喜欢的歌曲，单一的 toggle 操作在喜欢/取消之间切换
type LikeService struct {
	base
}

// NewLikeService 创建 LikeService，notifier 可为 nil
func NewLikeService(repo repository.MembershipRepository, notifier Notifier) *LikeService {
	return &LikeService{base{repo: repo, rel: model.RelationLiked, notifier: notifier}}
}

// List 返回用户喜欢的全部歌曲
func (s *LikeService) List(ctx context.Context, userEmail string) ([]*model.MembershipRecord, error) {
	return s.list(ctx, userEmail)
}

// IsLiked 用户是否喜欢该歌曲
func (s *LikeService) IsLiked(ctx context.Context, userEmail string, songID int64) (bool, error) {
	return s.exists(ctx, userEmail, songID)
}

// Toggle 已喜欢则取消并返回 false，否则以 meta 创建记录并返回 true
func (s *LikeService) Toggle(ctx context.Context, userEmail string, meta model.SongMeta) (bool, error) {
	userEmail, err := requireIdentity(userEmail)
	if err != nil {
		return false, err
	}
	if err := validateMeta(meta); err != nil {
		return false, err
	}

	for attempt := 1; attempt <= maxToggleAttempts; attempt++ {
		deleted, err := s.repo.DeleteIfPresent(ctx, s.rel, userEmail, meta.SongID)
		if err != nil {
			return false, fmt.Errorf("unlike song: %w", err)
		}
		if deleted {
			s.publish(userEmail, EventUnliked, meta.SongID)
			return false, nil
		}

		inserted, err := s.repo.InsertIfAbsent(ctx, s.rel, model.NewMembershipRecord(userEmail, meta))
		if err != nil {
			return false, fmt.Errorf("like song: %w", err)
		}
		if inserted {
			s.publish(userEmail, EventLiked, meta.SongID)
			return true, nil
		}

		logger.Debug("[Liked] toggle 与并发请求冲突，重试",
			logger.Email(userEmail),
			logger.SongID(meta.SongID),
			logger.Int("attempt", attempt))
	}

	return false, ErrConcurrentUpdate
}
