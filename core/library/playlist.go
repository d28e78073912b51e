package library

import (
	"context"
	"fmt"

	"TuneLib/model"
	"TuneLib/repository"
)

// PlaylistService 用户歌单。加入和移除是两个独立操作，重复调用不会报错
type PlaylistService struct {
	base
}

// NewPlaylistService 创建 PlaylistService，notifier 可为 nil
func NewPlaylistService(repo repository.MembershipRepository, notifier Notifier) *PlaylistService {
	return &PlaylistService{base{repo: repo, rel: model.RelationPlaylist, notifier: notifier}}
}

// List 返回歌单中的全部歌曲
func (s *PlaylistService) List(ctx context.Context, userEmail string) ([]*model.MembershipRecord, error) {
	return s.list(ctx, userEmail)
}

// Contains 歌曲是否在歌单中
func (s *PlaylistService) Contains(ctx context.Context, userEmail string, songID int64) (bool, error) {
	return s.exists(ctx, userEmail, songID)
}

// Add 已在歌单中时返回 false 且不做修改
func (s *PlaylistService) Add(ctx context.Context, userEmail string, meta model.SongMeta) (bool, error) {
	userEmail, err := requireIdentity(userEmail)
	if err != nil {
		return false, err
	}
	if err := validateMeta(meta); err != nil {
		return false, err
	}

	added, err := s.repo.InsertIfAbsent(ctx, s.rel, model.NewMembershipRecord(userEmail, meta))
	if err != nil {
		return false, fmt.Errorf("add to playlist: %w", err)
	}
	if added {
		s.publish(userEmail, EventPlaylistAdd, meta.SongID)
	}
	return added, nil
}

// Remove 不在歌单中时返回 false
func (s *PlaylistService) Remove(ctx context.Context, userEmail string, songID int64) (bool, error) {
	userEmail, err := requireIdentity(userEmail)
	if err != nil {
		return false, err
	}
	if err := validateSongID(songID); err != nil {
		return false, err
	}

	removed, err := s.repo.DeleteIfPresent(ctx, s.rel, userEmail, songID)
	if err != nil {
		return false, fmt.Errorf("remove from playlist: %w", err)
	}
	if removed {
		s.publish(userEmail, EventPlaylistRemove, songID)
	}
	return removed, nil
}
