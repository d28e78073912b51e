package catalog

import (
	"context"
	"fmt"

	"TuneLib/model"
	"TuneLib/repository"
)

// Service 曲库的增删查，只做持久化委托
type Service struct {
	repo repository.SongRepository
}

// NewService 创建曲库服务
func NewService(repo repository.SongRepository) *Service {
	return &Service{repo: repo}
}

// List 返回全部歌曲
func (s *Service) List(ctx context.Context) ([]*model.Song, error) {
	return s.repo.List(ctx)
}

// Get 歌曲不存在时返回 (nil, nil)
func (s *Service) Get(ctx context.Context, id int64) (*model.Song, error) {
	return s.repo.GetByID(ctx, id)
}

// Create 保存歌曲，忽略调用方传入的ID和时间戳
func (s *Service) Create(ctx context.Context, song *model.Song) (*model.Song, error) {
	created := &model.Song{
		Title:    song.Title,
		Artist:   song.Artist,
		AudioSrc: song.AudioSrc,
		ImageURL: song.ImageURL,
	}
	if err := s.repo.Create(ctx, created); err != nil {
		return nil, fmt.Errorf("create song: %w", err)
	}
	return created, nil
}

// Delete 删除歌曲。已有的喜欢/歌单记录保留各自的快照，不级联删除
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete song %d: %w", id, err)
	}
	return nil
}

// SetCover 更新封面地址，返回更新后的歌曲；歌曲不存在时返回 (nil, nil)
func (s *Service) SetCover(ctx context.Context, id int64, imageURL string) (*model.Song, error) {
	ok, err := s.repo.UpdateImage(ctx, id, imageURL)
	if err != nil {
		return nil, fmt.Errorf("update cover of song %d: %w", id, err)
	}
	if !ok {
		return nil, nil
	}
	return s.repo.GetByID(ctx, id)
}
