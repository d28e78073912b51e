package repository

import (
	"context"
	"errors"

	"TuneLib/model"

	"gorm.io/gorm"
)

// SongRepository 曲库数据访问接口
type SongRepository interface {
	List(ctx context.Context) ([]*model.Song, error)
	GetByID(ctx context.Context, id int64) (*model.Song, error)
	Create(ctx context.Context, song *model.Song) error
	Delete(ctx context.Context, id int64) error
	UpdateImage(ctx context.Context, id int64, imageURL string) (bool, error)
}

// gormSongRepository GORM 实现
type gormSongRepository struct {
	db *gorm.DB
}

// NewGormSongRepository 创建 GORM 曲库仓库
func NewGormSongRepository(db *gorm.DB) SongRepository {
	return &gormSongRepository{db: db}
}

// List 按ID顺序返回全部歌曲
func (r *gormSongRepository) List(ctx context.Context) ([]*model.Song, error) {
	songs := make([]*model.Song, 0)
	err := r.db.WithContext(ctx).Order("id ASC").Find(&songs).Error
	return songs, err
}

// GetByID 不存在时返回 (nil, nil)
func (r *gormSongRepository) GetByID(ctx context.Context, id int64) (*model.Song, error) {
	var song model.Song
	err := r.db.WithContext(ctx).First(&song, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &song, nil
}

// Create 新增歌曲，ID 由数据库生成
func (r *gormSongRepository) Create(ctx context.Context, song *model.Song) error {
	return r.db.WithContext(ctx).Create(song).Error
}

// Delete 删除歌曲，不存在时不报错
func (r *gormSongRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Song{}, id).Error
}

// UpdateImage 更新封面地址，返回歌曲是否存在
func (r *gormSongRepository) UpdateImage(ctx context.Context, id int64, imageURL string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Song{}).
		Where("id = ?", id).
		Update("image_url", imageURL)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
