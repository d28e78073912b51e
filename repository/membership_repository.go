package repository

import (
	"context"
	"errors"
	"fmt"

	"TuneLib/model"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// mysqlErrDupEntry MySQL 唯一键冲突错误码
const mysqlErrDupEntry = 1062

// ErrUnknownRelation 传入了未定义的关系
var ErrUnknownRelation = errors.New("unknown membership relation")

// MembershipRepository 喜欢/歌单关系的数据访问接口。
// 写操作都是单条条件语句，依赖 (user_email, song_id) 唯一索引保证每个用户每首歌最多一行。
type MembershipRepository interface {
	List(ctx context.Context, rel model.Relation, userEmail string) ([]*model.MembershipRecord, error)
	Exists(ctx context.Context, rel model.Relation, userEmail string, songID int64) (bool, error)
	// InsertIfAbsent 返回是否真正插入了新行
	InsertIfAbsent(ctx context.Context, rel model.Relation, record *model.MembershipRecord) (bool, error)
	// DeleteIfPresent 返回是否真正删除了行
	DeleteIfPresent(ctx context.Context, rel model.Relation, userEmail string, songID int64) (bool, error)
}

// gormMembershipRepository GORM 实现
type gormMembershipRepository struct {
	db *gorm.DB
}

// NewGormMembershipRepository 创建 GORM 关系仓库
func NewGormMembershipRepository(db *gorm.DB) MembershipRepository {
	return &gormMembershipRepository{db: db}
}

func (r *gormMembershipRepository) table(ctx context.Context, rel model.Relation) (*gorm.DB, error) {
	if !rel.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRelation, rel)
	}
	return r.db.WithContext(ctx).Table(rel.Table()), nil
}

// List 按插入顺序返回用户的全部记录
func (r *gormMembershipRepository) List(ctx context.Context, rel model.Relation, userEmail string) ([]*model.MembershipRecord, error) {
	tx, err := r.table(ctx, rel)
	if err != nil {
		return nil, err
	}

	records := make([]*model.MembershipRecord, 0)
	err = tx.Where("user_email = ?", userEmail).
		Order("id ASC").
		Find(&records).Error
	return records, err
}

// Exists 检查记录是否存在
func (r *gormMembershipRepository) Exists(ctx context.Context, rel model.Relation, userEmail string, songID int64) (bool, error) {
	tx, err := r.table(ctx, rel)
	if err != nil {
		return false, err
	}

	var count int64
	err = tx.Where("user_email = ? AND song_id = ?", userEmail, songID).
		Count(&count).Error
	return count > 0, err
}

// InsertIfAbsent 冲突时什么也不做（MySQL: ON DUPLICATE KEY UPDATE id=id）
func (r *gormMembershipRepository) InsertIfAbsent(ctx context.Context, rel model.Relation, record *model.MembershipRecord) (bool, error) {
	tx, err := r.table(ctx, rel)
	if err != nil {
		return false, err
	}

	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(record)
	if res.Error != nil {
		if isDuplicateKey(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DeleteIfPresent 单条 DELETE，按影响行数判断
func (r *gormMembershipRepository) DeleteIfPresent(ctx context.Context, rel model.Relation, userEmail string, songID int64) (bool, error) {
	tx, err := r.table(ctx, rel)
	if err != nil {
		return false, err
	}

	res := tx.Where("user_email = ? AND song_id = ?", userEmail, songID).
		Delete(&model.MembershipRecord{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// isDuplicateKey 唯一索引冲突
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDupEntry
}
