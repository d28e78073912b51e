// Package library 管理用户的"喜欢"和"歌单"两种歌曲归属关系。
//
// 每个 (关系, 用户, 歌曲) 最多一条记录。判断和修改合并在存储层的单条条件语句里
// （InsertIfAbsent / DeleteIfPresent），不存在先查再写的窗口。
package library

import (
	"context"
	"strings"
	"time"

	"TuneLib/model"
	"TuneLib/repository"
)

// EventType 资料库变更事件类型
type EventType string

const (
	EventLiked          EventType = "liked"
	EventUnliked        EventType = "unliked"
	EventPlaylistAdd    EventType = "playlist_add"
	EventPlaylistRemove EventType = "playlist_remove"
)

// Event 状态确实发生变化后推送给同一用户的其他连接
type Event struct {
	Type      EventType `json:"type"`
	SongID    int64     `json:"songId"`
	Timestamp int64     `json:"timestamp"`
}

// Notifier 事件推送，nil 表示不推送
type Notifier interface {
	Publish(userEmail string, evt Event)
}

// base 两个服务共用的存储访问
type base struct {
	repo     repository.MembershipRepository
	rel      model.Relation
	notifier Notifier
}

func (b *base) list(ctx context.Context, userEmail string) ([]*model.MembershipRecord, error) {
	userEmail, err := requireIdentity(userEmail)
	if err != nil {
		return nil, err
	}
	return b.repo.List(ctx, b.rel, userEmail)
}

func (b *base) exists(ctx context.Context, userEmail string, songID int64) (bool, error) {
	userEmail, err := requireIdentity(userEmail)
	if err != nil {
		return false, err
	}
	if err := validateSongID(songID); err != nil {
		return false, err
	}
	return b.repo.Exists(ctx, b.rel, userEmail, songID)
}

func (b *base) publish(userEmail string, typ EventType, songID int64) {
	if b.notifier == nil {
		return
	}
	b.notifier.Publish(userEmail, Event{Type: typ, SongID: songID, Timestamp: time.Now().UnixMilli()})
}

func requireIdentity(userEmail string) (string, error) {
	userEmail = strings.TrimSpace(userEmail)
	if userEmail == "" {
		return "", ErrMissingIdentity
	}
	return userEmail, nil
}

func validateSongID(songID int64) error {
	if songID <= 0 {
		return &ValidationError{Field: "songId", Reason: "must be a positive integer"}
	}
	return nil
}

// validateMeta 插入记录前的校验：songId 和 songTitle 必填
func validateMeta(meta model.SongMeta) error {
	if err := validateSongID(meta.SongID); err != nil {
		return err
	}
	if strings.TrimSpace(meta.SongTitle) == "" {
		return &ValidationError{Field: "songTitle", Reason: "is required"}
	}
	return nil
}
