package model

import "time"

// Relation 用户与歌曲之间的一种归属关系，值即表名
type Relation string

const (
	RelationLiked    Relation = "liked_songs"
	RelationPlaylist Relation = "playlist_songs"
)

// Table 返回关系对应的表名
func (r Relation) Table() string {
	return string(r)
}

// Valid 是否为已知关系
func (r Relation) Valid() bool {
	return r == RelationLiked || r == RelationPlaylist
}

// SongSnapshot 加入喜欢/歌单时歌曲信息的快照。
// 快照与曲库不联动：曲库中的歌曲被修改或删除后，已有记录保持原样。
type SongSnapshot struct {
	SongTitle string `json:"songTitle" gorm:"size:255"`
	Artist    string `json:"artist" gorm:"size:255"`
	MovieName string `json:"movieName" gorm:"size:255"`
	ImageURL  string `json:"imageUrl" gorm:"size:767"`
	AudioSrc  string `json:"audioSrc" gorm:"size:767"`
}

// SongMeta 调用方提交的歌曲信息
type SongMeta struct {
	SongID int64
	SongSnapshot
}

// MembershipRecord liked_songs / playlist_songs 中的一行
type MembershipRecord struct {
	ID        int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	UserEmail string `json:"userEmail" gorm:"size:191;not null"`
	SongID    int64  `json:"songId" gorm:"not null"`
	SongSnapshot
	CreatedAt time.Time `json:"createdAt"`
}

// NewMembershipRecord 根据用户和歌曲信息构造记录
func NewMembershipRecord(userEmail string, meta SongMeta) *MembershipRecord {
	return &MembershipRecord{
		UserEmail:    userEmail,
		SongID:       meta.SongID,
		SongSnapshot: meta.SongSnapshot,
	}
}

// LikedSong 仅用于建表：(user_email, song_id) 唯一
type LikedSong struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserEmail string `gorm:"size:191;not null;uniqueIndex:uq_liked_user_song,priority:1"`
	SongID    int64  `gorm:"not null;uniqueIndex:uq_liked_user_song,priority:2"`
	SongSnapshot
	CreatedAt time.Time
}

// TableName 指定表名
func (LikedSong) TableName() string {
	return RelationLiked.Table()
}

// PlaylistSong 仅用于建表：(user_email, song_id) 唯一
type PlaylistSong struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserEmail string `gorm:"size:191;not null;uniqueIndex:uq_playlist_user_song,priority:1"`
	SongID    int64  `gorm:"not null;uniqueIndex:uq_playlist_user_song,priority:2"`
	SongSnapshot
	CreatedAt time.Time
}

// TableName 指定表名
func (PlaylistSong) TableName() string {
	return RelationPlaylist.Table()
}

// AllModels 需要 AutoMigrate 的模型
func AllModels() []interface{} {
	return []interface{}{&Song{}, &LikedSong{}, &PlaylistSong{}}
}
