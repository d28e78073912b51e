package model

import "time"

// Song 曲库中的一首歌曲
type Song struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title     string    `json:"title" gorm:"size:255"`
	Artist    string    `json:"artist" gorm:"size:255"`
	AudioSrc  string    `json:"audioSrc" gorm:"size:767"`
	ImageURL  string    `json:"imageUrl" gorm:"size:767"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Song) TableName() string {
	return "songs"
}
