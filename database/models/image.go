package models

import "time"

// Image 用户上传的图片
// OriginalPath 为 nil 表示创建时的等级策略不保留原图
type Image struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	UserID       uint         `gorm:"not null;index:idx_image_user_created,priority:1" json:"user_id"`
	User         *User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	OriginalPath *string      `gorm:"size:512" json:"-"`
	OriginalName string       `gorm:"size:255;not null" json:"original_name"`
	MimeType     string       `gorm:"size:64;not null" json:"mime_type"`
	FileSize     int64        `gorm:"not null" json:"file_size"`
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	Thumbnails   []*Thumbnail `gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE" json:"thumbnails"`
	CreatedAt    time.Time    `gorm:"index:idx_image_user_created,priority:2" json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// HasOriginal 是否保留了原图
func (i *Image) HasOriginal() bool {
	return i.OriginalPath != nil && *i.OriginalPath != ""
}

// Thumbnail 缩略图，记录生成时的目标尺寸，与分辨率目录解耦
type Thumbnail struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ImageID          uint      `gorm:"not null;index" json:"image_id"`
	ResolutionWidth  int       `gorm:"not null" json:"resolution_width"`
	ResolutionHeight int       `gorm:"not null" json:"resolution_height"`
	Width            int       `gorm:"not null" json:"width"`
	Height           int       `gorm:"not null" json:"height"`
	Path             string    `gorm:"size:512;not null" json:"-"`
	FileSize         int64     `gorm:"not null" json:"file_size"`
	CreatedAt        time.Time `json:"created_at"`
}

// All 需要自动迁移的模型
func All() []interface{} {
	return []interface{}{
		&Resolution{},
		&TierPolicy{},
		&User{},
		&Image{},
		&Thumbnail{},
	}
}
