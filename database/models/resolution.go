package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrResolutionOutOfBounds 分辨率超出配置范围
var ErrResolutionOutOfBounds = errors.New("resolution out of bounds")

// Resolution 缩略图目标尺寸，(width, height) 唯一
type Resolution struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Width     int       `gorm:"not null;uniqueIndex:idx_resolution_wh,priority:1" json:"width"`
	Height    int       `gorm:"not null;uniqueIndex:idx_resolution_wh,priority:2" json:"height"`
	CreatedAt time.Time `json:"created_at"`
}

// ResolutionBounds 分辨率宽高的闭区间限制
type ResolutionBounds struct {
	MinWidth  int
	MaxWidth  int
	MinHeight int
	MaxHeight int
}

// Validate 检查分辨率是否落在限制内
func (r Resolution) Validate(b ResolutionBounds) error {
	if r.Width < b.MinWidth || r.Width > b.MaxWidth {
		return fmt.Errorf("%w: width %d not in [%d, %d]", ErrResolutionOutOfBounds, r.Width, b.MinWidth, b.MaxWidth)
	}
	if r.Height < b.MinHeight || r.Height > b.MaxHeight {
		return fmt.Errorf("%w: height %d not in [%d, %d]", ErrResolutionOutOfBounds, r.Height, b.MinHeight, b.MaxHeight)
	}
	return nil
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}
