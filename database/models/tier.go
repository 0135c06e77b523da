package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrPolicyInvariantViolation 开启临时链接必须同时保留原图
var ErrPolicyInvariantViolation = errors.New("cannot set temp link generation to true when keep_original is false")

// TierPolicy 账户等级策略
type TierPolicy struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	Name            string        `gorm:"size:50;uniqueIndex;not null" json:"name"`
	KeepOriginal    bool          `gorm:"not null;default:false" json:"keep_original"`
	CanGenerateLink bool          `gorm:"not null;default:false" json:"can_generate_link"`
	Resolutions     []*Resolution `gorm:"many2many:tier_resolutions;constraint:OnDelete:CASCADE" json:"resolutions"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Validate 校验跨字段约束
func (t *TierPolicy) Validate() error {
	if t.CanGenerateLink && !t.KeepOriginal {
		return ErrPolicyInvariantViolation
	}
	return nil
}

// BeforeSave 在任何写入之前拦截非法策略
func (t *TierPolicy) BeforeSave(tx *gorm.DB) error {
	return t.Validate()
}

// DistinctResolutions 按 (width, height) 去重
func (t *TierPolicy) DistinctResolutions() []Resolution {
	type key struct{ w, h int }
	seen := make(map[key]struct{}, len(t.Resolutions))
	out := make([]Resolution, 0, len(t.Resolutions))
	for _, r := range t.Resolutions {
		if r == nil {
			continue
		}
		k := key{r.Width, r.Height}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, *r)
	}
	return out
}
