package models

import "time"

// User 账户，归属一个等级策略
type User struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	Username     string      `gorm:"size:150;uniqueIndex;not null" json:"username"`
	PasswordHash string      `gorm:"not null" json:"-"`
	IsSuperuser  bool        `gorm:"not null;default:false" json:"is_superuser"`
	IsActive     bool        `gorm:"not null" json:"is_active"`
	TierID       uint        `gorm:"not null;index" json:"tier_id"`
	Tier         *TierPolicy `gorm:"foreignKey:TierID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"tier,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
