// Package access holds the authorization predicates shared by the image
// handlers.
package access

import "github.com/anoixa/image-tiers/database/models"

// Caller 已认证的请求方
type Caller struct {
	UserID    uint               `json:"user_id"`
	Username  string             `json:"username"`
	Superuser bool               `json:"is_superuser"`
	Tier      *models.TierPolicy `json:"tier,omitempty"`
}

// FromUser 由用户行构建 Caller
func FromUser(u *models.User) Caller {
	return Caller{
		UserID:    u.ID,
		Username:  u.Username,
		Superuser: u.IsSuperuser,
		Tier:      u.Tier,
	}
}

// OwnerOrAdmin 调用方是资源所有者或管理员
func OwnerOrAdmin(c Caller, ownerID uint) bool {
	return c.Superuser || (c.UserID != 0 && c.UserID == ownerID)
}

// CanGenerateLink 调用方等级允许生成临时链接
func CanGenerateLink(c Caller) bool {
	return c.Tier != nil && c.Tier.CanGenerateLink
}

// CanIssueLink 生成临时链接需同时满足两个条件
func CanIssueLink(c Caller, ownerID uint) bool {
	return OwnerOrAdmin(c, ownerID) && CanGenerateLink(c)
}
