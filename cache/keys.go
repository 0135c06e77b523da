package cache

import "fmt"

const keyPrefix = "image-tiers"

// IdentityKey 鉴权身份缓存键
func IdentityKey(userID uint) string {
	return fmt.Sprintf("%s:identity:%d", keyPrefix, userID)
}
