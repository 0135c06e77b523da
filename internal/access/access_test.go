package access

import (
	"testing"

	"github.com/anoixa/image-tiers/database/models"
	"github.com/stretchr/testify/assert"
)

func TestOwnerOrAdmin(t *testing.T) {
	tests := []struct {
		name   string
		caller Caller
		owner  uint
		want   bool
	}{
		{"owner", Caller{UserID: 7}, 7, true},
		{"stranger", Caller{UserID: 8}, 7, false},
		{"admin", Caller{UserID: 1, Superuser: true}, 7, true},
		{"anonymous", Caller{}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OwnerOrAdmin(tt.caller, tt.owner))
		})
	}
}

func TestCanIssueLink(t *testing.T) {
	enterprise := &models.TierPolicy{KeepOriginal: true, CanGenerateLink: true}
	premium := &models.TierPolicy{KeepOriginal: true}

	assert.False(t, CanGenerateLink(Caller{UserID: 1}))
	assert.False(t, CanGenerateLink(Caller{UserID: 1, Tier: premium}))
	assert.True(t, CanGenerateLink(Caller{UserID: 1, Tier: enterprise}))

	assert.True(t, CanIssueLink(Caller{UserID: 1, Tier: enterprise}, 1))
	assert.False(t, CanIssueLink(Caller{UserID: 2, Tier: enterprise}, 1))
	assert.False(t, CanIssueLink(Caller{UserID: 1, Superuser: true, Tier: premium}, 1))
	assert.True(t, CanIssueLink(Caller{UserID: 9, Superuser: true, Tier: enterprise}, 1))
}

func TestFromUser(t *testing.T) {
	tier := &models.TierPolicy{ID: 3, Name: "Basic"}
	c := FromUser(&models.User{ID: 5, Username: "bob", Tier: tier})
	assert.Equal(t, uint(5), c.UserID)
	assert.Equal(t, "bob", c.Username)
	assert.False(t, c.Superuser)
	assert.Same(t, tier, c.Tier)
}
