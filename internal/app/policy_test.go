package app

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain"
)

func TestAuthorize(t *testing.T) {
	admin := &domain.User{ID: uuid.New(), IsSuperuser: true, IsVerified: true, IsActive: true}
	otherAdmin := &domain.User{ID: uuid.New(), IsSuperuser: true}
	user := &domain.User{ID: uuid.New(), IsVerified: true, IsActive: true}
	banned := &domain.User{ID: uuid.New(), IsVerified: true, IsActive: true, IsBanned: true}
	own := &domain.Listing{ID: 1, SellerID: user.ID}
	foreign := &domain.Listing{ID: 2, SellerID: uuid.New()}

	tests := []struct {
		name    string
		caller  *domain.User
		action  Action
		target  Target
		wantErr error
		reason  string
	}{
		{"anonymous", nil, ActionCreateListing, Target{}, domain.ErrUnauthenticated, "not authenticated"},
		{"admin views", admin, ActionViewAdmin, Target{}, nil, ""},
		{"user views admin", user, ActionViewAdmin, Target{}, domain.ErrForbidden, "administrator access required"},
		{"user bans", user, ActionBan, Target{User: banned}, domain.ErrForbidden, ""},
		{"self ban", admin, ActionBan, Target{User: admin}, domain.ErrInvalidArgument, "cannot ban themselves"},
		{"admin ban", admin, ActionBan, Target{User: otherAdmin}, domain.ErrInvalidArgument, "cannot ban other administrators"},
		{"ban user", admin, ActionBan, Target{User: user}, nil, ""},
		{"self unban", admin, ActionUnban, Target{User: admin}, domain.ErrInvalidArgument, "cannot unban themselves"},
		{"unban user", admin, ActionUnban, Target{User: banned}, nil, ""},
		{"create", user, ActionCreateListing, Target{}, nil, ""},
		{"banned create", banned, ActionCreateListing, Target{}, domain.ErrForbidden, "banned"},
		{"owner update", user, ActionUpdateListing, Target{Listing: own}, nil, ""},
		{"stranger update", user, ActionUpdateListing, Target{Listing: foreign}, domain.ErrForbidden, "only the seller"},
		{"admin update", admin, ActionUpdateListing, Target{Listing: foreign}, nil, ""},
		{"banned owner update", &domain.User{ID: user.ID, IsBanned: true}, ActionUpdateListing, Target{Listing: own}, domain.ErrForbidden, "banned"},
		{"profile", user, ActionUpdateProfile, Target{User: user}, nil, ""},
		{"banned profile", banned, ActionUpdateProfile, Target{User: banned}, domain.ErrForbidden, "banned"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := Authorize(tc.caller, tc.action, tc.target)
			if tc.wantErr == nil {
				assert.True(t, d.Allowed)
				assert.NoError(t, d.Err)
				assert.NotEmpty(t, d.Reason)
				return
			}
			assert.False(t, d.Allowed)
			require.ErrorIs(t, d.Err, tc.wantErr)
			assert.Contains(t, d.Reason, tc.reason)
		})
	}
}

func TestAction_String(t *testing.T) {
	assert.Equal(t, "view-admin", ActionViewAdmin.String())
	assert.Equal(t, "update-listing", ActionUpdateListing.String())
}
