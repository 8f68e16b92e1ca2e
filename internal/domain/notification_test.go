package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValidKind(t *testing.T) {
	t.Run("valid kinds", func(t *testing.T) {
		valid := []Kind{
			KindWebhookChange,
			KindLeaveRequested,
			KindLeaveApproved,
			KindLeaveRejected,
			KindLeaveExpired,
			KindLeaveExpiredAdmin,
			KindOther,
		}
		for _, v := range valid {
			require.True(t, IsValidKind(string(v)), "expected valid kind: %s", v)
		}
	})

	t.Run("invalid kinds", func(t *testing.T) {
		invalid := []string{"", "webhook", "leave", "LEAVE_REQUESTED", "session_reminder"}
		for _, v := range invalid {
			require.False(t, IsValidKind(v), "expected invalid kind: %s", v)
		}
	})
}

func TestCollectionFor(t *testing.T) {
	require.Equal(t, CollectionWebhookChanges, CollectionFor(KindWebhookChange))
	for _, k := range []Kind{KindLeaveRequested, KindLeaveExpired, KindOther, Kind("unknown")} {
		require.Equal(t, CollectionNotifications, CollectionFor(k), "kind %s", k)
	}
}

func TestIsAdminRelevant(t *testing.T) {
	require.True(t, IsAdminRelevant(KindWebhookChange))
	require.True(t, IsAdminRelevant(KindLeaveRequested))
	require.True(t, IsAdminRelevant(KindLeaveExpiredAdmin))
	require.False(t, IsAdminRelevant(KindLeaveApproved))
	require.False(t, IsAdminRelevant(KindLeaveExpired))
	require.False(t, IsAdminRelevant(KindOther))
}

func TestIdentity(t *testing.T) {
	require.True(t, Identity{Role: RoleAdmin}.IsAdminClass())
	require.True(t, Identity{Role: RoleAcademicAssociate}.IsAdminClass())
	require.False(t, Identity{Role: RoleMentor}.IsAdminClass())
	require.False(t, Identity{}.IsAdminClass())
}

func TestEmailInDomain(t *testing.T) {
	require.True(t, EmailInDomain("a@navgurukul.org", "navgurukul.org"))
	require.True(t, EmailInDomain("a@NavGurukul.org", "@navgurukul.org"))
	require.True(t, EmailInDomain("anyone@example.com", ""))
	require.False(t, EmailInDomain("a@gmail.com", "navgurukul.org"))
	require.False(t, EmailInDomain("a@sub.navgurukul.org", "navgurukul.org"))
	require.False(t, EmailInDomain("navgurukul.org", "navgurukul.org"))
	require.False(t, EmailInDomain("a@", "navgurukul.org"))
}
