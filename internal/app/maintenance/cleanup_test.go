package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aurorasociety/clubhouse/internal/database/testutil"
	"github.com/aurorasociety/clubhouse/internal/models"
)

func TestDeactivateExpiredLinks(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	expired := models.ReferralLink{SponsorID: "sponsor-1", LinkCode: "AURORA-LINK-AAA111", ReferralCode: "AURORA-AAA111", IsActive: true, ExpiresAt: &past}
	active := models.ReferralLink{SponsorID: "sponsor-1", LinkCode: "AURORA-LINK-BBB222", ReferralCode: "AURORA-AAA111", IsActive: true, ExpiresAt: &future}
	open := models.ReferralLink{SponsorID: "sponsor-1", LinkCode: "AURORA-LINK-CCC333", ReferralCode: "AURORA-AAA111", IsActive: true}
	require.NoError(t, db.Create(&expired).Error)
	require.NoError(t, db.Create(&active).Error)
	require.NoError(t, db.Create(&open).Error)

	count, err := DeactivateExpiredLinks(context.Background(), db, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	var reloaded models.ReferralLink
	require.NoError(t, db.Take(&reloaded, "id = ?", expired.ID).Error)
	require.False(t, reloaded.IsActive)
	reloaded = models.ReferralLink{}
	require.NoError(t, db.Take(&reloaded, "id = ?", active.ID).Error)
	require.True(t, reloaded.IsActive)
	reloaded = models.ReferralLink{}
	require.NoError(t, db.Take(&reloaded, "id = ?", open.ID).Error)
	require.True(t, reloaded.IsActive)
}

func TestPruneClickAudit(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Now().UTC()

	link := models.ReferralLink{SponsorID: "sponsor-1", LinkCode: "AURORA-LINK-DDD444", ReferralCode: "AURORA-AAA111", IsActive: true}
	require.NoError(t, db.Create(&link).Error)

	old := models.ReferralLinkClick{LinkID: link.ID, IPAddress: "203.0.113.1"}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Model(&old).Update("created_at", now.Add(-100*24*time.Hour)).Error)

	recent := models.ReferralLinkClick{LinkID: link.ID, IPAddress: "203.0.113.2"}
	require.NoError(t, db.Create(&recent).Error)

	count, err := PruneClickAudit(context.Background(), db, now.Add(-90*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	var remaining []models.ReferralLinkClick
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	require.Equal(t, recent.ID, remaining[0].ID)
}

func TestCleanerRunOnce(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	past := now.Add(-time.Minute)
	link := models.ReferralLink{SponsorID: "sponsor-1", LinkCode: "AURORA-LINK-EEE555", ReferralCode: "AURORA-AAA111", IsActive: true, ExpiresAt: &past}
	require.NoError(t, db.Create(&link).Error)

	cleaner := NewCleaner(db, WithNow(func() time.Time { return now }), WithClickRetention(24*time.Hour))
	require.NoError(t, cleaner.RunOnce(context.Background()))

	var reloaded models.ReferralLink
	require.NoError(t, db.Take(&reloaded, "id = ?", link.ID).Error)
	require.False(t, reloaded.IsActive)
}
