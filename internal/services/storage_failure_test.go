package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aurorasociety/clubhouse/internal/database/testutil"
)

// Closing the underlying connection makes every query fail the way a storage
// outage would.
func TestDatabaseFailuresCarryStorageSentinel(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	ctx := context.Background()

	sponsorships := newSponsorshipService(t, db)
	invitations := newInvitationCodeService(t, db)

	sponsor := createTestProfile(t, db, "Ada")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = sponsorships.ListMembers(ctx, sponsor.ID)
	require.ErrorIs(t, err, ErrStorageFailure)

	_, err = sponsorships.Stats(ctx, sponsor.ID)
	require.ErrorIs(t, err, ErrStorageFailure)

	_, err = invitations.Create(ctx, sponsor.ID, "")
	require.ErrorIs(t, err, ErrStorageFailure)
}
