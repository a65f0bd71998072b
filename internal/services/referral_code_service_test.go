package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aurorasociety/clubhouse/internal/database/testutil"
)

func newReferralCodeService(t *testing.T, db *gorm.DB) *ReferralCodeService {
	t.Helper()

	service, err := NewReferralCodeService(db, newSponsorshipService(t, db), NewCodeGenerator(), "https://club.example.com/")
	require.NoError(t, err)
	return service
}

func TestReferralCodeGetOrCreateIsIdempotent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	service := newReferralCodeService(t, db)
	ctx := context.Background()

	member := createTestProfile(t, db, "Ada")

	code, err := service.GetOrCreate(ctx, member.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(code, "AURORA-"))
	require.Len(t, code, len("AURORA-")+6)

	again, err := service.GetOrCreate(ctx, member.ID)
	require.NoError(t, err)
	require.Equal(t, code, again)
}

func TestReferralCodeUnknownMember(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	service := newReferralCodeService(t, db)

	_, err := service.GetOrCreate(context.Background(), "f2b1f318-4b04-4a09-8d2c-000000000000")
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestReferralCodeStatusTracksLedger(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	service := newReferralCodeService(t, db)
	ctx := context.Background()

	sponsor := createTestProfile(t, db, "Ada")

	status, err := service.Status(ctx, sponsor.ID)
	require.NoError(t, err)
	require.False(t, status.Used)
	require.Zero(t, status.ReferralCount)
	require.Equal(t, "https://club.example.com/register?ref="+status.Code, status.RegistrationURL)

	_, err = service.sponsorships.CreateFromCode(ctx, CreateReferralInput{
		SponsorID:  sponsor.ID,
		ReferredID: createTestProfile(t, db, "Grace").ID,
		Code:       status.Code,
	})
	require.NoError(t, err)

	status, err = service.Status(ctx, sponsor.ID)
	require.NoError(t, err)
	require.True(t, status.Used)
	require.Equal(t, int64(1), status.ReferralCount)
}

func TestReferralCodeFindSponsorByCode(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	service := newReferralCodeService(t, db)
	ctx := context.Background()

	sponsor := createTestProfile(t, db, "Ada")
	code, err := service.GetOrCreate(ctx, sponsor.ID)
	require.NoError(t, err)

	// Lookup is case-insensitive on input.
	found, err := service.FindSponsorByCode(ctx, strings.ToLower(code))
	require.NoError(t, err)
	require.Equal(t, sponsor.ID, found.ID)

	_, err = service.FindSponsorByCode(ctx, "AURORA-ZZZZZZ")
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestReferralCodeQRCode(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	service := newReferralCodeService(t, db)

	member := createTestProfile(t, db, "Ada")

	png, err := service.QRCode(context.Background(), member.ID)
	require.NoError(t, err)
	require.NotEmpty(t, png)
	// PNG magic bytes.
	require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
