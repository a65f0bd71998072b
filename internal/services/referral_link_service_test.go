package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/aurorasociety/clubhouse/internal/database"
	"github.com/aurorasociety/clubhouse/internal/database/testutil"
	"github.com/aurorasociety/clubhouse/internal/models"
)

func newReferralLinkService(t *testing.T, db *gorm.DB, opts ...ReferralLinkOption) *ReferralLinkService {
	t.Helper()

	limits, err := NewLimitService(db)
	require.NoError(t, err)

	sponsorships, err := NewSponsorshipService(db, limits)
	require.NoError(t, err)

	codes, err := NewReferralCodeService(db, sponsorships, NewCodeGenerator(), "https://club.example.com")
	require.NoError(t, err)

	service, err := NewReferralLinkService(db, limits, sponsorships, codes, NewCodeGenerator(), "https://club.example.com", opts...)
	require.NoError(t, err)
	return service
}

func TestReferralLinkCreate(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	service := newReferralLinkService(t, db)
	ctx := context.Background()

	sponsor := createTestProfile(t, db, "Ada")

	expires := time.Now().Add(48 * time.Hour).UTC()
	link, err := service.Create(ctx, CreateReferralLinkInput{
		SponsorID:    sponsor.ID,
		Label:        "spring campaign",
		IsFamilyLink: true,
		AllowedPages: []string{"/about", "/events"},
		ExpiresAt:    &expires,
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link.LinkCode, "AURORA-LINK-"))
	require.True(t, link.IsActive)
	require.True(t, link.IsFamilyLink)
	require.NotNil(t, link.LinkName)
	require.Equal(t, "spring campaign", *link.LinkName)
	require.JSONEq(t, `["/about","/events"]`, string(link.AllowedPages))

	// Creating the first link assigned the sponsor's primary code.
	var profile models.Profile
	require.NoError(t, db.Take(&profile, "id = ?", sponsor.ID).Error)
	require.NotNil(t, profile.ReferralCode)
	require.Equal(t, *profile.ReferralCode, link.ReferralCode)

	require.Equal(t, "https://club.example.com/register?link="+link.LinkCode, service.LinkURL(link.LinkCode))
}

func TestReferralLinkCreateEnforcesLimit(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	ctx := context.Background()
	require.NoError(t, database.UpsertClubSetting(ctx, db, database.MaxReferralLinksSetting, "1"))

	service := newReferralLinkService(t, db)
	sponsor := createTestProfile(t, db, "Ada")

	link, err := service.Create(ctx, CreateReferralLinkInput{SponsorID: sponsor.ID})
	require.NoError(t, err)

	_, err = service.Create(ctx, CreateReferralLinkInput{SponsorID: sponsor.ID})
	require.ErrorIs(t, err, ErrReferralLinkLimitReached)

	// Deactivating does not free the slot; the cap counts every held link.
	_, err = service.ToggleActive(ctx, sponsor.ID, link.ID, false)
	require.NoError(t, err)
	_, err = service.Create(ctx, CreateReferralLinkInput{SponsorID: sponsor.ID})
	require.ErrorIs(t, err, ErrReferralLinkLimitReached)

	// Deleting does.
	require.NoError(t, service.Delete(ctx, sponsor.ID, link.ID))
	_, err = service.Create(ctx, CreateReferralLinkInput{SponsorID: sponsor.ID})
	require.NoError(t, err)
}

func TestReferralLinkRecordClick(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	service := newReferralLinkService(t, db)
	ctx := context.Background()

	sponsor := createTestProfile(t, db, "Ada")
	link, err := service.Create(ctx, CreateReferralLinkInput{SponsorID: sponsor.ID})
	require.NoError(t, err)

	clicked, err := service.RecordClick(ctx, strings.ToLower(link.LinkCode), ClickContext{
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent",
		Referer:   "https://social.example.com/post/1",
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), clicked.ClickCount)

	var audits []models.ReferralLinkClick
	require.NoError(t, db.Where("link_id = ?", link.ID).Find(&audits).Error)
	require.Len(t, audits, 1)
	require.Equal(t, "203.0.113.7", audits[0].IPAddress)
	require.NotNil(t, audits[0].Referer)

	_, err = service.RecordClick(ctx, "AURORA-LINK-ZZZZZZ", ClickContext{})
	require.ErrorIs(t, err, ErrReferralLinkNotFound)
}

func TestReferralLinkRejectsInactiveAndExpired(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	service := newReferralLinkService(t, db, WithReferralLinkClock(func() time.Time { return now }))
	ctx := context.Background()

	sponsor := createTestProfile(t, db, "Ada")

	inactive, err := service.Create(ctx, CreateReferralLinkInput{SponsorID: sponsor.ID})
	require.NoError(t, err)
	_, err = service.ToggleActive(ctx, sponsor.ID, inactive.ID, false)
	require.NoError(t, err)

	_, err = service.RecordClick(ctx, inactive.LinkCode, ClickContext{})
	require.ErrorIs(t, err, ErrReferralLinkInactive)
	_, err = service.RecordRegistration(ctx, inactive.LinkCode, createTestProfile(t, db, "Grace").ID)
	require.ErrorIs(t, err, ErrReferralLinkInactive)

	past := now.Add(-time.Hour)
	expired, err := service.Create(ctx, CreateReferralLinkInput{SponsorID: sponsor.ID, ExpiresAt: &past})
	require.NoError(t, err)

	_, err = service.RecordClick(ctx, expired.LinkCode, ClickContext{})
	require.ErrorIs(t, err, ErrReferralLinkInactive)

	// Reactivated links work again.
	_, err = service.ToggleActive(ctx, sponsor.ID, inactive.ID, true)
	require.NoError(t, err)
	_, err = service.RecordClick(ctx, inactive.LinkCode, ClickContext{})
	require.NoError(t, err)
}

func TestReferralLinkRecordRegistration(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	service := newReferralLinkService(t, db)
	ctx := context.Background()

	sponsor := createTestProfile(t, db, "Ada")
	member := createTestProfile(t, db, "Grace")

	link, err := service.Create(ctx, CreateReferralLinkInput{SponsorID: sponsor.ID})
	require.NoError(t, err)

	referral, err := service.RecordRegistration(ctx, link.LinkCode, member.ID)
	require.NoError(t, err)
	require.Equal(t, sponsor.ID, referral.SponsorID)
	require.Equal(t, models.ReferralStatusPending, referral.Status)
	require.Equal(t, link.LinkCode, referral.ReferralCode)

	var reloaded models.ReferralLink
	require.NoError(t, db.Take(&reloaded, "id = ?", link.ID).Error)
	require.Equal(t, int64(1), reloaded.RegistrationCount)

	// A second registration by the same member rolls the counter back.
	_, err = service.RecordRegistration(ctx, link.LinkCode, member.ID)
	require.ErrorIs(t, err, ErrAlreadySponsored)
	require.NoError(t, db.Take(&reloaded, "id = ?", link.ID).Error)
	require.Equal(t, int64(1), reloaded.RegistrationCount)
}

func TestReferralLinkRenameAndDelete(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	service := newReferralLinkService(t, db)
	ctx := context.Background()

	sponsor := createTestProfile(t, db, "Ada")
	stranger := createTestProfile(t, db, "Edsger")

	link, err := service.Create(ctx, CreateReferralLinkInput{SponsorID: sponsor.ID, Label: "old"})
	require.NoError(t, err)

	renamed, err := service.Rename(ctx, sponsor.ID, link.ID, "new")
	require.NoError(t, err)
	require.Equal(t, "new", *renamed.LinkName)

	// Ownership is scoped per sponsor.
	_, err = service.Rename(ctx, stranger.ID, link.ID, "hijack")
	require.ErrorIs(t, err, ErrReferralLinkNotFound)
	require.ErrorIs(t, service.Delete(ctx, stranger.ID, link.ID), ErrReferralLinkNotFound)

	_, err = service.RecordClick(ctx, link.LinkCode, ClickContext{})
	require.NoError(t, err)

	require.NoError(t, service.Delete(ctx, sponsor.ID, link.ID))

	var clicks int64
	require.NoError(t, db.Model(&models.ReferralLinkClick{}).Where("link_id = ?", link.ID).Count(&clicks).Error)
	require.Zero(t, clicks)

	_, err = service.RecordClick(ctx, link.LinkCode, ClickContext{})
	require.ErrorIs(t, err, ErrReferralLinkNotFound)
}

func TestReferralLinkQRCode(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	service := newReferralLinkService(t, db)
	ctx := context.Background()

	sponsor := createTestProfile(t, db, "Ada")
	link, err := service.Create(ctx, CreateReferralLinkInput{SponsorID: sponsor.ID})
	require.NoError(t, err)

	png, err := service.QRCode(ctx, sponsor.ID, link.ID)
	require.NoError(t, err)
	require.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}
