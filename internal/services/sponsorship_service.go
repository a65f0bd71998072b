package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/aurorasociety/clubhouse/internal/models"
	"github.com/aurorasociety/clubhouse/pkg/metrics"
)

var (
	// ErrSelfSponsorship signals a member trying to redeem their own code.
	ErrSelfSponsorship = errors.New("sponsorship: member cannot sponsor themselves")
	// ErrAlreadySponsored signals the referred member already has a sponsor.
	ErrAlreadySponsored = errors.New("sponsorship: member already sponsored")
	// ErrReferralLimitReached signals the sponsor is at their configured referral cap.
	ErrReferralLimitReached = errors.New("sponsorship: referral limit reached")
	// ErrReferralNotFound indicates the requested ledger entry does not exist.
	ErrReferralNotFound = errors.New("sponsorship: referral not found")
	// ErrNotRecordOwner signals a caller acting on another sponsor's ledger entry.
	ErrNotRecordOwner = errors.New("sponsorship: caller does not own this referral")
)

// SponsorshipOption customises SponsorshipService behaviour.
type SponsorshipOption func(*SponsorshipService)

// WithSponsorshipClock injects a custom clock primarily for testing.
func WithSponsorshipClock(clock func() time.Time) SponsorshipOption {
	return func(s *SponsorshipService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// SponsorshipService owns the sponsor to referred-member ledger and the
// approval workflow that gates entry into the club.
type SponsorshipService struct {
	db     *gorm.DB
	limits *LimitService
	now    func() time.Time
}

// NewSponsorshipService constructs a SponsorshipService.
func NewSponsorshipService(db *gorm.DB, limits *LimitService, opts ...SponsorshipOption) (*SponsorshipService, error) {
	if db == nil {
		return nil, errors.New("sponsorship service: db is required")
	}
	if limits == nil {
		return nil, errors.New("sponsorship service: limit service is required")
	}

	service := &SponsorshipService{
		db:     db,
		limits: limits,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// CreateReferralInput describes a new ledger entry.
type CreateReferralInput struct {
	SponsorID  string
	ReferredID string
	Code       string
	// Direct marks the add-by-search flow, which enters the ledger already
	// confirmed and bypasses sponsor approval.
	Direct bool
}

// CreateFromCode inserts a ledger entry for a redeemed code or link. Code and
// link redemptions enter as pending; direct adds enter as confirmed.
func (s *SponsorshipService) CreateFromCode(ctx context.Context, input CreateReferralInput) (*models.Referral, error) {
	ctx = ensureContext(ctx)

	var created *models.Referral
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		referral, err := s.createInTx(tx, input)
		if err != nil {
			return err
		}
		created = referral
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// createInTx applies the ledger invariants and inserts inside the caller's
// transaction so redemption side effects commit or roll back together.
func (s *SponsorshipService) createInTx(tx *gorm.DB, input CreateReferralInput) (*models.Referral, error) {
	sponsorID := strings.TrimSpace(input.SponsorID)
	referredID := strings.TrimSpace(input.ReferredID)
	if sponsorID == "" || referredID == "" {
		return nil, errors.New("sponsorship service: sponsor and referred ids are required")
	}
	if sponsorID == referredID {
		return nil, ErrSelfSponsorship
	}

	ctx := tx.Statement.Context

	var existing int64
	if err := tx.Model(&models.Referral{}).
		Where("referred_id = ?", referredID).
		Count(&existing).Error; err != nil {
		return nil, storageError("sponsorship service: check existing sponsor", err)
	}
	if existing > 0 {
		return nil, ErrAlreadySponsored
	}

	var active int64
	if err := tx.Model(&models.Referral{}).
		Where("sponsor_id = ? AND status <> ?", sponsorID, models.ReferralStatusRejected).
		Count(&active).Error; err != nil {
		return nil, storageError("sponsorship service: count referrals", err)
	}
	if active >= int64(s.limits.MaxReferrals(ctx)) {
		return nil, ErrReferralLimitReached
	}

	status := models.ReferralStatusPending
	if input.Direct {
		status = models.ReferralStatusConfirmed
	}

	referral := models.Referral{
		SponsorID:    sponsorID,
		ReferredID:   referredID,
		ReferralCode: strings.ToUpper(strings.TrimSpace(input.Code)),
		Status:       status,
	}

	if err := tx.Create(&referral).Error; err != nil {
		// The unique index on referred_id is the real one-sponsor guard; the
		// pre-check above only produces the friendlier error in the common case.
		if isUniqueConstraintError(err) {
			return nil, ErrAlreadySponsored
		}
		return nil, storageError("sponsorship service: create referral", err)
	}

	return &referral, nil
}

// ReferralMemberDTO pairs a ledger entry with the referred member's public profile.
type ReferralMemberDTO struct {
	Referral models.Referral      `json:"referral"`
	State    models.ApprovalState `json:"state"`
	Member   *MemberSummary       `json:"member,omitempty"`
}

// MemberSummary is the subset of a profile shown in referral listings.
type MemberSummary struct {
	ID        string  `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Username  *string `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
}

// ListMembers returns every ledger entry for the sponsor, newest first, with
// the referred member's profile attached when it exists.
func (s *SponsorshipService) ListMembers(ctx context.Context, sponsorID string) ([]ReferralMemberDTO, error) {
	ctx = ensureContext(ctx)
	sponsorID = strings.TrimSpace(sponsorID)
	if sponsorID == "" {
		return nil, errors.New("sponsorship service: sponsor id is required")
	}

	var referrals []models.Referral
	if err := s.db.WithContext(ctx).
		Where("sponsor_id = ?", sponsorID).
		Order("created_at DESC").
		Find(&referrals).Error; err != nil {
		return nil, storageError("sponsorship service: list referrals", err)
	}

	return s.attachProfiles(ctx, referrals)
}

// ListPendingApprovals returns entries still awaiting the sponsor's decision,
// newest first. The filter intentionally checks both columns: approval and
// status are tracked independently, so filtering on status alone would
// resurface records the sponsor already approved.
func (s *SponsorshipService) ListPendingApprovals(ctx context.Context, sponsorID string) ([]ReferralMemberDTO, error) {
	ctx = ensureContext(ctx)
	sponsorID = strings.TrimSpace(sponsorID)
	if sponsorID == "" {
		return nil, errors.New("sponsorship service: sponsor id is required")
	}

	var referrals []models.Referral
	if err := s.db.WithContext(ctx).
		Where("sponsor_id = ? AND sponsor_approved <> ? AND status <> ?",
			sponsorID, true, models.ReferralStatusRejected).
		Order("created_at DESC").
		Find(&referrals).Error; err != nil {
		return nil, storageError("sponsorship service: list pending approvals", err)
	}

	return s.attachProfiles(ctx, referrals)
}

// GetSponsorOf returns the ledger entry naming the member's sponsor, with the
// sponsor's profile attached. Fails with ErrReferralNotFound when the member
// was never sponsored.
func (s *SponsorshipService) GetSponsorOf(ctx context.Context, memberID string) (*ReferralMemberDTO, error) {
	ctx = ensureContext(ctx)
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return nil, errors.New("sponsorship service: member id is required")
	}

	var referral models.Referral
	err := s.db.WithContext(ctx).
		Where("referred_id = ?", memberID).
		Take(&referral).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReferralNotFound
	}
	if err != nil {
		return nil, storageError("sponsorship service: find sponsor", err)
	}

	dto := ReferralMemberDTO{Referral: referral, State: referral.State()}

	var sponsor models.Profile
	if err := s.db.WithContext(ctx).Take(&sponsor, "id = ?", referral.SponsorID).Error; err == nil {
		dto.Member = profileSummary(sponsor)
	}

	return &dto, nil
}

// CountForSponsor returns the number of ledger entries attached to a sponsor.
// The primary referral code's derived used state builds on this count.
func (s *SponsorshipService) CountForSponsor(ctx context.Context, sponsorID string) (int64, error) {
	ctx = ensureContext(ctx)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Referral{}).
		Where("sponsor_id = ?", sponsorID).
		Count(&count).Error; err != nil {
		return 0, storageError("sponsorship service: count referrals", err)
	}
	return count, nil
}

// ReferralStatsDTO summarises a sponsor's referral activity.
type ReferralStatsDTO struct {
	Total     int64 `json:"total_referrals"`
	Pending   int64 `json:"pending_referrals"`
	ThisMonth int64 `json:"referrals_this_month"`
	ThisYear  int64 `json:"referrals_this_year"`
}

// Stats aggregates referral counts for the sponsor's dashboard.
func (s *SponsorshipService) Stats(ctx context.Context, sponsorID string) (*ReferralStatsDTO, error) {
	ctx = ensureContext(ctx)
	sponsorID = strings.TrimSpace(sponsorID)
	if sponsorID == "" {
		return nil, errors.New("sponsorship service: sponsor id is required")
	}

	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)

	stats := &ReferralStatsDTO{}
	base := s.db.WithContext(ctx).Model(&models.Referral{}).Where("sponsor_id = ?", sponsorID)

	if err := base.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, storageError("sponsorship service: stats total", err)
	}
	if err := base.Session(&gorm.Session{}).
		Where("sponsor_approved <> ? AND status <> ?", true, models.ReferralStatusRejected).
		Count(&stats.Pending).Error; err != nil {
		return nil, storageError("sponsorship service: stats pending", err)
	}
	if err := base.Session(&gorm.Session{}).
		Where("created_at >= ?", monthStart).
		Count(&stats.ThisMonth).Error; err != nil {
		return nil, storageError("sponsorship service: stats month", err)
	}
	if err := base.Session(&gorm.Session{}).
		Where("created_at >= ?", yearStart).
		Count(&stats.ThisYear).Error; err != nil {
		return nil, storageError("sponsorship service: stats year", err)
	}

	return stats, nil
}

// Approve records the sponsor's approval. Approving twice is a no-op; approving
// a previously rejected entry clears the rejection and wins.
func (s *SponsorshipService) Approve(ctx context.Context, actorID, referralID string, admin bool) (*models.Referral, error) {
	ctx = ensureContext(ctx)

	referral, err := s.loadOwned(ctx, actorID, referralID, admin)
	if err != nil {
		return nil, err
	}

	if referral.SponsorApproved {
		return referral, nil
	}

	now := s.now().UTC()
	updates := map[string]any{
		"sponsor_approved":    true,
		"sponsor_approved_at": now,
		"rejection_reason":    nil,
	}
	if err := s.db.WithContext(ctx).Model(referral).Updates(updates).Error; err != nil {
		return nil, storageError("sponsorship service: approve", err)
	}

	referral.SponsorApproved = true
	referral.SponsorApprovedAt = &now
	referral.RejectionReason = nil

	metrics.ApprovalDecisions.WithLabelValues("approve").Inc()
	return referral, nil
}

// Reject records a rejection with an optional reason. A rejection always wins,
// including over an earlier approval.
func (s *SponsorshipService) Reject(ctx context.Context, actorID, referralID, reason string, admin bool) (*models.Referral, error) {
	ctx = ensureContext(ctx)

	referral, err := s.loadOwned(ctx, actorID, referralID, admin)
	if err != nil {
		return nil, err
	}

	var reasonValue *string
	if trimmed := strings.TrimSpace(reason); trimmed != "" {
		reasonValue = &trimmed
	}

	updates := map[string]any{
		"status":           models.ReferralStatusRejected,
		"rejection_reason": reasonValue,
		"sponsor_approved": false,
	}
	if err := s.db.WithContext(ctx).Model(referral).Updates(updates).Error; err != nil {
		return nil, storageError("sponsorship service: reject", err)
	}

	referral.Status = models.ReferralStatusRejected
	referral.RejectionReason = reasonValue
	referral.SponsorApproved = false

	metrics.ApprovalDecisions.WithLabelValues("reject").Inc()
	return referral, nil
}

// ListAll returns one page of the full ledger for the admin console, newest
// first, along with the total number of ledger entries.
func (s *SponsorshipService) ListAll(ctx context.Context, limit, offset int) ([]ReferralMemberDTO, int64, error) {
	ctx = ensureContext(ctx)

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Referral{}).Count(&total).Error; err != nil {
		return nil, 0, storageError("sponsorship service: count ledger", err)
	}

	var referrals []models.Referral
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&referrals).Error; err != nil {
		return nil, 0, storageError("sponsorship service: list all", err)
	}

	members, err := s.attachProfiles(ctx, referrals)
	if err != nil {
		return nil, 0, err
	}
	return members, total, nil
}

func (s *SponsorshipService) loadOwned(ctx context.Context, actorID, referralID string, admin bool) (*models.Referral, error) {
	actorID = strings.TrimSpace(actorID)
	referralID = strings.TrimSpace(referralID)
	if actorID == "" || referralID == "" {
		return nil, errors.New("sponsorship service: actor and referral ids are required")
	}

	var referral models.Referral
	err := s.db.WithContext(ctx).Take(&referral, "id = ?", referralID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReferralNotFound
	}
	if err != nil {
		return nil, storageError("sponsorship service: load referral", err)
	}

	if referral.SponsorID != actorID && !admin {
		return nil, ErrNotRecordOwner
	}

	return &referral, nil
}

func (s *SponsorshipService) attachProfiles(ctx context.Context, referrals []models.Referral) ([]ReferralMemberDTO, error) {
	result := make([]ReferralMemberDTO, 0, len(referrals))
	if len(referrals) == 0 {
		return result, nil
	}

	ids := make([]string, 0, len(referrals))
	for _, referral := range referrals {
		ids = append(ids, referral.ReferredID)
	}

	var profiles []models.Profile
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, storageError("sponsorship service: load profiles", err)
	}

	byID := make(map[string]models.Profile, len(profiles))
	for _, profile := range profiles {
		byID[profile.ID] = profile
	}

	for _, referral := range referrals {
		dto := ReferralMemberDTO{Referral: referral, State: referral.State()}
		if profile, ok := byID[referral.ReferredID]; ok {
			dto.Member = profileSummary(profile)
		}
		result = append(result, dto)
	}

	return result, nil
}

func profileSummary(profile models.Profile) *MemberSummary {
	return &MemberSummary{
		ID:        profile.ID,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Username:  profile.Username,
		AvatarURL: profile.AvatarURL,
	}
}
