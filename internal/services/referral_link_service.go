package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aurorasociety/clubhouse/internal/models"
	"github.com/aurorasociety/clubhouse/pkg/logger"
	"github.com/aurorasociety/clubhouse/pkg/metrics"
)

var (
	// ErrReferralLinkNotFound indicates no link matches the input.
	ErrReferralLinkNotFound = errors.New("referral link: not found")
	// ErrReferralLinkInactive indicates the link is deactivated or expired.
	ErrReferralLinkInactive = errors.New("referral link: inactive or expired")
	// ErrReferralLinkLimitReached indicates the member is at their link cap.
	ErrReferralLinkLimitReached = errors.New("referral link: limit reached")
)

// ReferralLinkOption customises ReferralLinkService behaviour.
type ReferralLinkOption func(*ReferralLinkService)

// WithReferralLinkClock injects a custom clock primarily for testing.
func WithReferralLinkClock(clock func() time.Time) ReferralLinkOption {
	return func(s *ReferralLinkService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// ReferralLinkService manages shareable, trackable referral links.
type ReferralLinkService struct {
	db           *gorm.DB
	limits       *LimitService
	sponsorships *SponsorshipService
	codes        *ReferralCodeService
	generator    *CodeGenerator
	baseURL      string
	now          func() time.Time
	log          *zap.Logger
}

// NewReferralLinkService constructs a ReferralLinkService.
func NewReferralLinkService(db *gorm.DB, limits *LimitService, sponsorships *SponsorshipService, codes *ReferralCodeService, generator *CodeGenerator, baseURL string, opts ...ReferralLinkOption) (*ReferralLinkService, error) {
	if db == nil {
		return nil, errors.New("referral link service: db is required")
	}
	if limits == nil {
		return nil, errors.New("referral link service: limit service is required")
	}
	if sponsorships == nil {
		return nil, errors.New("referral link service: sponsorship service is required")
	}
	if codes == nil {
		return nil, errors.New("referral link service: referral code service is required")
	}
	if generator == nil {
		generator = NewCodeGenerator()
	}

	service := &ReferralLinkService{
		db:           db,
		limits:       limits,
		sponsorships: sponsorships,
		codes:        codes,
		generator:    generator,
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		now:          time.Now,
		log:          logger.WithModule("referral_links"),
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// CreateReferralLinkInput describes a new referral link.
type CreateReferralLinkInput struct {
	SponsorID    string
	Label        string
	IsFamilyLink bool
	AllowedPages []string
	ExpiresAt    *time.Time
}

// Create mints a new referral link for the sponsor. The cap counts every link
// the sponsor holds, active or not; deleting is what frees a slot. Creating a
// link also assigns the sponsor's primary referral code if they have none yet.
func (s *ReferralLinkService) Create(ctx context.Context, input CreateReferralLinkInput) (*models.ReferralLink, error) {
	ctx = ensureContext(ctx)
	sponsorID := strings.TrimSpace(input.SponsorID)
	if sponsorID == "" {
		return nil, errors.New("referral link service: sponsor id is required")
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.ReferralLink{}).
		Where("sponsor_id = ?", sponsorID).
		Count(&total).Error; err != nil {
		return nil, storageError("referral link service: count links", err)
	}
	if total >= int64(s.limits.MaxReferralLinks(ctx)) {
		return nil, ErrReferralLinkLimitReached
	}

	primaryCode, err := s.codes.GetOrCreate(ctx, sponsorID)
	if err != nil {
		return nil, err
	}

	var allowedPages datatypes.JSON
	if len(input.AllowedPages) > 0 {
		encoded, err := json.Marshal(input.AllowedPages)
		if err != nil {
			return nil, fmt.Errorf("referral link service: encode allowed pages: %w", err)
		}
		allowedPages = datatypes.JSON(encoded)
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		linkCode, err := s.generator.Generate(ctx, LinkCodePrefix, s.linkCodeExists)
		if err != nil {
			return nil, err
		}

		link := models.ReferralLink{
			SponsorID:    sponsorID,
			LinkCode:     linkCode,
			LinkName:     optionalLabel(input.Label),
			ReferralCode: primaryCode,
			IsActive:     true,
			IsFamilyLink: input.IsFamilyLink,
			AllowedPages: allowedPages,
			ExpiresAt:    input.ExpiresAt,
		}

		err = s.db.WithContext(ctx).Create(&link).Error
		if err == nil {
			metrics.CodesGenerated.WithLabelValues("link").Inc()
			return &link, nil
		}
		if !isUniqueConstraintError(err) {
			return nil, storageError("referral link service: create", err)
		}
		s.log.Warn("link code collision, retrying", zap.Int("attempt", attempt+1))
	}

	return nil, ErrCodeGenerationExhausted
}

// List returns the sponsor's links, newest first.
func (s *ReferralLinkService) List(ctx context.Context, sponsorID string) ([]models.ReferralLink, error) {
	ctx = ensureContext(ctx)

	var links []models.ReferralLink
	if err := s.db.WithContext(ctx).
		Where("sponsor_id = ?", sponsorID).
		Order("created_at DESC").
		Find(&links).Error; err != nil {
		return nil, storageError("referral link service: list", err)
	}
	return links, nil
}

// ClickContext carries the request metadata recorded with a click.
type ClickContext struct {
	IPAddress string
	UserAgent string
	Referer   string
}

// RecordClick resolves a link code, bumps its click counter and appends an
// audit row. Inactive and expired links are rejected so visitors are not sent
// to a registration that would fail.
func (s *ReferralLinkService) RecordClick(ctx context.Context, linkCode string, click ClickContext) (*models.ReferralLink, error) {
	ctx = ensureContext(ctx)

	link, err := s.resolveUsable(ctx, linkCode)
	if err != nil {
		return nil, err
	}

	// Counter increments happen in SQL so concurrent clicks never lose updates.
	if err := s.db.WithContext(ctx).Model(link).
		Update("click_count", gorm.Expr("click_count + 1")).Error; err != nil {
		return nil, storageError("referral link service: bump click count", err)
	}
	link.ClickCount++

	audit := models.ReferralLinkClick{
		LinkID:    link.ID,
		IPAddress: click.IPAddress,
		UserAgent: click.UserAgent,
		Referer:   optionalLabel(click.Referer),
	}
	if err := s.db.WithContext(ctx).Create(&audit).Error; err != nil {
		// The audit trail is best effort; the click itself already counted.
		s.log.Warn("click audit insert failed", zap.String("link_id", link.ID), zap.Error(err))
	}

	metrics.LinkClicks.Inc()
	return link, nil
}

// RecordRegistration consumes a link on behalf of a newly registered member:
// it bumps the registration counter and opens the pending ledger entry toward
// the link's sponsor, in one transaction.
func (s *ReferralLinkService) RecordRegistration(ctx context.Context, linkCode, newMemberID string) (*models.Referral, error) {
	ctx = ensureContext(ctx)
	newMemberID = strings.TrimSpace(newMemberID)
	if newMemberID == "" {
		return nil, errors.New("referral link service: member id is required")
	}

	link, err := s.resolveUsable(ctx, linkCode)
	if err != nil {
		metrics.Redemptions.WithLabelValues("referral_link", "failure").Inc()
		return nil, err
	}

	var referral *models.Referral
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.sponsorships.createInTx(tx, CreateReferralInput{
			SponsorID:  link.SponsorID,
			ReferredID: newMemberID,
			Code:       link.LinkCode,
		})
		if err != nil {
			return err
		}

		if err := tx.Model(link).
			Update("registration_count", gorm.Expr("registration_count + 1")).Error; err != nil {
			return storageError("referral link service: bump registration count", err)
		}

		referral = created
		return nil
	})
	if err != nil {
		metrics.Redemptions.WithLabelValues("referral_link", "failure").Inc()
		return nil, err
	}

	link.RegistrationCount++
	metrics.Redemptions.WithLabelValues("referral_link", "success").Inc()
	return referral, nil
}

// ToggleActive flips a link between active and inactive.
func (s *ReferralLinkService) ToggleActive(ctx context.Context, sponsorID, linkID string, active bool) (*models.ReferralLink, error) {
	ctx = ensureContext(ctx)

	link, err := s.loadOwned(ctx, sponsorID, linkID)
	if err != nil {
		return nil, err
	}

	if link.IsActive != active {
		if err := s.db.WithContext(ctx).Model(link).Update("is_active", active).Error; err != nil {
			return nil, storageError("referral link service: toggle", err)
		}
		link.IsActive = active
	}
	return link, nil
}

// Rename changes a link's label.
func (s *ReferralLinkService) Rename(ctx context.Context, sponsorID, linkID, label string) (*models.ReferralLink, error) {
	ctx = ensureContext(ctx)

	link, err := s.loadOwned(ctx, sponsorID, linkID)
	if err != nil {
		return nil, err
	}

	name := optionalLabel(label)
	if err := s.db.WithContext(ctx).Model(link).Update("link_name", name).Error; err != nil {
		return nil, storageError("referral link service: rename", err)
	}
	link.LinkName = name
	return link, nil
}

// Delete removes a link and its click history. Ledger entries it produced are
// untouched; only the tracking artifact goes away.
func (s *ReferralLinkService) Delete(ctx context.Context, sponsorID, linkID string) error {
	ctx = ensureContext(ctx)

	link, err := s.loadOwned(ctx, sponsorID, linkID)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("link_id = ?", link.ID).Delete(&models.ReferralLinkClick{}).Error; err != nil {
			return storageError("referral link service: delete clicks", err)
		}
		if err := tx.Delete(link).Error; err != nil {
			return storageError("referral link service: delete link", err)
		}
		return nil
	})
}

// LinkURL builds the shareable URL for a link code.
func (s *ReferralLinkService) LinkURL(linkCode string) string {
	return fmt.Sprintf("%s/register?link=%s", s.baseURL, url.QueryEscape(linkCode))
}

// QRCode renders a link's registration URL as a PNG.
func (s *ReferralLinkService) QRCode(ctx context.Context, sponsorID, linkID string) ([]byte, error) {
	ctx = ensureContext(ctx)

	link, err := s.loadOwned(ctx, sponsorID, linkID)
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(s.LinkURL(link.LinkCode), qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("referral link service: encode qr: %w", err)
	}
	return png, nil
}

// resolveUsable loads a link by code and rejects inactive or expired ones.
func (s *ReferralLinkService) resolveUsable(ctx context.Context, linkCode string) (*models.ReferralLink, error) {
	linkCode = strings.ToUpper(strings.TrimSpace(linkCode))
	if linkCode == "" {
		return nil, ErrReferralLinkNotFound
	}

	var link models.ReferralLink
	err := s.db.WithContext(ctx).Take(&link, "link_code = ?", linkCode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReferralLinkNotFound
	}
	if err != nil {
		return nil, storageError("referral link service: resolve", err)
	}

	if !link.IsActive {
		return nil, ErrReferralLinkInactive
	}
	if link.ExpiresAt != nil && !link.ExpiresAt.After(s.now()) {
		return nil, ErrReferralLinkInactive
	}

	return &link, nil
}

func (s *ReferralLinkService) loadOwned(ctx context.Context, sponsorID, linkID string) (*models.ReferralLink, error) {
	sponsorID = strings.TrimSpace(sponsorID)
	linkID = strings.TrimSpace(linkID)
	if sponsorID == "" || linkID == "" {
		return nil, errors.New("referral link service: sponsor and link ids are required")
	}

	var link models.ReferralLink
	err := s.db.WithContext(ctx).Take(&link, "id = ? AND sponsor_id = ?", linkID, sponsorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReferralLinkNotFound
	}
	if err != nil {
		return nil, storageError("referral link service: load", err)
	}
	return &link, nil
}

func (s *ReferralLinkService) linkCodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.ReferralLink{}).
		Where("link_code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
