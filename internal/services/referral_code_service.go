package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/aurorasociety/clubhouse/internal/models"
	"github.com/aurorasociety/clubhouse/pkg/metrics"
)

// ErrProfileNotFound indicates the member does not exist.
var ErrProfileNotFound = errors.New("referral code: profile not found")

const qrCodeSize = 256

// ReferralCodeService manages each member's single primary referral code.
type ReferralCodeService struct {
	db           *gorm.DB
	sponsorships *SponsorshipService
	generator    *CodeGenerator
	baseURL      string
}

// NewReferralCodeService constructs a ReferralCodeService. baseURL is the
// public origin registration URLs are built against.
func NewReferralCodeService(db *gorm.DB, sponsorships *SponsorshipService, generator *CodeGenerator, baseURL string) (*ReferralCodeService, error) {
	if db == nil {
		return nil, errors.New("referral code service: db is required")
	}
	if sponsorships == nil {
		return nil, errors.New("referral code service: sponsorship service is required")
	}
	if generator == nil {
		generator = NewCodeGenerator()
	}

	return &ReferralCodeService{
		db:           db,
		sponsorships: sponsorships,
		generator:    generator,
		baseURL:      strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}, nil
}

// GetOrCreate returns the member's primary referral code, generating and
// persisting one on first request. The code never changes once set.
func (s *ReferralCodeService) GetOrCreate(ctx context.Context, userID string) (string, error) {
	ctx = ensureContext(ctx)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("referral code service: user id is required")
	}

	profile, err := s.loadProfile(ctx, userID)
	if err != nil {
		return "", err
	}
	if profile.ReferralCode != nil && *profile.ReferralCode != "" {
		return *profile.ReferralCode, nil
	}

	code, err := s.generator.Generate(ctx, PrimaryCodePrefix, s.codeExists)
	if err != nil {
		return "", err
	}

	// Guarded update: only the first writer sets the code. A concurrent winner
	// leaves RowsAffected at zero, in which case we return their code instead.
	result := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ? AND referral_code IS NULL", userID).
		Update("referral_code", code)
	if result.Error != nil {
		if isUniqueConstraintError(result.Error) {
			return s.GetOrCreate(ctx, userID)
		}
		return "", storageError("referral code service: assign code", result.Error)
	}
	if result.RowsAffected == 0 {
		reloaded, err := s.loadProfile(ctx, userID)
		if err != nil {
			return "", err
		}
		if reloaded.ReferralCode == nil {
			return "", errors.New("referral code service: concurrent assignment left no code")
		}
		return *reloaded.ReferralCode, nil
	}

	metrics.CodesGenerated.WithLabelValues("primary").Inc()
	return code, nil
}

// ReferralCodeStatusDTO describes the member's primary code for display.
type ReferralCodeStatusDTO struct {
	Code            string `json:"code"`
	Used            bool   `json:"used"`
	ReferralCount   int64  `json:"referral_count"`
	RegistrationURL string `json:"registration_url"`
}

// Status reports the member's code together with its derived used state: the
// code counts as used once at least one ledger entry names the member as
// sponsor, regardless of which path created the entry.
func (s *ReferralCodeService) Status(ctx context.Context, userID string) (*ReferralCodeStatusDTO, error) {
	ctx = ensureContext(ctx)

	code, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	count, err := s.sponsorships.CountForSponsor(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ReferralCodeStatusDTO{
		Code:            code,
		Used:            count > 0,
		ReferralCount:   count,
		RegistrationURL: s.RegistrationURL(code),
	}, nil
}

// RegistrationURL builds the shareable URL for a primary referral code.
func (s *ReferralCodeService) RegistrationURL(code string) string {
	return fmt.Sprintf("%s/register?ref=%s", s.baseURL, url.QueryEscape(code))
}

// QRCode renders the registration URL for a code as a PNG.
func (s *ReferralCodeService) QRCode(ctx context.Context, userID string) ([]byte, error) {
	code, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(s.RegistrationURL(code), qrcode.Medium, qrCodeSize)
	if err != nil {
		return nil, fmt.Errorf("referral code service: encode qr: %w", err)
	}
	return png, nil
}

// FindSponsorByCode resolves a primary referral code to its owning member.
func (s *ReferralCodeService) FindSponsorByCode(ctx context.Context, code string) (*models.Profile, error) {
	ctx = ensureContext(ctx)

	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrProfileNotFound
	}

	var profile models.Profile
	err := s.db.WithContext(ctx).Take(&profile, "referral_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, storageError("referral code service: find by code", err)
	}
	return &profile, nil
}

func (s *ReferralCodeService) loadProfile(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Take(&profile, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, storageError("referral code service: load profile", err)
	}
	return &profile, nil
}

func (s *ReferralCodeService) codeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("referral_code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
