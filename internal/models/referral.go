package models

import "time"

// Referral status values persisted in the status column.
const (
	ReferralStatusPending   = "pending"
	ReferralStatusConfirmed = "confirmed"
	ReferralStatusRejected  = "rejected"
)

// ApprovalState names the four reachable combinations of the persisted
// (status, sponsor_approved) pair. Callers should branch on this derived view
// rather than reading the raw columns.
type ApprovalState string

const (
	ApprovalStateAwaiting            ApprovalState = "awaiting_approval"
	ApprovalStateConfirmedNoApproval ApprovalState = "confirmed_no_approval_needed"
	ApprovalStateApproved            ApprovalState = "approved"
	ApprovalStateRejected            ApprovalState = "rejected"
)

// Referral records the sponsor to referred-member relationship created when a
// code or link is redeemed. The unique index on ReferredID enforces that a
// member can only ever have one sponsor.
type Referral struct {
	BaseModel

	SponsorID    string `gorm:"type:uuid;index;not null" json:"sponsor_id"`
	ReferredID   string `gorm:"type:uuid;uniqueIndex;not null" json:"referred_id"`
	ReferralCode string `gorm:"not null" json:"referral_code"`

	Status            string     `gorm:"not null;default:pending;index" json:"status"`
	SponsorApproved   bool       `gorm:"not null;default:false" json:"sponsor_approved"`
	SponsorApprovedAt *time.Time `json:"sponsor_approved_at,omitempty"`
	RejectionReason   *string    `json:"rejection_reason,omitempty"`
}

// State collapses the redundant status and sponsor_approved columns into a
// single variant. An explicit approval wins first: rejecting always clears the
// flag, so a set flag means the latest decision was an approval even when the
// status column still reads rejected from an earlier decision.
func (r *Referral) State() ApprovalState {
	switch {
	case r.SponsorApproved:
		return ApprovalStateApproved
	case r.Status == ReferralStatusRejected:
		return ApprovalStateRejected
	case r.Status == ReferralStatusConfirmed:
		return ApprovalStateConfirmedNoApproval
	default:
		return ApprovalStateAwaiting
	}
}

// AwaitingApproval reports whether the record still needs a sponsor decision.
func (r *Referral) AwaitingApproval() bool {
	return r.State() == ApprovalStateAwaiting
}
