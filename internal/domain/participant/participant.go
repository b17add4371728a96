package participant

import (
	"strings"
	"time"
)

// ApprovalStatus is the onboarding state assigned by the external approval workflow.
type ApprovalStatus string

const (
	StatusPending  ApprovalStatus = "pending"
	StatusApproved ApprovalStatus = "approved"
	StatusRejected ApprovalStatus = "rejected"
)

// PlanTier is the subscription level of a community; it controls how often it may broadcast.
type PlanTier string

const (
	PlanFree PlanTier = "free"
	PlanPro  PlanTier = "pro"
	PlanVIP  PlanTier = "vip"
)

// IsPremium reports whether the plan grants the short broadcast interval.
// Plan names are free-form in the store ("pro_monthly", "VIP"), so matching is by substring.
func (p PlanTier) IsPremium() bool {
	name := strings.ToLower(string(p))
	return strings.Contains(name, "pro") || strings.Contains(name, "vip")
}

// Content is the promotional material shown when a participant is broadcast.
type Content struct {
	Title       string
	Description string
	LogoURL     string
	BannerURL   string
	Category    string
	Tags        string
	InviteURL   string
}

// Participant represents a community enrolled in the cross-promotion rotation.
// Corresponds to the 'participants' table.
type Participant struct {
	CommunityID int64
	Name        string
	Enabled     bool
	Plan        PlanTier
	Status      ApprovalStatus
	LinkValid   bool
	Counters    Counters
	Content     Content
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CanBroadcast reports whether the participant's content may be promoted at all.
func (p *Participant) CanBroadcast() bool {
	return p.Enabled && p.Status == StatusApproved && p.LinkValid
}

// Identity is the always-fresh projection used by interactive reads and writes.
type Identity struct {
	CommunityID int64
	Name        string
	Enabled     bool
}
