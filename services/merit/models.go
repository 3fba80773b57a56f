// Package merit implements the Merit service: the user merit ledger
// with audited admin deltas, and the tiered award subsystem.
package merit

import (
	"time"

	"github.com/google/uuid"
)

type AwardTier string

const (
	TierBronze AwardTier = "bronze"
	TierSilver AwardTier = "silver"
	TierGold   AwardTier = "gold"
)

var tierRank = map[AwardTier]int{TierBronze: 1, TierSilver: 2, TierGold: 3}

// UserMerit mirrors the user_merits table.
type UserMerit struct {
	UserID      uuid.UUID `json:"user_id"`
	MeritPoints int       `json:"merit_points"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MeritHistory mirrors the merit_history table.
type MeritHistory struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	AdminID        *uuid.UUID `json:"admin_id,omitempty"`
	AdminUsername  *string    `json:"admin_username,omitempty"`
	ChangeAmount   int        `json:"change_amount"`
	PreviousTotal  int        `json:"previous_total"`
	NewTotal       int        `json:"new_total"`
	Reason         string     `json:"reason"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Award mirrors the awards table.
type Award struct {
	ID          uuid.UUID  `json:"id"`
	UserID      uuid.UUID  `json:"user_id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Tier        AwardTier  `json:"tier"`
	AwardedBy   *uuid.UUID `json:"awarded_by,omitempty"`
	AwardedAt   time.Time  `json:"awarded_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AwardHistory mirrors the award_history table.
type AwardHistory struct {
	ID            uuid.UUID  `json:"id"`
	AwardID       uuid.UUID  `json:"award_id"`
	UserID        uuid.UUID  `json:"user_id"`
	AdminID       *uuid.UUID `json:"admin_id,omitempty"`
	PreviousTier  *AwardTier `json:"previous_tier,omitempty"`
	NewTier       AwardTier  `json:"new_tier"`
	Reason        string     `json:"reason"`
	CreatedAt     time.Time  `json:"created_at"`
}

// AdjustMeritRequest validates POST /admin/merit.
type AdjustMeritRequest struct {
	UserID       uuid.UUID `json:"user_id" validate:"required"`
	ChangeAmount int       `json:"change_amount" validate:"required"`
	Reason       string    `json:"reason" validate:"required,min=3,max=500"`
}

// CreateAwardRequest validates POST /admin/awards.
type CreateAwardRequest struct {
	UserID      uuid.UUID `json:"user_id" validate:"required"`
	Title       string    `json:"title" validate:"required,min=1,max=255"`
	Description *string   `json:"description,omitempty"`
	Tier        AwardTier `json:"tier" validate:"required,oneof=bronze silver gold"`
}

// UpgradeAwardRequest validates PATCH /admin/awards/:id/upgrade.
type UpgradeAwardRequest struct {
	NewTier  AwardTier `json:"new_tier" validate:"required,oneof=bronze silver gold"`
	Reason   string    `json:"reason" validate:"required,min=3,max=500"`
	NewTitle *string   `json:"new_title,omitempty"`
}

// EditAwardRequest validates PUT /admin/awards/:id (free-form correction).
type EditAwardRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Tier        *AwardTier `json:"tier,omitempty" validate:"omitempty,oneof=bronze silver gold"`
}

// ProfileVisibility is the tier the merit service renders a user
// profile at, per spec §4.3.
type ProfileVisibility string

const (
	VisibilityPublic  ProfileVisibility = "public"
	VisibilityPrivate ProfileVisibility = "private"
	VisibilityAdmin   ProfileVisibility = "admin"
)

// Profile is the rendered user-profile response, shaped per visibility tier.
type Profile struct {
	ID            uuid.UUID  `json:"id"`
	Username      string     `json:"username"`
	YearJoined    int        `json:"year_joined"`
	CreatedAt     time.Time  `json:"created_at"`
	Email         *string    `json:"email,omitempty"`
	RegNumber     *string    `json:"reg_number,omitempty"`
	PhoneNumber   *string    `json:"phone_number,omitempty"`
	EmailVerified *bool      `json:"email_verified,omitempty"`
	MeritPoints   *int       `json:"merit_points,omitempty"`
	IsAdmin       *bool      `json:"is_admin,omitempty"`
}
