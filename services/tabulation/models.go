// Package tabulation implements the hardest subsystem: match series,
// 2-team/4-team BP matches, checked-in-pool allocation, adjudicator
// ballots, aggregated rankings, release gating, and performance stats.
package tabulation

import (
	"time"

	"github.com/google/uuid"
)

type TeamFormat string

const (
	FormatTwoTeam  TeamFormat = "two_team"
	FormatFourTeam TeamFormat = "four_team"
)

type TwoTeamPosition string

const (
	PositionGovernment TwoTeamPosition = "government"
	PositionOpposition TwoTeamPosition = "opposition"
)

type FourTeamPosition string

const (
	PositionOG FourTeamPosition = "OG"
	PositionOO FourTeamPosition = "OO"
	PositionCG FourTeamPosition = "CG"
	PositionCO FourTeamPosition = "CO"
)

type TwoTeamSpeakerRole string

const (
	RolePrimeMinister             TwoTeamSpeakerRole = "prime_minister"
	RoleLeaderOfOpposition        TwoTeamSpeakerRole = "leader_of_opposition"
	RoleDeputyPrimeMinister       TwoTeamSpeakerRole = "deputy_prime_minister"
	RoleDeputyLeaderOfOpposition  TwoTeamSpeakerRole = "deputy_leader_of_opposition"
	RoleMemberOfGovernment        TwoTeamSpeakerRole = "member_of_government"
	RoleMemberOfOpposition        TwoTeamSpeakerRole = "member_of_opposition"
	RoleGovernmentReply           TwoTeamSpeakerRole = "government_reply"
	RoleOppositionReply           TwoTeamSpeakerRole = "opposition_reply"
)

type FourTeamSpeakerRole string

const (
	RoleFirstSpeaker  FourTeamSpeakerRole = "first_speaker"
	RoleSecondSpeaker FourTeamSpeakerRole = "second_speaker"
)

type AllocationRole string

const (
	RoleSpeaker               AllocationRole = "speaker"
	RoleResource              AllocationRole = "resource"
	RoleVotingAdjudicator     AllocationRole = "voting_adjudicator"
	RoleNonVotingAdjudicator  AllocationRole = "non_voting_adjudicator"
)

type MatchStatus string

const (
	StatusDraft      MatchStatus = "draft"
	StatusPublished  MatchStatus = "published"
	StatusInProgress MatchStatus = "in_progress"
	StatusCompleted  MatchStatus = "completed"
	StatusCancelled  MatchStatus = "cancelled"
)

type AllocationHistoryAction string

const (
	ActionCreated AllocationHistoryAction = "created"
	ActionUpdated AllocationHistoryAction = "updated"
	ActionSwapped AllocationHistoryAction = "swapped"
	ActionDeleted AllocationHistoryAction = "deleted"
)

// twoTeamPositions and fourTeamPositions are the fixed slots eagerly
// created for a match, keyed by series format (spec §4.4.1).
var twoTeamPositions = []TwoTeamPosition{PositionGovernment, PositionOpposition}
var fourTeamPositions = []FourTeamPosition{PositionOG, PositionOO, PositionCG, PositionCO}

type MatchSeries struct {
	ID                 uuid.UUID  `json:"id"`
	EventID            uuid.UUID  `json:"event_id"`
	Name               string     `json:"name"`
	Description        *string    `json:"description,omitempty"`
	RoundNumber        *int       `json:"round_number,omitempty"`
	TeamFormat         TeamFormat `json:"team_format"`
	AllowReplySpeeches bool       `json:"allow_reply_speeches"`
	IsBreakRound       bool       `json:"is_break_round"`
	CreatedBy          uuid.UUID  `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type Match struct {
	ID                uuid.UUID   `json:"id"`
	SeriesID          uuid.UUID   `json:"series_id"`
	RoomName          *string     `json:"room_name,omitempty"`
	Motion            *string     `json:"motion,omitempty"`
	InfoSlide         *string     `json:"info_slide,omitempty"`
	Status            MatchStatus `json:"status"`
	ScheduledTime     *time.Time  `json:"scheduled_time,omitempty"`
	ScoresReleased    bool        `json:"scores_released"`
	RankingsReleased  bool        `json:"rankings_released"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

type MatchTeam struct {
	ID                 uuid.UUID        `json:"id"`
	MatchID            uuid.UUID        `json:"match_id"`
	TwoTeamPosition    *TwoTeamPosition `json:"two_team_position,omitempty"`
	FourTeamPosition   *FourTeamPosition `json:"four_team_position,omitempty"`
	TeamName           *string          `json:"team_name,omitempty"`
	Institution        *string          `json:"institution,omitempty"`
	FinalRank          *int             `json:"final_rank,omitempty"`
	TotalSpeakerPoints *float64         `json:"total_speaker_points,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type Allocation struct {
	ID                  uuid.UUID           `json:"id"`
	MatchID             uuid.UUID           `json:"match_id"`
	UserID              *uuid.UUID          `json:"user_id,omitempty"`
	GuestName           *string             `json:"guest_name,omitempty"`
	Role                AllocationRole      `json:"role"`
	TeamID              *uuid.UUID          `json:"team_id,omitempty"`
	TwoTeamSpeakerRole  *TwoTeamSpeakerRole  `json:"two_team_speaker_role,omitempty"`
	FourTeamSpeakerRole *FourTeamSpeakerRole `json:"four_team_speaker_role,omitempty"`
	IsChair             bool                `json:"is_chair"`
	AllocatedBy         uuid.UUID           `json:"allocated_by"`
	AllocatedAt         time.Time           `json:"allocated_at"`
	WasCheckedIn        bool                `json:"was_checked_in"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at"`
}

// DisplayName returns the allocation-holder's username or guest name.
func (a Allocation) DisplayName(username string) string {
	if a.GuestName != nil {
		return *a.GuestName
	}
	return username
}

type AllocationHistory struct {
	ID              uuid.UUID                `json:"id"`
	AllocationID    *uuid.UUID               `json:"allocation_id,omitempty"`
	MatchID         uuid.UUID                `json:"match_id"`
	UserID          *uuid.UUID               `json:"user_id,omitempty"`
	GuestName       *string                  `json:"guest_name,omitempty"`
	Action          AllocationHistoryAction  `json:"action"`
	PreviousRole    *AllocationRole          `json:"previous_role,omitempty"`
	NewRole         *AllocationRole          `json:"new_role,omitempty"`
	PreviousTeamID  *uuid.UUID               `json:"previous_team_id,omitempty"`
	NewTeamID       *uuid.UUID               `json:"new_team_id,omitempty"`
	ChangedBy       uuid.UUID                `json:"changed_by"`
	ChangedAt       time.Time                `json:"changed_at"`
	Notes           *string                  `json:"notes,omitempty"`
}

type Ballot struct {
	ID            uuid.UUID  `json:"id"`
	MatchID       uuid.UUID  `json:"match_id"`
	AdjudicatorID uuid.UUID  `json:"adjudicator_id"`
	IsVoting      bool       `json:"is_voting"`
	IsSubmitted   bool       `json:"is_submitted"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type SpeakerScore struct {
	ID           uuid.UUID `json:"id"`
	BallotID     uuid.UUID `json:"ballot_id"`
	AllocationID uuid.UUID `json:"allocation_id"`
	Score        float64   `json:"score"`
	Feedback     *string   `json:"feedback,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	SpeakerName string `json:"speaker_name,omitempty"`
}

type TeamRanking struct {
	ID        uuid.UUID `json:"id"`
	BallotID  uuid.UUID `json:"ballot_id"`
	TeamID    uuid.UUID `json:"team_id"`
	Rank      int       `json:"rank"`
	IsWinner  bool      `json:"is_winner"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TeamName string `json:"team_name,omitempty"`
}

// --- Requests ---

type CreateSeriesRequest struct {
	EventID            uuid.UUID  `json:"event_id" validate:"required"`
	Name               string     `json:"name" validate:"required,min=1,max=255"`
	Description        *string    `json:"description,omitempty"`
	RoundNumber        *int       `json:"round_number,omitempty"`
	TeamFormat         TeamFormat `json:"team_format" validate:"required,oneof=two_team four_team"`
	AllowReplySpeeches bool       `json:"allow_reply_speeches"`
	IsBreakRound       bool       `json:"is_break_round"`
}

type CreateMatchRequest struct {
	SeriesID      uuid.UUID  `json:"series_id" validate:"required"`
	RoomName      *string    `json:"room_name,omitempty"`
	Motion        *string    `json:"motion,omitempty"`
	InfoSlide     *string    `json:"info_slide,omitempty"`
	ScheduledTime *time.Time `json:"scheduled_time,omitempty"`
}

type UpdateMatchRequest struct {
	RoomName      *string      `json:"room_name,omitempty"`
	Motion        *string      `json:"motion,omitempty"`
	InfoSlide     *string      `json:"info_slide,omitempty"`
	Status        *MatchStatus `json:"status,omitempty" validate:"omitempty,oneof=draft published in_progress completed cancelled"`
	ScheduledTime *time.Time   `json:"scheduled_time,omitempty"`
}

type UpdateTeamRequest struct {
	TeamName    *string `json:"team_name,omitempty"`
	Institution *string `json:"institution,omitempty"`
}

type CreateAllocationRequest struct {
	MatchID             uuid.UUID            `json:"match_id" validate:"required"`
	UserID              *uuid.UUID           `json:"user_id,omitempty"`
	GuestName           *string              `json:"guest_name,omitempty"`
	Role                AllocationRole       `json:"role" validate:"required,oneof=speaker resource voting_adjudicator non_voting_adjudicator"`
	TeamID              *uuid.UUID           `json:"team_id,omitempty"`
	TwoTeamSpeakerRole  *TwoTeamSpeakerRole  `json:"two_team_speaker_role,omitempty"`
	FourTeamSpeakerRole *FourTeamSpeakerRole `json:"four_team_speaker_role,omitempty"`
	IsChair             bool                 `json:"is_chair"`
}

type UpdateAllocationRequest struct {
	Role                *AllocationRole      `json:"role,omitempty" validate:"omitempty,oneof=speaker resource voting_adjudicator non_voting_adjudicator"`
	TeamID              *uuid.UUID           `json:"team_id,omitempty"`
	TwoTeamSpeakerRole  *TwoTeamSpeakerRole  `json:"two_team_speaker_role,omitempty"`
	FourTeamSpeakerRole *FourTeamSpeakerRole `json:"four_team_speaker_role,omitempty"`
	IsChair             *bool                `json:"is_chair,omitempty"`
}

type SwapAllocationsRequest struct {
	ID1 uuid.UUID `json:"id1" validate:"required"`
	ID2 uuid.UUID `json:"id2" validate:"required"`
}

type ReleaseRequest struct {
	ScoresReleased   *bool `json:"scores_released,omitempty"`
	RankingsReleased *bool `json:"rankings_released,omitempty"`
}

type SpeakerScoreInput struct {
	AllocationID uuid.UUID `json:"allocation_id" validate:"required"`
	Score        float64   `json:"score" validate:"required"`
	Feedback     *string   `json:"feedback,omitempty"`
}

type TeamRankingInput struct {
	TeamID   uuid.UUID `json:"team_id" validate:"required"`
	Rank     int       `json:"rank" validate:"required,min=1"`
	IsWinner bool      `json:"is_winner"`
}

type SubmitBallotRequest struct {
	SpeakerScores []SpeakerScoreInput `json:"speaker_scores" validate:"dive"`
	TeamRankings  []TeamRankingInput  `json:"team_rankings" validate:"dive"`
	Notes         *string             `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

type SubmitFeedbackRequest struct {
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

// --- Derived / response shapes ---

type CheckedInUser struct {
	UserID             uuid.UUID  `json:"user_id"`
	Username           string     `json:"username"`
	CheckedInAt        time.Time  `json:"checked_in_at"`
	IsAllocated        bool       `json:"is_allocated"`
	CurrentAllocation  *CurrentAllocation `json:"current_allocation,omitempty"`
}

type CurrentAllocation struct {
	MatchID  uuid.UUID `json:"match_id"`
	RoomName *string   `json:"room_name,omitempty"`
	Role     AllocationRole `json:"role"`
}

type PoolResponse struct {
	CheckedInUsers []CheckedInUser `json:"checked_in_users"`
	Totals         PoolTotals      `json:"totals"`
}

type PoolTotals struct {
	CheckedIn int `json:"checked_in"`
	Allocated int `json:"allocated"`
	Available int `json:"available"`
}

type PerformanceStats struct {
	UserID               uuid.UUID `json:"user_id"`
	TotalRounds          int       `json:"total_rounds"`
	RoundsAsSpeaker      int       `json:"rounds_as_speaker"`
	RoundsAsAdjudicator  int       `json:"rounds_as_adjudicator"`
	AverageSpeakerScore  *float64  `json:"average_speaker_score,omitempty"`
	Wins                 int       `json:"wins"`
	Losses                int       `json:"losses"`
	WinRate              *float64  `json:"win_rate,omitempty"`
	Rankings             map[int]int `json:"rankings"`
}
